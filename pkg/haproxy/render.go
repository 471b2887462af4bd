// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package haproxy renders a hydrated load balancer graph into the canonical
// backend configuration text. Output is deterministic for a given graph so
// the agent can compare rendered bytes against the on-disk copy and skip a
// reload when nothing changed.
package haproxy

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/openlbaas/openlbaas/pkg/models"
)

// Options tunes the rendered configuration.
type Options struct {
	// UserGroup is the user/group the haproxy process drops to.
	User  string
	Group string

	// StatsSocket is the path of the local stats socket used for counter
	// scraping.
	StatsSocket string

	// CertDir holds the PEM bundles materialized for TERMINATED_HTTPS
	// listeners, one <listener id>.pem per listener.
	CertDir string

	// TemplatePath overrides the built-in configuration template.
	TemplatePath string
}

func (o Options) withDefaults() Options {
	if o.User == "" {
		o.User = "nobody"
	}
	if o.Group == "" {
		o.Group = "nogroup"
	}
	if o.StatsSocket == "" {
		o.StatsSocket = "/var/run/openlbaas/haproxy_stats.sock"
	}
	return o
}

// protocolModes maps LBaaS protocols to haproxy modes. HTTPS pass-through
// stays in tcp mode; TERMINATED_HTTPS is http with TLS unwrapped at the
// bind line.
var protocolModes = map[string]string{
	models.ProtocolTCP:             "tcp",
	models.ProtocolHTTP:            "http",
	models.ProtocolHTTPS:           "tcp",
	models.ProtocolTerminatedHTTPS: "http",
	models.ProtocolProxy:           "tcp",
}

var algorithmDirectives = map[string]string{
	models.AlgorithmRoundRobin:       "roundrobin",
	models.AlgorithmLeastConnections: "leastconn",
	models.AlgorithmSourceIP:         "source",
}

type frontendData struct {
	ID             string
	Bind           string
	Mode           string
	MaxConn        int
	Options        []string
	ACLs           []string
	Actions        []string
	DefaultBackend string
}

type backendData struct {
	ID      string
	Mode    string
	Balance string
	Options []string
	Servers []string
}

type configData struct {
	Name        string
	User        string
	Group       string
	StatsSocket string
	Frontends   []frontendData
	Backends    []backendData
}

// Render produces the configuration text for the load balancer graph.
func Render(lb *models.LoadBalancer, opts Options) (string, error) {
	opts = opts.withDefaults()

	data := configData{
		Name:        lb.ID,
		User:        opts.User,
		Group:       opts.Group,
		StatsSocket: opts.StatsSocket,
	}

	backends := map[string]bool{}
	for _, listener := range lb.Listeners {
		fe, err := buildFrontend(lb, listener, opts)
		if err != nil {
			return "", err
		}
		data.Frontends = append(data.Frontends, fe)

		pools := []*models.Pool{}
		if listener.DefaultPool != nil {
			pools = append(pools, listener.DefaultPool)
		}
		for _, pol := range listener.L7Policies {
			if pol.Action == models.L7PolicyActionRedirectToPool && pol.RedirectPoolID != "" {
				if pool := findPool(lb, pol.RedirectPoolID); pool != nil {
					pools = append(pools, pool)
				}
			}
		}
		for _, pool := range pools {
			if backends[pool.ID] {
				continue
			}
			backends[pool.ID] = true
			be, err := buildBackend(pool)
			if err != nil {
				return "", err
			}
			data.Backends = append(data.Backends, be)
		}
	}

	return executeTemplate(data, opts.TemplatePath)
}

func findPool(lb *models.LoadBalancer, id string) *models.Pool {
	for _, p := range lb.Pools {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func buildFrontend(lb *models.LoadBalancer, listener *models.Listener, opts Options) (frontendData, error) {
	mode, ok := protocolModes[listener.Protocol]
	if !ok {
		return frontendData{}, fmt.Errorf("unsupported listener protocol %q", listener.Protocol)
	}

	bind := fmt.Sprintf("%s:%d", lb.VIPAddress, listener.ProtocolPort)
	if listener.Protocol == models.ProtocolTerminatedHTTPS && listener.DefaultTLSContainerRef != "" {
		bind += " ssl crt " + filepath.Join(opts.CertDir, listener.ID+".pem")
	}

	fe := frontendData{
		ID:   listener.ID,
		Bind: bind,
		Mode: mode,
	}
	if listener.ConnectionLimit > 0 {
		fe.MaxConn = listener.ConnectionLimit
	}
	if mode == "http" {
		fe.Options = append(fe.Options, "option forwardfor")
	} else {
		fe.Options = append(fe.Options, "option tcplog")
	}

	for _, pol := range listener.L7Policies {
		if !pol.AdminStateUp {
			continue
		}
		acls, cond := compileL7Policy(pol)
		fe.ACLs = append(fe.ACLs, acls...)
		if cond == "" {
			continue
		}
		switch pol.Action {
		case models.L7PolicyActionReject:
			fe.Actions = append(fe.Actions, "http-request deny if "+cond)
		case models.L7PolicyActionRedirectToURL:
			fe.Actions = append(fe.Actions, fmt.Sprintf("redirect location %s if %s", pol.RedirectURL, cond))
		case models.L7PolicyActionRedirectToPool:
			fe.Actions = append(fe.Actions, fmt.Sprintf("use_backend %s if %s", pol.RedirectPoolID, cond))
		}
	}

	if listener.DefaultPool != nil {
		fe.DefaultBackend = listener.DefaultPool.ID
	}
	return fe, nil
}

func buildBackend(pool *models.Pool) (backendData, error) {
	mode, ok := protocolModes[pool.Protocol]
	if !ok {
		return backendData{}, fmt.Errorf("unsupported pool protocol %q", pool.Protocol)
	}
	balance, ok := algorithmDirectives[pool.LBAlgorithm]
	if !ok {
		return backendData{}, fmt.Errorf("unsupported lb algorithm %q", pool.LBAlgorithm)
	}

	be := backendData{
		ID:      pool.ID,
		Mode:    mode,
		Balance: balance,
	}
	if mode == "http" {
		be.Options = append(be.Options, "option forwardfor")
	}

	check := ""
	hm := pool.HealthMonitor
	if hm != nil && hm.AdminStateUp {
		be.Options = append(be.Options, fmt.Sprintf("timeout check %ds", hm.Timeout))
		if hm.HTTPType() {
			be.Options = append(be.Options, fmt.Sprintf("option httpchk %s %s", hm.HTTPMethod, hm.URLPath))
			expanded, err := ExpandExpectedCodes(hm.ExpectedCodes)
			if err != nil {
				return backendData{}, err
			}
			be.Options = append(be.Options, "http-check expect rstatus "+expanded)
		}
		if hm.Type == models.HealthMonitorHTTPS {
			be.Options = append(be.Options, "option ssl-hello-chk")
		}
		check = fmt.Sprintf(" check inter %ds fall %d rise %d", hm.Delay, hm.MaxRetriesDown, hm.MaxRetries)
	}

	persistCookie := false
	if sp := pool.SessionPersistence; sp != nil {
		switch sp.Type {
		case models.SessionPersistenceSourceIP:
			be.Options = append(be.Options, "stick-table type ip size 10k", "stick on src")
		case models.SessionPersistenceHTTPCookie:
			be.Options = append(be.Options, "cookie SRV insert indirect nocache")
			persistCookie = true
		case models.SessionPersistenceAppCookie:
			be.Options = append(be.Options, fmt.Sprintf("appsession %s len 56 timeout 3h", sp.CookieName))
		}
	}

	for i, m := range pool.Members {
		if !includeMember(m) {
			continue
		}
		server := fmt.Sprintf("server %s %s:%d weight %d", m.ID, formatAddress(m.Address), m.ProtocolPort, m.Weight)
		server += check
		if persistCookie {
			server += fmt.Sprintf(" cookie %d", i)
		}
		be.Servers = append(be.Servers, server)
	}
	return be, nil
}

// includeMember applies the member inclusion rule: administratively up and
// in the active-pending status set.
func includeMember(m *models.Member) bool {
	return m.AdminStateUp && models.ActivePendingStatuses[m.ProvisioningStatus]
}

func formatAddress(addr string) string {
	if strings.Contains(addr, ":") {
		return "[" + addr + "]"
	}
	return addr
}
