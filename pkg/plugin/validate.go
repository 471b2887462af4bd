// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package plugin

import (
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"

	"github.com/openlbaas/openlbaas/pkg/models"
)

var (
	listenerProtocols = map[string]bool{
		models.ProtocolTCP:             true,
		models.ProtocolHTTP:            true,
		models.ProtocolHTTPS:           true,
		models.ProtocolTerminatedHTTPS: true,
	}
	poolProtocols = map[string]bool{
		models.ProtocolTCP:   true,
		models.ProtocolHTTP:  true,
		models.ProtocolHTTPS: true,
		models.ProtocolProxy: true,
	}
	algorithms = map[string]bool{
		models.AlgorithmRoundRobin:       true,
		models.AlgorithmLeastConnections: true,
		models.AlgorithmSourceIP:         true,
	}
	persistenceTypes = map[string]bool{
		models.SessionPersistenceSourceIP:   true,
		models.SessionPersistenceHTTPCookie: true,
		models.SessionPersistenceAppCookie:  true,
	}
	monitorTypes = map[string]bool{
		models.HealthMonitorPing:  true,
		models.HealthMonitorTCP:   true,
		models.HealthMonitorHTTP:  true,
		models.HealthMonitorHTTPS: true,
	}
	l7Actions = map[string]bool{
		models.L7PolicyActionReject:         true,
		models.L7PolicyActionRedirectToURL:  true,
		models.L7PolicyActionRedirectToPool: true,
	}
	l7RuleTypes = map[string]bool{
		models.L7RuleTypeHostName: true,
		models.L7RuleTypePath:     true,
		models.L7RuleTypeFileType: true,
		models.L7RuleTypeHeader:   true,
		models.L7RuleTypeCookie:   true,
	}
	l7CompareTypes = map[string]bool{
		models.L7RuleCompareRegex:      true,
		models.L7RuleCompareStartsWith: true,
		models.L7RuleCompareEndsWith:   true,
		models.L7RuleCompareContains:   true,
		models.L7RuleCompareEqualTo:    true,
	}
)

// expectedCodesRe accepts a single code, a comma-separated list or a range.
var expectedCodesRe = regexp.MustCompile(`^\d{3}(,\s*\d{3})*$|^\d{3}-\d{3}$`)

// tokenRe is the RFC 7230 token grammar used for header and cookie keys.
var tokenRe = regexp.MustCompile(`^[!#$%&'*+\-.^_` + "`" + `|~0-9a-zA-Z]+$`)

// ctlOrSpaceRe rejects CTL characters and whitespace in rule values.
var ctlOrSpaceRe = regexp.MustCompile(`[\x00-\x20\x7f]`)

func validPort(port int) bool {
	return port >= 1 && port <= 65535
}

func validateLoadBalancerCreate(lb *models.LoadBalancer) error {
	if lb.VIPSubnetID == "" && lb.VIPNetworkID == "" {
		return &RequiredError{Field: "vip_subnet_id"}
	}
	if lb.VIPSubnetID != "" && lb.VIPNetworkID != "" {
		return &BadValueError{Field: "vip_network_id", Reason: "vip_subnet_id and vip_network_id are mutually exclusive"}
	}
	if lb.VIPAddress != "" && !govalidator.IsIP(lb.VIPAddress) {
		return &BadValueError{Field: "vip_address", Reason: "not an IP address literal"}
	}
	return nil
}

func (p *Plugin) validateListener(l *models.Listener) error {
	if l.Protocol == "" {
		return &RequiredError{Field: "protocol"}
	}
	if !listenerProtocols[l.Protocol] {
		return &BadValueError{Field: "protocol", Reason: "unsupported listener protocol " + l.Protocol}
	}
	if !validPort(l.ProtocolPort) {
		return &BadValueError{Field: "protocol_port", Reason: "must be in [1,65535]"}
	}
	if l.ConnectionLimit < -1 {
		return &BadValueError{Field: "connection_limit", Reason: "must be -1 or greater"}
	}
	if l.Protocol == models.ProtocolTerminatedHTTPS {
		if l.DefaultTLSContainerRef == "" {
			return &RequiredError{Field: "default_tls_container_ref"}
		}
		refs := append([]string{l.DefaultTLSContainerRef}, l.SNIContainerRefs...)
		for _, ref := range refs {
			if _, err := p.certs.GetCert(ref); err != nil {
				return err
			}
		}
	} else if l.DefaultTLSContainerRef != "" || len(l.SNIContainerRefs) > 0 {
		return &BadValueError{Field: "default_tls_container_ref", Reason: "TLS containers require protocol TERMINATED_HTTPS"}
	}
	return nil
}

// defaultPoolCompatible checks a default-pool association. The pool must be
// attachable to the listener's load balancer and protocol compatible.
func (p *Plugin) defaultPoolCompatible(l *models.Listener, pool *models.Pool) error {
	if !models.ProtocolsCompatible(l.Protocol, pool.Protocol) {
		return &ProtocolMismatchError{ListenerProtocol: l.Protocol, PoolProtocol: pool.Protocol}
	}
	if pool.LoadBalancerID != "" && l.LoadBalancerID != "" && pool.LoadBalancerID != l.LoadBalancerID {
		return &BadValueError{Field: "default_pool_id", Reason: "pool belongs to a different loadbalancer"}
	}
	return nil
}

func validateSessionPersistence(sp *models.SessionPersistence) error {
	if sp == nil {
		return nil
	}
	if !persistenceTypes[sp.Type] {
		return &BadValueError{Field: "session_persistence", Reason: "unsupported type " + sp.Type}
	}
	if sp.Type == models.SessionPersistenceAppCookie {
		if sp.CookieName == "" {
			return &RequiredError{Field: "session_persistence.cookie_name"}
		}
	} else if sp.CookieName != "" {
		return &BadValueError{Field: "session_persistence.cookie_name",
			Reason: "only valid for type APP_COOKIE"}
	}
	return nil
}

func validatePool(pool *models.Pool) error {
	if pool.Protocol == "" {
		return &RequiredError{Field: "protocol"}
	}
	if !poolProtocols[pool.Protocol] {
		return &BadValueError{Field: "protocol", Reason: "unsupported pool protocol " + pool.Protocol}
	}
	if pool.LBAlgorithm == "" {
		return &RequiredError{Field: "lb_algorithm"}
	}
	if !algorithms[pool.LBAlgorithm] {
		return &BadValueError{Field: "lb_algorithm", Reason: "unsupported algorithm " + pool.LBAlgorithm}
	}
	return validateSessionPersistence(pool.SessionPersistence)
}

func validateMember(m *models.Member) error {
	if m.Address == "" {
		return &RequiredError{Field: "address"}
	}
	if !govalidator.IsIP(m.Address) {
		return &BadValueError{Field: "address", Reason: "not an IP address literal"}
	}
	if !validPort(m.ProtocolPort) {
		return &BadValueError{Field: "protocol_port", Reason: "must be in [1,65535]"}
	}
	if m.Weight < 0 || m.Weight > 256 {
		return &BadValueError{Field: "weight", Reason: "must be in [0,256]"}
	}
	return nil
}

func validateHealthMonitor(hm *models.HealthMonitor) error {
	if hm.Type == "" {
		return &RequiredError{Field: "type"}
	}
	if !monitorTypes[hm.Type] {
		return &BadValueError{Field: "type", Reason: "unsupported monitor type " + hm.Type}
	}
	if hm.Delay <= 0 {
		return &BadValueError{Field: "delay", Reason: "must be positive"}
	}
	if hm.Timeout <= 0 {
		return &BadValueError{Field: "timeout", Reason: "must be positive"}
	}
	if hm.Timeout > hm.Delay {
		return &BadValueError{Field: "timeout", Reason: "must not exceed delay"}
	}
	if hm.MaxRetries < 1 || hm.MaxRetries > 10 {
		return &BadValueError{Field: "max_retries", Reason: "must be in [1,10]"}
	}
	if hm.MaxRetriesDown < 1 || hm.MaxRetriesDown > 10 {
		return &BadValueError{Field: "max_retries_down", Reason: "must be in [1,10]"}
	}
	if hm.HTTPType() {
		if !models.SupportedHTTPMethods[hm.HTTPMethod] {
			return &BadValueError{Field: "http_method", Reason: "unsupported method " + hm.HTTPMethod}
		}
		if !strings.HasPrefix(hm.URLPath, "/") {
			return &BadValueError{Field: "url_path", Reason: "must start with /"}
		}
		if !expectedCodesRe.MatchString(hm.ExpectedCodes) {
			return &BadValueError{Field: "expected_codes", Reason: "must be a code, list or range of 3-digit codes"}
		}
	} else if hm.HTTPMethod != "" || hm.URLPath != "" || hm.ExpectedCodes != "" {
		return &BadValueError{Field: "http_method", Reason: "HTTP attributes require type HTTP or HTTPS"}
	}
	return nil
}

// validateL7PolicyAction checks the action and its redirect attributes.
// Missing or malformed redirect attributes surface as conflicts.
func validateL7PolicyAction(pol *models.L7Policy) error {
	if pol.Action == "" {
		return &RequiredError{Field: "action"}
	}
	if !l7Actions[pol.Action] {
		return &BadValueError{Field: "action", Reason: "unsupported action " + pol.Action}
	}
	switch pol.Action {
	case models.L7PolicyActionRedirectToURL:
		if pol.RedirectURL == "" || !govalidator.IsURL(pol.RedirectURL) {
			return &L7PolicyAttributeError{Action: pol.Action, Field: "redirect_url"}
		}
	case models.L7PolicyActionRedirectToPool:
		if pol.RedirectPoolID == "" {
			return &L7PolicyAttributeError{Action: pol.Action, Field: "redirect_pool_id"}
		}
	}
	if pol.Position < 0 {
		return &BadValueError{Field: "position", Reason: "must be positive"}
	}
	return nil
}

func validateL7Rule(r *models.L7Rule) error {
	if !l7RuleTypes[r.Type] {
		return &BadValueError{Field: "type", Reason: "unsupported rule type " + r.Type}
	}
	if !l7CompareTypes[r.CompareType] {
		return &BadValueError{Field: "compare_type", Reason: "unsupported compare type " + r.CompareType}
	}
	if r.Type == models.L7RuleTypeFileType &&
		r.CompareType != models.L7RuleCompareRegex && r.CompareType != models.L7RuleCompareEqualTo {
		return &BadValueError{Field: "compare_type", Reason: "FILE_TYPE rules accept REGEX or EQUAL_TO only"}
	}
	if r.Type == models.L7RuleTypeHeader || r.Type == models.L7RuleTypeCookie {
		if r.Key == "" {
			return &RequiredError{Field: "key"}
		}
		if !tokenRe.MatchString(r.Key) {
			return &BadValueError{Field: "key", Reason: "not a valid token"}
		}
	}
	if r.Value == "" {
		return &RequiredError{Field: "value"}
	}
	if r.Type == models.L7RuleTypeCookie {
		if strings.ContainsAny(r.Value, ";") {
			return &BadValueError{Field: "value", Reason: "cookie values must not contain ;"}
		}
	} else if r.CompareType != models.L7RuleCompareRegex && ctlOrSpaceRe.MatchString(r.Value) {
		return &BadValueError{Field: "value", Reason: "must not contain control characters or whitespace"}
	}
	if r.CompareType == models.L7RuleCompareRegex {
		if _, err := regexp.Compile(r.Value); err != nil {
			return &BadValueError{Field: "value", Reason: "regex does not compile: " + err.Error()}
		}
	}
	return nil
}
