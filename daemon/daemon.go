// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/openlbaas/openlbaas/pkg/agentrpc"
	"github.com/openlbaas/openlbaas/pkg/api"
	"github.com/openlbaas/openlbaas/pkg/certmgr"
	"github.com/openlbaas/openlbaas/pkg/controller"
	"github.com/openlbaas/openlbaas/pkg/corenet"
	"github.com/openlbaas/openlbaas/pkg/driver"
	"github.com/openlbaas/openlbaas/pkg/driver/agentns"
	"github.com/openlbaas/openlbaas/pkg/metrics"
	"github.com/openlbaas/openlbaas/pkg/option"
	"github.com/openlbaas/openlbaas/pkg/plugin"
	"github.com/openlbaas/openlbaas/pkg/proxy"
	"github.com/openlbaas/openlbaas/pkg/scheduler"
	"github.com/openlbaas/openlbaas/pkg/store"
)

// pluginHandle defers the plugin reference so collaborators constructed
// before the plugin can still call into it. The driver registry has to be
// built first, but its drivers only use the handle at request time.
type pluginHandle struct {
	p *plugin.Plugin
}

func (h *pluginHandle) Notify(host string, n *agentrpc.Notification) {
	h.p.Notify(host, n)
}

func (h *pluginHandle) LoadBalancerDestroyed(lbID string) error {
	return h.p.LoadBalancerDestroyed(lbID)
}

func (h *pluginHandle) DeviceDriverName(lbID string) (string, error) {
	return h.p.DeviceDriverName(lbID)
}

func runDaemon(cfg *option.DaemonConfig) error {
	db := store.NewMemory()

	net := corenet.NewMemory()
	net.SetDeleteGuard(db.PreventDeleteOfExternalPort)
	if err := seedSubnets(net, cfg.Subnets); err != nil {
		return err
	}

	certs := certmgr.NewMemory()

	handle := &pluginHandle{}
	sched := scheduler.New(db, scheduler.NewChancePolicy(), cfg.HeartbeatWindow, handle.DeviceDriverName)

	agentns.Register(agentns.Config{
		Scheduler: sched,
		Notifier:  handle,
		Stats:     db,
		Roots:     db,
		Lifecycle: handle,
	})

	registry, err := driver.NewRegistry(cfg.ServiceProviders)
	if err != nil {
		return fmt.Errorf("building provider registry: %w", err)
	}
	if err := registry.CheckProviderNames(boundProviders(db)); err != nil {
		// Exiting keeps the operator in the loop instead of silently
		// orphaning persisted load balancers.
		return err
	}

	core := plugin.New(db, registry, net, certs)
	handle.p = core

	mgr := controller.NewManager()
	defer mgr.RemoveAllAndWait()
	mgr.UpdateController("agent-reschedule-sweep", controller.ControllerParams{
		RunInterval: cfg.PeriodicInterval,
		DoFunc: func(ctx context.Context) error {
			n, err := sched.RescheduleOrphaned(ctx)
			if n > 0 {
				metrics.AgentReschedules.Add(float64(n))
			}
			return err
		},
	})

	// In proxy mode the REST surface forwards to the remote service
	// instead of the local core.
	var svc plugin.Service = core
	if cfg.BaseURL != "" {
		log.WithField("url", cfg.BaseURL).Info("Running in proxy mode")
		svc = proxy.New(cfg.BaseURL)
	}

	mux := http.NewServeMux()
	mux.Handle("/lbaas/", api.NewServer(svc))
	mux.Handle("/agent/", agentrpc.NewServer(core))
	mux.Handle("/metrics", metrics.Handler())

	log.WithField("address", cfg.ListenAddress).Info("Serving REST and agent RPC")
	return http.ListenAndServe(cfg.ListenAddress, mux)
}

// seedSubnets loads the configured core network subnets,
// <id>:<cidr>[:network_id].
func seedSubnets(net *corenet.Memory, decls []string) error {
	for _, decl := range decls {
		parts := strings.Split(strings.TrimSpace(decl), ":")
		if len(parts) < 2 {
			return fmt.Errorf("malformed subnet declaration %q", decl)
		}
		s := &corenet.Subnet{ID: parts[0]}
		rest := parts[1:]
		// IPv6 CIDRs contain colons, so the optional network id is the
		// last segment only when it carries no prefix length.
		if len(rest) > 1 && !strings.Contains(rest[len(rest)-1], "/") {
			s.NetworkID = rest[len(rest)-1]
			rest = rest[:len(rest)-1]
		}
		s.CIDR = strings.Join(rest, ":")
		if _, err := net.AddSubnet(s); err != nil {
			return err
		}
	}
	return nil
}

func boundProviders(db *store.MemoryStore) []string {
	var names []string
	for _, lb := range db.ListLoadBalancers(store.ListOpts{}) {
		names = append(names, lb.Provider)
	}
	return names
}
