// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package plugin

import (
	"fmt"

	"github.com/openlbaas/openlbaas/pkg/agentrpc"
	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
	"github.com/openlbaas/openlbaas/pkg/models"
	"github.com/openlbaas/openlbaas/pkg/store"
)

// The plugin is the Backend of the agent RPC surface.

var statusKinds = map[string]store.Kind{
	"loadbalancer":  store.KindLoadBalancer,
	"listener":      store.KindListener,
	"pool":          store.KindPool,
	"member":        store.KindMember,
	"healthmonitor": store.KindHealthMonitor,
	"l7policy":      store.KindL7Policy,
	"l7rule":        store.KindL7Rule,
}

// ReportState records an agent heartbeat.
func (p *Plugin) ReportState(report *agentrpc.StateReport) (*models.Agent, error) {
	if report.Host == "" {
		return nil, &RequiredError{Field: "host"}
	}
	return p.db.UpsertAgent(&models.Agent{
		Host:          report.Host,
		DeviceDrivers: report.DeviceDrivers,
	})
}

// readyProvisioningStatuses are the states in which a bound load balancer
// should be materialized on its agent.
var readyProvisioningStatuses = map[string]bool{
	models.StatusActive:        true,
	models.StatusPendingCreate: true,
	models.StatusPendingUpdate: true,
}

// GetReadyDevices returns the load balancer ids the host should be running.
func (p *Plugin) GetReadyDevices(host string) ([]string, error) {
	agent, err := p.db.GetAgentByHost(host)
	if err != nil {
		return nil, err
	}
	if !agent.AdminStateUp {
		return nil, nil
	}
	var ready []string
	for _, id := range p.db.ListLoadBalancerIDsForAgent(agent.ID) {
		lb, err := p.db.GetLoadBalancer(id)
		if err != nil {
			continue
		}
		if lb.AdminStateUp && readyProvisioningStatuses[lb.ProvisioningStatus] {
			ready = append(ready, id)
		}
	}
	return ready, nil
}

// GetLoadBalancerGraph returns the hydrated graph for deployment.
func (p *Plugin) GetLoadBalancerGraph(lbID string) (*models.LoadBalancer, error) {
	return p.db.GetLoadBalancerGraph(lbID)
}

// LoadBalancerDeployed flips the deployed subtree to ACTIVE.
func (p *Plugin) LoadBalancerDeployed(lbID string) error {
	log.WithField(logfields.LoadBalancerID, lbID).Debug("Agent reported loadbalancer deployed")
	return p.activateRoot(lbID)
}

// LoadBalancerDestroyed removes the row of an undeployed load balancer and
// frees its VIP port.
func (p *Plugin) LoadBalancerDestroyed(lbID string) error {
	lb, err := p.db.GetLoadBalancer(lbID)
	if err != nil {
		return err
	}
	log.WithField(logfields.LoadBalancerID, lbID).Debug("Agent reported loadbalancer destroyed")
	return p.removeLoadBalancer(lb)
}

// UpdateObjectStatus applies a status feedback write from an agent.
func (p *Plugin) UpdateObjectStatus(u *agentrpc.StatusUpdate) error {
	kind, ok := statusKinds[u.ObjectKind]
	if !ok {
		return fmt.Errorf("unknown object kind %q", u.ObjectKind)
	}
	return p.db.UpdateStatus(kind, u.ObjectID, u.ProvisioningStatus, u.OperatingStatus)
}

// UpdateLoadBalancerStats replaces the stats row of a load balancer.
func (p *Plugin) UpdateLoadBalancerStats(u *agentrpc.StatsUpdate) error {
	return p.db.UpdateLoadBalancerStats(u.LoadBalancerID, &u.Stats)
}

// PlugVIPPort binds the VIP port to the agent host.
func (p *Plugin) PlugVIPPort(req *agentrpc.PortRequest) error {
	return p.net.PlugPort(req.PortID, req.Host)
}

// UnplugVIPPort releases the VIP port binding.
func (p *Plugin) UnplugVIPPort(req *agentrpc.PortRequest) error {
	return p.net.UnplugPort(req.PortID, req.Host)
}

// DrainNotifications returns and clears the queued notifications for host.
func (p *Plugin) DrainNotifications(host string) ([]*agentrpc.Notification, error) {
	return p.notifications.drain(host), nil
}

// SetAgentAdminStateUp flips the administrative flag of an agent and queues
// the agent_updated notification. Operator surface.
func (p *Plugin) SetAgentAdminStateUp(id string, up bool) error {
	if err := p.db.SetAgentAdminStateUp(id, up); err != nil {
		return err
	}
	agent, err := p.db.GetAgent(id)
	if err != nil {
		return err
	}
	p.Notify(agent.Host, &agentrpc.Notification{
		Type:         agentrpc.NotifyAgentUpdated,
		AgentUpdated: &agentrpc.AgentUpdated{AdminStateUp: up},
	})
	return nil
}
