// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package agentrpc defines the HTTP+JSON contract between agents and the
// control plane, the server mounting it and the client used by agents.
//
// Agent to plugin calls are plain request/response. Plugin to agent
// notifications (entity create/update/delete, agent_updated) are queued on
// the server and drained by the agent on every poll, which fits the
// reconciler's pull-based cycle.
package agentrpc

import (
	"github.com/openlbaas/openlbaas/pkg/models"
)

// Notification types delivered to agents.
const (
	NotifyCreate       = "create"
	NotifyUpdate       = "update"
	NotifyDelete       = "delete"
	NotifyRefresh      = "refresh"
	NotifyAgentUpdated = "agent_updated"
)

// Notification is one queued plugin-to-agent event. ObjectKind and ObjectID
// identify the entity for entity events; LoadBalancerID names the affected
// root so the agent knows which instance to refresh. AgentUpdated is set
// only for agent_updated events.
type Notification struct {
	Type           string        `json:"type"`
	ObjectKind     string        `json:"object_kind,omitempty"`
	ObjectID       string        `json:"object_id,omitempty"`
	LoadBalancerID string        `json:"loadbalancer_id,omitempty"`
	AgentUpdated   *AgentUpdated `json:"agent_updated,omitempty"`
}

// AgentUpdated carries the administrative flag change for the agent itself.
type AgentUpdated struct {
	AdminStateUp bool `json:"admin_state_up"`
}

// StateReport is the agent heartbeat payload.
type StateReport struct {
	Host          string   `json:"host"`
	DeviceDrivers []string `json:"device_drivers"`
}

// ReadyDevicesResponse lists the load balancer ids the agent should have
// deployed.
type ReadyDevicesResponse struct {
	LoadBalancerIDs []string `json:"loadbalancer_ids"`
}

// DeviceDriverResponse names the device driver serving a load balancer.
type DeviceDriverResponse struct {
	DeviceDriver string `json:"device_driver"`
}

// StatusUpdate sets one or both statuses of an object. Empty fields are
// left untouched.
type StatusUpdate struct {
	ObjectKind         string `json:"object_kind"`
	ObjectID           string `json:"object_id"`
	ProvisioningStatus string `json:"provisioning_status,omitempty"`
	OperatingStatus    string `json:"operating_status,omitempty"`
}

// StatsUpdate replaces the stats row of a load balancer.
type StatsUpdate struct {
	LoadBalancerID string                   `json:"loadbalancer_id"`
	Stats          models.LoadBalancerStats `json:"stats"`
}

// PortRequest plugs or unplugs a VIP port on a host.
type PortRequest struct {
	PortID string `json:"port_id"`
	Host   string `json:"host"`
}

// NotificationsResponse drains the agent's queue.
type NotificationsResponse struct {
	Notifications []*Notification `json:"notifications"`
}

// Backend is the plugin-side implementation of the agent-facing calls. The
// core plugin satisfies it.
type Backend interface {
	// ReportState records an agent heartbeat and returns the agent row.
	ReportState(report *StateReport) (*models.Agent, error)

	// GetReadyDevices returns the load balancer ids the named host should
	// be running. Empty when the agent is administratively down.
	GetReadyDevices(host string) ([]string, error)

	// GetLoadBalancerGraph returns the fully hydrated graph for an id.
	GetLoadBalancerGraph(lbID string) (*models.LoadBalancer, error)

	// DeviceDriverName resolves the device driver required by the
	// provider of a load balancer.
	DeviceDriverName(lbID string) (string, error)

	// LoadBalancerDeployed marks a deployed graph and its subtree active.
	LoadBalancerDeployed(lbID string) error

	// LoadBalancerDestroyed removes a destroyed load balancer and frees
	// its VIP port.
	LoadBalancerDestroyed(lbID string) error

	// UpdateObjectStatus applies a status feedback write.
	UpdateObjectStatus(u *StatusUpdate) error

	// UpdateLoadBalancerStats replaces a stats row.
	UpdateLoadBalancerStats(u *StatsUpdate) error

	// PlugVIPPort and UnplugVIPPort bind the VIP port to the agent host.
	PlugVIPPort(req *PortRequest) error
	UnplugVIPPort(req *PortRequest) error

	// DrainNotifications returns and clears the queued notifications for
	// the host.
	DrainNotifications(host string) ([]*Notification, error)
}
