// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package models holds the LBaaS object model. The JSON field names follow
// the LBaaS v2 wire format. Entities store only the child-to-parent
// reference; the hydrated child slices are filled in by the repository when
// a full graph is requested and stay nil on flat rows.
package models

import "time"

// LoadBalancer is the root of the object graph. The VIP port handle is
// allocated through the core network interface unless the driver allocates
// VIPs itself; VIPPortOwned records which side owns the port lifecycle.
type LoadBalancer struct {
	ID           string `json:"id"`
	TenantID     string `json:"tenant_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	VIPSubnetID  string `json:"vip_subnet_id"`
	VIPNetworkID string `json:"vip_network_id,omitempty"`
	VIPAddress   string `json:"vip_address"`
	VIPPortID    string `json:"vip_port_id"`
	VIPPortOwned bool   `json:"-"`
	AdminStateUp bool   `json:"admin_state_up"`
	Provider     string `json:"provider"`
	FlavorID     string `json:"flavor_id,omitempty"`

	ProvisioningStatus string `json:"provisioning_status"`
	OperatingStatus    string `json:"operating_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Hydrated children, populated on graph reads only.
	Listeners []*Listener `json:"listeners,omitempty"`
	Pools     []*Pool     `json:"pools,omitempty"`

	Stats *LoadBalancerStats `json:"-"`
}

// LoadBalancerStats are the data-plane counters owned by a load balancer.
// Last writer wins; the agent replaces the whole row on every report.
type LoadBalancerStats struct {
	BytesIn           int64 `json:"bytes_in"`
	BytesOut          int64 `json:"bytes_out"`
	ActiveConnections int64 `json:"active_connections"`
	TotalConnections  int64 `json:"total_connections"`
}

// Valid reports whether all counters are non-negative.
func (s *LoadBalancerStats) Valid() bool {
	return s.BytesIn >= 0 && s.BytesOut >= 0 &&
		s.ActiveConnections >= 0 && s.TotalConnections >= 0
}

// DeepCopy returns a full copy of the load balancer including hydrated
// children.
func (lb *LoadBalancer) DeepCopy() *LoadBalancer {
	if lb == nil {
		return nil
	}
	cpy := *lb
	cpy.Listeners = nil
	cpy.Pools = nil
	for _, l := range lb.Listeners {
		cpy.Listeners = append(cpy.Listeners, l.DeepCopy())
	}
	for _, p := range lb.Pools {
		cpy.Pools = append(cpy.Pools, p.DeepCopy())
	}
	if lb.Stats != nil {
		stats := *lb.Stats
		cpy.Stats = &stats
	}
	return &cpy
}
