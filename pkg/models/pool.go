// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package models

// SessionPersistence configures how a pool pins a client to a member.
// CookieName is required for APP_COOKIE and forbidden otherwise.
type SessionPersistence struct {
	Type       string `json:"type"`
	CookieName string `json:"cookie_name,omitempty"`
}

// Pool is an algorithm-governed group of members. A pool carries a listener
// reference, a load balancer reference, or both; when both are present they
// must name the same load balancer. A pool without either reference is
// detached and deferred.
type Pool struct {
	ID                 string              `json:"id"`
	TenantID           string              `json:"tenant_id"`
	Name               string              `json:"name"`
	Description        string              `json:"description"`
	Protocol           string              `json:"protocol"`
	LBAlgorithm        string              `json:"lb_algorithm"`
	SessionPersistence *SessionPersistence `json:"session_persistence,omitempty"`
	HealthMonitorID    string              `json:"healthmonitor_id,omitempty"`
	ListenerID         string              `json:"listener_id,omitempty"`
	LoadBalancerID     string              `json:"loadbalancer_id,omitempty"`
	AdminStateUp       bool                `json:"admin_state_up"`

	ProvisioningStatus string `json:"provisioning_status"`
	OperatingStatus    string `json:"operating_status"`

	// Hydrated on graph reads only.
	Members       []*Member      `json:"members,omitempty"`
	HealthMonitor *HealthMonitor `json:"healthmonitor,omitempty"`
}

// Attached reports whether the pool is part of a load balancer tree.
func (p *Pool) Attached() bool {
	return p.ListenerID != "" || p.LoadBalancerID != ""
}

// DeepCopy returns a full copy of the pool including hydrated children.
func (p *Pool) DeepCopy() *Pool {
	if p == nil {
		return nil
	}
	cpy := *p
	if p.SessionPersistence != nil {
		sp := *p.SessionPersistence
		cpy.SessionPersistence = &sp
	}
	cpy.Members = nil
	for _, m := range p.Members {
		cpy.Members = append(cpy.Members, m.DeepCopy())
	}
	cpy.HealthMonitor = p.HealthMonitor.DeepCopy()
	return &cpy
}

// Member is a back-end endpoint in a pool. The (PoolID, Address,
// ProtocolPort) tuple is unique.
type Member struct {
	ID           string `json:"id"`
	TenantID     string `json:"tenant_id"`
	PoolID       string `json:"pool_id"`
	Address      string `json:"address"`
	ProtocolPort int    `json:"protocol_port"`
	SubnetID     string `json:"subnet_id"`
	Weight       int    `json:"weight"`
	AdminStateUp bool   `json:"admin_state_up"`

	ProvisioningStatus string `json:"provisioning_status"`
	OperatingStatus    string `json:"operating_status"`
}

// DeepCopy returns a copy of the member.
func (m *Member) DeepCopy() *Member {
	if m == nil {
		return nil
	}
	cpy := *m
	return &cpy
}
