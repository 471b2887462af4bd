// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package models

// Listener is a (protocol, port) front-end under a load balancer. The
// (LoadBalancerID, ProtocolPort) pair is unique. TERMINATED_HTTPS listeners
// must carry a default TLS container reference.
type Listener struct {
	ID                     string   `json:"id"`
	TenantID               string   `json:"tenant_id"`
	Name                   string   `json:"name"`
	Description            string   `json:"description"`
	LoadBalancerID         string   `json:"loadbalancer_id"`
	Protocol               string   `json:"protocol"`
	ProtocolPort           int      `json:"protocol_port"`
	ConnectionLimit        int      `json:"connection_limit"`
	DefaultTLSContainerRef string   `json:"default_tls_container_ref,omitempty"`
	SNIContainerRefs       []string `json:"sni_container_refs,omitempty"`
	DefaultPoolID          string   `json:"default_pool_id,omitempty"`
	AdminStateUp           bool     `json:"admin_state_up"`

	ProvisioningStatus string `json:"provisioning_status"`
	OperatingStatus    string `json:"operating_status"`

	// Hydrated on graph reads only.
	DefaultPool *Pool       `json:"default_pool,omitempty"`
	L7Policies  []*L7Policy `json:"l7policies,omitempty"`
}

// Attached reports whether the listener is part of a load balancer tree.
func (l *Listener) Attached() bool {
	return l.LoadBalancerID != ""
}

// DeepCopy returns a full copy of the listener including hydrated children.
func (l *Listener) DeepCopy() *Listener {
	if l == nil {
		return nil
	}
	cpy := *l
	cpy.SNIContainerRefs = append([]string(nil), l.SNIContainerRefs...)
	cpy.DefaultPool = l.DefaultPool.DeepCopy()
	cpy.L7Policies = nil
	for _, p := range l.L7Policies {
		cpy.L7Policies = append(cpy.L7Policies, p.DeepCopy())
	}
	return &cpy
}
