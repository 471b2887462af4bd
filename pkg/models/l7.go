// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package models

// L7Policy is an HTTP-layer conditional action on a listener. Positions
// within one listener form a dense 1-based sequence.
type L7Policy struct {
	ID             string `json:"id"`
	TenantID       string `json:"tenant_id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	ListenerID     string `json:"listener_id"`
	Action         string `json:"action"`
	RedirectPoolID string `json:"redirect_pool_id,omitempty"`
	RedirectURL    string `json:"redirect_url,omitempty"`
	Position       int    `json:"position"`
	AdminStateUp   bool   `json:"admin_state_up"`

	ProvisioningStatus string `json:"provisioning_status"`
	OperatingStatus    string `json:"operating_status"`

	// Hydrated on graph reads only.
	Rules []*L7Rule `json:"rules,omitempty"`
}

// DeepCopy returns a full copy of the policy including hydrated rules.
func (p *L7Policy) DeepCopy() *L7Policy {
	if p == nil {
		return nil
	}
	cpy := *p
	cpy.Rules = nil
	for _, r := range p.Rules {
		cpy.Rules = append(cpy.Rules, r.DeepCopy())
	}
	return &cpy
}

// L7Rule is a single match condition under an L7 policy. Key is required for
// HEADER and COOKIE rules.
type L7Rule struct {
	ID           string `json:"id"`
	TenantID     string `json:"tenant_id"`
	PolicyID     string `json:"l7policy_id"`
	Type         string `json:"type"`
	CompareType  string `json:"compare_type"`
	Key          string `json:"key,omitempty"`
	Value        string `json:"value"`
	Invert       bool   `json:"invert"`
	AdminStateUp bool   `json:"admin_state_up"`

	ProvisioningStatus string `json:"provisioning_status"`
	OperatingStatus    string `json:"operating_status"`
}

// DeepCopy returns a copy of the rule.
func (r *L7Rule) DeepCopy() *L7Rule {
	if r == nil {
		return nil
	}
	cpy := *r
	return &cpy
}
