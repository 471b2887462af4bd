// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package models

import (
	"encoding/json"
)

// Update shapes for PUT requests. Nil pointers mean "leave unchanged". For
// the nullable reference attributes an explicit JSON null is significant
// (detach, clear), so those updates carry Clear* flags set by a custom
// unmarshaller.

// LoadBalancerUpdate is the PUT body for load balancers.
type LoadBalancerUpdate struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	AdminStateUp *bool   `json:"admin_state_up,omitempty"`
}

// ListenerUpdate is the PUT body for listeners. LoadBalancerID and
// DefaultPoolID may be set to null to detach.
type ListenerUpdate struct {
	Name                   *string   `json:"name,omitempty"`
	Description            *string   `json:"description,omitempty"`
	ConnectionLimit        *int      `json:"connection_limit,omitempty"`
	DefaultTLSContainerRef *string   `json:"default_tls_container_ref,omitempty"`
	SNIContainerRefs       *[]string `json:"sni_container_refs,omitempty"`
	DefaultPoolID          *string   `json:"default_pool_id,omitempty"`
	LoadBalancerID         *string   `json:"loadbalancer_id,omitempty"`
	AdminStateUp           *bool     `json:"admin_state_up,omitempty"`

	ClearDefaultPool  bool `json:"-"`
	ClearLoadBalancer bool `json:"-"`
}

// UnmarshalJSON distinguishes explicit nulls on the nullable references.
func (u *ListenerUpdate) UnmarshalJSON(data []byte) error {
	type alias ListenerUpdate
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*u = ListenerUpdate(a)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["default_pool_id"]; ok && string(v) == "null" {
		u.ClearDefaultPool = true
	}
	if v, ok := raw["loadbalancer_id"]; ok && string(v) == "null" {
		u.ClearLoadBalancer = true
	}
	return nil
}

// PoolUpdate is the PUT body for pools. SessionPersistence may be set to
// null to drop persistence.
type PoolUpdate struct {
	Name               *string             `json:"name,omitempty"`
	Description        *string             `json:"description,omitempty"`
	LBAlgorithm        *string             `json:"lb_algorithm,omitempty"`
	SessionPersistence *SessionPersistence `json:"session_persistence,omitempty"`
	AdminStateUp       *bool               `json:"admin_state_up,omitempty"`

	ClearSessionPersistence bool `json:"-"`
}

// UnmarshalJSON distinguishes an explicit null session_persistence.
func (u *PoolUpdate) UnmarshalJSON(data []byte) error {
	type alias PoolUpdate
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*u = PoolUpdate(a)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["session_persistence"]; ok && string(v) == "null" {
		u.ClearSessionPersistence = true
	}
	return nil
}

// MemberUpdate is the PUT body for members.
type MemberUpdate struct {
	Weight       *int  `json:"weight,omitempty"`
	AdminStateUp *bool `json:"admin_state_up,omitempty"`
}

// HealthMonitorUpdate is the PUT body for health monitors.
type HealthMonitorUpdate struct {
	Delay          *int    `json:"delay,omitempty"`
	Timeout        *int    `json:"timeout,omitempty"`
	MaxRetries     *int    `json:"max_retries,omitempty"`
	MaxRetriesDown *int    `json:"max_retries_down,omitempty"`
	HTTPMethod     *string `json:"http_method,omitempty"`
	URLPath        *string `json:"url_path,omitempty"`
	ExpectedCodes  *string `json:"expected_codes,omitempty"`
	AdminStateUp   *bool   `json:"admin_state_up,omitempty"`
}

// L7PolicyUpdate is the PUT body for L7 policies.
type L7PolicyUpdate struct {
	Name           *string `json:"name,omitempty"`
	Description    *string `json:"description,omitempty"`
	Action         *string `json:"action,omitempty"`
	RedirectPoolID *string `json:"redirect_pool_id,omitempty"`
	RedirectURL    *string `json:"redirect_url,omitempty"`
	Position       *int    `json:"position,omitempty"`
	AdminStateUp   *bool   `json:"admin_state_up,omitempty"`
}

// L7RuleUpdate is the PUT body for L7 rules.
type L7RuleUpdate struct {
	Type         *string `json:"type,omitempty"`
	CompareType  *string `json:"compare_type,omitempty"`
	Key          *string `json:"key,omitempty"`
	Value        *string `json:"value,omitempty"`
	Invert       *bool   `json:"invert,omitempty"`
	AdminStateUp *bool   `json:"admin_state_up,omitempty"`
}
