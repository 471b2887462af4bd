// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package models

import "time"

// Agent describes a remote agent process hosting device drivers. Liveness is
// derived from LastSeen against the configured heartbeat window.
type Agent struct {
	ID            string    `json:"id"`
	Host          string    `json:"host"`
	AdminStateUp  bool      `json:"admin_state_up"`
	DeviceDrivers []string  `json:"device_drivers"`
	LastSeen      time.Time `json:"last_seen"`
}

// HasDeviceDriver reports whether the agent advertises the named driver.
func (a *Agent) HasDeviceDriver(name string) bool {
	for _, d := range a.DeviceDrivers {
		if d == name {
			return true
		}
	}
	return false
}

// DeepCopy returns a copy of the agent.
func (a *Agent) DeepCopy() *Agent {
	if a == nil {
		return nil
	}
	cpy := *a
	cpy.DeviceDrivers = append([]string(nil), a.DeviceDrivers...)
	return &cpy
}

// AgentBinding ties a load balancer to the single agent realizing it.
type AgentBinding struct {
	LoadBalancerID string `json:"loadbalancer_id"`
	AgentID        string `json:"agent_id"`
}
