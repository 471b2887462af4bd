// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package models

// The status-tree types returned by GET /loadbalancers/{id}/statuses. Each
// node carries the status pair of its object plus the child nodes.

type StatusTree struct {
	LoadBalancer *LoadBalancerStatus `json:"loadbalancer"`
}

type LoadBalancerStatus struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	ProvisioningStatus string            `json:"provisioning_status"`
	OperatingStatus    string            `json:"operating_status"`
	Listeners          []*ListenerStatus `json:"listeners"`
	Pools              []*PoolStatus     `json:"pools"`
}

type ListenerStatus struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	ProvisioningStatus string            `json:"provisioning_status"`
	OperatingStatus    string            `json:"operating_status"`
	Pools              []*PoolStatus     `json:"pools"`
	L7Policies         []*L7PolicyStatus `json:"l7policies"`
}

type PoolStatus struct {
	ID                 string               `json:"id"`
	Name               string               `json:"name"`
	ProvisioningStatus string               `json:"provisioning_status"`
	OperatingStatus    string               `json:"operating_status"`
	Members            []*MemberStatus      `json:"members"`
	HealthMonitor      *HealthMonitorStatus `json:"healthmonitor,omitempty"`
}

type MemberStatus struct {
	ID                 string `json:"id"`
	Address            string `json:"address"`
	ProtocolPort       int    `json:"protocol_port"`
	ProvisioningStatus string `json:"provisioning_status"`
	OperatingStatus    string `json:"operating_status"`
}

type HealthMonitorStatus struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	ProvisioningStatus string `json:"provisioning_status"`
	OperatingStatus    string `json:"operating_status"`
}

type L7PolicyStatus struct {
	ID                 string          `json:"id"`
	Action             string          `json:"action"`
	ProvisioningStatus string          `json:"provisioning_status"`
	OperatingStatus    string          `json:"operating_status"`
	Rules              []*L7RuleStatus `json:"rules"`
}

type L7RuleStatus struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	ProvisioningStatus string `json:"provisioning_status"`
	OperatingStatus    string `json:"operating_status"`
}
