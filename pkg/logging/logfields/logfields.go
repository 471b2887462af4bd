// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package logfields defines the field keys used for structured logging so
// that log output stays greppable across subsystems.
package logfields

const (
	// LogSubsys is the field denoting the subsystem a log entry belongs to.
	LogSubsys = "subsys"

	// LoadBalancerID is the UUID of a load balancer.
	LoadBalancerID = "loadBalancerID"

	// ListenerID is the UUID of a listener.
	ListenerID = "listenerID"

	// PoolID is the UUID of a pool.
	PoolID = "poolID"

	// MemberID is the UUID of a member.
	MemberID = "memberID"

	// HealthMonitorID is the UUID of a health monitor.
	HealthMonitorID = "healthMonitorID"

	// L7PolicyID is the UUID of an L7 policy.
	L7PolicyID = "l7PolicyID"

	// L7RuleID is the UUID of an L7 rule.
	L7RuleID = "l7RuleID"

	// ObjectKind is the entity kind of the object a log entry refers to.
	ObjectKind = "kind"

	// ObjectID is the UUID of the object a log entry refers to.
	ObjectID = "objectID"

	// Provider is the provider name bound to a load balancer.
	Provider = "provider"

	// DriverName is the name of a backend or device driver.
	DriverName = "driver"

	// AgentID is the UUID of an agent.
	AgentID = "agentID"

	// AgentHost is the host an agent runs on.
	AgentHost = "agentHost"

	// ProvisioningStatus is a provisioning status value.
	ProvisioningStatus = "provisioningStatus"

	// OperatingStatus is an operating status value.
	OperatingStatus = "operatingStatus"

	// TenantID is the tenant owning an object.
	TenantID = "tenantID"

	// Controller is the name of a periodic controller.
	Controller = "controller"

	// UUID is a generic UUID field.
	UUID = "uuid"

	// Path is a filesystem or URL path.
	Path = "path"

	// Port is a TCP/UDP port number.
	Port = "port"

	// VIPAddress is the virtual IP of a load balancer.
	VIPAddress = "vipAddress"

	// Error is an error value attached to a log entry.
	Error = "error"
)
