// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package corenet is the narrow interface to the core network service: VIP
// port allocation, subnet lookup and port plumbing. The memory
// implementation backs tests and single-process deployments.
package corenet

import (
	"errors"
	"fmt"
)

// Subnet is the slice of subnet state the control plane needs.
type Subnet struct {
	ID        string `json:"id"`
	NetworkID string `json:"network_id"`
	CIDR      string `json:"cidr"`
	GatewayIP string `json:"gateway_ip"`
}

// Port is an allocated network port handle.
type Port struct {
	ID        string `json:"id"`
	NetworkID string `json:"network_id"`
	SubnetID  string `json:"subnet_id"`
	IPAddress string `json:"ip_address"`
	DeviceID  string `json:"device_id"`
	Host      string `json:"host,omitempty"`
}

// ErrNoFreeAddresses is returned when a subnet is exhausted.
var ErrNoFreeAddresses = errors.New("no free addresses in subnet")

// AddressNotInSubnetError is returned when a requested VIP address does not
// fall into the chosen subnet.
type AddressNotInSubnetError struct {
	Address string
	CIDR    string
}

func (e *AddressNotInSubnetError) Error() string {
	return fmt.Sprintf("address %s not in subnet %s", e.Address, e.CIDR)
}

// Interface is the core network collaborator.
type Interface interface {
	// GetSubnet resolves a subnet id.
	GetSubnet(id string) (*Subnet, error)

	// SubnetsByNetwork lists the subnets of a network in deterministic
	// order, so VIP subnet selection by network is reproducible.
	SubnetsByNetwork(networkID string) ([]*Subnet, error)

	// AllocatePort allocates a port on the subnet. An empty requestedIP
	// picks the next free address; a concrete one must lie within the
	// subnet.
	AllocatePort(subnetID, requestedIP, deviceID string) (*Port, error)

	// ReleasePort frees a port. Deletion is vetoed while the port backs
	// a live load balancer.
	ReleasePort(portID string) error

	// GetPort resolves a port id.
	GetPort(portID string) (*Port, error)

	// PlugPort binds the port to a host; UnplugPort releases the
	// binding.
	PlugPort(portID, host string) error
	UnplugPort(portID, host string) error
}
