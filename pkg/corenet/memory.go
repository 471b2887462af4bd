// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package corenet

import (
	"fmt"
	"net"
	"sort"

	"github.com/google/uuid"

	"github.com/openlbaas/openlbaas/pkg/lock"
)

// DeleteGuard vetoes the release of a port; wired to the repository's
// PreventDeleteOfExternalPort.
type DeleteGuard func(portID string) error

// Memory is the in-memory core network implementation.
type Memory struct {
	mutex   lock.RWMutex
	subnets map[string]*Subnet
	ports   map[string]*Port
	guard   DeleteGuard
}

// NewMemory returns an empty core network.
func NewMemory() *Memory {
	return &Memory{
		subnets: map[string]*Subnet{},
		ports:   map[string]*Port{},
	}
}

// SetDeleteGuard installs the port deletion veto.
func (m *Memory) SetDeleteGuard(g DeleteGuard) {
	m.mutex.Lock()
	m.guard = g
	m.mutex.Unlock()
}

// AddSubnet registers a subnet. The id is generated when empty.
func (m *Memory) AddSubnet(s *Subnet) (*Subnet, error) {
	if _, _, err := net.ParseCIDR(s.CIDR); err != nil {
		return nil, fmt.Errorf("bad subnet CIDR %q: %w", s.CIDR, err)
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	cpy := *s
	if cpy.ID == "" {
		cpy.ID = uuid.New().String()
	}
	m.subnets[cpy.ID] = &cpy
	out := cpy
	return &out, nil
}

func (m *Memory) GetSubnet(id string) (*Subnet, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	s, ok := m.subnets[id]
	if !ok {
		return nil, fmt.Errorf("subnet %s could not be found", id)
	}
	cpy := *s
	return &cpy, nil
}

func (m *Memory) SubnetsByNetwork(networkID string) ([]*Subnet, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	var out []*Subnet
	for _, s := range m.subnets {
		if s.NetworkID == networkID {
			cpy := *s
			out = append(out, &cpy)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("network %s has no subnets", networkID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) AllocatePort(subnetID, requestedIP, deviceID string) (*Port, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	subnet, ok := m.subnets[subnetID]
	if !ok {
		return nil, fmt.Errorf("subnet %s could not be found", subnetID)
	}
	_, ipnet, err := net.ParseCIDR(subnet.CIDR)
	if err != nil {
		return nil, err
	}

	used := map[string]bool{subnet.GatewayIP: true}
	for _, p := range m.ports {
		if p.SubnetID == subnetID {
			used[p.IPAddress] = true
		}
	}

	addr := requestedIP
	if addr != "" {
		ip := net.ParseIP(addr)
		if ip == nil || !ipnet.Contains(ip) {
			return nil, &AddressNotInSubnetError{Address: addr, CIDR: subnet.CIDR}
		}
		if used[addr] {
			return nil, fmt.Errorf("address %s already allocated", addr)
		}
	} else {
		addr, err = m.nextFreeLocked(ipnet, used)
		if err != nil {
			return nil, err
		}
	}

	port := &Port{
		ID:        uuid.New().String(),
		NetworkID: subnet.NetworkID,
		SubnetID:  subnetID,
		IPAddress: addr,
		DeviceID:  deviceID,
	}
	m.ports[port.ID] = port
	cpy := *port
	return &cpy, nil
}

// nextFreeLocked walks the subnet skipping the network, gateway and
// broadcast addresses.
func (m *Memory) nextFreeLocked(ipnet *net.IPNet, used map[string]bool) (string, error) {
	ip := append(net.IP(nil), ipnet.IP...)
	// Skip the network address.
	incIP(ip)
	for ; ipnet.Contains(ip); incIP(ip) {
		candidate := ip.String()
		if used[candidate] {
			continue
		}
		next := append(net.IP(nil), ip...)
		incIP(next)
		if !ipnet.Contains(next) {
			// Broadcast address.
			break
		}
		return candidate, nil
	}
	return "", ErrNoFreeAddresses
}

func incIP(ip net.IP) {
	for i := len(ip) - 1; i >= 0; i-- {
		ip[i]++
		if ip[i] != 0 {
			return
		}
	}
}

func (m *Memory) ReleasePort(portID string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.ports[portID]; !ok {
		return fmt.Errorf("port %s could not be found", portID)
	}
	if m.guard != nil {
		if err := m.guard(portID); err != nil {
			return err
		}
	}
	delete(m.ports, portID)
	return nil
}

func (m *Memory) GetPort(portID string) (*Port, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	p, ok := m.ports[portID]
	if !ok {
		return nil, fmt.Errorf("port %s could not be found", portID)
	}
	cpy := *p
	return &cpy, nil
}

func (m *Memory) PlugPort(portID, host string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	p, ok := m.ports[portID]
	if !ok {
		return fmt.Errorf("port %s could not be found", portID)
	}
	p.Host = host
	return nil
}

func (m *Memory) UnplugPort(portID, host string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	p, ok := m.ports[portID]
	if !ok {
		return fmt.Errorf("port %s could not be found", portID)
	}
	if p.Host == host {
		p.Host = ""
	}
	return nil
}
