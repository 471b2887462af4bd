// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package store

import (
	"sort"
	"time"

	"github.com/openlbaas/openlbaas/pkg/models"
)

// UpsertAgent registers or refreshes an agent keyed by host and stamps its
// LastSeen. The agent id is preserved across reports.
func (s *MemoryStore) UpsertAgent(agent *models.Agent) (*models.Agent, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, existing := range s.agents {
		if existing.Host == agent.Host {
			existing.DeviceDrivers = append([]string(nil), agent.DeviceDrivers...)
			existing.LastSeen = time.Now().UTC()
			return existing.DeepCopy(), nil
		}
	}
	cpy := agent.DeepCopy()
	if cpy.ID == "" {
		cpy.ID = NewID()
	}
	if cpy.LastSeen.IsZero() {
		cpy.LastSeen = time.Now().UTC()
	}
	cpy.AdminStateUp = true
	s.agents[cpy.ID] = cpy
	return cpy.DeepCopy(), nil
}

// GetAgent returns a copy of the agent row.
func (s *MemoryStore) GetAgent(id string) (*models.Agent, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, &NotFoundError{Kind: KindAgent, ID: id}
	}
	return a.DeepCopy(), nil
}

// GetAgentByHost returns the agent running on the given host.
func (s *MemoryStore) GetAgentByHost(host string) (*models.Agent, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for _, a := range s.agents {
		if a.Host == host {
			return a.DeepCopy(), nil
		}
	}
	return nil, &NotFoundError{Kind: KindAgent, ID: host}
}

// ListAgents returns all registered agents sorted by id.
func (s *MemoryStore) ListAgents() []*models.Agent {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	out := make([]*models.Agent, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a.DeepCopy())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetAgentAdminStateUp flips the administrative flag of an agent.
func (s *MemoryStore) SetAgentAdminStateUp(id string, up bool) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return &NotFoundError{Kind: KindAgent, ID: id}
	}
	a.AdminStateUp = up
	return nil
}

// BindAgent records the load balancer to agent binding. A load balancer is
// bound to exactly one agent.
func (s *MemoryStore) BindAgent(lbID, agentID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, err := s.getLoadBalancerLocked(lbID); err != nil {
		return err
	}
	if _, ok := s.agents[agentID]; !ok {
		return &NotFoundError{Kind: KindAgent, ID: agentID}
	}
	s.bindings[lbID] = agentID
	return nil
}

// UnbindAgent removes the binding of the load balancer, if any.
func (s *MemoryStore) UnbindAgent(lbID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.bindings, lbID)
}

// GetAgentForLoadBalancer returns the agent the load balancer is bound to.
func (s *MemoryStore) GetAgentForLoadBalancer(lbID string) (*models.Agent, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	agentID, ok := s.bindings[lbID]
	if !ok {
		return nil, &NotFoundError{Kind: KindAgent, ID: "binding " + lbID}
	}
	a, ok := s.agents[agentID]
	if !ok {
		return nil, &NotFoundError{Kind: KindAgent, ID: agentID}
	}
	return a.DeepCopy(), nil
}

// ListBindings returns all load balancer to agent bindings.
func (s *MemoryStore) ListBindings() []*models.AgentBinding {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	out := make([]*models.AgentBinding, 0, len(s.bindings))
	for lbID, agentID := range s.bindings {
		out = append(out, &models.AgentBinding{LoadBalancerID: lbID, AgentID: agentID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LoadBalancerID < out[j].LoadBalancerID })
	return out
}

// ListLoadBalancerIDsForAgent returns the ids of the load balancers bound to
// the agent, sorted.
func (s *MemoryStore) ListLoadBalancerIDsForAgent(agentID string) []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	var out []string
	for lbID, aID := range s.bindings {
		if aID == agentID {
			out = append(out, lbID)
		}
	}
	sort.Strings(out)
	return out
}
