// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package store

import (
	"sort"

	"github.com/openlbaas/openlbaas/pkg/models"
)

// GetLoadBalancerGraph returns the load balancer with its complete subtree
// hydrated: listeners with default pools, pool members, health monitors, L7
// policies and rules. Child slices are sorted so two reads of the same state
// produce identical graphs, which the renderer relies on.
func (s *MemoryStore) GetLoadBalancerGraph(id string) (*models.LoadBalancer, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.loadBalancerGraphLocked(id)
}

// GetLoadBalancerGraph is the transactional variant.
func (tx *Txn) GetLoadBalancerGraph(id string) (*models.LoadBalancer, error) {
	return tx.s.loadBalancerGraphLocked(id)
}

func (s *MemoryStore) loadBalancerGraphLocked(id string) (*models.LoadBalancer, error) {
	row, err := s.getLoadBalancerLocked(id)
	if err != nil {
		return nil, err
	}
	lb := row.DeepCopy()

	lb.Listeners = s.listenersByLoadBalancerLocked(id)
	sort.Slice(lb.Listeners, func(i, j int) bool {
		return lb.Listeners[i].ProtocolPort < lb.Listeners[j].ProtocolPort
	})
	for _, l := range lb.Listeners {
		if l.DefaultPoolID != "" {
			if pool, err := s.getPoolLocked(l.DefaultPoolID); err == nil {
				l.DefaultPool = s.hydratePoolLocked(pool)
			}
		}
		l.L7Policies = s.l7PoliciesByListenerLocked(l.ID)
		for _, pol := range l.L7Policies {
			pol.Rules = s.l7RulesByPolicyLocked(pol.ID)
		}
	}

	lb.Pools = s.poolsByLoadBalancerLocked(id)
	sort.Slice(lb.Pools, func(i, j int) bool { return lb.Pools[i].ID < lb.Pools[j].ID })
	for i, p := range lb.Pools {
		lb.Pools[i] = s.hydratePoolLocked(p)
	}

	if stats, ok := s.stats[id]; ok {
		cpy := *stats
		lb.Stats = &cpy
	}
	return lb, nil
}

func (s *MemoryStore) hydratePoolLocked(pool *models.Pool) *models.Pool {
	p := pool.DeepCopy()
	for _, m := range s.members {
		if m.PoolID == p.ID {
			p.Members = append(p.Members, m.DeepCopy())
		}
	}
	sort.Slice(p.Members, func(i, j int) bool {
		a, b := p.Members[i], p.Members[j]
		if a.Address != b.Address {
			return a.Address < b.Address
		}
		return a.ProtocolPort < b.ProtocolPort
	})
	if p.HealthMonitorID != "" {
		if hm, err := s.getHealthMonitorLocked(p.HealthMonitorID); err == nil {
			p.HealthMonitor = hm.DeepCopy()
		}
	}
	return p
}

func (s *MemoryStore) l7RulesByPolicyLocked(policyID string) []*models.L7Rule {
	var out []*models.L7Rule
	for _, r := range s.l7Rules {
		if r.PolicyID == policyID {
			out = append(out, r.DeepCopy())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadBalancerIDForObject resolves the root load balancer of any object by
// walking the child-to-parent chain. An empty id with a nil error means the
// object is detached from any load balancer tree.
func (s *MemoryStore) LoadBalancerIDForObject(kind Kind, id string) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.loadBalancerIDLocked(kind, id)
}

func (s *MemoryStore) loadBalancerIDLocked(kind Kind, id string) (string, error) {
	switch kind {
	case KindLoadBalancer:
		if _, err := s.getLoadBalancerLocked(id); err != nil {
			return "", err
		}
		return id, nil
	case KindListener:
		l, err := s.getListenerLocked(id)
		if err != nil {
			return "", err
		}
		return l.LoadBalancerID, nil
	case KindPool:
		p, err := s.getPoolLocked(id)
		if err != nil {
			return "", err
		}
		if p.LoadBalancerID != "" {
			return p.LoadBalancerID, nil
		}
		if p.ListenerID != "" {
			return s.loadBalancerIDLocked(KindListener, p.ListenerID)
		}
		return "", nil
	case KindMember:
		m, err := s.getMemberLocked(id)
		if err != nil {
			return "", err
		}
		return s.loadBalancerIDLocked(KindPool, m.PoolID)
	case KindHealthMonitor:
		hm, err := s.getHealthMonitorLocked(id)
		if err != nil {
			return "", err
		}
		return s.loadBalancerIDLocked(KindPool, hm.PoolID)
	case KindL7Policy:
		p, err := s.getL7PolicyLocked(id)
		if err != nil {
			return "", err
		}
		return s.loadBalancerIDLocked(KindListener, p.ListenerID)
	case KindL7Rule:
		r, err := s.getL7RuleLocked(id)
		if err != nil {
			return "", err
		}
		return s.loadBalancerIDLocked(KindL7Policy, r.PolicyID)
	}
	return "", &NotFoundError{Kind: kind, ID: id}
}
