// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package store

import (
	"fmt"
	"time"

	"github.com/openlbaas/openlbaas/pkg/models"
)

func (s *MemoryStore) getLoadBalancerLocked(id string) (*models.LoadBalancer, error) {
	lb, ok := s.loadBalancers[id]
	if !ok {
		return nil, &NotFoundError{Kind: KindLoadBalancer, ID: id}
	}
	return lb, nil
}

// GetLoadBalancer returns a flat copy of the load balancer row.
func (s *MemoryStore) GetLoadBalancer(id string) (*models.LoadBalancer, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	lb, err := s.getLoadBalancerLocked(id)
	if err != nil {
		return nil, err
	}
	return lb.DeepCopy(), nil
}

// GetLoadBalancer reads a load balancer inside an open transaction.
func (tx *Txn) GetLoadBalancer(id string) (*models.LoadBalancer, error) {
	lb, err := tx.s.getLoadBalancerLocked(id)
	if err != nil {
		return nil, err
	}
	return lb.DeepCopy(), nil
}

// ListLoadBalancers returns the load balancers matching opts.
func (s *MemoryStore) ListLoadBalancers(opts ListOpts) []*models.LoadBalancer {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	objs := make([]interface{}, 0, len(s.loadBalancers))
	for _, lb := range s.loadBalancers {
		objs = append(objs, lb)
	}
	out := make([]*models.LoadBalancer, 0, len(objs))
	for _, o := range applyListOpts(objs, opts) {
		out = append(out, o.(*models.LoadBalancer).DeepCopy())
	}
	return out
}

// CreateLoadBalancer inserts a new row. An empty ID is assigned; the stats
// row is created zeroed by composition.
func (tx *Txn) CreateLoadBalancer(lb *models.LoadBalancer) (*models.LoadBalancer, error) {
	if lb.ID == "" {
		lb.ID = NewID()
	}
	if _, ok := tx.s.loadBalancers[lb.ID]; ok {
		return nil, &DuplicateError{Kind: KindLoadBalancer, Detail: "id " + lb.ID}
	}
	now := time.Now().UTC()
	lb.CreatedAt = now
	lb.UpdatedAt = now
	row := lb.DeepCopy()
	row.Listeners = nil
	row.Pools = nil
	tx.s.loadBalancers[lb.ID] = row
	tx.s.stats[lb.ID] = &models.LoadBalancerStats{}
	return row.DeepCopy(), nil
}

// UpdateLoadBalancer replaces the stored row with lb.
func (tx *Txn) UpdateLoadBalancer(lb *models.LoadBalancer) error {
	old, err := tx.s.getLoadBalancerLocked(lb.ID)
	if err != nil {
		return err
	}
	lb.CreatedAt = old.CreatedAt
	lb.UpdatedAt = time.Now().UTC()
	row := lb.DeepCopy()
	row.Listeners = nil
	row.Pools = nil
	tx.s.loadBalancers[lb.ID] = row
	return nil
}

// DeleteLoadBalancer removes the row. It fails with InUse while listeners or
// pools still reference the load balancer.
func (tx *Txn) DeleteLoadBalancer(id string) error {
	if _, err := tx.s.getLoadBalancerLocked(id); err != nil {
		return err
	}
	for _, l := range tx.s.listeners {
		if l.LoadBalancerID == id {
			return &InUseError{Kind: KindLoadBalancer, ID: id, Detail: "listener " + l.ID}
		}
	}
	for _, p := range tx.s.pools {
		if p.LoadBalancerID == id {
			return &InUseError{Kind: KindLoadBalancer, ID: id, Detail: "pool " + p.ID}
		}
	}
	delete(tx.s.loadBalancers, id)
	delete(tx.s.stats, id)
	delete(tx.s.bindings, id)
	return nil
}

// DeleteLoadBalancerCascade removes the load balancer and its entire
// subtree: listeners, pools, members, health monitors, policies and rules.
func (tx *Txn) DeleteLoadBalancerCascade(id string) error {
	if _, err := tx.s.getLoadBalancerLocked(id); err != nil {
		return err
	}
	for lid, l := range tx.s.listeners {
		if l.LoadBalancerID != id {
			continue
		}
		if err := tx.DeleteListenerCascade(lid); err != nil {
			return err
		}
	}
	for pid, p := range tx.s.pools {
		if p.LoadBalancerID != id {
			continue
		}
		if err := tx.DeletePoolCascade(pid); err != nil {
			return err
		}
	}
	delete(tx.s.loadBalancers, id)
	delete(tx.s.stats, id)
	delete(tx.s.bindings, id)
	return nil
}

// PreventDeleteOfExternalPort vetoes the deletion of any port that is still
// the VIP port of a live load balancer. Consulted by the core network
// collaborator before it releases a port.
func (s *MemoryStore) PreventDeleteOfExternalPort(portID string) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	for _, lb := range s.loadBalancers {
		if lb.VIPPortID == portID {
			return &InUseError{Kind: KindLoadBalancer, ID: lb.ID, Detail: "vip port " + portID}
		}
	}
	return nil
}

// GetLoadBalancerStats returns the counter row of the load balancer.
func (s *MemoryStore) GetLoadBalancerStats(id string) (*models.LoadBalancerStats, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if _, err := s.getLoadBalancerLocked(id); err != nil {
		return nil, err
	}
	stats, ok := s.stats[id]
	if !ok {
		return &models.LoadBalancerStats{}, nil
	}
	cpy := *stats
	return &cpy, nil
}

// UpdateLoadBalancerStats replaces the counter row. Counters must be
// non-negative.
func (s *MemoryStore) UpdateLoadBalancerStats(id string, stats *models.LoadBalancerStats) error {
	if !stats.Valid() {
		return fmt.Errorf("stats counters for %s must be non-negative", id)
	}
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if _, err := s.getLoadBalancerLocked(id); err != nil {
		return err
	}
	cpy := *stats
	s.stats[id] = &cpy
	return nil
}
