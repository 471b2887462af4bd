// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package store

import (
	"fmt"

	"github.com/openlbaas/openlbaas/pkg/models"
)

func (s *MemoryStore) getPoolLocked(id string) (*models.Pool, error) {
	p, ok := s.pools[id]
	if !ok {
		return nil, &NotFoundError{Kind: KindPool, ID: id}
	}
	return p, nil
}

// GetPool returns a flat copy of the pool row.
func (s *MemoryStore) GetPool(id string) (*models.Pool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	p, err := s.getPoolLocked(id)
	if err != nil {
		return nil, err
	}
	return p.DeepCopy(), nil
}

// GetPool reads a pool inside an open transaction.
func (tx *Txn) GetPool(id string) (*models.Pool, error) {
	p, err := tx.s.getPoolLocked(id)
	if err != nil {
		return nil, err
	}
	return p.DeepCopy(), nil
}

// ListPools returns the pools matching opts.
func (s *MemoryStore) ListPools(opts ListOpts) []*models.Pool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	objs := make([]interface{}, 0, len(s.pools))
	for _, p := range s.pools {
		objs = append(objs, p)
	}
	out := make([]*models.Pool, 0, len(objs))
	for _, o := range applyListOpts(objs, opts) {
		out = append(out, o.(*models.Pool).DeepCopy())
	}
	return out
}

// ListPoolsByLoadBalancer returns every pool under the load balancer,
// whether referenced directly or through one of its listeners.
func (s *MemoryStore) ListPoolsByLoadBalancer(lbID string) []*models.Pool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.poolsByLoadBalancerLocked(lbID)
}

func (s *MemoryStore) poolsByLoadBalancerLocked(lbID string) []*models.Pool {
	listenerLB := map[string]string{}
	for _, l := range s.listeners {
		listenerLB[l.ID] = l.LoadBalancerID
	}
	var out []*models.Pool
	for _, p := range s.pools {
		if p.LoadBalancerID == lbID || (p.ListenerID != "" && listenerLB[p.ListenerID] == lbID) {
			out = append(out, p.DeepCopy())
		}
	}
	return out
}

func (tx *Txn) checkPoolRefsLocked(p *models.Pool) error {
	if p.ListenerID != "" {
		l, err := tx.s.getListenerLocked(p.ListenerID)
		if err != nil {
			return err
		}
		if p.LoadBalancerID != "" && l.LoadBalancerID != "" && p.LoadBalancerID != l.LoadBalancerID {
			return fmt.Errorf("pool %s references listener %s of a different loadbalancer", p.ID, p.ListenerID)
		}
	}
	if p.LoadBalancerID != "" {
		if _, err := tx.s.getLoadBalancerLocked(p.LoadBalancerID); err != nil {
			return err
		}
	}
	return nil
}

// CreatePool inserts a new row.
func (tx *Txn) CreatePool(p *models.Pool) (*models.Pool, error) {
	if p.ID == "" {
		p.ID = NewID()
	}
	if _, ok := tx.s.pools[p.ID]; ok {
		return nil, &DuplicateError{Kind: KindPool, Detail: "id " + p.ID}
	}
	if err := tx.checkPoolRefsLocked(p); err != nil {
		return nil, err
	}
	row := p.DeepCopy()
	row.Members = nil
	row.HealthMonitor = nil
	tx.s.pools[p.ID] = row
	return row.DeepCopy(), nil
}

// UpdatePool replaces the stored row with p.
func (tx *Txn) UpdatePool(p *models.Pool) error {
	if _, err := tx.s.getPoolLocked(p.ID); err != nil {
		return err
	}
	if err := tx.checkPoolRefsLocked(p); err != nil {
		return err
	}
	row := p.DeepCopy()
	row.Members = nil
	row.HealthMonitor = nil
	tx.s.pools[p.ID] = row
	return nil
}

// DeletePool removes the row. It fails with InUse while members, a health
// monitor, a listener default-pool reference or an L7 policy redirect still
// point at the pool.
func (tx *Txn) DeletePool(id string) error {
	if _, err := tx.s.getPoolLocked(id); err != nil {
		return err
	}
	for _, m := range tx.s.members {
		if m.PoolID == id {
			return &InUseError{Kind: KindPool, ID: id, Detail: "member " + m.ID}
		}
	}
	for _, hm := range tx.s.healthMonitors {
		if hm.PoolID == id {
			return &InUseError{Kind: KindPool, ID: id, Detail: "healthmonitor " + hm.ID}
		}
	}
	for _, l := range tx.s.listeners {
		if l.DefaultPoolID == id {
			return &InUseError{Kind: KindPool, ID: id, Detail: "default pool of listener " + l.ID}
		}
	}
	for _, pol := range tx.s.l7Policies {
		if pol.RedirectPoolID == id {
			return &InUseError{Kind: KindPool, ID: id, Detail: "redirect target of l7policy " + pol.ID}
		}
	}
	delete(tx.s.pools, id)
	return nil
}

// DeletePoolCascade removes the pool together with its members and health
// monitor and clears any listener default-pool references.
func (tx *Txn) DeletePoolCascade(id string) error {
	if _, err := tx.s.getPoolLocked(id); err != nil {
		return err
	}
	for mid, m := range tx.s.members {
		if m.PoolID == id {
			delete(tx.s.members, mid)
		}
	}
	for hid, hm := range tx.s.healthMonitors {
		if hm.PoolID == id {
			delete(tx.s.healthMonitors, hid)
		}
	}
	for _, l := range tx.s.listeners {
		if l.DefaultPoolID == id {
			l.DefaultPoolID = ""
		}
	}
	delete(tx.s.pools, id)
	return nil
}
