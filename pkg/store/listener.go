// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package store

import (
	"fmt"

	"github.com/openlbaas/openlbaas/pkg/models"
)

func (s *MemoryStore) getListenerLocked(id string) (*models.Listener, error) {
	l, ok := s.listeners[id]
	if !ok {
		return nil, &NotFoundError{Kind: KindListener, ID: id}
	}
	return l, nil
}

// GetListener returns a flat copy of the listener row.
func (s *MemoryStore) GetListener(id string) (*models.Listener, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	l, err := s.getListenerLocked(id)
	if err != nil {
		return nil, err
	}
	return l.DeepCopy(), nil
}

// GetListener reads a listener inside an open transaction.
func (tx *Txn) GetListener(id string) (*models.Listener, error) {
	l, err := tx.s.getListenerLocked(id)
	if err != nil {
		return nil, err
	}
	return l.DeepCopy(), nil
}

// ListListeners returns the listeners matching opts.
func (s *MemoryStore) ListListeners(opts ListOpts) []*models.Listener {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	objs := make([]interface{}, 0, len(s.listeners))
	for _, l := range s.listeners {
		objs = append(objs, l)
	}
	out := make([]*models.Listener, 0, len(objs))
	for _, o := range applyListOpts(objs, opts) {
		out = append(out, o.(*models.Listener).DeepCopy())
	}
	return out
}

// ListListenersByLoadBalancer returns the listeners attached to the load
// balancer, without pagination.
func (s *MemoryStore) ListListenersByLoadBalancer(lbID string) []*models.Listener {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.listenersByLoadBalancerLocked(lbID)
}

func (s *MemoryStore) listenersByLoadBalancerLocked(lbID string) []*models.Listener {
	var out []*models.Listener
	for _, l := range s.listeners {
		if l.LoadBalancerID == lbID {
			out = append(out, l.DeepCopy())
		}
	}
	return out
}

func (tx *Txn) checkListenerRefsLocked(l *models.Listener, self string) error {
	if l.LoadBalancerID != "" {
		if _, err := tx.s.getLoadBalancerLocked(l.LoadBalancerID); err != nil {
			return err
		}
		for _, other := range tx.s.listeners {
			if other.ID == self {
				continue
			}
			if other.LoadBalancerID == l.LoadBalancerID && other.ProtocolPort == l.ProtocolPort {
				return &DuplicateError{
					Kind:   KindListener,
					Detail: fmt.Sprintf("protocol port %d on loadbalancer %s", l.ProtocolPort, l.LoadBalancerID),
				}
			}
		}
	}
	if l.DefaultPoolID != "" {
		pool, err := tx.s.getPoolLocked(l.DefaultPoolID)
		if err != nil {
			return err
		}
		for _, other := range tx.s.listeners {
			if other.ID != self && other.DefaultPoolID == l.DefaultPoolID {
				return &InUseError{
					Kind:   KindPool,
					ID:     l.DefaultPoolID,
					Detail: "already default pool of listener " + other.ID,
				}
			}
		}
		if pool.LoadBalancerID != "" && l.LoadBalancerID != "" && pool.LoadBalancerID != l.LoadBalancerID {
			return &InUseError{
				Kind:   KindPool,
				ID:     pool.ID,
				Detail: "pool belongs to loadbalancer " + pool.LoadBalancerID,
			}
		}
	}
	return nil
}

// CreateListener inserts a new row after checking the unique protocol-port
// constraint and the default-pool references.
func (tx *Txn) CreateListener(l *models.Listener) (*models.Listener, error) {
	if l.ID == "" {
		l.ID = NewID()
	}
	if _, ok := tx.s.listeners[l.ID]; ok {
		return nil, &DuplicateError{Kind: KindListener, Detail: "id " + l.ID}
	}
	if err := tx.checkListenerRefsLocked(l, l.ID); err != nil {
		return nil, err
	}
	row := l.DeepCopy()
	row.DefaultPool = nil
	row.L7Policies = nil
	tx.s.listeners[l.ID] = row
	return row.DeepCopy(), nil
}

// UpdateListener replaces the stored row with l.
func (tx *Txn) UpdateListener(l *models.Listener) error {
	if _, err := tx.s.getListenerLocked(l.ID); err != nil {
		return err
	}
	if err := tx.checkListenerRefsLocked(l, l.ID); err != nil {
		return err
	}
	row := l.DeepCopy()
	row.DefaultPool = nil
	row.L7Policies = nil
	tx.s.listeners[l.ID] = row
	return nil
}

// DeleteListener removes the row. It fails with InUse while L7 policies
// still hang off the listener.
func (tx *Txn) DeleteListener(id string) error {
	if _, err := tx.s.getListenerLocked(id); err != nil {
		return err
	}
	for _, p := range tx.s.l7Policies {
		if p.ListenerID == id {
			return &InUseError{Kind: KindListener, ID: id, Detail: "l7policy " + p.ID}
		}
	}
	delete(tx.s.listeners, id)
	return nil
}

// DeleteListenerCascade removes the listener together with its L7 policies
// and their rules.
func (tx *Txn) DeleteListenerCascade(id string) error {
	if _, err := tx.s.getListenerLocked(id); err != nil {
		return err
	}
	for pid, p := range tx.s.l7Policies {
		if p.ListenerID != id {
			continue
		}
		for rid, r := range tx.s.l7Rules {
			if r.PolicyID == pid {
				delete(tx.s.l7Rules, rid)
			}
		}
		delete(tx.s.l7Policies, pid)
	}
	delete(tx.s.listeners, id)
	return nil
}
