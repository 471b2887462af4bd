// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package store

import (
	"github.com/openlbaas/openlbaas/pkg/models"
)

func (s *MemoryStore) getHealthMonitorLocked(id string) (*models.HealthMonitor, error) {
	hm, ok := s.healthMonitors[id]
	if !ok {
		return nil, &NotFoundError{Kind: KindHealthMonitor, ID: id}
	}
	return hm, nil
}

// GetHealthMonitor returns a copy of the health monitor row.
func (s *MemoryStore) GetHealthMonitor(id string) (*models.HealthMonitor, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	hm, err := s.getHealthMonitorLocked(id)
	if err != nil {
		return nil, err
	}
	return hm.DeepCopy(), nil
}

// GetHealthMonitor reads a health monitor inside an open transaction.
func (tx *Txn) GetHealthMonitor(id string) (*models.HealthMonitor, error) {
	hm, err := tx.s.getHealthMonitorLocked(id)
	if err != nil {
		return nil, err
	}
	return hm.DeepCopy(), nil
}

// ListHealthMonitors returns the health monitors matching opts.
func (s *MemoryStore) ListHealthMonitors(opts ListOpts) []*models.HealthMonitor {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	objs := make([]interface{}, 0, len(s.healthMonitors))
	for _, hm := range s.healthMonitors {
		objs = append(objs, hm)
	}
	out := make([]*models.HealthMonitor, 0, len(objs))
	for _, o := range applyListOpts(objs, opts) {
		out = append(out, o.(*models.HealthMonitor).DeepCopy())
	}
	return out
}

// CreateHealthMonitor inserts a new row and records the back reference on
// the pool. A pool carries at most one monitor.
func (tx *Txn) CreateHealthMonitor(hm *models.HealthMonitor) (*models.HealthMonitor, error) {
	if hm.ID == "" {
		hm.ID = NewID()
	}
	if _, ok := tx.s.healthMonitors[hm.ID]; ok {
		return nil, &DuplicateError{Kind: KindHealthMonitor, Detail: "id " + hm.ID}
	}
	pool, err := tx.s.getPoolLocked(hm.PoolID)
	if err != nil {
		return nil, err
	}
	if pool.HealthMonitorID != "" {
		return nil, &InUseError{
			Kind:   KindPool,
			ID:     pool.ID,
			Detail: "already monitored by " + pool.HealthMonitorID,
		}
	}
	row := hm.DeepCopy()
	tx.s.healthMonitors[hm.ID] = row
	pool.HealthMonitorID = hm.ID
	return row.DeepCopy(), nil
}

// UpdateHealthMonitor replaces the stored row with hm.
func (tx *Txn) UpdateHealthMonitor(hm *models.HealthMonitor) error {
	if _, err := tx.s.getHealthMonitorLocked(hm.ID); err != nil {
		return err
	}
	tx.s.healthMonitors[hm.ID] = hm.DeepCopy()
	return nil
}

// DeleteHealthMonitor removes the row and clears the pool back reference.
func (tx *Txn) DeleteHealthMonitor(id string) error {
	hm, err := tx.s.getHealthMonitorLocked(id)
	if err != nil {
		return err
	}
	if pool, ok := tx.s.pools[hm.PoolID]; ok && pool.HealthMonitorID == id {
		pool.HealthMonitorID = ""
	}
	delete(tx.s.healthMonitors, id)
	return nil
}
