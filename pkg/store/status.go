// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package store

import (
	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
	"github.com/openlbaas/openlbaas/pkg/models"
)

// statusFieldsLocked returns pointers to the status pair of the stored row.
func (s *MemoryStore) statusFieldsLocked(kind Kind, id string) (prov, oper *string, err error) {
	switch kind {
	case KindLoadBalancer:
		lb, e := s.getLoadBalancerLocked(id)
		if e != nil {
			return nil, nil, e
		}
		return &lb.ProvisioningStatus, &lb.OperatingStatus, nil
	case KindListener:
		l, e := s.getListenerLocked(id)
		if e != nil {
			return nil, nil, e
		}
		return &l.ProvisioningStatus, &l.OperatingStatus, nil
	case KindPool:
		p, e := s.getPoolLocked(id)
		if e != nil {
			return nil, nil, e
		}
		return &p.ProvisioningStatus, &p.OperatingStatus, nil
	case KindMember:
		m, e := s.getMemberLocked(id)
		if e != nil {
			return nil, nil, e
		}
		return &m.ProvisioningStatus, &m.OperatingStatus, nil
	case KindHealthMonitor:
		hm, e := s.getHealthMonitorLocked(id)
		if e != nil {
			return nil, nil, e
		}
		return &hm.ProvisioningStatus, &hm.OperatingStatus, nil
	case KindL7Policy:
		p, e := s.getL7PolicyLocked(id)
		if e != nil {
			return nil, nil, e
		}
		return &p.ProvisioningStatus, &p.OperatingStatus, nil
	case KindL7Rule:
		r, e := s.getL7RuleLocked(id)
		if e != nil {
			return nil, nil, e
		}
		return &r.ProvisioningStatus, &r.OperatingStatus, nil
	}
	return nil, nil, &NotFoundError{Kind: kind, ID: id}
}

// GetProvisioningStatus returns the provisioning status of any object.
func (s *MemoryStore) GetProvisioningStatus(kind Kind, id string) (string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	prov, _, err := s.statusFieldsLocked(kind, id)
	if err != nil {
		return "", err
	}
	return *prov, nil
}

func (s *MemoryStore) testAndSetStatusLocked(kind Kind, id, newStatus string) error {
	prov, _, err := s.statusFieldsLocked(kind, id)
	if err != nil {
		return err
	}
	if models.PendingStatuses[*prov] {
		return &StateError{Kind: kind, ID: id, Status: *prov}
	}
	*prov = newStatus
	return nil
}

// TestAndSetStatus atomically moves the object into newStatus. It fails with
// a StateError while the current provisioning status is any PENDING_* value.
// This is the pending gate: the single serialization mechanism for
// concurrent mutations of one object.
func (s *MemoryStore) TestAndSetStatus(kind Kind, id, newStatus string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.testAndSetStatusLocked(kind, id, newStatus)
}

// TestAndSetStatus is the transactional variant.
func (tx *Txn) TestAndSetStatus(kind Kind, id, newStatus string) error {
	return tx.s.testAndSetStatusLocked(kind, id, newStatus)
}

func (s *MemoryStore) updateStatusLocked(kind Kind, id, provisioning, operating string) error {
	prov, oper, err := s.statusFieldsLocked(kind, id)
	if err != nil {
		return err
	}
	if provisioning != "" {
		*prov = provisioning
	}
	if operating != "" {
		*oper = operating
	}
	return nil
}

// UpdateStatus unconditionally writes the status pair of any object. Empty
// values leave the corresponding status untouched. Used by driver completion
// callbacks, which are exempt from the pending gate.
func (s *MemoryStore) UpdateStatus(kind Kind, id, provisioning, operating string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if err := s.updateStatusLocked(kind, id, provisioning, operating); err != nil {
		return err
	}
	log.WithFields(map[string]interface{}{
		logfields.ObjectKind:         string(kind),
		logfields.ObjectID:           id,
		logfields.ProvisioningStatus: provisioning,
		logfields.OperatingStatus:    operating,
	}).Debug("Updated object status")
	return nil
}

// UpdateStatus is the transactional variant.
func (tx *Txn) UpdateStatus(kind Kind, id, provisioning, operating string) error {
	return tx.s.updateStatusLocked(kind, id, provisioning, operating)
}
