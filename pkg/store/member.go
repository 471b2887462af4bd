// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package store

import (
	"fmt"

	"github.com/openlbaas/openlbaas/pkg/models"
)

func (s *MemoryStore) getMemberLocked(id string) (*models.Member, error) {
	m, ok := s.members[id]
	if !ok {
		return nil, &NotFoundError{Kind: KindMember, ID: id}
	}
	return m, nil
}

// GetMember returns a copy of the member row.
func (s *MemoryStore) GetMember(id string) (*models.Member, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	m, err := s.getMemberLocked(id)
	if err != nil {
		return nil, err
	}
	return m.DeepCopy(), nil
}

// GetMember reads a member inside an open transaction.
func (tx *Txn) GetMember(id string) (*models.Member, error) {
	m, err := tx.s.getMemberLocked(id)
	if err != nil {
		return nil, err
	}
	return m.DeepCopy(), nil
}

// ListMembersByPool returns the members of the pool matching opts.
func (s *MemoryStore) ListMembersByPool(poolID string, opts ListOpts) []*models.Member {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	objs := make([]interface{}, 0, len(s.members))
	for _, m := range s.members {
		if m.PoolID == poolID {
			objs = append(objs, m)
		}
	}
	out := make([]*models.Member, 0, len(objs))
	for _, o := range applyListOpts(objs, opts) {
		out = append(out, o.(*models.Member).DeepCopy())
	}
	return out
}

func (tx *Txn) checkMemberTupleLocked(m *models.Member) error {
	for _, other := range tx.s.members {
		if other.ID == m.ID {
			continue
		}
		if other.PoolID == m.PoolID && other.Address == m.Address && other.ProtocolPort == m.ProtocolPort {
			return &DuplicateError{
				Kind:   KindMember,
				Detail: fmt.Sprintf("%s:%d in pool %s", m.Address, m.ProtocolPort, m.PoolID),
			}
		}
	}
	return nil
}

// CreateMember inserts a new row after checking the (pool, address, port)
// unique constraint.
func (tx *Txn) CreateMember(m *models.Member) (*models.Member, error) {
	if m.ID == "" {
		m.ID = NewID()
	}
	if _, ok := tx.s.members[m.ID]; ok {
		return nil, &DuplicateError{Kind: KindMember, Detail: "id " + m.ID}
	}
	if _, err := tx.s.getPoolLocked(m.PoolID); err != nil {
		return nil, err
	}
	if err := tx.checkMemberTupleLocked(m); err != nil {
		return nil, err
	}
	row := m.DeepCopy()
	tx.s.members[m.ID] = row
	return row.DeepCopy(), nil
}

// UpdateMember replaces the stored row with m.
func (tx *Txn) UpdateMember(m *models.Member) error {
	if _, err := tx.s.getMemberLocked(m.ID); err != nil {
		return err
	}
	if err := tx.checkMemberTupleLocked(m); err != nil {
		return err
	}
	tx.s.members[m.ID] = m.DeepCopy()
	return nil
}

// DeleteMember removes the row.
func (tx *Txn) DeleteMember(id string) error {
	if _, err := tx.s.getMemberLocked(id); err != nil {
		return err
	}
	delete(tx.s.members, id)
	return nil
}
