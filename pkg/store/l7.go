// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package store

import (
	"sort"

	"github.com/openlbaas/openlbaas/pkg/models"
)

func (s *MemoryStore) getL7PolicyLocked(id string) (*models.L7Policy, error) {
	p, ok := s.l7Policies[id]
	if !ok {
		return nil, &NotFoundError{Kind: KindL7Policy, ID: id}
	}
	return p, nil
}

// GetL7Policy returns a flat copy of the policy row.
func (s *MemoryStore) GetL7Policy(id string) (*models.L7Policy, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	p, err := s.getL7PolicyLocked(id)
	if err != nil {
		return nil, err
	}
	return p.DeepCopy(), nil
}

// GetL7Policy reads a policy inside an open transaction.
func (tx *Txn) GetL7Policy(id string) (*models.L7Policy, error) {
	p, err := tx.s.getL7PolicyLocked(id)
	if err != nil {
		return nil, err
	}
	return p.DeepCopy(), nil
}

// ListL7Policies returns the policies matching opts.
func (s *MemoryStore) ListL7Policies(opts ListOpts) []*models.L7Policy {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	objs := make([]interface{}, 0, len(s.l7Policies))
	for _, p := range s.l7Policies {
		objs = append(objs, p)
	}
	out := make([]*models.L7Policy, 0, len(objs))
	for _, o := range applyListOpts(objs, opts) {
		out = append(out, o.(*models.L7Policy).DeepCopy())
	}
	return out
}

// ListL7PoliciesByListener returns the listener's policies ordered by
// position.
func (s *MemoryStore) ListL7PoliciesByListener(listenerID string) []*models.L7Policy {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.l7PoliciesByListenerLocked(listenerID)
}

// ListL7PoliciesByListener is the transactional variant.
func (tx *Txn) ListL7PoliciesByListener(listenerID string) []*models.L7Policy {
	return tx.s.l7PoliciesByListenerLocked(listenerID)
}

func (s *MemoryStore) l7PoliciesByListenerLocked(listenerID string) []*models.L7Policy {
	var out []*models.L7Policy
	for _, p := range s.l7Policies {
		if p.ListenerID == listenerID {
			out = append(out, p.DeepCopy())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// CreateL7Policy inserts a new row. Position ordering is owned by the status
// engine; the row is stored as given.
func (tx *Txn) CreateL7Policy(p *models.L7Policy) (*models.L7Policy, error) {
	if p.ID == "" {
		p.ID = NewID()
	}
	if _, ok := tx.s.l7Policies[p.ID]; ok {
		return nil, &DuplicateError{Kind: KindL7Policy, Detail: "id " + p.ID}
	}
	if _, err := tx.s.getListenerLocked(p.ListenerID); err != nil {
		return nil, err
	}
	if p.RedirectPoolID != "" {
		if _, err := tx.s.getPoolLocked(p.RedirectPoolID); err != nil {
			return nil, err
		}
	}
	row := p.DeepCopy()
	row.Rules = nil
	tx.s.l7Policies[p.ID] = row
	return row.DeepCopy(), nil
}

// UpdateL7Policy replaces the stored row with p.
func (tx *Txn) UpdateL7Policy(p *models.L7Policy) error {
	if _, err := tx.s.getL7PolicyLocked(p.ID); err != nil {
		return err
	}
	if p.RedirectPoolID != "" {
		if _, err := tx.s.getPoolLocked(p.RedirectPoolID); err != nil {
			return err
		}
	}
	row := p.DeepCopy()
	row.Rules = nil
	tx.s.l7Policies[p.ID] = row
	return nil
}

// DeleteL7Policy removes the policy and its rules.
func (tx *Txn) DeleteL7Policy(id string) error {
	if _, err := tx.s.getL7PolicyLocked(id); err != nil {
		return err
	}
	for rid, r := range tx.s.l7Rules {
		if r.PolicyID == id {
			delete(tx.s.l7Rules, rid)
		}
	}
	delete(tx.s.l7Policies, id)
	return nil
}

func (s *MemoryStore) getL7RuleLocked(id string) (*models.L7Rule, error) {
	r, ok := s.l7Rules[id]
	if !ok {
		return nil, &NotFoundError{Kind: KindL7Rule, ID: id}
	}
	return r, nil
}

// GetL7Rule returns a copy of the rule row.
func (s *MemoryStore) GetL7Rule(id string) (*models.L7Rule, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	r, err := s.getL7RuleLocked(id)
	if err != nil {
		return nil, err
	}
	return r.DeepCopy(), nil
}

// GetL7Rule reads a rule inside an open transaction.
func (tx *Txn) GetL7Rule(id string) (*models.L7Rule, error) {
	r, err := tx.s.getL7RuleLocked(id)
	if err != nil {
		return nil, err
	}
	return r.DeepCopy(), nil
}

// ListL7RulesByPolicy returns the rules of the policy matching opts.
func (s *MemoryStore) ListL7RulesByPolicy(policyID string, opts ListOpts) []*models.L7Rule {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	objs := make([]interface{}, 0, len(s.l7Rules))
	for _, r := range s.l7Rules {
		if r.PolicyID == policyID {
			objs = append(objs, r)
		}
	}
	out := make([]*models.L7Rule, 0, len(objs))
	for _, o := range applyListOpts(objs, opts) {
		out = append(out, o.(*models.L7Rule).DeepCopy())
	}
	return out
}

// CreateL7Rule inserts a new row.
func (tx *Txn) CreateL7Rule(r *models.L7Rule) (*models.L7Rule, error) {
	if r.ID == "" {
		r.ID = NewID()
	}
	if _, ok := tx.s.l7Rules[r.ID]; ok {
		return nil, &DuplicateError{Kind: KindL7Rule, Detail: "id " + r.ID}
	}
	if _, err := tx.s.getL7PolicyLocked(r.PolicyID); err != nil {
		return nil, err
	}
	row := r.DeepCopy()
	tx.s.l7Rules[r.ID] = row
	return row.DeepCopy(), nil
}

// UpdateL7Rule replaces the stored row with r.
func (tx *Txn) UpdateL7Rule(r *models.L7Rule) error {
	if _, err := tx.s.getL7RuleLocked(r.ID); err != nil {
		return err
	}
	tx.s.l7Rules[r.ID] = r.DeepCopy()
	return nil
}

// DeleteL7Rule removes the rule.
func (tx *Txn) DeleteL7Rule(id string) error {
	if _, err := tx.s.getL7RuleLocked(id); err != nil {
		return err
	}
	delete(tx.s.l7Rules, id)
	return nil
}
