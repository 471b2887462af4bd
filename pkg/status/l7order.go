// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package status

import (
	"fmt"

	"github.com/openlbaas/openlbaas/pkg/models"
	"github.com/openlbaas/openlbaas/pkg/store"
)

// InsertL7Policy places the policy at the requested position within its
// listener, shifting every policy at or beyond that position up by one. A
// requested position of zero is rejected; positions beyond the current end
// are clamped to last+1. The policy row must not be stored yet; the caller
// creates it afterwards with the returned position.
func InsertL7Policy(tx *store.Txn, listenerID string, requested int) (int, error) {
	if requested == 0 {
		return 0, fmt.Errorf("l7policy position must be >= 1")
	}
	existing := tx.ListL7PoliciesByListener(listenerID)
	if requested < 0 || requested > len(existing) {
		return len(existing) + 1, nil
	}
	for _, p := range existing {
		if p.Position >= requested {
			p.Position++
			if err := tx.UpdateL7Policy(p); err != nil {
				return 0, err
			}
		}
	}
	return requested, nil
}

// MoveL7Policy repositions an existing policy by compacting it out of its
// old slot and inserting it at the requested one.
func MoveL7Policy(tx *store.Txn, policy *models.L7Policy, requested int) (int, error) {
	if requested == 0 {
		return 0, fmt.Errorf("l7policy position must be >= 1")
	}
	existing := tx.ListL7PoliciesByListener(policy.ListenerID)
	// Compact as if the policy were removed, then insert.
	pos := 0
	var rest []*models.L7Policy
	for _, p := range existing {
		if p.ID == policy.ID {
			continue
		}
		pos++
		p.Position = pos
		rest = append(rest, p)
	}
	if requested < 0 || requested > len(rest) {
		requested = len(rest) + 1
	}
	for _, p := range rest {
		if p.Position >= requested {
			p.Position++
		}
		if err := tx.UpdateL7Policy(p); err != nil {
			return 0, err
		}
	}
	return requested, nil
}

// CompactL7Positions renumbers the listener's policies into a dense 1-based
// sequence after a delete.
func CompactL7Positions(tx *store.Txn, listenerID string) error {
	pos := 0
	for _, p := range tx.ListL7PoliciesByListener(listenerID) {
		pos++
		if p.Position == pos {
			continue
		}
		p.Position = pos
		if err := tx.UpdateL7Policy(p); err != nil {
			return err
		}
	}
	return nil
}
