// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package plugin

import (
	"context"

	"github.com/openlbaas/openlbaas/pkg/driver"
	"github.com/openlbaas/openlbaas/pkg/models"
	"github.com/openlbaas/openlbaas/pkg/store"
)

// getPolicyRule resolves a rule and checks it belongs to the policy in the
// request path.
func (p *Plugin) getPolicyRule(policyID, id string) (*models.L7Rule, error) {
	r, err := p.db.GetL7Rule(id)
	if err != nil {
		return nil, err
	}
	if r.PolicyID != policyID {
		return nil, &store.NotFoundError{Kind: store.KindL7Rule, ID: id}
	}
	return r, nil
}

// CreateL7Rule persists a rule under its policy and dispatches the driver.
func (p *Plugin) CreateL7Rule(ctx context.Context, policyID string, r *models.L7Rule) (*models.L7Rule, error) {
	if err := validateL7Rule(r); err != nil {
		return nil, err
	}
	pol, err := p.db.GetL7Policy(policyID)
	if err != nil {
		return nil, err
	}

	r = r.DeepCopy()
	r.ID = store.NewID()
	r.PolicyID = policyID

	drv, rootID, lb, err := p.listenerRoot(pol.ListenerID)
	if err != nil {
		return nil, err
	}
	attached := rootID != ""
	if attached {
		r.ProvisioningStatus = models.StatusPendingCreate
		r.OperatingStatus = models.OperatingOffline
	} else {
		r.ProvisioningStatus = models.StatusDeferred
		r.OperatingStatus = models.OperatingOffline
	}

	var created *models.L7Rule
	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if attached {
			if err := tx.TestAndSetStatus(store.KindLoadBalancer, rootID, models.StatusPendingUpdate); err != nil {
				return err
			}
		}
		var txErr error
		created, txErr = tx.CreateL7Rule(r)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	if !attached {
		return created, nil
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.L7Rule.Create(dctx, created)
	cancel()
	if err != nil {
		p.setError(store.KindL7Rule, created.ID)
		p.restoreStatus(store.KindLoadBalancer, rootID, lb.ProvisioningStatus)
		return nil, driver.WrapError(lb.Provider, "l7rule.create", err)
	}
	if !drv.L7Rule.StatusAuthoritative() {
		if err := p.activateRoot(rootID); err != nil {
			return nil, err
		}
	}
	return p.db.GetL7Rule(created.ID)
}

// GetL7Rule returns one rule of a policy.
func (p *Plugin) GetL7Rule(ctx context.Context, policyID, id string) (*models.L7Rule, error) {
	return p.getPolicyRule(policyID, id)
}

// ListL7Rules returns the rules of a policy matching opts.
func (p *Plugin) ListL7Rules(ctx context.Context, policyID string, opts store.ListOpts) ([]*models.L7Rule, error) {
	if _, err := p.db.GetL7Policy(policyID); err != nil {
		return nil, err
	}
	return p.db.ListL7RulesByPolicy(policyID, opts), nil
}

// UpdateL7Rule applies a patch to the match condition.
func (p *Plugin) UpdateL7Rule(ctx context.Context, policyID, id string, u *models.L7RuleUpdate) (*models.L7Rule, error) {
	old, err := p.getPolicyRule(policyID, id)
	if err != nil {
		return nil, err
	}
	pol, err := p.db.GetL7Policy(policyID)
	if err != nil {
		return nil, err
	}
	updated := old.DeepCopy()
	if u.Type != nil {
		updated.Type = *u.Type
	}
	if u.CompareType != nil {
		updated.CompareType = *u.CompareType
	}
	if u.Key != nil {
		updated.Key = *u.Key
	}
	if u.Value != nil {
		updated.Value = *u.Value
	}
	if u.Invert != nil {
		updated.Invert = *u.Invert
	}
	if u.AdminStateUp != nil {
		updated.AdminStateUp = *u.AdminStateUp
	}
	if err := validateL7Rule(updated); err != nil {
		return nil, err
	}

	drv, rootID, lb, err := p.listenerRoot(pol.ListenerID)
	if err != nil {
		return nil, err
	}
	if rootID == "" {
		if err := p.db.WithTransaction(func(tx *store.Txn) error {
			return tx.UpdateL7Rule(updated)
		}); err != nil {
			return nil, err
		}
		return p.db.GetL7Rule(id)
	}

	updated.ProvisioningStatus = models.StatusPendingUpdate
	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if err := tx.TestAndSetStatus(store.KindLoadBalancer, rootID, models.StatusPendingUpdate); err != nil {
			return err
		}
		if err := tx.TestAndSetStatus(store.KindL7Rule, id, models.StatusPendingUpdate); err != nil {
			return err
		}
		return tx.UpdateL7Rule(updated)
	})
	if err != nil {
		return nil, err
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.L7Rule.Update(dctx, old, updated)
	cancel()
	if err != nil {
		p.restoreStatus(store.KindL7Rule, id, old.ProvisioningStatus)
		p.restoreStatus(store.KindLoadBalancer, rootID, lb.ProvisioningStatus)
		return nil, driver.WrapError(lb.Provider, "l7rule.update", err)
	}
	if !drv.L7Rule.StatusAuthoritative() {
		if err := p.activateRoot(rootID); err != nil {
			return nil, err
		}
	}
	return p.db.GetL7Rule(id)
}

// DeleteL7Rule removes one rule.
func (p *Plugin) DeleteL7Rule(ctx context.Context, policyID, id string) error {
	old, err := p.getPolicyRule(policyID, id)
	if err != nil {
		return err
	}
	pol, err := p.db.GetL7Policy(policyID)
	if err != nil {
		return err
	}
	drv, rootID, lb, err := p.listenerRoot(pol.ListenerID)
	if err != nil {
		return err
	}
	if rootID == "" {
		return p.db.WithTransaction(func(tx *store.Txn) error {
			return tx.DeleteL7Rule(id)
		})
	}

	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if err := tx.TestAndSetStatus(store.KindLoadBalancer, rootID, models.StatusPendingUpdate); err != nil {
			return err
		}
		return tx.TestAndSetStatus(store.KindL7Rule, id, models.StatusPendingDelete)
	})
	if err != nil {
		return err
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.L7Rule.Delete(dctx, old)
	cancel()
	if err != nil {
		p.setError(store.KindL7Rule, id)
		p.restoreStatus(store.KindLoadBalancer, rootID, lb.ProvisioningStatus)
		return driver.WrapError(lb.Provider, "l7rule.delete", err)
	}
	if err := p.db.WithTransaction(func(tx *store.Txn) error {
		return tx.DeleteL7Rule(id)
	}); err != nil {
		return err
	}
	return p.activateRoot(rootID)
}
