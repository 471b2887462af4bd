// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package plugin

import (
	"context"

	"github.com/openlbaas/openlbaas/pkg/driver"
	"github.com/openlbaas/openlbaas/pkg/models"
	"github.com/openlbaas/openlbaas/pkg/status"
	"github.com/openlbaas/openlbaas/pkg/store"
)

// checkRedirectPool verifies a REDIRECT_TO_POOL target shares the load
// balancer with the policy's listener.
func (p *Plugin) checkRedirectPool(listener *models.Listener, poolID string) error {
	pool, err := p.db.GetPool(poolID)
	if err != nil {
		return err
	}
	if listener.LoadBalancerID == "" {
		return nil
	}
	poolRoot, err := p.db.LoadBalancerIDForObject(store.KindPool, pool.ID)
	if err != nil {
		return err
	}
	if poolRoot != "" && poolRoot != listener.LoadBalancerID {
		return &BadValueError{Field: "redirect_pool_id", Reason: "pool belongs to a different loadbalancer"}
	}
	return nil
}

// listenerRoot resolves the driver and root for an object under a listener.
// The driver must implement L7 when the listener is attached.
func (p *Plugin) listenerRoot(listenerID string) (*driver.Driver, string, *models.LoadBalancer, error) {
	drv, rootID, err := p.driverForObject(store.KindListener, listenerID)
	if err != nil {
		return nil, "", nil, err
	}
	if rootID == "" {
		return nil, "", nil, nil
	}
	lb, err := p.db.GetLoadBalancer(rootID)
	if err != nil {
		return nil, "", nil, err
	}
	if !drv.SupportsL7() {
		return nil, "", nil, &UnsupportedError{Provider: lb.Provider, Operation: "l7 policies"}
	}
	return drv, rootID, lb, nil
}

// CreateL7Policy inserts a policy into the dense position sequence of its
// listener and dispatches the driver.
func (p *Plugin) CreateL7Policy(ctx context.Context, pol *models.L7Policy) (*models.L7Policy, error) {
	if pol.ListenerID == "" {
		return nil, &RequiredError{Field: "listener_id"}
	}
	if err := validateL7PolicyAction(pol); err != nil {
		return nil, err
	}
	if pol.Position == 0 {
		return nil, &BadValueError{Field: "position", Reason: "must be >= 1"}
	}
	listener, err := p.db.GetListener(pol.ListenerID)
	if err != nil {
		return nil, err
	}
	if pol.Action == models.L7PolicyActionRedirectToPool {
		if err := p.checkRedirectPool(listener, pol.RedirectPoolID); err != nil {
			return nil, err
		}
	}

	drv, rootID, lb, err := p.listenerRoot(pol.ListenerID)
	if err != nil {
		return nil, err
	}
	attached := rootID != ""

	pol = pol.DeepCopy()
	pol.ID = store.NewID()
	if attached {
		pol.ProvisioningStatus = models.StatusPendingCreate
		pol.OperatingStatus = models.OperatingOffline
	} else {
		pol.ProvisioningStatus = models.StatusDeferred
		pol.OperatingStatus = models.OperatingOffline
	}

	var created *models.L7Policy
	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if attached {
			if err := tx.TestAndSetStatus(store.KindLoadBalancer, rootID, models.StatusPendingUpdate); err != nil {
				return err
			}
		}
		pos, err := status.InsertL7Policy(tx, pol.ListenerID, pol.Position)
		if err != nil {
			return err
		}
		pol.Position = pos
		var txErr error
		created, txErr = tx.CreateL7Policy(pol)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	if !attached {
		return created, nil
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.L7Policy.Create(dctx, created)
	cancel()
	if err != nil {
		p.setError(store.KindL7Policy, created.ID)
		p.restoreStatus(store.KindLoadBalancer, rootID, lb.ProvisioningStatus)
		return nil, driver.WrapError(lb.Provider, "l7policy.create", err)
	}
	if !drv.L7Policy.StatusAuthoritative() {
		if err := p.activateRoot(rootID); err != nil {
			return nil, err
		}
	}
	return p.db.GetL7Policy(created.ID)
}

// GetL7Policy returns one policy row.
func (p *Plugin) GetL7Policy(ctx context.Context, id string) (*models.L7Policy, error) {
	return p.db.GetL7Policy(id)
}

// ListL7Policies returns the policies matching opts.
func (p *Plugin) ListL7Policies(ctx context.Context, opts store.ListOpts) ([]*models.L7Policy, error) {
	return p.db.ListL7Policies(opts), nil
}

// UpdateL7Policy applies a patch; position changes reorder the sequence.
func (p *Plugin) UpdateL7Policy(ctx context.Context, id string, u *models.L7PolicyUpdate) (*models.L7Policy, error) {
	old, err := p.db.GetL7Policy(id)
	if err != nil {
		return nil, err
	}
	updated := old.DeepCopy()
	if u.Name != nil {
		updated.Name = *u.Name
	}
	if u.Description != nil {
		updated.Description = *u.Description
	}
	if u.Action != nil {
		updated.Action = *u.Action
	}
	if u.RedirectPoolID != nil {
		updated.RedirectPoolID = *u.RedirectPoolID
	}
	if u.RedirectURL != nil {
		updated.RedirectURL = *u.RedirectURL
	}
	if u.AdminStateUp != nil {
		updated.AdminStateUp = *u.AdminStateUp
	}
	if err := validateL7PolicyAction(updated); err != nil {
		return nil, err
	}
	listener, err := p.db.GetListener(updated.ListenerID)
	if err != nil {
		return nil, err
	}
	if updated.Action == models.L7PolicyActionRedirectToPool {
		if err := p.checkRedirectPool(listener, updated.RedirectPoolID); err != nil {
			return nil, err
		}
	}

	drv, rootID, lb, err := p.listenerRoot(updated.ListenerID)
	if err != nil {
		return nil, err
	}
	attached := rootID != ""
	if attached {
		updated.ProvisioningStatus = models.StatusPendingUpdate
	}

	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if attached {
			if err := tx.TestAndSetStatus(store.KindLoadBalancer, rootID, models.StatusPendingUpdate); err != nil {
				return err
			}
			if err := tx.TestAndSetStatus(store.KindL7Policy, id, models.StatusPendingUpdate); err != nil {
				return err
			}
		}
		if u.Position != nil && *u.Position != old.Position {
			pos, err := status.MoveL7Policy(tx, updated, *u.Position)
			if err != nil {
				return err
			}
			updated.Position = pos
		}
		return tx.UpdateL7Policy(updated)
	})
	if err != nil {
		return nil, err
	}
	if !attached {
		return p.db.GetL7Policy(id)
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.L7Policy.Update(dctx, old, updated)
	cancel()
	if err != nil {
		p.restoreStatus(store.KindL7Policy, id, old.ProvisioningStatus)
		p.restoreStatus(store.KindLoadBalancer, rootID, lb.ProvisioningStatus)
		return nil, driver.WrapError(lb.Provider, "l7policy.update", err)
	}
	if !drv.L7Policy.StatusAuthoritative() {
		if err := p.activateRoot(rootID); err != nil {
			return nil, err
		}
	}
	return p.db.GetL7Policy(id)
}

// DeleteL7Policy removes the policy with its rules and compacts the
// position sequence.
func (p *Plugin) DeleteL7Policy(ctx context.Context, id string) error {
	old, err := p.db.GetL7Policy(id)
	if err != nil {
		return err
	}
	drv, rootID, lb, err := p.listenerRoot(old.ListenerID)
	if err != nil {
		return err
	}
	if rootID == "" {
		return p.db.WithTransaction(func(tx *store.Txn) error {
			if err := tx.DeleteL7Policy(id); err != nil {
				return err
			}
			return status.CompactL7Positions(tx, old.ListenerID)
		})
	}

	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if err := tx.TestAndSetStatus(store.KindLoadBalancer, rootID, models.StatusPendingUpdate); err != nil {
			return err
		}
		return tx.TestAndSetStatus(store.KindL7Policy, id, models.StatusPendingDelete)
	})
	if err != nil {
		return err
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.L7Policy.Delete(dctx, old)
	cancel()
	if err != nil {
		p.setError(store.KindL7Policy, id)
		p.restoreStatus(store.KindLoadBalancer, rootID, lb.ProvisioningStatus)
		return driver.WrapError(lb.Provider, "l7policy.delete", err)
	}
	if err := p.db.WithTransaction(func(tx *store.Txn) error {
		if err := tx.DeleteL7Policy(id); err != nil {
			return err
		}
		return status.CompactL7Positions(tx, old.ListenerID)
	}); err != nil {
		return err
	}
	return p.activateRoot(rootID)
}
