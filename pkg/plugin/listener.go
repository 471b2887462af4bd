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

// CreateListener persists a listener under its load balancer and dispatches
// the driver.
func (p *Plugin) CreateListener(ctx context.Context, l *models.Listener) (*models.Listener, error) {
	if l.LoadBalancerID == "" {
		return nil, &RequiredError{Field: "loadbalancer_id"}
	}
	if err := p.validateListener(l); err != nil {
		return nil, err
	}
	lb, err := p.db.GetLoadBalancer(l.LoadBalancerID)
	if err != nil {
		return nil, err
	}
	if l.DefaultPoolID != "" {
		pool, err := p.db.GetPool(l.DefaultPoolID)
		if err != nil {
			return nil, err
		}
		if err := p.defaultPoolCompatible(l, pool); err != nil {
			return nil, err
		}
	}
	drv, err := p.driverFor(lb.Provider)
	if err != nil {
		return nil, err
	}

	l = l.DeepCopy()
	l.ID = store.NewID()
	l.ProvisioningStatus = models.StatusPendingCreate
	l.OperatingStatus = models.OperatingOffline

	var created *models.Listener
	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if err := tx.TestAndSetStatus(store.KindLoadBalancer, lb.ID, models.StatusPendingUpdate); err != nil {
			return err
		}
		var txErr error
		created, txErr = tx.CreateListener(l)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.Listener.Create(dctx, created)
	cancel()
	if err != nil {
		p.setError(store.KindListener, created.ID)
		p.restoreStatus(store.KindLoadBalancer, lb.ID, lb.ProvisioningStatus)
		return nil, driver.WrapError(lb.Provider, "listener.create", err)
	}
	if !drv.Listener.StatusAuthoritative() {
		if err := p.activateRoot(lb.ID); err != nil {
			return nil, err
		}
	}
	return p.db.GetListener(created.ID)
}

// GetListener returns one listener row.
func (p *Plugin) GetListener(ctx context.Context, id string) (*models.Listener, error) {
	return p.db.GetListener(id)
}

// ListListeners returns the listeners matching opts.
func (p *Plugin) ListListeners(ctx context.Context, opts store.ListOpts) ([]*models.Listener, error) {
	return p.db.ListListeners(opts), nil
}

func applyListenerUpdate(l *models.Listener, u *models.ListenerUpdate) {
	if u.Name != nil {
		l.Name = *u.Name
	}
	if u.Description != nil {
		l.Description = *u.Description
	}
	if u.ConnectionLimit != nil {
		l.ConnectionLimit = *u.ConnectionLimit
	}
	if u.DefaultTLSContainerRef != nil {
		l.DefaultTLSContainerRef = *u.DefaultTLSContainerRef
	}
	if u.SNIContainerRefs != nil {
		l.SNIContainerRefs = append([]string(nil), (*u.SNIContainerRefs)...)
	}
	if u.AdminStateUp != nil {
		l.AdminStateUp = *u.AdminStateUp
	}
	if u.ClearDefaultPool {
		l.DefaultPoolID = ""
	} else if u.DefaultPoolID != nil {
		l.DefaultPoolID = *u.DefaultPoolID
	}
	if u.ClearLoadBalancer {
		l.LoadBalancerID = ""
	} else if u.LoadBalancerID != nil && *u.LoadBalancerID != "" {
		l.LoadBalancerID = *u.LoadBalancerID
	}
}

// UpdateListener applies a patch. Clearing the load balancer reference
// defers the listener's subtree; setting it on a deferred listener
// re-engages the driver.
func (p *Plugin) UpdateListener(ctx context.Context, id string, u *models.ListenerUpdate) (*models.Listener, error) {
	old, err := p.db.GetListener(id)
	if err != nil {
		return nil, err
	}
	updated := old.DeepCopy()
	applyListenerUpdate(updated, u)
	if err := p.validateListener(updated); err != nil {
		return nil, err
	}
	if updated.DefaultPoolID != "" && updated.DefaultPoolID != old.DefaultPoolID {
		pool, err := p.db.GetPool(updated.DefaultPoolID)
		if err != nil {
			return nil, err
		}
		if err := p.defaultPoolCompatible(updated, pool); err != nil {
			return nil, err
		}
	}

	switch {
	case old.Attached() && !updated.Attached():
		return p.detachListener(ctx, old, updated)
	case !old.Attached() && updated.Attached():
		return p.attachListener(ctx, old, updated)
	case old.Attached():
		return p.updateAttachedListener(ctx, old, updated)
	default:
		// Deferred listeners accept updates without driver involvement.
		if err := p.db.WithTransaction(func(tx *store.Txn) error {
			return tx.UpdateListener(updated)
		}); err != nil {
			return nil, err
		}
		return p.db.GetListener(id)
	}
}

func (p *Plugin) updateAttachedListener(ctx context.Context, old, updated *models.Listener) (*models.Listener, error) {
	lb, err := p.db.GetLoadBalancer(old.LoadBalancerID)
	if err != nil {
		return nil, err
	}
	drv, err := p.driverFor(lb.Provider)
	if err != nil {
		return nil, err
	}

	updated.ProvisioningStatus = models.StatusPendingUpdate
	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if err := tx.TestAndSetStatus(store.KindLoadBalancer, lb.ID, models.StatusPendingUpdate); err != nil {
			return err
		}
		if err := tx.TestAndSetStatus(store.KindListener, old.ID, models.StatusPendingUpdate); err != nil {
			return err
		}
		return tx.UpdateListener(updated)
	})
	if err != nil {
		return nil, err
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.Listener.Update(dctx, old, updated)
	cancel()
	if err != nil {
		p.restoreStatus(store.KindListener, old.ID, old.ProvisioningStatus)
		p.restoreStatus(store.KindLoadBalancer, lb.ID, lb.ProvisioningStatus)
		return nil, driver.WrapError(lb.Provider, "listener.update", err)
	}
	if !drv.Listener.StatusAuthoritative() {
		if err := p.activateRoot(lb.ID); err != nil {
			return nil, err
		}
	}
	return p.db.GetListener(old.ID)
}

// detachListener removes the listener from its backend and defers the
// subtree.
func (p *Plugin) detachListener(ctx context.Context, old, updated *models.Listener) (*models.Listener, error) {
	lb, err := p.db.GetLoadBalancer(old.LoadBalancerID)
	if err != nil {
		return nil, err
	}
	drv, err := p.driverFor(lb.Provider)
	if err != nil {
		return nil, err
	}

	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if err := tx.TestAndSetStatus(store.KindLoadBalancer, lb.ID, models.StatusPendingUpdate); err != nil {
			return err
		}
		if err := tx.TestAndSetStatus(store.KindListener, old.ID, models.StatusPendingUpdate); err != nil {
			return err
		}
		if err := tx.UpdateListener(updated); err != nil {
			return err
		}
		return status.CascadeDefer(tx, store.KindListener, old.ID)
	})
	if err != nil {
		return nil, err
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.Listener.Delete(dctx, old)
	cancel()
	if err != nil {
		p.setError(store.KindListener, old.ID)
		p.restoreStatus(store.KindLoadBalancer, lb.ID, lb.ProvisioningStatus)
		return nil, driver.WrapError(lb.Provider, "listener.delete", err)
	}
	if err := p.activateRoot(lb.ID); err != nil {
		return nil, err
	}
	return p.db.GetListener(old.ID)
}

// attachListener joins a deferred listener to a load balancer. The whole
// subtree is marked pending and re-created on the backend.
func (p *Plugin) attachListener(ctx context.Context, old, updated *models.Listener) (*models.Listener, error) {
	lb, err := p.db.GetLoadBalancer(updated.LoadBalancerID)
	if err != nil {
		return nil, err
	}
	drv, err := p.driverFor(lb.Provider)
	if err != nil {
		return nil, err
	}

	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if err := tx.TestAndSetStatus(store.KindLoadBalancer, lb.ID, models.StatusPendingUpdate); err != nil {
			return err
		}
		if err := tx.UpdateListener(updated); err != nil {
			return err
		}
		return status.MarkPendingUpdate(tx, store.KindListener, old.ID)
	})
	if err != nil {
		return nil, err
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.Listener.Create(dctx, updated)
	cancel()
	if err != nil {
		p.setError(store.KindListener, old.ID)
		p.restoreStatus(store.KindLoadBalancer, lb.ID, lb.ProvisioningStatus)
		return nil, driver.WrapError(lb.Provider, "listener.create", err)
	}
	if !drv.Listener.StatusAuthoritative() {
		if err := p.activateRoot(lb.ID); err != nil {
			return nil, err
		}
	}
	return p.db.GetListener(old.ID)
}

// DeleteListener removes a listener and its L7 policies. Pools that
// referenced the listener stay behind; a pool left without any reference is
// deferred.
func (p *Plugin) DeleteListener(ctx context.Context, id string) error {
	old, err := p.db.GetListener(id)
	if err != nil {
		return err
	}

	if !old.Attached() {
		return p.db.WithTransaction(func(tx *store.Txn) error {
			return p.removeListenerTx(tx, id)
		})
	}

	lb, err := p.db.GetLoadBalancer(old.LoadBalancerID)
	if err != nil {
		return err
	}
	drv, err := p.driverFor(lb.Provider)
	if err != nil {
		return err
	}
	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if err := tx.TestAndSetStatus(store.KindLoadBalancer, lb.ID, models.StatusPendingUpdate); err != nil {
			return err
		}
		return tx.TestAndSetStatus(store.KindListener, id, models.StatusPendingDelete)
	})
	if err != nil {
		return err
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.Listener.Delete(dctx, old)
	cancel()
	if err != nil {
		p.setError(store.KindListener, id)
		p.restoreStatus(store.KindLoadBalancer, lb.ID, lb.ProvisioningStatus)
		return driver.WrapError(lb.Provider, "listener.delete", err)
	}
	if err := p.db.WithTransaction(func(tx *store.Txn) error {
		return p.removeListenerTx(tx, id)
	}); err != nil {
		return err
	}
	return p.activateRoot(lb.ID)
}

// removeListenerTx drops the listener row, detaching its pools first.
func (p *Plugin) removeListenerTx(tx *store.Txn, id string) error {
	for _, pool := range tx.ListPoolsByListener(id) {
		pool.ListenerID = ""
		if err := tx.UpdatePool(pool); err != nil {
			return err
		}
		if !pool.Attached() {
			if err := status.CascadeDefer(tx, store.KindPool, pool.ID); err != nil {
				return err
			}
		}
	}
	return tx.DeleteListenerCascade(id)
}
