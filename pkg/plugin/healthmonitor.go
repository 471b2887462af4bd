// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package plugin

import (
	"context"

	"github.com/openlbaas/openlbaas/pkg/driver"
	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
	"github.com/openlbaas/openlbaas/pkg/models"
	"github.com/openlbaas/openlbaas/pkg/store"
)

// clampMonitorThresholds forces max_retries_down back to its default when
// the provider does not honor it.
func clampMonitorThresholds(drv *driver.Driver, hm *models.HealthMonitor) {
	if drv == nil || drv.LoadBalancer.AllowsHealthMonitorThresholds() {
		return
	}
	if hm.MaxRetriesDown != models.DefaultMaxRetriesDown {
		log.WithField(logfields.HealthMonitorID, hm.ID).
			Warn("Provider ignores max_retries_down, forcing default")
		hm.MaxRetriesDown = models.DefaultMaxRetriesDown
	}
}

// CreateHealthMonitor persists the monitor of a pool. A pool may carry at
// most one monitor; monitors on detached pools are created DEFERRED.
func (p *Plugin) CreateHealthMonitor(ctx context.Context, hm *models.HealthMonitor) (*models.HealthMonitor, error) {
	if hm.PoolID == "" {
		return nil, &RequiredError{Field: "pool_id"}
	}
	if err := validateHealthMonitor(hm); err != nil {
		return nil, err
	}
	if _, err := p.db.GetPool(hm.PoolID); err != nil {
		return nil, err
	}

	hm = hm.DeepCopy()
	hm.ID = store.NewID()

	drv, rootID, lb, err := p.poolRoot(hm.PoolID)
	if err != nil {
		return nil, err
	}
	clampMonitorThresholds(drv, hm)
	attached := rootID != ""
	if attached {
		hm.ProvisioningStatus = models.StatusPendingCreate
		hm.OperatingStatus = models.OperatingOffline
	} else {
		hm.ProvisioningStatus = models.StatusDeferred
		hm.OperatingStatus = models.OperatingOffline
	}

	var created *models.HealthMonitor
	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if attached {
			if err := tx.TestAndSetStatus(store.KindLoadBalancer, rootID, models.StatusPendingUpdate); err != nil {
				return err
			}
		}
		var txErr error
		created, txErr = tx.CreateHealthMonitor(hm)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	if !attached {
		return created, nil
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.HealthMonitor.Create(dctx, created)
	cancel()
	if err != nil {
		p.setError(store.KindHealthMonitor, created.ID)
		p.restoreStatus(store.KindLoadBalancer, rootID, lb.ProvisioningStatus)
		return nil, driver.WrapError(lb.Provider, "healthmonitor.create", err)
	}
	if !drv.HealthMonitor.StatusAuthoritative() {
		if err := p.activateRoot(rootID); err != nil {
			return nil, err
		}
	}
	return p.db.GetHealthMonitor(created.ID)
}

// GetHealthMonitor returns one monitor row.
func (p *Plugin) GetHealthMonitor(ctx context.Context, id string) (*models.HealthMonitor, error) {
	return p.db.GetHealthMonitor(id)
}

// ListHealthMonitors returns the monitors matching opts.
func (p *Plugin) ListHealthMonitors(ctx context.Context, opts store.ListOpts) ([]*models.HealthMonitor, error) {
	return p.db.ListHealthMonitors(opts), nil
}

// UpdateHealthMonitor applies a patch to probe parameters.
func (p *Plugin) UpdateHealthMonitor(ctx context.Context, id string, u *models.HealthMonitorUpdate) (*models.HealthMonitor, error) {
	old, err := p.db.GetHealthMonitor(id)
	if err != nil {
		return nil, err
	}
	updated := old.DeepCopy()
	if u.Delay != nil {
		updated.Delay = *u.Delay
	}
	if u.Timeout != nil {
		updated.Timeout = *u.Timeout
	}
	if u.MaxRetries != nil {
		updated.MaxRetries = *u.MaxRetries
	}
	if u.MaxRetriesDown != nil {
		updated.MaxRetriesDown = *u.MaxRetriesDown
	}
	if u.HTTPMethod != nil {
		updated.HTTPMethod = *u.HTTPMethod
	}
	if u.URLPath != nil {
		updated.URLPath = *u.URLPath
	}
	if u.ExpectedCodes != nil {
		updated.ExpectedCodes = *u.ExpectedCodes
	}
	if u.AdminStateUp != nil {
		updated.AdminStateUp = *u.AdminStateUp
	}
	if err := validateHealthMonitor(updated); err != nil {
		return nil, err
	}

	drv, rootID, lb, err := p.poolRoot(old.PoolID)
	if err != nil {
		return nil, err
	}
	clampMonitorThresholds(drv, updated)
	if rootID == "" {
		if err := p.db.WithTransaction(func(tx *store.Txn) error {
			return tx.UpdateHealthMonitor(updated)
		}); err != nil {
			return nil, err
		}
		return p.db.GetHealthMonitor(id)
	}

	updated.ProvisioningStatus = models.StatusPendingUpdate
	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if err := tx.TestAndSetStatus(store.KindLoadBalancer, rootID, models.StatusPendingUpdate); err != nil {
			return err
		}
		if err := tx.TestAndSetStatus(store.KindHealthMonitor, id, models.StatusPendingUpdate); err != nil {
			return err
		}
		return tx.UpdateHealthMonitor(updated)
	})
	if err != nil {
		return nil, err
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.HealthMonitor.Update(dctx, old, updated)
	cancel()
	if err != nil {
		p.restoreStatus(store.KindHealthMonitor, id, old.ProvisioningStatus)
		p.restoreStatus(store.KindLoadBalancer, rootID, lb.ProvisioningStatus)
		return nil, driver.WrapError(lb.Provider, "healthmonitor.update", err)
	}
	if !drv.HealthMonitor.StatusAuthoritative() {
		if err := p.activateRoot(rootID); err != nil {
			return nil, err
		}
	}
	return p.db.GetHealthMonitor(id)
}

// DeleteHealthMonitor removes the monitor and clears the pool back
// reference.
func (p *Plugin) DeleteHealthMonitor(ctx context.Context, id string) error {
	old, err := p.db.GetHealthMonitor(id)
	if err != nil {
		return err
	}
	drv, rootID, lb, err := p.poolRoot(old.PoolID)
	if err != nil {
		return err
	}
	if rootID == "" {
		return p.db.WithTransaction(func(tx *store.Txn) error {
			return tx.DeleteHealthMonitor(id)
		})
	}

	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if err := tx.TestAndSetStatus(store.KindLoadBalancer, rootID, models.StatusPendingUpdate); err != nil {
			return err
		}
		return tx.TestAndSetStatus(store.KindHealthMonitor, id, models.StatusPendingDelete)
	})
	if err != nil {
		return err
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.HealthMonitor.Delete(dctx, old)
	cancel()
	if err != nil {
		p.setError(store.KindHealthMonitor, id)
		p.restoreStatus(store.KindLoadBalancer, rootID, lb.ProvisioningStatus)
		return driver.WrapError(lb.Provider, "healthmonitor.delete", err)
	}
	if err := p.db.WithTransaction(func(tx *store.Txn) error {
		return tx.DeleteHealthMonitor(id)
	}); err != nil {
		return err
	}
	return p.activateRoot(rootID)
}
