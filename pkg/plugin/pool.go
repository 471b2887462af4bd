// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package plugin

import (
	"context"

	"github.com/openlbaas/openlbaas/pkg/driver"
	"github.com/openlbaas/openlbaas/pkg/models"
	"github.com/openlbaas/openlbaas/pkg/store"
)

// CreatePool persists a pool under its listener or load balancer. A pool
// whose references do not reach an attached load balancer is created
// DEFERRED and no driver is engaged.
func (p *Plugin) CreatePool(ctx context.Context, pool *models.Pool) (*models.Pool, error) {
	if err := validatePool(pool); err != nil {
		return nil, err
	}
	if pool.ListenerID == "" && pool.LoadBalancerID == "" {
		return nil, &RequiredError{Field: "listener_id"}
	}

	pool = pool.DeepCopy()
	var listener *models.Listener
	if pool.ListenerID != "" {
		var err error
		listener, err = p.db.GetListener(pool.ListenerID)
		if err != nil {
			return nil, err
		}
		if !models.ProtocolsCompatible(listener.Protocol, pool.Protocol) {
			return nil, &ProtocolMismatchError{ListenerProtocol: listener.Protocol, PoolProtocol: pool.Protocol}
		}
		if listener.DefaultPoolID != "" {
			return nil, &store.InUseError{Kind: store.KindListener, ID: listener.ID,
				Detail: "already has default pool " + listener.DefaultPoolID}
		}
		if pool.LoadBalancerID == "" {
			pool.LoadBalancerID = listener.LoadBalancerID
		}
	}

	pool.ID = store.NewID()
	rootID := pool.LoadBalancerID
	attached := rootID != ""
	if attached {
		pool.ProvisioningStatus = models.StatusPendingCreate
		pool.OperatingStatus = models.OperatingOffline
	} else {
		pool.ProvisioningStatus = models.StatusDeferred
		pool.OperatingStatus = models.OperatingOffline
	}

	var lb *models.LoadBalancer
	var drv *driver.Driver
	if attached {
		var err error
		lb, err = p.db.GetLoadBalancer(rootID)
		if err != nil {
			return nil, err
		}
		drv, err = p.driverFor(lb.Provider)
		if err != nil {
			return nil, err
		}
	}

	var created *models.Pool
	err := p.db.WithTransaction(func(tx *store.Txn) error {
		if attached {
			if err := tx.TestAndSetStatus(store.KindLoadBalancer, rootID, models.StatusPendingUpdate); err != nil {
				return err
			}
		}
		var txErr error
		created, txErr = tx.CreatePool(pool)
		if txErr != nil {
			return txErr
		}
		if listener != nil {
			listener.DefaultPoolID = created.ID
			return tx.UpdateListener(listener)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !attached {
		return created, nil
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.Pool.Create(dctx, created)
	cancel()
	if err != nil {
		p.setError(store.KindPool, created.ID)
		p.restoreStatus(store.KindLoadBalancer, rootID, lb.ProvisioningStatus)
		return nil, driver.WrapError(lb.Provider, "pool.create", err)
	}
	if !drv.Pool.StatusAuthoritative() {
		if err := p.activateRoot(rootID); err != nil {
			return nil, err
		}
	}
	return p.db.GetPool(created.ID)
}

// GetPool returns one pool row.
func (p *Plugin) GetPool(ctx context.Context, id string) (*models.Pool, error) {
	return p.db.GetPool(id)
}

// ListPools returns the pools matching opts.
func (p *Plugin) ListPools(ctx context.Context, opts store.ListOpts) ([]*models.Pool, error) {
	return p.db.ListPools(opts), nil
}

// UpdatePool applies a patch. Deferred pools accept updates without driver
// involvement.
func (p *Plugin) UpdatePool(ctx context.Context, id string, u *models.PoolUpdate) (*models.Pool, error) {
	old, err := p.db.GetPool(id)
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
	if u.LBAlgorithm != nil {
		updated.LBAlgorithm = *u.LBAlgorithm
	}
	if u.ClearSessionPersistence {
		updated.SessionPersistence = nil
	} else if u.SessionPersistence != nil {
		sp := *u.SessionPersistence
		updated.SessionPersistence = &sp
	}
	if u.AdminStateUp != nil {
		updated.AdminStateUp = *u.AdminStateUp
	}
	if err := validatePool(updated); err != nil {
		return nil, err
	}

	drv, rootID, err := p.driverForObject(store.KindPool, id)
	if err != nil {
		return nil, err
	}
	if rootID == "" {
		if err := p.db.WithTransaction(func(tx *store.Txn) error {
			return tx.UpdatePool(updated)
		}); err != nil {
			return nil, err
		}
		return p.db.GetPool(id)
	}

	lb, err := p.db.GetLoadBalancer(rootID)
	if err != nil {
		return nil, err
	}
	updated.ProvisioningStatus = models.StatusPendingUpdate
	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if err := tx.TestAndSetStatus(store.KindLoadBalancer, rootID, models.StatusPendingUpdate); err != nil {
			return err
		}
		if err := tx.TestAndSetStatus(store.KindPool, id, models.StatusPendingUpdate); err != nil {
			return err
		}
		return tx.UpdatePool(updated)
	})
	if err != nil {
		return nil, err
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.Pool.Update(dctx, old, updated)
	cancel()
	if err != nil {
		p.restoreStatus(store.KindPool, id, old.ProvisioningStatus)
		p.restoreStatus(store.KindLoadBalancer, rootID, lb.ProvisioningStatus)
		return nil, driver.WrapError(lb.Provider, "pool.update", err)
	}
	if !drv.Pool.StatusAuthoritative() {
		if err := p.activateRoot(rootID); err != nil {
			return nil, err
		}
	}
	return p.db.GetPool(id)
}

// DeletePool removes a pool with its members and health monitor. Pools
// still targeted by an L7 policy redirect are rejected with EntityInUse.
func (p *Plugin) DeletePool(ctx context.Context, id string) error {
	old, err := p.db.GetPool(id)
	if err != nil {
		return err
	}
	for _, pol := range p.db.ListL7Policies(store.ListOpts{}) {
		if pol.RedirectPoolID == id {
			return &store.InUseError{Kind: store.KindPool, ID: id,
				Detail: "redirect target of l7policy " + pol.ID}
		}
	}

	drv, rootID, err := p.driverForObject(store.KindPool, id)
	if err != nil {
		return err
	}
	if rootID == "" {
		return p.db.WithTransaction(func(tx *store.Txn) error {
			return tx.DeletePoolCascade(id)
		})
	}

	lb, err := p.db.GetLoadBalancer(rootID)
	if err != nil {
		return err
	}
	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if err := tx.TestAndSetStatus(store.KindLoadBalancer, rootID, models.StatusPendingUpdate); err != nil {
			return err
		}
		return tx.TestAndSetStatus(store.KindPool, id, models.StatusPendingDelete)
	})
	if err != nil {
		return err
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.Pool.Delete(dctx, old)
	cancel()
	if err != nil {
		p.setError(store.KindPool, id)
		p.restoreStatus(store.KindLoadBalancer, rootID, lb.ProvisioningStatus)
		return driver.WrapError(lb.Provider, "pool.delete", err)
	}
	if err := p.db.WithTransaction(func(tx *store.Txn) error {
		return tx.DeletePoolCascade(id)
	}); err != nil {
		return err
	}
	return p.activateRoot(rootID)
}

// poolRoot resolves the driver and root for an object under a pool.
func (p *Plugin) poolRoot(poolID string) (*driver.Driver, string, *models.LoadBalancer, error) {
	drv, rootID, err := p.driverForObject(store.KindPool, poolID)
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
	return drv, rootID, lb, nil
}
