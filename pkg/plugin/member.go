// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package plugin

import (
	"context"

	"github.com/openlbaas/openlbaas/pkg/driver"
	"github.com/openlbaas/openlbaas/pkg/models"
	"github.com/openlbaas/openlbaas/pkg/store"
)

// CreateMember persists a member under its pool. Members of detached pools
// are created DEFERRED.
func (p *Plugin) CreateMember(ctx context.Context, poolID string, m *models.Member) (*models.Member, error) {
	if err := validateMember(m); err != nil {
		return nil, err
	}
	if _, err := p.db.GetPool(poolID); err != nil {
		return nil, err
	}
	if m.SubnetID != "" {
		if _, err := p.net.GetSubnet(m.SubnetID); err != nil {
			return nil, &BadValueError{Field: "subnet_id", Reason: err.Error()}
		}
	}

	m = m.DeepCopy()
	m.ID = store.NewID()
	m.PoolID = poolID

	drv, rootID, lb, err := p.poolRoot(poolID)
	if err != nil {
		return nil, err
	}
	attached := rootID != ""
	if attached {
		m.ProvisioningStatus = models.StatusPendingCreate
		m.OperatingStatus = models.OperatingOffline
	} else {
		m.ProvisioningStatus = models.StatusDeferred
		m.OperatingStatus = models.OperatingOffline
	}

	var created *models.Member
	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if attached {
			if err := tx.TestAndSetStatus(store.KindLoadBalancer, rootID, models.StatusPendingUpdate); err != nil {
				return err
			}
		}
		var txErr error
		created, txErr = tx.CreateMember(m)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	if !attached {
		return created, nil
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.Member.Create(dctx, created)
	cancel()
	if err != nil {
		p.setError(store.KindMember, created.ID)
		p.restoreStatus(store.KindLoadBalancer, rootID, lb.ProvisioningStatus)
		return nil, driver.WrapError(lb.Provider, "member.create", err)
	}
	if !drv.Member.StatusAuthoritative() {
		if err := p.activateRoot(rootID); err != nil {
			return nil, err
		}
	}
	return p.db.GetMember(created.ID)
}

// getPoolMember resolves a member and checks it belongs to the pool in the
// request path.
func (p *Plugin) getPoolMember(poolID, id string) (*models.Member, error) {
	m, err := p.db.GetMember(id)
	if err != nil {
		return nil, err
	}
	if m.PoolID != poolID {
		return nil, &store.NotFoundError{Kind: store.KindMember, ID: id}
	}
	return m, nil
}

// GetMember returns one member of a pool.
func (p *Plugin) GetMember(ctx context.Context, poolID, id string) (*models.Member, error) {
	return p.getPoolMember(poolID, id)
}

// ListMembers returns the members of a pool matching opts.
func (p *Plugin) ListMembers(ctx context.Context, poolID string, opts store.ListOpts) ([]*models.Member, error) {
	if _, err := p.db.GetPool(poolID); err != nil {
		return nil, err
	}
	return p.db.ListMembersByPool(poolID, opts), nil
}

// UpdateMember applies a patch to weight or administrative state.
func (p *Plugin) UpdateMember(ctx context.Context, poolID, id string, u *models.MemberUpdate) (*models.Member, error) {
	old, err := p.getPoolMember(poolID, id)
	if err != nil {
		return nil, err
	}
	updated := old.DeepCopy()
	if u.Weight != nil {
		updated.Weight = *u.Weight
	}
	if u.AdminStateUp != nil {
		updated.AdminStateUp = *u.AdminStateUp
	}
	if err := validateMember(updated); err != nil {
		return nil, err
	}

	drv, rootID, lb, err := p.poolRoot(poolID)
	if err != nil {
		return nil, err
	}
	if rootID == "" {
		if err := p.db.WithTransaction(func(tx *store.Txn) error {
			return tx.UpdateMember(updated)
		}); err != nil {
			return nil, err
		}
		return p.db.GetMember(id)
	}

	updated.ProvisioningStatus = models.StatusPendingUpdate
	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if err := tx.TestAndSetStatus(store.KindLoadBalancer, rootID, models.StatusPendingUpdate); err != nil {
			return err
		}
		if err := tx.TestAndSetStatus(store.KindMember, id, models.StatusPendingUpdate); err != nil {
			return err
		}
		return tx.UpdateMember(updated)
	})
	if err != nil {
		return nil, err
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.Member.Update(dctx, old, updated)
	cancel()
	if err != nil {
		p.restoreStatus(store.KindMember, id, old.ProvisioningStatus)
		p.restoreStatus(store.KindLoadBalancer, rootID, lb.ProvisioningStatus)
		return nil, driver.WrapError(lb.Provider, "member.update", err)
	}
	if !drv.Member.StatusAuthoritative() {
		if err := p.activateRoot(rootID); err != nil {
			return nil, err
		}
	}
	return p.db.GetMember(id)
}

// DeleteMember removes one member.
func (p *Plugin) DeleteMember(ctx context.Context, poolID, id string) error {
	old, err := p.getPoolMember(poolID, id)
	if err != nil {
		return err
	}
	drv, rootID, lb, err := p.poolRoot(poolID)
	if err != nil {
		return err
	}
	if rootID == "" {
		return p.db.WithTransaction(func(tx *store.Txn) error {
			return tx.DeleteMember(id)
		})
	}

	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if err := tx.TestAndSetStatus(store.KindLoadBalancer, rootID, models.StatusPendingUpdate); err != nil {
			return err
		}
		return tx.TestAndSetStatus(store.KindMember, id, models.StatusPendingDelete)
	})
	if err != nil {
		return err
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.Member.Delete(dctx, old)
	cancel()
	if err != nil {
		p.setError(store.KindMember, id)
		p.restoreStatus(store.KindLoadBalancer, rootID, lb.ProvisioningStatus)
		return driver.WrapError(lb.Provider, "member.delete", err)
	}
	if err := p.db.WithTransaction(func(tx *store.Txn) error {
		return tx.DeleteMember(id)
	}); err != nil {
		return err
	}
	return p.activateRoot(rootID)
}
