// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package plugin

import (
	"context"
	"errors"

	"github.com/openlbaas/openlbaas/pkg/corenet"
	"github.com/openlbaas/openlbaas/pkg/driver"
	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
	"github.com/openlbaas/openlbaas/pkg/models"
	"github.com/openlbaas/openlbaas/pkg/status"
	"github.com/openlbaas/openlbaas/pkg/store"
)

// CreateLoadBalancer validates the request, allocates the VIP port unless
// the driver does, persists the row in PENDING_CREATE and dispatches the
// driver.
func (p *Plugin) CreateLoadBalancer(ctx context.Context, lb *models.LoadBalancer) (*models.LoadBalancer, error) {
	if err := validateLoadBalancerCreate(lb); err != nil {
		return nil, err
	}
	prov, err := p.providerFor(lb.Provider)
	if err != nil {
		return nil, err
	}
	drv := prov.Driver

	lb = lb.DeepCopy()
	lb.ID = store.NewID()
	lb.Provider = prov.Name
	lb.ProvisioningStatus = models.StatusPendingCreate
	lb.OperatingStatus = models.OperatingOffline

	if err := p.resolveVIPSubnet(lb); err != nil {
		return nil, err
	}
	if !drv.LoadBalancer.AllocatesVIP() {
		port, err := p.net.AllocatePort(lb.VIPSubnetID, lb.VIPAddress, lb.ID)
		if err != nil {
			var notIn *corenet.AddressNotInSubnetError
			if errors.As(err, &notIn) {
				return nil, &BadValueError{Field: "vip_address", Reason: err.Error()}
			}
			return nil, err
		}
		lb.VIPAddress = port.IPAddress
		lb.VIPPortID = port.ID
		lb.VIPPortOwned = true
	}

	var created *models.LoadBalancer
	err = p.db.WithTransaction(func(tx *store.Txn) error {
		var txErr error
		created, txErr = tx.CreateLoadBalancer(lb)
		return txErr
	})
	if err != nil {
		p.releaseVIPPort(lb)
		return nil, err
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.LoadBalancer.Create(dctx, created)
	cancel()
	if err != nil {
		// Create roll-back: drop the row, free the port.
		if delErr := p.db.WithTransaction(func(tx *store.Txn) error {
			return tx.DeleteLoadBalancerCascade(created.ID)
		}); delErr != nil {
			log.WithError(delErr).WithField(logfields.LoadBalancerID, created.ID).
				Warn("Roll-back of failed loadbalancer create left the row behind")
		}
		p.releaseVIPPort(created)
		return nil, driver.WrapError(prov.Name, "loadbalancer.create", err)
	}

	if drv.LoadBalancer.AllocatesVIP() {
		// The driver filled in the port handle on the row it was given.
		if err := p.db.WithTransaction(func(tx *store.Txn) error {
			return tx.UpdateLoadBalancer(created)
		}); err != nil {
			return nil, err
		}
	}
	if !drv.LoadBalancer.StatusAuthoritative() {
		if err := p.activateRoot(created.ID); err != nil {
			return nil, err
		}
	}
	return p.db.GetLoadBalancer(created.ID)
}

// resolveVIPSubnet fills VIPSubnetID. When only a network is given the
// lexically first subnet of the network is chosen, which keeps the pick
// deterministic.
func (p *Plugin) resolveVIPSubnet(lb *models.LoadBalancer) error {
	if lb.VIPSubnetID != "" {
		if _, err := p.net.GetSubnet(lb.VIPSubnetID); err != nil {
			return &BadValueError{Field: "vip_subnet_id", Reason: err.Error()}
		}
		return nil
	}
	subnets, err := p.net.SubnetsByNetwork(lb.VIPNetworkID)
	if err != nil {
		return &BadValueError{Field: "vip_network_id", Reason: err.Error()}
	}
	lb.VIPSubnetID = subnets[0].ID
	return nil
}

// GetLoadBalancer returns the hydrated graph of one load balancer.
func (p *Plugin) GetLoadBalancer(ctx context.Context, id string) (*models.LoadBalancer, error) {
	return p.db.GetLoadBalancerGraph(id)
}

// ListLoadBalancers returns flat rows matching opts.
func (p *Plugin) ListLoadBalancers(ctx context.Context, opts store.ListOpts) ([]*models.LoadBalancer, error) {
	return p.db.ListLoadBalancers(opts), nil
}

// UpdateLoadBalancer applies a patch and re-engages the driver.
func (p *Plugin) UpdateLoadBalancer(ctx context.Context, id string, u *models.LoadBalancerUpdate) (*models.LoadBalancer, error) {
	old, err := p.db.GetLoadBalancer(id)
	if err != nil {
		return nil, err
	}
	drv, err := p.driverFor(old.Provider)
	if err != nil {
		return nil, err
	}
	if err := p.db.TestAndSetStatus(store.KindLoadBalancer, id, models.StatusPendingUpdate); err != nil {
		return nil, err
	}

	updated := old.DeepCopy()
	if u.Name != nil {
		updated.Name = *u.Name
	}
	if u.Description != nil {
		updated.Description = *u.Description
	}
	if u.AdminStateUp != nil {
		updated.AdminStateUp = *u.AdminStateUp
	}
	updated.ProvisioningStatus = models.StatusPendingUpdate
	if err := p.db.WithTransaction(func(tx *store.Txn) error {
		return tx.UpdateLoadBalancer(updated)
	}); err != nil {
		p.restoreStatus(store.KindLoadBalancer, id, old.ProvisioningStatus)
		return nil, err
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.LoadBalancer.Update(dctx, old, updated)
	cancel()
	if err != nil {
		// Update roll-back: put back the pre-mutation status.
		p.restoreStatus(store.KindLoadBalancer, id, old.ProvisioningStatus)
		return nil, driver.WrapError(old.Provider, "loadbalancer.update", err)
	}
	if !drv.LoadBalancer.StatusAuthoritative() {
		if err := p.activateRoot(id); err != nil {
			return nil, err
		}
	}
	return p.db.GetLoadBalancer(id)
}

// DeleteLoadBalancer removes an empty load balancer. Load balancers still
// carrying listeners or pools are rejected with EntityInUse.
func (p *Plugin) DeleteLoadBalancer(ctx context.Context, id string) error {
	lb, err := p.db.GetLoadBalancer(id)
	if err != nil {
		return err
	}
	if ls := p.db.ListListenersByLoadBalancer(id); len(ls) > 0 {
		return &store.InUseError{Kind: store.KindLoadBalancer, ID: id, Detail: "listener " + ls[0].ID}
	}
	if ps := p.db.ListPoolsByLoadBalancer(id); len(ps) > 0 {
		return &store.InUseError{Kind: store.KindLoadBalancer, ID: id, Detail: "pool " + ps[0].ID}
	}
	drv, err := p.driverFor(lb.Provider)
	if err != nil {
		return err
	}
	if err := p.db.TestAndSetStatus(store.KindLoadBalancer, id, models.StatusPendingDelete); err != nil {
		return err
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.LoadBalancer.Delete(dctx, lb)
	cancel()
	if err != nil {
		// Delete roll-back: the row stays, flagged ERROR.
		p.setError(store.KindLoadBalancer, id)
		return driver.WrapError(lb.Provider, "loadbalancer.delete", err)
	}
	if drv.LoadBalancer.StatusAuthoritative() {
		// Row removal happens on the loadbalancer_destroyed callback.
		return nil
	}
	return p.removeLoadBalancer(lb)
}

// removeLoadBalancer drops the row and frees the VIP port when the plugin
// allocated it.
func (p *Plugin) removeLoadBalancer(lb *models.LoadBalancer) error {
	if err := p.db.WithTransaction(func(tx *store.Txn) error {
		return tx.DeleteLoadBalancerCascade(lb.ID)
	}); err != nil {
		return err
	}
	p.releaseVIPPort(lb)
	return nil
}

// GetLoadBalancerStats returns the last reported counter row.
func (p *Plugin) GetLoadBalancerStats(ctx context.Context, id string) (*models.LoadBalancerStats, error) {
	return p.db.GetLoadBalancerStats(id)
}

// GetLoadBalancerStatusTree aggregates the operating view of the whole
// graph.
func (p *Plugin) GetLoadBalancerStatusTree(ctx context.Context, id string) (*models.StatusTree, error) {
	lb, err := p.db.GetLoadBalancerGraph(id)
	if err != nil {
		return nil, err
	}
	return status.BuildStatusTree(lb), nil
}
