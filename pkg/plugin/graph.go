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
	"github.com/openlbaas/openlbaas/pkg/store"
)

// CreateLoadBalancerGraph accepts a load balancer with its whole subtree
// and creates every row inside one transaction before handing the hydrated
// graph to the driver. Any failure rolls the entire transaction back.
func (p *Plugin) CreateLoadBalancerGraph(ctx context.Context, lb *models.LoadBalancer) (*models.LoadBalancer, error) {
	if err := validateLoadBalancerCreate(lb); err != nil {
		return nil, err
	}
	prov, err := p.providerFor(lb.Provider)
	if err != nil {
		return nil, err
	}
	drv := prov.Driver
	if !drv.LoadBalancer.AllowsCreateGraph() {
		return nil, &UnsupportedError{Provider: prov.Name, Operation: "graph create"}
	}
	if err := p.validateGraph(lb, drv); err != nil {
		return nil, err
	}

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

	var hydrated *models.LoadBalancer
	err = p.db.WithTransaction(func(tx *store.Txn) error {
		if err := p.createGraphRows(tx, lb, drv); err != nil {
			return err
		}
		var txErr error
		hydrated, txErr = tx.GetLoadBalancerGraph(lb.ID)
		return txErr
	})
	if err != nil {
		p.releaseVIPPort(lb)
		return nil, err
	}

	dctx, cancel := p.driverCtx(ctx)
	err = drv.LoadBalancer.CreateGraph(dctx, hydrated)
	cancel()
	if err != nil {
		if delErr := p.db.WithTransaction(func(tx *store.Txn) error {
			return tx.DeleteLoadBalancerCascade(lb.ID)
		}); delErr != nil {
			log.WithError(delErr).WithField(logfields.LoadBalancerID, lb.ID).
				Warn("Roll-back of failed graph create left rows behind")
		}
		p.releaseVIPPort(lb)
		return nil, driver.WrapError(prov.Name, "loadbalancer.create_graph", err)
	}

	if drv.LoadBalancer.AllocatesVIP() {
		if err := p.db.WithTransaction(func(tx *store.Txn) error {
			row, err := tx.GetLoadBalancer(lb.ID)
			if err != nil {
				return err
			}
			row.VIPAddress = hydrated.VIPAddress
			row.VIPPortID = hydrated.VIPPortID
			return tx.UpdateLoadBalancer(row)
		}); err != nil {
			return nil, err
		}
	}
	if !drv.LoadBalancer.StatusAuthoritative() {
		if err := p.activateRoot(lb.ID); err != nil {
			return nil, err
		}
	}
	return p.db.GetLoadBalancerGraph(lb.ID)
}

// validateGraph runs the per-entity validations over the nested payload
// before any row is written.
func (p *Plugin) validateGraph(lb *models.LoadBalancer, drv *driver.Driver) error {
	for _, l := range lb.Listeners {
		if err := p.validateListener(l); err != nil {
			return err
		}
		if l.DefaultPool != nil {
			if err := validatePool(l.DefaultPool); err != nil {
				return err
			}
			if !models.ProtocolsCompatible(l.Protocol, l.DefaultPool.Protocol) {
				return &ProtocolMismatchError{ListenerProtocol: l.Protocol, PoolProtocol: l.DefaultPool.Protocol}
			}
			if err := validateGraphPoolChildren(l.DefaultPool); err != nil {
				return err
			}
		}
		if len(l.L7Policies) > 0 && !drv.SupportsL7() {
			return &UnsupportedError{Provider: drv.Name, Operation: "l7 policies"}
		}
		for _, pol := range l.L7Policies {
			if err := validateL7PolicyAction(pol); err != nil {
				return err
			}
			for _, r := range pol.Rules {
				if err := validateL7Rule(r); err != nil {
					return err
				}
			}
		}
	}
	for _, pool := range lb.Pools {
		if err := validatePool(pool); err != nil {
			return err
		}
		if err := validateGraphPoolChildren(pool); err != nil {
			return err
		}
	}
	return nil
}

func validateGraphPoolChildren(pool *models.Pool) error {
	for _, m := range pool.Members {
		if err := validateMember(m); err != nil {
			return err
		}
	}
	if pool.HealthMonitor != nil {
		return validateHealthMonitor(pool.HealthMonitor)
	}
	return nil
}

// createGraphRows persists the load balancer and all nested children in
// creation order, all in PENDING_CREATE.
func (p *Plugin) createGraphRows(tx *store.Txn, lb *models.LoadBalancer, drv *driver.Driver) error {
	if _, err := tx.CreateLoadBalancer(lb); err != nil {
		return err
	}
	for _, pool := range lb.Pools {
		pool.LoadBalancerID = lb.ID
		if err := p.createGraphPool(tx, pool, drv); err != nil {
			return err
		}
	}
	for _, l := range lb.Listeners {
		l.ID = store.NewID()
		l.LoadBalancerID = lb.ID
		l.ProvisioningStatus = models.StatusPendingCreate
		l.OperatingStatus = models.OperatingOffline
		if l.DefaultPool != nil {
			l.DefaultPool.ListenerID = l.ID
			l.DefaultPool.LoadBalancerID = lb.ID
		}
		if _, err := tx.CreateListener(l); err != nil {
			return err
		}
		if l.DefaultPool != nil {
			if err := p.createGraphPool(tx, l.DefaultPool, drv); err != nil {
				return err
			}
			l.DefaultPoolID = l.DefaultPool.ID
			if err := tx.UpdateListener(l); err != nil {
				return err
			}
		}
		position := 0
		for _, pol := range l.L7Policies {
			position++
			pol.ID = store.NewID()
			pol.ListenerID = l.ID
			pol.Position = position
			pol.ProvisioningStatus = models.StatusPendingCreate
			pol.OperatingStatus = models.OperatingOffline
			if pol.Action == models.L7PolicyActionRedirectToPool {
				if _, err := tx.GetPool(pol.RedirectPoolID); err != nil {
					return err
				}
			}
			if _, err := tx.CreateL7Policy(pol); err != nil {
				return err
			}
			for _, r := range pol.Rules {
				r.ID = store.NewID()
				r.PolicyID = pol.ID
				r.ProvisioningStatus = models.StatusPendingCreate
				r.OperatingStatus = models.OperatingOffline
				if _, err := tx.CreateL7Rule(r); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (p *Plugin) createGraphPool(tx *store.Txn, pool *models.Pool, drv *driver.Driver) error {
	pool.ID = store.NewID()
	pool.ProvisioningStatus = models.StatusPendingCreate
	pool.OperatingStatus = models.OperatingOffline
	if _, err := tx.CreatePool(pool); err != nil {
		return err
	}
	for _, m := range pool.Members {
		m.ID = store.NewID()
		m.PoolID = pool.ID
		m.ProvisioningStatus = models.StatusPendingCreate
		m.OperatingStatus = models.OperatingOffline
		if _, err := tx.CreateMember(m); err != nil {
			return err
		}
	}
	if hm := pool.HealthMonitor; hm != nil {
		hm.ID = store.NewID()
		hm.PoolID = pool.ID
		hm.ProvisioningStatus = models.StatusPendingCreate
		hm.OperatingStatus = models.OperatingOffline
		clampMonitorThresholds(drv, hm)
		if _, err := tx.CreateHealthMonitor(hm); err != nil {
			return err
		}
	}
	return nil
}
