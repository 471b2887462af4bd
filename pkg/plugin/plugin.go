// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package plugin

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openlbaas/openlbaas/pkg/certmgr"
	"github.com/openlbaas/openlbaas/pkg/corenet"
	"github.com/openlbaas/openlbaas/pkg/driver"
	"github.com/openlbaas/openlbaas/pkg/logging"
	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
	"github.com/openlbaas/openlbaas/pkg/models"
	"github.com/openlbaas/openlbaas/pkg/status"
	"github.com/openlbaas/openlbaas/pkg/store"
)

var log = logging.DefaultLogger.WithField(logfields.LogSubsys, "plugin")

// DefaultDriverTimeout bounds every driver call. Exceeding it surfaces as a
// driver failure.
const DefaultDriverTimeout = 30 * time.Second

// Plugin is the core service implementation of Service. It validates
// requests, persists rows through the repository, dispatches to the provider
// driver and maintains the status engine.
type Plugin struct {
	db       *store.MemoryStore
	registry *driver.Registry
	net      corenet.Interface
	certs    certmgr.Interface

	notifications *notifyQueue
	driverTimeout time.Duration
}

// New returns a plugin over the given collaborators.
func New(db *store.MemoryStore, registry *driver.Registry, net corenet.Interface, certs certmgr.Interface) *Plugin {
	return &Plugin{
		db:            db,
		registry:      registry,
		net:           net,
		certs:         certs,
		notifications: newNotifyQueue(),
		driverTimeout: DefaultDriverTimeout,
	}
}

// Store exposes the repository, used by the daemon for wiring.
func (p *Plugin) Store() *store.MemoryStore {
	return p.db
}

// DeviceDriverName resolves the device driver the provider of a load
// balancer requires. Wired into the scheduler.
func (p *Plugin) DeviceDriverName(lbID string) (string, error) {
	lb, err := p.db.GetLoadBalancer(lbID)
	if err != nil {
		return "", err
	}
	drv, err := p.driverFor(lb.Provider)
	if err != nil {
		return "", err
	}
	return drv.DeviceDriverName, nil
}

// providerFor resolves a provider name, falling back to the default
// provider on empty input.
func (p *Plugin) providerFor(name string) (*driver.Provider, error) {
	if name == "" {
		if def := p.registry.Default(); def != nil {
			return def, nil
		}
		return nil, &RequiredError{Field: "provider"}
	}
	prov, err := p.registry.Get(name)
	if err != nil {
		return nil, &BadValueError{Field: "provider", Reason: err.Error()}
	}
	return prov, nil
}

func (p *Plugin) driverFor(providerName string) (*driver.Driver, error) {
	prov, err := p.providerFor(providerName)
	if err != nil {
		return nil, err
	}
	return prov.Driver, nil
}

// driverForObject resolves the driver and root load balancer id of an
// attached object. lbID is empty for detached subtrees.
func (p *Plugin) driverForObject(kind store.Kind, id string) (*driver.Driver, string, error) {
	lbID, err := p.db.LoadBalancerIDForObject(kind, id)
	if err != nil {
		return nil, "", err
	}
	if lbID == "" {
		return nil, "", nil
	}
	lb, err := p.db.GetLoadBalancer(lbID)
	if err != nil {
		return nil, "", err
	}
	drv, err := p.driverFor(lb.Provider)
	if err != nil {
		return nil, "", err
	}
	return drv, lbID, nil
}

// driverCtx derives the deadline-bounded context for a driver call.
func (p *Plugin) driverCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.driverTimeout)
}

// gateRootAndChild stamps the root load balancer PENDING_UPDATE and the
// child with its pending status in one transaction. Either object being in a
// pending state aborts with StateInvalid.
func (p *Plugin) gateRootAndChild(lbID string, kind store.Kind, id, pending string) error {
	return p.db.WithTransaction(func(tx *store.Txn) error {
		if err := tx.TestAndSetStatus(store.KindLoadBalancer, lbID, models.StatusPendingUpdate); err != nil {
			return err
		}
		if id != "" {
			return tx.TestAndSetStatus(kind, id, pending)
		}
		return nil
	})
}

// activateRoot walks the load balancer subtree and flips pending objects to
// ACTIVE. Called after a synchronous driver success.
func (p *Plugin) activateRoot(lbID string) error {
	return p.db.WithTransaction(func(tx *store.Txn) error {
		return status.CascadeActivate(tx, store.KindLoadBalancer, lbID)
	})
}

// setError marks an object ERROR after a driver failure. Best effort; the
// driver error is what surfaces to the caller.
func (p *Plugin) setError(kind store.Kind, id string) {
	if err := p.db.UpdateStatus(kind, id, models.StatusError, ""); err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			logfields.ObjectKind: string(kind),
			logfields.ObjectID:   id,
		}).Warn("Failed to mark object ERROR")
	}
}

// restoreStatus puts back a previously recorded provisioning status.
func (p *Plugin) restoreStatus(kind store.Kind, id, prev string) {
	if prev == "" {
		return
	}
	if err := p.db.UpdateStatus(kind, id, prev, ""); err != nil && !store.IsNotFound(err) {
		log.WithError(err).WithFields(logrus.Fields{
			logfields.ObjectKind: string(kind),
			logfields.ObjectID:   id,
		}).Warn("Failed to restore provisioning status")
	}
}

// releaseVIPPort frees a plugin-allocated VIP port. Ports allocated by the
// driver are the driver's to free.
func (p *Plugin) releaseVIPPort(lb *models.LoadBalancer) {
	if !lb.VIPPortOwned || lb.VIPPortID == "" {
		return
	}
	if err := p.net.ReleasePort(lb.VIPPortID); err != nil {
		log.WithError(err).WithField(logfields.LoadBalancerID, lb.ID).
			Warn("Failed to release VIP port")
	}
}
