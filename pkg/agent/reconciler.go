// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/openlbaas/openlbaas/pkg/agentrpc"
	"github.com/openlbaas/openlbaas/pkg/controller"
	"github.com/openlbaas/openlbaas/pkg/lock"
	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
	"github.com/openlbaas/openlbaas/pkg/models"
)

const (
	heartbeatController = "agent-heartbeat"
	reconcileController = "agent-reconcile"
	statsController     = "agent-stats"
)

// API is the control plane surface the reconciler consumes. Satisfied by
// *agentrpc.Client.
type API interface {
	ReportState(ctx context.Context, deviceDrivers []string) (*models.Agent, error)
	GetReadyDevices(ctx context.Context) ([]string, error)
	GetLoadBalancerGraph(ctx context.Context, lbID string) (*models.LoadBalancer, error)
	GetDeviceDriver(ctx context.Context, lbID string) (string, error)
	LoadBalancerDeployed(ctx context.Context, lbID string) error
	LoadBalancerDestroyed(ctx context.Context, lbID string) error
	UpdateStatus(ctx context.Context, u *agentrpc.StatusUpdate) error
	UpdateLoadBalancerStats(ctx context.Context, lbID string, stats *models.LoadBalancerStats) error
	PlugVIPPort(ctx context.Context, portID string) error
	UnplugVIPPort(ctx context.Context, portID string) error
	DrainNotifications(ctx context.Context) ([]*agentrpc.Notification, error)
}

// Config tunes the reconciler.
type Config struct {
	// Host is the identity reported in heartbeats and scheduling.
	Host string

	// PeriodicInterval is the reconcile cadence.
	PeriodicInterval time.Duration

	// ReportInterval is the heartbeat and stats cadence.
	ReportInterval time.Duration
}

// Reconciler converges the local data plane on the control plane's view. It
// is deliberately level-based; notifications only mark instances dirty and
// every cycle re-derives the full deploy/undeploy sets, so a missed event is
// repaired on the next cycle.
type Reconciler struct {
	cfg     Config
	api     API
	drivers map[string]DeviceDriver
	manager *controller.Manager

	mutex       lock.Mutex
	paused      bool
	needsResync bool
	dirty       map[string]bool
	ownerCache  map[string]string
}

// NewReconciler returns a reconciler over the given device drivers, keyed by
// driver name.
func NewReconciler(cfg Config, api API, drivers []DeviceDriver) *Reconciler {
	byName := make(map[string]DeviceDriver, len(drivers))
	for _, d := range drivers {
		byName[d.Name()] = d
	}
	return &Reconciler{
		cfg:         cfg,
		api:         api,
		drivers:     byName,
		manager:     controller.NewManager(),
		needsResync: true,
		dirty:       map[string]bool{},
		ownerCache:  map[string]string{},
	}
}

// Run registers the periodic controllers. It returns immediately; the
// controllers run until Stop.
func (r *Reconciler) Run(ctx context.Context) {
	r.manager.UpdateController(heartbeatController, controller.ControllerParams{
		Context:     ctx,
		RunInterval: r.cfg.ReportInterval,
		DoFunc:      r.heartbeat,
	})
	r.manager.UpdateController(reconcileController, controller.ControllerParams{
		Context:     ctx,
		RunInterval: r.cfg.PeriodicInterval,
		DoFunc:      r.reconcile,
	})
	r.manager.UpdateController(statsController, controller.ControllerParams{
		Context:      ctx,
		RunInterval:  r.cfg.ReportInterval,
		DoFunc:       r.reportStats,
		NoErrorRetry: true,
	})
}

// Stop removes the controllers and waits for in-flight runs.
func (r *Reconciler) Stop() {
	r.manager.RemoveAllAndWait()
}

// Trigger requests an immediate reconcile cycle.
func (r *Reconciler) Trigger() {
	r.manager.TriggerController(reconcileController)
}

func (r *Reconciler) deviceDriverNames() []string {
	names := make([]string, 0, len(r.drivers))
	for name := range r.drivers {
		names = append(names, name)
	}
	return names
}

func (r *Reconciler) heartbeat(ctx context.Context) error {
	_, err := r.api.ReportState(ctx, r.deviceDriverNames())
	return err
}

// reconcile is one convergence cycle. Any partial failure flags a resync so
// the next cycle redeploys everything it cannot prove clean.
func (r *Reconciler) reconcile(ctx context.Context) error {
	r.drainNotifications(ctx)

	r.mutex.Lock()
	paused := r.paused
	resync := r.needsResync
	r.needsResync = false
	dirty := r.dirty
	r.dirty = map[string]bool{}
	r.mutex.Unlock()

	if paused {
		return nil
	}

	ready, err := r.api.GetReadyDevices(ctx)
	if err != nil {
		r.flagResync(dirty)
		return fmt.Errorf("fetching ready devices: %w", err)
	}
	readySet := make(map[string]bool, len(ready))
	for _, id := range ready {
		readySet[id] = true
	}

	var failed bool

	// Instances the control plane no longer wants here.
	for name, drv := range r.drivers {
		for _, id := range drv.DeployedInstances() {
			if readySet[id] {
				continue
			}
			if err := r.undeploy(ctx, drv, id); err != nil {
				log.WithError(err).WithField(logfields.LoadBalancerID, id).
					Warnf("Failed to undeploy instance via %s", name)
				failed = true
			}
		}
	}

	// Instances that are missing or marked dirty.
	for _, id := range ready {
		drv, err := r.driverFor(ctx, id)
		if err != nil {
			log.WithError(err).WithField(logfields.LoadBalancerID, id).
				Warn("No device driver for ready instance")
			failed = true
			continue
		}
		if drv.IsDeployed(id) && !dirty[id] && !resync {
			continue
		}
		if err := r.deploy(ctx, drv, id); err != nil {
			log.WithError(err).WithField(logfields.LoadBalancerID, id).
				Warn("Failed to deploy instance")
			failed = true
		}
	}

	if failed {
		r.flagResync(nil)
		return fmt.Errorf("reconcile cycle completed with failures")
	}
	return nil
}

// flagResync re-marks the given dirty set and schedules a full resync.
func (r *Reconciler) flagResync(dirty map[string]bool) {
	r.mutex.Lock()
	r.needsResync = true
	for id := range dirty {
		r.dirty[id] = true
	}
	r.mutex.Unlock()
}

// driverFor resolves the device driver owning an instance. The control
// plane's answer is cached; the binding of a load balancer to its provider
// never changes over its lifetime.
func (r *Reconciler) driverFor(ctx context.Context, lbID string) (DeviceDriver, error) {
	r.mutex.Lock()
	name, ok := r.ownerCache[lbID]
	r.mutex.Unlock()
	if !ok {
		var err error
		name, err = r.api.GetDeviceDriver(ctx, lbID)
		if err != nil {
			return nil, err
		}
		r.mutex.Lock()
		r.ownerCache[lbID] = name
		r.mutex.Unlock()
	}
	drv, ok := r.drivers[name]
	if !ok {
		return nil, fmt.Errorf("device driver %q is not configured on this host", name)
	}
	return drv, nil
}

// deploy fetches the graph, plugs the VIP port, hands the graph to the
// device driver and reports the outcome. Deploy failures are surfaced as
// ERROR on the load balancer row.
func (r *Reconciler) deploy(ctx context.Context, drv DeviceDriver, lbID string) error {
	lb, err := r.api.GetLoadBalancerGraph(ctx, lbID)
	if err != nil {
		if agentrpc.IsNotFound(err) {
			// Deleted between ready_devices and here; next cycle
			// tears it down.
			return nil
		}
		return err
	}
	if lb.VIPPortID != "" {
		if err := r.api.PlugVIPPort(ctx, lb.VIPPortID); err != nil {
			return err
		}
	}
	if err := drv.DeployInstance(ctx, lb); err != nil {
		r.reportError(ctx, lbID)
		return err
	}
	log.WithField(logfields.LoadBalancerID, lbID).Info("Deployed loadbalancer instance")
	return r.api.LoadBalancerDeployed(ctx, lbID)
}

// undeploy tears down an instance and tells the control plane the resources
// are gone.
func (r *Reconciler) undeploy(ctx context.Context, drv DeviceDriver, lbID string) error {
	if err := drv.UndeployInstance(ctx, lbID, true); err != nil {
		return err
	}
	r.mutex.Lock()
	delete(r.ownerCache, lbID)
	r.mutex.Unlock()
	log.WithField(logfields.LoadBalancerID, lbID).Info("Undeployed loadbalancer instance")
	if err := r.api.LoadBalancerDestroyed(ctx, lbID); err != nil && !agentrpc.IsNotFound(err) {
		return err
	}
	return nil
}

func (r *Reconciler) reportError(ctx context.Context, lbID string) {
	err := r.api.UpdateStatus(ctx, &agentrpc.StatusUpdate{
		ObjectKind:         "loadbalancer",
		ObjectID:           lbID,
		ProvisioningStatus: models.StatusError,
	})
	if err != nil {
		log.WithError(err).WithField(logfields.LoadBalancerID, lbID).
			Warn("Failed to report deploy error")
	}
}

// drainNotifications folds queued control plane events into the dirty set.
func (r *Reconciler) drainNotifications(ctx context.Context) {
	ns, err := r.api.DrainNotifications(ctx)
	if err != nil {
		log.WithError(err).Debug("Failed to drain notifications")
		r.flagResync(nil)
		return
	}
	for _, n := range ns {
		switch n.Type {
		case agentrpc.NotifyAgentUpdated:
			if n.AgentUpdated != nil {
				r.setAdminState(ctx, n.AgentUpdated.AdminStateUp)
			}
		default:
			if n.LoadBalancerID != "" {
				r.mutex.Lock()
				r.dirty[n.LoadBalancerID] = true
				r.mutex.Unlock()
			}
		}
	}
}

// setAdminState pauses or resumes reconciliation. Going down undeploys every
// local instance without reporting them destroyed; their rows stay intact
// and another agent can pick them up. Coming back up forces a full resync.
func (r *Reconciler) setAdminState(ctx context.Context, up bool) {
	r.mutex.Lock()
	wasPaused := r.paused
	r.paused = !up
	if up {
		r.needsResync = true
	}
	r.mutex.Unlock()

	if up || wasPaused {
		return
	}
	log.Info("Agent administratively disabled, undeploying all instances")
	for _, drv := range r.drivers {
		for _, id := range drv.DeployedInstances() {
			if err := drv.UndeployInstance(ctx, id, false); err != nil {
				log.WithError(err).WithField(logfields.LoadBalancerID, id).
					Warn("Failed to undeploy instance on disable")
			}
		}
	}
}

// reportStats pushes counter rows for every deployed instance.
func (r *Reconciler) reportStats(ctx context.Context) error {
	for _, drv := range r.drivers {
		for _, id := range drv.DeployedInstances() {
			stats, err := drv.Stats(ctx, id)
			if err != nil {
				log.WithError(err).WithField(logfields.LoadBalancerID, id).
					Debug("Failed to scrape stats")
				continue
			}
			if err := r.api.UpdateLoadBalancerStats(ctx, id, stats); err != nil {
				log.WithError(err).WithField(logfields.LoadBalancerID, id).
					Debug("Failed to report stats")
			}
		}
	}
	return nil
}
