// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package agentns is the agent-based HAProxy namespace provider. Every
// mutation schedules or notifies the agent owning the load balancer; the
// agent deploys the rendered configuration and reports completion through
// the RPC surface, so all managers are status authoritative.
package agentns

import (
	"context"
	"errors"
	"fmt"

	"github.com/openlbaas/openlbaas/pkg/agentrpc"
	"github.com/openlbaas/openlbaas/pkg/driver"
	"github.com/openlbaas/openlbaas/pkg/models"
	"github.com/openlbaas/openlbaas/pkg/store"
)

// DriverClass is the name used in service_provider declarations.
const DriverClass = "haproxy_ns"

// DeviceDriver is the agent-local driver name agents must advertise.
const DeviceDriver = "haproxy_ns"

// Scheduler binds load balancers to agents.
type Scheduler interface {
	Schedule(lbID, deviceDriver string) (*models.Agent, error)
	AgentFor(lbID string) (*models.Agent, error)
}

// Notifier queues a notification for the agent on a host.
type Notifier interface {
	Notify(host string, n *agentrpc.Notification)
}

// StatsReader reads the last reported counter row.
type StatsReader interface {
	GetLoadBalancerStats(id string) (*models.LoadBalancerStats, error)
}

// RootResolver walks an object's ancestry to its load balancer.
type RootResolver interface {
	LoadBalancerIDForObject(kind store.Kind, id string) (string, error)
}

// Lifecycle closes out load balancers that never reached an agent.
type Lifecycle interface {
	LoadBalancerDestroyed(lbID string) error
}

// Config wires the provider into the control plane.
type Config struct {
	Scheduler Scheduler
	Notifier  Notifier
	Stats     StatsReader
	Roots     RootResolver
	Lifecycle Lifecycle
}

// Register makes the haproxy_ns driver class available. Called by the
// daemon once the collaborators exist.
func Register(cfg Config) {
	driver.RegisterFactory(DriverClass, func() (*driver.Driver, error) {
		return newDriver(cfg)
	})
}

func newDriver(cfg Config) (*driver.Driver, error) {
	if cfg.Scheduler == nil || cfg.Notifier == nil {
		return nil, errors.New("haproxy_ns driver requires a scheduler and a notifier")
	}
	c := &core{cfg: cfg}
	return &driver.Driver{
		Name:             DriverClass,
		LoadBalancer:     &lbManager{core: c},
		Listener:         &listenerManager{core: c},
		Pool:             &poolManager{core: c},
		Member:           &memberManager{core: c},
		HealthMonitor:    &monitorManager{core: c},
		RequiresAgent:    true,
		DeviceDriverName: DeviceDriver,
	}, nil
}

type core struct {
	cfg Config
}

// notify queues an entity event for the agent bound to the root load
// balancer.
func (c *core) notify(typ string, kind store.Kind, objID, lbID string) error {
	agent, err := c.cfg.Scheduler.AgentFor(lbID)
	if err != nil {
		return err
	}
	c.cfg.Notifier.Notify(agent.Host, &agentrpc.Notification{
		Type:           typ,
		ObjectKind:     string(kind),
		ObjectID:       objID,
		LoadBalancerID: lbID,
	})
	return nil
}

type lbManager struct {
	core *core
}

func (m *lbManager) Create(ctx context.Context, lb *models.LoadBalancer) error {
	if _, err := m.core.cfg.Scheduler.Schedule(lb.ID, DeviceDriver); err != nil {
		return err
	}
	return m.core.notify(agentrpc.NotifyCreate, store.KindLoadBalancer, lb.ID, lb.ID)
}

func (m *lbManager) Update(ctx context.Context, old, new *models.LoadBalancer) error {
	return m.core.notify(agentrpc.NotifyUpdate, store.KindLoadBalancer, new.ID, new.ID)
}

func (m *lbManager) Delete(ctx context.Context, lb *models.LoadBalancer) error {
	if _, err := m.core.cfg.Scheduler.AgentFor(lb.ID); err != nil {
		// Never scheduled, nothing deployed anywhere.
		if m.core.cfg.Lifecycle != nil {
			return m.core.cfg.Lifecycle.LoadBalancerDestroyed(lb.ID)
		}
		return nil
	}
	return m.core.notify(agentrpc.NotifyDelete, store.KindLoadBalancer, lb.ID, lb.ID)
}

func (m *lbManager) Refresh(ctx context.Context, lb *models.LoadBalancer) error {
	return m.core.notify(agentrpc.NotifyRefresh, store.KindLoadBalancer, lb.ID, lb.ID)
}

func (m *lbManager) Stats(ctx context.Context, lb *models.LoadBalancer) (*models.LoadBalancerStats, error) {
	if m.core.cfg.Stats == nil {
		return nil, errors.New("no stats source configured")
	}
	return m.core.cfg.Stats.GetLoadBalancerStats(lb.ID)
}

func (m *lbManager) CreateGraph(ctx context.Context, lb *models.LoadBalancer) error {
	return fmt.Errorf("provider %s does not support graph create", DriverClass)
}

func (m *lbManager) StatusAuthoritative() bool           { return true }
func (m *lbManager) AllocatesVIP() bool                  { return false }
func (m *lbManager) AllowsCreateGraph() bool             { return false }
func (m *lbManager) AllowsHealthMonitorThresholds() bool { return false }

// send resolves the root of a child entity and notifies its agent.
func (c *core) send(typ string, kind store.Kind, id string) error {
	if c.cfg.Roots == nil {
		return errors.New("no root resolver configured")
	}
	lbID, err := c.cfg.Roots.LoadBalancerIDForObject(kind, id)
	if err != nil {
		return err
	}
	if lbID == "" {
		return fmt.Errorf("%s %s is not attached to a loadbalancer", kind, id)
	}
	return c.notify(typ, kind, id, lbID)
}

type listenerManager struct{ core *core }

func (m *listenerManager) Create(ctx context.Context, l *models.Listener) error {
	return m.core.send(agentrpc.NotifyCreate, store.KindListener, l.ID)
}
func (m *listenerManager) Update(ctx context.Context, old, new *models.Listener) error {
	return m.core.send(agentrpc.NotifyUpdate, store.KindListener, new.ID)
}
func (m *listenerManager) Delete(ctx context.Context, l *models.Listener) error {
	// The listener row may already be detached; notify via its old root.
	if l.LoadBalancerID != "" {
		return m.core.notify(agentrpc.NotifyDelete, store.KindListener, l.ID, l.LoadBalancerID)
	}
	return m.core.send(agentrpc.NotifyDelete, store.KindListener, l.ID)
}
func (m *listenerManager) StatusAuthoritative() bool { return true }

type poolManager struct{ core *core }

func (m *poolManager) Create(ctx context.Context, p *models.Pool) error {
	return m.core.send(agentrpc.NotifyCreate, store.KindPool, p.ID)
}
func (m *poolManager) Update(ctx context.Context, old, new *models.Pool) error {
	return m.core.send(agentrpc.NotifyUpdate, store.KindPool, new.ID)
}
func (m *poolManager) Delete(ctx context.Context, p *models.Pool) error {
	return m.core.send(agentrpc.NotifyDelete, store.KindPool, p.ID)
}
func (m *poolManager) StatusAuthoritative() bool { return true }

type memberManager struct{ core *core }

func (m *memberManager) Create(ctx context.Context, mem *models.Member) error {
	return m.core.send(agentrpc.NotifyCreate, store.KindMember, mem.ID)
}
func (m *memberManager) Update(ctx context.Context, old, new *models.Member) error {
	return m.core.send(agentrpc.NotifyUpdate, store.KindMember, new.ID)
}
func (m *memberManager) Delete(ctx context.Context, mem *models.Member) error {
	return m.core.send(agentrpc.NotifyDelete, store.KindMember, mem.ID)
}
func (m *memberManager) StatusAuthoritative() bool { return true }

type monitorManager struct{ core *core }

func (m *monitorManager) Create(ctx context.Context, hm *models.HealthMonitor) error {
	return m.core.send(agentrpc.NotifyCreate, store.KindHealthMonitor, hm.ID)
}
func (m *monitorManager) Update(ctx context.Context, old, new *models.HealthMonitor) error {
	return m.core.send(agentrpc.NotifyUpdate, store.KindHealthMonitor, new.ID)
}
func (m *monitorManager) Delete(ctx context.Context, hm *models.HealthMonitor) error {
	return m.core.send(agentrpc.NotifyDelete, store.KindHealthMonitor, hm.ID)
}
func (m *monitorManager) StatusAuthoritative() bool { return true }
