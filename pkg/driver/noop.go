// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package driver

import (
	"context"

	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
	"github.com/openlbaas/openlbaas/pkg/models"
)

// NoopDriverClass is the class name of the synchronous no-op driver. Every
// call succeeds immediately and the plugin core writes ACTIVE on return.
const NoopDriverClass = "noop"

func init() {
	RegisterFactory(NoopDriverClass, NewNoopDriver)
}

// NewNoopDriver builds the no-op driver.
func NewNoopDriver() (*Driver, error) {
	return &Driver{
		Name:          NoopDriverClass,
		LoadBalancer:  &noopLoadBalancerManager{},
		Listener:      &noopListenerManager{},
		Pool:          &noopPoolManager{},
		Member:        &noopMemberManager{},
		HealthMonitor: &noopHealthMonitorManager{},
		L7Policy:      &noopL7PolicyManager{},
		L7Rule:        &noopL7RuleManager{},
	}, nil
}

func noopLog(kind, op, id string) {
	log.WithFields(map[string]interface{}{
		logfields.DriverName: NoopDriverClass,
		logfields.ObjectKind: kind,
		logfields.ObjectID:   id,
	}).Debugf("noop %s", op)
}

type noopLoadBalancerManager struct{}

func (n *noopLoadBalancerManager) Create(ctx context.Context, lb *models.LoadBalancer) error {
	noopLog("loadbalancer", "create", lb.ID)
	return nil
}

func (n *noopLoadBalancerManager) Update(ctx context.Context, old, new *models.LoadBalancer) error {
	noopLog("loadbalancer", "update", new.ID)
	return nil
}

func (n *noopLoadBalancerManager) Delete(ctx context.Context, lb *models.LoadBalancer) error {
	noopLog("loadbalancer", "delete", lb.ID)
	return nil
}

func (n *noopLoadBalancerManager) Refresh(ctx context.Context, lb *models.LoadBalancer) error {
	noopLog("loadbalancer", "refresh", lb.ID)
	return nil
}

func (n *noopLoadBalancerManager) Stats(ctx context.Context, lb *models.LoadBalancer) (*models.LoadBalancerStats, error) {
	noopLog("loadbalancer", "stats", lb.ID)
	return &models.LoadBalancerStats{}, nil
}

func (n *noopLoadBalancerManager) CreateGraph(ctx context.Context, lb *models.LoadBalancer) error {
	noopLog("loadbalancer", "create graph", lb.ID)
	return nil
}

func (n *noopLoadBalancerManager) StatusAuthoritative() bool           { return false }
func (n *noopLoadBalancerManager) AllocatesVIP() bool                  { return false }
func (n *noopLoadBalancerManager) AllowsCreateGraph() bool             { return true }
func (n *noopLoadBalancerManager) AllowsHealthMonitorThresholds() bool { return true }

type noopListenerManager struct{}

func (n *noopListenerManager) Create(ctx context.Context, l *models.Listener) error {
	noopLog("listener", "create", l.ID)
	return nil
}

func (n *noopListenerManager) Update(ctx context.Context, old, new *models.Listener) error {
	noopLog("listener", "update", new.ID)
	return nil
}

func (n *noopListenerManager) Delete(ctx context.Context, l *models.Listener) error {
	noopLog("listener", "delete", l.ID)
	return nil
}

func (n *noopListenerManager) StatusAuthoritative() bool { return false }

type noopPoolManager struct{}

func (n *noopPoolManager) Create(ctx context.Context, p *models.Pool) error {
	noopLog("pool", "create", p.ID)
	return nil
}

func (n *noopPoolManager) Update(ctx context.Context, old, new *models.Pool) error {
	noopLog("pool", "update", new.ID)
	return nil
}

func (n *noopPoolManager) Delete(ctx context.Context, p *models.Pool) error {
	noopLog("pool", "delete", p.ID)
	return nil
}

func (n *noopPoolManager) StatusAuthoritative() bool { return false }

type noopMemberManager struct{}

func (n *noopMemberManager) Create(ctx context.Context, m *models.Member) error {
	noopLog("member", "create", m.ID)
	return nil
}

func (n *noopMemberManager) Update(ctx context.Context, old, new *models.Member) error {
	noopLog("member", "update", new.ID)
	return nil
}

func (n *noopMemberManager) Delete(ctx context.Context, m *models.Member) error {
	noopLog("member", "delete", m.ID)
	return nil
}

func (n *noopMemberManager) StatusAuthoritative() bool { return false }

type noopHealthMonitorManager struct{}

func (n *noopHealthMonitorManager) Create(ctx context.Context, hm *models.HealthMonitor) error {
	noopLog("healthmonitor", "create", hm.ID)
	return nil
}

func (n *noopHealthMonitorManager) Update(ctx context.Context, old, new *models.HealthMonitor) error {
	noopLog("healthmonitor", "update", new.ID)
	return nil
}

func (n *noopHealthMonitorManager) Delete(ctx context.Context, hm *models.HealthMonitor) error {
	noopLog("healthmonitor", "delete", hm.ID)
	return nil
}

func (n *noopHealthMonitorManager) StatusAuthoritative() bool { return false }

type noopL7PolicyManager struct{}

func (n *noopL7PolicyManager) Create(ctx context.Context, p *models.L7Policy) error {
	noopLog("l7policy", "create", p.ID)
	return nil
}

func (n *noopL7PolicyManager) Update(ctx context.Context, old, new *models.L7Policy) error {
	noopLog("l7policy", "update", new.ID)
	return nil
}

func (n *noopL7PolicyManager) Delete(ctx context.Context, p *models.L7Policy) error {
	noopLog("l7policy", "delete", p.ID)
	return nil
}

func (n *noopL7PolicyManager) StatusAuthoritative() bool { return false }

type noopL7RuleManager struct{}

func (n *noopL7RuleManager) Create(ctx context.Context, r *models.L7Rule) error {
	noopLog("l7rule", "create", r.ID)
	return nil
}

func (n *noopL7RuleManager) Update(ctx context.Context, old, new *models.L7Rule) error {
	noopLog("l7rule", "update", new.ID)
	return nil
}

func (n *noopL7RuleManager) Delete(ctx context.Context, r *models.L7Rule) error {
	noopLog("l7rule", "delete", r.ID)
	return nil
}

func (n *noopL7RuleManager) StatusAuthoritative() bool { return false }
