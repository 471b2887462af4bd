// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package driver defines the backend driver framework: one manager per
// entity type, composed into a Driver value, plus the provider registry that
// routes every mutation to exactly one driver per load balancer.
package driver

import (
	"context"

	"github.com/openlbaas/openlbaas/pkg/logging"
	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
	"github.com/openlbaas/openlbaas/pkg/models"
)

var log = logging.DefaultLogger.WithField(logfields.LogSubsys, "driver")

// LoadBalancerManager realizes load balancer objects. Create receives the
// persisted row; a driver with AllocatesVIP may set VIPAddress and VIPPortID
// on it, which the plugin core records. CreateGraph receives a fully
// hydrated graph and is only invoked when AllowsCreateGraph is true.
type LoadBalancerManager interface {
	Create(ctx context.Context, lb *models.LoadBalancer) error
	Update(ctx context.Context, old, new *models.LoadBalancer) error
	Delete(ctx context.Context, lb *models.LoadBalancer) error

	// Refresh re-converges the full graph onto the backend.
	Refresh(ctx context.Context, lb *models.LoadBalancer) error

	// Stats returns the data-plane counters for the load balancer.
	Stats(ctx context.Context, lb *models.LoadBalancer) (*models.LoadBalancerStats, error)

	CreateGraph(ctx context.Context, lb *models.LoadBalancer) error

	// StatusAuthoritative reports whether the driver reports completion
	// asynchronously. When false the plugin core writes ACTIVE on return.
	StatusAuthoritative() bool

	// AllocatesVIP reports whether the driver allocates the VIP port
	// itself; the plugin core then skips its own port allocation and the
	// driver owns the port lifecycle, including deallocation on delete.
	AllocatesVIP() bool

	// AllowsCreateGraph reports whether an entire object graph may be
	// submitted in one call.
	AllowsCreateGraph() bool

	// AllowsHealthMonitorThresholds reports whether max_retries_down is
	// honored; otherwise the plugin core forces it to the default and
	// logs a warning.
	AllowsHealthMonitorThresholds() bool
}

// ListenerManager realizes listener objects.
type ListenerManager interface {
	Create(ctx context.Context, l *models.Listener) error
	Update(ctx context.Context, old, new *models.Listener) error
	Delete(ctx context.Context, l *models.Listener) error
	StatusAuthoritative() bool
}

// PoolManager realizes pool objects.
type PoolManager interface {
	Create(ctx context.Context, p *models.Pool) error
	Update(ctx context.Context, old, new *models.Pool) error
	Delete(ctx context.Context, p *models.Pool) error
	StatusAuthoritative() bool
}

// MemberManager realizes member objects.
type MemberManager interface {
	Create(ctx context.Context, m *models.Member) error
	Update(ctx context.Context, old, new *models.Member) error
	Delete(ctx context.Context, m *models.Member) error
	StatusAuthoritative() bool
}

// HealthMonitorManager realizes health monitor objects.
type HealthMonitorManager interface {
	Create(ctx context.Context, hm *models.HealthMonitor) error
	Update(ctx context.Context, old, new *models.HealthMonitor) error
	Delete(ctx context.Context, hm *models.HealthMonitor) error
	StatusAuthoritative() bool
}

// L7PolicyManager realizes L7 policy objects. Optional.
type L7PolicyManager interface {
	Create(ctx context.Context, p *models.L7Policy) error
	Update(ctx context.Context, old, new *models.L7Policy) error
	Delete(ctx context.Context, p *models.L7Policy) error
	StatusAuthoritative() bool
}

// L7RuleManager realizes L7 rule objects. Optional.
type L7RuleManager interface {
	Create(ctx context.Context, r *models.L7Rule) error
	Update(ctx context.Context, old, new *models.L7Rule) error
	Delete(ctx context.Context, r *models.L7Rule) error
	StatusAuthoritative() bool
}

// Driver is a backend implementation composed of one manager per entity.
// L7Policy and L7Rule may be nil when the backend has no L7 support.
type Driver struct {
	Name string

	LoadBalancer  LoadBalancerManager
	Listener      ListenerManager
	Pool          PoolManager
	Member        MemberManager
	HealthMonitor HealthMonitorManager
	L7Policy      L7PolicyManager
	L7Rule        L7RuleManager

	// RequiresAgent marks drivers whose load balancers must be scheduled
	// onto an agent advertising DeviceDriverName.
	RequiresAgent    bool
	DeviceDriverName string
}

// SupportsL7 reports whether the driver implements L7 policies and rules.
func (d *Driver) SupportsL7() bool {
	return d.L7Policy != nil && d.L7Rule != nil
}
