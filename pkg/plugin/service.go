// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package plugin implements the load balancing service core: validation,
// status transitions, persistence and driver dispatch. The Service
// interface is the surface the REST layer talks to; the proxy plugin
// provides an alternative implementation forwarding to a remote service.
package plugin

import (
	"context"

	"github.com/openlbaas/openlbaas/pkg/models"
	"github.com/openlbaas/openlbaas/pkg/store"
)

// Service is the operation surface of a load balancing service plugin.
type Service interface {
	CreateLoadBalancer(ctx context.Context, lb *models.LoadBalancer) (*models.LoadBalancer, error)
	CreateLoadBalancerGraph(ctx context.Context, lb *models.LoadBalancer) (*models.LoadBalancer, error)
	GetLoadBalancer(ctx context.Context, id string) (*models.LoadBalancer, error)
	ListLoadBalancers(ctx context.Context, opts store.ListOpts) ([]*models.LoadBalancer, error)
	UpdateLoadBalancer(ctx context.Context, id string, u *models.LoadBalancerUpdate) (*models.LoadBalancer, error)
	DeleteLoadBalancer(ctx context.Context, id string) error
	GetLoadBalancerStats(ctx context.Context, id string) (*models.LoadBalancerStats, error)
	GetLoadBalancerStatusTree(ctx context.Context, id string) (*models.StatusTree, error)

	CreateListener(ctx context.Context, l *models.Listener) (*models.Listener, error)
	GetListener(ctx context.Context, id string) (*models.Listener, error)
	ListListeners(ctx context.Context, opts store.ListOpts) ([]*models.Listener, error)
	UpdateListener(ctx context.Context, id string, u *models.ListenerUpdate) (*models.Listener, error)
	DeleteListener(ctx context.Context, id string) error

	CreatePool(ctx context.Context, p *models.Pool) (*models.Pool, error)
	GetPool(ctx context.Context, id string) (*models.Pool, error)
	ListPools(ctx context.Context, opts store.ListOpts) ([]*models.Pool, error)
	UpdatePool(ctx context.Context, id string, u *models.PoolUpdate) (*models.Pool, error)
	DeletePool(ctx context.Context, id string) error

	CreateMember(ctx context.Context, poolID string, m *models.Member) (*models.Member, error)
	GetMember(ctx context.Context, poolID, id string) (*models.Member, error)
	ListMembers(ctx context.Context, poolID string, opts store.ListOpts) ([]*models.Member, error)
	UpdateMember(ctx context.Context, poolID, id string, u *models.MemberUpdate) (*models.Member, error)
	DeleteMember(ctx context.Context, poolID, id string) error

	CreateHealthMonitor(ctx context.Context, hm *models.HealthMonitor) (*models.HealthMonitor, error)
	GetHealthMonitor(ctx context.Context, id string) (*models.HealthMonitor, error)
	ListHealthMonitors(ctx context.Context, opts store.ListOpts) ([]*models.HealthMonitor, error)
	UpdateHealthMonitor(ctx context.Context, id string, u *models.HealthMonitorUpdate) (*models.HealthMonitor, error)
	DeleteHealthMonitor(ctx context.Context, id string) error

	CreateL7Policy(ctx context.Context, p *models.L7Policy) (*models.L7Policy, error)
	GetL7Policy(ctx context.Context, id string) (*models.L7Policy, error)
	ListL7Policies(ctx context.Context, opts store.ListOpts) ([]*models.L7Policy, error)
	UpdateL7Policy(ctx context.Context, id string, u *models.L7PolicyUpdate) (*models.L7Policy, error)
	DeleteL7Policy(ctx context.Context, id string) error

	CreateL7Rule(ctx context.Context, policyID string, r *models.L7Rule) (*models.L7Rule, error)
	GetL7Rule(ctx context.Context, policyID, id string) (*models.L7Rule, error)
	ListL7Rules(ctx context.Context, policyID string, opts store.ListOpts) ([]*models.L7Rule, error)
	UpdateL7Rule(ctx context.Context, policyID, id string, u *models.L7RuleUpdate) (*models.L7Rule, error)
	DeleteL7Rule(ctx context.Context, policyID, id string) error
}
