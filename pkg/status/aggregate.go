// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package status

import (
	"github.com/openlbaas/openlbaas/pkg/models"
)

// aggregateOperating derives a parent's operating status from its children:
// DISABLED when the parent is administratively down, ONLINE when every child
// is ONLINE or DISABLED, OFFLINE when every child is OFFLINE, DEGRADED when
// some but not all children are in a non-ONLINE non-DISABLED state. DISABLED
// children never contribute to DEGRADED. A parent without children keeps its
// own stored status.
func aggregateOperating(adminUp bool, own string, children []string) string {
	if !adminUp {
		return models.OperatingDisabled
	}
	if len(children) == 0 {
		return own
	}
	allOffline := true
	anyBad := false
	allOnlineOrDisabled := true
	for _, c := range children {
		if c != models.OperatingOffline {
			allOffline = false
		}
		switch c {
		case models.OperatingOnline, models.OperatingDisabled:
		default:
			allOnlineOrDisabled = false
			anyBad = true
		}
	}
	switch {
	case allOffline:
		return models.OperatingOffline
	case allOnlineOrDisabled:
		return models.OperatingOnline
	case anyBad:
		return models.OperatingDegraded
	}
	return models.OperatingOnline
}

// BuildStatusTree computes the status tree of a hydrated load balancer
// graph, aggregating operating statuses bottom-up.
func BuildStatusTree(lb *models.LoadBalancer) *models.StatusTree {
	root := &models.LoadBalancerStatus{
		ID:                 lb.ID,
		Name:               lb.Name,
		ProvisioningStatus: lb.ProvisioningStatus,
	}

	var listenerOps []string
	for _, l := range lb.Listeners {
		ls := buildListenerStatus(l)
		root.Listeners = append(root.Listeners, ls)
		listenerOps = append(listenerOps, ls.OperatingStatus)
	}
	for _, p := range lb.Pools {
		root.Pools = append(root.Pools, buildPoolStatus(p))
	}
	root.OperatingStatus = aggregateOperating(lb.AdminStateUp, lb.OperatingStatus, listenerOps)
	if root.Listeners == nil {
		root.Listeners = []*models.ListenerStatus{}
	}
	if root.Pools == nil {
		root.Pools = []*models.PoolStatus{}
	}
	return &models.StatusTree{LoadBalancer: root}
}

func buildListenerStatus(l *models.Listener) *models.ListenerStatus {
	ls := &models.ListenerStatus{
		ID:                 l.ID,
		Name:               l.Name,
		ProvisioningStatus: l.ProvisioningStatus,
		Pools:              []*models.PoolStatus{},
		L7Policies:         []*models.L7PolicyStatus{},
	}
	var childOps []string
	if l.DefaultPool != nil {
		ps := buildPoolStatus(l.DefaultPool)
		ls.Pools = append(ls.Pools, ps)
		childOps = append(childOps, ps.OperatingStatus)
	}
	for _, pol := range l.L7Policies {
		ls.L7Policies = append(ls.L7Policies, buildL7PolicyStatus(pol))
	}
	ls.OperatingStatus = aggregateOperating(l.AdminStateUp, l.OperatingStatus, childOps)
	return ls
}

func buildPoolStatus(p *models.Pool) *models.PoolStatus {
	ps := &models.PoolStatus{
		ID:                 p.ID,
		Name:               p.Name,
		ProvisioningStatus: p.ProvisioningStatus,
		Members:            []*models.MemberStatus{},
	}
	var memberOps []string
	for _, m := range p.Members {
		op := m.OperatingStatus
		if !m.AdminStateUp {
			op = models.OperatingDisabled
		}
		ps.Members = append(ps.Members, &models.MemberStatus{
			ID:                 m.ID,
			Address:            m.Address,
			ProtocolPort:       m.ProtocolPort,
			ProvisioningStatus: m.ProvisioningStatus,
			OperatingStatus:    op,
		})
		memberOps = append(memberOps, op)
	}
	if p.HealthMonitor != nil {
		ps.HealthMonitor = &models.HealthMonitorStatus{
			ID:                 p.HealthMonitor.ID,
			Type:               p.HealthMonitor.Type,
			ProvisioningStatus: p.HealthMonitor.ProvisioningStatus,
			OperatingStatus:    p.HealthMonitor.OperatingStatus,
		}
	}
	ps.OperatingStatus = aggregateOperating(p.AdminStateUp, p.OperatingStatus, memberOps)
	return ps
}

func buildL7PolicyStatus(pol *models.L7Policy) *models.L7PolicyStatus {
	s := &models.L7PolicyStatus{
		ID:                 pol.ID,
		Action:             pol.Action,
		ProvisioningStatus: pol.ProvisioningStatus,
		OperatingStatus:    pol.OperatingStatus,
		Rules:              []*models.L7RuleStatus{},
	}
	for _, r := range pol.Rules {
		s.Rules = append(s.Rules, &models.L7RuleStatus{
			ID:                 r.ID,
			Type:               r.Type,
			ProvisioningStatus: r.ProvisioningStatus,
			OperatingStatus:    r.OperatingStatus,
		})
	}
	return s
}
