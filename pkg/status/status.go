// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package status implements the object-graph state machine: cascade
// activation after driver success, cascade deferral of detached subtrees and
// the operating-status aggregation served by the statuses read. The pending
// gate itself lives in the repository (TestAndSetStatus); this package owns
// everything that happens around it.
package status

import (
	"github.com/openlbaas/openlbaas/pkg/logging"
	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
	"github.com/openlbaas/openlbaas/pkg/models"
	"github.com/openlbaas/openlbaas/pkg/store"
)

var log = logging.DefaultLogger.WithField(logfields.LogSubsys, "status")

// node is one object visited during a subtree walk.
type node struct {
	kind    store.Kind
	id      string
	prov    string
	adminUp bool
	// noMonitor marks members of pools without a health monitor.
	noMonitor bool
}

// walkSubtree collects the object and all its descendants in parent-first
// order.
func walkSubtree(tx *store.Txn, kind store.Kind, id string) ([]node, error) {
	var out []node

	switch kind {
	case store.KindLoadBalancer:
		lb, err := tx.GetLoadBalancer(id)
		if err != nil {
			return nil, err
		}
		out = append(out, node{kind: kind, id: id, prov: lb.ProvisioningStatus, adminUp: lb.AdminStateUp})
		seen := map[string]bool{}
		for _, l := range tx.ListListenersByLoadBalancer(id) {
			sub, err := walkSubtree(tx, store.KindListener, l.ID)
			if err != nil {
				return nil, err
			}
			for _, n := range sub {
				if n.kind == store.KindPool {
					seen[n.id] = true
				}
			}
			out = append(out, sub...)
		}
		for _, p := range tx.ListPoolsByLoadBalancer(id) {
			if seen[p.ID] {
				continue
			}
			sub, err := walkSubtree(tx, store.KindPool, p.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}

	case store.KindListener:
		l, err := tx.GetListener(id)
		if err != nil {
			return nil, err
		}
		out = append(out, node{kind: kind, id: id, prov: l.ProvisioningStatus, adminUp: l.AdminStateUp})
		seen := map[string]bool{}
		if l.DefaultPoolID != "" {
			sub, err := walkSubtree(tx, store.KindPool, l.DefaultPoolID)
			if err != nil {
				return nil, err
			}
			seen[l.DefaultPoolID] = true
			out = append(out, sub...)
		}
		for _, p := range tx.ListPoolsByListener(id) {
			if seen[p.ID] {
				continue
			}
			sub, err := walkSubtree(tx, store.KindPool, p.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		for _, pol := range tx.ListL7PoliciesByListener(id) {
			sub, err := walkSubtree(tx, store.KindL7Policy, pol.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}

	case store.KindPool:
		p, err := tx.GetPool(id)
		if err != nil {
			return nil, err
		}
		out = append(out, node{kind: kind, id: id, prov: p.ProvisioningStatus, adminUp: p.AdminStateUp})
		for _, m := range tx.ListMembersByPool(id) {
			out = append(out, node{
				kind:      store.KindMember,
				id:        m.ID,
				prov:      m.ProvisioningStatus,
				adminUp:   m.AdminStateUp,
				noMonitor: p.HealthMonitorID == "",
			})
		}
		if p.HealthMonitorID != "" {
			hm, err := tx.GetHealthMonitor(p.HealthMonitorID)
			if err == nil {
				out = append(out, node{kind: store.KindHealthMonitor, id: hm.ID, prov: hm.ProvisioningStatus, adminUp: hm.AdminStateUp})
			}
		}

	case store.KindL7Policy:
		pol, err := tx.GetL7Policy(id)
		if err != nil {
			return nil, err
		}
		out = append(out, node{kind: kind, id: id, prov: pol.ProvisioningStatus, adminUp: pol.AdminStateUp})
		for _, r := range tx.ListL7RulesByPolicy(id) {
			out = append(out, node{kind: store.KindL7Rule, id: r.ID, prov: r.ProvisioningStatus, adminUp: r.AdminStateUp})
		}

	case store.KindMember:
		m, err := tx.GetMember(id)
		if err != nil {
			return nil, err
		}
		out = append(out, node{kind: kind, id: id, prov: m.ProvisioningStatus, adminUp: m.AdminStateUp})

	case store.KindHealthMonitor:
		hm, err := tx.GetHealthMonitor(id)
		if err != nil {
			return nil, err
		}
		out = append(out, node{kind: kind, id: id, prov: hm.ProvisioningStatus, adminUp: hm.AdminStateUp})

	case store.KindL7Rule:
		r, err := tx.GetL7Rule(id)
		if err != nil {
			return nil, err
		}
		out = append(out, node{kind: kind, id: id, prov: r.ProvisioningStatus, adminUp: r.AdminStateUp})
	}

	return out, nil
}

// CascadeActivate marks the object and every descendant still in
// PENDING_CREATE or PENDING_UPDATE as ACTIVE after a successful driver
// completion. Descendants in ERROR (operator must intervene) or DEFERRED
// (detached) are skipped. The operating status follows the administrative
// flag; members of unmonitored pools come up as NO_MONITOR.
func CascadeActivate(tx *store.Txn, kind store.Kind, id string) error {
	nodes, err := walkSubtree(tx, kind, id)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if n.prov != models.StatusPendingCreate && n.prov != models.StatusPendingUpdate {
			continue
		}
		operating := models.OperatingOnline
		switch {
		case !n.adminUp:
			operating = models.OperatingDisabled
		case n.noMonitor:
			operating = models.OperatingNoMonitor
		}
		if err := tx.UpdateStatus(n.kind, n.id, models.StatusActive, operating); err != nil {
			return err
		}
	}
	log.WithFields(map[string]interface{}{
		logfields.ObjectKind: string(kind),
		logfields.ObjectID:   id,
	}).Debug("Cascaded activation")
	return nil
}

// CascadeDefer moves the object and its entire subtree to DEFERRED. Called
// when an object is detached from the load-balancer spanning tree; a
// deferred object keeps accepting updates but none are forwarded to a
// driver until it is re-attached.
func CascadeDefer(tx *store.Txn, kind store.Kind, id string) error {
	nodes, err := walkSubtree(tx, kind, id)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if err := tx.UpdateStatus(n.kind, n.id, models.StatusDeferred, models.OperatingOffline); err != nil {
			return err
		}
	}
	log.WithFields(map[string]interface{}{
		logfields.ObjectKind: string(kind),
		logfields.ObjectID:   id,
	}).Debug("Cascaded deferral")
	return nil
}

// MarkPendingUpdate marks the subtree as PENDING_UPDATE wherever it is
// currently ACTIVE or DEFERRED. Used when a driver re-deploys a whole graph
// and when a deferred subtree is re-attached.
func MarkPendingUpdate(tx *store.Txn, kind store.Kind, id string) error {
	nodes, err := walkSubtree(tx, kind, id)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if n.prov != models.StatusActive && n.prov != models.StatusDeferred {
			continue
		}
		if err := tx.UpdateStatus(n.kind, n.id, models.StatusPendingUpdate, ""); err != nil {
			return err
		}
	}
	return nil
}
