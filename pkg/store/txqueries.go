// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package store

import (
	"github.com/openlbaas/openlbaas/pkg/models"
)

// Relationship queries available inside an open transaction. The status
// engine uses these to walk subtrees while cascading.

// ListListenersByLoadBalancer returns the listeners attached to the load
// balancer.
func (tx *Txn) ListListenersByLoadBalancer(lbID string) []*models.Listener {
	return tx.s.listenersByLoadBalancerLocked(lbID)
}

// ListPoolsByLoadBalancer returns every pool under the load balancer.
func (tx *Txn) ListPoolsByLoadBalancer(lbID string) []*models.Pool {
	return tx.s.poolsByLoadBalancerLocked(lbID)
}

// ListPoolsByListener returns the pools that name the listener as their
// parent.
func (tx *Txn) ListPoolsByListener(listenerID string) []*models.Pool {
	var out []*models.Pool
	for _, p := range tx.s.pools {
		if p.ListenerID == listenerID {
			out = append(out, p.DeepCopy())
		}
	}
	return out
}

// ListMembersByPool returns all members of the pool.
func (tx *Txn) ListMembersByPool(poolID string) []*models.Member {
	var out []*models.Member
	for _, m := range tx.s.members {
		if m.PoolID == poolID {
			out = append(out, m.DeepCopy())
		}
	}
	return out
}

// ListL7RulesByPolicy returns all rules of the policy.
func (tx *Txn) ListL7RulesByPolicy(policyID string) []*models.L7Rule {
	return tx.s.l7RulesByPolicyLocked(policyID)
}

// ListenersReferencingPool returns the listeners whose default pool is the
// given pool.
func (tx *Txn) ListenersReferencingPool(poolID string) []*models.Listener {
	var out []*models.Listener
	for _, l := range tx.s.listeners {
		if l.DefaultPoolID == poolID {
			out = append(out, l.DeepCopy())
		}
	}
	return out
}

// LoadBalancerIDForObject resolves the root load balancer inside an open
// transaction.
func (tx *Txn) LoadBalancerIDForObject(kind Kind, id string) (string, error) {
	return tx.s.loadBalancerIDLocked(kind, id)
}
