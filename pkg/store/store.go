// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package store implements the repository: typed CRUD over the LBaaS object
// model, status mutation, agent bindings and nestable transactions. The
// in-memory engine keeps every row behind one RWMutex; a transaction takes a
// snapshot at entry and restores it when the body returns an error, which
// gives the plugin core its single commit/rollback point.
package store

import (
	"github.com/google/uuid"

	"github.com/openlbaas/openlbaas/pkg/lock"
	"github.com/openlbaas/openlbaas/pkg/logging"
	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
	"github.com/openlbaas/openlbaas/pkg/models"
)

var log = logging.DefaultLogger.WithField(logfields.LogSubsys, "store")

// MemoryStore is the in-memory repository implementation.
type MemoryStore struct {
	mutex lock.RWMutex

	loadBalancers  map[string]*models.LoadBalancer
	listeners      map[string]*models.Listener
	pools          map[string]*models.Pool
	members        map[string]*models.Member
	healthMonitors map[string]*models.HealthMonitor
	l7Policies     map[string]*models.L7Policy
	l7Rules        map[string]*models.L7Rule
	stats          map[string]*models.LoadBalancerStats
	agents         map[string]*models.Agent
	bindings       map[string]string // loadbalancer id -> agent id
}

// NewMemory returns an empty store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		loadBalancers:  map[string]*models.LoadBalancer{},
		listeners:      map[string]*models.Listener{},
		pools:          map[string]*models.Pool{},
		members:        map[string]*models.Member{},
		healthMonitors: map[string]*models.HealthMonitor{},
		l7Policies:     map[string]*models.L7Policy{},
		l7Rules:        map[string]*models.L7Rule{},
		stats:          map[string]*models.LoadBalancerStats{},
		agents:         map[string]*models.Agent{},
		bindings:       map[string]string{},
	}
}

// NewID returns a fresh opaque 36-character identifier.
func NewID() string {
	return uuid.New().String()
}

type snapshot struct {
	loadBalancers  map[string]*models.LoadBalancer
	listeners      map[string]*models.Listener
	pools          map[string]*models.Pool
	members        map[string]*models.Member
	healthMonitors map[string]*models.HealthMonitor
	l7Policies     map[string]*models.L7Policy
	l7Rules        map[string]*models.L7Rule
	stats          map[string]*models.LoadBalancerStats
	agents         map[string]*models.Agent
	bindings       map[string]string
}

func (s *MemoryStore) snapshotLocked() *snapshot {
	snap := &snapshot{
		loadBalancers:  make(map[string]*models.LoadBalancer, len(s.loadBalancers)),
		listeners:      make(map[string]*models.Listener, len(s.listeners)),
		pools:          make(map[string]*models.Pool, len(s.pools)),
		members:        make(map[string]*models.Member, len(s.members)),
		healthMonitors: make(map[string]*models.HealthMonitor, len(s.healthMonitors)),
		l7Policies:     make(map[string]*models.L7Policy, len(s.l7Policies)),
		l7Rules:        make(map[string]*models.L7Rule, len(s.l7Rules)),
		stats:          make(map[string]*models.LoadBalancerStats, len(s.stats)),
		agents:         make(map[string]*models.Agent, len(s.agents)),
		bindings:       make(map[string]string, len(s.bindings)),
	}
	for k, v := range s.loadBalancers {
		snap.loadBalancers[k] = v.DeepCopy()
	}
	for k, v := range s.listeners {
		snap.listeners[k] = v.DeepCopy()
	}
	for k, v := range s.pools {
		snap.pools[k] = v.DeepCopy()
	}
	for k, v := range s.members {
		snap.members[k] = v.DeepCopy()
	}
	for k, v := range s.healthMonitors {
		snap.healthMonitors[k] = v.DeepCopy()
	}
	for k, v := range s.l7Policies {
		snap.l7Policies[k] = v.DeepCopy()
	}
	for k, v := range s.l7Rules {
		snap.l7Rules[k] = v.DeepCopy()
	}
	for k, v := range s.stats {
		stats := *v
		snap.stats[k] = &stats
	}
	for k, v := range s.agents {
		snap.agents[k] = v.DeepCopy()
	}
	for k, v := range s.bindings {
		snap.bindings[k] = v
	}
	return snap
}

func (s *MemoryStore) restoreLocked(snap *snapshot) {
	s.loadBalancers = snap.loadBalancers
	s.listeners = snap.listeners
	s.pools = snap.pools
	s.members = snap.members
	s.healthMonitors = snap.healthMonitors
	s.l7Policies = snap.l7Policies
	s.l7Rules = snap.l7Rules
	s.stats = snap.stats
	s.agents = snap.agents
	s.bindings = snap.bindings
}

// Txn is a handle on an open transaction. All mutations go through a Txn;
// when the transaction body returns an error every change made through the
// handle is rolled back.
type Txn struct {
	s *MemoryStore
}

// WithTransaction runs fn under the store lock. If fn returns an error the
// store is restored to its state at entry. Transactions nest: an inner
// WithTransaction rolls back only its own changes.
func (s *MemoryStore) WithTransaction(fn func(tx *Txn) error) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.runLocked(fn)
}

// WithTransaction opens a nested transaction on an already-open one.
func (tx *Txn) WithTransaction(fn func(tx *Txn) error) error {
	return tx.s.runLocked(fn)
}

func (s *MemoryStore) runLocked(fn func(tx *Txn) error) error {
	snap := s.snapshotLocked()
	if err := fn(&Txn{s: s}); err != nil {
		s.restoreLocked(snap)
		return err
	}
	return nil
}
