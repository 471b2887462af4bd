// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package scheduler assigns load balancers to agents. An agent is eligible
// when it is administratively up, advertises the required device driver and
// has reported within the heartbeat window.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openlbaas/openlbaas/pkg/lock"
	"github.com/openlbaas/openlbaas/pkg/logging"
	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
	"github.com/openlbaas/openlbaas/pkg/models"
	"github.com/openlbaas/openlbaas/pkg/store"
)

var log = logging.DefaultLogger.WithField(logfields.LogSubsys, "scheduler")

// NoEligibleAgentError is returned when no live agent can host a load
// balancer. Surfaces as 503.
type NoEligibleAgentError struct {
	LoadBalancerID string
	DeviceDriver   string
}

func (e *NoEligibleAgentError) Error() string {
	return fmt.Sprintf("no eligible agent found for loadbalancer %s (device driver %s)",
		e.LoadBalancerID, e.DeviceDriver)
}

// Policy picks one agent out of the eligible candidates. Candidates is never
// empty.
type Policy interface {
	Select(candidates []*models.Agent) *models.Agent
}

// ChancePolicy selects an agent at random.
type ChancePolicy struct {
	mutex lock.Mutex
	rng   *rand.Rand
}

// NewChancePolicy returns a randomized selection policy.
func NewChancePolicy() *ChancePolicy {
	return &ChancePolicy{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Select implements Policy.
func (p *ChancePolicy) Select(candidates []*models.Agent) *models.Agent {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return candidates[p.rng.Intn(len(candidates))]
}

// DeviceDriverResolver maps a load balancer to the device driver name its
// provider requires. Wired to the driver registry by the daemon.
type DeviceDriverResolver func(lbID string) (string, error)

// Scheduler binds load balancers to agents and reassigns bindings whose
// agent has gone dead.
type Scheduler struct {
	db              *store.MemoryStore
	policy          Policy
	heartbeatWindow time.Duration
	deadFactor      int
	resolver        DeviceDriverResolver
}

// DefaultDeadFactor is the number of missed heartbeat windows after which a
// binding is considered orphaned.
const DefaultDeadFactor = 2

// New returns a scheduler over the given repository.
func New(db *store.MemoryStore, policy Policy, heartbeatWindow time.Duration, resolver DeviceDriverResolver) *Scheduler {
	return &Scheduler{
		db:              db,
		policy:          policy,
		heartbeatWindow: heartbeatWindow,
		deadFactor:      DefaultDeadFactor,
		resolver:        resolver,
	}
}

// IsAlive reports whether the agent heartbeated within the window.
func (s *Scheduler) IsAlive(a *models.Agent) bool {
	return time.Since(a.LastSeen) < s.heartbeatWindow
}

// isDead reports whether the agent has been silent long enough for its
// bindings to be taken away.
func (s *Scheduler) isDead(a *models.Agent) bool {
	return time.Since(a.LastSeen) > s.heartbeatWindow*time.Duration(s.deadFactor)
}

func (s *Scheduler) eligibleAgents(deviceDriver string) []*models.Agent {
	var out []*models.Agent
	for _, a := range s.db.ListAgents() {
		if !a.AdminStateUp || !s.IsAlive(a) || !a.HasDeviceDriver(deviceDriver) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Schedule binds the load balancer to an eligible agent and returns it. An
// existing binding is returned unchanged.
func (s *Scheduler) Schedule(lbID, deviceDriver string) (*models.Agent, error) {
	if agent, err := s.db.GetAgentForLoadBalancer(lbID); err == nil {
		return agent, nil
	}

	candidates := s.eligibleAgents(deviceDriver)
	if len(candidates) == 0 {
		return nil, &NoEligibleAgentError{LoadBalancerID: lbID, DeviceDriver: deviceDriver}
	}
	agent := s.policy.Select(candidates)
	if err := s.db.BindAgent(lbID, agent.ID); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		logfields.LoadBalancerID: lbID,
		logfields.AgentID:        agent.ID,
		logfields.AgentHost:      agent.Host,
	}).Info("Scheduled loadbalancer to agent")
	return agent, nil
}

// AgentFor returns the agent currently bound to the load balancer.
func (s *Scheduler) AgentFor(lbID string) (*models.Agent, error) {
	return s.db.GetAgentForLoadBalancer(lbID)
}

// RescheduleOrphaned walks the bindings and reassigns load balancers whose
// agent has been dead for longer than the heartbeat window. Run periodically
// from a controller.
func (s *Scheduler) RescheduleOrphaned(ctx context.Context) (int, error) {
	moved := 0
	for _, binding := range s.db.ListBindings() {
		select {
		case <-ctx.Done():
			return moved, ctx.Err()
		default:
		}

		agent, err := s.db.GetAgent(binding.AgentID)
		if err == nil && !s.isDead(agent) {
			continue
		}

		deviceDriver, err := s.resolver(binding.LoadBalancerID)
		if err != nil {
			log.WithError(err).WithField(logfields.LoadBalancerID, binding.LoadBalancerID).
				Warn("Cannot resolve device driver for orphaned loadbalancer")
			continue
		}

		s.db.UnbindAgent(binding.LoadBalancerID)
		if _, err := s.Schedule(binding.LoadBalancerID, deviceDriver); err != nil {
			log.WithError(err).WithField(logfields.LoadBalancerID, binding.LoadBalancerID).
				Warn("Failed to reschedule orphaned loadbalancer")
			continue
		}
		moved++
	}
	return moved, nil
}
