// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package scheduler

import (
	"context"
	"testing"
	"time"

	. "gopkg.in/check.v1"

	"github.com/openlbaas/openlbaas/pkg/models"
	"github.com/openlbaas/openlbaas/pkg/store"
)

func Test(t *testing.T) {
	TestingT(t)
}

type SchedulerSuite struct {
	db *store.MemoryStore
}

var _ = Suite(&SchedulerSuite{})

func (s *SchedulerSuite) SetUpTest(c *C) {
	s.db = store.NewMemory()
}

// firstPolicy deterministically picks the first candidate.
type firstPolicy struct{}

func (firstPolicy) Select(candidates []*models.Agent) *models.Agent {
	return candidates[0]
}

func staticResolver(name string) DeviceDriverResolver {
	return func(string) (string, error) { return name, nil }
}

func (s *SchedulerSuite) newScheduler(window time.Duration) *Scheduler {
	return New(s.db, firstPolicy{}, window, staticResolver("haproxy_ns"))
}

func (s *SchedulerSuite) addAgent(c *C, host string, drivers []string) *models.Agent {
	a, err := s.db.UpsertAgent(&models.Agent{Host: host, DeviceDrivers: drivers})
	c.Assert(err, IsNil)
	return a
}

func (s *SchedulerSuite) addLB(c *C) *models.LoadBalancer {
	var lb *models.LoadBalancer
	err := s.db.WithTransaction(func(tx *store.Txn) error {
		var err error
		lb, err = tx.CreateLoadBalancer(&models.LoadBalancer{
			AdminStateUp:       true,
			ProvisioningStatus: models.StatusActive,
		})
		return err
	})
	c.Assert(err, IsNil)
	return lb
}

func (s *SchedulerSuite) TestSchedule(c *C) {
	sched := s.newScheduler(30 * time.Second)
	agent := s.addAgent(c, "host1", []string{"haproxy_ns"})
	lb := s.addLB(c)

	got, err := sched.Schedule(lb.ID, "haproxy_ns")
	c.Assert(err, IsNil)
	c.Assert(got.ID, Equals, agent.ID)

	bound, err := s.db.GetAgentForLoadBalancer(lb.ID)
	c.Assert(err, IsNil)
	c.Assert(bound.ID, Equals, agent.ID)
}

func (s *SchedulerSuite) TestScheduleExistingBindingStable(c *C) {
	sched := s.newScheduler(30 * time.Second)
	first := s.addAgent(c, "host1", []string{"haproxy_ns"})
	lb := s.addLB(c)

	got, err := sched.Schedule(lb.ID, "haproxy_ns")
	c.Assert(err, IsNil)
	c.Assert(got.ID, Equals, first.ID)

	// More agents joining does not move the binding.
	s.addAgent(c, "host0", []string{"haproxy_ns"})
	again, err := sched.Schedule(lb.ID, "haproxy_ns")
	c.Assert(err, IsNil)
	c.Assert(again.ID, Equals, first.ID)
}

func (s *SchedulerSuite) TestScheduleNoEligibleAgent(c *C) {
	sched := s.newScheduler(30 * time.Second)
	lb := s.addLB(c)

	// No agents at all.
	_, err := sched.Schedule(lb.ID, "haproxy_ns")
	var noAgent *NoEligibleAgentError
	c.Assert(err, FitsTypeOf, noAgent)

	// An agent with the wrong device driver does not qualify.
	s.addAgent(c, "host1", []string{"other_driver"})
	_, err = sched.Schedule(lb.ID, "haproxy_ns")
	c.Assert(err, FitsTypeOf, noAgent)

	// Nor does an administratively disabled one.
	down := s.addAgent(c, "host2", []string{"haproxy_ns"})
	c.Assert(s.db.SetAgentAdminStateUp(down.ID, false), IsNil)
	_, err = sched.Schedule(lb.ID, "haproxy_ns")
	c.Assert(err, FitsTypeOf, noAgent)
}

func (s *SchedulerSuite) TestScheduleSkipsStaleAgent(c *C) {
	// A tiny window makes the freshly upserted agent immediately stale.
	sched := s.newScheduler(time.Nanosecond)
	s.addAgent(c, "host1", []string{"haproxy_ns"})
	lb := s.addLB(c)

	time.Sleep(time.Millisecond)
	_, err := sched.Schedule(lb.ID, "haproxy_ns")
	var noAgent *NoEligibleAgentError
	c.Assert(err, FitsTypeOf, noAgent)
}

func (s *SchedulerSuite) TestRescheduleOrphaned(c *C) {
	sched := s.newScheduler(time.Millisecond)
	dead := s.addAgent(c, "dead", []string{"haproxy_ns"})
	lb := s.addLB(c)
	c.Assert(s.db.BindAgent(lb.ID, dead.ID), IsNil)

	// Let the dead agent age past the dead factor, then register a live
	// replacement.
	time.Sleep(5 * time.Millisecond)
	live, err := s.db.UpsertAgent(&models.Agent{Host: "live", DeviceDrivers: []string{"haproxy_ns"}})
	c.Assert(err, IsNil)

	moved, err := sched.RescheduleOrphaned(context.Background())
	c.Assert(err, IsNil)
	c.Assert(moved, Equals, 1)

	bound, err := s.db.GetAgentForLoadBalancer(lb.ID)
	c.Assert(err, IsNil)
	c.Assert(bound.ID, Equals, live.ID)
}

func (s *SchedulerSuite) TestRescheduleKeepsLiveBindings(c *C) {
	sched := s.newScheduler(time.Hour)
	agent := s.addAgent(c, "host1", []string{"haproxy_ns"})
	lb := s.addLB(c)
	c.Assert(s.db.BindAgent(lb.ID, agent.ID), IsNil)

	moved, err := sched.RescheduleOrphaned(context.Background())
	c.Assert(err, IsNil)
	c.Assert(moved, Equals, 0)

	bound, err := s.db.GetAgentForLoadBalancer(lb.ID)
	c.Assert(err, IsNil)
	c.Assert(bound.ID, Equals, agent.ID)
}

func (s *SchedulerSuite) TestRescheduleNoReplacementKeepsUnbound(c *C) {
	sched := s.newScheduler(time.Millisecond)
	dead := s.addAgent(c, "dead", []string{"haproxy_ns"})
	lb := s.addLB(c)
	c.Assert(s.db.BindAgent(lb.ID, dead.ID), IsNil)
	time.Sleep(5 * time.Millisecond)

	moved, err := sched.RescheduleOrphaned(context.Background())
	c.Assert(err, IsNil)
	c.Assert(moved, Equals, 0)

	// The stale binding is gone so a later sweep can retry.
	_, err = s.db.GetAgentForLoadBalancer(lb.ID)
	c.Assert(store.IsNotFound(err), Equals, true)
}

func (s *SchedulerSuite) TestChancePolicy(c *C) {
	policy := NewChancePolicy()
	agents := []*models.Agent{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		seen[policy.Select(agents).ID] = true
	}
	c.Assert(seen, HasLen, 3)
}
