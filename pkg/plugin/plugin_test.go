// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package plugin

import (
	"context"
	"fmt"
	"testing"

	. "gopkg.in/check.v1"

	"github.com/openlbaas/openlbaas/pkg/agentrpc"
	"github.com/openlbaas/openlbaas/pkg/certmgr"
	"github.com/openlbaas/openlbaas/pkg/corenet"
	"github.com/openlbaas/openlbaas/pkg/driver"
	"github.com/openlbaas/openlbaas/pkg/models"
	"github.com/openlbaas/openlbaas/pkg/store"
)

func Test(t *testing.T) {
	TestingT(t)
}

// fakeBackend is a synchronous driver that records every call and fails on
// demand. All managers share it.
type fakeBackend struct {
	calls           []string
	failOn          map[string]bool
	allocatesVIP    bool
	allowGraph      bool
	allowThresholds bool
	noL7            bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		failOn:          map[string]bool{},
		allowGraph:      true,
		allowThresholds: true,
	}
}

func (b *fakeBackend) call(op string) error {
	b.calls = append(b.calls, op)
	if b.failOn[op] {
		return fmt.Errorf("injected %s failure", op)
	}
	return nil
}

func (b *fakeBackend) count(op string) int {
	n := 0
	for _, c := range b.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (b *fakeBackend) driver() *driver.Driver {
	d := &driver.Driver{
		Name:             "plugintest",
		LoadBalancer:     &fakeLBManager{b},
		Listener:         &fakeListenerManager{b},
		Pool:             &fakePoolManager{b},
		Member:           &fakeMemberManager{b},
		HealthMonitor:    &fakeMonitorManager{b},
		RequiresAgent:    true,
		DeviceDriverName: "fake_ns",
	}
	if !b.noL7 {
		d.L7Policy = &fakePolicyManager{b}
		d.L7Rule = &fakeRuleManager{b}
	}
	return d
}

type fakeLBManager struct{ b *fakeBackend }

func (f *fakeLBManager) Create(ctx context.Context, lb *models.LoadBalancer) error {
	return f.b.call("loadbalancer.create")
}

func (f *fakeLBManager) Update(ctx context.Context, old, new *models.LoadBalancer) error {
	return f.b.call("loadbalancer.update")
}

func (f *fakeLBManager) Delete(ctx context.Context, lb *models.LoadBalancer) error {
	return f.b.call("loadbalancer.delete")
}

func (f *fakeLBManager) Refresh(ctx context.Context, lb *models.LoadBalancer) error {
	return f.b.call("loadbalancer.refresh")
}

func (f *fakeLBManager) Stats(ctx context.Context, lb *models.LoadBalancer) (*models.LoadBalancerStats, error) {
	return &models.LoadBalancerStats{}, f.b.call("loadbalancer.stats")
}

func (f *fakeLBManager) CreateGraph(ctx context.Context, lb *models.LoadBalancer) error {
	return f.b.call("loadbalancer.create_graph")
}

func (f *fakeLBManager) StatusAuthoritative() bool           { return false }
func (f *fakeLBManager) AllocatesVIP() bool                  { return f.b.allocatesVIP }
func (f *fakeLBManager) AllowsCreateGraph() bool             { return f.b.allowGraph }
func (f *fakeLBManager) AllowsHealthMonitorThresholds() bool { return f.b.allowThresholds }

type fakeListenerManager struct{ b *fakeBackend }

func (f *fakeListenerManager) Create(ctx context.Context, l *models.Listener) error {
	return f.b.call("listener.create")
}

func (f *fakeListenerManager) Update(ctx context.Context, old, new *models.Listener) error {
	return f.b.call("listener.update")
}

func (f *fakeListenerManager) Delete(ctx context.Context, l *models.Listener) error {
	return f.b.call("listener.delete")
}

func (f *fakeListenerManager) StatusAuthoritative() bool { return false }

type fakePoolManager struct{ b *fakeBackend }

func (f *fakePoolManager) Create(ctx context.Context, p *models.Pool) error {
	return f.b.call("pool.create")
}

func (f *fakePoolManager) Update(ctx context.Context, old, new *models.Pool) error {
	return f.b.call("pool.update")
}

func (f *fakePoolManager) Delete(ctx context.Context, p *models.Pool) error {
	return f.b.call("pool.delete")
}

func (f *fakePoolManager) StatusAuthoritative() bool { return false }

type fakeMemberManager struct{ b *fakeBackend }

func (f *fakeMemberManager) Create(ctx context.Context, m *models.Member) error {
	return f.b.call("member.create")
}

func (f *fakeMemberManager) Update(ctx context.Context, old, new *models.Member) error {
	return f.b.call("member.update")
}

func (f *fakeMemberManager) Delete(ctx context.Context, m *models.Member) error {
	return f.b.call("member.delete")
}

func (f *fakeMemberManager) StatusAuthoritative() bool { return false }

type fakeMonitorManager struct{ b *fakeBackend }

func (f *fakeMonitorManager) Create(ctx context.Context, hm *models.HealthMonitor) error {
	return f.b.call("healthmonitor.create")
}

func (f *fakeMonitorManager) Update(ctx context.Context, old, new *models.HealthMonitor) error {
	return f.b.call("healthmonitor.update")
}

func (f *fakeMonitorManager) Delete(ctx context.Context, hm *models.HealthMonitor) error {
	return f.b.call("healthmonitor.delete")
}

func (f *fakeMonitorManager) StatusAuthoritative() bool { return false }

type fakePolicyManager struct{ b *fakeBackend }

func (f *fakePolicyManager) Create(ctx context.Context, p *models.L7Policy) error {
	return f.b.call("l7policy.create")
}

func (f *fakePolicyManager) Update(ctx context.Context, old, new *models.L7Policy) error {
	return f.b.call("l7policy.update")
}

func (f *fakePolicyManager) Delete(ctx context.Context, p *models.L7Policy) error {
	return f.b.call("l7policy.delete")
}

func (f *fakePolicyManager) StatusAuthoritative() bool { return false }

type fakeRuleManager struct{ b *fakeBackend }

func (f *fakeRuleManager) Create(ctx context.Context, r *models.L7Rule) error {
	return f.b.call("l7rule.create")
}

func (f *fakeRuleManager) Update(ctx context.Context, old, new *models.L7Rule) error {
	return f.b.call("l7rule.update")
}

func (f *fakeRuleManager) Delete(ctx context.Context, r *models.L7Rule) error {
	return f.b.call("l7rule.delete")
}

func (f *fakeRuleManager) StatusAuthoritative() bool { return false }

type PluginSuite struct {
	db      *store.MemoryStore
	net     *corenet.Memory
	certs   *certmgr.Memory
	backend *fakeBackend
	plugin  *Plugin
	ctx     context.Context
}

var _ = Suite(&PluginSuite{})

func (s *PluginSuite) SetUpTest(c *C) {
	s.db = store.NewMemory()
	s.net = corenet.NewMemory()
	_, err := s.net.AddSubnet(&corenet.Subnet{ID: "sub1", CIDR: "192.0.2.0/24", NetworkID: "net1"})
	c.Assert(err, IsNil)
	s.certs = certmgr.NewMemory()
	s.backend = newFakeBackend()
	s.plugin = s.newPlugin(c, s.backend)
	s.ctx = context.Background()
}

func (s *PluginSuite) newPlugin(c *C, b *fakeBackend) *Plugin {
	driver.RegisterFactory("plugintest", func() (*driver.Driver, error) {
		return b.driver(), nil
	})
	reg, err := driver.NewRegistry([]string{"LOADBALANCERV2:lbaas:plugintest:default"})
	c.Assert(err, IsNil)
	return New(s.db, reg, s.net, s.certs)
}

func (s *PluginSuite) createLB(c *C) *models.LoadBalancer {
	lb, err := s.plugin.CreateLoadBalancer(s.ctx, &models.LoadBalancer{
		Name:         "web",
		VIPSubnetID:  "sub1",
		AdminStateUp: true,
	})
	c.Assert(err, IsNil)
	return lb
}

func (s *PluginSuite) createListener(c *C, lbID string, port int) *models.Listener {
	l, err := s.plugin.CreateListener(s.ctx, &models.Listener{
		LoadBalancerID: lbID,
		Protocol:       models.ProtocolHTTP,
		ProtocolPort:   port,
		AdminStateUp:   true,
	})
	c.Assert(err, IsNil)
	return l
}

func (s *PluginSuite) createPool(c *C, listenerID string) *models.Pool {
	pool, err := s.plugin.CreatePool(s.ctx, &models.Pool{
		ListenerID:   listenerID,
		Protocol:     models.ProtocolHTTP,
		LBAlgorithm:  models.AlgorithmRoundRobin,
		AdminStateUp: true,
	})
	c.Assert(err, IsNil)
	return pool
}

func (s *PluginSuite) createMember(c *C, poolID, address string) *models.Member {
	m, err := s.plugin.CreateMember(s.ctx, poolID, &models.Member{
		Address:      address,
		ProtocolPort: 8080,
		Weight:       1,
		AdminStateUp: true,
	})
	c.Assert(err, IsNil)
	return m
}

func (s *PluginSuite) TestCreateLoadBalancer(c *C) {
	lb := s.createLB(c)

	c.Assert(lb.Provider, Equals, "lbaas")
	c.Assert(lb.ProvisioningStatus, Equals, models.StatusActive)
	c.Assert(lb.OperatingStatus, Equals, models.OperatingOnline)
	c.Assert(lb.VIPAddress, Equals, "192.0.2.1")
	c.Assert(lb.VIPSubnetID, Equals, "sub1")
	c.Assert(lb.VIPPortOwned, Equals, true)

	port, err := s.net.GetPort(lb.VIPPortID)
	c.Assert(err, IsNil)
	c.Assert(port.DeviceID, Equals, lb.ID)
	c.Assert(s.backend.count("loadbalancer.create"), Equals, 1)
}

func (s *PluginSuite) TestCreateLoadBalancerByNetwork(c *C) {
	lb, err := s.plugin.CreateLoadBalancer(s.ctx, &models.LoadBalancer{
		VIPNetworkID: "net1",
		AdminStateUp: true,
	})
	c.Assert(err, IsNil)
	c.Assert(lb.VIPSubnetID, Equals, "sub1")
}

func (s *PluginSuite) TestCreateLoadBalancerValidation(c *C) {
	for _, tc := range []struct {
		lb  *models.LoadBalancer
		why string
	}{
		{&models.LoadBalancer{}, "no subnet or network"},
		{&models.LoadBalancer{VIPSubnetID: "sub1", VIPNetworkID: "net1"}, "both subnet and network"},
		{&models.LoadBalancer{VIPSubnetID: "sub1", VIPAddress: "not-an-ip"}, "malformed vip address"},
		{&models.LoadBalancer{VIPSubnetID: "sub1", VIPAddress: "10.9.9.9"}, "vip outside subnet"},
		{&models.LoadBalancer{VIPSubnetID: "missing"}, "unknown subnet"},
		{&models.LoadBalancer{VIPSubnetID: "sub1", Provider: "ghost"}, "unknown provider"},
	} {
		_, err := s.plugin.CreateLoadBalancer(s.ctx, tc.lb)
		c.Assert(IsValidationError(err), Equals, true, Commentf("%s: %v", tc.why, err))
	}
	c.Assert(s.db.ListLoadBalancers(store.ListOpts{}), HasLen, 0)
	c.Assert(s.backend.count("loadbalancer.create"), Equals, 0)
}

func (s *PluginSuite) TestCreateLoadBalancerDriverFailure(c *C) {
	s.backend.failOn["loadbalancer.create"] = true

	_, err := s.plugin.CreateLoadBalancer(s.ctx, &models.LoadBalancer{
		VIPSubnetID:  "sub1",
		AdminStateUp: true,
	})
	c.Assert(driver.IsDriverError(err), Equals, true)
	c.Assert(s.db.ListLoadBalancers(store.ListOpts{}), HasLen, 0)

	// The VIP port was rolled back too.
	probe, err := s.net.AllocatePort("sub1", "", "probe")
	c.Assert(err, IsNil)
	c.Assert(probe.IPAddress, Equals, "192.0.2.1")
}

func (s *PluginSuite) TestUpdateLoadBalancer(c *C) {
	lb := s.createLB(c)

	name := "edge"
	down := false
	got, err := s.plugin.UpdateLoadBalancer(s.ctx, lb.ID, &models.LoadBalancerUpdate{
		Name:         &name,
		AdminStateUp: &down,
	})
	c.Assert(err, IsNil)
	c.Assert(got.Name, Equals, "edge")
	c.Assert(got.AdminStateUp, Equals, false)
	c.Assert(got.ProvisioningStatus, Equals, models.StatusActive)
	c.Assert(got.OperatingStatus, Equals, models.OperatingDisabled)
	c.Assert(s.backend.count("loadbalancer.update"), Equals, 1)
}

func (s *PluginSuite) TestUpdateLoadBalancerDriverFailure(c *C) {
	lb := s.createLB(c)
	s.backend.failOn["loadbalancer.update"] = true

	name := "edge"
	_, err := s.plugin.UpdateLoadBalancer(s.ctx, lb.ID, &models.LoadBalancerUpdate{Name: &name})
	c.Assert(driver.IsDriverError(err), Equals, true)

	row, err := s.db.GetLoadBalancer(lb.ID)
	c.Assert(err, IsNil)
	c.Assert(row.ProvisioningStatus, Equals, models.StatusActive)
}

func (s *PluginSuite) TestUpdateLoadBalancerPendingConflict(c *C) {
	lb := s.createLB(c)
	c.Assert(s.db.UpdateStatus(store.KindLoadBalancer, lb.ID, models.StatusPendingUpdate, ""), IsNil)

	name := "edge"
	_, err := s.plugin.UpdateLoadBalancer(s.ctx, lb.ID, &models.LoadBalancerUpdate{Name: &name})
	c.Assert(store.IsStateError(err), Equals, true)
	c.Assert(s.backend.count("loadbalancer.update"), Equals, 0)
}

func (s *PluginSuite) TestDeleteLoadBalancer(c *C) {
	lb := s.createLB(c)

	c.Assert(s.plugin.DeleteLoadBalancer(s.ctx, lb.ID), IsNil)
	_, err := s.db.GetLoadBalancer(lb.ID)
	c.Assert(store.IsNotFound(err), Equals, true)
	c.Assert(s.backend.count("loadbalancer.delete"), Equals, 1)

	probe, err := s.net.AllocatePort("sub1", "", "probe")
	c.Assert(err, IsNil)
	c.Assert(probe.IPAddress, Equals, "192.0.2.1")
}

func (s *PluginSuite) TestDeleteLoadBalancerWithChildren(c *C) {
	lb := s.createLB(c)
	s.createListener(c, lb.ID, 80)

	err := s.plugin.DeleteLoadBalancer(s.ctx, lb.ID)
	c.Assert(store.IsInUse(err), Equals, true)
	c.Assert(s.backend.count("loadbalancer.delete"), Equals, 0)
}

func (s *PluginSuite) TestDeleteLoadBalancerDriverFailure(c *C) {
	lb := s.createLB(c)
	s.backend.failOn["loadbalancer.delete"] = true

	err := s.plugin.DeleteLoadBalancer(s.ctx, lb.ID)
	c.Assert(driver.IsDriverError(err), Equals, true)

	// The row survives for the operator, flagged ERROR.
	row, err := s.db.GetLoadBalancer(lb.ID)
	c.Assert(err, IsNil)
	c.Assert(row.ProvisioningStatus, Equals, models.StatusError)
}

func (s *PluginSuite) TestCreateListener(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)

	c.Assert(l.ProvisioningStatus, Equals, models.StatusActive)
	c.Assert(s.backend.count("listener.create"), Equals, 1)

	root, err := s.db.GetLoadBalancer(lb.ID)
	c.Assert(err, IsNil)
	c.Assert(root.ProvisioningStatus, Equals, models.StatusActive)

	// A second listener on the same port collides; the root gate is rolled
	// back with the row.
	_, err = s.plugin.CreateListener(s.ctx, &models.Listener{
		LoadBalancerID: lb.ID,
		Protocol:       models.ProtocolHTTP,
		ProtocolPort:   80,
		AdminStateUp:   true,
	})
	c.Assert(store.IsDuplicate(err), Equals, true)
	root, err = s.db.GetLoadBalancer(lb.ID)
	c.Assert(err, IsNil)
	c.Assert(root.ProvisioningStatus, Equals, models.StatusActive)
}

func (s *PluginSuite) TestCreateListenerTLS(c *C) {
	lb := s.createLB(c)

	// TERMINATED_HTTPS requires a container reference.
	_, err := s.plugin.CreateListener(s.ctx, &models.Listener{
		LoadBalancerID: lb.ID,
		Protocol:       models.ProtocolTerminatedHTTPS,
		ProtocolPort:   443,
		AdminStateUp:   true,
	})
	c.Assert(IsValidationError(err), Equals, true)

	// The reference must resolve.
	_, err = s.plugin.CreateListener(s.ctx, &models.Listener{
		LoadBalancerID:         lb.ID,
		Protocol:               models.ProtocolTerminatedHTTPS,
		ProtocolPort:           443,
		DefaultTLSContainerRef: "ref1",
		AdminStateUp:           true,
	})
	c.Assert(certmgr.IsNotFound(err), Equals, true)

	// A resolvable but incomplete container is rejected.
	s.certs.AddCert(&certmgr.Certificate{Ref: "partial", Certificate: "cert"})
	_, err = s.plugin.CreateListener(s.ctx, &models.Listener{
		LoadBalancerID:         lb.ID,
		Protocol:               models.ProtocolTerminatedHTTPS,
		ProtocolPort:           443,
		DefaultTLSContainerRef: "partial",
		AdminStateUp:           true,
	})
	c.Assert(certmgr.IsInvalid(err), Equals, true)

	s.certs.AddCert(&certmgr.Certificate{Ref: "ref1", Certificate: "cert", PrivateKey: "key"})
	l, err := s.plugin.CreateListener(s.ctx, &models.Listener{
		LoadBalancerID:         lb.ID,
		Protocol:               models.ProtocolTerminatedHTTPS,
		ProtocolPort:           443,
		DefaultTLSContainerRef: "ref1",
		AdminStateUp:           true,
	})
	c.Assert(err, IsNil)
	c.Assert(l.ProvisioningStatus, Equals, models.StatusActive)

	// TLS references on a plain protocol are rejected.
	_, err = s.plugin.CreateListener(s.ctx, &models.Listener{
		LoadBalancerID:         lb.ID,
		Protocol:               models.ProtocolHTTP,
		ProtocolPort:           80,
		DefaultTLSContainerRef: "ref1",
		AdminStateUp:           true,
	})
	c.Assert(IsValidationError(err), Equals, true)
}

func (s *PluginSuite) TestCreateListenerDriverFailure(c *C) {
	lb := s.createLB(c)
	s.backend.failOn["listener.create"] = true

	_, err := s.plugin.CreateListener(s.ctx, &models.Listener{
		LoadBalancerID: lb.ID,
		Protocol:       models.ProtocolHTTP,
		ProtocolPort:   80,
		AdminStateUp:   true,
	})
	c.Assert(driver.IsDriverError(err), Equals, true)

	// The listener row stays behind in ERROR, the root is restored.
	listeners := s.db.ListListeners(store.ListOpts{})
	c.Assert(listeners, HasLen, 1)
	c.Assert(listeners[0].ProvisioningStatus, Equals, models.StatusError)
	root, err := s.db.GetLoadBalancer(lb.ID)
	c.Assert(err, IsNil)
	c.Assert(root.ProvisioningStatus, Equals, models.StatusActive)
}

func (s *PluginSuite) TestListenerDetachAndAttach(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)
	pool := s.createPool(c, l.ID)
	m := s.createMember(c, pool.ID, "10.0.0.1")

	// Detaching removes the listener from the backend and defers the
	// subtree.
	detached, err := s.plugin.UpdateListener(s.ctx, l.ID, &models.ListenerUpdate{ClearLoadBalancer: true})
	c.Assert(err, IsNil)
	c.Assert(detached.LoadBalancerID, Equals, "")
	c.Assert(detached.ProvisioningStatus, Equals, models.StatusDeferred)
	c.Assert(s.backend.count("listener.delete"), Equals, 1)

	row, err := s.db.GetPool(pool.ID)
	c.Assert(err, IsNil)
	c.Assert(row.ProvisioningStatus, Equals, models.StatusDeferred)
	mem, err := s.db.GetMember(m.ID)
	c.Assert(err, IsNil)
	c.Assert(mem.ProvisioningStatus, Equals, models.StatusDeferred)

	root, err := s.db.GetLoadBalancer(lb.ID)
	c.Assert(err, IsNil)
	c.Assert(root.ProvisioningStatus, Equals, models.StatusActive)

	// Deferred listeners accept updates without driver involvement.
	name := "standby"
	_, err = s.plugin.UpdateListener(s.ctx, l.ID, &models.ListenerUpdate{Name: &name})
	c.Assert(err, IsNil)
	c.Assert(s.backend.count("listener.update"), Equals, 0)

	// Re-attaching re-creates the listener and reactivates the subtree.
	lbID := lb.ID
	attached, err := s.plugin.UpdateListener(s.ctx, l.ID, &models.ListenerUpdate{LoadBalancerID: &lbID})
	c.Assert(err, IsNil)
	c.Assert(attached.LoadBalancerID, Equals, lb.ID)
	c.Assert(attached.ProvisioningStatus, Equals, models.StatusActive)
	c.Assert(s.backend.count("listener.create"), Equals, 2)

	row, err = s.db.GetPool(pool.ID)
	c.Assert(err, IsNil)
	c.Assert(row.ProvisioningStatus, Equals, models.StatusActive)
	mem, err = s.db.GetMember(m.ID)
	c.Assert(err, IsNil)
	c.Assert(mem.ProvisioningStatus, Equals, models.StatusActive)
}

func (s *PluginSuite) TestUpdateAttachedListenerDriverFailure(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)
	s.backend.failOn["listener.update"] = true

	name := "edge"
	_, err := s.plugin.UpdateListener(s.ctx, l.ID, &models.ListenerUpdate{Name: &name})
	c.Assert(driver.IsDriverError(err), Equals, true)

	row, err := s.db.GetListener(l.ID)
	c.Assert(err, IsNil)
	c.Assert(row.ProvisioningStatus, Equals, models.StatusActive)
	root, err := s.db.GetLoadBalancer(lb.ID)
	c.Assert(err, IsNil)
	c.Assert(root.ProvisioningStatus, Equals, models.StatusActive)
}

func (s *PluginSuite) TestDeleteListener(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)
	pool := s.createPool(c, l.ID)

	c.Assert(s.plugin.DeleteListener(s.ctx, l.ID), IsNil)
	c.Assert(s.backend.count("listener.delete"), Equals, 1)

	_, err := s.db.GetListener(l.ID)
	c.Assert(store.IsNotFound(err), Equals, true)

	// The pool survives, detached from the gone listener but still rooted
	// in the load balancer.
	row, err := s.db.GetPool(pool.ID)
	c.Assert(err, IsNil)
	c.Assert(row.ListenerID, Equals, "")
	c.Assert(row.LoadBalancerID, Equals, lb.ID)
	c.Assert(row.ProvisioningStatus, Equals, models.StatusActive)
}

func (s *PluginSuite) TestDeleteDetachedListener(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)

	_, err := s.plugin.UpdateListener(s.ctx, l.ID, &models.ListenerUpdate{ClearLoadBalancer: true})
	c.Assert(err, IsNil)
	deletes := s.backend.count("listener.delete")

	// Deleting a deferred listener never reaches the driver.
	c.Assert(s.plugin.DeleteListener(s.ctx, l.ID), IsNil)
	c.Assert(s.backend.count("listener.delete"), Equals, deletes)
	_, err = s.db.GetListener(l.ID)
	c.Assert(store.IsNotFound(err), Equals, true)
}

func (s *PluginSuite) TestCreatePool(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)
	pool := s.createPool(c, l.ID)

	c.Assert(pool.LoadBalancerID, Equals, lb.ID)
	c.Assert(pool.ProvisioningStatus, Equals, models.StatusActive)
	c.Assert(s.backend.count("pool.create"), Equals, 1)

	row, err := s.db.GetListener(l.ID)
	c.Assert(err, IsNil)
	c.Assert(row.DefaultPoolID, Equals, pool.ID)

	// One default pool per listener.
	_, err = s.plugin.CreatePool(s.ctx, &models.Pool{
		ListenerID:   l.ID,
		Protocol:     models.ProtocolHTTP,
		LBAlgorithm:  models.AlgorithmRoundRobin,
		AdminStateUp: true,
	})
	c.Assert(store.IsInUse(err), Equals, true)
}

func (s *PluginSuite) TestCreatePoolProtocolMismatch(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)

	_, err := s.plugin.CreatePool(s.ctx, &models.Pool{
		ListenerID:   l.ID,
		Protocol:     models.ProtocolTCP,
		LBAlgorithm:  models.AlgorithmRoundRobin,
		AdminStateUp: true,
	})
	c.Assert(IsProtocolMismatch(err), Equals, true)
	c.Assert(s.backend.count("pool.create"), Equals, 0)
}

func (s *PluginSuite) TestCreatePoolWithoutReference(c *C) {
	_, err := s.plugin.CreatePool(s.ctx, &models.Pool{
		Protocol:     models.ProtocolHTTP,
		LBAlgorithm:  models.AlgorithmRoundRobin,
		AdminStateUp: true,
	})
	c.Assert(IsValidationError(err), Equals, true)
}

func (s *PluginSuite) TestCreatePoolOnDetachedListener(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)
	_, err := s.plugin.UpdateListener(s.ctx, l.ID, &models.ListenerUpdate{ClearLoadBalancer: true})
	c.Assert(err, IsNil)

	pool, err := s.plugin.CreatePool(s.ctx, &models.Pool{
		ListenerID:   l.ID,
		Protocol:     models.ProtocolHTTP,
		LBAlgorithm:  models.AlgorithmRoundRobin,
		AdminStateUp: true,
	})
	c.Assert(err, IsNil)
	c.Assert(pool.ProvisioningStatus, Equals, models.StatusDeferred)
	c.Assert(s.backend.count("pool.create"), Equals, 0)
}

func (s *PluginSuite) TestDeletePoolRedirectTarget(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)
	s.createPool(c, l.ID)
	target, err := s.plugin.CreatePool(s.ctx, &models.Pool{
		LoadBalancerID: lb.ID,
		Protocol:       models.ProtocolHTTP,
		LBAlgorithm:    models.AlgorithmRoundRobin,
		AdminStateUp:   true,
	})
	c.Assert(err, IsNil)

	pol, err := s.plugin.CreateL7Policy(s.ctx, &models.L7Policy{
		ListenerID:     l.ID,
		Action:         models.L7PolicyActionRedirectToPool,
		RedirectPoolID: target.ID,
		Position:       1,
		AdminStateUp:   true,
	})
	c.Assert(err, IsNil)

	err = s.plugin.DeletePool(s.ctx, target.ID)
	c.Assert(store.IsInUse(err), Equals, true)

	c.Assert(s.plugin.DeleteL7Policy(s.ctx, pol.ID), IsNil)
	c.Assert(s.plugin.DeletePool(s.ctx, target.ID), IsNil)
	_, err = s.db.GetPool(target.ID)
	c.Assert(store.IsNotFound(err), Equals, true)
}

func (s *PluginSuite) TestCreateMember(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)
	pool := s.createPool(c, l.ID)

	m := s.createMember(c, pool.ID, "10.0.0.1")
	c.Assert(m.ProvisioningStatus, Equals, models.StatusActive)
	// Unmonitored pools report NO_MONITOR for their members.
	c.Assert(m.OperatingStatus, Equals, models.OperatingNoMonitor)
	c.Assert(s.backend.count("member.create"), Equals, 1)

	// The (address, port) tuple is unique per pool.
	_, err := s.plugin.CreateMember(s.ctx, pool.ID, &models.Member{
		Address:      "10.0.0.1",
		ProtocolPort: 8080,
		Weight:       1,
		AdminStateUp: true,
	})
	c.Assert(store.IsDuplicate(err), Equals, true)
}

func (s *PluginSuite) TestCreateMemberValidation(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)
	pool := s.createPool(c, l.ID)

	for _, tc := range []struct {
		m   *models.Member
		why string
	}{
		{&models.Member{ProtocolPort: 80, Weight: 1}, "missing address"},
		{&models.Member{Address: "nope", ProtocolPort: 80, Weight: 1}, "malformed address"},
		{&models.Member{Address: "10.0.0.1", ProtocolPort: 0, Weight: 1}, "port out of range"},
		{&models.Member{Address: "10.0.0.1", ProtocolPort: 80, Weight: 300}, "weight out of range"},
		{&models.Member{Address: "10.0.0.1", ProtocolPort: 80, Weight: 1, SubnetID: "missing"}, "unknown subnet"},
	} {
		_, err := s.plugin.CreateMember(s.ctx, pool.ID, tc.m)
		c.Assert(IsValidationError(err), Equals, true, Commentf("%s: %v", tc.why, err))
	}
	c.Assert(s.backend.count("member.create"), Equals, 0)
}

func (s *PluginSuite) TestMemberUpdateAndDelete(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)
	pool := s.createPool(c, l.ID)
	m := s.createMember(c, pool.ID, "10.0.0.1")

	weight := 5
	got, err := s.plugin.UpdateMember(s.ctx, pool.ID, m.ID, &models.MemberUpdate{Weight: &weight})
	c.Assert(err, IsNil)
	c.Assert(got.Weight, Equals, 5)
	c.Assert(s.backend.count("member.update"), Equals, 1)

	// Members are addressed through their pool.
	_, err = s.plugin.GetMember(s.ctx, "other-pool", m.ID)
	c.Assert(store.IsNotFound(err), Equals, true)

	c.Assert(s.plugin.DeleteMember(s.ctx, pool.ID, m.ID), IsNil)
	c.Assert(s.backend.count("member.delete"), Equals, 1)
	_, err = s.db.GetMember(m.ID)
	c.Assert(store.IsNotFound(err), Equals, true)
}

func (s *PluginSuite) TestCreateHealthMonitor(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)
	pool := s.createPool(c, l.ID)

	hm, err := s.plugin.CreateHealthMonitor(s.ctx, &models.HealthMonitor{
		PoolID:         pool.ID,
		Type:           models.HealthMonitorTCP,
		Delay:          5,
		Timeout:        3,
		MaxRetries:     2,
		MaxRetriesDown: 3,
		AdminStateUp:   true,
	})
	c.Assert(err, IsNil)
	c.Assert(hm.ProvisioningStatus, Equals, models.StatusActive)
	c.Assert(s.backend.count("healthmonitor.create"), Equals, 1)

	// One monitor per pool.
	_, err = s.plugin.CreateHealthMonitor(s.ctx, &models.HealthMonitor{
		PoolID:         pool.ID,
		Type:           models.HealthMonitorTCP,
		Delay:          5,
		Timeout:        3,
		MaxRetries:     2,
		MaxRetriesDown: 3,
		AdminStateUp:   true,
	})
	c.Assert(store.IsInUse(err), Equals, true)
}

func (s *PluginSuite) TestHealthMonitorThresholdClamp(c *C) {
	s.backend.allowThresholds = false
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)
	pool := s.createPool(c, l.ID)

	hm, err := s.plugin.CreateHealthMonitor(s.ctx, &models.HealthMonitor{
		PoolID:         pool.ID,
		Type:           models.HealthMonitorTCP,
		Delay:          5,
		Timeout:        3,
		MaxRetries:     2,
		MaxRetriesDown: 9,
		AdminStateUp:   true,
	})
	c.Assert(err, IsNil)
	c.Assert(hm.MaxRetriesDown, Equals, models.DefaultMaxRetriesDown)
}

func (s *PluginSuite) TestHealthMonitorValidation(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)
	pool := s.createPool(c, l.ID)

	for _, tc := range []struct {
		hm  *models.HealthMonitor
		why string
	}{
		{&models.HealthMonitor{PoolID: pool.ID, Type: models.HealthMonitorTCP,
			Delay: 3, Timeout: 5, MaxRetries: 2, MaxRetriesDown: 3}, "timeout exceeds delay"},
		{&models.HealthMonitor{PoolID: pool.ID, Type: models.HealthMonitorTCP,
			Delay: 5, Timeout: 3, MaxRetries: 0, MaxRetriesDown: 3}, "retries out of range"},
		{&models.HealthMonitor{PoolID: pool.ID, Type: models.HealthMonitorTCP,
			Delay: 5, Timeout: 3, MaxRetries: 2, MaxRetriesDown: 3, URLPath: "/"}, "http attrs on tcp"},
		{&models.HealthMonitor{PoolID: pool.ID, Type: models.HealthMonitorHTTP,
			Delay: 5, Timeout: 3, MaxRetries: 2, MaxRetriesDown: 3,
			HTTPMethod: "GET", URLPath: "/", ExpectedCodes: "banana"}, "malformed expected codes"},
	} {
		_, err := s.plugin.CreateHealthMonitor(s.ctx, tc.hm)
		c.Assert(IsValidationError(err), Equals, true, Commentf("%s: %v", tc.why, err))
	}
}

func (s *PluginSuite) TestL7PolicyOrdering(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)

	first, err := s.plugin.CreateL7Policy(s.ctx, &models.L7Policy{
		ListenerID:   l.ID,
		Action:       models.L7PolicyActionReject,
		Position:     1,
		AdminStateUp: true,
	})
	c.Assert(err, IsNil)
	c.Assert(first.Position, Equals, 1)
	c.Assert(first.ProvisioningStatus, Equals, models.StatusActive)

	// Inserting at the head shifts the existing policy down.
	second, err := s.plugin.CreateL7Policy(s.ctx, &models.L7Policy{
		ListenerID:   l.ID,
		Action:       models.L7PolicyActionRedirectToURL,
		RedirectURL:  "http://example.com/",
		Position:     1,
		AdminStateUp: true,
	})
	c.Assert(err, IsNil)
	c.Assert(second.Position, Equals, 1)

	row, err := s.db.GetL7Policy(first.ID)
	c.Assert(err, IsNil)
	c.Assert(row.Position, Equals, 2)

	// Deleting the head compacts the sequence.
	c.Assert(s.plugin.DeleteL7Policy(s.ctx, second.ID), IsNil)
	row, err = s.db.GetL7Policy(first.ID)
	c.Assert(err, IsNil)
	c.Assert(row.Position, Equals, 1)
}

func (s *PluginSuite) TestL7PolicyValidation(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)

	// Redirect actions demand their redirect attribute.
	_, err := s.plugin.CreateL7Policy(s.ctx, &models.L7Policy{
		ListenerID:   l.ID,
		Action:       models.L7PolicyActionRedirectToURL,
		RedirectURL:  "not a url",
		Position:     1,
		AdminStateUp: true,
	})
	c.Assert(IsL7PolicyAttributeError(err), Equals, true)

	_, err = s.plugin.CreateL7Policy(s.ctx, &models.L7Policy{
		ListenerID:   l.ID,
		Action:       models.L7PolicyActionRedirectToPool,
		Position:     1,
		AdminStateUp: true,
	})
	c.Assert(IsL7PolicyAttributeError(err), Equals, true)

	_, err = s.plugin.CreateL7Policy(s.ctx, &models.L7Policy{
		ListenerID:   l.ID,
		Action:       models.L7PolicyActionReject,
		AdminStateUp: true,
	})
	c.Assert(IsValidationError(err), Equals, true, Commentf("position 0"))
}

func (s *PluginSuite) TestL7PolicyRedirectAcrossLoadBalancers(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)

	other, err := s.plugin.CreateLoadBalancer(s.ctx, &models.LoadBalancer{
		VIPSubnetID:  "sub1",
		AdminStateUp: true,
	})
	c.Assert(err, IsNil)
	foreign, err := s.plugin.CreatePool(s.ctx, &models.Pool{
		LoadBalancerID: other.ID,
		Protocol:       models.ProtocolHTTP,
		LBAlgorithm:    models.AlgorithmRoundRobin,
		AdminStateUp:   true,
	})
	c.Assert(err, IsNil)

	_, err = s.plugin.CreateL7Policy(s.ctx, &models.L7Policy{
		ListenerID:     l.ID,
		Action:         models.L7PolicyActionRedirectToPool,
		RedirectPoolID: foreign.ID,
		Position:       1,
		AdminStateUp:   true,
	})
	c.Assert(IsValidationError(err), Equals, true)
}

func (s *PluginSuite) TestL7UnsupportedDriver(c *C) {
	backend := newFakeBackend()
	backend.noL7 = true
	plugin := s.newPlugin(c, backend)

	lb, err := plugin.CreateLoadBalancer(s.ctx, &models.LoadBalancer{
		VIPSubnetID:  "sub1",
		AdminStateUp: true,
	})
	c.Assert(err, IsNil)
	l, err := plugin.CreateListener(s.ctx, &models.Listener{
		LoadBalancerID: lb.ID,
		Protocol:       models.ProtocolHTTP,
		ProtocolPort:   80,
		AdminStateUp:   true,
	})
	c.Assert(err, IsNil)

	_, err = plugin.CreateL7Policy(s.ctx, &models.L7Policy{
		ListenerID:   l.ID,
		Action:       models.L7PolicyActionReject,
		Position:     1,
		AdminStateUp: true,
	})
	c.Assert(IsUnsupported(err), Equals, true)
}

func (s *PluginSuite) TestL7Rules(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)
	pol, err := s.plugin.CreateL7Policy(s.ctx, &models.L7Policy{
		ListenerID:   l.ID,
		Action:       models.L7PolicyActionReject,
		Position:     1,
		AdminStateUp: true,
	})
	c.Assert(err, IsNil)

	r, err := s.plugin.CreateL7Rule(s.ctx, pol.ID, &models.L7Rule{
		Type:         models.L7RuleTypePath,
		CompareType:  models.L7RuleCompareStartsWith,
		Value:        "/api",
		AdminStateUp: true,
	})
	c.Assert(err, IsNil)
	c.Assert(r.ProvisioningStatus, Equals, models.StatusActive)
	c.Assert(s.backend.count("l7rule.create"), Equals, 1)

	for _, tc := range []struct {
		r   *models.L7Rule
		why string
	}{
		{&models.L7Rule{Type: models.L7RuleTypeFileType,
			CompareType: models.L7RuleCompareStartsWith, Value: "jpg"}, "file type with starts_with"},
		{&models.L7Rule{Type: models.L7RuleTypeHeader,
			CompareType: models.L7RuleCompareEqualTo, Value: "1"}, "header without key"},
		{&models.L7Rule{Type: models.L7RuleTypeCookie, Key: "session",
			CompareType: models.L7RuleCompareEqualTo, Value: "a;b"}, "semicolon in cookie value"},
		{&models.L7Rule{Type: models.L7RuleTypePath,
			CompareType: models.L7RuleCompareRegex, Value: "("}, "regex does not compile"},
		{&models.L7Rule{Type: models.L7RuleTypePath,
			CompareType: models.L7RuleCompareStartsWith}, "missing value"},
	} {
		_, err := s.plugin.CreateL7Rule(s.ctx, pol.ID, tc.r)
		c.Assert(IsValidationError(err), Equals, true, Commentf("%s: %v", tc.why, err))
	}

	c.Assert(s.plugin.DeleteL7Rule(s.ctx, pol.ID, r.ID), IsNil)
	c.Assert(s.backend.count("l7rule.delete"), Equals, 1)
}

func graphRequest() *models.LoadBalancer {
	return &models.LoadBalancer{
		Name:         "web",
		VIPSubnetID:  "sub1",
		AdminStateUp: true,
		Listeners: []*models.Listener{{
			Protocol:     models.ProtocolHTTP,
			ProtocolPort: 80,
			AdminStateUp: true,
			DefaultPool: &models.Pool{
				Protocol:     models.ProtocolHTTP,
				LBAlgorithm:  models.AlgorithmRoundRobin,
				AdminStateUp: true,
				Members: []*models.Member{{
					Address:      "10.0.0.1",
					ProtocolPort: 8080,
					Weight:       1,
					AdminStateUp: true,
				}},
				HealthMonitor: &models.HealthMonitor{
					Type:           models.HealthMonitorHTTP,
					Delay:          5,
					Timeout:        3,
					MaxRetries:     2,
					MaxRetriesDown: 3,
					HTTPMethod:     "GET",
					URLPath:        "/",
					ExpectedCodes:  "200",
					AdminStateUp:   true,
				},
			},
			L7Policies: []*models.L7Policy{{
				Action:       models.L7PolicyActionReject,
				AdminStateUp: true,
				Rules: []*models.L7Rule{{
					Type:         models.L7RuleTypePath,
					CompareType:  models.L7RuleCompareStartsWith,
					Value:        "/blocked",
					AdminStateUp: true,
				}},
			}},
		}},
	}
}

func (s *PluginSuite) TestCreateLoadBalancerGraph(c *C) {
	got, err := s.plugin.CreateLoadBalancerGraph(s.ctx, graphRequest())
	c.Assert(err, IsNil)

	c.Assert(got.ProvisioningStatus, Equals, models.StatusActive)
	c.Assert(got.Listeners, HasLen, 1)
	listener := got.Listeners[0]
	c.Assert(listener.ProvisioningStatus, Equals, models.StatusActive)
	c.Assert(listener.DefaultPool, NotNil)
	c.Assert(listener.DefaultPool.Members, HasLen, 1)
	// Monitored pool members come up ONLINE.
	c.Assert(listener.DefaultPool.Members[0].OperatingStatus, Equals, models.OperatingOnline)
	c.Assert(listener.DefaultPool.HealthMonitor, NotNil)
	c.Assert(listener.L7Policies, HasLen, 1)
	c.Assert(listener.L7Policies[0].Position, Equals, 1)
	c.Assert(listener.L7Policies[0].Rules, HasLen, 1)

	// One driver call covers the whole graph.
	c.Assert(s.backend.count("loadbalancer.create_graph"), Equals, 1)
	c.Assert(s.backend.count("loadbalancer.create"), Equals, 0)
	c.Assert(s.backend.count("listener.create"), Equals, 0)
}

func (s *PluginSuite) TestCreateGraphDriverFailure(c *C) {
	s.backend.failOn["loadbalancer.create_graph"] = true

	_, err := s.plugin.CreateLoadBalancerGraph(s.ctx, graphRequest())
	c.Assert(driver.IsDriverError(err), Equals, true)

	// Nothing survives the roll-back.
	c.Assert(s.db.ListLoadBalancers(store.ListOpts{}), HasLen, 0)
	c.Assert(s.db.ListListeners(store.ListOpts{}), HasLen, 0)
	c.Assert(s.db.ListPools(store.ListOpts{}), HasLen, 0)
	probe, err := s.net.AllocatePort("sub1", "", "probe")
	c.Assert(err, IsNil)
	c.Assert(probe.IPAddress, Equals, "192.0.2.1")
}

func (s *PluginSuite) TestCreateGraphUnsupported(c *C) {
	s.backend.allowGraph = false
	_, err := s.plugin.CreateLoadBalancerGraph(s.ctx, graphRequest())
	c.Assert(IsUnsupported(err), Equals, true)

	backend := newFakeBackend()
	backend.noL7 = true
	plugin := s.newPlugin(c, backend)
	_, err = plugin.CreateLoadBalancerGraph(s.ctx, graphRequest())
	c.Assert(IsUnsupported(err), Equals, true, Commentf("l7 policies without l7 support"))
}

func (s *PluginSuite) TestCreateGraphValidation(c *C) {
	req := graphRequest()
	req.Listeners[0].DefaultPool.Protocol = models.ProtocolTCP

	_, err := s.plugin.CreateLoadBalancerGraph(s.ctx, req)
	c.Assert(IsProtocolMismatch(err), Equals, true)
	c.Assert(s.db.ListLoadBalancers(store.ListOpts{}), HasLen, 0)
}

func (s *PluginSuite) TestReportState(c *C) {
	_, err := s.plugin.ReportState(&agentrpc.StateReport{})
	c.Assert(IsValidationError(err), Equals, true)

	agent, err := s.plugin.ReportState(&agentrpc.StateReport{
		Host:          "host1",
		DeviceDrivers: []string{"fake_ns"},
	})
	c.Assert(err, IsNil)
	c.Assert(agent.ID, Not(Equals), "")
	c.Assert(agent.AdminStateUp, Equals, true)
}

func (s *PluginSuite) TestGetReadyDevices(c *C) {
	agent, err := s.plugin.ReportState(&agentrpc.StateReport{
		Host:          "host1",
		DeviceDrivers: []string{"fake_ns"},
	})
	c.Assert(err, IsNil)
	lb := s.createLB(c)
	c.Assert(s.db.BindAgent(lb.ID, agent.ID), IsNil)

	ready, err := s.plugin.GetReadyDevices("host1")
	c.Assert(err, IsNil)
	c.Assert(ready, DeepEquals, []string{lb.ID})

	// Administratively down load balancers are not deployed.
	down := false
	_, err = s.plugin.UpdateLoadBalancer(s.ctx, lb.ID, &models.LoadBalancerUpdate{AdminStateUp: &down})
	c.Assert(err, IsNil)
	ready, err = s.plugin.GetReadyDevices("host1")
	c.Assert(err, IsNil)
	c.Assert(ready, HasLen, 0)

	// Neither is anything behind a disabled agent.
	up := true
	_, err = s.plugin.UpdateLoadBalancer(s.ctx, lb.ID, &models.LoadBalancerUpdate{AdminStateUp: &up})
	c.Assert(err, IsNil)
	c.Assert(s.plugin.SetAgentAdminStateUp(agent.ID, false), IsNil)
	ready, err = s.plugin.GetReadyDevices("host1")
	c.Assert(err, IsNil)
	c.Assert(ready, HasLen, 0)
}

func (s *PluginSuite) TestLoadBalancerDeployedAndDestroyed(c *C) {
	lb := s.createLB(c)
	c.Assert(s.db.UpdateStatus(store.KindLoadBalancer, lb.ID, models.StatusPendingUpdate, ""), IsNil)

	c.Assert(s.plugin.LoadBalancerDeployed(lb.ID), IsNil)
	row, err := s.db.GetLoadBalancer(lb.ID)
	c.Assert(err, IsNil)
	c.Assert(row.ProvisioningStatus, Equals, models.StatusActive)

	c.Assert(s.plugin.LoadBalancerDestroyed(lb.ID), IsNil)
	_, err = s.db.GetLoadBalancer(lb.ID)
	c.Assert(store.IsNotFound(err), Equals, true)
	probe, err := s.net.AllocatePort("sub1", "", "probe")
	c.Assert(err, IsNil)
	c.Assert(probe.IPAddress, Equals, "192.0.2.1")
}

func (s *PluginSuite) TestUpdateObjectStatus(c *C) {
	lb := s.createLB(c)

	err := s.plugin.UpdateObjectStatus(&agentrpc.StatusUpdate{
		ObjectKind: "flux_capacitor",
		ObjectID:   lb.ID,
	})
	c.Assert(err, NotNil)

	err = s.plugin.UpdateObjectStatus(&agentrpc.StatusUpdate{
		ObjectKind:      "loadbalancer",
		ObjectID:        lb.ID,
		OperatingStatus: models.OperatingDegraded,
	})
	c.Assert(err, IsNil)
	row, err := s.db.GetLoadBalancer(lb.ID)
	c.Assert(err, IsNil)
	// The untouched provisioning status survives a partial update.
	c.Assert(row.ProvisioningStatus, Equals, models.StatusActive)
	c.Assert(row.OperatingStatus, Equals, models.OperatingDegraded)
}

func (s *PluginSuite) TestUpdateLoadBalancerStats(c *C) {
	lb := s.createLB(c)

	err := s.plugin.UpdateLoadBalancerStats(&agentrpc.StatsUpdate{
		LoadBalancerID: lb.ID,
		Stats:          models.LoadBalancerStats{BytesIn: 10, BytesOut: 20, ActiveConnections: 1, TotalConnections: 7},
	})
	c.Assert(err, IsNil)

	stats, err := s.plugin.GetLoadBalancerStats(s.ctx, lb.ID)
	c.Assert(err, IsNil)
	c.Assert(stats.BytesIn, Equals, int64(10))
	c.Assert(stats.TotalConnections, Equals, int64(7))
}

func (s *PluginSuite) TestVIPPortPlumbing(c *C) {
	lb := s.createLB(c)

	c.Assert(s.plugin.PlugVIPPort(&agentrpc.PortRequest{PortID: lb.VIPPortID, Host: "host1"}), IsNil)
	port, err := s.net.GetPort(lb.VIPPortID)
	c.Assert(err, IsNil)
	c.Assert(port.Host, Equals, "host1")

	c.Assert(s.plugin.UnplugVIPPort(&agentrpc.PortRequest{PortID: lb.VIPPortID, Host: "host1"}), IsNil)
	port, err = s.net.GetPort(lb.VIPPortID)
	c.Assert(err, IsNil)
	c.Assert(port.Host, Equals, "")
}

func (s *PluginSuite) TestAgentNotifications(c *C) {
	agent, err := s.plugin.ReportState(&agentrpc.StateReport{
		Host:          "host1",
		DeviceDrivers: []string{"fake_ns"},
	})
	c.Assert(err, IsNil)

	c.Assert(s.plugin.SetAgentAdminStateUp(agent.ID, false), IsNil)

	pending, err := s.plugin.DrainNotifications("host1")
	c.Assert(err, IsNil)
	c.Assert(pending, HasLen, 1)
	c.Assert(pending[0].Type, Equals, agentrpc.NotifyAgentUpdated)
	c.Assert(pending[0].AgentUpdated, NotNil)
	c.Assert(pending[0].AgentUpdated.AdminStateUp, Equals, false)

	// Draining empties the queue.
	pending, err = s.plugin.DrainNotifications("host1")
	c.Assert(err, IsNil)
	c.Assert(pending, HasLen, 0)
}

func (s *PluginSuite) TestDeviceDriverName(c *C) {
	lb := s.createLB(c)
	name, err := s.plugin.DeviceDriverName(lb.ID)
	c.Assert(err, IsNil)
	c.Assert(name, Equals, "fake_ns")
}

func (s *PluginSuite) TestGetLoadBalancerStatusTree(c *C) {
	lb := s.createLB(c)
	l := s.createListener(c, lb.ID, 80)

	tree, err := s.plugin.GetLoadBalancerStatusTree(s.ctx, lb.ID)
	c.Assert(err, IsNil)
	c.Assert(tree.LoadBalancer, NotNil)
	c.Assert(tree.LoadBalancer.ID, Equals, lb.ID)
	c.Assert(tree.LoadBalancer.OperatingStatus, Equals, models.OperatingOnline)
	c.Assert(tree.LoadBalancer.Listeners, HasLen, 1)
	c.Assert(tree.LoadBalancer.Listeners[0].ID, Equals, l.ID)
}
