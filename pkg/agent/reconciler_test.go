// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package agent

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	. "gopkg.in/check.v1"

	"github.com/openlbaas/openlbaas/pkg/agentrpc"
	"github.com/openlbaas/openlbaas/pkg/models"
)

func Test(t *testing.T) {
	TestingT(t)
}

// fakeAPI is an in-memory control plane.
type fakeAPI struct {
	ready         []string
	readyErr      error
	graphs        map[string]*models.LoadBalancer
	owners        map[string]string
	deployed      []string
	destroyed     []string
	statusUpdates []*agentrpc.StatusUpdate
	statsByLB     map[string]*models.LoadBalancerStats
	plugged       []string
	notifications []*agentrpc.Notification
	heartbeats    [][]string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		graphs:    map[string]*models.LoadBalancer{},
		owners:    map[string]string{},
		statsByLB: map[string]*models.LoadBalancerStats{},
	}
}

func notFound() error {
	return &agentrpc.RemoteError{StatusCode: http.StatusNotFound, Message: "not found"}
}

func (a *fakeAPI) ReportState(ctx context.Context, deviceDrivers []string) (*models.Agent, error) {
	a.heartbeats = append(a.heartbeats, deviceDrivers)
	return &models.Agent{ID: "agent1", Host: "host1"}, nil
}

func (a *fakeAPI) GetReadyDevices(ctx context.Context) ([]string, error) {
	if a.readyErr != nil {
		return nil, a.readyErr
	}
	return a.ready, nil
}

func (a *fakeAPI) GetLoadBalancerGraph(ctx context.Context, lbID string) (*models.LoadBalancer, error) {
	lb, ok := a.graphs[lbID]
	if !ok {
		return nil, notFound()
	}
	return lb, nil
}

func (a *fakeAPI) GetDeviceDriver(ctx context.Context, lbID string) (string, error) {
	name, ok := a.owners[lbID]
	if !ok {
		return "", notFound()
	}
	return name, nil
}

func (a *fakeAPI) LoadBalancerDeployed(ctx context.Context, lbID string) error {
	a.deployed = append(a.deployed, lbID)
	return nil
}

func (a *fakeAPI) LoadBalancerDestroyed(ctx context.Context, lbID string) error {
	a.destroyed = append(a.destroyed, lbID)
	return nil
}

func (a *fakeAPI) UpdateStatus(ctx context.Context, u *agentrpc.StatusUpdate) error {
	a.statusUpdates = append(a.statusUpdates, u)
	return nil
}

func (a *fakeAPI) UpdateLoadBalancerStats(ctx context.Context, lbID string, stats *models.LoadBalancerStats) error {
	a.statsByLB[lbID] = stats
	return nil
}

func (a *fakeAPI) PlugVIPPort(ctx context.Context, portID string) error {
	a.plugged = append(a.plugged, portID)
	return nil
}

func (a *fakeAPI) UnplugVIPPort(ctx context.Context, portID string) error {
	return nil
}

func (a *fakeAPI) DrainNotifications(ctx context.Context) ([]*agentrpc.Notification, error) {
	ns := a.notifications
	a.notifications = nil
	return ns, nil
}

// fakeDriver keeps deployments in a map and can fail the next deploy.
type fakeDriver struct {
	name        string
	instances   map[string]*models.LoadBalancer
	deployCalls int
	failDeploy  bool
	tornDown    []string
	keptAround  []string
}

func newFakeDriver(name string) *fakeDriver {
	return &fakeDriver{name: name, instances: map[string]*models.LoadBalancer{}}
}

func (d *fakeDriver) Name() string { return d.name }

func (d *fakeDriver) DeployInstance(ctx context.Context, lb *models.LoadBalancer) error {
	d.deployCalls++
	if d.failDeploy {
		return fmt.Errorf("injected deploy failure")
	}
	d.instances[lb.ID] = lb
	return nil
}

func (d *fakeDriver) UndeployInstance(ctx context.Context, lbID string, deleteNamespace bool) error {
	delete(d.instances, lbID)
	if deleteNamespace {
		d.tornDown = append(d.tornDown, lbID)
	} else {
		d.keptAround = append(d.keptAround, lbID)
	}
	return nil
}

func (d *fakeDriver) DeployedInstances() []string {
	ids := make([]string, 0, len(d.instances))
	for id := range d.instances {
		ids = append(ids, id)
	}
	return ids
}

func (d *fakeDriver) IsDeployed(lbID string) bool {
	_, ok := d.instances[lbID]
	return ok
}

func (d *fakeDriver) Stats(ctx context.Context, lbID string) (*models.LoadBalancerStats, error) {
	return &models.LoadBalancerStats{BytesIn: 42}, nil
}

type ReconcilerSuite struct {
	api    *fakeAPI
	driver *fakeDriver
	r      *Reconciler
	ctx    context.Context
}

var _ = Suite(&ReconcilerSuite{})

func (s *ReconcilerSuite) SetUpTest(c *C) {
	s.api = newFakeAPI()
	s.driver = newFakeDriver("haproxy_ns")
	s.r = NewReconciler(Config{
		Host:             "host1",
		PeriodicInterval: time.Minute,
		ReportInterval:   time.Minute,
	}, s.api, []DeviceDriver{s.driver})
	s.ctx = context.Background()
}

func (s *ReconcilerSuite) addReady(id string) {
	s.api.ready = append(s.api.ready, id)
	s.api.graphs[id] = &models.LoadBalancer{ID: id, VIPPortID: "port-" + id}
	s.api.owners[id] = "haproxy_ns"
}

func (s *ReconcilerSuite) TestReconcileDeploys(c *C) {
	s.addReady("lb1")

	c.Assert(s.r.reconcile(s.ctx), IsNil)
	c.Assert(s.driver.IsDeployed("lb1"), Equals, true)
	c.Assert(s.api.deployed, DeepEquals, []string{"lb1"})
	c.Assert(s.api.plugged, DeepEquals, []string{"port-lb1"})

	// A clean second cycle does not touch the deployed instance.
	c.Assert(s.r.reconcile(s.ctx), IsNil)
	c.Assert(s.driver.deployCalls, Equals, 1)
}

func (s *ReconcilerSuite) TestReconcileUndeploysUnwanted(c *C) {
	s.driver.instances["lb-old"] = &models.LoadBalancer{ID: "lb-old"}

	c.Assert(s.r.reconcile(s.ctx), IsNil)
	c.Assert(s.driver.IsDeployed("lb-old"), Equals, false)
	c.Assert(s.driver.tornDown, DeepEquals, []string{"lb-old"})
	c.Assert(s.api.destroyed, DeepEquals, []string{"lb-old"})
}

func (s *ReconcilerSuite) TestNotificationMarksDirty(c *C) {
	s.addReady("lb1")
	c.Assert(s.r.reconcile(s.ctx), IsNil)
	c.Assert(s.driver.deployCalls, Equals, 1)

	// An entity event for the instance forces a redeploy.
	s.api.notifications = []*agentrpc.Notification{{
		Type:           agentrpc.NotifyUpdate,
		ObjectKind:     "member",
		ObjectID:       "m1",
		LoadBalancerID: "lb1",
	}}
	c.Assert(s.r.reconcile(s.ctx), IsNil)
	c.Assert(s.driver.deployCalls, Equals, 2)
}

func (s *ReconcilerSuite) TestDeployFailure(c *C) {
	s.addReady("lb1")
	s.driver.failDeploy = true

	err := s.r.reconcile(s.ctx)
	c.Assert(err, NotNil)

	// The failure is reported as ERROR on the row.
	c.Assert(s.api.statusUpdates, HasLen, 1)
	c.Assert(s.api.statusUpdates[0].ObjectKind, Equals, "loadbalancer")
	c.Assert(s.api.statusUpdates[0].ObjectID, Equals, "lb1")
	c.Assert(s.api.statusUpdates[0].ProvisioningStatus, Equals, models.StatusError)

	// The resync flag makes the next cycle retry.
	s.driver.failDeploy = false
	c.Assert(s.r.reconcile(s.ctx), IsNil)
	c.Assert(s.driver.IsDeployed("lb1"), Equals, true)
	c.Assert(s.api.deployed, DeepEquals, []string{"lb1"})
}

func (s *ReconcilerSuite) TestReadyDevicesFailure(c *C) {
	s.addReady("lb1")
	s.api.readyErr = fmt.Errorf("control plane unreachable")

	c.Assert(s.r.reconcile(s.ctx), NotNil)
	c.Assert(s.driver.deployCalls, Equals, 0)

	s.api.readyErr = nil
	c.Assert(s.r.reconcile(s.ctx), IsNil)
	c.Assert(s.driver.IsDeployed("lb1"), Equals, true)
}

func (s *ReconcilerSuite) TestDeletedGraphIsSkipped(c *C) {
	s.api.ready = []string{"lb1"}
	s.api.owners["lb1"] = "haproxy_ns"
	// No graph: deleted between ready_devices and the fetch.

	c.Assert(s.r.reconcile(s.ctx), IsNil)
	c.Assert(s.driver.IsDeployed("lb1"), Equals, false)
	c.Assert(s.api.deployed, HasLen, 0)
}

func (s *ReconcilerSuite) TestUnknownDeviceDriver(c *C) {
	s.addReady("lb1")
	s.api.owners["lb1"] = "f5_ns"

	c.Assert(s.r.reconcile(s.ctx), NotNil)
	c.Assert(s.driver.deployCalls, Equals, 0)
}

func (s *ReconcilerSuite) TestAdminDownPausesWithoutDestroy(c *C) {
	s.addReady("lb1")
	c.Assert(s.r.reconcile(s.ctx), IsNil)
	c.Assert(s.driver.IsDeployed("lb1"), Equals, true)

	// Going administratively down undeploys locally but keeps the rows;
	// another agent may pick the instances up.
	s.api.notifications = []*agentrpc.Notification{{
		Type:         agentrpc.NotifyAgentUpdated,
		AgentUpdated: &agentrpc.AgentUpdated{AdminStateUp: false},
	}}
	c.Assert(s.r.reconcile(s.ctx), IsNil)
	c.Assert(s.driver.IsDeployed("lb1"), Equals, false)
	c.Assert(s.driver.keptAround, DeepEquals, []string{"lb1"})
	c.Assert(s.api.destroyed, HasLen, 0)

	// While paused nothing is deployed.
	c.Assert(s.r.reconcile(s.ctx), IsNil)
	c.Assert(s.driver.deployCalls, Equals, 1)

	// Coming back up forces a full resync.
	s.api.notifications = []*agentrpc.Notification{{
		Type:         agentrpc.NotifyAgentUpdated,
		AgentUpdated: &agentrpc.AgentUpdated{AdminStateUp: true},
	}}
	c.Assert(s.r.reconcile(s.ctx), IsNil)
	c.Assert(s.driver.IsDeployed("lb1"), Equals, true)
}

func (s *ReconcilerSuite) TestHeartbeat(c *C) {
	c.Assert(s.r.heartbeat(s.ctx), IsNil)
	c.Assert(s.api.heartbeats, HasLen, 1)
	c.Assert(s.api.heartbeats[0], DeepEquals, []string{"haproxy_ns"})
}

func (s *ReconcilerSuite) TestReportStats(c *C) {
	s.addReady("lb1")
	c.Assert(s.r.reconcile(s.ctx), IsNil)

	c.Assert(s.r.reportStats(s.ctx), IsNil)
	stats, ok := s.api.statsByLB["lb1"]
	c.Assert(ok, Equals, true)
	c.Assert(stats.BytesIn, Equals, int64(42))
}
