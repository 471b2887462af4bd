// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package proxy

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	. "gopkg.in/check.v1"

	"github.com/openlbaas/openlbaas/pkg/driver"
	"github.com/openlbaas/openlbaas/pkg/models"
	"github.com/openlbaas/openlbaas/pkg/plugin"
	"github.com/openlbaas/openlbaas/pkg/store"
)

func Test(t *testing.T) {
	TestingT(t)
}

// fakeRemote records the last request and plays back a canned response.
type fakeRemote struct {
	lastMethod string
	lastPath   string
	lastQuery  url.Values
	lastBody   []byte

	status int
	body   string
}

func (f *fakeRemote) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.lastMethod = r.Method
	f.lastPath = r.URL.Path
	f.lastQuery = r.URL.Query()
	f.lastBody, _ = io.ReadAll(r.Body)
	if f.status != 0 {
		w.WriteHeader(f.status)
	}
	_, _ = io.WriteString(w, f.body)
}

// envelopeFields unwraps the recorded request body and returns the named
// envelope as a flat attribute map.
func (f *fakeRemote) envelopeFields(c *C, envelope string) map[string]json.RawMessage {
	var wrapper map[string]json.RawMessage
	c.Assert(json.Unmarshal(f.lastBody, &wrapper), IsNil)
	raw, ok := wrapper[envelope]
	c.Assert(ok, Equals, true)
	var fields map[string]json.RawMessage
	c.Assert(json.Unmarshal(raw, &fields), IsNil)
	return fields
}

type ProxySuite struct {
	remote *fakeRemote
	server *httptest.Server
	plugin *Plugin
	ctx    context.Context
}

var _ = Suite(&ProxySuite{})

func (s *ProxySuite) SetUpTest(c *C) {
	s.remote = &fakeRemote{}
	s.server = httptest.NewServer(s.remote)
	s.plugin = New(s.server.URL)
	s.ctx = context.Background()
}

func (s *ProxySuite) TearDownTest(c *C) {
	s.server.Close()
}

func (s *ProxySuite) TestCreateLoadBalancer(c *C) {
	s.remote.body = `{"loadbalancer": {
		"id": "lb1",
		"project_id": "tenant1",
		"name": "web",
		"status": "ACTIVE",
		"operating_status": "ONLINE"
	}}`

	out, err := s.plugin.CreateLoadBalancer(s.ctx, &models.LoadBalancer{
		TenantID:    "tenant1",
		Name:        "web",
		VIPSubnetID: "sub1",
		VIPAddress:  "192.0.2.9",
		Provider:    "haproxy",
		FlavorID:    "small",
	})
	c.Assert(err, IsNil)

	c.Assert(s.remote.lastMethod, Equals, "POST")
	c.Assert(s.remote.lastPath, Equals, "/lbaas/loadbalancers")

	// Locally handled attributes are stripped and tenant_id travels as
	// project_id.
	fields := s.remote.envelopeFields(c, "loadbalancer")
	c.Assert(string(fields["project_id"]), Equals, `"tenant1"`)
	_, ok := fields["tenant_id"]
	c.Assert(ok, Equals, false)
	for _, dropped := range []string{"vip_address", "vip_network_id", "flavor_id", "provider"} {
		_, ok := fields[dropped]
		c.Assert(ok, Equals, false, Commentf("attribute %q should have been dropped", dropped))
	}
	c.Assert(string(fields["vip_subnet_id"]), Equals, `"sub1"`)

	// The response folds project_id and the legacy status alias back.
	c.Assert(out.ID, Equals, "lb1")
	c.Assert(out.TenantID, Equals, "tenant1")
	c.Assert(out.ProvisioningStatus, Equals, models.StatusActive)
	c.Assert(out.OperatingStatus, Equals, models.OperatingOnline)
}

func (s *ProxySuite) TestListLoadBalancers(c *C) {
	s.remote.body = `{"loadbalancers": [
		{"id": "a", "project_id": "t1", "status": "ACTIVE"},
		{"id": "b", "project_id": "t1", "status": "ERROR"}
	]}`

	out, err := s.plugin.ListLoadBalancers(s.ctx, store.ListOpts{
		Filters: map[string]string{"tenant_id": "t1", "name": "web"},
		SortKey: "id",
		SortDir: "desc",
		Limit:   2,
		Marker:  "m1",
	})
	c.Assert(err, IsNil)

	c.Assert(s.remote.lastPath, Equals, "/lbaas/loadbalancers")
	c.Assert(s.remote.lastQuery.Get("project_id"), Equals, "t1")
	c.Assert(s.remote.lastQuery.Get("tenant_id"), Equals, "")
	c.Assert(s.remote.lastQuery.Get("name"), Equals, "web")
	c.Assert(s.remote.lastQuery.Get("sort_key"), Equals, "id")
	c.Assert(s.remote.lastQuery.Get("sort_dir"), Equals, "desc")
	c.Assert(s.remote.lastQuery.Get("limit"), Equals, "2")
	c.Assert(s.remote.lastQuery.Get("marker"), Equals, "m1")

	c.Assert(out, HasLen, 2)
	c.Assert(out[0].TenantID, Equals, "t1")
	c.Assert(out[1].ProvisioningStatus, Equals, models.StatusError)
}

func (s *ProxySuite) TestScopedPaths(c *C) {
	s.remote.body = `{"member": {"id": "m1"}}`
	_, err := s.plugin.CreateMember(s.ctx, "pool1", &models.Member{Address: "10.0.0.1", ProtocolPort: 80})
	c.Assert(err, IsNil)
	c.Assert(s.remote.lastMethod, Equals, "POST")
	c.Assert(s.remote.lastPath, Equals, "/lbaas/pools/pool1/members")

	s.remote.body = `{"rule": {"id": "r1"}}`
	_, err = s.plugin.GetL7Rule(s.ctx, "pol1", "r1")
	c.Assert(err, IsNil)
	c.Assert(s.remote.lastMethod, Equals, "GET")
	c.Assert(s.remote.lastPath, Equals, "/lbaas/l7policies/pol1/rules/r1")

	s.remote.body = ""
	c.Assert(s.plugin.DeleteListener(s.ctx, "l1"), IsNil)
	c.Assert(s.remote.lastMethod, Equals, "DELETE")
	c.Assert(s.remote.lastPath, Equals, "/lbaas/listeners/l1")
}

func (s *ProxySuite) TestCreateL7PolicyDropsNullRedirect(c *C) {
	s.remote.body = `{"l7policy": {"id": "p1"}}`

	_, err := s.plugin.CreateL7Policy(s.ctx, &models.L7Policy{
		ListenerID:  "l1",
		Action:      models.L7PolicyActionRedirectToURL,
		RedirectURL: "http://example.com/",
		Position:    1,
	})
	c.Assert(err, IsNil)

	fields := s.remote.envelopeFields(c, "l7policy")
	_, ok := fields["redirect_pool_id"]
	c.Assert(ok, Equals, false)
	c.Assert(string(fields["redirect_url"]), Equals, `"http://example.com/"`)
}

func (s *ProxySuite) TestCreateLoadBalancerGraph(c *C) {
	s.remote.body = `{"graph": {"loadbalancer": {
		"id": "lb1",
		"project_id": "t1",
		"status": "ACTIVE",
		"listeners": [{"id": "l1", "project_id": "t1", "status": "ACTIVE"}]
	}}}`

	out, err := s.plugin.CreateLoadBalancerGraph(s.ctx, &models.LoadBalancer{
		TenantID:    "t1",
		VIPSubnetID: "sub1",
		VIPAddress:  "192.0.2.9",
		Listeners: []*models.Listener{{
			TenantID:     "t1",
			Protocol:     models.ProtocolHTTP,
			ProtocolPort: 80,
		}},
	})
	c.Assert(err, IsNil)

	c.Assert(s.remote.lastMethod, Equals, "POST")
	c.Assert(s.remote.lastPath, Equals, "/lbaas/graphs")

	// The request transform recurses into nested entities.
	var wrapper struct {
		Graph struct {
			LoadBalancer map[string]json.RawMessage `json:"loadbalancer"`
		} `json:"graph"`
	}
	c.Assert(json.Unmarshal(s.remote.lastBody, &wrapper), IsNil)
	lb := wrapper.Graph.LoadBalancer
	_, ok := lb["vip_address"]
	c.Assert(ok, Equals, false)
	c.Assert(string(lb["project_id"]), Equals, `"t1"`)
	var listeners []map[string]json.RawMessage
	c.Assert(json.Unmarshal(lb["listeners"], &listeners), IsNil)
	c.Assert(listeners, HasLen, 1)
	c.Assert(string(listeners[0]["project_id"]), Equals, `"t1"`)
	_, ok = listeners[0]["tenant_id"]
	c.Assert(ok, Equals, false)

	// And the response transform recurses on the way back.
	c.Assert(out.TenantID, Equals, "t1")
	c.Assert(out.ProvisioningStatus, Equals, models.StatusActive)
	c.Assert(out.Listeners, HasLen, 1)
	c.Assert(out.Listeners[0].TenantID, Equals, "t1")
	c.Assert(out.Listeners[0].ProvisioningStatus, Equals, models.StatusActive)
}

func (s *ProxySuite) TestStatsAndStatusTree(c *C) {
	s.remote.body = `{"stats": {"bytes_in": 1, "bytes_out": 2, "active_connections": 3, "total_connections": 4}}`
	stats, err := s.plugin.GetLoadBalancerStats(s.ctx, "lb1")
	c.Assert(err, IsNil)
	c.Assert(s.remote.lastPath, Equals, "/lbaas/loadbalancers/lb1/stats")
	c.Assert(stats.BytesIn, Equals, int64(1))
	c.Assert(stats.TotalConnections, Equals, int64(4))

	s.remote.body = `{"statuses": {"loadbalancer": {
		"id": "lb1",
		"status": "ACTIVE",
		"operating_status": "ONLINE",
		"listeners": [{"id": "l1", "status": "ACTIVE", "operating_status": "ONLINE"}]
	}}}`
	tree, err := s.plugin.GetLoadBalancerStatusTree(s.ctx, "lb1")
	c.Assert(err, IsNil)
	c.Assert(s.remote.lastPath, Equals, "/lbaas/loadbalancers/lb1/statuses")
	c.Assert(tree.LoadBalancer, NotNil)
	c.Assert(tree.LoadBalancer.ProvisioningStatus, Equals, models.StatusActive)
	c.Assert(tree.LoadBalancer.Listeners, HasLen, 1)
	c.Assert(tree.LoadBalancer.Listeners[0].ProvisioningStatus, Equals, models.StatusActive)
}

func (s *ProxySuite) TestErrorTranslation(c *C) {
	s.remote.status = http.StatusRequestEntityTooLarge
	s.remote.body = `{"message": "quota exceeded for loadbalancer"}`
	_, err := s.plugin.CreateLoadBalancer(s.ctx, &models.LoadBalancer{VIPSubnetID: "sub1"})
	c.Assert(IsQuotaExceeded(err), Equals, true)

	s.remote.status = http.StatusConflict
	s.remote.body = `{"message": "immutable state"}`
	_, err = s.plugin.UpdateLoadBalancer(s.ctx, "lb1", &models.LoadBalancerUpdate{})
	c.Assert(IsConflict(err), Equals, true)

	s.remote.status = http.StatusUnauthorized
	s.remote.body = `{"message": "token expired"}`
	_, err = s.plugin.ListLoadBalancers(s.ctx, store.ListOpts{})
	c.Assert(IsNotAuthorized(err), Equals, true)

	s.remote.status = http.StatusNotFound
	s.remote.body = `{"message": "no such pool"}`
	_, err = s.plugin.GetPool(s.ctx, "missing")
	c.Assert(store.IsNotFound(err), Equals, true)

	s.remote.status = http.StatusBadRequest
	s.remote.body = `{"message": "protocol mismatch"}`
	_, err = s.plugin.CreatePool(s.ctx, &models.Pool{ListenerID: "l1"})
	c.Assert(plugin.IsValidationError(err), Equals, true)

	s.remote.status = http.StatusInternalServerError
	s.remote.body = `backend exploded`
	err = s.plugin.DeleteLoadBalancer(s.ctx, "lb1")
	c.Assert(driver.IsDriverError(err), Equals, true)
}

type TransformSuite struct{}

var _ = Suite(&TransformSuite{})

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func (s *TransformSuite) TestTransformRequest(c *C) {
	out := transformRequest(map[string]json.RawMessage{
		"name":             raw(`"web"`),
		"tenant_id":        raw(`"t1"`),
		"vip_address":      raw(`"192.0.2.9"`),
		"provider":         raw(`"haproxy"`),
		"redirect_pool_id": raw(`null`),
	})
	c.Assert(string(out["name"]), Equals, `"web"`)
	c.Assert(string(out["project_id"]), Equals, `"t1"`)
	for _, gone := range []string{"tenant_id", "vip_address", "provider", "redirect_pool_id"} {
		_, ok := out[gone]
		c.Assert(ok, Equals, false, Commentf("%q should not be forwarded", gone))
	}

	// A concrete redirect_pool_id survives.
	out = transformRequest(map[string]json.RawMessage{
		"redirect_pool_id": raw(`"pool1"`),
	})
	c.Assert(string(out["redirect_pool_id"]), Equals, `"pool1"`)
}

func (s *TransformSuite) TestTransformResponse(c *C) {
	out := transformResponse(map[string]json.RawMessage{
		"project_id": raw(`"t1"`),
		"status":     raw(`"ACTIVE"`),
	})
	c.Assert(string(out["tenant_id"]), Equals, `"t1"`)
	c.Assert(string(out["provisioning_status"]), Equals, `"ACTIVE"`)
	_, ok := out["project_id"]
	c.Assert(ok, Equals, false)
	_, ok = out["status"]
	c.Assert(ok, Equals, false)

	// Explicit local names win over the remote aliases.
	out = transformResponse(map[string]json.RawMessage{
		"project_id":          raw(`"remote"`),
		"tenant_id":           raw(`"local"`),
		"status":              raw(`"ERROR"`),
		"provisioning_status": raw(`"ACTIVE"`),
	})
	c.Assert(string(out["tenant_id"]), Equals, `"local"`)
	c.Assert(string(out["provisioning_status"]), Equals, `"ACTIVE"`)
	_, ok = out["status"]
	c.Assert(ok, Equals, false)
}

func (s *TransformSuite) TestTransformJSONRecurses(c *C) {
	in := raw(`{"tenant_id": "t1", "listeners": [{"tenant_id": "t1", "name": "l"}], "count": 3}`)
	out := transformJSON(in, transformRequest)

	var obj map[string]json.RawMessage
	c.Assert(json.Unmarshal(out, &obj), IsNil)
	c.Assert(string(obj["project_id"]), Equals, `"t1"`)
	var listeners []map[string]json.RawMessage
	c.Assert(json.Unmarshal(obj["listeners"], &listeners), IsNil)
	c.Assert(string(listeners[0]["project_id"]), Equals, `"t1"`)
	c.Assert(string(obj["count"]), Equals, "3")

	// Scalars pass through untouched.
	c.Assert(string(transformJSON(raw(`"hello"`), transformRequest)), Equals, `"hello"`)
	c.Assert(string(transformJSON(raw(`null`), transformRequest)), Equals, `null`)
}

func (s *TransformSuite) TestPluralize(c *C) {
	c.Assert(pluralize("loadbalancer"), Equals, "loadbalancers")
	c.Assert(pluralize("l7policy"), Equals, "l7policies")
	c.Assert(pluralize("pools"), Equals, "pools")
	c.Assert(pluralize("healthmonitor"), Equals, "healthmonitors")
}
