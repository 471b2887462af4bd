// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package proxy is the forwarding service plugin. It implements the same
// operation surface as the core plugin but relays every call to an external
// load balancing service over HTTP+JSON, translating wire names and error
// codes between the two sides.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/openlbaas/openlbaas/pkg/driver"
	"github.com/openlbaas/openlbaas/pkg/logging"
	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
	"github.com/openlbaas/openlbaas/pkg/models"
	"github.com/openlbaas/openlbaas/pkg/plugin"
	"github.com/openlbaas/openlbaas/pkg/store"
)

var log = logging.DefaultLogger.WithField(logfields.LogSubsys, "proxy")

// ProviderName is the provider this plugin reports for forwarded objects.
const ProviderName = "proxy"

// Plugin forwards the service surface to a remote LBaaS endpoint rooted at
// baseURL. It holds no local state; the remote service is the source of
// truth.
type Plugin struct {
	baseURL string
	client  *http.Client
}

var _ plugin.Service = (*Plugin)(nil)

// New returns a proxy plugin targeting the service at baseURL.
func New(baseURL string) *Plugin {
	return &Plugin{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type remoteFault struct {
	Message string `json:"message"`
}

// translateError maps a remote status code onto the local error taxonomy.
func translateError(code int, kind store.Kind, id string, body []byte) error {
	var fault remoteFault
	_ = json.Unmarshal(body, &fault)
	if fault.Message == "" {
		fault.Message = string(body)
	}
	switch code {
	case http.StatusRequestEntityTooLarge:
		return &QuotaExceededError{Message: fault.Message}
	case http.StatusConflict:
		return &ConflictError{Message: fault.Message}
	case http.StatusNotFound:
		return &store.NotFoundError{Kind: kind, ID: id}
	case http.StatusUnauthorized:
		return &NotAuthorizedError{Message: fault.Message}
	case http.StatusBadRequest:
		return &plugin.BadValueError{Field: "request", Reason: fault.Message}
	default:
		return driver.WrapError(ProviderName, "forward",
			fmt.Errorf("remote service returned %d: %s", code, fault.Message))
	}
}

func (p *Plugin) send(ctx context.Context, method, path string, query url.Values, body []byte, kind store.Kind, id string) ([]byte, error) {
	u := p.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, driver.WrapError(ProviderName, "forward", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, driver.WrapError(ProviderName, "forward", err)
	}
	if resp.StatusCode >= 300 {
		return nil, translateError(resp.StatusCode, kind, id, raw)
	}
	return raw, nil
}

// encodeEnvelope wraps an entity in its envelope with the request wire
// transforms applied.
func encodeEnvelope(envelope string, entity interface{}) ([]byte, error) {
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}
	raw = transformJSON(raw, transformRequest)
	return json.Marshal(map[string]json.RawMessage{envelope: raw})
}

// decodeEnvelope unwraps an entity from its envelope with the response wire
// transforms applied.
func decodeEnvelope(body []byte, envelope string, out interface{}) error {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return err
	}
	raw, ok := wrapper[envelope]
	if !ok {
		return fmt.Errorf("remote response is missing the %q envelope", envelope)
	}
	return json.Unmarshal(transformJSON(raw, transformResponse), out)
}

// listQuery maps list options onto remote query parameters.
func listQuery(opts store.ListOpts) url.Values {
	q := url.Values{}
	for key, value := range opts.Filters {
		if key == "tenant_id" {
			key = "project_id"
		}
		q.Set(key, value)
	}
	if opts.SortKey != "" {
		q.Set("sort_key", opts.SortKey)
	}
	if opts.SortDir != "" {
		q.Set("sort_dir", opts.SortDir)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Marker != "" {
		q.Set("marker", opts.Marker)
	}
	return q
}

func collectionPath(resource string) string {
	return "/lbaas/" + pluralize(resource)
}

func memberPath(resource, id string) string {
	return collectionPath(resource) + "/" + id
}

func (p *Plugin) create(ctx context.Context, resource string, kind store.Kind, in, out interface{}) error {
	body, err := encodeEnvelope(resource, in)
	if err != nil {
		return err
	}
	raw, err := p.send(ctx, "POST", collectionPath(resource), nil, body, kind, "")
	if err != nil {
		return err
	}
	return decodeEnvelope(raw, resource, out)
}

func (p *Plugin) get(ctx context.Context, resource string, kind store.Kind, id string, out interface{}) error {
	raw, err := p.send(ctx, "GET", memberPath(resource, id), nil, nil, kind, id)
	if err != nil {
		return err
	}
	return decodeEnvelope(raw, resource, out)
}

func (p *Plugin) list(ctx context.Context, resource string, kind store.Kind, opts store.ListOpts, out interface{}) error {
	raw, err := p.send(ctx, "GET", collectionPath(resource), listQuery(opts), nil, kind, "")
	if err != nil {
		return err
	}
	return decodeEnvelope(raw, pluralize(resource), out)
}

func (p *Plugin) update(ctx context.Context, resource string, kind store.Kind, id string, in, out interface{}) error {
	body, err := encodeEnvelope(resource, in)
	if err != nil {
		return err
	}
	raw, err := p.send(ctx, "PUT", memberPath(resource, id), nil, body, kind, id)
	if err != nil {
		return err
	}
	return decodeEnvelope(raw, resource, out)
}

func (p *Plugin) delete(ctx context.Context, resource string, kind store.Kind, id string) error {
	_, err := p.send(ctx, "DELETE", memberPath(resource, id), nil, nil, kind, id)
	return err
}

// Load balancers.

func (p *Plugin) CreateLoadBalancer(ctx context.Context, lb *models.LoadBalancer) (*models.LoadBalancer, error) {
	var out models.LoadBalancer
	if err := p.create(ctx, "loadbalancer", store.KindLoadBalancer, lb, &out); err != nil {
		return nil, err
	}
	log.WithField(logfields.LoadBalancerID, out.ID).Debug("Forwarded loadbalancer create")
	return &out, nil
}

func (p *Plugin) CreateLoadBalancerGraph(ctx context.Context, lb *models.LoadBalancer) (*models.LoadBalancer, error) {
	inner, err := json.Marshal(lb)
	if err != nil {
		return nil, err
	}
	inner = transformJSON(inner, transformRequest)
	body, err := json.Marshal(map[string]map[string]json.RawMessage{
		"graph": {"loadbalancer": inner},
	})
	if err != nil {
		return nil, err
	}
	raw, err := p.send(ctx, "POST", "/lbaas/graphs", nil, body, store.KindLoadBalancer, "")
	if err != nil {
		return nil, err
	}
	var wrapper struct {
		Graph struct {
			LoadBalancer json.RawMessage `json:"loadbalancer"`
		} `json:"graph"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}
	var out models.LoadBalancer
	if err := json.Unmarshal(transformJSON(wrapper.Graph.LoadBalancer, transformResponse), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) GetLoadBalancer(ctx context.Context, id string) (*models.LoadBalancer, error) {
	var out models.LoadBalancer
	if err := p.get(ctx, "loadbalancer", store.KindLoadBalancer, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) ListLoadBalancers(ctx context.Context, opts store.ListOpts) ([]*models.LoadBalancer, error) {
	var out []*models.LoadBalancer
	if err := p.list(ctx, "loadbalancer", store.KindLoadBalancer, opts, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Plugin) UpdateLoadBalancer(ctx context.Context, id string, u *models.LoadBalancerUpdate) (*models.LoadBalancer, error) {
	var out models.LoadBalancer
	if err := p.update(ctx, "loadbalancer", store.KindLoadBalancer, id, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) DeleteLoadBalancer(ctx context.Context, id string) error {
	return p.delete(ctx, "loadbalancer", store.KindLoadBalancer, id)
}

func (p *Plugin) GetLoadBalancerStats(ctx context.Context, id string) (*models.LoadBalancerStats, error) {
	raw, err := p.send(ctx, "GET", memberPath("loadbalancer", id)+"/stats", nil, nil, store.KindLoadBalancer, id)
	if err != nil {
		return nil, err
	}
	var out models.LoadBalancerStats
	if err := decodeEnvelope(raw, "stats", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) GetLoadBalancerStatusTree(ctx context.Context, id string) (*models.StatusTree, error) {
	raw, err := p.send(ctx, "GET", memberPath("loadbalancer", id)+"/statuses", nil, nil, store.KindLoadBalancer, id)
	if err != nil {
		return nil, err
	}
	var out models.StatusTree
	if err := decodeEnvelope(raw, "statuses", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Listeners.

func (p *Plugin) CreateListener(ctx context.Context, l *models.Listener) (*models.Listener, error) {
	var out models.Listener
	if err := p.create(ctx, "listener", store.KindListener, l, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) GetListener(ctx context.Context, id string) (*models.Listener, error) {
	var out models.Listener
	if err := p.get(ctx, "listener", store.KindListener, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) ListListeners(ctx context.Context, opts store.ListOpts) ([]*models.Listener, error) {
	var out []*models.Listener
	if err := p.list(ctx, "listener", store.KindListener, opts, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Plugin) UpdateListener(ctx context.Context, id string, u *models.ListenerUpdate) (*models.Listener, error) {
	var out models.Listener
	if err := p.update(ctx, "listener", store.KindListener, id, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) DeleteListener(ctx context.Context, id string) error {
	return p.delete(ctx, "listener", store.KindListener, id)
}

// Pools.

func (p *Plugin) CreatePool(ctx context.Context, pool *models.Pool) (*models.Pool, error) {
	var out models.Pool
	if err := p.create(ctx, "pool", store.KindPool, pool, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) GetPool(ctx context.Context, id string) (*models.Pool, error) {
	var out models.Pool
	if err := p.get(ctx, "pool", store.KindPool, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) ListPools(ctx context.Context, opts store.ListOpts) ([]*models.Pool, error) {
	var out []*models.Pool
	if err := p.list(ctx, "pool", store.KindPool, opts, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Plugin) UpdatePool(ctx context.Context, id string, u *models.PoolUpdate) (*models.Pool, error) {
	var out models.Pool
	if err := p.update(ctx, "pool", store.KindPool, id, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) DeletePool(ctx context.Context, id string) error {
	return p.delete(ctx, "pool", store.KindPool, id)
}

// Members are scoped under their pool.

func memberCollection(poolID string) string {
	return memberPath("pool", poolID) + "/members"
}

func (p *Plugin) CreateMember(ctx context.Context, poolID string, m *models.Member) (*models.Member, error) {
	body, err := encodeEnvelope("member", m)
	if err != nil {
		return nil, err
	}
	raw, err := p.send(ctx, "POST", memberCollection(poolID), nil, body, store.KindMember, "")
	if err != nil {
		return nil, err
	}
	var out models.Member
	if err := decodeEnvelope(raw, "member", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) GetMember(ctx context.Context, poolID, id string) (*models.Member, error) {
	raw, err := p.send(ctx, "GET", memberCollection(poolID)+"/"+id, nil, nil, store.KindMember, id)
	if err != nil {
		return nil, err
	}
	var out models.Member
	if err := decodeEnvelope(raw, "member", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) ListMembers(ctx context.Context, poolID string, opts store.ListOpts) ([]*models.Member, error) {
	raw, err := p.send(ctx, "GET", memberCollection(poolID), listQuery(opts), nil, store.KindMember, "")
	if err != nil {
		return nil, err
	}
	var out []*models.Member
	if err := decodeEnvelope(raw, "members", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Plugin) UpdateMember(ctx context.Context, poolID, id string, u *models.MemberUpdate) (*models.Member, error) {
	body, err := encodeEnvelope("member", u)
	if err != nil {
		return nil, err
	}
	raw, err := p.send(ctx, "PUT", memberCollection(poolID)+"/"+id, nil, body, store.KindMember, id)
	if err != nil {
		return nil, err
	}
	var out models.Member
	if err := decodeEnvelope(raw, "member", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) DeleteMember(ctx context.Context, poolID, id string) error {
	_, err := p.send(ctx, "DELETE", memberCollection(poolID)+"/"+id, nil, nil, store.KindMember, id)
	return err
}

// Health monitors.

func (p *Plugin) CreateHealthMonitor(ctx context.Context, hm *models.HealthMonitor) (*models.HealthMonitor, error) {
	var out models.HealthMonitor
	if err := p.create(ctx, "healthmonitor", store.KindHealthMonitor, hm, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) GetHealthMonitor(ctx context.Context, id string) (*models.HealthMonitor, error) {
	var out models.HealthMonitor
	if err := p.get(ctx, "healthmonitor", store.KindHealthMonitor, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) ListHealthMonitors(ctx context.Context, opts store.ListOpts) ([]*models.HealthMonitor, error) {
	var out []*models.HealthMonitor
	if err := p.list(ctx, "healthmonitor", store.KindHealthMonitor, opts, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Plugin) UpdateHealthMonitor(ctx context.Context, id string, u *models.HealthMonitorUpdate) (*models.HealthMonitor, error) {
	var out models.HealthMonitor
	if err := p.update(ctx, "healthmonitor", store.KindHealthMonitor, id, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) DeleteHealthMonitor(ctx context.Context, id string) error {
	return p.delete(ctx, "healthmonitor", store.KindHealthMonitor, id)
}

// L7 policies.

func (p *Plugin) CreateL7Policy(ctx context.Context, pol *models.L7Policy) (*models.L7Policy, error) {
	var out models.L7Policy
	if err := p.create(ctx, "l7policy", store.KindL7Policy, pol, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) GetL7Policy(ctx context.Context, id string) (*models.L7Policy, error) {
	var out models.L7Policy
	if err := p.get(ctx, "l7policy", store.KindL7Policy, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) ListL7Policies(ctx context.Context, opts store.ListOpts) ([]*models.L7Policy, error) {
	var out []*models.L7Policy
	if err := p.list(ctx, "l7policy", store.KindL7Policy, opts, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Plugin) UpdateL7Policy(ctx context.Context, id string, u *models.L7PolicyUpdate) (*models.L7Policy, error) {
	var out models.L7Policy
	if err := p.update(ctx, "l7policy", store.KindL7Policy, id, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) DeleteL7Policy(ctx context.Context, id string) error {
	return p.delete(ctx, "l7policy", store.KindL7Policy, id)
}

// L7 rules are scoped under their policy.

func ruleCollection(policyID string) string {
	return memberPath("l7policy", policyID) + "/rules"
}

func (p *Plugin) CreateL7Rule(ctx context.Context, policyID string, r *models.L7Rule) (*models.L7Rule, error) {
	body, err := encodeEnvelope("rule", r)
	if err != nil {
		return nil, err
	}
	raw, err := p.send(ctx, "POST", ruleCollection(policyID), nil, body, store.KindL7Rule, "")
	if err != nil {
		return nil, err
	}
	var out models.L7Rule
	if err := decodeEnvelope(raw, "rule", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) GetL7Rule(ctx context.Context, policyID, id string) (*models.L7Rule, error) {
	raw, err := p.send(ctx, "GET", ruleCollection(policyID)+"/"+id, nil, nil, store.KindL7Rule, id)
	if err != nil {
		return nil, err
	}
	var out models.L7Rule
	if err := decodeEnvelope(raw, "rule", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) ListL7Rules(ctx context.Context, policyID string, opts store.ListOpts) ([]*models.L7Rule, error) {
	raw, err := p.send(ctx, "GET", ruleCollection(policyID), listQuery(opts), nil, store.KindL7Rule, "")
	if err != nil {
		return nil, err
	}
	var out []*models.L7Rule
	if err := decodeEnvelope(raw, "rules", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Plugin) UpdateL7Rule(ctx context.Context, policyID, id string, u *models.L7RuleUpdate) (*models.L7Rule, error) {
	body, err := encodeEnvelope("rule", u)
	if err != nil {
		return nil, err
	}
	raw, err := p.send(ctx, "PUT", ruleCollection(policyID)+"/"+id, nil, body, store.KindL7Rule, id)
	if err != nil {
		return nil, err
	}
	var out models.L7Rule
	if err := decodeEnvelope(raw, "rule", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Plugin) DeleteL7Rule(ctx context.Context, policyID, id string) error {
	_, err := p.send(ctx, "DELETE", ruleCollection(policyID)+"/"+id, nil, nil, store.KindL7Rule, id)
	return err
}
