// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openlbaas/openlbaas/pkg/models"
	"github.com/openlbaas/openlbaas/pkg/plugin"
)

// Writable attribute sets per resource and verb. Anything else in a body is
// read-only and rejected.
var (
	loadBalancerPostAttrs = map[string]bool{
		"tenant_id": true, "name": true, "description": true,
		"vip_subnet_id": true, "vip_network_id": true, "vip_address": true,
		"admin_state_up": true, "provider": true, "flavor_id": true,
	}
	loadBalancerGraphAttrs = merge(loadBalancerPostAttrs, "listeners", "pools")
	loadBalancerPutAttrs   = map[string]bool{
		"name": true, "description": true, "admin_state_up": true,
	}

	listenerPostAttrs = map[string]bool{
		"tenant_id": true, "name": true, "description": true,
		"loadbalancer_id": true, "protocol": true, "protocol_port": true,
		"connection_limit": true, "default_tls_container_ref": true,
		"sni_container_refs": true, "default_pool_id": true,
		"admin_state_up": true,
	}
	listenerPutAttrs = map[string]bool{
		"name": true, "description": true, "connection_limit": true,
		"default_tls_container_ref": true, "sni_container_refs": true,
		"default_pool_id": true, "loadbalancer_id": true,
		"admin_state_up": true,
	}

	poolPostAttrs = map[string]bool{
		"tenant_id": true, "name": true, "description": true,
		"protocol": true, "lb_algorithm": true, "session_persistence": true,
		"listener_id": true, "loadbalancer_id": true, "admin_state_up": true,
	}
	poolPutAttrs = map[string]bool{
		"name": true, "description": true, "lb_algorithm": true,
		"session_persistence": true, "admin_state_up": true,
	}

	memberPostAttrs = map[string]bool{
		"tenant_id": true, "address": true, "protocol_port": true,
		"subnet_id": true, "weight": true, "admin_state_up": true,
	}
	memberPutAttrs = map[string]bool{
		"weight": true, "admin_state_up": true,
	}

	healthMonitorPostAttrs = map[string]bool{
		"tenant_id": true, "name": true, "pool_id": true, "type": true,
		"delay": true, "timeout": true, "max_retries": true,
		"max_retries_down": true, "http_method": true, "url_path": true,
		"expected_codes": true, "admin_state_up": true,
	}
	healthMonitorPutAttrs = map[string]bool{
		"delay": true, "timeout": true, "max_retries": true,
		"max_retries_down": true, "http_method": true, "url_path": true,
		"expected_codes": true, "admin_state_up": true,
	}

	l7PolicyPostAttrs = map[string]bool{
		"tenant_id": true, "name": true, "description": true,
		"listener_id": true, "action": true, "redirect_pool_id": true,
		"redirect_url": true, "position": true, "admin_state_up": true,
	}
	l7PolicyPutAttrs = map[string]bool{
		"name": true, "description": true, "action": true,
		"redirect_pool_id": true, "redirect_url": true, "position": true,
		"admin_state_up": true,
	}

	l7RulePostAttrs = map[string]bool{
		"tenant_id": true, "type": true, "compare_type": true, "key": true,
		"value": true, "invert": true, "admin_state_up": true,
	}
	l7RulePutAttrs = map[string]bool{
		"type": true, "compare_type": true, "key": true, "value": true,
		"invert": true, "admin_state_up": true,
	}
)

func merge(base map[string]bool, extra ...string) map[string]bool {
	out := make(map[string]bool, len(base)+len(extra))
	for k := range base {
		out[k] = true
	}
	for _, k := range extra {
		out[k] = true
	}
	return out
}

// appendPosition sorts a new policy to the end of its listener's list when
// the body carries no explicit position. Explicit zero stays zero and is
// rejected by validation.
const appendPosition = 2147483647

// Default seeds per resource. Decoding over a seeded struct keeps the
// defaults for absent attributes only.
func seededLoadBalancer() *models.LoadBalancer {
	return &models.LoadBalancer{AdminStateUp: true}
}

func seededListener() *models.Listener {
	return &models.Listener{AdminStateUp: true, ConnectionLimit: -1}
}

func seededPool() *models.Pool {
	return &models.Pool{AdminStateUp: true}
}

func seededMember() *models.Member {
	return &models.Member{AdminStateUp: true, Weight: 1}
}

func seededHealthMonitor() *models.HealthMonitor {
	return &models.HealthMonitor{
		AdminStateUp:   true,
		MaxRetriesDown: 3,
		HTTPMethod:     "GET",
		URLPath:        "/",
		ExpectedCodes:  "200",
	}
}

func seededL7Policy() *models.L7Policy {
	return &models.L7Policy{AdminStateUp: true, Position: appendPosition}
}

func seededL7Rule() *models.L7Rule {
	return &models.L7Rule{AdminStateUp: true}
}

// Load balancers.

func (s *Server) listLoadBalancers(w http.ResponseWriter, r *http.Request) {
	opts, fields := listOpts(r)
	lbs, err := s.svc.ListLoadBalancers(r.Context(), opts)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"loadbalancers": selectFieldsList(lbs, fields),
	})
}

func (s *Server) createLoadBalancer(w http.ResponseWriter, r *http.Request) {
	lb := seededLoadBalancer()
	if err := decodeBody(r, "loadbalancer", loadBalancerPostAttrs, lb); err != nil {
		writeFault(w, err)
		return
	}
	created, err := s.svc.CreateLoadBalancer(r.Context(), lb)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"loadbalancer": created})
}

func (s *Server) getLoadBalancer(w http.ResponseWriter, r *http.Request) {
	_, fields := listOpts(r)
	lb, err := s.svc.GetLoadBalancer(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"loadbalancer": selectFields(lb, fields),
	})
}

func (s *Server) updateLoadBalancer(w http.ResponseWriter, r *http.Request) {
	var u models.LoadBalancerUpdate
	if err := decodeBody(r, "loadbalancer", loadBalancerPutAttrs, &u); err != nil {
		writeFault(w, err)
		return
	}
	lb, err := s.svc.UpdateLoadBalancer(r.Context(), mux.Vars(r)["id"], &u)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"loadbalancer": lb})
}

func (s *Server) deleteLoadBalancer(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteLoadBalancer(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) getLoadBalancerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.GetLoadBalancerStats(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

func (s *Server) getLoadBalancerStatuses(w http.ResponseWriter, r *http.Request) {
	tree, err := s.svc.GetLoadBalancerStatusTree(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"statuses": tree})
}

func (s *Server) createGraph(w http.ResponseWriter, r *http.Request) {
	var wrapper struct {
		Graph struct {
			LoadBalancer json.RawMessage `json:"loadbalancer"`
		} `json:"graph"`
	}
	if err := json.NewDecoder(r.Body).Decode(&wrapper); err != nil {
		writeFault(w, &plugin.BadValueError{Field: "body", Reason: err.Error()})
		return
	}
	if wrapper.Graph.LoadBalancer == nil {
		writeFault(w, &plugin.RequiredError{Field: "graph.loadbalancer"})
		return
	}
	lb, err := decodeGraph(wrapper.Graph.LoadBalancer)
	if err != nil {
		writeFault(w, err)
		return
	}
	created, err := s.svc.CreateLoadBalancerGraph(r.Context(), lb)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"graph": map[string]interface{}{
		"loadbalancer": created,
	}})
}

// decodeGraph decodes a full graph body, seeding the per-entity defaults at
// every level so absent attributes pick them up.
func decodeGraph(raw json.RawMessage) (*models.LoadBalancer, error) {
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, &plugin.BadValueError{Field: "loadbalancer", Reason: err.Error()}
	}
	for key := range attrs {
		if !loadBalancerGraphAttrs[key] {
			return nil, &plugin.BadValueError{Field: key, Reason: "attribute is not allowed on POST"}
		}
	}
	lb := seededLoadBalancer()
	if err := json.Unmarshal(raw, lb); err != nil {
		return nil, &plugin.BadValueError{Field: "loadbalancer", Reason: err.Error()}
	}
	lb.Listeners = nil
	lb.Pools = nil

	var children struct {
		Listeners []json.RawMessage `json:"listeners"`
		Pools     []json.RawMessage `json:"pools"`
	}
	if err := json.Unmarshal(raw, &children); err != nil {
		return nil, &plugin.BadValueError{Field: "loadbalancer", Reason: err.Error()}
	}
	for _, lraw := range children.Listeners {
		l, err := decodeGraphListener(lraw)
		if err != nil {
			return nil, err
		}
		lb.Listeners = append(lb.Listeners, l)
	}
	for _, praw := range children.Pools {
		p, err := decodeGraphPool(praw)
		if err != nil {
			return nil, err
		}
		lb.Pools = append(lb.Pools, p)
	}
	return lb, nil
}

func decodeGraphListener(raw json.RawMessage) (*models.Listener, error) {
	l := seededListener()
	if err := json.Unmarshal(raw, l); err != nil {
		return nil, &plugin.BadValueError{Field: "listener", Reason: err.Error()}
	}
	l.DefaultPool = nil
	l.L7Policies = nil

	var children struct {
		DefaultPool json.RawMessage   `json:"default_pool"`
		L7Policies  []json.RawMessage `json:"l7policies"`
	}
	if err := json.Unmarshal(raw, &children); err != nil {
		return nil, &plugin.BadValueError{Field: "listener", Reason: err.Error()}
	}
	if children.DefaultPool != nil {
		p, err := decodeGraphPool(children.DefaultPool)
		if err != nil {
			return nil, err
		}
		l.DefaultPool = p
	}
	for _, praw := range children.L7Policies {
		pol := seededL7Policy()
		if err := json.Unmarshal(praw, pol); err != nil {
			return nil, &plugin.BadValueError{Field: "l7policy", Reason: err.Error()}
		}
		pol.Rules = nil
		var polChildren struct {
			Rules []json.RawMessage `json:"rules"`
		}
		if err := json.Unmarshal(praw, &polChildren); err != nil {
			return nil, &plugin.BadValueError{Field: "l7policy", Reason: err.Error()}
		}
		for _, rraw := range polChildren.Rules {
			rule := seededL7Rule()
			if err := json.Unmarshal(rraw, rule); err != nil {
				return nil, &plugin.BadValueError{Field: "rule", Reason: err.Error()}
			}
			pol.Rules = append(pol.Rules, rule)
		}
		l.L7Policies = append(l.L7Policies, pol)
	}
	return l, nil
}

func decodeGraphPool(raw json.RawMessage) (*models.Pool, error) {
	p := seededPool()
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, &plugin.BadValueError{Field: "pool", Reason: err.Error()}
	}
	p.Members = nil
	p.HealthMonitor = nil

	var children struct {
		Members       []json.RawMessage `json:"members"`
		HealthMonitor json.RawMessage   `json:"healthmonitor"`
	}
	if err := json.Unmarshal(raw, &children); err != nil {
		return nil, &plugin.BadValueError{Field: "pool", Reason: err.Error()}
	}
	for _, mraw := range children.Members {
		m := seededMember()
		if err := json.Unmarshal(mraw, m); err != nil {
			return nil, &plugin.BadValueError{Field: "member", Reason: err.Error()}
		}
		p.Members = append(p.Members, m)
	}
	if children.HealthMonitor != nil {
		hm := seededHealthMonitor()
		if err := json.Unmarshal(children.HealthMonitor, hm); err != nil {
			return nil, &plugin.BadValueError{Field: "healthmonitor", Reason: err.Error()}
		}
		p.HealthMonitor = hm
	}
	return p, nil
}

// Listeners.

func (s *Server) listListeners(w http.ResponseWriter, r *http.Request) {
	opts, fields := listOpts(r)
	ls, err := s.svc.ListListeners(r.Context(), opts)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"listeners": selectFieldsList(ls, fields),
	})
}

func (s *Server) createListener(w http.ResponseWriter, r *http.Request) {
	l := seededListener()
	if err := decodeBody(r, "listener", listenerPostAttrs, l); err != nil {
		writeFault(w, err)
		return
	}
	created, err := s.svc.CreateListener(r.Context(), l)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"listener": created})
}

func (s *Server) getListener(w http.ResponseWriter, r *http.Request) {
	_, fields := listOpts(r)
	l, err := s.svc.GetListener(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"listener": selectFields(l, fields),
	})
}

func (s *Server) updateListener(w http.ResponseWriter, r *http.Request) {
	var u models.ListenerUpdate
	if err := decodeBody(r, "listener", listenerPutAttrs, &u); err != nil {
		writeFault(w, err)
		return
	}
	l, err := s.svc.UpdateListener(r.Context(), mux.Vars(r)["id"], &u)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"listener": l})
}

func (s *Server) deleteListener(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteListener(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// Pools.

func (s *Server) listPools(w http.ResponseWriter, r *http.Request) {
	opts, fields := listOpts(r)
	ps, err := s.svc.ListPools(r.Context(), opts)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pools": selectFieldsList(ps, fields),
	})
}

func (s *Server) createPool(w http.ResponseWriter, r *http.Request) {
	p := seededPool()
	if err := decodeBody(r, "pool", poolPostAttrs, p); err != nil {
		writeFault(w, err)
		return
	}
	created, err := s.svc.CreatePool(r.Context(), p)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"pool": created})
}

func (s *Server) getPool(w http.ResponseWriter, r *http.Request) {
	_, fields := listOpts(r)
	p, err := s.svc.GetPool(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pool": selectFields(p, fields),
	})
}

func (s *Server) updatePool(w http.ResponseWriter, r *http.Request) {
	var u models.PoolUpdate
	if err := decodeBody(r, "pool", poolPutAttrs, &u); err != nil {
		writeFault(w, err)
		return
	}
	p, err := s.svc.UpdatePool(r.Context(), mux.Vars(r)["id"], &u)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pool": p})
}

func (s *Server) deletePool(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeletePool(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// Members.

func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	opts, fields := listOpts(r)
	ms, err := s.svc.ListMembers(r.Context(), mux.Vars(r)["pool_id"], opts)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"members": selectFieldsList(ms, fields),
	})
}

func (s *Server) createMember(w http.ResponseWriter, r *http.Request) {
	m := seededMember()
	if err := decodeBody(r, "member", memberPostAttrs, m); err != nil {
		writeFault(w, err)
		return
	}
	created, err := s.svc.CreateMember(r.Context(), mux.Vars(r)["pool_id"], m)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"member": created})
}

func (s *Server) getMember(w http.ResponseWriter, r *http.Request) {
	_, fields := listOpts(r)
	vars := mux.Vars(r)
	m, err := s.svc.GetMember(r.Context(), vars["pool_id"], vars["id"])
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"member": selectFields(m, fields),
	})
}

func (s *Server) updateMember(w http.ResponseWriter, r *http.Request) {
	var u models.MemberUpdate
	if err := decodeBody(r, "member", memberPutAttrs, &u); err != nil {
		writeFault(w, err)
		return
	}
	vars := mux.Vars(r)
	m, err := s.svc.UpdateMember(r.Context(), vars["pool_id"], vars["id"], &u)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"member": m})
}

func (s *Server) deleteMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.svc.DeleteMember(r.Context(), vars["pool_id"], vars["id"]); err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// Health monitors.

func (s *Server) listHealthMonitors(w http.ResponseWriter, r *http.Request) {
	opts, fields := listOpts(r)
	hms, err := s.svc.ListHealthMonitors(r.Context(), opts)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"healthmonitors": selectFieldsList(hms, fields),
	})
}

func (s *Server) createHealthMonitor(w http.ResponseWriter, r *http.Request) {
	hm := seededHealthMonitor()
	if err := decodeBody(r, "healthmonitor", healthMonitorPostAttrs, hm); err != nil {
		writeFault(w, err)
		return
	}
	created, err := s.svc.CreateHealthMonitor(r.Context(), hm)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"healthmonitor": created})
}

func (s *Server) getHealthMonitor(w http.ResponseWriter, r *http.Request) {
	_, fields := listOpts(r)
	hm, err := s.svc.GetHealthMonitor(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"healthmonitor": selectFields(hm, fields),
	})
}

func (s *Server) updateHealthMonitor(w http.ResponseWriter, r *http.Request) {
	var u models.HealthMonitorUpdate
	if err := decodeBody(r, "healthmonitor", healthMonitorPutAttrs, &u); err != nil {
		writeFault(w, err)
		return
	}
	hm, err := s.svc.UpdateHealthMonitor(r.Context(), mux.Vars(r)["id"], &u)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"healthmonitor": hm})
}

func (s *Server) deleteHealthMonitor(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteHealthMonitor(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// L7 policies.

func (s *Server) listL7Policies(w http.ResponseWriter, r *http.Request) {
	opts, fields := listOpts(r)
	pols, err := s.svc.ListL7Policies(r.Context(), opts)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"l7policies": selectFieldsList(pols, fields),
	})
}

func (s *Server) createL7Policy(w http.ResponseWriter, r *http.Request) {
	pol := seededL7Policy()
	if err := decodeBody(r, "l7policy", l7PolicyPostAttrs, pol); err != nil {
		writeFault(w, err)
		return
	}
	created, err := s.svc.CreateL7Policy(r.Context(), pol)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"l7policy": created})
}

func (s *Server) getL7Policy(w http.ResponseWriter, r *http.Request) {
	_, fields := listOpts(r)
	pol, err := s.svc.GetL7Policy(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"l7policy": selectFields(pol, fields),
	})
}

func (s *Server) updateL7Policy(w http.ResponseWriter, r *http.Request) {
	var u models.L7PolicyUpdate
	if err := decodeBody(r, "l7policy", l7PolicyPutAttrs, &u); err != nil {
		writeFault(w, err)
		return
	}
	pol, err := s.svc.UpdateL7Policy(r.Context(), mux.Vars(r)["id"], &u)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"l7policy": pol})
}

func (s *Server) deleteL7Policy(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteL7Policy(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// L7 rules.

func (s *Server) listL7Rules(w http.ResponseWriter, r *http.Request) {
	opts, fields := listOpts(r)
	rules, err := s.svc.ListL7Rules(r.Context(), mux.Vars(r)["policy_id"], opts)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": selectFieldsList(rules, fields),
	})
}

func (s *Server) createL7Rule(w http.ResponseWriter, r *http.Request) {
	rule := seededL7Rule()
	if err := decodeBody(r, "rule", l7RulePostAttrs, rule); err != nil {
		writeFault(w, err)
		return
	}
	created, err := s.svc.CreateL7Rule(r.Context(), mux.Vars(r)["policy_id"], rule)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"rule": created})
}

func (s *Server) getL7Rule(w http.ResponseWriter, r *http.Request) {
	_, fields := listOpts(r)
	vars := mux.Vars(r)
	rule, err := s.svc.GetL7Rule(r.Context(), vars["policy_id"], vars["id"])
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rule": selectFields(rule, fields),
	})
}

func (s *Server) updateL7Rule(w http.ResponseWriter, r *http.Request) {
	var u models.L7RuleUpdate
	if err := decodeBody(r, "rule", l7RulePutAttrs, &u); err != nil {
		writeFault(w, err)
		return
	}
	vars := mux.Vars(r)
	rule, err := s.svc.UpdateL7Rule(r.Context(), vars["policy_id"], vars["id"], &u)
	if err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rule": rule})
}

func (s *Server) deleteL7Rule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.svc.DeleteL7Rule(r.Context(), vars["policy_id"], vars["id"]); err != nil {
		writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
