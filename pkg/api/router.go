// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package api exposes the LBaaS v2 REST surface over a service plugin. The
// router is a plain table of named routes; every handler decodes, calls the
// plugin and maps service errors onto the HTTP taxonomy.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/openlbaas/openlbaas/pkg/logging"
	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
	"github.com/openlbaas/openlbaas/pkg/metrics"
	"github.com/openlbaas/openlbaas/pkg/plugin"
)

var log = logging.DefaultLogger.WithField(logfields.LogSubsys, "api")

type route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

type routes []route

// Server is the REST router over a service plugin.
type Server struct {
	*mux.Router
	svc    plugin.Service
	routes routes
}

// NewServer builds the router for the given service implementation.
func NewServer(svc plugin.Service) *Server {
	s := &Server{
		Router: mux.NewRouter().StrictSlash(true),
		svc:    svc,
	}
	s.initRoutes()
	for _, r := range s.routes {
		s.Methods(r.Method).
			Path(r.Pattern).
			Name(r.Name).
			Handler(instrumentedHandler(r.HandlerFunc, r.Name, r.Method))
	}
	return s
}

func (s *Server) initRoutes() {
	s.routes = routes{
		route{"ListLoadBalancers", "GET", "/lbaas/loadbalancers", s.listLoadBalancers},
		route{"CreateLoadBalancer", "POST", "/lbaas/loadbalancers", s.createLoadBalancer},
		route{"GetLoadBalancer", "GET", "/lbaas/loadbalancers/{id}", s.getLoadBalancer},
		route{"UpdateLoadBalancer", "PUT", "/lbaas/loadbalancers/{id}", s.updateLoadBalancer},
		route{"DeleteLoadBalancer", "DELETE", "/lbaas/loadbalancers/{id}", s.deleteLoadBalancer},
		route{"GetLoadBalancerStats", "GET", "/lbaas/loadbalancers/{id}/stats", s.getLoadBalancerStats},
		route{"GetLoadBalancerStatuses", "GET", "/lbaas/loadbalancers/{id}/statuses", s.getLoadBalancerStatuses},
		route{"CreateGraph", "POST", "/lbaas/graphs", s.createGraph},

		route{"ListListeners", "GET", "/lbaas/listeners", s.listListeners},
		route{"CreateListener", "POST", "/lbaas/listeners", s.createListener},
		route{"GetListener", "GET", "/lbaas/listeners/{id}", s.getListener},
		route{"UpdateListener", "PUT", "/lbaas/listeners/{id}", s.updateListener},
		route{"DeleteListener", "DELETE", "/lbaas/listeners/{id}", s.deleteListener},

		route{"ListPools", "GET", "/lbaas/pools", s.listPools},
		route{"CreatePool", "POST", "/lbaas/pools", s.createPool},
		route{"GetPool", "GET", "/lbaas/pools/{id}", s.getPool},
		route{"UpdatePool", "PUT", "/lbaas/pools/{id}", s.updatePool},
		route{"DeletePool", "DELETE", "/lbaas/pools/{id}", s.deletePool},

		route{"ListMembers", "GET", "/lbaas/pools/{pool_id}/members", s.listMembers},
		route{"CreateMember", "POST", "/lbaas/pools/{pool_id}/members", s.createMember},
		route{"GetMember", "GET", "/lbaas/pools/{pool_id}/members/{id}", s.getMember},
		route{"UpdateMember", "PUT", "/lbaas/pools/{pool_id}/members/{id}", s.updateMember},
		route{"DeleteMember", "DELETE", "/lbaas/pools/{pool_id}/members/{id}", s.deleteMember},

		route{"ListHealthMonitors", "GET", "/lbaas/healthmonitors", s.listHealthMonitors},
		route{"CreateHealthMonitor", "POST", "/lbaas/healthmonitors", s.createHealthMonitor},
		route{"GetHealthMonitor", "GET", "/lbaas/healthmonitors/{id}", s.getHealthMonitor},
		route{"UpdateHealthMonitor", "PUT", "/lbaas/healthmonitors/{id}", s.updateHealthMonitor},
		route{"DeleteHealthMonitor", "DELETE", "/lbaas/healthmonitors/{id}", s.deleteHealthMonitor},

		route{"ListL7Policies", "GET", "/lbaas/l7policies", s.listL7Policies},
		route{"CreateL7Policy", "POST", "/lbaas/l7policies", s.createL7Policy},
		route{"GetL7Policy", "GET", "/lbaas/l7policies/{id}", s.getL7Policy},
		route{"UpdateL7Policy", "PUT", "/lbaas/l7policies/{id}", s.updateL7Policy},
		route{"DeleteL7Policy", "DELETE", "/lbaas/l7policies/{id}", s.deleteL7Policy},

		route{"ListL7Rules", "GET", "/lbaas/l7policies/{policy_id}/rules", s.listL7Rules},
		route{"CreateL7Rule", "POST", "/lbaas/l7policies/{policy_id}/rules", s.createL7Rule},
		route{"GetL7Rule", "GET", "/lbaas/l7policies/{policy_id}/rules/{id}", s.getL7Rule},
		route{"UpdateL7Rule", "PUT", "/lbaas/l7policies/{policy_id}/rules/{id}", s.updateL7Rule},
		route{"DeleteL7Rule", "DELETE", "/lbaas/l7policies/{policy_id}/rules/{id}", s.deleteL7Rule},
	}
}

// statusRecorder captures the response code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func instrumentedHandler(h http.HandlerFunc, name, method string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		h(rec, r)
		duration := time.Since(start)
		metrics.ObserveAPIRequest(name, method, strconv.Itoa(rec.code), duration)
		log.WithFields(logrus.Fields{
			"handler":  name,
			"method":   method,
			"code":     rec.code,
			"duration": duration,
		}).Debug("Request served")
	})
}
