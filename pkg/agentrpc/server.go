// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package agentrpc

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/openlbaas/openlbaas/pkg/logging"
	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
	"github.com/openlbaas/openlbaas/pkg/store"
)

var log = logging.DefaultLogger.WithField(logfields.LogSubsys, "agentrpc")

type route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

type routes []route

// Server exposes the agent-facing RPC surface under /agent/v1.
type Server struct {
	*mux.Router
	backend Backend
	routes  routes
}

// NewServer creates the RPC router over the given backend.
func NewServer(backend Backend) *Server {
	s := &Server{
		Router:  mux.NewRouter().StrictSlash(true),
		backend: backend,
	}
	s.initRoutes()
	for _, r := range s.routes {
		s.Methods(r.Method).
			Path(r.Pattern).
			Name(r.Name).
			Handler(loggingHandler(r.HandlerFunc, r.Name))
	}
	return s
}

func (s *Server) initRoutes() {
	s.routes = routes{
		route{"ReportState", "POST", "/agent/v1/report_state", s.reportState},
		route{"ReadyDevices", "GET", "/agent/v1/ready_devices", s.readyDevices},
		route{"LoadBalancerGraph", "GET", "/agent/v1/loadbalancers/{id}", s.loadBalancerGraph},
		route{"DeviceDriver", "GET", "/agent/v1/loadbalancers/{id}/device_driver", s.deviceDriver},
		route{"LoadBalancerDeployed", "POST", "/agent/v1/loadbalancers/{id}/deployed", s.loadBalancerDeployed},
		route{"LoadBalancerDestroyed", "POST", "/agent/v1/loadbalancers/{id}/destroyed", s.loadBalancerDestroyed},
		route{"UpdateStatus", "PUT", "/agent/v1/status", s.updateStatus},
		route{"UpdateStats", "PUT", "/agent/v1/stats", s.updateStats},
		route{"PlugVIPPort", "POST", "/agent/v1/ports/plug", s.plugVIPPort},
		route{"UnplugVIPPort", "POST", "/agent/v1/ports/unplug", s.unplugVIPPort},
		route{"Notifications", "GET", "/agent/v1/notifications", s.notifications},
	}
}

func loggingHandler(h http.HandlerFunc, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h(w, r)
		log.WithFields(logrus.Fields{
			"handler":  name,
			"duration": time.Since(start),
		}).Debug("Agent RPC request served")
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode RPC response")
	}
}

type rpcError struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if store.IsNotFound(err) {
		code = http.StatusNotFound
	}
	writeJSON(w, code, rpcError{Message: err.Error()})
}

func (s *Server) reportState(w http.ResponseWriter, r *http.Request) {
	var report StateReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeJSON(w, http.StatusBadRequest, rpcError{Message: err.Error()})
		return
	}
	agent, err := s.backend.ReportState(&report)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) readyDevices(w http.ResponseWriter, r *http.Request) {
	host := r.URL.Query().Get("host")
	ids, err := s.backend.GetReadyDevices(host)
	if err != nil {
		writeError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, ReadyDevicesResponse{LoadBalancerIDs: ids})
}

func (s *Server) loadBalancerGraph(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	lb, err := s.backend.GetLoadBalancerGraph(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (s *Server) deviceDriver(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	name, err := s.backend.DeviceDriverName(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeviceDriverResponse{DeviceDriver: name})
}

func (s *Server) loadBalancerDeployed(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.backend.LoadBalancerDeployed(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) loadBalancerDestroyed(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.backend.LoadBalancerDestroyed(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request) {
	var u StatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeJSON(w, http.StatusBadRequest, rpcError{Message: err.Error()})
		return
	}
	if err := s.backend.UpdateObjectStatus(&u); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) updateStats(w http.ResponseWriter, r *http.Request) {
	var u StatsUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeJSON(w, http.StatusBadRequest, rpcError{Message: err.Error()})
		return
	}
	if err := s.backend.UpdateLoadBalancerStats(&u); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) plugVIPPort(w http.ResponseWriter, r *http.Request) {
	var req PortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, rpcError{Message: err.Error()})
		return
	}
	if err := s.backend.PlugVIPPort(&req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) unplugVIPPort(w http.ResponseWriter, r *http.Request) {
	var req PortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, rpcError{Message: err.Error()})
		return
	}
	if err := s.backend.UnplugVIPPort(&req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) notifications(w http.ResponseWriter, r *http.Request) {
	host := r.URL.Query().Get("host")
	ns, err := s.backend.DrainNotifications(host)
	if err != nil {
		writeError(w, err)
		return
	}
	if ns == nil {
		ns = []*Notification{}
	}
	writeJSON(w, http.StatusOK, NotificationsResponse{Notifications: ns})
}
