// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package api

import (
	"errors"
	"net/http"

	"github.com/openlbaas/openlbaas/pkg/certmgr"
	"github.com/openlbaas/openlbaas/pkg/driver"
	"github.com/openlbaas/openlbaas/pkg/plugin"
	"github.com/openlbaas/openlbaas/pkg/proxy"
	"github.com/openlbaas/openlbaas/pkg/scheduler"
	"github.com/openlbaas/openlbaas/pkg/store"
)

// fault is the error body of every non-2xx response.
type fault struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type faultEnvelope struct {
	Error fault `json:"error"`
}

// httpStatus maps a service error onto the HTTP taxonomy. Ordering matters
// for the few error classes that wrap others.
func httpStatus(err error) (int, string) {
	var noAgent *scheduler.NoEligibleAgentError
	switch {
	case certmgr.IsNotFound(err):
		return http.StatusNotFound, "TLSContainerNotFound"
	case certmgr.IsInvalid(err):
		return http.StatusBadRequest, "TLSContainerInvalid"
	case isCertBackendError(err):
		return http.StatusInternalServerError, "CertManagerError"
	case store.IsNotFound(err):
		return http.StatusNotFound, "NotFound"
	case store.IsDuplicate(err):
		return http.StatusConflict, "Duplicate"
	case store.IsInUse(err):
		return http.StatusConflict, "InUse"
	case store.IsStateError(err):
		return http.StatusConflict, "StateInvalid"
	case plugin.IsProtocolMismatch(err):
		return http.StatusConflict, "ProtocolMismatch"
	case plugin.IsL7PolicyAttributeError(err):
		return http.StatusConflict, "L7PolicyAttributeError"
	case plugin.IsUnsupported(err):
		return http.StatusNotImplemented, "NotImplemented"
	case plugin.IsValidationError(err):
		return http.StatusBadRequest, "BadRequest"
	case errors.As(err, &noAgent):
		return http.StatusServiceUnavailable, "NoEligibleAgent"
	case proxy.IsQuotaExceeded(err):
		return http.StatusRequestEntityTooLarge, "QuotaExceeded"
	case proxy.IsConflict(err):
		return http.StatusConflict, "Conflict"
	case proxy.IsNotAuthorized(err):
		return http.StatusUnauthorized, "NotAuthorized"
	case driver.IsDriverError(err):
		return http.StatusInternalServerError, "DriverError"
	default:
		return http.StatusInternalServerError, "InternalError"
	}
}

func isCertBackendError(err error) bool {
	var be *certmgr.BackendError
	return errors.As(err, &be)
}
