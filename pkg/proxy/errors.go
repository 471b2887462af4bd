// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package proxy

import (
	"errors"
	"fmt"
)

// QuotaExceededError is a 413 from the remote service.
type QuotaExceededError struct {
	Message string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded: %s", e.Message)
}

// NotAuthorizedError is a 401 from the remote service.
type NotAuthorizedError struct {
	Message string
}

func (e *NotAuthorizedError) Error() string {
	return fmt.Sprintf("not authorized: %s", e.Message)
}

// ConflictError is a 409 from the remote service.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Message)
}

// IsQuotaExceeded reports whether err is a remote quota rejection.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}

// IsNotAuthorized reports whether err is a remote authorization failure.
func IsNotAuthorized(err error) bool {
	var ne *NotAuthorizedError
	return errors.As(err, &ne)
}

// IsConflict reports whether err is a remote conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
