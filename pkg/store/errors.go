// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package store

import (
	"errors"
	"fmt"
)

// Kind identifies an entity type in error values and status operations.
type Kind string

const (
	KindLoadBalancer  Kind = "loadbalancer"
	KindListener      Kind = "listener"
	KindPool          Kind = "pool"
	KindMember        Kind = "member"
	KindHealthMonitor Kind = "healthmonitor"
	KindL7Policy      Kind = "l7policy"
	KindL7Rule        Kind = "l7rule"
	KindAgent         Kind = "agent"
)

// NotFoundError is returned when a referenced id does not resolve.
type NotFoundError struct {
	Kind Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s could not be found", e.Kind, e.ID)
}

// DuplicateError is returned on unique-key violations.
type DuplicateError struct {
	Kind   Kind
	Detail string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Kind, e.Detail)
}

// InUseError is returned when a delete or association hits a resource that
// is still referenced.
type InUseError struct {
	Kind   Kind
	ID     string
	Detail string
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("%s %s is in use: %s", e.Kind, e.ID, e.Detail)
}

// StateError is returned when a mutation hits an object whose provisioning
// status is PENDING_*.
type StateError struct {
	Kind   Kind
	ID     string
	Status string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid state %s of %s %s", e.Status, e.Kind, e.ID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsDuplicate reports whether err is a DuplicateError.
func IsDuplicate(err error) bool {
	var d *DuplicateError
	return errors.As(err, &d)
}

// IsInUse reports whether err is an InUseError.
func IsInUse(err error) bool {
	var iu *InUseError
	return errors.As(err, &iu)
}

// IsStateError reports whether err is a StateError.
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}
