// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package plugin

import (
	"errors"
	"fmt"
)

// Validation and conflict errors raised by the plugin before any driver is
// invoked. The API layer maps each type to an HTTP status.

// RequiredError reports a missing required attribute.
type RequiredError struct {
	Field string
}

func (e *RequiredError) Error() string {
	return fmt.Sprintf("required attribute %s not specified", e.Field)
}

// BadValueError reports an attribute value outside its domain.
type BadValueError struct {
	Field  string
	Reason string
}

func (e *BadValueError) Error() string {
	return fmt.Sprintf("invalid value for %s: %s", e.Field, e.Reason)
}

// ImmutableError reports an attempt to change an immutable attribute.
type ImmutableError struct {
	Field string
}

func (e *ImmutableError) Error() string {
	return fmt.Sprintf("attribute %s cannot be updated", e.Field)
}

// ProtocolMismatchError reports an incompatible listener/pool protocol pair.
type ProtocolMismatchError struct {
	ListenerProtocol string
	PoolProtocol     string
}

func (e *ProtocolMismatchError) Error() string {
	return fmt.Sprintf("listener protocol %s incompatible with pool protocol %s",
		e.ListenerProtocol, e.PoolProtocol)
}

// L7PolicyAttributeError reports a redirect attribute missing or invalid for
// the policy action. Surfaces as a conflict.
type L7PolicyAttributeError struct {
	Action string
	Field  string
}

func (e *L7PolicyAttributeError) Error() string {
	return fmt.Sprintf("l7policy action %s requires a valid %s", e.Action, e.Field)
}

// UnsupportedError reports an operation the selected provider does not
// implement.
type UnsupportedError struct {
	Provider  string
	Operation string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("provider %s does not support %s", e.Provider, e.Operation)
}

// IsValidationError reports whether err is one of the 400-class attribute
// errors.
func IsValidationError(err error) bool {
	var req *RequiredError
	var bad *BadValueError
	var imm *ImmutableError
	return errors.As(err, &req) || errors.As(err, &bad) || errors.As(err, &imm)
}

// IsProtocolMismatch reports whether err is a ProtocolMismatchError.
func IsProtocolMismatch(err error) bool {
	var pm *ProtocolMismatchError
	return errors.As(err, &pm)
}

// IsL7PolicyAttributeError reports whether err is an L7PolicyAttributeError.
func IsL7PolicyAttributeError(err error) bool {
	var l7 *L7PolicyAttributeError
	return errors.As(err, &l7)
}

// IsUnsupported reports whether err is an UnsupportedError.
func IsUnsupported(err error) bool {
	var un *UnsupportedError
	return errors.As(err, &un)
}
