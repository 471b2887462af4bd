// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package driver

import (
	"errors"
	"fmt"
)

// Error wraps anything raised by a driver call. The plugin core marks the
// affected object ERROR and surfaces this to the caller; a failed driver
// call is never retried silently.
type Error struct {
	Provider string
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("driver %s failed on %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError wraps err into a driver Error unless it already is one.
func WrapError(provider, op string, err error) error {
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Provider: provider, Op: op, Err: err}
}

// IsDriverError reports whether err is a driver Error.
func IsDriverError(err error) bool {
	var de *Error
	return errors.As(err, &de)
}
