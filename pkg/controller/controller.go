// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package controller runs named background loops. A controller executes its
// DoFunc on a fixed interval and backs off exponentially while the function
// keeps failing. The scheduler sweep, the agent reconciler and the stats
// reporter are all controllers.
package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/openlbaas/openlbaas/pkg/logging"
	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
)

const (
	// defaultErrorRetryBase is the initial wait between retries of a
	// failing DoFunc. The wait grows linearly with the number of
	// consecutive failures.
	defaultErrorRetryBase = time.Second
)

var log = logging.DefaultLogger.WithField(logfields.LogSubsys, "controller")

// ControllerFunc is the function executed by a controller.
type ControllerFunc func(ctx context.Context) error

// ControllerParams configures a controller.
type ControllerParams struct {
	// DoFunc is invoked on every run. Required.
	DoFunc ControllerFunc

	// StopFunc is invoked once when the controller is removed.
	StopFunc ControllerFunc

	// RunInterval is the interval between runs. If zero, the controller
	// only runs when triggered.
	RunInterval time.Duration

	// ErrorRetryBaseDuration overrides the default retry base interval.
	ErrorRetryBaseDuration time.Duration

	// NoErrorRetry disables the retry-on-error behaviour; the controller
	// waits for the regular interval regardless of failures.
	NoErrorRetry bool

	// Context, when set, cancels the DoFunc context when cancelled.
	Context context.Context
}

// NoopFunc is a no-op ControllerFunc.
func NoopFunc(ctx context.Context) error {
	return nil
}

func undefinedDoFunc(name string) error {
	return fmt.Errorf("controller %s has no DoFunc", name)
}

// Controller is a single named background loop.
type Controller struct {
	name   string
	params ControllerParams

	stop       chan struct{}
	update     chan struct{}
	trigger    chan struct{}
	terminated chan struct{}

	ctxDoFunc    context.Context
	cancelDoFunc context.CancelFunc

	lastError         error
	lastSuccessStamp  time.Time
	lastErrorStamp    time.Time
	successCount      int
	failureCount      int
	consecutiveErrors int
}

func (c *Controller) getLogger() *logrus.Entry {
	return log.WithField(logfields.Controller, c.name)
}

// Trigger requests an out-of-band run of the controller.
func (c *Controller) Trigger() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}

// LastError returns the error of the most recent failed run, or nil.
func (c *Controller) LastError() error {
	return c.lastError
}

func (c *Controller) errorRetryWait() time.Duration {
	base := c.params.ErrorRetryBaseDuration
	if base == 0 {
		base = defaultErrorRetryBase
	}
	return time.Duration(c.consecutiveErrors) * base
}

func (c *Controller) runController() {
	scopedLog := c.getLogger()
	errorRetries := make(<-chan time.Time)

	for {
		err := c.params.DoFunc(c.ctxDoFunc)
		if err != nil {
			c.lastError = err
			c.lastErrorStamp = time.Now()
			c.failureCount++
			c.consecutiveErrors++
			scopedLog.WithError(err).
				WithField("consecutiveErrors", c.consecutiveErrors).
				Debug("Controller run failed")
			if !c.params.NoErrorRetry {
				errorRetries = time.After(c.errorRetryWait())
			}
		} else {
			c.lastError = nil
			c.lastSuccessStamp = time.Now()
			c.successCount++
			c.consecutiveErrors = 0
			errorRetries = make(<-chan time.Time)
		}

		var interval <-chan time.Time
		if c.params.RunInterval > 0 {
			interval = time.After(c.params.RunInterval)
		}

		select {
		case <-c.stop:
			goto shutdown
		case <-c.update:
			// Parameters changed, run again immediately.
		case <-c.trigger:
		case <-errorRetries:
		case <-interval:
		}
	}

shutdown:
	scopedLog.Debug("Shutting down controller")
	if c.params.StopFunc != nil {
		if err := c.params.StopFunc(context.TODO()); err != nil {
			scopedLog.WithError(err).Warn("Error on controller stop function")
		}
	}
	c.cancelDoFunc()
	close(c.terminated)
}

func (c *Controller) stopController() {
	close(c.stop)
}
