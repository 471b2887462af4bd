// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package agent implements the host-side half of agent-based providers. A
// reconciler periodically compares the set of load balancers the control
// plane expects on this host with the set of locally deployed instances and
// converges the two through the configured device drivers.
package agent

import (
	"context"

	"github.com/openlbaas/openlbaas/pkg/logging"
	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
	"github.com/openlbaas/openlbaas/pkg/models"
)

var log = logging.DefaultLogger.WithField(logfields.LogSubsys, "agent")

// DeviceDriver materializes load balancer graphs on the local host. One
// driver instance manages all deployments of its class.
type DeviceDriver interface {
	// Name is the device driver name advertised in heartbeats. It must
	// match the name the provider's driver class requires.
	Name() string

	// DeployInstance writes out and (re)loads the data plane for the
	// given hydrated graph. Idempotent; redeploying an unchanged graph
	// is a no-op.
	DeployInstance(ctx context.Context, lb *models.LoadBalancer) error

	// UndeployInstance tears down the instance. deleteNamespace also
	// removes the instance's on-host state.
	UndeployInstance(ctx context.Context, lbID string, deleteNamespace bool) error

	// DeployedInstances lists the ids currently deployed by this driver.
	DeployedInstances() []string

	// IsDeployed reports whether the id is deployed by this driver.
	IsDeployed(lbID string) bool

	// Stats scrapes the current counters of a deployed instance.
	Stats(ctx context.Context, lbID string) (*models.LoadBalancerStats, error)
}
