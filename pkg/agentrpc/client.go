// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package agentrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/openlbaas/openlbaas/pkg/models"
)

// Client is the agent-side RPC client. Transient transport failures are
// retried with exponential backoff; HTTP-level errors are not retried.
type Client struct {
	baseURL string
	host    string
	client  *http.Client
}

// NewClient returns a client for the control plane at baseURL, identifying
// itself as host.
func NewClient(baseURL, host string) *Client {
	return &Client{
		baseURL: baseURL,
		host:    host,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// RemoteError is a non-2xx response from the control plane.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("control plane returned %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a remote 404.
func IsNotFound(err error) bool {
	re, ok := err.(*RemoteError)
	return ok && re.StatusCode == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	op := func() error {
		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			if err != nil {
				return backoff.Permanent(err)
			}
			reader = bytes.NewReader(raw)
		}
		u := c.baseURL + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			var re rpcError
			_ = json.NewDecoder(resp.Body).Decode(&re)
			return backoff.Permanent(&RemoteError{StatusCode: resp.StatusCode, Message: re.Message})
		}
		if out != nil {
			return backoff.Permanent(json.NewDecoder(resp.Body).Decode(out))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(op, policy)
}

func (c *Client) hostQuery() url.Values {
	return url.Values{"host": []string{c.host}}
}

// ReportState sends a heartbeat carrying the advertised device drivers.
func (c *Client) ReportState(ctx context.Context, deviceDrivers []string) (*models.Agent, error) {
	var agent models.Agent
	report := StateReport{Host: c.host, DeviceDrivers: deviceDrivers}
	if err := c.do(ctx, "POST", "/agent/v1/report_state", nil, &report, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

// GetReadyDevices fetches the load balancer ids this agent should run.
func (c *Client) GetReadyDevices(ctx context.Context) ([]string, error) {
	var resp ReadyDevicesResponse
	if err := c.do(ctx, "GET", "/agent/v1/ready_devices", c.hostQuery(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.LoadBalancerIDs, nil
}

// GetLoadBalancerGraph fetches the hydrated graph for one load balancer.
func (c *Client) GetLoadBalancerGraph(ctx context.Context, lbID string) (*models.LoadBalancer, error) {
	var lb models.LoadBalancer
	if err := c.do(ctx, "GET", "/agent/v1/loadbalancers/"+lbID, nil, nil, &lb); err != nil {
		return nil, err
	}
	return &lb, nil
}

// GetDeviceDriver resolves the device driver serving a load balancer.
func (c *Client) GetDeviceDriver(ctx context.Context, lbID string) (string, error) {
	var resp DeviceDriverResponse
	if err := c.do(ctx, "GET", "/agent/v1/loadbalancers/"+lbID+"/device_driver", nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.DeviceDriver, nil
}

// LoadBalancerDeployed reports a successful deployment.
func (c *Client) LoadBalancerDeployed(ctx context.Context, lbID string) error {
	return c.do(ctx, "POST", "/agent/v1/loadbalancers/"+lbID+"/deployed", nil, nil, nil)
}

// LoadBalancerDestroyed reports a completed undeploy.
func (c *Client) LoadBalancerDestroyed(ctx context.Context, lbID string) error {
	return c.do(ctx, "POST", "/agent/v1/loadbalancers/"+lbID+"/destroyed", nil, nil, nil)
}

// UpdateStatus pushes a status feedback write.
func (c *Client) UpdateStatus(ctx context.Context, u *StatusUpdate) error {
	return c.do(ctx, "PUT", "/agent/v1/status", nil, u, nil)
}

// UpdateLoadBalancerStats pushes a stats row.
func (c *Client) UpdateLoadBalancerStats(ctx context.Context, lbID string, stats *models.LoadBalancerStats) error {
	u := StatsUpdate{LoadBalancerID: lbID, Stats: *stats}
	return c.do(ctx, "PUT", "/agent/v1/stats", nil, &u, nil)
}

// PlugVIPPort binds a VIP port to this agent's host.
func (c *Client) PlugVIPPort(ctx context.Context, portID string) error {
	return c.do(ctx, "POST", "/agent/v1/ports/plug", nil, &PortRequest{PortID: portID, Host: c.host}, nil)
}

// UnplugVIPPort releases a VIP port binding.
func (c *Client) UnplugVIPPort(ctx context.Context, portID string) error {
	return c.do(ctx, "POST", "/agent/v1/ports/unplug", nil, &PortRequest{PortID: portID, Host: c.host}, nil)
}

// DrainNotifications fetches and clears pending notifications for this host.
func (c *Client) DrainNotifications(ctx context.Context) ([]*Notification, error) {
	var resp NotificationsResponse
	if err := c.do(ctx, "GET", "/agent/v1/notifications", c.hostQuery(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}
