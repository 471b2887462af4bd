// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package agent

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/openlbaas/openlbaas/pkg/haproxy"
	"github.com/openlbaas/openlbaas/pkg/lock"
	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
	"github.com/openlbaas/openlbaas/pkg/models"
)

// HAProxyDriverName is the device driver name for the namespace haproxy
// driver.
const HAProxyDriverName = "haproxy_ns"

// ProcessManager starts, reloads and stops haproxy processes. Split out so
// tests can run the driver without spawning anything.
type ProcessManager interface {
	// Start launches haproxy for an instance against the given
	// configuration file.
	Start(lbID, configPath, pidPath string) error

	// Reload performs a seamless reload of a running instance.
	Reload(lbID, configPath, pidPath string) error

	// Stop terminates the instance's process.
	Stop(lbID, pidPath string) error
}

// HAProxyDriverConfig configures the namespace haproxy device driver.
type HAProxyDriverConfig struct {
	// StateDir is the root directory for per-instance state. Each
	// instance owns <StateDir>/<lb id>/.
	StateDir string

	// TemplatePath optionally overrides the built-in configuration
	// template.
	TemplatePath string

	// Processes drives the haproxy processes. Required.
	Processes ProcessManager
}

// HAProxyDriver renders graphs with the shared haproxy renderer and manages
// one haproxy process per load balancer. Deployed state is rebuilt from the
// state directory on startup so an agent restart does not orphan instances.
type HAProxyDriver struct {
	cfg HAProxyDriverConfig

	mutex    lock.RWMutex
	deployed map[string]bool
}

// NewHAProxyDriver returns the driver and scans the state directory for
// instances deployed by a previous agent run.
func NewHAProxyDriver(cfg HAProxyDriverConfig) (*HAProxyDriver, error) {
	if cfg.Processes == nil {
		return nil, fmt.Errorf("haproxy driver requires a process manager")
	}
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return nil, err
	}
	d := &HAProxyDriver{
		cfg:      cfg,
		deployed: map[string]bool{},
	}
	entries, err := os.ReadDir(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			d.deployed[e.Name()] = true
		}
	}
	return d, nil
}

// Name implements DeviceDriver.
func (d *HAProxyDriver) Name() string {
	return HAProxyDriverName
}

func (d *HAProxyDriver) instanceDir(lbID string) string {
	return filepath.Join(d.cfg.StateDir, lbID)
}

func (d *HAProxyDriver) configPath(lbID string) string {
	return filepath.Join(d.instanceDir(lbID), "haproxy.conf")
}

func (d *HAProxyDriver) pidPath(lbID string) string {
	return filepath.Join(d.instanceDir(lbID), "haproxy.pid")
}

func (d *HAProxyDriver) statsSocket(lbID string) string {
	return filepath.Join(d.instanceDir(lbID), "stats.sock")
}

// DeployInstance implements DeviceDriver. The new configuration is written
// to a temporary file and renamed over the old one so a crash mid-write
// never leaves a torn config. A reload is skipped when the rendered output
// is byte-identical to the deployed one.
func (d *HAProxyDriver) DeployInstance(ctx context.Context, lb *models.LoadBalancer) error {
	dir := d.instanceDir(lb.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	rendered, err := haproxy.Render(lb, haproxy.Options{
		StatsSocket:  d.statsSocket(lb.ID),
		CertDir:      dir,
		TemplatePath: d.cfg.TemplatePath,
	})
	if err != nil {
		return fmt.Errorf("rendering %s: %w", lb.ID, err)
	}

	cfgPath := d.configPath(lb.ID)
	running := d.IsDeployed(lb.ID)
	if running {
		if old, err := os.ReadFile(cfgPath); err == nil && string(old) == rendered {
			log.WithField(logfields.LoadBalancerID, lb.ID).Debug("Configuration unchanged, skipping reload")
			return nil
		}
	}

	if err := replaceFile(cfgPath, []byte(rendered)); err != nil {
		return err
	}

	pidPath := d.pidPath(lb.ID)
	if running {
		err = d.cfg.Processes.Reload(lb.ID, cfgPath, pidPath)
	} else {
		err = d.cfg.Processes.Start(lb.ID, cfgPath, pidPath)
	}
	if err != nil {
		return fmt.Errorf("starting haproxy for %s: %w", lb.ID, err)
	}

	d.mutex.Lock()
	d.deployed[lb.ID] = true
	d.mutex.Unlock()
	return nil
}

// UndeployInstance implements DeviceDriver.
func (d *HAProxyDriver) UndeployInstance(ctx context.Context, lbID string, deleteNamespace bool) error {
	if err := d.cfg.Processes.Stop(lbID, d.pidPath(lbID)); err != nil {
		log.WithError(err).WithField(logfields.LoadBalancerID, lbID).
			Warn("Failed to stop haproxy process")
	}
	if deleteNamespace {
		if err := os.RemoveAll(d.instanceDir(lbID)); err != nil {
			return err
		}
	}
	d.mutex.Lock()
	delete(d.deployed, lbID)
	d.mutex.Unlock()
	return nil
}

// DeployedInstances implements DeviceDriver.
func (d *HAProxyDriver) DeployedInstances() []string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	ids := make([]string, 0, len(d.deployed))
	for id := range d.deployed {
		ids = append(ids, id)
	}
	return ids
}

// IsDeployed implements DeviceDriver.
func (d *HAProxyDriver) IsDeployed(lbID string) bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.deployed[lbID]
}

// Stats implements DeviceDriver by scraping the instance's stats socket.
func (d *HAProxyDriver) Stats(ctx context.Context, lbID string) (*models.LoadBalancerStats, error) {
	if !d.IsDeployed(lbID) {
		return nil, fmt.Errorf("loadbalancer %s is not deployed", lbID)
	}
	raw, err := queryStatsSocket(ctx, d.statsSocket(lbID))
	if err != nil {
		return nil, err
	}
	return parseStats(raw)
}

// replaceFile atomically replaces path with data.
func replaceFile(path string, data []byte) error {
	tmp := path + ".new"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func queryStatsSocket(ctx context.Context, path string) (string, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(5 * time.Second))
	}
	if _, err := conn.Write([]byte("show stat\n")); err != nil {
		return "", err
	}
	var sb strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		sb.Write(buf[:n])
		if err != nil {
			break
		}
	}
	return sb.String(), nil
}

// CSV columns of "show stat" used for the counter row.
const (
	statColName  = 1
	statColSCur  = 4
	statColSTot  = 7
	statColBIn   = 8
	statColBOut  = 9
	statColCount = 10
)

// parseStats sums the FRONTEND rows of a "show stat" dump into a counter
// row.
func parseStats(raw string) (*models.LoadBalancerStats, error) {
	stats := &models.LoadBalancerStats{}
	for _, line := range strings.Split(raw, "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cols := strings.Split(line, ",")
		if len(cols) < statColCount || cols[statColName] != "FRONTEND" {
			continue
		}
		stats.ActiveConnections += parseCol(cols[statColSCur])
		stats.TotalConnections += parseCol(cols[statColSTot])
		stats.BytesIn += parseCol(cols[statColBIn])
		stats.BytesOut += parseCol(cols[statColBOut])
	}
	return stats, nil
}

func parseCol(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
