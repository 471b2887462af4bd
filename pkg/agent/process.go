// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package agent

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
)

// ExecProcessManager drives haproxy binaries directly. Network namespace
// setup is left to the host integration; the processes run in the agent's
// namespace.
type ExecProcessManager struct {
	// Binary is the haproxy executable, "haproxy" when empty.
	Binary string
}

func (m *ExecProcessManager) binary() string {
	if m.Binary == "" {
		return "haproxy"
	}
	return m.Binary
}

// Start implements ProcessManager.
func (m *ExecProcessManager) Start(lbID, configPath, pidPath string) error {
	return m.run(lbID, "-f", configPath, "-p", pidPath, "-D")
}

// Reload implements ProcessManager. The running process is handed the
// listening sockets via -sf.
func (m *ExecProcessManager) Reload(lbID, configPath, pidPath string) error {
	pid, err := readPid(pidPath)
	if err != nil {
		return m.Start(lbID, configPath, pidPath)
	}
	return m.run(lbID, "-f", configPath, "-p", pidPath, "-D", "-sf", strconv.Itoa(pid))
}

// Stop implements ProcessManager.
func (m *ExecProcessManager) Stop(lbID, pidPath string) error {
	pid, err := readPid(pidPath)
	if err != nil {
		return nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	return proc.Signal(syscall.SIGTERM)
}

func (m *ExecProcessManager) run(lbID string, args ...string) error {
	cmd := exec.Command(m.binary(), args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		log.WithError(err).WithField(logfields.LoadBalancerID, lbID).
			Warnf("haproxy invocation failed: %s", strings.TrimSpace(string(out)))
		return fmt.Errorf("haproxy: %w", err)
	}
	return nil
}

func readPid(pidPath string) (int, error) {
	raw, err := os.ReadFile(pidPath)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(raw)))
}
