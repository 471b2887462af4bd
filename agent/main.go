// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// openlbaas-agent runs on load balancer hosts. It heartbeats to the daemon,
// reconciles the local data plane against the daemon's view and reports
// status and statistics back.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openlbaas/openlbaas/pkg/agent"
	"github.com/openlbaas/openlbaas/pkg/agentrpc"
	"github.com/openlbaas/openlbaas/pkg/logging"
	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
	"github.com/openlbaas/openlbaas/pkg/option"
)

var log = logging.DefaultLogger.WithField(logfields.LogSubsys, "agent-main")

var vp = viper.New()

var rootCmd = &cobra.Command{
	Use:   "openlbaas-agent",
	Short: "Run the OpenLBaaS host agent",
	Run: func(cmd *cobra.Command, args []string) {
		option.AgentCfg.Populate(vp)
		if option.AgentCfg.Debug {
			if err := logging.SetLogLevel("debug"); err != nil {
				log.WithError(err).Fatal("Failed to set log level")
			}
		}
		if err := runAgent(option.AgentCfg); err != nil {
			log.WithError(err).Fatal("Agent failed")
		}
	},
}

func init() {
	vp.SetEnvPrefix("openlbaas")
	vp.AutomaticEnv()
	option.RegisterAgentFlags(rootCmd.Flags(), vp)
}

func runAgent(cfg *option.AgentConfig) error {
	host := cfg.Host
	if host == "" {
		var err error
		host, err = os.Hostname()
		if err != nil {
			return err
		}
	}

	var drivers []agent.DeviceDriver
	for _, name := range cfg.DeviceDrivers {
		switch name {
		case agent.HAProxyDriverName:
			drv, err := agent.NewHAProxyDriver(agent.HAProxyDriverConfig{
				StateDir:     filepath.Join(cfg.StateDir, "haproxy"),
				TemplatePath: cfg.ConfigTemplate,
				Processes:    &agent.ExecProcessManager{},
			})
			if err != nil {
				return err
			}
			drivers = append(drivers, drv)
		default:
			return fmt.Errorf("unknown device driver %q", name)
		}
	}
	if len(drivers) == 0 {
		return fmt.Errorf("no device drivers configured")
	}

	client := agentrpc.NewClient(cfg.DaemonURL, host)
	reconciler := agent.NewReconciler(agent.Config{
		Host:             host,
		PeriodicInterval: cfg.PeriodicInterval,
		ReportInterval:   cfg.ReportInterval,
	}, client, drivers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reconciler.Run(ctx)
	defer reconciler.Stop()
	log.WithField("host", host).Info("Agent running")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Info("Shutting down")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
