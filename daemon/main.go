// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// openlbaas-daemon is the control plane process: REST surface, plugin core,
// provider drivers, scheduler and the agent RPC endpoint.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openlbaas/openlbaas/pkg/logging"
	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
	"github.com/openlbaas/openlbaas/pkg/option"
)

var log = logging.DefaultLogger.WithField(logfields.LogSubsys, "daemon")

var vp = viper.New()

var rootCmd = &cobra.Command{
	Use:   "openlbaas-daemon",
	Short: "Run the OpenLBaaS control plane",
	Run: func(cmd *cobra.Command, args []string) {
		option.Config.Populate(vp)
		if option.Config.Debug {
			if err := logging.SetLogLevel("debug"); err != nil {
				log.WithError(err).Fatal("Failed to set log level")
			}
		}
		if err := runDaemon(option.Config); err != nil {
			log.WithError(err).Fatal("Daemon failed")
		}
	},
}

func init() {
	vp.SetEnvPrefix("openlbaas")
	vp.AutomaticEnv()
	option.RegisterDaemonFlags(rootCmd.Flags(), vp)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
