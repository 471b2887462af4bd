// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

// Package option holds the runtime configuration of the daemon and the
// agent. Flags are registered on the command, bound through viper and
// populated into the exported Config at start-up.
package option

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag names.
const (
	// ListenAddress is the REST and RPC listen address of the daemon.
	ListenAddress = "listen-address"

	// ServiceProvider is the repeatable provider declaration,
	// <service_type>:<provider_name>:<driver_class>[:default].
	ServiceProvider = "service-provider"

	// PeriodicInterval is the agent reconcile cadence in seconds.
	PeriodicInterval = "periodic-interval"

	// ReportInterval is the agent heartbeat and stats cadence in seconds.
	ReportInterval = "report-interval"

	// DeviceDriverOpt is the repeatable device driver class on the agent.
	DeviceDriverOpt = "device-driver"

	// BaseURL is the remote LBaaS endpoint of the proxy plugin.
	BaseURL = "base-url"

	// ConfigTemplate is an optional override for the haproxy template.
	ConfigTemplate = "jinja-config-template"

	// StateDir is the agent's per-instance state root.
	StateDir = "state-dir"

	// AgentHost is the identity the agent reports to the daemon.
	AgentHost = "host"

	// DaemonURL is the daemon address the agent talks to.
	DaemonURL = "daemon-url"

	// HeartbeatWindow is the scheduler's agent liveness window in seconds.
	HeartbeatWindow = "heartbeat-window"

	// Subnet is the repeatable seed subnet, <id>:<cidr>[:network_id].
	Subnet = "subnet"

	// Debug enables debug logging.
	Debug = "debug"
)

// Defaults.
const (
	DefaultListenAddress    = ":9876"
	DefaultPeriodicInterval = 10 * time.Second
	DefaultReportInterval   = 10 * time.Second
	DefaultHeartbeatWindow  = 30 * time.Second
	DefaultStateDir         = "/var/lib/openlbaas"
	DefaultDaemonURL        = "http://127.0.0.1:9876"
)

// DaemonConfig is the populated daemon configuration.
type DaemonConfig struct {
	Debug            bool
	ListenAddress    string
	ServiceProviders []string
	Subnets          []string
	BaseURL          string
	ConfigTemplate   string
	HeartbeatWindow  time.Duration
	PeriodicInterval time.Duration
}

// AgentConfig is the populated agent configuration.
type AgentConfig struct {
	Debug            bool
	Host             string
	DaemonURL        string
	StateDir         string
	ConfigTemplate   string
	DeviceDrivers    []string
	PeriodicInterval time.Duration
	ReportInterval   time.Duration
}

// Config is the daemon's runtime configuration, populated by Populate.
var Config = &DaemonConfig{}

// AgentCfg is the agent's runtime configuration, populated by
// PopulateAgent.
var AgentCfg = &AgentConfig{}

// RegisterDaemonFlags registers the daemon flag set and binds it to viper.
func RegisterDaemonFlags(flags *pflag.FlagSet, vp *viper.Viper) {
	flags.Bool(Debug, false, "Enable debug logging")
	flags.String(ListenAddress, DefaultListenAddress, "REST and agent RPC listen address")
	flags.StringSlice(ServiceProvider, nil,
		"Provider declaration <service_type>:<provider_name>:<driver_class>[:default], repeatable")
	flags.StringSlice(Subnet, nil, "Seed subnet <id>:<cidr>[:network_id], repeatable")
	flags.String(BaseURL, "", "Remote LBaaS endpoint used by the proxy driver class")
	flags.String(ConfigTemplate, "", "Override path of the haproxy configuration template")
	flags.Duration(HeartbeatWindow, DefaultHeartbeatWindow, "Agent liveness window")
	flags.Duration(PeriodicInterval, DefaultPeriodicInterval, "Reschedule sweep cadence")
	bindFlags(flags, vp)
}

// RegisterAgentFlags registers the agent flag set and binds it to viper.
func RegisterAgentFlags(flags *pflag.FlagSet, vp *viper.Viper) {
	flags.Bool(Debug, false, "Enable debug logging")
	flags.String(AgentHost, "", "Host identity reported to the daemon (defaults to the hostname)")
	flags.String(DaemonURL, DefaultDaemonURL, "Daemon base URL")
	flags.String(StateDir, DefaultStateDir, "Per-instance state directory")
	flags.String(ConfigTemplate, "", "Override path of the haproxy configuration template")
	flags.StringSlice(DeviceDriverOpt, []string{"haproxy_ns"}, "Device driver class, repeatable")
	flags.Duration(PeriodicInterval, DefaultPeriodicInterval, "Reconcile cadence")
	flags.Duration(ReportInterval, DefaultReportInterval, "Heartbeat and stats cadence")
	bindFlags(flags, vp)
}

func bindFlags(flags *pflag.FlagSet, vp *viper.Viper) {
	flags.VisitAll(func(f *pflag.Flag) {
		if err := vp.BindPFlag(f.Name, f); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", f.Name, err))
		}
	})
}

// Populate fills the daemon configuration from viper.
func (c *DaemonConfig) Populate(vp *viper.Viper) {
	c.Debug = vp.GetBool(Debug)
	c.ListenAddress = vp.GetString(ListenAddress)
	c.ServiceProviders = vp.GetStringSlice(ServiceProvider)
	c.Subnets = vp.GetStringSlice(Subnet)
	c.BaseURL = vp.GetString(BaseURL)
	c.ConfigTemplate = vp.GetString(ConfigTemplate)
	c.HeartbeatWindow = vp.GetDuration(HeartbeatWindow)
	c.PeriodicInterval = vp.GetDuration(PeriodicInterval)
}

// Populate fills the agent configuration from viper.
func (c *AgentConfig) Populate(vp *viper.Viper) {
	c.Debug = vp.GetBool(Debug)
	c.Host = vp.GetString(AgentHost)
	c.DaemonURL = strings.TrimRight(vp.GetString(DaemonURL), "/")
	c.StateDir = vp.GetString(StateDir)
	c.ConfigTemplate = vp.GetString(ConfigTemplate)
	c.DeviceDrivers = vp.GetStringSlice(DeviceDriverOpt)
	c.PeriodicInterval = vp.GetDuration(PeriodicInterval)
	c.ReportInterval = vp.GetDuration(ReportInterval)
}
