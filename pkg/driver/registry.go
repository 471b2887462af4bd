// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package driver

import (
	"fmt"
	"strings"

	"github.com/openlbaas/openlbaas/pkg/logging/logfields"
)

// ServiceTypeLoadBalancer is the service type under which providers are
// declared.
const ServiceTypeLoadBalancer = "LOADBALANCERV2"

// Factory instantiates a driver class.
type Factory func() (*Driver, error)

var factories = map[string]Factory{}

// RegisterFactory makes a driver class available to provider declarations.
// Called from driver package init functions.
func RegisterFactory(class string, f Factory) {
	factories[class] = f
}

// Provider is one parsed service_provider declaration bound to its
// instantiated driver.
type Provider struct {
	ServiceType string
	Name        string
	DriverClass string
	Default     bool
	Driver      *Driver
}

// Registry holds the provider table. It is read-mostly: built once at
// process start, mutated only by operator command.
type Registry struct {
	providers   map[string]*Provider
	defaultName string
}

// NewRegistry parses declarations of the form
// <service_type>:<provider_name>:<driver_class>[:default] and instantiates
// one driver per unique class. Exactly one declaration may carry the
// default tag.
func NewRegistry(declarations []string) (*Registry, error) {
	r := &Registry{providers: map[string]*Provider{}}
	drivers := map[string]*Driver{}

	for _, decl := range declarations {
		parts := strings.Split(strings.TrimSpace(decl), ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("malformed service_provider %q", decl)
		}
		p := &Provider{
			ServiceType: parts[0],
			Name:        parts[1],
			DriverClass: parts[2],
		}
		if p.ServiceType != ServiceTypeLoadBalancer {
			return nil, fmt.Errorf("unknown service type %q in %q", p.ServiceType, decl)
		}
		if len(parts) == 4 {
			if parts[3] != "default" {
				return nil, fmt.Errorf("unknown tag %q in %q", parts[3], decl)
			}
			p.Default = true
		}
		if _, dup := r.providers[p.Name]; dup {
			return nil, fmt.Errorf("provider %s declared twice", p.Name)
		}

		drv, ok := drivers[p.DriverClass]
		if !ok {
			factory, ok := factories[p.DriverClass]
			if !ok {
				return nil, fmt.Errorf("unknown driver class %q", p.DriverClass)
			}
			var err error
			drv, err = factory()
			if err != nil {
				return nil, fmt.Errorf("instantiating driver %s: %w", p.DriverClass, err)
			}
			drivers[p.DriverClass] = drv
		}
		p.Driver = drv

		if p.Default {
			if r.defaultName != "" {
				return nil, fmt.Errorf("multiple default providers: %s and %s", r.defaultName, p.Name)
			}
			r.defaultName = p.Name
		}
		r.providers[p.Name] = p
		log.WithFields(map[string]interface{}{
			logfields.Provider:   p.Name,
			logfields.DriverName: p.DriverClass,
		}).Info("Registered provider")
	}

	if len(r.providers) == 0 {
		return nil, fmt.Errorf("no service providers declared")
	}
	if r.defaultName == "" {
		return nil, fmt.Errorf("no default service provider declared")
	}
	return r, nil
}

// Get returns the named provider. A lookup failure after start-up is a
// logic error, surfaced as a plain error.
func (r *Registry) Get(name string) (*Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("invalid provider %q", name)
	}
	return p, nil
}

// Default returns the default provider.
func (r *Registry) Default() *Provider {
	return r.providers[r.defaultName]
}

// Names returns the declared provider names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	return out
}

// CheckProviderNames verifies that every persisted provider binding still
// resolves. The daemon exits non-zero on failure so load balancers are
// never silently orphaned.
func (r *Registry) CheckProviderNames(bound []string) error {
	for _, name := range bound {
		if _, ok := r.providers[name]; !ok {
			return fmt.Errorf("persisted loadbalancer bound to unknown provider %q", name)
		}
	}
	return nil
}
