// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package driver

import (
	"errors"
	"fmt"
	"testing"

	. "gopkg.in/check.v1"
)

func Test(t *testing.T) {
	TestingT(t)
}

type RegistrySuite struct{}

var _ = Suite(&RegistrySuite{})

func (s *RegistrySuite) TestNewRegistry(c *C) {
	r, err := NewRegistry([]string{
		"LOADBALANCERV2:lbaas:noop:default",
		"LOADBALANCERV2:backup:noop",
	})
	c.Assert(err, IsNil)

	p, err := r.Get("lbaas")
	c.Assert(err, IsNil)
	c.Assert(p.DriverClass, Equals, NoopDriverClass)
	c.Assert(p.Default, Equals, true)
	c.Assert(r.Default().Name, Equals, "lbaas")

	// Both providers share one driver instance per class.
	backup, err := r.Get("backup")
	c.Assert(err, IsNil)
	c.Assert(backup.Driver, Equals, p.Driver)

	c.Assert(r.Names(), HasLen, 2)

	_, err = r.Get("missing")
	c.Assert(err, NotNil)
}

func (s *RegistrySuite) TestNewRegistryRejects(c *C) {
	for _, tc := range []struct {
		decls []string
		why   string
	}{
		{nil, "no providers"},
		{[]string{"LOADBALANCERV2:lbaas:noop"}, "no default"},
		{[]string{"LOADBALANCERV2:lbaas"}, "too few fields"},
		{[]string{"LOADBALANCERV2:lbaas:noop:default:extra"}, "too many fields"},
		{[]string{"LOADBALANCERV2:lbaas:noop:primary"}, "unknown tag"},
		{[]string{"FIREWALLV1:fw:noop:default"}, "wrong service type"},
		{[]string{"LOADBALANCERV2:lbaas:missing_class:default"}, "unknown class"},
		{[]string{
			"LOADBALANCERV2:lbaas:noop:default",
			"LOADBALANCERV2:lbaas:noop",
		}, "duplicate name"},
		{[]string{
			"LOADBALANCERV2:a:noop:default",
			"LOADBALANCERV2:b:noop:default",
		}, "two defaults"},
	} {
		_, err := NewRegistry(tc.decls)
		c.Assert(err, NotNil, Commentf("%s: %v", tc.why, tc.decls))
	}
}

func (s *RegistrySuite) TestCheckProviderNames(c *C) {
	r, err := NewRegistry([]string{"LOADBALANCERV2:lbaas:noop:default"})
	c.Assert(err, IsNil)

	c.Assert(r.CheckProviderNames(nil), IsNil)
	c.Assert(r.CheckProviderNames([]string{"lbaas", "lbaas"}), IsNil)
	c.Assert(r.CheckProviderNames([]string{"lbaas", "gone"}), NotNil)
}

func (s *RegistrySuite) TestWrapError(c *C) {
	base := fmt.Errorf("connection refused")
	wrapped := WrapError("lbaas", "loadbalancer create", base)
	c.Assert(IsDriverError(wrapped), Equals, true)

	var de *Error
	c.Assert(errors.As(wrapped, &de), Equals, true)
	c.Assert(de.Provider, Equals, "lbaas")
	c.Assert(de.Unwrap(), Equals, base)

	// Double wrapping keeps the original.
	c.Assert(WrapError("other", "again", wrapped), Equals, wrapped)

	c.Assert(IsDriverError(base), Equals, false)
}
