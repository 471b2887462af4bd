// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package models

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestProtocolsCompatible(t *testing.T) {
	ok := []struct{ listener, pool string }{
		{ProtocolTCP, ProtocolTCP},
		{ProtocolTCP, ProtocolProxy},
		{ProtocolHTTP, ProtocolHTTP},
		{ProtocolHTTPS, ProtocolTCP},
		{ProtocolTerminatedHTTPS, ProtocolHTTP},
	}
	for _, tc := range ok {
		require.True(t, ProtocolsCompatible(tc.listener, tc.pool),
			"%s listener should accept a %s pool", tc.listener, tc.pool)
	}

	bad := []struct{ listener, pool string }{
		{ProtocolTCP, ProtocolHTTP},
		{ProtocolHTTP, ProtocolTCP},
		{ProtocolTerminatedHTTPS, ProtocolHTTPS},
		{"BOGUS", ProtocolTCP},
	}
	for _, tc := range bad {
		require.False(t, ProtocolsCompatible(tc.listener, tc.pool),
			"%s listener should reject a %s pool", tc.listener, tc.pool)
	}
}

func TestAttached(t *testing.T) {
	require.False(t, (&Listener{}).Attached())
	require.True(t, (&Listener{LoadBalancerID: "lb1"}).Attached())

	require.False(t, (&Pool{}).Attached())
	require.True(t, (&Pool{ListenerID: "l1"}).Attached())
	require.True(t, (&Pool{LoadBalancerID: "lb1"}).Attached())
}

func TestStatsValid(t *testing.T) {
	require.True(t, (&LoadBalancerStats{}).Valid())
	require.True(t, (&LoadBalancerStats{BytesIn: 1, TotalConnections: 2}).Valid())
	require.False(t, (&LoadBalancerStats{BytesOut: -1}).Valid())
	require.False(t, (&LoadBalancerStats{ActiveConnections: -3}).Valid())
}

func TestAgentHasDeviceDriver(t *testing.T) {
	a := &Agent{DeviceDrivers: []string{"haproxy_ns", "noop"}}
	require.True(t, a.HasDeviceDriver("haproxy_ns"))
	require.False(t, a.HasDeviceDriver("f5_ns"))
}

func TestLoadBalancerDeepCopy(t *testing.T) {
	lb := &LoadBalancer{
		ID:           "lb1",
		Name:         "web",
		AdminStateUp: true,
		Listeners: []*Listener{{
			ID:         "l1",
			L7Policies: []*L7Policy{{ID: "p1", Rules: []*L7Rule{{ID: "r1"}}}},
			DefaultPool: &Pool{
				ID:            "pool1",
				Members:       []*Member{{ID: "m1", Weight: 1}},
				HealthMonitor: &HealthMonitor{ID: "hm1"},
			},
		}},
	}

	cpy := lb.DeepCopy()
	require.Empty(t, cmp.Diff(lb, cpy))

	// Mutating the copy must not reach back into the original graph.
	cpy.Listeners[0].DefaultPool.Members[0].Weight = 9
	cpy.Listeners[0].L7Policies[0].Rules[0].Value = "/other"
	require.Equal(t, 1, lb.Listeners[0].DefaultPool.Members[0].Weight)
	require.Equal(t, "", lb.Listeners[0].L7Policies[0].Rules[0].Value)
}

func TestListenerUpdateNullDetach(t *testing.T) {
	var u ListenerUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"loadbalancer_id": null, "name": "web"}`), &u))
	require.True(t, u.ClearLoadBalancer)
	require.False(t, u.ClearDefaultPool)
	require.Nil(t, u.LoadBalancerID)
	require.NotNil(t, u.Name)
	require.Equal(t, "web", *u.Name)

	// An absent key is not a detach.
	u = ListenerUpdate{}
	require.NoError(t, json.Unmarshal([]byte(`{"default_pool_id": "pool1"}`), &u))
	require.False(t, u.ClearDefaultPool)
	require.NotNil(t, u.DefaultPoolID)
}

func TestPoolUpdateNullPersistence(t *testing.T) {
	var u PoolUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"session_persistence": null}`), &u))
	require.True(t, u.ClearSessionPersistence)
	require.Nil(t, u.SessionPersistence)

	u = PoolUpdate{}
	require.NoError(t, json.Unmarshal([]byte(`{"session_persistence": {"type": "SOURCE_IP"}}`), &u))
	require.False(t, u.ClearSessionPersistence)
	require.NotNil(t, u.SessionPersistence)
	require.Equal(t, SessionPersistenceSourceIP, u.SessionPersistence.Type)
}
