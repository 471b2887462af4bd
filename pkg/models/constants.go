// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package models

// Provisioning statuses.
const (
	StatusPendingCreate = "PENDING_CREATE"
	StatusPendingUpdate = "PENDING_UPDATE"
	StatusPendingDelete = "PENDING_DELETE"
	StatusActive        = "ACTIVE"
	StatusError         = "ERROR"
	StatusDeferred      = "DEFERRED"
)

// Operating statuses.
const (
	OperatingOnline    = "ONLINE"
	OperatingOffline   = "OFFLINE"
	OperatingDegraded  = "DEGRADED"
	OperatingDisabled  = "DISABLED"
	OperatingNoMonitor = "NO_MONITOR"
)

// Listener and pool protocols.
const (
	ProtocolTCP             = "TCP"
	ProtocolHTTP            = "HTTP"
	ProtocolHTTPS           = "HTTPS"
	ProtocolTerminatedHTTPS = "TERMINATED_HTTPS"
	ProtocolProxy           = "PROXY"
)

// Load balancing algorithms.
const (
	AlgorithmRoundRobin       = "ROUND_ROBIN"
	AlgorithmLeastConnections = "LEAST_CONNECTIONS"
	AlgorithmSourceIP         = "SOURCE_IP"
)

// Session persistence types.
const (
	SessionPersistenceSourceIP   = "SOURCE_IP"
	SessionPersistenceHTTPCookie = "HTTP_COOKIE"
	SessionPersistenceAppCookie  = "APP_COOKIE"
)

// Health monitor types.
const (
	HealthMonitorPing  = "PING"
	HealthMonitorTCP   = "TCP"
	HealthMonitorHTTP  = "HTTP"
	HealthMonitorHTTPS = "HTTPS"
)

// L7 policy actions.
const (
	L7PolicyActionReject         = "REJECT"
	L7PolicyActionRedirectToURL  = "REDIRECT_TO_URL"
	L7PolicyActionRedirectToPool = "REDIRECT_TO_POOL"
)

// L7 rule types.
const (
	L7RuleTypeHostName = "HOST_NAME"
	L7RuleTypePath     = "PATH"
	L7RuleTypeFileType = "FILE_TYPE"
	L7RuleTypeHeader   = "HEADER"
	L7RuleTypeCookie   = "COOKIE"
)

// L7 rule compare types.
const (
	L7RuleCompareRegex      = "REGEX"
	L7RuleCompareStartsWith = "STARTS_WITH"
	L7RuleCompareEndsWith   = "ENDS_WITH"
	L7RuleCompareContains   = "CONTAINS"
	L7RuleCompareEqualTo    = "EQUAL_TO"
)

// Attribute defaults applied at the API boundary.
const (
	DefaultConnectionLimit = -1
	DefaultWeight          = 1
	DefaultMaxRetriesDown  = 3
	DefaultHTTPMethod      = "GET"
	DefaultURLPath         = "/"
	DefaultExpectedCodes   = "200"
)

// PendingStatuses lists every provisioning status that gates mutations.
var PendingStatuses = map[string]bool{
	StatusPendingCreate: true,
	StatusPendingUpdate: true,
	StatusPendingDelete: true,
}

// ActivePendingStatuses is the set of provisioning statuses under which a
// member is still rendered into the backend configuration.
var ActivePendingStatuses = map[string]bool{
	StatusActive:        true,
	StatusPendingCreate: true,
	StatusPendingUpdate: true,
	"INACTIVE":          true,
	StatusDeferred:      true,
}

// SupportedHTTPMethods are the health monitor probe methods.
var SupportedHTTPMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true, "DELETE": true,
	"TRACE": true, "OPTIONS": true, "CONNECT": true, "PATCH": true,
}

// ListenerPoolCompatibleProtocols maps a listener protocol to the pool
// protocols it may front. HTTPS pass-through hands opaque TLS bytes to the
// backend, so plain TCP pools are acceptable there as well.
var ListenerPoolCompatibleProtocols = map[string][]string{
	ProtocolTCP:             {ProtocolTCP, ProtocolProxy},
	ProtocolHTTP:            {ProtocolHTTP, ProtocolProxy},
	ProtocolHTTPS:           {ProtocolHTTPS, ProtocolTCP, ProtocolProxy},
	ProtocolTerminatedHTTPS: {ProtocolHTTP, ProtocolProxy},
}

// ProtocolsCompatible reports whether a pool of the given protocol may serve
// as default pool (or redirect target) of a listener of the given protocol.
func ProtocolsCompatible(listenerProto, poolProto string) bool {
	for _, p := range ListenerPoolCompatibleProtocols[listenerProto] {
		if p == poolProto {
			return true
		}
	}
	return false
}
