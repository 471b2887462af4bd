// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package models

// HealthMonitor probes the members of one pool. HTTPMethod, URLPath and
// ExpectedCodes only apply to the HTTP and HTTPS types.
type HealthMonitor struct {
	ID             string `json:"id"`
	TenantID       string `json:"tenant_id"`
	Name           string `json:"name"`
	PoolID         string `json:"pool_id"`
	Type           string `json:"type"`
	Delay          int    `json:"delay"`
	Timeout        int    `json:"timeout"`
	MaxRetries     int    `json:"max_retries"`
	MaxRetriesDown int    `json:"max_retries_down"`
	HTTPMethod     string `json:"http_method,omitempty"`
	URLPath        string `json:"url_path,omitempty"`
	ExpectedCodes  string `json:"expected_codes,omitempty"`
	AdminStateUp   bool   `json:"admin_state_up"`

	ProvisioningStatus string `json:"provisioning_status"`
	OperatingStatus    string `json:"operating_status"`
}

// HTTPType reports whether the monitor issues HTTP(S) probes.
func (hm *HealthMonitor) HTTPType() bool {
	return hm.Type == HealthMonitorHTTP || hm.Type == HealthMonitorHTTPS
}

// DeepCopy returns a copy of the health monitor.
func (hm *HealthMonitor) DeepCopy() *HealthMonitor {
	if hm == nil {
		return nil
	}
	cpy := *hm
	return &cpy
}
