// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package proxy

import (
	"encoding/json"
	"strings"
)

// locallyIgnored are request attributes the remote service either rejects or
// fills in itself.
var locallyIgnored = map[string]bool{
	"vip_address":    true,
	"vip_network_id": true,
	"flavor_id":      true,
	"provider":       true,
}

// transformRequest rewrites one object level of an outgoing body. The
// locally ignored attributes are dropped, a null redirect_pool_id is
// dropped, and tenant_id is renamed to project_id.
func transformRequest(body map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(body))
	for key, value := range body {
		switch {
		case locallyIgnored[key]:
		case key == "redirect_pool_id" && string(value) == "null":
		case key == "tenant_id":
			out["project_id"] = value
		default:
			out[key] = value
		}
	}
	return out
}

// transformResponse rewrites one object level of a remote body, folding
// project_id back into tenant_id and honoring the legacy "status" alias for
// provisioning_status.
func transformResponse(body map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(body))
	for key, value := range body {
		if key == "project_id" {
			if _, ok := body["tenant_id"]; !ok {
				out["tenant_id"] = value
			}
			continue
		}
		out[key] = value
	}
	if v, ok := out["status"]; ok {
		if _, ok := out["provisioning_status"]; !ok {
			out["provisioning_status"] = v
		}
		delete(out, "status")
	}
	return out
}

// transformJSON applies fn to every JSON object in value, recursing through
// nested objects and arrays. Graph bodies carry entities at every level, so
// the rename rules apply throughout.
func transformJSON(value json.RawMessage, fn func(map[string]json.RawMessage) map[string]json.RawMessage) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(value, &obj); err == nil && obj != nil {
		obj = fn(obj)
		for k, v := range obj {
			obj[k] = transformJSON(v, fn)
		}
		out, err := json.Marshal(obj)
		if err != nil {
			return value
		}
		return out
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(value, &arr); err == nil && arr != nil {
		for i, v := range arr {
			arr[i] = transformJSON(v, fn)
		}
		out, err := json.Marshal(arr)
		if err != nil {
			return value
		}
		return out
	}
	return value
}

// pluralize maps a singular resource name to its collection name.
func pluralize(name string) string {
	switch {
	case strings.HasSuffix(name, "y"):
		return name[:len(name)-1] + "ies"
	case strings.HasSuffix(name, "s"):
		return name
	default:
		return name + "s"
	}
}
