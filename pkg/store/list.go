// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package store

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ListOpts carries the list-call modifiers of the REST surface: equality
// filters on wire attribute names, single-key sorting and marker pagination.
type ListOpts struct {
	Filters map[string]string
	SortKey string
	SortDir string // "asc" (default) or "desc"
	Limit   int
	Marker  string
}

// fieldMap flattens an entity to its wire representation so filters and sort
// keys use the same names as the REST API.
func fieldMap(obj interface{}) map[string]interface{} {
	b, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

func matchesFilters(obj interface{}, filters map[string]string) bool {
	if len(filters) == 0 {
		return true
	}
	m := fieldMap(obj)
	for key, want := range filters {
		got, ok := m[key]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}

// applyListOpts filters, sorts and paginates objs in place and returns the
// resulting window. Objects are compared on the stringified wire value of
// the sort key; ties and the default order fall back to the id to keep list
// output stable.
func applyListOpts(objs []interface{}, opts ListOpts) []interface{} {
	filtered := objs[:0]
	for _, o := range objs {
		if matchesFilters(o, opts.Filters) {
			filtered = append(filtered, o)
		}
	}

	key := opts.SortKey
	if key == "" {
		key = "id"
	}
	desc := opts.SortDir == "desc"
	sort.SliceStable(filtered, func(i, j int) bool {
		a := fmt.Sprint(fieldMap(filtered[i])[key])
		b := fmt.Sprint(fieldMap(filtered[j])[key])
		if a == b {
			a = fmt.Sprint(fieldMap(filtered[i])["id"])
			b = fmt.Sprint(fieldMap(filtered[j])["id"])
		}
		if desc {
			return a > b
		}
		return a < b
	})

	start := 0
	if opts.Marker != "" {
		for i, o := range filtered {
			if fmt.Sprint(fieldMap(o)["id"]) == opts.Marker {
				start = i + 1
				break
			}
		}
	}
	out := filtered[start:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out
}
