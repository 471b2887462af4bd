// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/openlbaas/openlbaas/pkg/plugin"
	"github.com/openlbaas/openlbaas/pkg/store"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func writeFault(w http.ResponseWriter, err error) {
	code, typ := httpStatus(err)
	writeJSON(w, code, faultEnvelope{Error: fault{Type: typ, Message: err.Error()}})
}

// decodeBody unwraps the request envelope and rejects attributes outside the
// allowed set. The decode target may be pre-seeded with defaults; absent
// attributes keep them.
func decodeBody(r *http.Request, envelope string, allowed map[string]bool, out interface{}) error {
	var wrapper map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&wrapper); err != nil {
		return &plugin.BadValueError{Field: "body", Reason: err.Error()}
	}
	raw, ok := wrapper[envelope]
	if !ok {
		return &plugin.RequiredError{Field: envelope}
	}
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return &plugin.BadValueError{Field: envelope, Reason: err.Error()}
	}
	for key := range attrs {
		if !allowed[key] {
			return &plugin.BadValueError{
				Field:  key,
				Reason: fmt.Sprintf("attribute is not allowed on %s", r.Method),
			}
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &plugin.BadValueError{Field: envelope, Reason: err.Error()}
	}
	return nil
}

// reservedQuery are query keys that are not filters.
var reservedQuery = map[string]bool{
	"limit":    true,
	"marker":   true,
	"sort_key": true,
	"sort_dir": true,
	"fields":   true,
}

// listOpts derives list options and the field selection from query
// parameters. Unreserved parameters are attribute filters.
func listOpts(r *http.Request) (store.ListOpts, []string) {
	q := r.URL.Query()
	opts := store.ListOpts{
		Filters: map[string]string{},
		SortKey: q.Get("sort_key"),
		SortDir: q.Get("sort_dir"),
		Marker:  q.Get("marker"),
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	for key, values := range q {
		if reservedQuery[key] || len(values) == 0 {
			continue
		}
		opts.Filters[key] = values[0]
	}
	return opts, q["fields"]
}

// selectFields projects an entity onto the requested fields via its wire
// representation. A nil selection returns the entity unchanged.
func selectFields(obj interface{}, fields []string) interface{} {
	if len(fields) == 0 {
		return obj
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return obj
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return obj
	}
	out := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		if v, ok := m[f]; ok {
			out[f] = v
		}
	}
	return out
}

// selectFieldsList is the list form of selectFields.
func selectFieldsList(objs interface{}, fields []string) interface{} {
	if len(fields) == 0 {
		return objs
	}
	raw, err := json.Marshal(objs)
	if err != nil {
		return objs
	}
	var ms []map[string]interface{}
	if err := json.Unmarshal(raw, &ms); err != nil {
		return objs
	}
	out := make([]map[string]interface{}, 0, len(ms))
	for _, m := range ms {
		row := make(map[string]interface{}, len(fields))
		for _, f := range fields {
			if v, ok := m[f]; ok {
				row[f] = v
			}
		}
		out = append(out, row)
	}
	return out
}
