// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package haproxy

import (
	"fmt"
	"strconv"
	"strings"
)

// ExpandExpectedCodes turns a health monitor expected_codes value into the
// alternation consumed by http-check expect rstatus. Accepted inputs are a
// single code, a comma or whitespace separated list, or a NNN-NNN range:
// "200-204" becomes "200|201|202|203|204", "200, 404" becomes "200|404".
func ExpandExpectedCodes(codes string) (string, error) {
	var out []string
	for _, field := range strings.FieldsFunc(codes, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	}) {
		if lo, hi, ok := strings.Cut(field, "-"); ok {
			start, err := strconv.Atoi(lo)
			if err != nil {
				return "", fmt.Errorf("bad expected_codes range %q", field)
			}
			end, err := strconv.Atoi(hi)
			if err != nil || end < start {
				return "", fmt.Errorf("bad expected_codes range %q", field)
			}
			for c := start; c <= end; c++ {
				out = append(out, strconv.Itoa(c))
			}
			continue
		}
		if _, err := strconv.Atoi(field); err != nil {
			return "", fmt.Errorf("bad expected_codes value %q", field)
		}
		out = append(out, field)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("empty expected_codes")
	}
	return strings.Join(out, "|"), nil
}
