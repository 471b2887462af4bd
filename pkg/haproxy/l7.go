// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of OpenLBaaS

package haproxy

import (
	"fmt"
	"strings"

	"github.com/openlbaas/openlbaas/pkg/models"
)

// compare type to haproxy match method
var compareMatches = map[string]string{
	models.L7RuleCompareRegex:      "-m reg",
	models.L7RuleCompareStartsWith: "-m beg",
	models.L7RuleCompareEndsWith:   "-m end",
	models.L7RuleCompareContains:   "-m sub",
	models.L7RuleCompareEqualTo:    "-m str",
}

// compileL7Policy turns a policy's rules into acl lines plus the condition
// referencing them. All rules of one policy AND together; an inverted rule
// negates its acl in the condition.
func compileL7Policy(pol *models.L7Policy) (acls []string, cond string) {
	var terms []string
	for i, rule := range pol.Rules {
		if !rule.AdminStateUp {
			continue
		}
		name := fmt.Sprintf("%s_rule_%d", shortID(pol.ID), i+1)
		fetch := l7Fetch(rule)
		if fetch == "" {
			continue
		}
		acls = append(acls, fmt.Sprintf("acl %s %s %s %s", name, fetch, compareMatches[rule.CompareType], rule.Value))
		if rule.Invert {
			terms = append(terms, "!"+name)
		} else {
			terms = append(terms, name)
		}
	}
	return acls, strings.Join(terms, " ")
}

func l7Fetch(rule *models.L7Rule) string {
	switch rule.Type {
	case models.L7RuleTypeHostName:
		return "req.hdr(host) -i"
	case models.L7RuleTypePath:
		return "path"
	case models.L7RuleTypeFileType:
		return "path_end"
	case models.L7RuleTypeHeader:
		return fmt.Sprintf("req.hdr(%s)", rule.Key)
	case models.L7RuleTypeCookie:
		return fmt.Sprintf("req.cook(%s)", rule.Key)
	}
	return ""
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
