/*
 * Copyright 2024 The AspectGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package pointcut provides the built-in pointcut implementations: method
// name matching, expression matching (expr-lang) and composites.
package pointcut

import (
	"reflect"
	"strings"

	"github.com/aspectgo/aspectgo/api/types"
)

// NameMatchPointcut selects methods by name patterns. A pattern is an exact
// name or uses a single `*` wildcard: `Get*`, `*Balance`, `*Account*`, or
// `*` alone for every method.
type NameMatchPointcut struct {
	patterns []string
	filter   types.ClassFilter
}

var _ types.Pointcut = (*NameMatchPointcut)(nil)
var _ types.MethodMatcher = (*NameMatchPointcut)(nil)

// NewNameMatchPointcut creates a pointcut over method name patterns, matching
// every target type.
func NewNameMatchPointcut(patterns ...string) *NameMatchPointcut {
	return &NameMatchPointcut{
		patterns: patterns,
		filter:   types.TrueClassFilter,
	}
}

// WithClassFilter restricts the pointcut to types accepted by the filter.
func (p *NameMatchPointcut) WithClassFilter(filter types.ClassFilter) *NameMatchPointcut {
	if filter == nil {
		filter = types.TrueClassFilter
	}
	p.filter = filter
	return p
}

func (p *NameMatchPointcut) ClassFilter() types.ClassFilter {
	return p.filter
}

func (p *NameMatchPointcut) MethodMatcher() types.MethodMatcher {
	return p
}

func (p *NameMatchPointcut) Matches(method reflect.Method, targetType reflect.Type) bool {
	for _, pattern := range p.patterns {
		if matchesNamePattern(pattern, method.Name) {
			return true
		}
	}
	return false
}

func (p *NameMatchPointcut) IsRuntime() bool {
	return false
}

func (p *NameMatchPointcut) MatchesArgs(method reflect.Method, targetType reflect.Type, args []interface{}) bool {
	return p.Matches(method, targetType)
}

func matchesNamePattern(pattern, name string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return pattern == name
	}
	if strings.HasPrefix(pattern, "*") && strings.HasSuffix(pattern, "*") {
		return strings.Contains(name, pattern[1:len(pattern)-1])
	}
	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(name, pattern[1:])
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(name, pattern[:len(pattern)-1])
	}
	// Single inner wildcard: prefix*suffix.
	parts := strings.SplitN(pattern, "*", 2)
	return strings.HasPrefix(name, parts[0]) && strings.HasSuffix(name, parts[1])
}
