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

package pointcut

import (
	"reflect"

	"github.com/aspectgo/aspectgo/api/types"
)

// UnionPointcut matches where any of its pointcuts matches.
type UnionPointcut struct {
	pointcuts []types.Pointcut
}

var _ types.Pointcut = (*UnionPointcut)(nil)
var _ types.MethodMatcher = (*UnionPointcut)(nil)

func NewUnionPointcut(pointcuts ...types.Pointcut) *UnionPointcut {
	return &UnionPointcut{pointcuts: pointcuts}
}

func (p *UnionPointcut) ClassFilter() types.ClassFilter {
	return types.ClassFilterFunc(func(targetType reflect.Type) bool {
		for _, pc := range p.pointcuts {
			if pc.ClassFilter().Matches(targetType) {
				return true
			}
		}
		return false
	})
}

func (p *UnionPointcut) MethodMatcher() types.MethodMatcher {
	return p
}

func (p *UnionPointcut) Matches(method reflect.Method, targetType reflect.Type) bool {
	for _, pc := range p.pointcuts {
		if pc.ClassFilter().Matches(targetType) && pc.MethodMatcher().Matches(method, targetType) {
			return true
		}
	}
	return false
}

// IsRuntime is true when any member is runtime; the static members then keep
// deciding statically inside MatchesArgs.
func (p *UnionPointcut) IsRuntime() bool {
	for _, pc := range p.pointcuts {
		if pc.MethodMatcher().IsRuntime() {
			return true
		}
	}
	return false
}

func (p *UnionPointcut) MatchesArgs(method reflect.Method, targetType reflect.Type, args []interface{}) bool {
	for _, pc := range p.pointcuts {
		if !pc.ClassFilter().Matches(targetType) {
			continue
		}
		matcher := pc.MethodMatcher()
		if matcher.IsRuntime() {
			if matcher.Matches(method, targetType) && matcher.MatchesArgs(method, targetType, args) {
				return true
			}
		} else if matcher.Matches(method, targetType) {
			return true
		}
	}
	return false
}

// IntersectionPointcut matches only where all of its pointcuts match.
type IntersectionPointcut struct {
	pointcuts []types.Pointcut
}

var _ types.Pointcut = (*IntersectionPointcut)(nil)
var _ types.MethodMatcher = (*IntersectionPointcut)(nil)

func NewIntersectionPointcut(pointcuts ...types.Pointcut) *IntersectionPointcut {
	return &IntersectionPointcut{pointcuts: pointcuts}
}

func (p *IntersectionPointcut) ClassFilter() types.ClassFilter {
	return types.ClassFilterFunc(func(targetType reflect.Type) bool {
		for _, pc := range p.pointcuts {
			if !pc.ClassFilter().Matches(targetType) {
				return false
			}
		}
		return true
	})
}

func (p *IntersectionPointcut) MethodMatcher() types.MethodMatcher {
	return p
}

func (p *IntersectionPointcut) Matches(method reflect.Method, targetType reflect.Type) bool {
	for _, pc := range p.pointcuts {
		if !pc.MethodMatcher().Matches(method, targetType) {
			return false
		}
	}
	return true
}

func (p *IntersectionPointcut) IsRuntime() bool {
	for _, pc := range p.pointcuts {
		if pc.MethodMatcher().IsRuntime() {
			return true
		}
	}
	return false
}

func (p *IntersectionPointcut) MatchesArgs(method reflect.Method, targetType reflect.Type, args []interface{}) bool {
	for _, pc := range p.pointcuts {
		matcher := pc.MethodMatcher()
		if !matcher.Matches(method, targetType) {
			return false
		}
		if matcher.IsRuntime() && !matcher.MatchesArgs(method, targetType, args) {
			return false
		}
	}
	return true
}
