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

package types

import "reflect"

// ClassFilter is a pure predicate over a target type. It restricts a pointcut
// (or an introduction) to a set of proxied types.
type ClassFilter interface {
	// Matches reports whether the pointcut applies to the given target type.
	Matches(targetType reflect.Type) bool
}

// ClassFilterFunc adapts a plain function to the ClassFilter interface.
type ClassFilterFunc func(targetType reflect.Type) bool

func (f ClassFilterFunc) Matches(targetType reflect.Type) bool {
	return f(targetType)
}

// MethodMatcher is a pure predicate over a (type, method) pair, optionally
// re-evaluated per call against the live argument vector.
//
// A matcher whose IsRuntime returns true must answer the static Matches form
// conservatively permissive: returning false statically prunes the advice from
// the chain entirely and MatchesArgs is never consulted.
type MethodMatcher interface {
	// Matches performs the static check for the given method on the target type.
	Matches(method reflect.Method, targetType reflect.Type) bool
	// IsRuntime reports whether this matcher needs the live argument vector.
	// Runtime matchers are re-evaluated on every call via MatchesArgs.
	IsRuntime() bool
	// MatchesArgs performs the per-call check against the current, possibly
	// already mutated, argument vector. Only consulted when IsRuntime is true
	// and the static check has already passed. Non-runtime matchers may simply
	// delegate to Matches.
	MatchesArgs(method reflect.Method, targetType reflect.Type, args []interface{}) bool
}

// IntroductionAwareMethodMatcher is a method matcher whose answer depends on
// whether any introduction advisor affects the target type. The chain builder
// computes that flag once per build and passes it in.
type IntroductionAwareMethodMatcher interface {
	MethodMatcher
	// MatchesWithIntroductions performs the static check with knowledge of
	// whether the advisor set contains a matching introduction for targetType.
	MatchesWithIntroductions(method reflect.Method, targetType reflect.Type, hasIntroductions bool) bool
}

// Pointcut selects join points: a class filter narrows the target types, a
// method matcher narrows the methods. Pointcuts are immutable once constructed.
type Pointcut interface {
	// ClassFilter returns the type-level part of this pointcut.
	ClassFilter() ClassFilter
	// MethodMatcher returns the method-level part of this pointcut.
	MethodMatcher() MethodMatcher
}

var (
	// TrueClassFilter matches every target type.
	TrueClassFilter ClassFilter = ClassFilterFunc(func(targetType reflect.Type) bool {
		return true
	})
	// TrueMethodMatcher statically matches every method.
	TrueMethodMatcher MethodMatcher = trueMethodMatcher{}
	// TruePointcut matches every join point.
	TruePointcut Pointcut = truePointcut{}
)

type trueMethodMatcher struct{}

func (trueMethodMatcher) Matches(method reflect.Method, targetType reflect.Type) bool {
	return true
}

func (trueMethodMatcher) IsRuntime() bool {
	return false
}

func (trueMethodMatcher) MatchesArgs(method reflect.Method, targetType reflect.Type, args []interface{}) bool {
	return true
}

type truePointcut struct{}

func (truePointcut) ClassFilter() ClassFilter {
	return TrueClassFilter
}

func (truePointcut) MethodMatcher() MethodMatcher {
	return TrueMethodMatcher
}
