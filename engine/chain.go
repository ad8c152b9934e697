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

package engine

import (
	"reflect"

	"github.com/aspectgo/aspectgo/api/types"
)

// entryKind discriminates the chain entry variants, enabling exhaustive
// matching during traversal instead of type probing.
type entryKind int

const (
	// entryKindPlain is an advice whose pointcut was fully evaluated statically.
	entryKindPlain entryKind = iota
	// entryKindDynamic is an advice whose matcher must be re-evaluated against
	// the live argument vector on every call.
	entryKindDynamic
	// entryKindIntroduction is capability-adding advice matched by class only.
	entryKindIntroduction
)

// chainEntry is one node of a built advice chain.
type chainEntry struct {
	kind    entryKind
	advice  types.Advice
	matcher types.MethodMatcher // set for entryKindDynamic only
}

// TargetAwarePointcut is implemented by pointcuts whose matching depends on
// the identity of the live target (per-target aspects). The chain builder
// specializes them with the target obtained for the current call.
type TargetAwarePointcut interface {
	types.Pointcut
	// ForTarget returns a pointcut bound to the given target instance.
	ForTarget(target interface{}) types.Pointcut
}

// InterceptorChain works out the ordered, filtered advice chain for one call.
// Advisors are visited in their configured order, which preserves precedence:
//
//   - introduction advisors contribute their advice when pre-filtered or their
//     class filter matches;
//   - pointcut advisors are skipped unless pre-filtered or their class filter
//     matches, then gated by the static method matcher: a runtime matcher
//     produces a dynamic entry deferred to call time, a static match appends
//     the advice directly;
//   - any other advisor contributes its advice unconditionally.
//
// The "does any introduction affect this class" flag is computed at most once
// per build through the Advised memo. Rebuilding from an unchanged advisor
// set, class and method yields identical ordered entries.
func (a *Advised) InterceptorChain(method reflect.Method, targetType reflect.Type, target interface{}) []chainEntry {
	entries, _ := a.buildChain(method, targetType, target)
	return entries
}

// buildChain returns the chain plus whether it may be cached. A chain built
// through a target-bound pointcut reflects one specific target instance and
// must not be reused for another.
func (a *Advised) buildChain(method reflect.Method, targetType reflect.Type, target interface{}) ([]chainEntry, bool) {
	cacheable := true
	advisors := a.Advisors()
	preFiltered := a.PreFiltered()

	entries := make([]chainEntry, 0, len(advisors))
	for _, advisor := range advisors {
		switch adv := advisor.(type) {
		case types.IntroductionAdvisor:
			if preFiltered || adv.ClassFilter().Matches(targetType) {
				entries = append(entries, chainEntry{kind: entryKindIntroduction, advice: adv.Advice()})
			}
		case types.PointcutAdvisor:
			pointcut := adv.Pointcut()
			if aware, ok := pointcut.(TargetAwarePointcut); ok && target != nil {
				pointcut = aware.ForTarget(target)
				cacheable = false
			}
			if !preFiltered && !pointcut.ClassFilter().Matches(targetType) {
				continue
			}
			matcher := pointcut.MethodMatcher()
			var match bool
			if aware, ok := matcher.(types.IntroductionAwareMethodMatcher); ok {
				match = aware.MatchesWithIntroductions(method, targetType, a.HasMatchingIntroductions(targetType))
			} else {
				match = matcher.Matches(method, targetType)
			}
			if !match {
				continue
			}
			if matcher.IsRuntime() {
				entries = append(entries, chainEntry{kind: entryKindDynamic, advice: adv.Advice(), matcher: matcher})
			} else {
				entries = append(entries, chainEntry{kind: entryKindPlain, advice: adv.Advice()})
			}
		default:
			entries = append(entries, chainEntry{kind: entryKindPlain, advice: advisor.Advice()})
		}
	}
	return entries, cacheable
}

// CachedInterceptorChain returns the chain for (method, targetType), consulting
// the configured cache first. Chains whose matching depends on the live target
// bypass the cache. Caching never changes which entries a build produces.
func (a *Advised) CachedInterceptorChain(method reflect.Method, targetType reflect.Type, target interface{}) []chainEntry {
	if a.Config.Cache == nil {
		return a.InterceptorChain(method, targetType, target)
	}
	key := a.chainCacheKey(method, targetType)
	if cached := a.Config.Cache.Get(key); cached != nil {
		if entries, ok := cached.([]chainEntry); ok {
			return entries
		}
	}
	entries, cacheable := a.buildChain(method, targetType, target)
	if cacheable {
		_ = a.Config.Cache.Set(key, entries, "")
	}
	return entries
}
