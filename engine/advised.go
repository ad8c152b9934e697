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
	"sort"
	"strconv"
	"sync"

	"github.com/aspectgo/aspectgo/api/types"
)

const chainCacheKeyPrefix = "aspectgo:chain:"

// Advised holds the interception configuration of one proxy: the ordered
// advisor list, the target source and the shared Config. It owns the
// per-(advisor set, class) introduction memo and the optional chain cache
// layered above the chain builder.
//
// Advisors and their pointcuts are treated as immutable for matching once
// registered. Mutating the advisor set bumps an internal revision, which
// clears the memo and invalidates cached chains.
type Advised struct {
	// Config is the engine configuration shared with advice components.
	Config types.Config

	mu           sync.RWMutex
	advisors     []types.Advisor
	targetSource types.TargetSource
	preFiltered  bool
	revision     int
	nextDeclared int
	introMemo    map[reflect.Type]bool
}

// NewAdvised creates an interception configuration for the given target source.
func NewAdvised(config types.Config, targetSource types.TargetSource) *Advised {
	return &Advised{
		Config:       config,
		targetSource: targetSource,
		introMemo:    make(map[reflect.Type]bool),
	}
}

// AddAdvisor registers one or more advisors. Declaration order is assigned
// from the registration sequence; the advisor list is kept stably sorted by
// Order so that declaration order breaks ties. Advisors that carry a companion
// instantiation advisor (per-target aspects) get it registered first.
func (a *Advised) AddAdvisor(advisors ...types.Advisor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, advisor := range advisors {
		if companion, ok := advisor.(interface{ InstantiationAdvisor() types.Advisor }); ok {
			if inst := companion.InstantiationAdvisor(); inst != nil {
				a.appendAdvisor(inst)
			}
		}
		a.appendAdvisor(advisor)
	}
	sort.SliceStable(a.advisors, func(i, j int) bool {
		return a.advisors[i].Order() < a.advisors[j].Order()
	})
	a.invalidateLocked()
}

func (a *Advised) appendAdvisor(advisor types.Advisor) {
	if aware, ok := advisor.(DeclarationOrderAware); ok {
		aware.SetDeclarationOrder(a.nextDeclared)
	}
	a.nextDeclared++
	a.advisors = append(a.advisors, advisor)
}

// RemoveAdvisor removes a previously registered advisor by identity.
func (a *Advised) RemoveAdvisor(advisor types.Advisor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, item := range a.advisors {
		if item == advisor {
			a.advisors = append(a.advisors[:i], a.advisors[i+1:]...)
			a.invalidateLocked()
			return
		}
	}
}

// Advisors returns a copy of the current advisor list in chain order.
func (a *Advised) Advisors() []types.Advisor {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]types.Advisor(nil), a.advisors...)
}

// TargetSource returns the target source of this configuration, or nil.
func (a *Advised) TargetSource() types.TargetSource {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.targetSource
}

// SetPreFiltered asserts that all registered advisors already match the
// target class, letting the chain builder skip class filtering.
func (a *Advised) SetPreFiltered(preFiltered bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.preFiltered = preFiltered
}

// PreFiltered reports whether advisors are asserted to be class-pre-filtered.
func (a *Advised) PreFiltered() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.preFiltered
}

// HasMatchingIntroductions reports whether any introduction advisor affects
// the given target type. The answer is computed once per (advisor set, class)
// and memoized until the advisor set changes.
func (a *Advised) HasMatchingIntroductions(targetType reflect.Type) bool {
	a.mu.RLock()
	if has, ok := a.introMemo[targetType]; ok {
		a.mu.RUnlock()
		return has
	}
	a.mu.RUnlock()

	a.mu.Lock()
	defer a.mu.Unlock()
	if has, ok := a.introMemo[targetType]; ok {
		return has
	}
	has := false
	for _, advisor := range a.advisors {
		if ia, ok := advisor.(types.IntroductionAdvisor); ok && ia.ClassFilter().Matches(targetType) {
			has = true
			break
		}
	}
	a.introMemo[targetType] = has
	return has
}

// Equal reports whether the other configuration has the same advisor set and
// target source.
func (a *Advised) Equal(other *Advised) bool {
	if a == other {
		return true
	}
	if other == nil {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	other.mu.RLock()
	defer other.mu.RUnlock()
	if a.targetSource != other.targetSource {
		return false
	}
	if len(a.advisors) != len(other.advisors) {
		return false
	}
	for i := range a.advisors {
		if a.advisors[i] != other.advisors[i] {
			return false
		}
	}
	return true
}

// invalidateLocked bumps the revision, clears the introduction memo and drops
// any cached chains built from the previous advisor set.
func (a *Advised) invalidateLocked() {
	a.revision++
	a.introMemo = make(map[reflect.Type]bool)
	if a.Config.Cache != nil {
		_ = a.Config.Cache.DeleteByPrefix(chainCacheKeyPrefix)
	}
}

func (a *Advised) chainCacheKey(method reflect.Method, targetType reflect.Type) string {
	a.mu.RLock()
	rev := a.revision
	a.mu.RUnlock()
	return chainCacheKeyPrefix + strconv.Itoa(rev) + ":" + targetType.String() + "." + method.Name
}
