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
	"errors"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/aspectgo/aspectgo/api/types"
)

// ErrMissingAspectInstance reports a materialized aspect whose backing
// instance is gone. This indicates a broken factory, not a runtime condition.
var ErrMissingAspectInstance = errors.New("aspect is materialized but has no backing instance")

// AspectInstanceFactory supplies the stateful instance behind an aspect's
// advice.
type AspectInstanceFactory interface {
	// AspectInstance returns the backing instance, creating it if the factory
	// is lazy and not yet materialized.
	AspectInstance() (interface{}, error)
	// IsMaterialized reports whether the backing instance exists.
	IsMaterialized() bool
}

// SingletonAspectInstanceFactory serves one pre-built instance. It is always
// materialized.
type SingletonAspectInstanceFactory struct {
	instance interface{}
}

// NewSingletonAspectInstanceFactory wraps a pre-built aspect instance.
func NewSingletonAspectInstanceFactory(instance interface{}) *SingletonAspectInstanceFactory {
	return &SingletonAspectInstanceFactory{instance: instance}
}

func (f *SingletonAspectInstanceFactory) AspectInstance() (interface{}, error) {
	if f.instance == nil {
		return nil, ErrMissingAspectInstance
	}
	return f.instance, nil
}

func (f *SingletonAspectInstanceFactory) IsMaterialized() bool {
	return true
}

// LazyAspectInstanceFactory creates its instance on first request and serves
// the same instance afterwards. The materialization flag is written once,
// after the instance is stored, so readers that observe the flag always
// observe the instance.
type LazyAspectInstanceFactory struct {
	factory func() (interface{}, error)

	mu           sync.Mutex
	materialized int32
	instance     interface{}
}

// NewLazyAspectInstanceFactory builds a lazy factory from an instance
// constructor.
func NewLazyAspectInstanceFactory(factory func() (interface{}, error)) *LazyAspectInstanceFactory {
	return &LazyAspectInstanceFactory{factory: factory}
}

func (f *LazyAspectInstanceFactory) AspectInstance() (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if atomic.LoadInt32(&f.materialized) == 1 {
		if f.instance == nil {
			return nil, ErrMissingAspectInstance
		}
		return f.instance, nil
	}
	instance, err := f.factory()
	if err != nil {
		return nil, err
	}
	f.instance = instance
	atomic.StoreInt32(&f.materialized, 1)
	return instance, nil
}

func (f *LazyAspectInstanceFactory) IsMaterialized() bool {
	return atomic.LoadInt32(&f.materialized) == 1
}

// AspectAdvisor binds an aspect declaration to the chain: a declared pointcut,
// an advice constructor over the aspect instance, and an instantiation model.
//
// The singleton model materializes its instance eagerly and matches with the
// declared pointcut alone. The per-target model keeps one lazily-created
// instance per target identity; until a target's instance exists the advisor
// matches with the union of its class filter and the declared pointcut (never
// excluding a method the materialized aspect would advise), and a synthetic
// companion advisor materializes the instance on the first matched call.
type AspectAdvisor struct {
	AdvisorName string
	Ord         int

	declared         types.Pointcut
	adviceFn         func(instance interface{}) types.Advice
	declarationOrder int

	// Singleton model.
	singleton AspectInstanceFactory

	// Per-target model.
	perTarget     bool
	residueFilter types.ClassFilter
	instanceFn    func(target interface{}) (interface{}, error)
	factoryMu     sync.Mutex
	factories     map[interface{}]*LazyAspectInstanceFactory
}

var (
	_ types.PointcutAdvisor = (*AspectAdvisor)(nil)
	_ DeclarationOrderAware = (*AspectAdvisor)(nil)
)

// NewSingletonAspectAdvisor creates an advisor for a singleton-model aspect.
// The advice is built over the one shared instance.
func NewSingletonAspectAdvisor(name string, order int, pointcut types.Pointcut, instance interface{}, adviceFn func(instance interface{}) types.Advice) *AspectAdvisor {
	if pointcut == nil {
		pointcut = types.TruePointcut
	}
	return &AspectAdvisor{
		AdvisorName: name,
		Ord:         order,
		declared:    pointcut,
		adviceFn:    adviceFn,
		singleton:   NewSingletonAspectInstanceFactory(instance),
	}
}

// NewPerTargetAspectAdvisor creates an advisor for a per-target-model aspect.
// residueFilter selects the target types the aspect may apply to; instanceFn
// constructs the aspect instance for one target. Targets must be pointer
// values so identity is well defined.
func NewPerTargetAspectAdvisor(name string, order int, residueFilter types.ClassFilter, pointcut types.Pointcut, instanceFn func(target interface{}) (interface{}, error), adviceFn func(instance interface{}) types.Advice) *AspectAdvisor {
	if residueFilter == nil {
		residueFilter = types.TrueClassFilter
	}
	if pointcut == nil {
		pointcut = types.TruePointcut
	}
	return &AspectAdvisor{
		AdvisorName:   name,
		Ord:           order,
		declared:      pointcut,
		adviceFn:      adviceFn,
		perTarget:     true,
		residueFilter: residueFilter,
		instanceFn:    instanceFn,
		factories:     make(map[interface{}]*LazyAspectInstanceFactory),
	}
}

func (a *AspectAdvisor) Name() string {
	return a.AdvisorName
}

func (a *AspectAdvisor) Order() int {
	return a.Ord
}

func (a *AspectAdvisor) DeclarationOrder() int {
	return a.declarationOrder
}

func (a *AspectAdvisor) SetDeclarationOrder(order int) {
	a.declarationOrder = order
}

// Pointcut returns the declared pointcut for the singleton model, or the
// staged per-target pointcut.
func (a *AspectAdvisor) Pointcut() types.Pointcut {
	if !a.perTarget {
		return a.declared
	}
	return &perTargetPointcut{advisor: a}
}

// Advice resolves the aspect instance at call time and delegates to the advice
// built over it. In the per-target model the instance belongs to the
// invocation's target; a matched call always finds it materialized because
// the companion instantiation advisor runs earlier in the same chain.
func (a *AspectAdvisor) Advice() types.Advice {
	return types.AdviceFunc(func(invocation types.Invocation) (interface{}, error) {
		factory := a.singleton
		if a.perTarget {
			factory = a.factoryFor(invocation.Target())
		}
		instance, err := factory.AspectInstance()
		if err != nil {
			return nil, err
		}
		return a.adviceFn(instance).Invoke(invocation)
	})
}

// InstantiationAdvisor returns the synthetic companion advisor that
// materializes the per-target instance, or nil for the singleton model. The
// companion shares this advisor's order and is registered immediately before
// it, so materialization happens before the aspect's own advice is consulted.
func (a *AspectAdvisor) InstantiationAdvisor() types.Advisor {
	if !a.perTarget {
		return nil
	}
	return &instantiationAdvisor{parent: a}
}

// factoryFor returns the lazy factory owning the instance for one target
// identity, creating the factory on first sight of the target.
func (a *AspectAdvisor) factoryFor(target interface{}) *LazyAspectInstanceFactory {
	a.factoryMu.Lock()
	defer a.factoryMu.Unlock()
	if factory, ok := a.factories[target]; ok {
		return factory
	}
	factory := NewLazyAspectInstanceFactory(func() (interface{}, error) {
		return a.instanceFn(target)
	})
	a.factories[target] = factory
	return factory
}

// perTargetPointcut stages matching around materialization. Unbound (no
// target yet) it can only answer the pre-materialization union; the chain
// builder binds it to the live target through ForTarget.
type perTargetPointcut struct {
	advisor *AspectAdvisor
	factory *LazyAspectInstanceFactory // nil until bound
}

var _ TargetAwarePointcut = (*perTargetPointcut)(nil)

func (p *perTargetPointcut) ForTarget(target interface{}) types.Pointcut {
	return &perTargetPointcut{
		advisor: p.advisor,
		factory: p.advisor.factoryFor(target),
	}
}

func (p *perTargetPointcut) ClassFilter() types.ClassFilter {
	return types.ClassFilterFunc(func(targetType reflect.Type) bool {
		return p.advisor.residueFilter.Matches(targetType) || p.advisor.declared.ClassFilter().Matches(targetType)
	})
}

func (p *perTargetPointcut) MethodMatcher() types.MethodMatcher {
	return p
}

// Matches answers the static form. Once the bound target's instance exists
// only the declared pointcut decides; before that the union applies, so no
// method the materialized aspect would advise is excluded early.
func (p *perTargetPointcut) Matches(method reflect.Method, targetType reflect.Type) bool {
	if p.factory != nil && p.factory.IsMaterialized() {
		return p.advisor.declared.ClassFilter().Matches(targetType) &&
			p.advisor.declared.MethodMatcher().Matches(method, targetType)
	}
	if p.advisor.residueFilter.Matches(targetType) {
		return true
	}
	return p.advisor.declared.ClassFilter().Matches(targetType) &&
		p.advisor.declared.MethodMatcher().Matches(method, targetType)
}

// IsRuntime is always true: the materialization state must be consulted
// against every call, so this matcher may never be optimized away statically.
func (p *perTargetPointcut) IsRuntime() bool {
	return true
}

// MatchesArgs gates the advice on materialization: no instance, no advice.
// A materialized instance defers to the declared matcher's own runtime form
// when it has one.
func (p *perTargetPointcut) MatchesArgs(method reflect.Method, targetType reflect.Type, args []interface{}) bool {
	if p.factory == nil || !p.factory.IsMaterialized() {
		return false
	}
	declared := p.advisor.declared.MethodMatcher()
	if !declared.Matches(method, targetType) {
		return false
	}
	if declared.IsRuntime() {
		return declared.MatchesArgs(method, targetType, args)
	}
	return true
}

// instantiationAdvisor is the synthetic companion of a per-target
// AspectAdvisor. Its advice materializes the target's aspect instance and
// proceeds; it carries no behavior of its own.
type instantiationAdvisor struct {
	parent           *AspectAdvisor
	declarationOrder int
}

var (
	_ types.PointcutAdvisor = (*instantiationAdvisor)(nil)
	_ DeclarationOrderAware = (*instantiationAdvisor)(nil)
)

func (s *instantiationAdvisor) Name() string {
	return s.parent.AdvisorName + ".instantiation"
}

func (s *instantiationAdvisor) Order() int {
	return s.parent.Ord
}

func (s *instantiationAdvisor) DeclarationOrder() int {
	return s.declarationOrder
}

func (s *instantiationAdvisor) SetDeclarationOrder(order int) {
	s.declarationOrder = order
}

// Pointcut matches statically wherever the parent might apply. It must not be
// gated on materialization: it is the advisor that causes materialization.
func (s *instantiationAdvisor) Pointcut() types.Pointcut {
	return &instantiationPointcut{parent: s.parent}
}

func (s *instantiationAdvisor) Advice() types.Advice {
	return types.AdviceFunc(func(invocation types.Invocation) (interface{}, error) {
		factory := s.parent.factoryFor(invocation.Target())
		if !factory.IsMaterialized() {
			if _, err := factory.AspectInstance(); err != nil {
				return nil, err
			}
		}
		return invocation.Proceed()
	})
}

// instantiationPointcut is the static pre-materialization union of the parent
// aspect's class filter and declared pointcut.
type instantiationPointcut struct {
	parent *AspectAdvisor
}

var _ types.Pointcut = (*instantiationPointcut)(nil)

func (p *instantiationPointcut) ClassFilter() types.ClassFilter {
	return types.ClassFilterFunc(func(targetType reflect.Type) bool {
		return p.parent.residueFilter.Matches(targetType) || p.parent.declared.ClassFilter().Matches(targetType)
	})
}

func (p *instantiationPointcut) MethodMatcher() types.MethodMatcher {
	return p
}

func (p *instantiationPointcut) Matches(method reflect.Method, targetType reflect.Type) bool {
	if p.parent.residueFilter.Matches(targetType) {
		return true
	}
	return p.parent.declared.ClassFilter().Matches(targetType) &&
		p.parent.declared.MethodMatcher().Matches(method, targetType)
}

func (p *instantiationPointcut) IsRuntime() bool {
	return false
}

func (p *instantiationPointcut) MatchesArgs(method reflect.Method, targetType reflect.Type, args []interface{}) bool {
	return p.Matches(method, targetType)
}
