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
	"fmt"
	"reflect"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/builtin/advice"
)

var (
	// ErrInvalidReturnValue reports that an advice chain produced a nil result
	// for a method whose declared return cannot hold nil.
	ErrInvalidReturnValue = errors.New("nil result for method with non-nilable return type")
	// ErrNoTargetSource reports proxy construction without a target source.
	ErrNoTargetSource = errors.New("proxy requires a target source")
)

// Proxy intercepts calls to a target's method set, running each call through
// the advice chain built for it.
//
// Two call surfaces share one dispatch path: Invoke resolves a method by name
// on the target's fixed method set, and As populates a caller-supplied struct
// of func fields so the proxy can be used through an ordinary typed surface.
type Proxy struct {
	config  types.Config
	advised *Advised
	methods map[string]reflect.Method
}

// NewProxy creates a proxy for the given interception configuration. It fails
// eagerly when the configuration has no target source or the target exposes no
// methods; a proxy that could never dispatch anything is a configuration
// error, not a runtime surprise.
func NewProxy(config types.Config, advised *Advised) (*Proxy, error) {
	if advised == nil {
		return nil, errors.New("proxy requires an interception configuration")
	}
	ts := advised.TargetSource()
	if ts == nil {
		return nil, ErrNoTargetSource
	}
	targetType := ts.TargetType()
	if targetType == nil {
		return nil, ErrNoTargetSource
	}
	if targetType.NumMethod() == 0 && len(advised.Advisors()) == 0 {
		return nil, fmt.Errorf("target type %s has no methods to proxy", targetType)
	}
	methods := make(map[string]reflect.Method, targetType.NumMethod())
	for i := 0; i < targetType.NumMethod(); i++ {
		m := targetType.Method(i)
		methods[m.Name] = m
	}
	if config.ExposeInvocation {
		expose := advice.ExposeAdvisor()
		present := false
		for _, adv := range advised.Advisors() {
			if adv == expose {
				present = true
				break
			}
		}
		if !present {
			advised.AddAdvisor(expose)
		}
	}
	return &Proxy{
		config:  config,
		advised: advised,
		methods: methods,
	}, nil
}

// Advised returns the interception configuration behind this proxy.
func (p *Proxy) Advised() *Advised {
	return p.advised
}

// Invoke calls the named method of the target through the advice chain.
func (p *Proxy) Invoke(methodName string, args ...interface{}) (interface{}, error) {
	method, ok := p.methods[methodName]
	if !ok {
		return nil, fmt.Errorf("method %s not found on %s", methodName, p.advised.TargetSource().TargetType())
	}
	return p.invoke(method, args)
}

// invoke is the shared dispatch path. The target is obtained as late as
// possible and released when the source is per-call; a release failure after
// the call is logged and never overrides the call's own result or error.
func (p *Proxy) invoke(method reflect.Method, args []interface{}) (interface{}, error) {
	ts := p.advised.TargetSource()
	target, err := ts.GetTarget()
	if err != nil {
		return nil, err
	}
	if !ts.IsStatic() {
		defer func() {
			if rerr := ts.ReleaseTarget(target); rerr != nil {
				p.config.Logger.Printf("aspectgo: release of %s target failed: %v", ts.TargetType(), rerr)
			}
		}()
	}
	targetType := reflect.TypeOf(target)
	boundMethod := reflect.ValueOf(target).MethodByName(method.Name)
	if !boundMethod.IsValid() {
		return nil, fmt.Errorf("method %s not found on %s", method.Name, targetType)
	}

	chain := p.advised.CachedInterceptorChain(method, targetType, target)

	var result interface{}
	if len(chain) == 0 {
		// Nothing applies; dispatch straight to the target.
		in, cerr := convertArguments(boundMethod.Type(), args)
		if cerr != nil {
			return nil, cerr
		}
		result, err = splitResults(boundMethod.Type(), boundMethod.Call(in))
	} else {
		invocation := newMethodInvocation(p, target, targetType, method, boundMethod, args, chain)
		result, err = invocation.Proceed()
	}
	if err != nil {
		return nil, err
	}
	return p.postProcess(method, targetType, target, result)
}

// postProcess applies the return-value rules: a target returning itself is
// replaced by the proxy so the interception surface is not leaked (unless the
// target type is registered for raw access), and a nil result for a method
// whose declared return cannot hold nil is rejected.
//
// Substitution only happens when the method's declared return type can hold
// the proxy, i.e. an interface the proxy satisfies. A concrete declared
// return type keeps the raw result; substituting there would hand callers a
// value of the wrong type.
func (p *Proxy) postProcess(method reflect.Method, targetType reflect.Type, target, result interface{}) (interface{}, error) {
	if result != nil && target != nil && sameIdentity(result, target) && !p.config.IsRawAccess(targetType) {
		if rt, ok := firstValueReturn(targetType, method); ok && reflect.TypeOf(p).AssignableTo(rt) {
			return p, nil
		}
	}
	if result == nil {
		if rt, ok := firstValueReturn(targetType, method); ok && !nilable(rt.Kind()) {
			return nil, fmt.Errorf("%s.%s: %w", targetType, method.Name, ErrInvalidReturnValue)
		}
	}
	return result, nil
}

// Equal reports whether the other proxy represents the same interception
// configuration. A static target that defines its own Equal method decides
// the comparison itself.
func (p *Proxy) Equal(other *Proxy) bool {
	if p == other {
		return true
	}
	if other == nil {
		return false
	}
	if target, ok := staticTarget(p.advised); ok {
		if eq, isEq := target.(interface{ Equal(other interface{}) bool }); isEq {
			otherTarget, _ := staticTarget(other.advised)
			return eq.Equal(otherTarget)
		}
	}
	return p.advised.Equal(other.advised)
}

func staticTarget(advised *Advised) (interface{}, bool) {
	ts := advised.TargetSource()
	if ts == nil || !ts.IsStatic() {
		return nil, false
	}
	target, err := ts.GetTarget()
	if err != nil {
		return nil, false
	}
	return target, true
}

// sameIdentity reports whether two values are the same instance. Pointer
// targets compare by address; comparable values fall back to equality.
func sameIdentity(a, b interface{}) bool {
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Kind() == reflect.Ptr && bv.Kind() == reflect.Ptr {
		return av.Pointer() == bv.Pointer()
	}
	if av.Type() != bv.Type() || !av.Type().Comparable() {
		return false
	}
	return a == b
}

// firstValueReturn returns the first non-error result type of the method, as
// declared on the target type.
func firstValueReturn(targetType reflect.Type, method reflect.Method) (reflect.Type, bool) {
	m, ok := targetType.MethodByName(method.Name)
	if !ok {
		return nil, false
	}
	mt := m.Type
	numOut := mt.NumOut()
	if numOut > 0 && mt.Out(numOut-1) == errorType {
		numOut--
	}
	if numOut == 0 {
		return nil, false
	}
	return mt.Out(0), true
}

func nilable(k reflect.Kind) bool {
	switch k {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return true
	default:
		return false
	}
}
