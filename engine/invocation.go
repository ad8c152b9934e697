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
	"fmt"
	"reflect"

	"github.com/gofrs/uuid/v5"

	"github.com/aspectgo/aspectgo/api/types"
)

var _ types.Invocation = (*methodInvocation)(nil)

// methodInvocation drives one call through its advice chain. The cursor starts
// before the first entry; each Proceed advances it and runs the next matching
// advice, and the final Proceed dispatches the bound target method.
//
// An invocation is confined to a single goroutine. Clone is the supported way
// to branch a call into another goroutine.
type methodInvocation struct {
	id          string
	proxy       interface{}
	target      interface{}
	targetType  reflect.Type
	method      reflect.Method
	boundMethod reflect.Value
	args        []interface{}
	chain       []chainEntry
	cursor      int
	attributes  map[string]interface{}
}

func newMethodInvocation(proxy, target interface{}, targetType reflect.Type, method reflect.Method, boundMethod reflect.Value, args []interface{}, chain []chainEntry) *methodInvocation {
	id, _ := uuid.NewV4()
	return &methodInvocation{
		id:          id.String(),
		proxy:       proxy,
		target:      target,
		targetType:  targetType,
		method:      method,
		boundMethod: boundMethod,
		args:        args,
		chain:       chain,
		cursor:      -1,
	}
}

func (m *methodInvocation) ID() string {
	return m.id
}

func (m *methodInvocation) Proxy() interface{} {
	return m.proxy
}

func (m *methodInvocation) Target() interface{} {
	return m.target
}

func (m *methodInvocation) TargetType() reflect.Type {
	return m.targetType
}

func (m *methodInvocation) Method() reflect.Method {
	return m.method
}

func (m *methodInvocation) Arguments() []interface{} {
	return m.args
}

func (m *methodInvocation) SetArguments(args []interface{}) {
	m.args = args
}

// Proceed runs the rest of the chain. When the cursor has passed the last
// entry the bound target method is dispatched. A dynamic entry whose matcher
// rejects the current arguments is skipped transparently, so a conditional
// advice that does not apply to this particular argument vector leaves no
// trace in the call.
func (m *methodInvocation) Proceed() (interface{}, error) {
	if m.cursor == len(m.chain)-1 {
		return m.invokeTarget()
	}
	m.cursor++
	entry := m.chain[m.cursor]
	if entry.kind == entryKindDynamic {
		if entry.matcher.MatchesArgs(m.method, m.targetType, m.args) {
			return entry.advice.Invoke(m)
		}
		// Skip this entry and continue down the chain.
		return m.Proceed()
	}
	return entry.advice.Invoke(m)
}

// invokeTarget dispatches the target method via the pre-bound method value.
// The trailing error return, when declared, is split off; remaining results
// collapse to nil, a single value, or a value slice.
func (m *methodInvocation) invokeTarget() (interface{}, error) {
	in, err := convertArguments(m.boundMethod.Type(), m.args)
	if err != nil {
		return nil, err
	}
	out := m.boundMethod.Call(in)
	return splitResults(m.boundMethod.Type(), out)
}

// Clone returns an invocation sharing this one's attribute map but carrying an
// independent argument vector, resuming from the current chain position. With
// no arguments given, the current arguments are shallow-copied.
func (m *methodInvocation) Clone(args ...interface{}) types.Invocation {
	// Force the map into existence so both invocations see one shared map
	// even if the first attribute is set after cloning.
	if m.attributes == nil {
		m.attributes = make(map[string]interface{})
	}
	clone := *m
	if len(args) > 0 {
		clone.args = args
	} else {
		clone.args = append([]interface{}(nil), m.args...)
	}
	return &clone
}

func (m *methodInvocation) SetAttribute(key string, value interface{}) {
	if value == nil {
		delete(m.attributes, key)
		return
	}
	if m.attributes == nil {
		m.attributes = make(map[string]interface{})
	}
	m.attributes[key] = value
}

func (m *methodInvocation) Attribute(key string) interface{} {
	if m.attributes == nil {
		return nil
	}
	return m.attributes[key]
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// convertArguments adapts an argument vector to the parameter types of a bound
// method func type. Untyped nils become the parameter's zero value; assignable
// values pass through; convertible values are converted.
func convertArguments(fnType reflect.Type, args []interface{}) ([]reflect.Value, error) {
	numIn := fnType.NumIn()
	if fnType.IsVariadic() {
		if len(args) < numIn-1 {
			return nil, fmt.Errorf("method expects at least %d arguments, got %d", numIn-1, len(args))
		}
	} else if len(args) != numIn {
		return nil, fmt.Errorf("method expects %d arguments, got %d", numIn, len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var paramType reflect.Type
		if fnType.IsVariadic() && i >= numIn-1 {
			paramType = fnType.In(numIn - 1).Elem()
		} else {
			paramType = fnType.In(i)
		}
		if arg == nil {
			in[i] = reflect.Zero(paramType)
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(paramType) {
			if !v.Type().ConvertibleTo(paramType) {
				return nil, fmt.Errorf("argument %d: %s is not assignable to %s", i, v.Type(), paramType)
			}
			v = v.Convert(paramType)
		}
		in[i] = v
	}
	return in, nil
}

// splitResults separates a declared trailing error from the method results and
// collapses the remainder into a single return value.
func splitResults(fnType reflect.Type, out []reflect.Value) (interface{}, error) {
	var err error
	numOut := fnType.NumOut()
	if numOut > 0 && fnType.Out(numOut-1) == errorType {
		if e := out[numOut-1]; !e.IsNil() {
			err = e.Interface().(error)
		}
		out = out[:numOut-1]
	}
	switch len(out) {
	case 0:
		return nil, err
	case 1:
		return out[0].Interface(), err
	default:
		values := make([]interface{}, len(out))
		for i, v := range out {
			values[i] = v.Interface()
		}
		return values, err
	}
}
