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
)

// As populates a caller-supplied struct of exported func fields so the proxy
// can be used through an ordinary typed surface. Every func field whose name
// matches a method of the target type is bound to the interception dispatch
// path; the field signature must be satisfiable by the target method.
//
//	var account struct {
//	    Deposit  func(amount int64) (int64, error)
//	    Withdraw func(amount int64) (int64, error)
//	}
//	if err := proxy.As(&account); err != nil { ... }
//	balance, err := account.Deposit(100)
//
// A facade func without a trailing error return has no channel for chain
// errors; such errors panic. Declare the error return unless the chain is
// known not to fail.
func (p *Proxy) As(facade interface{}) error {
	rv := reflect.ValueOf(facade)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("facade must be a pointer to struct, got %T", facade)
	}
	sv := rv.Elem()
	st := sv.Type()
	bound := 0
	for i := 0; i < st.NumField(); i++ {
		field := st.Field(i)
		if field.PkgPath != "" || field.Type.Kind() != reflect.Func {
			continue
		}
		method, ok := p.methods[field.Name]
		if !ok {
			return fmt.Errorf("facade field %s has no matching method on %s", field.Name, p.advised.TargetSource().TargetType())
		}
		sv.Field(i).Set(p.makeFunc(field.Type, method))
		bound++
	}
	if bound == 0 {
		return fmt.Errorf("facade %s declares no exported func fields", st)
	}
	return nil
}

// makeFunc builds a func value of fnType whose body runs the interception
// dispatch for method and maps the (result, error) pair back onto the
// declared returns.
func (p *Proxy) makeFunc(fnType reflect.Type, method reflect.Method) reflect.Value {
	return reflect.MakeFunc(fnType, func(in []reflect.Value) []reflect.Value {
		args := flattenCallArgs(fnType, in)
		result, err := p.invoke(method, args)
		return facadeResults(fnType, result, err)
	})
}

// flattenCallArgs turns the reflect call frame into a plain argument vector,
// expanding the packed variadic slice back into individual arguments.
func flattenCallArgs(fnType reflect.Type, in []reflect.Value) []interface{} {
	args := make([]interface{}, 0, len(in))
	for i, v := range in {
		if fnType.IsVariadic() && i == len(in)-1 {
			for j := 0; j < v.Len(); j++ {
				args = append(args, v.Index(j).Interface())
			}
			continue
		}
		args = append(args, v.Interface())
	}
	return args
}

// facadeResults maps a dispatch result onto the declared return values of the
// facade func type. A trailing declared error receives the chain error; with
// no error return declared a chain error has nowhere to go and panics.
func facadeResults(fnType reflect.Type, result interface{}, err error) []reflect.Value {
	numOut := fnType.NumOut()
	hasErr := numOut > 0 && fnType.Out(numOut-1) == errorType
	if err != nil && !hasErr {
		panic(err)
	}
	out := make([]reflect.Value, numOut)
	valueOuts := numOut
	if hasErr {
		valueOuts--
		errValue := reflect.Zero(errorType)
		if err != nil {
			errValue = reflect.ValueOf(&err).Elem()
		}
		out[numOut-1] = errValue
	}

	values := resultValues(result, valueOuts)
	for i := 0; i < valueOuts; i++ {
		outType := fnType.Out(i)
		if i >= len(values) || values[i] == nil {
			out[i] = reflect.Zero(outType)
			continue
		}
		v := reflect.ValueOf(values[i])
		if !v.Type().AssignableTo(outType) {
			if !v.Type().ConvertibleTo(outType) {
				panic(fmt.Sprintf("result %d: %s is not assignable to %s", i, v.Type(), outType))
			}
			v = v.Convert(outType)
		}
		out[i] = v
	}
	return out
}

// resultValues normalizes a dispatch result to the per-return-slot view: a
// multi-value method result arrives as a value slice, a single value stands
// alone.
func resultValues(result interface{}, valueOuts int) []interface{} {
	if valueOuts == 0 || result == nil {
		return nil
	}
	if valueOuts > 1 {
		if values, ok := result.([]interface{}); ok {
			return values
		}
	}
	return []interface{}{result}
}
