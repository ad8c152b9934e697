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

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/aspectgo/aspectgo/api/types"
)

// ExprPointcut selects methods with a compiled expr-lang expression evaluated
// over the method shape:
//
//	method      the method name
//	targetType  the target type name
//	numIn       parameter count (receiver excluded)
//	numOut      result count
//
// Example: `method startsWith "Get" && targetType == "*bank.Account"`.
//
// The expression is compiled at construction; an unresolvable expression is a
// configuration error, never a silent non-match.
type ExprPointcut struct {
	program *vm.Program
}

var _ types.Pointcut = (*ExprPointcut)(nil)
var _ types.MethodMatcher = (*ExprPointcut)(nil)

// NewExprPointcut compiles the expression into a static pointcut.
func NewExprPointcut(expression string) (*ExprPointcut, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, err
	}
	return &ExprPointcut{program: program}, nil
}

func (p *ExprPointcut) ClassFilter() types.ClassFilter {
	return types.TrueClassFilter
}

func (p *ExprPointcut) MethodMatcher() types.MethodMatcher {
	return p
}

func (p *ExprPointcut) Matches(method reflect.Method, targetType reflect.Type) bool {
	out, err := vm.Run(p.program, methodEvn(method, targetType))
	if err != nil {
		return false
	}
	result, ok := out.(bool)
	return ok && result
}

func (p *ExprPointcut) IsRuntime() bool {
	return false
}

func (p *ExprPointcut) MatchesArgs(method reflect.Method, targetType reflect.Type, args []interface{}) bool {
	return p.Matches(method, targetType)
}

// DynamicExprPointcut is the runtime form: its expression additionally sees
// the live argument vector as `args` and is evaluated on every call.
//
// Example: `method == "Withdraw" && args[0] > 1000`.
type DynamicExprPointcut struct {
	program *vm.Program
}

var _ types.Pointcut = (*DynamicExprPointcut)(nil)
var _ types.MethodMatcher = (*DynamicExprPointcut)(nil)

// NewDynamicExprPointcut compiles the expression into a runtime pointcut.
func NewDynamicExprPointcut(expression string) (*DynamicExprPointcut, error) {
	program, err := expr.Compile(expression, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return nil, err
	}
	return &DynamicExprPointcut{program: program}, nil
}

func (p *DynamicExprPointcut) ClassFilter() types.ClassFilter {
	return types.TrueClassFilter
}

func (p *DynamicExprPointcut) MethodMatcher() types.MethodMatcher {
	return p
}

// Matches answers the static form conservatively: without the live arguments
// the expression cannot be decided, so the method stays eligible and the
// decision is deferred to MatchesArgs.
func (p *DynamicExprPointcut) Matches(method reflect.Method, targetType reflect.Type) bool {
	return true
}

func (p *DynamicExprPointcut) IsRuntime() bool {
	return true
}

func (p *DynamicExprPointcut) MatchesArgs(method reflect.Method, targetType reflect.Type, args []interface{}) bool {
	evn := methodEvn(method, targetType)
	evn["args"] = args
	out, err := vm.Run(p.program, evn)
	if err != nil {
		return false
	}
	result, ok := out.(bool)
	return ok && result
}

func methodEvn(method reflect.Method, targetType reflect.Type) map[string]interface{} {
	mt := method.Type
	numIn := mt.NumIn()
	if numIn > 0 {
		// Drop the receiver.
		numIn--
	}
	return map[string]interface{}{
		"method":     method.Name,
		"targetType": targetType.String(),
		"numIn":      numIn,
		"numOut":     mt.NumOut(),
	}
}
