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

var (
	// Compile-time check DefaultPointcutAdvisor implements types.PointcutAdvisor.
	_ types.PointcutAdvisor = (*DefaultPointcutAdvisor)(nil)
	// Compile-time check DefaultIntroductionAdvisor implements types.IntroductionAdvisor.
	_ types.IntroductionAdvisor = (*DefaultIntroductionAdvisor)(nil)
)

// DeclarationOrderAware is implemented by advisors whose declaration order is
// assigned by the Advised configuration when they are registered.
type DeclarationOrderAware interface {
	SetDeclarationOrder(order int)
}

// DefaultPointcutAdvisor is the standard advisor: an advice gated by a
// pointcut. A nil pointcut means the advice applies unconditionally.
type DefaultPointcutAdvisor struct {
	AdvisorName string
	// Ord is the execution order, the smaller the value, the higher the priority.
	Ord              int
	pointcut         types.Pointcut
	advice           types.Advice
	declarationOrder int
}

// NewPointcutAdvisor creates an advisor for the given pointcut and advice.
// A nil pointcut is replaced by TruePointcut, making the advice unconditional.
func NewPointcutAdvisor(name string, order int, pointcut types.Pointcut, advice types.Advice) *DefaultPointcutAdvisor {
	if pointcut == nil {
		pointcut = types.TruePointcut
	}
	return &DefaultPointcutAdvisor{
		AdvisorName: name,
		Ord:         order,
		pointcut:    pointcut,
		advice:      advice,
	}
}

func (a *DefaultPointcutAdvisor) Advice() types.Advice {
	return a.advice
}

func (a *DefaultPointcutAdvisor) Name() string {
	return a.AdvisorName
}

func (a *DefaultPointcutAdvisor) Order() int {
	return a.Ord
}

func (a *DefaultPointcutAdvisor) DeclarationOrder() int {
	return a.declarationOrder
}

func (a *DefaultPointcutAdvisor) SetDeclarationOrder(order int) {
	a.declarationOrder = order
}

func (a *DefaultPointcutAdvisor) Pointcut() types.Pointcut {
	return a.pointcut
}

// DefaultIntroductionAdvisor contributes capability-adding advice to every
// method of the types selected by its class filter.
type DefaultIntroductionAdvisor struct {
	AdvisorName string
	Ord         int
	filter      types.ClassFilter
	advice      types.Advice

	declarationOrder int
}

// NewIntroductionAdvisor creates an introduction advisor for the given class
// filter and advice. A nil filter matches every type.
func NewIntroductionAdvisor(name string, order int, filter types.ClassFilter, advice types.Advice) *DefaultIntroductionAdvisor {
	if filter == nil {
		filter = types.TrueClassFilter
	}
	return &DefaultIntroductionAdvisor{
		AdvisorName: name,
		Ord:         order,
		filter:      filter,
		advice:      advice,
	}
}

func (a *DefaultIntroductionAdvisor) Advice() types.Advice {
	return a.advice
}

func (a *DefaultIntroductionAdvisor) Name() string {
	return a.AdvisorName
}

func (a *DefaultIntroductionAdvisor) Order() int {
	return a.Ord
}

func (a *DefaultIntroductionAdvisor) DeclarationOrder() int {
	return a.declarationOrder
}

func (a *DefaultIntroductionAdvisor) SetDeclarationOrder(order int) {
	a.declarationOrder = order
}

func (a *DefaultIntroductionAdvisor) ClassFilter() types.ClassFilter {
	return a.filter
}

// ClassFilterOf returns a class filter matching exactly the type of the given
// value (or the reflect.Type itself when one is passed).
func ClassFilterOf(target interface{}) types.ClassFilter {
	var want reflect.Type
	if t, ok := target.(reflect.Type); ok {
		want = t
	} else {
		want = reflect.TypeOf(target)
	}
	return types.ClassFilterFunc(func(targetType reflect.Type) bool {
		return targetType == want
	})
}
