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

// Package types defines the public contracts of the AspectGo method-interception
// runtime: advice, advisors, pointcuts, invocations, target sources and the
// engine configuration.
//
// The interception model is a cooperative chain of responsibility. A proxy
// dispatcher builds an ordered chain of advice for each call and drives an
// Invocation through it. Every advice decides whether to call
// Invocation.Proceed() to continue towards the target, or to return its own
// result and short-circuit the rest of the chain.
package types

// Configuration holds the raw key/value configuration of an advice component,
// typically decoded into the component's Config struct during Init.
type Configuration map[string]interface{}

// Advice is an executable chain node. It receives the in-flight Invocation and
// may inspect or mutate the argument vector before deciding to continue.
//
// Contract:
//   - Call invocation.Proceed() exactly once to run the remaining chain and the
//     target method, and return its result.
//   - Or return a result (or error) directly to short-circuit the chain.
//
// Errors returned by Proceed must be passed through unmodified unless the
// advice's purpose is explicitly to handle them.
type Advice interface {
	Invoke(invocation Invocation) (interface{}, error)
}

// AdviceFunc adapts a plain function to the Advice interface.
type AdviceFunc func(invocation Invocation) (interface{}, error)

func (f AdviceFunc) Invoke(invocation Invocation) (interface{}, error) {
	return f(invocation)
}

// Advisor pairs an advice body with the metadata needed to place it in a chain:
// a name, an execution order and the declaration order used as a tie-breaker.
type Advisor interface {
	// Advice returns the advice body of this advisor.
	Advice() Advice
	// Name returns the advisor name, used for diagnostics and audit records.
	Name() string
	// Order returns the execution order, the smaller the value, the higher the priority.
	Order() int
	// DeclarationOrder returns the position of this advisor in its declaration
	// sequence. Assigned once when the advisor is registered and stable across
	// repeated chain builds.
	DeclarationOrder() int
}

// PointcutAdvisor is an advisor driven by a pointcut. Its advice applies only
// to the (type, method) combinations selected by the pointcut.
type PointcutAdvisor interface {
	Advisor
	// Pointcut returns the pointcut that selects the join points of this advisor.
	Pointcut() Pointcut
}

// IntroductionAdvisor adds new capability to a proxied type rather than
// intercepting an existing call. It matches purely by class filter; when the
// filter matches, its advice is included unconditionally for every method of
// that type.
type IntroductionAdvisor interface {
	Advisor
	// ClassFilter returns the type-level filter of this introduction.
	ClassFilter() ClassFilter
}

// AdviceComponent is an advice that can be registered in a component registry
// and configured declaratively. It follows the Type/New/Init/Destroy component
// lifecycle; Init decodes the raw Configuration into the component's own
// config struct.
type AdviceComponent interface {
	Advice
	// Type returns the unique component type identifier.
	Type() string
	// New creates an unconfigured instance of this component type.
	New() AdviceComponent
	// Init configures the component instance. Called once before first use.
	Init(config Config, configuration Configuration) error
	// Destroy releases resources held by the component.
	Destroy()
}

// PluginRegistry is the entry point exported by advice component plugins
// (built with `go build -buildmode=plugin`) under the `Plugins` symbol.
type PluginRegistry interface {
	// Init initializes the plugin.
	Init() error
	// Components returns the advice components provided by the plugin.
	Components() []AdviceComponent
}
