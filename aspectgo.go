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

// Package aspectgo provides an embeddable method-interception (AOP) runtime.
//
// A proxy wraps a target value; calls through the proxy run an ordered chain
// of advice selected per method by pointcuts. Advice cooperates through the
// Invocation it receives: call Proceed to continue towards the target, or
// return a result to short-circuit.
//
// Example:
//
//	account := &Account{Balance: 100}
//
//	logging := engine.NewPointcutAdvisor("logging", 10,
//		pointcut.NewNameMatchPointcut("*"),
//		types.AdviceFunc(func(inv types.Invocation) (interface{}, error) {
//			log.Printf("calling %s", inv.Method().Name)
//			return inv.Proceed()
//		}))
//
//	proxy, err := aspectgo.New(account, types.NewConfig(), logging)
//	if err != nil {
//		// handle configuration error
//	}
//	result, err := proxy.Invoke("Withdraw", int64(30))
//
// Advice components (script, dbRecorder, mqttPublisher) are created through
// the default Registry and configured declaratively:
//
//	advice, err := aspectgo.Registry.NewAdvice("script", config, types.Configuration{
//		"script": "return args[0] < 1000;",
//	})
package aspectgo

import (
	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/builtin/advice"
	"github.com/aspectgo/aspectgo/engine"
)

// New creates a proxy over a fixed target instance with the given advisors.
func New(target interface{}, config types.Config, advisors ...types.Advisor) (*engine.Proxy, error) {
	return NewWithTargetSource(engine.NewSingletonTargetSource(target), config, advisors...)
}

// NewWithTargetSource creates a proxy over an arbitrary target source, for
// per-call (prototype) or hot-swappable targets.
func NewWithTargetSource(targetSource types.TargetSource, config types.Config, advisors ...types.Advisor) (*engine.Proxy, error) {
	advised := engine.NewAdvised(config, targetSource)
	advised.AddAdvisor(advisors...)
	return engine.NewProxy(config, advised)
}

// CurrentInvocation returns the invocation in flight on the calling
// goroutine. Requires Config.ExposeInvocation (or a manually registered
// expose advisor).
func CurrentInvocation() (types.Invocation, error) {
	return advice.CurrentInvocation()
}

// NewConfig creates an engine configuration with the given options applied.
func NewConfig(opts ...types.Option) types.Config {
	return types.NewConfig(opts...)
}
