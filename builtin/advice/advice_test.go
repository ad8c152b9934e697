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

package advice_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/builtin/advice"
	"github.com/aspectgo/aspectgo/engine"
	"github.com/aspectgo/aspectgo/test/assert"
)

type vault struct {
	balance int64
}

func (v *vault) Deposit(amount int64) (int64, error) {
	v.balance += amount
	return v.balance, nil
}

func (v *vault) Withdraw(amount int64) (int64, error) {
	if amount > v.balance {
		return v.balance, errors.New("insufficient funds")
	}
	v.balance -= amount
	return v.balance, nil
}

func (v *vault) Balance() int64 {
	return v.balance
}

func newVaultProxy(t *testing.T, config types.Config, target *vault, advisors ...types.Advisor) *engine.Proxy {
	t.Helper()
	advised := engine.NewAdvised(config, engine.NewSingletonTargetSource(target))
	advised.AddAdvisor(advisors...)
	proxy, err := engine.NewProxy(config, advised)
	assert.Nil(t, err)
	return proxy
}

func TestCurrentInvocationOutsideCallFails(t *testing.T) {
	_, err := advice.CurrentInvocation()
	assert.NotNil(t, err)
}

func TestExposePublishesInvocationForChain(t *testing.T) {
	var seenMethod string
	inner := engine.NewPointcutAdvisor("reader", 10, nil,
		types.AdviceFunc(func(invocation types.Invocation) (interface{}, error) {
			current, err := advice.CurrentInvocation()
			if err != nil {
				return nil, err
			}
			seenMethod = current.Method().Name
			return invocation.Proceed()
		}))

	config := types.NewConfig(types.WithExposeInvocation())
	proxy := newVaultProxy(t, config, &vault{balance: 10}, inner)

	_, err := proxy.Invoke("Balance")
	assert.Nil(t, err)
	assert.Equal(t, "Balance", seenMethod)

	// The slot is cleared once the call returns.
	_, err = advice.CurrentInvocation()
	assert.NotNil(t, err)
}

func TestExposeRestoresOuterInvocationOnNestedCalls(t *testing.T) {
	innerVault := &vault{balance: 10}
	config := types.NewConfig(types.WithExposeInvocation())
	innerProxy := newVaultProxy(t, config, innerVault)

	var observed []string
	outer := engine.NewPointcutAdvisor("nesting", 10, nil,
		types.AdviceFunc(func(invocation types.Invocation) (interface{}, error) {
			current, _ := advice.CurrentInvocation()
			observed = append(observed, "before:"+current.Method().Name)

			// Re-entrant proxied call on the same goroutine.
			_, err := innerProxy.Invoke("Balance")
			if err != nil {
				return nil, err
			}

			// The outer invocation is back in the slot.
			current, _ = advice.CurrentInvocation()
			observed = append(observed, "after:"+current.Method().Name)
			return invocation.Proceed()
		}))

	outerProxy := newVaultProxy(t, config, &vault{balance: 100}, outer)
	_, err := outerProxy.Invoke("Deposit", int64(5))
	assert.Nil(t, err)
	assert.Equal(t, []string{"before:Deposit", "after:Deposit"}, observed)
}

func TestMetricsAdviceCounts(t *testing.T) {
	metricsAdvice := advice.NewMetricsAdvice(nil)
	advisor := engine.NewPointcutAdvisor("metrics", 10, nil, metricsAdvice)
	proxy := newVaultProxy(t, types.NewConfig(), &vault{balance: 50}, advisor)

	_, err := proxy.Invoke("Deposit", int64(10))
	assert.Nil(t, err)
	_, err = proxy.Invoke("Withdraw", int64(500))
	assert.NotNil(t, err)

	snapshot := metricsAdvice.GetMetrics().Get()
	assert.Equal(t, int64(2), snapshot.Total)
	assert.Equal(t, int64(1), snapshot.Success)
	assert.Equal(t, int64(1), snapshot.Failed)
	assert.Equal(t, int64(0), snapshot.Current)
}

func TestConcurrencyLimiterBlocksOverLimit(t *testing.T) {
	limiter := advice.NewConcurrencyLimiterAdvice(1)
	release := make(chan struct{})
	started := make(chan struct{})
	var startOnce sync.Once

	slow := engine.NewPointcutAdvisor("slow", 5, nil,
		types.AdviceFunc(func(invocation types.Invocation) (interface{}, error) {
			startOnce.Do(func() { close(started) })
			<-release
			return invocation.Proceed()
		}))
	advisor := engine.NewPointcutAdvisor("limiter", 1, nil, limiter)

	proxy := newVaultProxy(t, types.NewConfig(), &vault{balance: 100}, advisor, slow)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := proxy.Invoke("Balance")
		assert.Nil(t, err)
	}()

	<-started
	// The first call holds the only slot.
	_, err := proxy.Invoke("Balance")
	assert.Equal(t, advice.ErrConcurrencyLimitReached, err)

	close(release)
	wg.Wait()

	// Slot released, calls pass again.
	_, err = proxy.Invoke("Balance")
	assert.Nil(t, err)
}

func TestDebugAdviceReportsOutcome(t *testing.T) {
	var events []advice.DebugEvent
	debug := advice.NewDebugAdvice(nil)
	debug.OnDebug = func(event advice.DebugEvent) {
		events = append(events, event)
	}
	advisor := engine.NewPointcutAdvisor("debug", 10, nil, debug)
	proxy := newVaultProxy(t, types.NewConfig(), &vault{balance: 50}, advisor)

	_, err := proxy.Invoke("Withdraw", int64(10))
	assert.Nil(t, err)
	_, err = proxy.Invoke("Withdraw", int64(500))
	assert.NotNil(t, err)

	assert.Equal(t, 2, len(events))
	assert.Equal(t, "Withdraw", events[0].Method)
	assert.Nil(t, events[0].Err)
	assert.Equal(t, int64(40), events[0].Result)
	assert.NotNil(t, events[1].Err)
}

func TestScriptAdviceDecisions(t *testing.T) {
	config := types.NewConfig()

	newScript := func(script string) types.AdviceComponent {
		component := (&advice.ScriptAdvice{}).New()
		err := component.Init(config, types.Configuration{"script": script})
		assert.Nil(t, err)
		return component
	}

	// Proceed when the script approves.
	approve := newScript("return args[0] < 1000;")
	proxy := newVaultProxy(t, config, &vault{balance: 100},
		engine.NewPointcutAdvisor("script", 10, nil, approve))
	result, err := proxy.Invoke("Withdraw", int64(10))
	assert.Nil(t, err)
	assert.Equal(t, int64(90), result)

	// Short-circuit with a nil result when the script rejects; the method
	// returns (int64, error) so the nil is surfaced as an invalid result.
	_, err = proxy.Invoke("Withdraw", int64(5000))
	assert.True(t, errors.Is(err, engine.ErrInvalidReturnValue))

	// Script-provided result short-circuits the target.
	canned := newScript("return {result: 12345};")
	proxy = newVaultProxy(t, config, &vault{balance: 100},
		engine.NewPointcutAdvisor("script", 10, nil, canned))
	result, err = proxy.Invoke("Balance")
	assert.Nil(t, err)
	assert.Equal(t, int64(12345), toInt64(result))

	// Script-rewritten arguments reach the target.
	rewrite := newScript("return {args: [50]};")
	target := &vault{balance: 100}
	proxy = newVaultProxy(t, config, target,
		engine.NewPointcutAdvisor("script", 10, nil, rewrite))
	_, err = proxy.Invoke("Deposit", int64(1))
	assert.Nil(t, err)
	assert.Equal(t, int64(150), target.balance)
}

func TestScriptAdviceRejectsEmptyScript(t *testing.T) {
	component := (&advice.ScriptAdvice{}).New()
	err := component.Init(types.NewConfig(), types.Configuration{"script": ""})
	assert.NotNil(t, err)
}

func toInt64(value interface{}) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return -1
	}
}
