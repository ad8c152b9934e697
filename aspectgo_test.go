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

package aspectgo

import (
	"testing"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/builtin/pointcut"
	"github.com/aspectgo/aspectgo/engine"
	"github.com/aspectgo/aspectgo/test/assert"
)

type wallet struct {
	balance int64
}

func (w *wallet) Deposit(amount int64) (int64, error) {
	w.balance += amount
	return w.balance, nil
}

func (w *wallet) Balance() int64 {
	return w.balance
}

func TestNewProxyOverFixedTarget(t *testing.T) {
	var advised []string
	logging := engine.NewPointcutAdvisor("logging", 10,
		pointcut.NewNameMatchPointcut("Deposit"),
		types.AdviceFunc(func(invocation types.Invocation) (interface{}, error) {
			advised = append(advised, invocation.Method().Name)
			return invocation.Proceed()
		}))

	proxy, err := New(&wallet{balance: 100}, NewConfig(), logging)
	assert.Nil(t, err)

	result, err := proxy.Invoke("Deposit", int64(50))
	assert.Nil(t, err)
	assert.Equal(t, int64(150), result)

	// Balance is outside the pointcut and dispatches without advice.
	result, err = proxy.Invoke("Balance")
	assert.Nil(t, err)
	assert.Equal(t, int64(150), result)
	assert.Equal(t, []string{"Deposit"}, advised)
}

func TestNewWithTargetSource(t *testing.T) {
	source := engine.NewHotSwappableTargetSource(&wallet{balance: 1})
	proxy, err := NewWithTargetSource(source, NewConfig())
	assert.Nil(t, err)

	result, err := proxy.Invoke("Balance")
	assert.Nil(t, err)
	assert.Equal(t, int64(1), result)
}

func TestCurrentInvocationThroughFacade(t *testing.T) {
	var currentID string
	reader := engine.NewPointcutAdvisor("reader", 10, nil,
		types.AdviceFunc(func(invocation types.Invocation) (interface{}, error) {
			current, err := CurrentInvocation()
			if err != nil {
				return nil, err
			}
			currentID = current.ID()
			return invocation.Proceed()
		}))

	config := NewConfig(types.WithExposeInvocation())
	proxy, err := New(&wallet{}, config, reader)
	assert.Nil(t, err)

	_, err = proxy.Invoke("Balance")
	assert.Nil(t, err)
	assert.NotEqual(t, "", currentID)
}
