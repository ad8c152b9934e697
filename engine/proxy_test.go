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
	"testing"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/test/assert"
)

type bankAccount struct {
	balance int64
}

func (a *bankAccount) Deposit(amount int64) (int64, error) {
	a.balance += amount
	return a.balance, nil
}

func (a *bankAccount) Withdraw(amount int64) (int64, error) {
	if amount > a.balance {
		return a.balance, fmt.Errorf("insufficient funds: balance %d, requested %d", a.balance, amount)
	}
	a.balance -= amount
	return a.balance, nil
}

func (a *bankAccount) Balance() int64 {
	return a.balance
}

func (a *bankAccount) Same() *bankAccount {
	return a
}

func (a *bankAccount) Self() interface{} {
	return a
}

func newAccountProxy(t *testing.T, config types.Config, account *bankAccount, advisors ...types.Advisor) *Proxy {
	t.Helper()
	advised := NewAdvised(config, NewSingletonTargetSource(account))
	advised.AddAdvisor(advisors...)
	proxy, err := NewProxy(config, advised)
	assert.Nil(t, err)
	return proxy
}

func TestTransferScenarioWithLoggingAndSecurity(t *testing.T) {
	var log []string
	account := &bankAccount{balance: 100}

	logging := NewPointcutAdvisor("logging", 10, nil,
		types.AdviceFunc(func(invocation types.Invocation) (interface{}, error) {
			log = append(log, "enter "+invocation.Method().Name)
			result, err := invocation.Proceed()
			log = append(log, "exit "+invocation.Method().Name)
			return result, err
		}))
	security := NewPointcutAdvisor("security", 20, nil,
		types.AdviceFunc(func(invocation types.Invocation) (interface{}, error) {
			if invocation.Method().Name == "Withdraw" {
				amount, _ := invocation.Arguments()[0].(int64)
				if amount > 1000 {
					return nil, errors.New("security: withdrawal over limit")
				}
			}
			return invocation.Proceed()
		}))

	proxy := newAccountProxy(t, types.NewConfig(), account, logging, security)

	result, err := proxy.Invoke("Deposit", int64(50))
	assert.Nil(t, err)
	assert.Equal(t, int64(150), result)

	result, err = proxy.Invoke("Withdraw", int64(30))
	assert.Nil(t, err)
	assert.Equal(t, int64(120), result)

	// The security advice blocks before the target runs; the logging advice
	// still sees the error pass through unchanged.
	_, err = proxy.Invoke("Withdraw", int64(5000))
	assert.EqualError(t, err, "security: withdrawal over limit")
	assert.Equal(t, int64(120), account.balance)

	// Insufficient funds comes from the target itself and crosses both
	// advices unmodified.
	_, err = proxy.Invoke("Withdraw", int64(500))
	assert.EqualError(t, err, "insufficient funds: balance 120, requested 500")

	assert.Equal(t, []string{
		"enter Deposit", "exit Deposit",
		"enter Withdraw", "exit Withdraw",
		"enter Withdraw", "exit Withdraw",
		"enter Withdraw", "exit Withdraw",
	}, log)
}

func TestEmptyChainDispatchesDirectly(t *testing.T) {
	account := &bankAccount{balance: 10}
	never := NewPointcutAdvisor("never", 10,
		pointcutOf(func(reflect.Type) bool { return false }),
		types.AdviceFunc(func(invocation types.Invocation) (interface{}, error) {
			t.Fatal("advice must not run")
			return nil, nil
		}))

	proxy := newAccountProxy(t, types.NewConfig(), account, never)
	result, err := proxy.Invoke("Balance")
	assert.Nil(t, err)
	assert.Equal(t, int64(10), result)
}

func TestUnknownMethod(t *testing.T) {
	account := &bankAccount{}
	proxy := newAccountProxy(t, types.NewConfig(), account)
	_, err := proxy.Invoke("Nope")
	assert.NotNil(t, err)
}

func TestNewProxyRejectsMissingTargetSource(t *testing.T) {
	config := types.NewConfig()
	_, err := NewProxy(config, nil)
	assert.NotNil(t, err)

	_, err = NewProxy(config, NewAdvised(config, nil))
	assert.Equal(t, ErrNoTargetSource, err)
}

func TestIdentitySubstitution(t *testing.T) {
	account := &bankAccount{}
	proxy := newAccountProxy(t, types.NewConfig(), account)

	// Self declares an interface return, which can hold the proxy.
	result, err := proxy.Invoke("Self")
	assert.Nil(t, err)
	substituted, ok := result.(*Proxy)
	assert.True(t, ok)
	assert.True(t, substituted == proxy)
}

func TestIdentitySubstitutionSkippedForConcreteReturnType(t *testing.T) {
	account := &bankAccount{}
	proxy := newAccountProxy(t, types.NewConfig(), account)

	// Same declares *bankAccount; the proxy cannot stand in for that type,
	// so the raw target comes back.
	result, err := proxy.Invoke("Same")
	assert.Nil(t, err)
	raw, ok := result.(*bankAccount)
	assert.True(t, ok)
	assert.True(t, raw == account)
}

func TestFacadeSelfReturningConcreteMethod(t *testing.T) {
	account := &bankAccount{}
	proxy := newAccountProxy(t, types.NewConfig(), account)

	var facade struct {
		Same func() *bankAccount
	}
	assert.Nil(t, proxy.As(&facade))
	assert.True(t, facade.Same() == account)
}

func TestIdentitySubstitutionDisabledForRawAccess(t *testing.T) {
	account := &bankAccount{}
	config := types.NewConfig(types.WithRawAccess(account))
	proxy := newAccountProxy(t, config, account)

	result, err := proxy.Invoke("Self")
	assert.Nil(t, err)
	raw, ok := result.(*bankAccount)
	assert.True(t, ok)
	assert.True(t, raw == account)
}

func TestNilResultForNonNilableReturnIsRejected(t *testing.T) {
	account := &bankAccount{balance: 10}
	shortCircuit := NewPointcutAdvisor("nil-result", 10, nil,
		types.AdviceFunc(func(invocation types.Invocation) (interface{}, error) {
			return nil, nil
		}))

	proxy := newAccountProxy(t, types.NewConfig(), account, shortCircuit)
	_, err := proxy.Invoke("Balance")
	assert.True(t, errors.Is(err, ErrInvalidReturnValue))
}

type releaseTrackingSource struct {
	created  int
	released int
	fail     bool
}

func (s *releaseTrackingSource) TargetType() reflect.Type {
	return reflect.TypeOf(&bankAccount{})
}

func (s *releaseTrackingSource) IsStatic() bool {
	return false
}

func (s *releaseTrackingSource) GetTarget() (interface{}, error) {
	s.created++
	return &bankAccount{balance: 100}, nil
}

func (s *releaseTrackingSource) ReleaseTarget(target interface{}) error {
	s.released++
	if s.fail {
		return errors.New("release failed")
	}
	return nil
}

func TestNonStaticTargetReleasedPerCall(t *testing.T) {
	source := &releaseTrackingSource{}
	config := types.NewConfig()
	advised := NewAdvised(config, source)
	proxy, err := NewProxy(config, advised)
	assert.Nil(t, err)

	_, err = proxy.Invoke("Withdraw", int64(10))
	assert.Nil(t, err)
	_, err = proxy.Invoke("Withdraw", int64(10))
	assert.Nil(t, err)
	assert.Equal(t, 2, source.created)
	assert.Equal(t, 2, source.released)
}

func TestReleaseFailureNeverOverridesResult(t *testing.T) {
	source := &releaseTrackingSource{fail: true}
	config := types.NewConfig()
	advised := NewAdvised(config, source)
	proxy, err := NewProxy(config, advised)
	assert.Nil(t, err)

	result, err := proxy.Invoke("Balance")
	assert.Nil(t, err)
	assert.Equal(t, int64(100), result)
	assert.Equal(t, 1, source.released)
}

func TestPrototypeTargetSourceFreshInstancePerCall(t *testing.T) {
	created := 0
	source := NewPrototypeTargetSource(reflect.TypeOf(&bankAccount{}),
		func() (interface{}, error) {
			created++
			return &bankAccount{balance: 100}, nil
		}, nil)
	config := types.NewConfig()
	proxy, err := NewProxy(config, NewAdvised(config, source))
	assert.Nil(t, err)

	// Every call starts from a fresh balance.
	result, err := proxy.Invoke("Withdraw", int64(40))
	assert.Nil(t, err)
	assert.Equal(t, int64(60), result)
	result, err = proxy.Invoke("Withdraw", int64(40))
	assert.Nil(t, err)
	assert.Equal(t, int64(60), result)
	assert.Equal(t, 2, created)
}

func TestHotSwappableTargetSource(t *testing.T) {
	first := &bankAccount{balance: 100}
	second := &bankAccount{balance: 9000}
	source := NewHotSwappableTargetSource(first)
	config := types.NewConfig()
	proxy, err := NewProxy(config, NewAdvised(config, source))
	assert.Nil(t, err)

	result, err := proxy.Invoke("Balance")
	assert.Nil(t, err)
	assert.Equal(t, int64(100), result)

	old, err := source.Swap(second)
	assert.Nil(t, err)
	assert.True(t, old.(*bankAccount) == first)

	result, err = proxy.Invoke("Balance")
	assert.Nil(t, err)
	assert.Equal(t, int64(9000), result)

	_, err = source.Swap(nil)
	assert.NotNil(t, err)
}

func TestFacadePopulatesFuncFields(t *testing.T) {
	account := &bankAccount{balance: 100}
	var calls int
	counting := NewPointcutAdvisor("counting", 10, nil,
		types.AdviceFunc(func(invocation types.Invocation) (interface{}, error) {
			calls++
			return invocation.Proceed()
		}))
	proxy := newAccountProxy(t, types.NewConfig(), account, counting)

	var facade struct {
		Deposit  func(amount int64) (int64, error)
		Withdraw func(amount int64) (int64, error)
		Balance  func() int64
	}
	assert.Nil(t, proxy.As(&facade))

	balance, err := facade.Deposit(50)
	assert.Nil(t, err)
	assert.Equal(t, int64(150), balance)

	balance, err = facade.Withdraw(30)
	assert.Nil(t, err)
	assert.Equal(t, int64(120), balance)

	assert.Equal(t, int64(120), facade.Balance())
	assert.Equal(t, 3, calls)
}

func TestFacadeRejectsNonStructAndUnknownField(t *testing.T) {
	account := &bankAccount{}
	proxy := newAccountProxy(t, types.NewConfig(), account)

	assert.NotNil(t, proxy.As(42))

	var bad struct {
		Nope func()
	}
	assert.NotNil(t, proxy.As(&bad))
}

func TestProxyEqualByConfiguration(t *testing.T) {
	account := &bankAccount{}
	config := types.NewConfig()
	source := NewSingletonTargetSource(account)
	advisor := NewPointcutAdvisor("noop", 10, nil,
		types.AdviceFunc(func(invocation types.Invocation) (interface{}, error) {
			return invocation.Proceed()
		}))

	advisedA := NewAdvised(config, source)
	advisedA.AddAdvisor(advisor)
	advisedB := NewAdvised(config, source)
	advisedB.AddAdvisor(advisor)

	proxyA, err := NewProxy(config, advisedA)
	assert.Nil(t, err)
	proxyB, err := NewProxy(config, advisedB)
	assert.Nil(t, err)
	assert.True(t, proxyA.Equal(proxyB))

	advisedB.AddAdvisor(NewPointcutAdvisor("extra", 20, nil,
		types.AdviceFunc(func(invocation types.Invocation) (interface{}, error) {
			return invocation.Proceed()
		})))
	assert.False(t, proxyA.Equal(proxyB))
}

type selfEqualTarget struct {
	key string
}

func (s *selfEqualTarget) Key() string {
	return s.key
}

func (s *selfEqualTarget) Equal(other interface{}) bool {
	o, ok := other.(*selfEqualTarget)
	return ok && o.key == s.key
}

func TestProxyEqualDelegatesToTargetEqual(t *testing.T) {
	config := types.NewConfig()
	proxyA, err := NewProxy(config, NewAdvised(config, NewSingletonTargetSource(&selfEqualTarget{key: "k"})))
	assert.Nil(t, err)
	proxyB, err := NewProxy(config, NewAdvised(config, NewSingletonTargetSource(&selfEqualTarget{key: "k"})))
	assert.Nil(t, err)

	// Distinct instances and advised configurations, but the targets declare
	// themselves equal.
	assert.True(t, proxyA.Equal(proxyB))
}

// pointcutOf builds a pointcut from a type predicate, matching all methods.
func pointcutOf(filter func(reflect.Type) bool) types.Pointcut {
	return &filterPointcut{filter: filter}
}

type filterPointcut struct {
	filter func(reflect.Type) bool
}

func (p *filterPointcut) ClassFilter() types.ClassFilter {
	return types.ClassFilterFunc(p.filter)
}

func (p *filterPointcut) MethodMatcher() types.MethodMatcher {
	return types.TrueMethodMatcher
}
