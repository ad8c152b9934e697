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
	"testing"

	"github.com/aspectgo/aspectgo/test/assert"
)

type ledger struct{}

func (l *ledger) GetBalance() int64                { return 0 }
func (l *ledger) GetOwner() string                 { return "" }
func (l *ledger) Withdraw(amount int64) error      { return nil }
func (l *ledger) TransferFunds(amount int64) error { return nil }

func ledgerMethod(t *testing.T, name string) (reflect.Method, reflect.Type) {
	t.Helper()
	targetType := reflect.TypeOf(&ledger{})
	method, ok := targetType.MethodByName(name)
	if !ok {
		t.Fatalf("method %s not found", name)
	}
	return method, targetType
}

func TestNameMatchPatterns(t *testing.T) {
	targetType := reflect.TypeOf(&ledger{})
	tests := []struct {
		pattern string
		method  string
		match   bool
	}{
		{"GetBalance", "GetBalance", true},
		{"GetBalance", "GetOwner", false},
		{"Get*", "GetBalance", true},
		{"Get*", "Withdraw", false},
		{"*Funds", "TransferFunds", true},
		{"*Funds", "Withdraw", false},
		{"*ansfer*", "TransferFunds", true},
		{"*", "Withdraw", true},
		{"Get*ance", "GetBalance", true},
		{"Get*ance", "GetOwner", false},
	}
	for _, tt := range tests {
		method, _ := ledgerMethod(t, tt.method)
		p := NewNameMatchPointcut(tt.pattern)
		assert.Equal(t, tt.match, p.Matches(method, targetType), "pattern=%s method=%s", tt.pattern, tt.method)
	}
}

func TestNameMatchMultiplePatterns(t *testing.T) {
	method, targetType := ledgerMethod(t, "Withdraw")
	p := NewNameMatchPointcut("Get*", "Withdraw")
	assert.True(t, p.Matches(method, targetType))
	assert.False(t, p.IsRuntime())
}

func TestNameMatchClassFilter(t *testing.T) {
	p := NewNameMatchPointcut("*").WithClassFilter(nil)
	assert.True(t, p.ClassFilter().Matches(reflect.TypeOf(&ledger{})))
}

func TestExprPointcutStatic(t *testing.T) {
	p, err := NewExprPointcut(`method startsWith "Get"`)
	assert.Nil(t, err)

	getBalance, targetType := ledgerMethod(t, "GetBalance")
	withdraw, _ := ledgerMethod(t, "Withdraw")
	assert.True(t, p.Matches(getBalance, targetType))
	assert.False(t, p.Matches(withdraw, targetType))
	assert.False(t, p.IsRuntime())
}

func TestExprPointcutSeesMethodShape(t *testing.T) {
	p, err := NewExprPointcut(`numIn == 1 && numOut == 1`)
	assert.Nil(t, err)

	withdraw, targetType := ledgerMethod(t, "Withdraw")
	getBalance, _ := ledgerMethod(t, "GetBalance")
	assert.True(t, p.Matches(withdraw, targetType))
	assert.False(t, p.Matches(getBalance, targetType))

	byType, err := NewExprPointcut(`targetType == "*pointcut.ledger"`)
	assert.Nil(t, err)
	assert.True(t, byType.Matches(withdraw, targetType))
}

func TestExprPointcutCompileErrorIsConfigurationError(t *testing.T) {
	_, err := NewExprPointcut(`method startsWith`)
	assert.NotNil(t, err)

	_, err = NewDynamicExprPointcut(`args[0] >`)
	assert.NotNil(t, err)
}

func TestDynamicExprPointcut(t *testing.T) {
	p, err := NewDynamicExprPointcut(`method == "Withdraw" && args[0] > 1000`)
	assert.Nil(t, err)

	withdraw, targetType := ledgerMethod(t, "Withdraw")
	// Static form stays conservatively eligible.
	assert.True(t, p.Matches(withdraw, targetType))
	assert.True(t, p.IsRuntime())

	assert.True(t, p.MatchesArgs(withdraw, targetType, []interface{}{int64(5000)}))
	assert.False(t, p.MatchesArgs(withdraw, targetType, []interface{}{int64(10)}))
}

func TestUnionPointcut(t *testing.T) {
	getters := NewNameMatchPointcut("Get*")
	withdraw := NewNameMatchPointcut("Withdraw")
	union := NewUnionPointcut(getters, withdraw)

	getBalance, targetType := ledgerMethod(t, "GetBalance")
	withdrawMethod, _ := ledgerMethod(t, "Withdraw")
	transfer, _ := ledgerMethod(t, "TransferFunds")

	assert.True(t, union.Matches(getBalance, targetType))
	assert.True(t, union.Matches(withdrawMethod, targetType))
	assert.False(t, union.Matches(transfer, targetType))
	assert.False(t, union.IsRuntime())
}

func TestIntersectionPointcut(t *testing.T) {
	getters := NewNameMatchPointcut("Get*")
	balance := NewNameMatchPointcut("*Balance")
	intersection := NewIntersectionPointcut(getters, balance)

	getBalance, targetType := ledgerMethod(t, "GetBalance")
	getOwner, _ := ledgerMethod(t, "GetOwner")

	assert.True(t, intersection.Matches(getBalance, targetType))
	assert.False(t, intersection.Matches(getOwner, targetType))
}

func TestUnionWithDynamicMember(t *testing.T) {
	big, err := NewDynamicExprPointcut(`args[0] > 100`)
	assert.Nil(t, err)
	getters := NewNameMatchPointcut("Get*")
	union := NewUnionPointcut(getters, big)

	withdraw, targetType := ledgerMethod(t, "Withdraw")
	getBalance, _ := ledgerMethod(t, "GetBalance")

	assert.True(t, union.IsRuntime())
	// Static member decides statically even inside the runtime form.
	assert.True(t, union.MatchesArgs(getBalance, targetType, nil))
	assert.True(t, union.MatchesArgs(withdraw, targetType, []interface{}{int64(500)}))
	assert.False(t, union.MatchesArgs(withdraw, targetType, []interface{}{int64(5)}))
}
