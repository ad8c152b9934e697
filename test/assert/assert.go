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

// Package assert provides minimal assertion helpers for tests.
package assert

import (
	"fmt"
	"reflect"
	"testing"
)

// Equal asserts that expected and actual are deeply equal.
func Equal(t *testing.T, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if !objectsAreEqual(expected, actual) {
		fail(t, fmt.Sprintf("expected: %v, actual: %v", expected, actual), msgAndArgs...)
	}
}

// NotEqual asserts that expected and actual are not deeply equal.
func NotEqual(t *testing.T, expected, actual interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if objectsAreEqual(expected, actual) {
		fail(t, fmt.Sprintf("should not be equal: %v", actual), msgAndArgs...)
	}
}

// True asserts that value is true.
func True(t *testing.T, value bool, msgAndArgs ...interface{}) {
	t.Helper()
	if !value {
		fail(t, "should be true", msgAndArgs...)
	}
}

// False asserts that value is false.
func False(t *testing.T, value bool, msgAndArgs ...interface{}) {
	t.Helper()
	if value {
		fail(t, "should be false", msgAndArgs...)
	}
}

// Nil asserts that object is nil.
func Nil(t *testing.T, object interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if !isNil(object) {
		fail(t, fmt.Sprintf("expected nil, actual: %v", object), msgAndArgs...)
	}
}

// NotNil asserts that object is not nil.
func NotNil(t *testing.T, object interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if isNil(object) {
		fail(t, "should not be nil", msgAndArgs...)
	}
}

// NoError asserts that err is nil.
func NoError(t *testing.T, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err != nil {
		fail(t, fmt.Sprintf("unexpected error: %v", err), msgAndArgs...)
	}
}

// EqualError asserts that err is non-nil and its message equals errString.
func EqualError(t *testing.T, err error, errString string, msgAndArgs ...interface{}) {
	t.Helper()
	if err == nil {
		fail(t, "expected an error, got nil", msgAndArgs...)
		return
	}
	if err.Error() != errString {
		fail(t, fmt.Sprintf("expected error: %q, actual: %q", errString, err.Error()), msgAndArgs...)
	}
}

// Fail fails the test with the given message.
func Fail(t *testing.T, msgAndArgs ...interface{}) {
	t.Helper()
	fail(t, "failed", msgAndArgs...)
}

func fail(t *testing.T, message string, msgAndArgs ...interface{}) {
	t.Helper()
	if len(msgAndArgs) > 0 {
		if format, ok := msgAndArgs[0].(string); ok && len(msgAndArgs) > 1 {
			message = message + ": " + fmt.Sprintf(format, msgAndArgs[1:]...)
		} else {
			message = message + ": " + fmt.Sprint(msgAndArgs...)
		}
	}
	t.Fatal(message)
}

func objectsAreEqual(expected, actual interface{}) bool {
	if expected == nil || actual == nil {
		return expected == actual
	}
	return reflect.DeepEqual(expected, actual)
}

func isNil(object interface{}) bool {
	if object == nil {
		return true
	}
	value := reflect.ValueOf(object)
	switch value.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func:
		return value.IsNil()
	default:
		return false
	}
}
