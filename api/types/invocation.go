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

package types

import "reflect"

// Invocation is the stateful cursor over one built advice chain. It is created
// per call by the proxy dispatcher, advanced cooperatively by the advices via
// Proceed, and discarded after the call completes.
//
// An Invocation is not safe for concurrent use by multiple goroutines. Clone
// exists for deliberate, independent re-execution of the remaining chain, not
// for concurrent sharing of one cursor.
type Invocation interface {
	// ID returns the unique id assigned to this invocation. Clones share the
	// id of the invocation they were cloned from.
	ID() string
	// Proxy returns the proxy object the call was made on.
	Proxy() interface{}
	// Target returns the resolved target instance, or nil if the target source
	// produced none.
	Target() interface{}
	// TargetType returns the type of the target.
	TargetType() reflect.Type
	// Method returns the called method descriptor, resolved ahead of dispatch.
	Method() reflect.Method
	// Arguments returns the current argument vector. Advices may mutate the
	// returned slice in place; runtime matchers and the terminal dispatch see
	// the mutated values.
	Arguments() []interface{}
	// SetArguments replaces the argument vector.
	SetArguments(args []interface{})
	// Proceed advances the cursor. At the last entry it performs exactly one
	// dispatch to the target method and returns its result or error unchanged.
	// Otherwise it hands control to the next applicable advice; entries whose
	// runtime matcher rejects the current arguments are skipped transparently.
	Proceed() (interface{}, error)
	// Clone returns an independent copy of this invocation that resumes from
	// the current cursor position. The clone shares the chain entries and the
	// attribute map reference but owns an independent argument vector; when no
	// args are given the current vector is copied.
	Clone(args ...interface{}) Invocation
	// SetAttribute stores a user attribute on this invocation. A nil value
	// removes the key. The attribute map is created lazily and shared with
	// clones.
	SetAttribute(key string, value interface{})
	// Attribute returns the user attribute stored under key, or nil.
	Attribute(key string) interface{}
}
