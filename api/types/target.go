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

// TargetSource produces and releases the real object behind a proxy,
// decoupling proxy lifetime from target lifetime. The dispatcher obtains the
// target as late as possible and releases it on every exit path when the
// source is not static.
type TargetSource interface {
	// TargetType returns the type of targets produced by this source.
	TargetType() reflect.Type
	// IsStatic reports whether GetTarget always returns the same instance.
	// Static sources are never released.
	IsStatic() bool
	// GetTarget obtains the target instance for one call.
	GetTarget() (interface{}, error)
	// ReleaseTarget returns a target obtained from GetTarget back to the
	// source. A release failure after a successful call must not override the
	// call's primary result or error.
	ReleaseTarget(target interface{}) error
}
