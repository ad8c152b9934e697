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

package advice

import (
	"errors"
	"math"
	"sync"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/utils/runtime"
)

// exposeSlots maps goroutine id to the invocation currently published on that
// goroutine.
var exposeSlots sync.Map

var errNoCurrentInvocation = errors.New(
	"no current invocation: check that a proxied call is in progress and that the configuration enables ExposeInvocation")

// CurrentInvocation returns the invocation currently in flight on the calling
// goroutine. It fails when nothing is published, either because no proxied
// call is in progress on this goroutine or because the exposing advisor is
// not part of the chain.
func CurrentInvocation() (types.Invocation, error) {
	if value, ok := exposeSlots.Load(runtime.GoroutineID()); ok {
		return value.(types.Invocation), nil
	}
	return nil, errNoCurrentInvocation
}

// exposeAdvice publishes the in-flight invocation to the goroutine slot for
// the duration of the call. The previous slot value is restored on all paths,
// so nested proxied calls on one goroutine each see their own invocation and
// hand the outer one back when they return.
type exposeAdvice struct{}

func (a *exposeAdvice) Invoke(invocation types.Invocation) (interface{}, error) {
	gid := runtime.GoroutineID()
	previous, hadPrevious := exposeSlots.Load(gid)
	exposeSlots.Store(gid, invocation)
	defer func() {
		if hadPrevious {
			exposeSlots.Store(gid, previous)
		} else {
			exposeSlots.Delete(gid)
		}
	}()
	return invocation.Proceed()
}

// exposeAdvisor is the singleton advisor carrying exposeAdvice at the highest
// possible precedence, so the slot is populated before any other advice runs.
type exposeAdvisor struct {
	advice exposeAdvice
}

var exposeSingleton = &exposeAdvisor{}

// ExposeAdvisor returns the shared advisor that publishes invocations. A
// single instance is used everywhere so registrations can be de-duplicated by
// identity.
func ExposeAdvisor() types.Advisor {
	return exposeSingleton
}

func (a *exposeAdvisor) Advice() types.Advice {
	return &a.advice
}

func (a *exposeAdvisor) Name() string {
	return "exposeInvocation"
}

func (a *exposeAdvisor) Order() int {
	return math.MinInt32
}

func (a *exposeAdvisor) DeclarationOrder() int {
	return 0
}
