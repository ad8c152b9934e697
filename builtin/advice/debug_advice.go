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
	"time"

	"github.com/aspectgo/aspectgo/api/types"
)

// DebugEvent describes one observed call for debug reporting.
type DebugEvent struct {
	InvocationID string
	TargetType   string
	Method       string
	Arguments    []interface{}
	Result       interface{}
	Err          error
	Duration     time.Duration
}

// DebugAdvice reports every call passing through it, either to a custom
// callback or to the configured logger.
type DebugAdvice struct {
	Logger types.Logger
	// OnDebug, when set, receives the event instead of the logger.
	OnDebug func(event DebugEvent)
}

var _ types.Advice = (*DebugAdvice)(nil)

func NewDebugAdvice(logger types.Logger) *DebugAdvice {
	if logger == nil {
		logger = types.DefaultLogger()
	}
	return &DebugAdvice{Logger: logger}
}

func (a *DebugAdvice) Invoke(invocation types.Invocation) (interface{}, error) {
	start := time.Now()
	result, err := invocation.Proceed()
	event := DebugEvent{
		InvocationID: invocation.ID(),
		TargetType:   invocation.TargetType().String(),
		Method:       invocation.Method().Name,
		Arguments:    invocation.Arguments(),
		Result:       result,
		Err:          err,
		Duration:     time.Since(start),
	}
	if a.OnDebug != nil {
		a.OnDebug(event)
	} else {
		a.Logger.Printf("DEBUG invocation[%s] %s.%s args=%v result=%v err=%v duration=%s",
			event.InvocationID, event.TargetType, event.Method, event.Arguments, event.Result, event.Err, event.Duration)
	}
	return result, err
}
