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

// Package runtime provides utilities for runtime-related operations: caller
// stack traces for diagnostics and the goroutine id used by the
// expose-invocation advice to key its per-goroutine slot.
package runtime

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// Stack returns a formatted stack trace of the current goroutine, excluding
// the frames of this package.
func Stack() string {
	var pc = make([]uintptr, 20)
	n := runtime.Callers(3, pc)

	var build strings.Builder
	for i := 0; i < n; i++ {
		f := runtime.FuncForPC(pc[i] - 1)
		file, line := f.FileLine(pc[i] - 1)
		s := fmt.Sprintf(" %s:%d \n", file[0:], line)
		build.WriteString(s)
	}
	return build.String()
}

var goroutinePrefix = []byte("goroutine ")

// GoroutineID returns the id of the calling goroutine, parsed from the first
// line of its stack header ("goroutine <id> [running]:").
func GoroutineID() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf = bytes.TrimPrefix(buf, goroutinePrefix)
	if i := bytes.IndexByte(buf, ' '); i > 0 {
		id, err := strconv.ParseUint(string(buf[:i]), 10, 64)
		if err == nil {
			return id
		}
	}
	return 0
}
