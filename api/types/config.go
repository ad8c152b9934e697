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

import (
	"reflect"
	"time"
)

const (
	// Js script type for Udf entries executed by the script advice.
	Js = "Js"
	// ScriptFuncSeparator joins script type and function name in the Udf map.
	ScriptFuncSeparator = "#"
)

// Script is a named script registered through Config.RegisterUdf. Content is
// either source text or a precompiled program.
type Script struct {
	// Type is the script engine type, e.g. Js.
	Type string
	// Content is the script source or a precompiled program.
	Content interface{}
}

// Config defines the configuration shared by proxies and advice components.
type Config struct {
	// Logger is the logging interface, defaulting to DefaultLogger().
	Logger Logger
	// Properties are global properties in key-value format, available to
	// script advices through the `global` variable.
	Properties map[string]string
	// Udf is a map for registering custom Golang functions and native scripts
	// callable at runtime by script engines.
	Udf map[string]interface{}
	// ScriptMaxExecutionTime is the maximum execution time for script advices,
	// defaulting to 2000 milliseconds.
	ScriptMaxExecutionTime time.Duration
	// ExposeInvocation makes every proxy prepend the expose-invocation advisor
	// so that advices and runtime matchers can access the in-flight invocation
	// through the thread-bound accessor.
	ExposeInvocation bool
	// RawAccessTypes lists target types exempted from proxy identity
	// substitution: calls on them that return the target reference keep it.
	RawAccessTypes []reflect.Type
	// Cache, when set, is used by proxies to cache built advice chains per
	// (method, target type). Chains are rebuilt on advisor-set changes.
	Cache Cache
}

// RegisterUdf registers a custom function. Function names can be repeated for
// different script types.
func (c *Config) RegisterUdf(name string, value interface{}) {
	if c.Udf == nil {
		c.Udf = make(map[string]interface{})
	}
	if script, ok := value.(Script); ok {
		// Resolve function name conflicts for different script types.
		name = script.Type + ScriptFuncSeparator + name
	}
	c.Udf[name] = value
}

// IsRawAccess reports whether the given target type is exempted from proxy
// identity substitution.
func (c *Config) IsRawAccess(targetType reflect.Type) bool {
	for _, t := range c.RawAccessTypes {
		if t == targetType {
			return true
		}
	}
	return false
}

// NewConfig creates a new Config with default values and applies the provided
// options.
func NewConfig(opts ...Option) Config {
	c := &Config{
		ScriptMaxExecutionTime: time.Millisecond * 2000,
		Logger:                 DefaultLogger(),
		Properties:             make(map[string]string),
	}

	for _, opt := range opts {
		_ = opt(c)
	}
	return *c
}
