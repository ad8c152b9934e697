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

// Option is a function type that modifies the Config.
type Option func(*Config) error

// WithLogger is an option that sets the logger of the Config.
func WithLogger(logger Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithProperties is an option that sets the global properties of the Config.
func WithProperties(properties map[string]string) Option {
	return func(c *Config) error {
		c.Properties = properties
		return nil
	}
}

// WithScriptMaxExecutionTime is an option that sets the maximum execution time
// for script advices.
func WithScriptMaxExecutionTime(d time.Duration) Option {
	return func(c *Config) error {
		c.ScriptMaxExecutionTime = d
		return nil
	}
}

// WithExposeInvocation is an option that makes proxies publish the in-flight
// invocation to the thread-bound accessor.
func WithExposeInvocation() Option {
	return func(c *Config) error {
		c.ExposeInvocation = true
		return nil
	}
}

// WithRawAccess is an option that exempts the types of the given values from
// proxy identity substitution.
func WithRawAccess(targets ...interface{}) Option {
	return func(c *Config) error {
		for _, target := range targets {
			if t, ok := target.(reflect.Type); ok {
				c.RawAccessTypes = append(c.RawAccessTypes, t)
			} else {
				c.RawAccessTypes = append(c.RawAccessTypes, reflect.TypeOf(target))
			}
		}
		return nil
	}
}

// WithCache is an option that sets the chain cache of the Config.
func WithCache(cache Cache) Option {
	return func(c *Config) error {
		c.Cache = cache
		return nil
	}
}
