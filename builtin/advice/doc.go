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

// Package advice provides the built-in advice implementations of AspectGo.
//
// The advices fall in two groups. Infrastructure advices are plain values
// wired programmatically:
//
//   - ExposeAdvisor publishes the in-flight invocation to a goroutine-bound
//     slot readable through CurrentInvocation.
//   - MetricsAdvice maintains atomic invocation counters.
//   - ConcurrencyLimiterAdvice bounds the number of concurrent calls.
//   - DebugAdvice logs call entry and outcome.
//
// Component advices additionally implement types.AdviceComponent so they can
// be registered and configured declaratively:
//
//   - ScriptAdvice runs a JavaScript function around each call.
//   - DbRecorderAdvice writes an audit row per call via database/sql.
//   - MqttPublisherAdvice emits a trace event per call to an MQTT broker.
package advice
