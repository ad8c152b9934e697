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

// Cache defines the interface for cache storage with expiration support.
// Implementations must be safe for concurrent use. Within this runtime the
// cache is an optional layer above the chain builder: it may speed up chain
// lookup but never changes which entries a build produces.
type Cache interface {
	// Set stores a key-value pair with an optional ttl duration string
	// (e.g. "10m", "1h"). A zero or empty ttl means the item never expires.
	// Returns an error if the ttl format is invalid.
	Set(key string, value interface{}, ttl string) error
	// Get retrieves the value stored under key, or nil if absent or expired.
	Get(key string) interface{}
	// Has reports whether key exists and has not expired.
	Has(key string) bool
	// Delete removes the item stored under key.
	Delete(key string) error
	// DeleteByPrefix removes all items whose keys start with prefix.
	DeleteByPrefix(prefix string) error
}
