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

package engine

import (
	"errors"
	"reflect"
	"sync"

	"github.com/aspectgo/aspectgo/api/types"
)

var (
	_ types.TargetSource = (*SingletonTargetSource)(nil)
	_ types.TargetSource = (*PrototypeTargetSource)(nil)
	_ types.TargetSource = (*HotSwappableTargetSource)(nil)
)

// SingletonTargetSource serves one fixed target instance. It is static: the
// dispatcher may hold the instance without releasing it.
type SingletonTargetSource struct {
	target interface{}
}

// NewSingletonTargetSource wraps a fixed target instance.
func NewSingletonTargetSource(target interface{}) *SingletonTargetSource {
	return &SingletonTargetSource{target: target}
}

func (s *SingletonTargetSource) TargetType() reflect.Type {
	return reflect.TypeOf(s.target)
}

func (s *SingletonTargetSource) IsStatic() bool {
	return true
}

func (s *SingletonTargetSource) GetTarget() (interface{}, error) {
	return s.target, nil
}

func (s *SingletonTargetSource) ReleaseTarget(target interface{}) error {
	return nil
}

// PrototypeTargetSource creates a fresh target for every call and releases it
// afterwards via the optional release hook.
type PrototypeTargetSource struct {
	targetType reflect.Type
	factory    func() (interface{}, error)
	release    func(target interface{}) error
}

// NewPrototypeTargetSource builds a per-call target source from a factory.
// The release hook may be nil.
func NewPrototypeTargetSource(targetType reflect.Type, factory func() (interface{}, error), release func(target interface{}) error) *PrototypeTargetSource {
	return &PrototypeTargetSource{
		targetType: targetType,
		factory:    factory,
		release:    release,
	}
}

func (s *PrototypeTargetSource) TargetType() reflect.Type {
	return s.targetType
}

func (s *PrototypeTargetSource) IsStatic() bool {
	return false
}

func (s *PrototypeTargetSource) GetTarget() (interface{}, error) {
	if s.factory == nil {
		return nil, errors.New("prototype target source has no factory")
	}
	return s.factory()
}

func (s *PrototypeTargetSource) ReleaseTarget(target interface{}) error {
	if s.release == nil {
		return nil
	}
	return s.release(target)
}

// HotSwappableTargetSource serves a target that can be replaced at runtime.
// Calls in flight keep the instance they obtained; subsequent calls see the
// replacement.
type HotSwappableTargetSource struct {
	mu     sync.RWMutex
	target interface{}
}

// NewHotSwappableTargetSource wraps an initial target instance.
func NewHotSwappableTargetSource(target interface{}) *HotSwappableTargetSource {
	return &HotSwappableTargetSource{target: target}
}

func (s *HotSwappableTargetSource) TargetType() reflect.Type {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return reflect.TypeOf(s.target)
}

func (s *HotSwappableTargetSource) IsStatic() bool {
	return false
}

func (s *HotSwappableTargetSource) GetTarget() (interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target, nil
}

func (s *HotSwappableTargetSource) ReleaseTarget(target interface{}) error {
	return nil
}

// Swap replaces the current target with newTarget and returns the old one.
// The replacement must be of the same type as the current target.
func (s *HotSwappableTargetSource) Swap(newTarget interface{}) (interface{}, error) {
	if newTarget == nil {
		return nil, errors.New("cannot swap to nil target")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if reflect.TypeOf(newTarget) != reflect.TypeOf(s.target) {
		return nil, errors.New("cannot swap to target of different type")
	}
	old := s.target
	s.target = newTarget
	return old, nil
}
