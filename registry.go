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

package aspectgo

import (
	"errors"
	"fmt"
	"plugin"
	"sync"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/builtin/advice"
)

// PluginsSymbol is the symbol an advice component plugin must export.
const PluginsSymbol = "Plugins"

// Registry is the default advice component registry.
var Registry = new(AdviceComponentRegistry)

func init() {
	components := []types.AdviceComponent{
		&advice.ScriptAdvice{},
		&advice.DbRecorderAdvice{},
		&advice.MqttPublisherAdvice{},
	}
	for _, component := range components {
		_ = Registry.Register(component)
	}
}

// AdviceComponentRegistry holds advice components by type, including
// components loaded from Go plugins.
type AdviceComponentRegistry struct {
	components map[string]types.AdviceComponent
	plugins    map[string][]types.AdviceComponent
	sync.RWMutex
}

// Register adds an advice component. The component type must be unique.
func (r *AdviceComponentRegistry) Register(component types.AdviceComponent) error {
	r.Lock()
	defer r.Unlock()
	if r.components == nil {
		r.components = make(map[string]types.AdviceComponent)
	}
	if _, ok := r.components[component.Type()]; ok {
		return errors.New("the component already exists. adviceType=" + component.Type())
	}
	r.components[component.Type()] = component
	return nil
}

// RegisterPlugin loads an advice component plugin from file and registers the
// components it provides under the given plugin name.
func (r *AdviceComponentRegistry) RegisterPlugin(name string, file string) error {
	builder := &PluginComponentRegistry{name: name, file: file}
	if err := builder.Init(); err != nil {
		return err
	}
	components := builder.Components()
	for _, component := range components {
		if _, ok := r.components[component.Type()]; ok {
			return errors.New("the component already exists. adviceType=" + component.Type())
		}
	}
	for _, component := range components {
		if err := r.Register(component); err != nil {
			return err
		}
	}

	r.Lock()
	defer r.Unlock()
	if r.plugins == nil {
		r.plugins = make(map[string][]types.AdviceComponent)
	}
	r.plugins[name] = components
	return nil
}

// Unregister removes a plugin (and all its components) or a single component
// by type.
func (r *AdviceComponentRegistry) Unregister(componentType string) error {
	r.Lock()
	defer r.Unlock()
	var removed = false
	if components, ok := r.plugins[componentType]; ok {
		for _, component := range components {
			delete(r.components, component.Type())
		}
		delete(r.plugins, componentType)
		removed = true
	}

	if _, ok := r.components[componentType]; ok {
		delete(r.components, componentType)
		removed = true
	}

	if !removed {
		return fmt.Errorf("component not found.componentType=%s", componentType)
	}
	return nil
}

// NewAdvice creates a configured advice instance of the given component type.
func (r *AdviceComponentRegistry) NewAdvice(adviceType string, config types.Config, configuration types.Configuration) (types.AdviceComponent, error) {
	r.RLock()
	component, ok := r.components[adviceType]
	r.RUnlock()
	if !ok {
		return nil, fmt.Errorf("component not found.componentType=%s", adviceType)
	}
	instance := component.New()
	if err := instance.Init(config, configuration); err != nil {
		return nil, err
	}
	return instance, nil
}

// GetComponents returns a copy of the registered components by type.
func (r *AdviceComponentRegistry) GetComponents() map[string]types.AdviceComponent {
	r.RLock()
	defer r.RUnlock()
	var components = map[string]types.AdviceComponent{}
	for k, v := range r.components {
		components[k] = v
	}
	return components
}

// PluginComponentRegistry initializes advice components from a Go plugin.
type PluginComponentRegistry struct {
	name     string
	file     string
	registry types.PluginRegistry
}

func (p *PluginComponentRegistry) Init() error {
	pluginRegistry, err := loadPlugin(p.file)
	if err != nil {
		return err
	}
	p.registry = pluginRegistry
	return nil
}

func (p *PluginComponentRegistry) Components() []types.AdviceComponent {
	if p.registry != nil {
		return p.registry.Components()
	}
	return nil
}

// loadPlugin opens the plugin file and looks up the exported Plugins symbol.
func loadPlugin(file string) (types.PluginRegistry, error) {
	p, err := plugin.Open(file)
	if err != nil {
		return nil, err
	}
	sym, err := p.Lookup(PluginsSymbol)
	if err != nil {
		return nil, err
	}
	pluginRegistry, ok := sym.(types.PluginRegistry)
	if !ok {
		return nil, errors.New("invalid plugin")
	}
	return pluginRegistry, nil
}
