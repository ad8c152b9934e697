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
	"fmt"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/utils/js"
	"github.com/aspectgo/aspectgo/utils/maps"
)

// ScriptFuncName is the JavaScript function the script body is wrapped into.
const ScriptFuncName = "OnInvoke"

// ScriptAdviceConfiguration configures the script advice.
type ScriptAdviceConfiguration struct {
	// Script is the JavaScript body of
	// function OnInvoke(method, args) { ... }.
	//
	// The return value controls the call:
	//   true            proceed unchanged
	//   false           short-circuit with a nil result
	//   {args: [...]}   replace the arguments, then proceed
	//   {result: x}     short-circuit with result x
	Script string
}

// ScriptAdvice runs a JavaScript function around each intercepted call. The
// script decides whether the call proceeds and may rewrite arguments or
// supply the result itself.
type ScriptAdvice struct {
	Config ScriptAdviceConfiguration

	jsEngine *js.GojaJsEngine
}

var _ types.AdviceComponent = (*ScriptAdvice)(nil)

func (x *ScriptAdvice) Type() string {
	return "script"
}

func (x *ScriptAdvice) New() types.AdviceComponent {
	return &ScriptAdvice{Config: ScriptAdviceConfiguration{
		Script: "return true;",
	}}
}

func (x *ScriptAdvice) Init(config types.Config, configuration types.Configuration) error {
	err := maps.Map2Struct(configuration, &x.Config)
	if err != nil {
		return err
	}
	if x.Config.Script == "" {
		return errors.New("script can not be empty")
	}
	jsScript := fmt.Sprintf("function %s(method, args) { %s }", ScriptFuncName, x.Config.Script)
	x.jsEngine, err = js.NewGojaJsEngine(config, jsScript, nil)
	return err
}

func (x *ScriptAdvice) Invoke(invocation types.Invocation) (interface{}, error) {
	out, err := x.jsEngine.Execute(ScriptFuncName, invocation.Method().Name, invocation.Arguments())
	if err != nil {
		return nil, err
	}
	switch decision := out.(type) {
	case bool:
		if decision {
			return invocation.Proceed()
		}
		return nil, nil
	case map[string]interface{}:
		if result, ok := decision["result"]; ok {
			return result, nil
		}
		if args, ok := decision["args"].([]interface{}); ok {
			invocation.SetArguments(args)
			return invocation.Proceed()
		}
		return nil, fmt.Errorf("script returned object without result or args: %v", decision)
	case nil:
		return invocation.Proceed()
	default:
		return nil, fmt.Errorf("script returned unsupported decision type %T", out)
	}
}

func (x *ScriptAdvice) Destroy() {
	if x.jsEngine != nil {
		x.jsEngine.Stop()
	}
}
