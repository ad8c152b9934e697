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
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/aspectgo/aspectgo/api/types"
	"github.com/aspectgo/aspectgo/utils/json"
	"github.com/aspectgo/aspectgo/utils/maps"
	"github.com/aspectgo/aspectgo/utils/mqtt"
)

// MqttPublisherConfiguration configures the invocation trace publisher.
type MqttPublisherConfiguration struct {
	// Topic to publish trace events to. ${methodName} is replaced by the
	// intercepted method name.
	Topic string
	// Server is the mqtt broker address.
	Server   string
	Username string
	Password string
	// MaxReconnectInterval is the reconnect interval in seconds.
	MaxReconnectInterval int
	QOS                  uint8
	CleanSession         bool
	ClientID             string
	CAFile               string
	CertFile             string
	CertKeyFile          string
	// ConnectTimeout bounds the initial broker connection, in seconds.
	ConnectTimeout int
}

// traceEvent is the published payload, one per intercepted call.
type traceEvent struct {
	InvocationID string `json:"invocationId"`
	TargetType   string `json:"targetType"`
	Method       string `json:"method"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
	DurationMs   int64  `json:"durationMs"`
	Timestamp    int64  `json:"ts"`
}

// MqttPublisherAdvice emits one trace event per intercepted call to an MQTT
// broker. Publishing is best effort and never changes the call outcome.
type MqttPublisherAdvice struct {
	Config MqttPublisherConfiguration

	logger types.Logger
	client *mqtt.Client
	locker sync.Mutex
}

var _ types.AdviceComponent = (*MqttPublisherAdvice)(nil)

func (x *MqttPublisherAdvice) Type() string {
	return "mqttPublisher"
}

func (x *MqttPublisherAdvice) New() types.AdviceComponent {
	return &MqttPublisherAdvice{Config: MqttPublisherConfiguration{
		Topic:          "aspectgo/trace/${methodName}",
		Server:         "127.0.0.1:1883",
		QOS:            0,
		ConnectTimeout: 10,
	}}
}

func (x *MqttPublisherAdvice) Init(config types.Config, configuration types.Configuration) error {
	err := maps.Map2Struct(configuration, &x.Config)
	if err != nil {
		return err
	}
	if x.Config.Server == "" {
		return errors.New("server can not be empty")
	}
	if x.Config.Topic == "" {
		return errors.New("topic can not be empty")
	}
	x.logger = config.Logger
	if x.logger == nil {
		x.logger = types.DefaultLogger()
	}
	_, err = x.initClient()
	return err
}

func (x *MqttPublisherAdvice) Invoke(invocation types.Invocation) (interface{}, error) {
	start := time.Now()
	result, err := invocation.Proceed()
	x.publish(invocation, err, time.Since(start))
	return result, err
}

func (x *MqttPublisherAdvice) publish(invocation types.Invocation, callErr error, duration time.Duration) {
	client, err := x.initClient()
	if err != nil {
		x.logger.Printf("mqttPublisher: no broker client: %v", err)
		return
	}
	event := traceEvent{
		InvocationID: invocation.ID(),
		TargetType:   invocation.TargetType().String(),
		Method:       invocation.Method().Name,
		Success:      callErr == nil,
		DurationMs:   duration.Milliseconds(),
		Timestamp:    time.Now().UnixMilli(),
	}
	if callErr != nil {
		event.Error = callErr.Error()
	}
	data, err := json.Marshal(event)
	if err != nil {
		x.logger.Printf("mqttPublisher: marshal trace event failed: %v", err)
		return
	}
	topic := strings.Replace(x.Config.Topic, "${methodName}", invocation.Method().Name, -1)
	if err = client.Publish(topic, x.Config.QOS, data); err != nil {
		x.logger.Printf("mqttPublisher: publish to %s failed: %v", topic, err)
	}
}

func (x *MqttPublisherAdvice) Destroy() {
	if x.client != nil {
		_ = x.client.Close()
	}
}

func (x *MqttPublisherAdvice) initClient() (*mqtt.Client, error) {
	if x.client != nil {
		return x.client, nil
	}
	x.locker.Lock()
	defer x.locker.Unlock()
	if x.client != nil {
		return x.client, nil
	}
	timeout := x.Config.ConnectTimeout
	if timeout <= 0 {
		timeout = 10
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()
	client, err := mqtt.NewClient(ctx, mqtt.Config{
		Server:               x.Config.Server,
		Username:             x.Config.Username,
		Password:             x.Config.Password,
		MaxReconnectInterval: time.Duration(x.Config.MaxReconnectInterval) * time.Second,
		QOS:                  x.Config.QOS,
		CleanSession:         x.Config.CleanSession,
		ClientID:             x.Config.ClientID,
		CAFile:               x.Config.CAFile,
		CertFile:             x.Config.CertFile,
		CertKeyFile:          x.Config.CertKeyFile,
	})
	if err != nil {
		return nil, err
	}
	x.client = client
	return x.client, nil
}
