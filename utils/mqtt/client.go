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

// Package mqtt provides the MQTT client used by the mqttPublisher advice to
// emit invocation trace events to a broker.
//
// It wraps the Paho MQTT library with connection retry, optional TLS and
// authentication, and a minimal publish surface.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/aspectgo/aspectgo/utils/str"
)

// Config holds the MQTT client connection settings.
type Config struct {
	// Server is the mqtt broker address.
	Server string
	// Username for broker authentication.
	Username string
	// Password for broker authentication.
	Password string
	// MaxReconnectInterval is the retry interval after a lost connection.
	MaxReconnectInterval time.Duration
	QOS                  uint8
	CleanSession         bool
	// ClientID identifies this client to the broker. Random when empty.
	ClientID    string
	CAFile      string
	CertFile    string
	CertKeyFile string
}

// Client is an MQTT publishing client.
type Client struct {
	client paho.Client
}

// NewClient creates an MQTT client and connects it, retrying until the
// context is cancelled.
func NewClient(ctx context.Context, conf Config) (*Client, error) {
	b := Client{}

	opts := paho.NewClientOptions()
	opts.AddBroker(conf.Server)
	opts.SetUsername(conf.Username)
	opts.SetPassword(conf.Password)
	opts.SetCleanSession(conf.CleanSession)
	if conf.ClientID == "" {
		opts.SetClientID("aspectgo/" + str.RandomStr(8))
	} else {
		opts.SetClientID(conf.ClientID)
	}
	if conf.MaxReconnectInterval <= 0 {
		conf.MaxReconnectInterval = time.Second * 60
	}
	opts.SetMaxReconnectInterval(conf.MaxReconnectInterval)

	tlsconfig, err := newTLSConfig(conf.CAFile, conf.CertFile, conf.CertKeyFile)
	if err != nil {
		return nil, fmt.Errorf("error loading mqtt certificate files,ca_cert=%s,tls_cert=%s,tls_key=%s", conf.CAFile, conf.CertFile, conf.CertKeyFile)
	}
	if tlsconfig != nil {
		opts.SetTLSConfig(tlsconfig)
	}
	b.client = paho.NewClient(opts)

	for {
		if token := b.client.Connect(); token.Wait() && token.Error() != nil {
			select {
			case <-ctx.Done():
				return nil, token.Error()
			case <-time.After(2 * time.Second):
				// retry
			}
		} else {
			break
		}
	}

	return &b, nil
}

// Publish publishes data to the given topic.
func (b *Client) Publish(topic string, qos byte, data []byte) error {
	if token := b.client.Publish(topic, qos, false, data); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// Close disconnects from the broker.
func (b *Client) Close() error {
	b.client.Disconnect(500)
	return nil
}

func newTLSConfig(caFile, certFile, certKeyFile string) (*tls.Config, error) {
	if caFile == "" && certFile == "" && certKeyFile == "" {
		return nil, nil
	}
	tlsConfig := &tls.Config{}
	if caFile != "" {
		caPem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, err
		}
		certPool := x509.NewCertPool()
		certPool.AppendCertsFromPEM(caPem)
		tlsConfig.RootCAs = certPool
	}
	if certFile != "" && certKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, certKeyFile)
		if err != nil {
			return nil, err
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}
