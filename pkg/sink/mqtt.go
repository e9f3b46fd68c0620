package sink

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/uart2json/pkg/env"
	"github.com/robotalks/uart2json/pkg/mqtt"
)

// ErrPublishTimeout indicates the broker didn't take a line in time.
var ErrPublishTimeout = errors.New("publish timeout")

// DefaultPublishTimeout bounds how long Emit blocks the loop.
const DefaultPublishTimeout = 100 * time.Millisecond

// DeviceMeta is published retained on <device>/meta while connected.
type DeviceMeta struct {
	Description string            `json:"description,omitempty"`
	Port        string            `json:"port,omitempty"`
	BaudRate    int               `json:"baud_rate,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// Topic suffixes under <type>/<id>/.
const (
	TopicJSON = "json"
	TopicMeta = "meta"
)

// MQTT publishes lines to <prefix><type>/<id>/json.
type MQTT struct {
	Queue          *mqtt.Queue
	Device         env.DeviceRef
	PublishTimeout time.Duration

	metaJSON []byte
}

// NewMQTT creates an MQTT sink. It connects when Run starts.
func NewMQTT(brokerURL string, device env.DeviceRef, meta DeviceMeta) (*MQTT, error) {
	metaJSON, err := json.Marshal(&meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := mqtt.ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+device.Name()+"/"+TopicMeta, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID(env.AppID + ":" + device.Name())
	}
	s := &MQTT{
		Queue:          mqtt.NewQueue(opts, topicPrefix),
		Device:         device,
		PublishTimeout: DefaultPublishTimeout,
		metaJSON:       metaJSON,
	}
	s.Queue.OnConnect = func(q *mqtt.Queue) {
		q.PubWith(s.topic(TopicMeta), s.metaJSON, 1, true)
	}
	return s, nil
}

func (s *MQTT) topic(suffix string) string {
	return s.Device.Name() + "/" + suffix
}

// Name implements framework.Named.
func (s *MQTT) Name() string {
	return "mqtt-sink"
}

// Emit implements Sink.
func (s *MQTT) Emit(line string, size int) error {
	token := s.Queue.Pub(s.topic(TopicJSON), []byte(line))
	if !token.WaitTimeout(s.PublishTimeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}

// Run implements framework.Runnable.
func (s *MQTT) Run(ctx context.Context) error {
	s.Queue.Connect()
	<-ctx.Done()
	token := s.Queue.PubWith(s.topic(TopicMeta), nil, 1, true)
	if !token.WaitTimeout(time.Second) {
		glog.Warning("clear device meta: timeout")
	}
	return s.Queue.Close()
}
