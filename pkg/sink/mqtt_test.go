package sink

import (
	"encoding/json"
	"testing"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/uart2json/pkg/env"
)

func TestMQTTSink(t *testing.T) {
	device := env.DeviceRef{Type: "deserializer", ID: "dev1"}
	s, err := NewMQTT("mqtt://localhost:1883/lab/", device, DeviceMeta{Port: "/dev/ttyUSB0", BaudRate: 9600})
	require.NoError(t, err)
	require.Equal(t, "lab/", s.Queue.TopicPrefix)
	require.Equal(t, "deserializer/dev1/json", s.topic(TopicJSON))

	var meta DeviceMeta
	require.NoError(t, json.Unmarshal(s.metaJSON, &meta))
	require.Equal(t, 9600, meta.BaudRate)

	err = s.Emit(`{"timestamp":1,"data":"a"}`, 26)
	require.ErrorIs(t, err, paho.ErrNotConnected, "best effort while disconnected")
}

func TestMQTTSinkBadURL(t *testing.T) {
	_, err := NewMQTT("mqtt://bad host/", env.DeviceRef{Type: "t", ID: "i"}, DeviceMeta{})
	require.Error(t, err)
}
