package env

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeviceRef(t *testing.T) {
	ref := DeviceRef{Type: "deserializer", ID: "esp32"}
	require.True(t, ref.IsValid())
	require.Equal(t, "deserializer/esp32", ref.Name())
	require.False(t, DeviceRef{Type: "deserializer"}.IsValid())
}

func TestLocalDevice(t *testing.T) {
	ref := LocalDevice()
	require.Equal(t, DefaultDeviceType, ref.Type)
	require.NotEmpty(t, ref.ID)
	require.Equal(t, ref.ID, MachineID(), "machine id must be stable")
}
