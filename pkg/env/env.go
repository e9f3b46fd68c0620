// Package env provides the identity of the running deserializer.
package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// AppID scopes the machine ID so it isn't exposed as is.
const AppID = "uart2json"

// DefaultDeviceType is the device type used when none is configured.
const DefaultDeviceType = "deserializer"

// DeviceRef identifies a deserializer on shared transports.
type DeviceRef struct {
	Type string `json:"type" yaml:"type"`
	ID   string `json:"id" yaml:"id"`
}

// Name is used as topic prefix, e.g. deserializer/abcd.
func (r DeviceRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid indicates both type and ID are set.
func (r DeviceRef) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// MachineID retrieves an ID unique to this machine, falling back to the
// host name when the platform doesn't provide one.
func MachineID() string {
	id, err := machineid.ProtectedID(AppID)
	if err == nil {
		return id[:16]
	}
	glog.Warningf("machine id unavailable: %v", err)
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "unknown"
}

// LocalDevice returns the DeviceRef of this machine.
func LocalDevice() DeviceRef {
	return DeviceRef{Type: DefaultDeviceType, ID: MachineID()}
}
