package uart

import (
	"io"
	"time"

	"github.com/golang/glog"
	"github.com/tarm/serial"
)

// settleDelay lets the line settle after the device is opened.
var settleDelay = 100 * time.Millisecond

var openDevice = func(s Settings) (io.ReadWriteCloser, error) {
	parity := serial.ParityNone
	switch s.Parity {
	case ParityOdd:
		parity = serial.ParityOdd
	case ParityEven:
		parity = serial.ParityEven
	}
	return serial.OpenPort(&serial.Config{
		Name:        s.Name,
		Baud:        s.BaudRate,
		ReadTimeout: s.ReadTimeout,
		Size:        8,
		Parity:      parity,
		StopBits:    serial.Stop1,
	})
}

// Configure validates settings and opens the device.
// Any failure is an *InitError and the caller is expected not to retry.
func Configure(settings Settings) (*Port, error) {
	settings = settings.WithDefaults()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	dev, err := openDevice(settings)
	if err != nil {
		return nil, &InitError{Port: settings.Name, Stage: StageDriverInstall, Err: err}
	}
	if settleDelay > 0 {
		time.Sleep(settleDelay)
	}
	glog.Infof("Uart initialized on port %s with TX pin %d, RX pin %d at baud rate %d",
		settings.Name, settings.TxPin, settings.RxPin, settings.BaudRate)
	return NewPort(dev, settings), nil
}
