// Package uart models a UART peripheral on top of a host serial device.
package uart

// The driver side (Port.Run) pumps bytes from the device into a bounded
// RX buffer and reports what happened through an EventQueue, the same
// way a UART driver reports from interrupt context. The consumer side
// drains events and pulls bytes with Port.Read.
//
// Producer: Port.Run (driver goroutine)
// Consumer: ingest.Loop (worker goroutine)
