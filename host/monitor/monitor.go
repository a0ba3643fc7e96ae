// Package monitor decodes the telemetry stream the firmware writes to its
// debug UART.
package monitor

import (
	"fmt"
	"io"
	"stm32spi/protocol"
)

// Handler receives every decoded event
type Handler func(e protocol.Event)

// Monitor turns a byte stream into telemetry events. It keeps partial
// frames between reads and is not safe for concurrent use.
type Monitor struct {
	input   *protocol.FifoBuffer
	decoder *protocol.Decoder

	// BadEvents counts frames whose payload was not a known event
	BadEvents uint32
}

// New creates a Monitor
func New() *Monitor {
	return &Monitor{
		input:   protocol.NewFifoBuffer(512),
		decoder: protocol.NewDecoder(),
	}
}

// Dropped returns the number of frames rejected for bad length, sequence,
// sync or CRC
func (m *Monitor) Dropped() uint32 {
	return m.decoder.Dropped
}

// Feed consumes data and calls fn for every complete event in it
func (m *Monitor) Feed(data []byte, fn Handler) {
	dispatch := func(seq uint8, payload []byte) {
		e, err := protocol.DecodeEvent(payload)
		if err != nil {
			m.BadEvents++
			return
		}
		fn(e)
	}

	// The FIFO holds far more than one frame, so every pass frees space
	for len(data) > 0 {
		n := m.input.Write(data)
		data = data[n:]
		m.decoder.Decode(m.input, dispatch)
	}
}

// Run reads r until it returns an error and feeds everything read. io.EOF
// ends the run without an error.
func (m *Monitor) Run(r io.Reader, fn Handler) error {
	buffer := make([]byte, 256)
	for {
		n, err := r.Read(buffer)
		if n > 0 {
			m.Feed(buffer[:n], fn)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read telemetry: %w", err)
		}
	}
}

// Format renders an event as one line of text
func Format(e protocol.Event) string {
	switch e.Kind {
	case protocol.EventLog:
		return "log: " + e.Text
	case protocol.EventConfig:
		return fmt.Sprintf("config: policy=%s cr1=0x%04X cr2=0x%04X", e.Policy, e.CR1, e.CR2)
	case protocol.EventTransfer:
		return fmt.Sprintf("transfer: clock=%d tx=0x%02X rx=0x%02X", e.Clock, e.TX, e.RX)
	case protocol.EventTimeout:
		return fmt.Sprintf("timeout: clock=%d tx=0x%02X", e.Clock, e.TX)
	}
	return fmt.Sprintf("unknown event %d", e.Kind)
}
