package core

import (
	"io"
	"stm32spi/protocol"
)

// Reporter receives what the poll loop observes on the bus
type Reporter interface {
	ReportConfig(policy string, cr1, cr2 uint32) error
	ReportTransfer(clock uint32, tx, rx byte) error
	ReportTimeout(clock uint32, tx byte) error

	// Log has the DebugWriter signature so it can be installed with
	// SetDebugWriter
	Log(msg string)
}

// FrameReporter sends every report as one telemetry frame
type FrameReporter struct {
	enc *protocol.Encoder
}

var _ Reporter = (*FrameReporter)(nil)

// NewFrameReporter creates a FrameReporter writing frames to w, typically
// the debug UART
func NewFrameReporter(w io.Writer) *FrameReporter {
	return &FrameReporter{enc: protocol.NewEncoder(w)}
}

func (r *FrameReporter) ReportConfig(policy string, cr1, cr2 uint32) error {
	return r.enc.WriteEvent(&protocol.Event{
		Kind:   protocol.EventConfig,
		Policy: policy,
		CR1:    cr1,
		CR2:    cr2,
	})
}

func (r *FrameReporter) ReportTransfer(clock uint32, tx, rx byte) error {
	return r.enc.WriteEvent(&protocol.Event{
		Kind:  protocol.EventTransfer,
		Clock: clock,
		TX:    tx,
		RX:    rx,
	})
}

func (r *FrameReporter) ReportTimeout(clock uint32, tx byte) error {
	return r.enc.WriteEvent(&protocol.Event{
		Kind:  protocol.EventTimeout,
		Clock: clock,
		TX:    tx,
	})
}

// Log sends msg as a log frame. Text beyond one frame is cut and write
// errors are dropped; there is nowhere else to report them.
func (r *FrameReporter) Log(msg string) {
	_ = r.enc.WriteEvent(&protocol.Event{
		Kind: protocol.EventLog,
		Text: msg,
	})
}
