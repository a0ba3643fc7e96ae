package protocol

import "errors"

// EventKind identifies the record carried in a frame payload
type EventKind uint8

const (
	EventLog      EventKind = 1 // text=%s
	EventConfig   EventKind = 2 // policy=%s cr1=%u cr2=%u
	EventTransfer EventKind = 3 // clock=%u tx=%c rx=%c
	EventTimeout  EventKind = 4 // clock=%u tx=%c
)

var ErrUnknownEvent = errors.New("unknown event kind")

// Event is one telemetry record. Only the fields listed for its kind are
// encoded.
type Event struct {
	Kind   EventKind
	Clock  uint32
	TX     byte
	RX     byte
	Policy string
	CR1    uint32
	CR2    uint32
	Text   string
}

// MaxLogText is the longest log text that still fits in one frame
const MaxLogText = FramePayloadMax - 2

// Encode writes the event payload. Log text longer than MaxLogText is cut.
func (e *Event) Encode(output OutputBuffer) {
	EncodeVLQUint(output, uint32(e.Kind))
	switch e.Kind {
	case EventLog:
		text := e.Text
		if len(text) > MaxLogText {
			text = text[:MaxLogText]
		}
		EncodeVLQString(output, text)
	case EventConfig:
		EncodeVLQString(output, e.Policy)
		EncodeVLQUint(output, e.CR1)
		EncodeVLQUint(output, e.CR2)
	case EventTransfer:
		EncodeVLQUint(output, e.Clock)
		EncodeVLQUint(output, uint32(e.TX))
		EncodeVLQUint(output, uint32(e.RX))
	case EventTimeout:
		EncodeVLQUint(output, e.Clock)
		EncodeVLQUint(output, uint32(e.TX))
	}
}

// DecodeEvent parses one frame payload
func DecodeEvent(payload []byte) (Event, error) {
	data := payload
	var e Event

	kind, err := DecodeVLQUint(&data)
	if err != nil {
		return e, err
	}
	e.Kind = EventKind(kind)

	switch e.Kind {
	case EventLog:
		e.Text, err = DecodeVLQString(&data)
	case EventConfig:
		if e.Policy, err = DecodeVLQString(&data); err != nil {
			return e, err
		}
		if e.CR1, err = DecodeVLQUint(&data); err != nil {
			return e, err
		}
		e.CR2, err = DecodeVLQUint(&data)
	case EventTransfer, EventTimeout:
		if e.Clock, err = DecodeVLQUint(&data); err != nil {
			return e, err
		}
		var tx uint32
		if tx, err = DecodeVLQUint(&data); err != nil {
			return e, err
		}
		e.TX = byte(tx)
		if e.Kind == EventTransfer {
			var rx uint32
			rx, err = DecodeVLQUint(&data)
			e.RX = byte(rx)
		}
	default:
		return e, ErrUnknownEvent
	}
	return e, err
}

// WriteEvent encodes e as one frame
func (enc *Encoder) WriteEvent(e *Event) error {
	return enc.WriteFrame(e.Encode)
}
