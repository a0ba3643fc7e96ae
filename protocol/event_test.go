package protocol

import (
	"bytes"
	"strings"
	"testing"
)

func encodeEvent(e *Event) []byte {
	output := NewScratchOutput()
	e.Encode(output)
	return append([]byte(nil), output.Result()...)
}

func TestEventTransfer(t *testing.T) {
	payload := encodeEvent(&Event{Kind: EventTransfer, Clock: 3999999, TX: 188, RX: 0x5A})

	e, err := DecodeEvent(payload)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if e.Kind != EventTransfer || e.Clock != 3999999 || e.TX != 188 || e.RX != 0x5A {
		t.Errorf("Unexpected event: %+v", e)
	}
}

func TestEventTimeoutHasNoRX(t *testing.T) {
	timeout := encodeEvent(&Event{Kind: EventTimeout, Clock: 10, TX: 189, RX: 0xFF})
	transfer := encodeEvent(&Event{Kind: EventTransfer, Clock: 10, TX: 189, RX: 0xFF})
	if len(timeout) >= len(transfer) {
		t.Errorf("Timeout payload should omit rx: %v vs %v", timeout, transfer)
	}

	e, err := DecodeEvent(timeout)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if e.RX != 0 || e.TX != 189 {
		t.Errorf("Unexpected event: %+v", e)
	}
}

func TestEventConfig(t *testing.T) {
	payload := encodeEvent(&Event{Kind: EventConfig, Policy: "software", CR1: 0x32F, CR2: 0xF00})

	e, err := DecodeEvent(payload)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if e.Policy != "software" || e.CR1 != 0x32F || e.CR2 != 0xF00 {
		t.Errorf("Unexpected event: %+v", e)
	}
}

func TestEventLogTruncated(t *testing.T) {
	long := strings.Repeat("x", 100)

	var wire bytes.Buffer
	enc := NewEncoder(&wire)
	if err := enc.WriteEvent(&Event{Kind: EventLog, Text: long}); err != nil {
		t.Fatalf("WriteEvent failed: %v", err)
	}

	var payloads [][]byte
	NewDecoder().Decode(NewSliceInputBuffer(wire.Bytes()), func(seq uint8, payload []byte) {
		payloads = append(payloads, append([]byte(nil), payload...))
	})
	if len(payloads) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(payloads))
	}

	e, err := DecodeEvent(payloads[0])
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if len(e.Text) != MaxLogText {
		t.Errorf("Expected text cut to %d, got %d", MaxLogText, len(e.Text))
	}
}

func TestDecodeEventErrors(t *testing.T) {
	if _, err := DecodeEvent([]byte{99}); err != ErrUnknownEvent {
		t.Errorf("Expected ErrUnknownEvent, got %v", err)
	}
	if _, err := DecodeEvent(nil); err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall for empty payload, got %v", err)
	}

	// Transfer missing its rx byte
	short := encodeEvent(&Event{Kind: EventTimeout, Clock: 1, TX: 2})
	short[0] = byte(EventTransfer)
	if _, err := DecodeEvent(short); err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall for short transfer, got %v", err)
	}
}
