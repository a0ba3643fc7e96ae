// Package protocol implements the telemetry framing the firmware uses on its
// debug UART. Frames follow the Klipper block layout:
//
//	len | seq | payload... | crc16 hi | crc16 lo | 0x7E
//
// where len counts the whole frame and payload is a sequence of VLQ values.
package protocol

// Version represents the telemetry format version
const Version = "1"

// Frame layout constants
const (
	FrameHeaderSize  = 2
	FrameTrailerSize = 3
	FrameLengthMin   = FrameHeaderSize + FrameTrailerSize
	FrameLengthMax   = 64
	FramePayloadMax  = FrameLengthMax - FrameLengthMin

	FramePositionLen = 0
	FramePositionSeq = 1
	FrameTrailerCRC  = 3
	FrameTrailerSync = 1
	FrameValueSync   = 0x7E

	// Sequence byte: high nibble fixed, low nibble counts frames
	FrameDest    = 0x10
	FrameSeqMask = 0x0F
)
