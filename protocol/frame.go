package protocol

import (
	"errors"
	"io"
)

var (
	ErrFrameTooLarge = errors.New("frame payload too large")
)

// Encoder writes frames to an underlying writer, numbering them with a
// rolling 4-bit sequence
type Encoder struct {
	w       io.Writer
	seq     uint8
	scratch ScratchOutput
}

// NewEncoder creates an Encoder writing to w
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteFrame builds one frame from the payload written by fill and sends it
// in a single Write call
func (e *Encoder) WriteFrame(fill func(output OutputBuffer)) error {
	out := &e.scratch
	out.Reset()

	// Length placeholder, patched once the payload is known
	seq := FrameDest | (e.seq & FrameSeqMask)
	out.Output([]byte{0, seq})
	fill(out)

	frameLen := out.CurPosition() + FrameTrailerSize
	if out.Overflowed() || frameLen > FrameLengthMax {
		return ErrFrameTooLarge
	}
	out.Update(FramePositionLen, uint8(frameLen))

	crc := CRC16(out.Result())
	out.Output([]byte{
		uint8((crc & 0xFF00) >> 8),
		uint8(crc & 0xFF),
		FrameValueSync,
	})

	if _, err := e.w.Write(out.Result()); err != nil {
		return err
	}
	e.seq++
	return nil
}

// FrameHandler receives the sequence byte and payload of each valid frame.
// The payload aliases the input buffer and is only valid during the call.
type FrameHandler func(seq uint8, payload []byte)

// Decoder extracts frames from a byte stream. A bad length, sequence, sync
// or CRC drops the decoder out of sync; it then discards input up to the
// next sync byte.
type Decoder struct {
	synchronized bool

	// Dropped counts frames rejected since creation
	Dropped uint32
}

// NewDecoder creates a Decoder that starts in sync
func NewDecoder() *Decoder {
	return &Decoder{synchronized: true}
}

// Decode hands every complete frame in input to handler and pops the bytes
// it consumed. An incomplete trailing frame is left in input.
func (d *Decoder) Decode(input InputBuffer, handler FrameHandler) {
	data := input.Data()

	for len(data) > 0 {
		if !d.synchronized {
			syncPos := -1
			for i, b := range data {
				if b == FrameValueSync {
					syncPos = i
					break
				}
			}
			if syncPos < 0 {
				data = nil
				break
			}
			data = data[syncPos+1:]
			d.synchronized = true
			continue
		}

		// Skip idle sync bytes between frames
		if data[0] == FrameValueSync {
			data = data[1:]
			continue
		}

		if len(data) < FrameLengthMin {
			break
		}

		frameLen := int(data[FramePositionLen])
		if frameLen < FrameLengthMin || frameLen > FrameLengthMax {
			d.desync()
			continue
		}

		seq := data[FramePositionSeq]
		if seq&^FrameSeqMask != FrameDest {
			d.desync()
			continue
		}

		if len(data) < frameLen {
			break
		}

		if data[frameLen-FrameTrailerSync] != FrameValueSync {
			d.desync()
			continue
		}

		frameCRC := uint16(data[frameLen-FrameTrailerCRC])<<8 |
			uint16(data[frameLen-FrameTrailerCRC+1])
		if frameCRC != CRC16(data[:frameLen-FrameTrailerSize]) {
			d.desync()
			continue
		}

		handler(seq, data[FrameHeaderSize:frameLen-FrameTrailerSize])
		data = data[frameLen:]
	}

	consumed := input.Available() - len(data)
	if consumed > 0 {
		input.Pop(consumed)
	}
}

func (d *Decoder) desync() {
	d.synchronized = false
	d.Dropped++
}
