package sim

import (
	"io"
	"stm32spi/core"
)

// USART models USART1. Bytes written to TDR while the transmitter is
// enabled go to Output; bytes given to Feed are returned through RDR.
type USART struct {
	CR1 core.MemRegister
	CR2 core.MemRegister
	CR3 core.MemRegister
	BRR core.MemRegister
	ISR usartStatus
	RDR usartReceive
	TDR usartTransmit

	Output io.Writer

	input []byte
}

// NewUSART creates a USART model writing to out
func NewUSART(out io.Writer) *USART {
	u := &USART{Output: out}
	u.ISR.usart = u
	u.RDR.usart = u
	u.TDR.usart = u
	return u
}

// Registers returns the USART as a core register block
func (u *USART) Registers() *core.UARTRegisters {
	return &core.UARTRegisters{
		CR1: &u.CR1,
		CR2: &u.CR2,
		CR3: &u.CR3,
		BRR: &u.BRR,
		ISR: &u.ISR,
		RDR: &u.RDR,
		TDR: &u.TDR,
	}
}

// Feed queues bytes for the receiver
func (u *USART) Feed(data []byte) {
	u.input = append(u.input, data...)
}

func (u *USART) transmitting() bool {
	const on = core.USART_CR1_UE | core.USART_CR1_TE
	return u.CR1.Reg&on == on
}

func (u *USART) status() uint32 {
	bits := uint32(core.USART_ISR_TXE)
	if len(u.input) > 0 && u.CR1.HasBits(core.USART_CR1_RE) {
		bits |= core.USART_ISR_RXNE
	}
	return bits
}

type usartStatus struct {
	usart *USART
}

func (r *usartStatus) Get() uint32               { return r.usart.status() }
func (r *usartStatus) Set(uint32)                {}
func (r *usartStatus) SetBits(uint32)            {}
func (r *usartStatus) ClearBits(uint32)          {}
func (r *usartStatus) HasBits(value uint32) bool { return r.usart.status()&value != 0 }

type usartReceive struct {
	usart *USART
}

func (r *usartReceive) Get() uint32 {
	u := r.usart
	if len(u.input) == 0 {
		return 0
	}
	b := u.input[0]
	u.input = u.input[1:]
	return uint32(b)
}

func (r *usartReceive) Set(uint32)                {}
func (r *usartReceive) SetBits(uint32)            {}
func (r *usartReceive) ClearBits(uint32)          {}
func (r *usartReceive) HasBits(value uint32) bool { return false }

type usartTransmit struct {
	usart *USART
}

func (r *usartTransmit) Set(value uint32) {
	u := r.usart
	if u.transmitting() && u.Output != nil {
		u.Output.Write([]byte{byte(value)})
	}
}

func (r *usartTransmit) Get() uint32               { return 0 }
func (r *usartTransmit) SetBits(value uint32)      { r.Set(value) }
func (r *usartTransmit) ClearBits(uint32)          {}
func (r *usartTransmit) HasBits(value uint32) bool { return false }
