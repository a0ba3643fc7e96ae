package core

// UARTRegisters is the subset of a USART block used for the debug link
type UARTRegisters struct {
	CR1 Register
	CR2 Register
	CR3 Register
	BRR Register
	ISR Register
	RDR Register
	TDR Register
}

// USART_CR1 bits
const (
	USART_CR1_UE     = 1 << 0
	USART_CR1_RE     = 1 << 2
	USART_CR1_TE     = 1 << 3
	USART_CR1_IE_Msk = 0x1F << 4 // IDLEIE, RXNEIE, TCIE, TXEIE, PEIE
	USART_CR1_PCE    = 1 << 10
	USART_CR1_M0     = 1 << 12
	USART_CR1_MME    = 1 << 13
	USART_CR1_CMIE   = 1 << 14
	USART_CR1_OVER8  = 1 << 15
	USART_CR1_RTOIE  = 0x3 << 26 // RTOIE and EOBIE
	USART_CR1_M1     = 1 << 28
)

// USART_CR2 bits
const (
	USART_CR2_LBDIE    = 1 << 6
	USART_CR2_CLKEN    = 1 << 11
	USART_CR2_STOP_Msk = 0x3 << 12
	USART_CR2_LINEN    = 1 << 14
	USART_CR2_SWAP     = 1 << 15
	USART_CR2_INV_Msk  = 0x3 << 16 // RXINV and TXINV
	USART_CR2_MSBFIRST = 1 << 19
	USART_CR2_ABREN    = 1 << 20
	USART_CR2_RTOEN    = 1 << 23
)

// USART_CR3 bits
const (
	USART_CR3_EIE      = 1 << 0
	USART_CR3_IREN     = 1 << 1
	USART_CR3_MODE_Msk = 0x7F << 3 // IRLP, HDSEL, NACK, SCEN, DMAR, DMAT, RTSE
	USART_CR3_ONEBIT   = 1 << 11
	USART_CR3_OVRDIS   = 1 << 12
	USART_CR3_DEM      = 1 << 14
	USART_CR3_TCBGTIE  = 1 << 24
)

// USART_ISR bits
const (
	USART_ISR_RXNE = 1 << 5
	USART_ISR_TXE  = 1 << 7
)

// USART1 alternate function number on PA9/PA10
const USART1_AF = 7

// DefaultBaud is the debug link rate; BRR=35 at 4MHz
const DefaultBaud = 115200

// UARTConfig holds the debug link parameters
type UARTConfig struct {
	ClockHz uint32
	Baud    uint32
	TX      PinRef
	RX      PinRef
}

// DefaultUART1Config returns USART1 on PA9 (TX) and PA10 (RX)
func DefaultUART1Config(portA *GPIOPort) UARTConfig {
	return UARTConfig{
		ClockHz: DefaultClockHz,
		Baud:    DefaultBaud,
		TX:      PinRef{Port: portA, Pin: 9},
		RX:      PinRef{Port: portA, Pin: 10},
	}
}

// UART is a polled 8N1 USART with no interrupts, no DMA and overrun
// detection disabled
type UART struct {
	regs   *UARTRegisters
	clocks *ClockControl
	config UARTConfig
}

// NewUART wraps the USART registers without touching the hardware
func NewUART(regs *UARTRegisters, clocks *ClockControl, cfg UARTConfig) *UART {
	return &UART{regs: regs, clocks: clocks, config: cfg}
}

// BaudRegister returns the BRR value for the configured clock and baud,
// rounded to the nearest divisor
func (u *UART) BaudRegister() uint32 {
	if u.config.Baud == 0 {
		return 0
	}
	return (u.config.ClockHz + u.config.Baud/2) / u.config.Baud
}

// Configure enables clocks, routes the pins and sets up the USART. Every
// field it depends on is cleared before being set so it may be called again.
func (u *UART) Configure() error {
	if !u.config.TX.valid() || !u.config.RX.valid() {
		return ErrInvalidPin
	}

	u.clocks.EnablePorts(u.config.TX.Port, u.config.RX.Port)
	u.clocks.EnableUSART1()

	u.config.TX.configureAltFunc(USART1_AF)
	u.config.RX.configureAltFunc(USART1_AF)

	u.regs.CR1.ClearBits(USART_CR1_M1 |
		USART_CR1_RTOIE |
		USART_CR1_OVER8 |
		USART_CR1_CMIE |
		USART_CR1_MME |
		USART_CR1_M0 |
		USART_CR1_PCE |
		USART_CR1_IE_Msk |
		USART_CR1_TE |
		USART_CR1_RE |
		USART_CR1_UE)

	u.regs.CR2.ClearBits(USART_CR2_RTOEN |
		USART_CR2_ABREN |
		USART_CR2_MSBFIRST |
		USART_CR2_INV_Msk |
		USART_CR2_SWAP |
		USART_CR2_LINEN |
		USART_CR2_STOP_Msk |
		USART_CR2_CLKEN |
		USART_CR2_LBDIE)

	u.regs.CR3.ClearBits(USART_CR3_TCBGTIE |
		USART_CR3_DEM |
		USART_CR3_MODE_Msk |
		USART_CR3_IREN |
		USART_CR3_EIE)
	u.regs.CR3.SetBits(USART_CR3_OVRDIS | USART_CR3_ONEBIT)

	u.regs.BRR.Set(u.BaudRegister())

	u.regs.CR1.SetBits(USART_CR1_TE | USART_CR1_RE | USART_CR1_UE)
	return nil
}

// WriteByte waits for the transmit data register to empty, then loads b
func (u *UART) WriteByte(b byte) error {
	for !u.regs.ISR.HasBits(USART_ISR_TXE) {
	}
	u.regs.TDR.Set(uint32(b))
	return nil
}

// Write sends p byte by byte
func (u *UART) Write(p []byte) (int, error) {
	for _, b := range p {
		u.WriteByte(b)
	}
	return len(p), nil
}

// Receive returns the pending received byte, if there is one
func (u *UART) Receive() (byte, bool) {
	if !u.regs.ISR.HasBits(USART_ISR_RXNE) {
		return 0, false
	}
	return byte(u.regs.RDR.Get()), true
}
