// SPI master support for SPI1 in full-duplex polled mode.
// The slave select line is either driven by the peripheral itself while SPE
// is set (hardware slave management) or toggled by hand on a GPIO output
// (software slave management).
package core

import (
	"errors"
	"tinygo.org/x/drivers"
)

var (
	ErrNotConfigured  = errors.New("SPI not configured")
	ErrNoPolicy       = errors.New("no slave select policy")
	ErrUnknownPolicy  = errors.New("unknown slave select policy")
	ErrInvalidDivisor = errors.New("invalid SPI baud divisor")
	ErrInvalidMode    = errors.New("invalid SPI mode")
	ErrInvalidPin     = errors.New("invalid SPI pin")
	ErrBusTimeout     = errors.New("SPI bus timeout")
	ErrBufferMismatch = errors.New("tx and rx buffer lengths must match")
)

// SPI1 alternate function number on PA1/PA11/PA12/PB0
const SPI1_AF = 5

// RXFIFO is 32 bits deep, two 16-bit frames
const rxFIFOFrames = 2

// SPIPins lists the pins routed to the SPI peripheral
type SPIPins struct {
	SCK     PinRef
	MISO    PinRef
	MOSI    PinRef
	NSS     PinRef // slave select, alternate function or plain output depending on policy
	AltFunc uint8
}

// DefaultSPI1Pins returns the NUCLEO-L432KC wiring: SCK=PA1, MISO=PA11,
// MOSI=PA12, NSS=PB0
func DefaultSPI1Pins(portA, portB *GPIOPort) SPIPins {
	return SPIPins{
		SCK:     PinRef{Port: portA, Pin: 1},
		MISO:    PinRef{Port: portA, Pin: 11},
		MOSI:    PinRef{Port: portA, Pin: 12},
		NSS:     PinRef{Port: portB, Pin: 0},
		AltFunc: SPI1_AF,
	}
}

func (p SPIPins) valid() bool {
	return p.SCK.valid() && p.MISO.valid() && p.MOSI.valid() && p.NSS.valid()
}

// ports returns each distinct port referenced by the pins
func (p SPIPins) ports() []*GPIOPort {
	var out []*GPIOPort
	for _, ref := range []PinRef{p.SCK, p.MISO, p.MOSI, p.NSS} {
		seen := false
		for _, port := range out {
			if port == ref.Port {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, ref.Port)
		}
	}
	return out
}

// SPIBus bundles the hardware handles an SPI instance owns
type SPIBus struct {
	Regs   *SPIRegisters
	Clocks *ClockControl
	Pins   SPIPins
}

// SlaveSelectPolicy decides how the slave select line is managed. The two
// implementations are HardwareSlaveSelect and SoftwareSlaveSelect; the
// interface is sealed so exactly one policy is ever in effect for a bus.
type SlaveSelectPolicy interface {
	Name() string

	configurePins(s *SPI)
	controlBits() (cr1, cr2 uint32)
	enableAtInit() bool
	exchange(s *SPI, tx byte) (byte, error)
}

// PolicyByName returns the policy called "hardware" or "software"
func PolicyByName(name string) (SlaveSelectPolicy, error) {
	switch name {
	case "hardware":
		return HardwareSlaveSelect{}, nil
	case "software":
		return SoftwareSlaveSelect{}, nil
	}
	return nil, ErrUnknownPolicy
}

// SPI is one configured SPI master. It is not safe for concurrent use and
// every call blocks the calling goroutine until the bus is idle.
type SPI struct {
	regs       *SPIRegisters
	clocks     *ClockControl
	pins       SPIPins
	policy     SlaveSelectPolicy
	config     SPIConfig
	configured bool

	// stale is set when a wait gave up with a frame still on the wire
	stale bool
}

var _ drivers.SPI = (*SPI)(nil)

// NewSPI validates the bus and configuration. Nothing is written to the
// hardware until Configure.
func NewSPI(bus SPIBus, policy SlaveSelectPolicy, cfg SPIConfig) (*SPI, error) {
	if policy == nil {
		return nil, ErrNoPolicy
	}
	if bus.Regs == nil || !bus.Clocks.valid() {
		return nil, ErrNotConfigured
	}
	if !bus.Pins.valid() {
		return nil, ErrInvalidPin
	}
	if cfg.Divisor > BaudDiv256 {
		return nil, ErrInvalidDivisor
	}
	if cfg.Mode > 3 {
		return nil, ErrInvalidMode
	}
	return &SPI{
		regs:   bus.Regs,
		clocks: bus.Clocks,
		pins:   bus.Pins,
		policy: policy,
		config: cfg,
	}, nil
}

// InitializeHardwareVariant brings up SPI1 with hardware slave management
func InitializeHardwareVariant(bus SPIBus, cfg SPIConfig) (*SPI, error) {
	return newConfigured(bus, HardwareSlaveSelect{}, cfg)
}

// InitializeSoftwareVariant brings up SPI1 with software slave management
// and NSS driven as a GPIO output
func InitializeSoftwareVariant(bus SPIBus, cfg SPIConfig) (*SPI, error) {
	return newConfigured(bus, SoftwareSlaveSelect{}, cfg)
}

func newConfigured(bus SPIBus, policy SlaveSelectPolicy, cfg SPIConfig) (*SPI, error) {
	s, err := NewSPI(bus, policy, cfg)
	if err != nil {
		return nil, err
	}
	s.Configure()
	return s, nil
}

// Policy returns the slave select policy chosen at construction
func (s *SPI) Policy() SlaveSelectPolicy {
	return s.policy
}

// ControlRegisters returns the current CR1 and CR2 values
func (s *SPI) ControlRegisters() (cr1, cr2 uint32) {
	return s.regs.CR1.Get(), s.regs.CR2.Get()
}

// Configure enables the clocks, routes the pins and writes the control
// registers. Both control registers are overwritten as a whole, so a second
// call leaves the peripheral exactly as the first one did.
func (s *SPI) Configure() {
	s.clocks.EnablePorts(s.pins.ports()...)
	s.clocks.EnableSPI1()

	s.policy.configurePins(s)

	policyCR1, policyCR2 := s.policy.controlBits()
	cr1 := SPI_CR1_MSTR |
		s.config.Mode.cr1Bits() |
		uint32(s.config.Divisor)<<SPI_CR1_BR_Pos |
		policyCR1
	cr2 := SPI_CR2_DS_16BIT | policyCR2

	s.regs.CR1.Set(cr1)
	s.regs.CR2.Set(cr2)

	if s.policy.enableAtInit() {
		s.regs.CR1.SetBits(SPI_CR1_SPE)
	}
	s.configured = true

	RecordTrace(TraceConfigure, cr1, cr2)
	DebugPrintln("[SPI1] " + s.policy.Name() + " slave select cr1=" + hex32(cr1) + " cr2=" + hex32(cr2))
}

// Transfer exchanges one byte with the slave in a single transaction
func (s *SPI) Transfer(b byte) (byte, error) {
	if !s.configured {
		return 0, ErrNotConfigured
	}
	err := s.flushStale()
	var rx byte
	if err == nil {
		rx, err = s.policy.exchange(s, b)
	}
	if err != nil {
		s.stale = true
		RecordTrace(TraceTimeout, uint32(b), 0)
		return 0, err
	}
	RecordTrace(TraceTransfer, uint32(b), uint32(rx))
	return rx, nil
}

// Tx transmits w while receiving into r, one transaction per byte. Either
// buffer may be nil: a nil w sends zeros, a nil r discards what is read.
func (s *SPI) Tx(w, r []byte) error {
	if w != nil && r != nil && len(w) != len(r) {
		return ErrBufferMismatch
	}
	n := len(w)
	if w == nil {
		n = len(r)
	}
	for i := 0; i < n; i++ {
		var out byte
		if w != nil {
			out = w[i]
		}
		in, err := s.Transfer(out)
		if err != nil {
			return err
		}
		if r != nil {
			r[i] = in
		}
	}
	return nil
}

// flushStale empties the receive FIFO before a new frame goes out. After a
// timeout the abandoned frame may still be shifting, so the bus has to go
// idle first or its reply would be taken for the next one.
func (s *SPI) flushStale() error {
	if s.stale {
		if err := s.spin(func() bool { return !s.regs.SR.HasBits(SPI_SR_BSY) }); err != nil {
			return err
		}
		s.stale = false
	}
	for i := 0; i < rxFIFOFrames && s.regs.SR.HasBits(SPI_SR_RXNE); i++ {
		s.regs.DR.Get()
	}
	return nil
}

// waitIdle polls until the bus is not busy and a received frame is waiting
func (s *SPI) waitIdle() error {
	return s.spin(func() bool {
		return !s.regs.SR.HasBits(SPI_SR_BSY) && s.regs.SR.HasBits(SPI_SR_RXNE)
	})
}

// spin polls done, giving up after SpinLimit polls when a limit is set
func (s *SPI) spin(done func() bool) error {
	var polls uint32
	for !done() {
		if s.config.SpinLimit != 0 {
			polls++
			if polls >= s.config.SpinLimit {
				return ErrBusTimeout
			}
		}
	}
	return nil
}

// HardwareSlaveSelect lets the peripheral drive NSS. NSS is asserted while
// SPE is set, so SPE is raised and dropped around every transfer.
type HardwareSlaveSelect struct{}

func (HardwareSlaveSelect) Name() string { return "hardware" }

func (HardwareSlaveSelect) configurePins(s *SPI) {
	s.pins.SCK.configureAltFunc(s.pins.AltFunc)
	s.pins.MISO.configureAltFunc(s.pins.AltFunc)
	s.pins.MOSI.configureAltFunc(s.pins.AltFunc)
	s.pins.NSS.configureAltFunc(s.pins.AltFunc)
}

func (HardwareSlaveSelect) controlBits() (uint32, uint32) {
	return 0, SPI_CR2_SSOE
}

func (HardwareSlaveSelect) enableAtInit() bool { return false }

func (HardwareSlaveSelect) exchange(s *SPI, tx byte) (byte, error) {
	s.regs.CR1.SetBits(SPI_CR1_SPE)
	s.regs.DR.Set(uint32(tx))

	var rx byte
	err := s.waitIdle()
	if err == nil {
		rx = byte(s.regs.DR.Get())
	}

	s.regs.CR1.ClearBits(SPI_CR1_SPE)
	return rx, err
}

// SoftwareSlaveSelect keeps SPE set permanently and toggles NSS as a plain
// GPIO output around every transfer. SSI is held high so the peripheral
// never sees itself deselected.
//
// Frames are 16 bits wide with the payload in the high byte; the low byte
// always goes out as zero and only the low byte of the reply is returned.
type SoftwareSlaveSelect struct{}

func (SoftwareSlaveSelect) Name() string { return "software" }

func (SoftwareSlaveSelect) configurePins(s *SPI) {
	s.pins.SCK.configureAltFunc(s.pins.AltFunc)
	s.pins.MISO.configureAltFunc(s.pins.AltFunc)
	s.pins.MOSI.configureAltFunc(s.pins.AltFunc)

	cs := s.pins.NSS
	cs.Port.SetMode(cs.Pin, GPIOModeOutput)
	cs.Port.Set(cs.Pin)
}

func (SoftwareSlaveSelect) controlBits() (uint32, uint32) {
	return SPI_CR1_SSM | SPI_CR1_SSI, 0
}

func (SoftwareSlaveSelect) enableAtInit() bool { return true }

func (SoftwareSlaveSelect) exchange(s *SPI, tx byte) (byte, error) {
	cs := s.pins.NSS
	cs.Port.Clear(cs.Pin)
	defer cs.Port.Set(cs.Pin)

	s.regs.DR.Set(uint32(tx) << 8)
	if err := s.waitIdle(); err != nil {
		return 0, err
	}
	return byte(s.regs.DR.Get()), nil
}
