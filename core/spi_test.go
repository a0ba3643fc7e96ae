package core

import (
	"errors"
	"testing"
)

func TestHardwareVariantConfigure(t *testing.T) {
	b := newTestBoard()
	_, err := InitializeHardwareVariant(b.bus(), DefaultSPIConfig())
	if err != nil {
		t.Fatalf("InitializeHardwareVariant failed: %v", err)
	}

	// MSTR | CPOL | CPHA | BR=5, SPE left clear
	if got := b.cr1.Get(); got != 0x2F {
		t.Errorf("CR1 = 0x%X, expected 0x2F", got)
	}
	// DS=16-bit | SSOE
	if got := b.cr2.Get(); got != 0xF04 {
		t.Errorf("CR2 = 0x%X, expected 0xF04", got)
	}

	for _, ref := range []PinRef{
		{b.portA, 1}, {b.portA, 11}, {b.portA, 12}, {b.portB, 0},
	} {
		if ref.Port.Mode(ref.Pin) != GPIOModeAltFunc {
			t.Errorf("%s mode = %d, expected alternate function", ref, ref.Port.Mode(ref.Pin))
		}
		if af := ref.Port.AltFunc(ref.Pin); af != SPI1_AF {
			t.Errorf("%s AF = %d, expected %d", ref, af, SPI1_AF)
		}
	}

	if !b.rcc.AHB2ENR.HasBits(RCC_AHB2ENR_GPIOAEN) || !b.rcc.AHB2ENR.HasBits(RCC_AHB2ENR_GPIOBEN) {
		t.Errorf("GPIO clocks not enabled: AHB2ENR=0x%X", b.rcc.AHB2ENR.Get())
	}
	if !b.rcc.APB2ENR.HasBits(RCC_APB2ENR_SPI1EN) {
		t.Error("SPI1 clock not enabled")
	}
}

func TestSoftwareVariantConfigure(t *testing.T) {
	b := newTestBoard()
	_, err := InitializeSoftwareVariant(b.bus(), DefaultSPIConfig())
	if err != nil {
		t.Fatalf("InitializeSoftwareVariant failed: %v", err)
	}

	// MSTR | CPOL | CPHA | BR=5 | SSI | SSM | SPE
	if got := b.cr1.Get(); got != 0x36F {
		t.Errorf("CR1 = 0x%X, expected 0x36F", got)
	}
	if got := b.cr2.Get(); got != SPI_CR2_DS_16BIT {
		t.Errorf("CR2 = 0x%X, expected 0x%X", got, SPI_CR2_DS_16BIT)
	}

	if b.portB.Mode(0) != GPIOModeOutput {
		t.Errorf("PB0 mode = %d, expected output", b.portB.Mode(0))
	}
	if !b.portB.Output(0) {
		t.Error("PB0 must idle high")
	}
	if b.portA.Mode(1) != GPIOModeAltFunc || b.portA.AltFunc(12) != SPI1_AF {
		t.Error("SCK/MOSI not routed to SPI1")
	}
}

func TestConfigureIdempotent(t *testing.T) {
	for _, policy := range []SlaveSelectPolicy{HardwareSlaveSelect{}, SoftwareSlaveSelect{}} {
		t.Run(policy.Name(), func(t *testing.T) {
			b := newTestBoard()
			s, err := NewSPI(b.bus(), policy, DefaultSPIConfig())
			if err != nil {
				t.Fatalf("NewSPI failed: %v", err)
			}

			s.Configure()
			first := b.snapshot()
			s.Configure()
			second := b.snapshot()

			for i := range first {
				if first[i] != second[i] {
					t.Errorf("register %d changed on second Configure: 0x%X -> 0x%X", i, first[i], second[i])
				}
			}
		})
	}
}

func TestHardwareTransfer(t *testing.T) {
	b := newTestBoard()
	b.slave.busyPolls = 3

	var speAtWrite bool
	b.slave.onWrite = func(uint32) { speAtWrite = b.cr1.HasBits(SPI_CR1_SPE) }

	s, err := InitializeHardwareVariant(b.bus(), DefaultSPIConfig())
	if err != nil {
		t.Fatalf("InitializeHardwareVariant failed: %v", err)
	}

	rx, err := s.Transfer(0xBB)
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if rx != 0xBB {
		t.Errorf("Expected echo 0xBB, got 0x%02X", rx)
	}
	if len(b.slave.writes) != 1 || b.slave.writes[0] != 0xBB {
		t.Errorf("Expected one DR write of 0xBB, got %v", b.slave.writes)
	}
	if !speAtWrite {
		t.Error("SPE was not set when DR was written")
	}
	if b.cr1.HasBits(SPI_CR1_SPE) {
		t.Error("SPE still set after transfer")
	}
	if len(b.slave.rx) != 0 {
		t.Error("Received frame was not read back")
	}
}

func TestSoftwareTransfer(t *testing.T) {
	b := newTestBoard()
	b.slave.busyPolls = 2
	b.slave.respond = func(uint32) uint32 { return 0x12A5 }

	var csAtWrite bool
	b.slave.onWrite = func(uint32) { csAtWrite = b.portB.Output(0) }

	s, err := InitializeSoftwareVariant(b.bus(), DefaultSPIConfig())
	if err != nil {
		t.Fatalf("InitializeSoftwareVariant failed: %v", err)
	}
	if !b.portB.Output(0) {
		t.Fatal("CS low before transfer")
	}

	rx, err := s.Transfer(0xBC)
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	if len(b.slave.writes) != 1 || b.slave.writes[0] != 0xBC00 {
		t.Errorf("Expected one DR write of 0xBC00, got %v", b.slave.writes)
	}
	if csAtWrite {
		t.Error("CS was high when DR was written")
	}
	if !b.portB.Output(0) {
		t.Error("CS left low after transfer")
	}
	if rx != 0xA5 {
		t.Errorf("Expected low byte 0xA5, got 0x%02X", rx)
	}
	if !b.cr1.HasBits(SPI_CR1_SPE) {
		t.Error("SPE must stay set in software mode")
	}
}

func TestTransferSequence(t *testing.T) {
	b := newTestBoard()
	b.slave.respond = func(tx uint32) uint32 { return (tx >> 8) + 1 }

	s, err := InitializeSoftwareVariant(b.bus(), DefaultSPIConfig())
	if err != nil {
		t.Fatalf("InitializeSoftwareVariant failed: %v", err)
	}

	for _, addr := range []byte{187, 188, 189, 190} {
		rx, err := s.Transfer(addr)
		if err != nil {
			t.Fatalf("Transfer(%d) failed: %v", addr, err)
		}
		if rx != addr+1 {
			t.Errorf("Transfer(%d) = %d, expected %d", addr, rx, addr+1)
		}
	}
	if len(b.slave.writes) != 4 {
		t.Errorf("Expected 4 DR writes, got %d", len(b.slave.writes))
	}
}

func TestTransferBeforeConfigure(t *testing.T) {
	b := newTestBoard()
	s, err := NewSPI(b.bus(), HardwareSlaveSelect{}, DefaultSPIConfig())
	if err != nil {
		t.Fatalf("NewSPI failed: %v", err)
	}

	if _, err := s.Transfer(0x01); err != ErrNotConfigured {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
	if len(b.slave.writes) != 0 {
		t.Error("DR written before Configure")
	}
}

func TestNewSPIValidation(t *testing.T) {
	b := newTestBoard()

	if _, err := NewSPI(b.bus(), nil, DefaultSPIConfig()); err != ErrNoPolicy {
		t.Errorf("Expected ErrNoPolicy, got %v", err)
	}

	cfg := DefaultSPIConfig()
	cfg.Divisor = 8
	if _, err := NewSPI(b.bus(), SoftwareSlaveSelect{}, cfg); err != ErrInvalidDivisor {
		t.Errorf("Expected ErrInvalidDivisor, got %v", err)
	}

	cfg = DefaultSPIConfig()
	cfg.Mode = 4
	if _, err := NewSPI(b.bus(), SoftwareSlaveSelect{}, cfg); err != ErrInvalidMode {
		t.Errorf("Expected ErrInvalidMode, got %v", err)
	}

	bus := b.bus()
	bus.Pins.NSS = PinRef{}
	if _, err := NewSPI(bus, SoftwareSlaveSelect{}, DefaultSPIConfig()); err != ErrInvalidPin {
		t.Errorf("Expected ErrInvalidPin, got %v", err)
	}

	bus = b.bus()
	bus.Regs = nil
	if _, err := NewSPI(bus, HardwareSlaveSelect{}, DefaultSPIConfig()); err != ErrNotConfigured {
		t.Errorf("Expected ErrNotConfigured, got %v", err)
	}
}

func TestPolicyByName(t *testing.T) {
	for _, name := range []string{"hardware", "software"} {
		p, err := PolicyByName(name)
		if err != nil {
			t.Errorf("PolicyByName(%q) failed: %v", name, err)
			continue
		}
		if p.Name() != name {
			t.Errorf("PolicyByName(%q).Name() = %q", name, p.Name())
		}
	}
	if _, err := PolicyByName("both"); err != ErrUnknownPolicy {
		t.Errorf("Expected ErrUnknownPolicy, got %v", err)
	}
}

func TestTransferTimeout(t *testing.T) {
	cfg := DefaultSPIConfig()
	cfg.SpinLimit = 16

	t.Run("software", func(t *testing.T) {
		b := newTestBoard()
		b.slave.stuck = true
		s, _ := InitializeSoftwareVariant(b.bus(), cfg)

		_, err := s.Transfer(0xBD)
		if !errors.Is(err, ErrBusTimeout) {
			t.Fatalf("Expected ErrBusTimeout, got %v", err)
		}
		if !b.portB.Output(0) {
			t.Error("CS left low after timeout")
		}
	})

	t.Run("hardware", func(t *testing.T) {
		b := newTestBoard()
		b.slave.stuck = true
		s, _ := InitializeHardwareVariant(b.bus(), cfg)

		_, err := s.Transfer(0xBD)
		if !errors.Is(err, ErrBusTimeout) {
			t.Fatalf("Expected ErrBusTimeout, got %v", err)
		}
		if b.cr1.HasBits(SPI_CR1_SPE) {
			t.Error("SPE left set after timeout")
		}
	})
}

func TestTransferAfterTimeoutDropsStaleReply(t *testing.T) {
	cfg := DefaultSPIConfig()
	cfg.SpinLimit = 4

	cases := []struct {
		name    string
		init    func(SPIBus, SPIConfig) (*SPI, error)
		respond func(uint32) uint32
	}{
		{"hardware", InitializeHardwareVariant, func(tx uint32) uint32 { return tx + 1 }},
		{"software", InitializeSoftwareVariant, func(tx uint32) uint32 { return tx>>8 + 1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newTestBoard()
			b.slave.respond = tc.respond
			b.slave.busyPolls = 6
			s, err := tc.init(b.bus(), cfg)
			if err != nil {
				t.Fatalf("init failed: %v", err)
			}

			if _, err := s.Transfer(10); !errors.Is(err, ErrBusTimeout) {
				t.Fatalf("Expected ErrBusTimeout, got %v", err)
			}

			// The frame for 10 completes late and its reply sits in the FIFO
			b.slave.busyPolls = 0
			for _, tx := range []byte{20, 30} {
				rx, err := s.Transfer(tx)
				if err != nil {
					t.Fatalf("Transfer(%d) failed: %v", tx, err)
				}
				if rx != tx+1 {
					t.Errorf("Transfer(%d) = %d, expected %d", tx, rx, tx+1)
				}
			}
			if len(b.slave.rx) != 0 {
				t.Errorf("%d replies left in the FIFO", len(b.slave.rx))
			}
		})
	}
}

func TestTransferStillBusyAfterTimeout(t *testing.T) {
	cfg := DefaultSPIConfig()
	cfg.SpinLimit = 4

	b := newTestBoard()
	b.slave.busyPolls = 20
	s, _ := InitializeSoftwareVariant(b.bus(), cfg)

	if _, err := s.Transfer(1); !errors.Is(err, ErrBusTimeout) {
		t.Fatalf("Expected ErrBusTimeout, got %v", err)
	}
	// The abandoned frame is still shifting, nothing new may be written
	if _, err := s.Transfer(2); !errors.Is(err, ErrBusTimeout) {
		t.Fatalf("Expected ErrBusTimeout while busy, got %v", err)
	}
	if len(b.slave.writes) != 1 {
		t.Errorf("Expected 1 DR write, got %v", b.slave.writes)
	}
	if !b.portB.Output(0) {
		t.Error("CS left low")
	}
}

func TestTransferTrace(t *testing.T) {
	ClearTrace()
	defer ClearTrace()

	b := newTestBoard()
	s, _ := InitializeHardwareVariant(b.bus(), DefaultSPIConfig())
	s.Transfer(0xBE)

	events := TraceEvents()
	if len(events) != 2 {
		t.Fatalf("Expected 2 trace events, got %d", len(events))
	}
	if events[0].Kind != TraceConfigure || events[0].Value1 != 0x2F || events[0].Value2 != 0xF04 {
		t.Errorf("Unexpected configure event %+v", events[0])
	}
	if events[1].Kind != TraceTransfer || events[1].Value1 != 0xBE || events[1].Value2 != 0xBE {
		t.Errorf("Unexpected transfer event %+v", events[1])
	}
}

func TestTx(t *testing.T) {
	b := newTestBoard()
	b.slave.respond = func(tx uint32) uint32 { return ^tx }
	s, _ := InitializeHardwareVariant(b.bus(), DefaultSPIConfig())

	w := []byte{0x01, 0x02, 0x03}
	r := make([]byte, 3)
	if err := s.Tx(w, r); err != nil {
		t.Fatalf("Tx failed: %v", err)
	}
	if r[0] != 0xFE || r[1] != 0xFD || r[2] != 0xFC {
		t.Errorf("Unexpected read %v", r)
	}

	if err := s.Tx(w, make([]byte, 2)); err != ErrBufferMismatch {
		t.Errorf("Expected ErrBufferMismatch, got %v", err)
	}

	b.slave.writes = nil
	if err := s.Tx(nil, make([]byte, 2)); err != nil {
		t.Fatalf("Tx(nil, r) failed: %v", err)
	}
	if len(b.slave.writes) != 2 || b.slave.writes[0] != 0 {
		t.Errorf("Expected two zero writes, got %v", b.slave.writes)
	}
}

func TestBaudDivisorRate(t *testing.T) {
	if got := BaudDiv64.Rate(DefaultClockHz); got != 62500 {
		t.Errorf("fPCLK/64 at 4MHz = %d, expected 62500", got)
	}
	if got := BaudDiv2.Rate(DefaultClockHz); got != 2000000 {
		t.Errorf("fPCLK/2 at 4MHz = %d, expected 2000000", got)
	}
	if ModeFromPolarity(true, true) != 3 || ModeFromPolarity(false, true) != 1 {
		t.Error("ModeFromPolarity mismatch")
	}
}
