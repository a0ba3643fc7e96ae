package sim

import "stm32spi/core"

// Frame is one word shifted out by the simulated SPI
type Frame struct {
	TX       uint16
	RX       uint16
	Selected bool // slave select asserted when DR was written
}

// SPI models SPI1 with a single device attached. A DR write while SPE is
// set starts a frame: SR reports BSY for BusyPolls reads, then RXNE while
// the receive FIFO holds a reply. The FIFO keeps two frames; a reply that
// finds it full is lost and counted in Overruns. Writes while SPE is clear
// are counted and go nowhere.
type SPI struct {
	CR1 core.MemRegister
	CR2 core.MemRegister
	SR  spiStatus
	DR  spiData

	// BusyPolls is the number of SR reads that report BSY per frame
	BusyPolls int

	// Stuck holds BSY set forever
	Stuck bool

	// Respond computes the reply to tx; nil echoes tx
	Respond func(tx uint16) uint16

	// NSS reads the level of the slave select GPIO. It is only consulted
	// when software slave management is enabled.
	NSS func() bool

	Frames   []Frame
	Ignored  int
	Overruns int

	pending int
	rx      []uint16
}

const rxFIFOFrames = 2

// NewSPI creates an idle SPI1 model that echoes every frame
func NewSPI() *SPI {
	s := &SPI{}
	s.SR.spi = s
	s.DR.spi = s
	return s
}

// Registers returns the SPI as a core register block
func (s *SPI) Registers() *core.SPIRegisters {
	return &core.SPIRegisters{
		CR1: &s.CR1,
		CR2: &s.CR2,
		SR:  &s.SR,
		DR:  &s.DR,
	}
}

// selected reports whether the slave is addressed right now
func (s *SPI) selected() bool {
	if s.CR1.HasBits(core.SPI_CR1_SSM) {
		return s.NSS != nil && !s.NSS()
	}
	return s.CR2.HasBits(core.SPI_CR2_SSOE) && s.CR1.HasBits(core.SPI_CR1_SPE)
}

func (s *SPI) write(value uint32) {
	if !s.CR1.HasBits(core.SPI_CR1_SPE) {
		s.Ignored++
		return
	}

	tx := uint16(value)
	rx := tx
	if s.Respond != nil {
		rx = s.Respond(tx)
	}
	s.Frames = append(s.Frames, Frame{TX: tx, RX: rx, Selected: s.selected()})

	if len(s.rx) < rxFIFOFrames {
		s.rx = append(s.rx, rx)
	} else {
		s.Overruns++
	}
	s.pending = s.BusyPolls
}

func (s *SPI) status() uint32 {
	if s.Stuck {
		return core.SPI_SR_BSY
	}
	if s.pending > 0 {
		s.pending--
		return core.SPI_SR_BSY
	}
	bits := uint32(core.SPI_SR_TXE)
	if len(s.rx) > 0 {
		bits |= core.SPI_SR_RXNE
	}
	return bits
}

type spiStatus struct {
	spi *SPI
}

func (r *spiStatus) Get() uint32               { return r.spi.status() }
func (r *spiStatus) Set(uint32)                {}
func (r *spiStatus) SetBits(uint32)            {}
func (r *spiStatus) ClearBits(uint32)          {}
func (r *spiStatus) HasBits(value uint32) bool { return r.spi.status()&value != 0 }

type spiData struct {
	spi *SPI
}

// Get pops the oldest reply; an empty FIFO reads as zero
func (r *spiData) Get() uint32 {
	if len(r.spi.rx) == 0 {
		return 0
	}
	v := r.spi.rx[0]
	r.spi.rx = r.spi.rx[1:]
	return uint32(v)
}

func (r *spiData) Set(value uint32)          { r.spi.write(value) }
func (r *spiData) SetBits(value uint32)      { r.spi.write(value) }
func (r *spiData) ClearBits(uint32)          {}
func (r *spiData) HasBits(value uint32) bool { return r.Get()&value != 0 }
