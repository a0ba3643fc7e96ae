package core

// counterRegister models a free-running up-counter. Every read returns the
// current count and then advances it by step, reloading at period.
type counterRegister struct {
	MemRegister
	step   uint32
	period uint32
	reads  int
}

func (c *counterRegister) Get() uint32 {
	v := c.Reg
	c.Reg = (c.Reg + c.step) % c.period
	c.reads++
	return v
}

// recordRegister keeps every value written to it
type recordRegister struct {
	MemRegister
	writes []uint32
}

func (r *recordRegister) Set(value uint32) {
	r.writes = append(r.writes, value)
	r.Reg = value
}

// fakeSlave stands in for the SPI shift register and the device on the
// other end of the bus. Replies queue in a receive FIFO until DR is read.
type fakeSlave struct {
	busyPolls int  // status reads reporting BSY after each DR write
	stuck     bool // report BSY forever
	respond   func(tx uint32) uint32
	onWrite   func(tx uint32)

	pending int
	rx      []uint32
	writes  []uint32
}

func (s *fakeSlave) write(v uint32) {
	s.writes = append(s.writes, v)
	if s.onWrite != nil {
		s.onWrite(v)
	}
	s.pending = s.busyPolls
	reply := v
	if s.respond != nil {
		reply = s.respond(v)
	}
	s.rx = append(s.rx, reply)
}

func (s *fakeSlave) status() uint32 {
	if s.stuck {
		return SPI_SR_BSY
	}
	if s.pending > 0 {
		s.pending--
		return SPI_SR_BSY
	}
	bits := uint32(SPI_SR_TXE)
	if len(s.rx) > 0 {
		bits |= SPI_SR_RXNE
	}
	return bits
}

type slaveData struct {
	MemRegister
	slave *fakeSlave
}

func (d *slaveData) Set(value uint32) { d.slave.write(value) }

func (d *slaveData) Get() uint32 {
	if len(d.slave.rx) == 0 {
		return 0
	}
	v := d.slave.rx[0]
	d.slave.rx = d.slave.rx[1:]
	return v
}

type slaveStatus struct {
	MemRegister
	slave *fakeSlave
}

func (st *slaveStatus) Get() uint32 { return st.slave.status() }

func (st *slaveStatus) HasBits(value uint32) bool { return st.slave.status()&value != 0 }

// testBoard holds in-memory register blocks for the SPI1 wiring
type testBoard struct {
	rcc    ClockRegisters
	gpioA  GPIORegisters
	gpioB  GPIORegisters
	portA  *GPIOPort
	portB  *GPIOPort
	clocks *ClockControl

	cr1   *MemRegister
	cr2   *MemRegister
	slave *fakeSlave
	spi   SPIRegisters
}

func newGPIORegisters() GPIORegisters {
	return GPIORegisters{
		MODER: &MemRegister{},
		AFRL:  &MemRegister{},
		AFRH:  &MemRegister{},
		IDR:   &MemRegister{},
		ODR:   &MemRegister{},
	}
}

func newTestBoard() *testBoard {
	b := &testBoard{
		rcc: ClockRegisters{
			AHB2ENR:  &MemRegister{},
			APB1ENR1: &MemRegister{},
			APB2ENR:  &MemRegister{},
		},
		gpioA: newGPIORegisters(),
		gpioB: newGPIORegisters(),
		cr1:   &MemRegister{},
		cr2:   &MemRegister{},
		slave: &fakeSlave{},
	}
	b.portA = NewGPIOPort("PA", &b.gpioA, RCC_AHB2ENR_GPIOAEN)
	b.portB = NewGPIOPort("PB", &b.gpioB, RCC_AHB2ENR_GPIOBEN)
	b.clocks = NewClockControl(&b.rcc)
	b.spi = SPIRegisters{
		CR1: b.cr1,
		CR2: b.cr2,
		SR:  &slaveStatus{slave: b.slave},
		DR:  &slaveData{slave: b.slave},
	}
	return b
}

func (b *testBoard) bus() SPIBus {
	return SPIBus{
		Regs:   &b.spi,
		Clocks: b.clocks,
		Pins:   DefaultSPI1Pins(b.portA, b.portB),
	}
}

// snapshot captures every plain register on the board
func (b *testBoard) snapshot() []uint32 {
	regs := []Register{
		b.rcc.AHB2ENR, b.rcc.APB1ENR1, b.rcc.APB2ENR,
		b.gpioA.MODER, b.gpioA.AFRL, b.gpioA.AFRH, b.gpioA.ODR,
		b.gpioB.MODER, b.gpioB.AFRL, b.gpioB.AFRH, b.gpioB.ODR,
		b.cr1, b.cr2,
	}
	out := make([]uint32, len(regs))
	for i, r := range regs {
		out[i] = r.Get()
	}
	return out
}

func newTestTimebase(start, step, period uint32) (*Timebase, *counterRegister) {
	cnt := &counterRegister{step: step, period: period}
	cnt.Reg = start
	tb, err := NewTimebase(&TimerRegisters{
		CR1: &MemRegister{},
		PSC: &MemRegister{},
		ARR: &MemRegister{Reg: period},
		CNT: cnt,
	}, period)
	if err != nil {
		panic(err)
	}
	return tb, cnt
}
