package core

import "errors"

// Timer frequencies for the STM32L432KC out of reset
const (
	DefaultClockHz     = 4000000         // MSI at 4MHz, no prescaler
	DefaultTimerPeriod = DefaultClockHz // ARR value giving one wrap per second
)

const TIM_CR1_CEN = 1 << 0

var ErrInvalidPeriod = errors.New("timer period must be non-zero")

// TimerRegisters is the subset of a general purpose timer block (TIM2)
// used as the timebase
type TimerRegisters struct {
	CR1 Register
	PSC Register
	ARR Register
	CNT Register
}

func (r *TimerRegisters) valid() bool {
	return r != nil && r.CR1 != nil && r.PSC != nil && r.ARR != nil && r.CNT != nil
}

// TimerConfig holds the timebase parameters
type TimerConfig struct {
	// Period is the auto-reload value. The counter runs from 0 to Period and
	// one full period represents one second at the nominal clock.
	Period uint32
}

// Timebase measures elapsed time on a free-running counter. It holds no
// per-wait state; every wait keeps its own samples on the stack.
type Timebase struct {
	regs       *TimerRegisters
	period     uint32
	ticksPerMS uint32
	ticksPerUS uint32
}

// NewTimebase attaches to a counter that is already running with the given
// reload value. Use InitTimer to bring the counter up.
func NewTimebase(regs *TimerRegisters, period uint32) (*Timebase, error) {
	if regs == nil || regs.CNT == nil {
		return nil, ErrNotConfigured
	}
	if period == 0 {
		return nil, ErrInvalidPeriod
	}
	return &Timebase{
		regs:       regs,
		period:     period,
		ticksPerMS: period / 1000,
		ticksPerUS: period / 1000000,
	}, nil
}

// InitTimer enables the TIM2 clock and starts the counter with no prescaler,
// reload cfg.Period and an initial count of zero. Every register is written
// unconditionally so calling it again yields the same state.
func InitTimer(regs *TimerRegisters, clocks *ClockControl, cfg TimerConfig) (*Timebase, error) {
	if !regs.valid() || !clocks.valid() {
		return nil, ErrNotConfigured
	}
	tb, err := NewTimebase(regs, cfg.Period)
	if err != nil {
		return nil, err
	}

	clocks.EnableTIM2()
	regs.PSC.Set(0)
	regs.ARR.Set(cfg.Period)
	regs.CNT.Set(0)
	regs.CR1.SetBits(TIM_CR1_CEN)

	DebugPrintln("[TIM2] period=" + utoa(cfg.Period))
	return tb, nil
}

// Period returns the counter reload value
func (tb *Timebase) Period() uint32 {
	return tb.period
}

// Now returns the raw counter value
func (tb *Timebase) Now() uint32 {
	return tb.regs.CNT.Get()
}

// TicksFromMS converts milliseconds to counter ticks. ticks-per-ms is
// truncated first, as the accumulator has always done.
func (tb *Timebase) TicksFromMS(ms uint32) uint64 {
	return uint64(ms) * uint64(tb.ticksPerMS)
}

// TicksFromUS converts microseconds to counter ticks with truncated
// ticks-per-us
func (tb *Timebase) TicksFromUS(us uint32) uint64 {
	return uint64(us) * uint64(tb.ticksPerUS)
}
