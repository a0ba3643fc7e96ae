// Package sim provides in-memory models of the STM32L432 peripherals the
// firmware touches. Each model exposes its registers as core.Register values
// so the core drivers run unchanged on the host.
package sim

import "stm32spi/core"

// Timer models TIM2 as an up-counter that moves forward by a fixed step each
// time CNT is read
type Timer struct {
	CR1 core.MemRegister
	PSC core.MemRegister
	ARR core.MemRegister
	CNT Counter
}

// NewTimer creates a stopped timer that advances step ticks per CNT read
// once enabled
func NewTimer(step uint32) *Timer {
	t := &Timer{}
	t.ARR.Reg = 0xFFFFFFFF // reset value on a 32-bit timer
	t.CNT.timer = t
	t.CNT.Step = step
	return t
}

// Registers returns the timer as a core register block
func (t *Timer) Registers() *core.TimerRegisters {
	return &core.TimerRegisters{
		CR1: &t.CR1,
		PSC: &t.PSC,
		ARR: &t.ARR,
		CNT: &t.CNT,
	}
}

// Counter is the CNT register. It counts 0..ARR inclusive and only while
// CR1.CEN is set.
type Counter struct {
	Value uint32
	Step  uint32
	Reads int

	timer *Timer
}

func (c *Counter) Get() uint32 {
	v := c.Value
	c.Reads++
	c.advance()
	return v
}

func (c *Counter) advance() {
	if !c.timer.CR1.HasBits(core.TIM_CR1_CEN) || c.Step == 0 {
		return
	}
	states := uint64(c.timer.ARR.Reg) + 1
	c.Value = uint32((uint64(c.Value) + uint64(c.Step)) % states)
}

func (c *Counter) Set(value uint32) { c.Value = value }

func (c *Counter) SetBits(value uint32) { c.Value |= value }

func (c *Counter) ClearBits(value uint32) { c.Value &^= value }

func (c *Counter) HasBits(value uint32) bool { return c.Value&value != 0 }
