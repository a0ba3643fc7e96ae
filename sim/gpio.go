package sim

import "stm32spi/core"

// GPIO models one GPIO port. Output latches are looped back to IDR for pins
// in output mode.
type GPIO struct {
	MODER core.MemRegister
	AFRL  core.MemRegister
	AFRH  core.MemRegister
	IDR   gpioInput
	ODR   core.MemRegister

	// External drives IDR for pins that are not outputs
	External uint32
}

// NewGPIO creates a port with the given MODER reset value
func NewGPIO(moderReset uint32) *GPIO {
	g := &GPIO{}
	g.MODER.Reg = moderReset
	g.IDR.port = g
	return g
}

// Registers returns the port as a core register block
func (g *GPIO) Registers() *core.GPIORegisters {
	return &core.GPIORegisters{
		MODER: &g.MODER,
		AFRL:  &g.AFRL,
		AFRH:  &g.AFRH,
		IDR:   &g.IDR,
		ODR:   &g.ODR,
	}
}

// Level returns the output latch of pin
func (g *GPIO) Level(pin core.GPIOPin) bool {
	return g.ODR.Reg&(1<<pin) != 0
}

func (g *GPIO) input() uint32 {
	var v uint32
	for pin := uint32(0); pin < 16; pin++ {
		bit := uint32(1) << pin
		if core.GPIOMode((g.MODER.Reg>>(2*pin))&0x3) == core.GPIOModeOutput {
			v |= g.ODR.Reg & bit
		} else {
			v |= g.External & bit
		}
	}
	return v
}

type gpioInput struct {
	port *GPIO
}

func (r *gpioInput) Get() uint32               { return r.port.input() }
func (r *gpioInput) Set(uint32)                {}
func (r *gpioInput) SetBits(uint32)            {}
func (r *gpioInput) ClearBits(uint32)          {}
func (r *gpioInput) HasBits(value uint32) bool { return r.port.input()&value != 0 }

// RCC models the clock enable registers
type RCC struct {
	AHB2ENR  core.MemRegister
	APB1ENR1 core.MemRegister
	APB2ENR  core.MemRegister
}

// Registers returns the RCC as a core register block
func (r *RCC) Registers() *core.ClockRegisters {
	return &core.ClockRegisters{
		AHB2ENR:  &r.AHB2ENR,
		APB1ENR1: &r.APB1ENR1,
		APB2ENR:  &r.APB2ENR,
	}
}
