//go:build stm32l432

package main

import (
	"runtime/volatile"
	"stm32spi/core"
	"unsafe"
)

// STM32L432 peripheral memory map (RM0394)
const (
	rccBase    = 0x40021000
	tim2Base   = 0x40000000
	spi1Base   = 0x40013000
	usart1Base = 0x40013800
	gpioABase  = 0x48000000
	gpioBBase  = 0x48000400
)

func reg(addr uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(addr))
}

// board holds the core views of every peripheral the firmware drives
type board struct {
	clocks *core.ClockControl
	portA  *core.GPIOPort
	portB  *core.GPIOPort
	tim2   *core.TimerRegisters
	spi1   *core.SPIRegisters
	usart1 *core.UARTRegisters
}

func gpioRegisters(base uintptr) *core.GPIORegisters {
	return &core.GPIORegisters{
		MODER: reg(base + 0x00),
		IDR:   reg(base + 0x10),
		ODR:   reg(base + 0x14),
		AFRL:  reg(base + 0x20),
		AFRH:  reg(base + 0x24),
	}
}

func newBoard() *board {
	return &board{
		clocks: core.NewClockControl(&core.ClockRegisters{
			AHB2ENR:  reg(rccBase + 0x4C),
			APB1ENR1: reg(rccBase + 0x58),
			APB2ENR:  reg(rccBase + 0x60),
		}),
		portA: core.NewGPIOPort("PA", gpioRegisters(gpioABase), core.RCC_AHB2ENR_GPIOAEN),
		portB: core.NewGPIOPort("PB", gpioRegisters(gpioBBase), core.RCC_AHB2ENR_GPIOBEN),
		tim2: &core.TimerRegisters{
			CR1: reg(tim2Base + 0x00),
			CNT: reg(tim2Base + 0x24),
			PSC: reg(tim2Base + 0x28),
			ARR: reg(tim2Base + 0x2C),
		},
		spi1: &core.SPIRegisters{
			CR1: reg(spi1Base + 0x00),
			CR2: reg(spi1Base + 0x04),
			SR:  reg(spi1Base + 0x08),
			DR:  reg(spi1Base + 0x0C),
		},
		usart1: &core.UARTRegisters{
			CR1: reg(usart1Base + 0x00),
			CR2: reg(usart1Base + 0x04),
			CR3: reg(usart1Base + 0x08),
			BRR: reg(usart1Base + 0x0C),
			ISR: reg(usart1Base + 0x1C),
			RDR: reg(usart1Base + 0x24),
			TDR: reg(usart1Base + 0x28),
		},
	}
}
