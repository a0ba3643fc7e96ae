//go:build stm32l432

package main

import (
	"machine"
	"stm32spi/core"
	"tinygo.org/x/drivers"
)

// Slave select policy, chosen at build time:
//
//	tinygo flash -target=nucleo-l432kc -ldflags="-X main.slaveSelect=hardware" ./targets/stm32l432
var slaveSelect = "software"

// MPU9250 register addresses polled in turn
var addresses = []byte{187, 188, 189, 190}

const pollIntervalMS = 50

func main() {
	b := newBoard()

	// The runtime has already set up the system clock; TIM2 and both APB
	// buses run from it undivided
	clockHz := machine.CPUFrequency()

	tb, err := core.InitTimer(b.tim2, b.clocks, core.TimerConfig{Period: clockHz})
	if err != nil {
		halt()
	}
	core.SetTraceClock(tb.Now)

	uartCfg := core.DefaultUART1Config(b.portA)
	uartCfg.ClockHz = clockHz
	uart := core.NewUART(b.usart1, b.clocks, uartCfg)
	if err := uart.Configure(); err != nil {
		halt()
	}

	reporter := core.NewFrameReporter(uart)
	core.SetDebugWriter(reporter.Log)
	core.SetDebugEnabled(true)

	spi, err := initSPI(b)
	if err != nil {
		core.DebugPrintln("[SPI1] init failed: " + err.Error())
		halt()
	}
	cr1, cr2 := spi.ControlRegisters()
	if err := reporter.ReportConfig(spi.Policy().Name(), cr1, cr2); err != nil {
		halt()
	}

	var bus drivers.SPI = spi
	poller := &core.Poller{
		Bus:        bus,
		Timebase:   tb,
		Reporter:   reporter,
		Addresses:  addresses,
		IntervalMS: pollIntervalMS,
	}
	if err := poller.Run(0); err != nil {
		core.DebugPrintln("[POLL] stopped: " + err.Error())
		core.DumpTrace()
	}
	halt()
}

func initSPI(b *board) (*core.SPI, error) {
	bus := core.SPIBus{
		Regs:   b.spi1,
		Clocks: b.clocks,
		Pins:   core.DefaultSPI1Pins(b.portA, b.portB),
	}
	cfg := core.DefaultSPIConfig()

	switch slaveSelect {
	case "hardware":
		return core.InitializeHardwareVariant(bus, cfg)
	case "software":
		return core.InitializeSoftwareVariant(bus, cfg)
	}
	return nil, core.ErrUnknownPolicy
}

// halt parks the CPU after an unrecoverable error
func halt() {
	for {
	}
}
