package sim

import (
	"io"
	"stm32spi/config"
	"stm32spi/core"
)

// MODER reset values from the reference manual
const (
	gpioAModerReset = 0xABFFFFFF
	gpioBModerReset = 0xFFFFFEBF
)

// Board is a NUCLEO-L432KC with every modelled peripheral wired into core
// handles
type Board struct {
	Config *config.Config

	RCC    RCC
	GPIOA  *GPIO
	GPIOB  *GPIO
	TIM2   *Timer
	SPI1   *SPI
	USART1 *USART

	Clocks *core.ClockControl
	PortA  *core.GPIOPort
	PortB  *core.GPIOPort
}

// NewBoard builds a board for cfg. The timer advances one ten-thousandth of
// the clock per read, 100us of simulated time at any clock, and the debug
// UART writes to uartOut.
func NewBoard(cfg *config.Config, uartOut io.Writer) *Board {
	if cfg == nil {
		cfg = config.Default()
	}

	step := cfg.ClockHz / 10000
	if step == 0 {
		step = 1
	}

	b := &Board{
		Config: cfg,
		GPIOA:  NewGPIO(gpioAModerReset),
		GPIOB:  NewGPIO(gpioBModerReset),
		TIM2:   NewTimer(step),
		SPI1:   NewSPI(),
		USART1: NewUSART(uartOut),
	}
	b.Clocks = core.NewClockControl(b.RCC.Registers())
	b.PortA = core.NewGPIOPort("PA", b.GPIOA.Registers(), core.RCC_AHB2ENR_GPIOAEN)
	b.PortB = core.NewGPIOPort("PB", b.GPIOB.Registers(), core.RCC_AHB2ENR_GPIOBEN)

	// Software slave select drives PB0
	b.SPI1.NSS = func() bool { return b.GPIOB.Level(0) }
	return b
}

// SPIBus returns the SPI1 handles with the default pin mapping
func (b *Board) SPIBus() core.SPIBus {
	return core.SPIBus{
		Regs:   b.SPI1.Registers(),
		Clocks: b.Clocks,
		Pins:   core.DefaultSPI1Pins(b.PortA, b.PortB),
	}
}

// StartTimer initializes TIM2 as the timebase
func (b *Board) StartTimer() (*core.Timebase, error) {
	return core.InitTimer(b.TIM2.Registers(), b.Clocks, b.Config.TimerConfig())
}

// StartUART configures USART1 as the debug link
func (b *Board) StartUART() (*core.UART, error) {
	u := core.NewUART(b.USART1.Registers(), b.Clocks, b.Config.UARTConfig(b.PortA))
	if err := u.Configure(); err != nil {
		return nil, err
	}
	return u, nil
}

// StartSPI brings up SPI1 with the configured slave select policy
func (b *Board) StartSPI() (*core.SPI, error) {
	policy, err := b.Config.Policy()
	if err != nil {
		return nil, err
	}
	s, err := core.NewSPI(b.SPIBus(), policy, b.Config.SPIConfig())
	if err != nil {
		return nil, err
	}
	s.Configure()
	return s, nil
}

// Poller returns a poll loop over the configured addresses
func (b *Board) Poller(bus *core.SPI, tb *core.Timebase, reporter core.Reporter) *core.Poller {
	return &core.Poller{
		Bus:        bus,
		Timebase:   tb,
		Reporter:   reporter,
		Addresses:  b.Config.AddressBytes(),
		IntervalMS: b.Config.PollIntervalMS,
	}
}
