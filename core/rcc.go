package core

// ClockRegisters is the subset of the RCC block used by this firmware
type ClockRegisters struct {
	AHB2ENR  Register
	APB1ENR1 Register
	APB2ENR  Register
}

// RCC enable bits (STM32L432 reference manual, section 6.4)
const (
	RCC_AHB2ENR_GPIOAEN  = 1 << 0
	RCC_AHB2ENR_GPIOBEN  = 1 << 1
	RCC_APB1ENR1_TIM2EN  = 1 << 0
	RCC_APB2ENR_SPI1EN   = 1 << 12
	RCC_APB2ENR_USART1EN = 1 << 14
)

// ClockControl enables peripheral clocks. All operations only set bits, so
// repeating them is harmless.
type ClockControl struct {
	regs *ClockRegisters
}

// NewClockControl wraps the RCC enable registers
func NewClockControl(regs *ClockRegisters) *ClockControl {
	return &ClockControl{regs: regs}
}

// EnablePorts turns on the AHB2 clock of every given GPIO port
func (c *ClockControl) EnablePorts(ports ...*GPIOPort) {
	var bits uint32
	for _, p := range ports {
		if p != nil {
			bits |= p.clockBit
		}
	}
	if bits != 0 {
		c.regs.AHB2ENR.SetBits(bits)
	}
}

func (c *ClockControl) valid() bool {
	return c != nil && c.regs != nil &&
		c.regs.AHB2ENR != nil && c.regs.APB1ENR1 != nil && c.regs.APB2ENR != nil
}

func (c *ClockControl) EnableTIM2() {
	c.regs.APB1ENR1.SetBits(RCC_APB1ENR1_TIM2EN)
}

func (c *ClockControl) EnableSPI1() {
	c.regs.APB2ENR.SetBits(RCC_APB2ENR_SPI1EN)
}

func (c *ClockControl) EnableUSART1() {
	c.regs.APB2ENR.SetBits(RCC_APB2ENR_USART1EN)
}
