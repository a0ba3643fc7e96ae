package core

// GPIOPin identifies a pin number (0-15) within one GPIO port
type GPIOPin uint8

// GPIOMode is the 2-bit MODER field value of a pin
type GPIOMode uint8

const (
	GPIOModeInput     GPIOMode = 0
	GPIOModeOutput    GPIOMode = 1
	GPIOModeAltFunc   GPIOMode = 2
	GPIOModeAnalog    GPIOMode = 3
	gpioModeWidth              = 2
	gpioAltFuncWidth           = 4
	gpioPinsPerAFReg           = 8
	gpioMaxPin        GPIOPin  = 15
)

// GPIORegisters is the subset of a GPIO port block used by this firmware
type GPIORegisters struct {
	MODER Register
	AFRL  Register // alternate function, pins 0-7
	AFRH  Register // alternate function, pins 8-15
	IDR   Register
	ODR   Register
}

// GPIOPort is the owning handle of one GPIO port
type GPIOPort struct {
	Name     string
	regs     *GPIORegisters
	clockBit uint32 // RCC AHB2ENR enable bit
}

// NewGPIOPort wraps a GPIO register block. clockBit is the port's enable
// bit in RCC AHB2ENR.
func NewGPIOPort(name string, regs *GPIORegisters, clockBit uint32) *GPIOPort {
	return &GPIOPort{Name: name, regs: regs, clockBit: clockBit}
}

// SetMode clears and rewrites the MODER field of pin
func (p *GPIOPort) SetMode(pin GPIOPin, mode GPIOMode) {
	replaceField(p.regs.MODER, uint32(mode), gpioModeWidth, gpioModeWidth*uint32(pin))
}

// Mode reads back the MODER field of pin
func (p *GPIOPort) Mode(pin GPIOPin) GPIOMode {
	return GPIOMode((p.regs.MODER.Get() >> (gpioModeWidth * uint32(pin))) & 0x3)
}

// SetAltFunc selects alternate function af (0-15) for pin. Pins 0-7 live in
// AFRL, pins 8-15 in AFRH.
func (p *GPIOPort) SetAltFunc(pin GPIOPin, af uint8) {
	reg := p.regs.AFRL
	if pin >= gpioPinsPerAFReg {
		reg = p.regs.AFRH
		pin -= gpioPinsPerAFReg
	}
	replaceField(reg, uint32(af), gpioAltFuncWidth, gpioAltFuncWidth*uint32(pin))
}

// AltFunc reads back the alternate function selected for pin
func (p *GPIOPort) AltFunc(pin GPIOPin) uint8 {
	reg := p.regs.AFRL
	if pin >= gpioPinsPerAFReg {
		reg = p.regs.AFRH
		pin -= gpioPinsPerAFReg
	}
	return uint8((reg.Get() >> (gpioAltFuncWidth * uint32(pin))) & 0xF)
}

// Set drives pin high via ODR
func (p *GPIOPort) Set(pin GPIOPin) {
	p.regs.ODR.SetBits(1 << pin)
}

// Clear drives pin low via ODR
func (p *GPIOPort) Clear(pin GPIOPin) {
	p.regs.ODR.ClearBits(1 << pin)
}

// Output reports the level currently latched in ODR for pin
func (p *GPIOPort) Output(pin GPIOPin) bool {
	return p.regs.ODR.HasBits(1 << pin)
}

// Get reads the input level of pin
func (p *GPIOPort) Get(pin GPIOPin) bool {
	return p.regs.IDR.HasBits(1 << pin)
}

// PinRef names a single pin on a port
type PinRef struct {
	Port *GPIOPort
	Pin  GPIOPin
}

func (r PinRef) valid() bool {
	return r.Port != nil && r.Pin <= gpioMaxPin
}

// configureAltFunc puts the pin into alternate function mode with af selected
func (r PinRef) configureAltFunc(af uint8) {
	r.Port.SetMode(r.Pin, GPIOModeAltFunc)
	r.Port.SetAltFunc(r.Pin, af)
}

func (r PinRef) String() string {
	if r.Port == nil {
		return "nopin"
	}
	return r.Port.Name + itoa(int(r.Pin))
}
