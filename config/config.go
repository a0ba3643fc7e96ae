// Package config loads the bus, timer and poll loop settings used by the
// host-side simulator and tools.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"stm32spi/core"
)

// Lowest accepted timer period. Below it ticks-per-microsecond truncates to
// zero and every microsecond delay returns at once.
const MinTimerPeriod = 1000000

var (
	ErrInvalidSlaveSelect = errors.New("slave_select must be \"hardware\" or \"software\"")
	ErrInvalidDivisor     = errors.New("baud_divisor must be 0-7")
	ErrInvalidPeriod      = errors.New("timer_period must be at least 1000000")
	ErrNoAddresses        = errors.New("addresses must not be empty")
	ErrInvalidAddress     = errors.New("address out of byte range")
)

// Config describes one board setup
type Config struct {
	SlaveSelect    string `json:"slave_select"`     // "hardware" or "software"
	ClockHz        uint32 `json:"clock_hz"`         // timer and bus clock
	TimerPeriod    uint32 `json:"timer_period"`     // TIM2 reload value
	BaudDivisor    *uint8 `json:"baud_divisor"`     // BR field, 0 selects fPCLK/2
	CPOL           *bool  `json:"cpol"`             // clock idle high
	CPHA           *bool  `json:"cpha"`             // sample on second edge
	SpinLimit      uint32 `json:"spin_limit"`       // status polls before giving up, 0 waits forever
	UARTBaud       uint32 `json:"uart_baud"`        // debug link rate
	Addresses      []int  `json:"addresses"`        // bytes sent by the poll loop, in order
	PollIntervalMS uint32 `json:"poll_interval_ms"` // delay after every transfer
}

// Load parses a JSON configuration, fills in defaults and validates it
func Load(jsonData []byte) (*Config, error) {
	var config Config

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadFile reads and parses the configuration file at path
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// Default returns the NUCLEO-L432KC setup: software slave select, 4MHz,
// mode 3 at fPCLK/64, polling the four MPU9250 registers every 50ms
func Default() *Config {
	var config Config
	applyDefaults(&config)
	return &config
}

func boolPtr(v bool) *bool { return &v }

// applyDefaults fills in missing configuration values
func applyDefaults(config *Config) {
	if config.SlaveSelect == "" {
		config.SlaveSelect = "software"
	}

	if config.ClockHz == 0 {
		config.ClockHz = core.DefaultClockHz
	}
	// One wrap per second
	if config.TimerPeriod == 0 {
		config.TimerPeriod = config.ClockHz
	}

	if config.BaudDivisor == nil {
		div := uint8(core.BaudDiv64)
		config.BaudDivisor = &div
	}
	if config.CPOL == nil {
		config.CPOL = boolPtr(true)
	}
	if config.CPHA == nil {
		config.CPHA = boolPtr(true)
	}

	if config.UARTBaud == 0 {
		config.UARTBaud = core.DefaultBaud
	}

	if config.Addresses == nil {
		config.Addresses = []int{187, 188, 189, 190}
	}
	if config.PollIntervalMS == 0 {
		config.PollIntervalMS = 50
	}
}

// Validate checks a configuration that already has its defaults applied
func (c *Config) Validate() error {
	if _, err := core.PolicyByName(c.SlaveSelect); err != nil {
		return fmt.Errorf("%w, got %q", ErrInvalidSlaveSelect, c.SlaveSelect)
	}
	if c.BaudDivisor == nil || *c.BaudDivisor > uint8(core.BaudDiv256) {
		return ErrInvalidDivisor
	}
	if c.TimerPeriod < MinTimerPeriod {
		return fmt.Errorf("%w, got %d", ErrInvalidPeriod, c.TimerPeriod)
	}
	if len(c.Addresses) == 0 {
		return ErrNoAddresses
	}
	for _, addr := range c.Addresses {
		if addr < 0 || addr > 0xFF {
			return fmt.Errorf("%w: %d", ErrInvalidAddress, addr)
		}
	}
	return nil
}

// Policy returns the slave select policy named by SlaveSelect
func (c *Config) Policy() (core.SlaveSelectPolicy, error) {
	return core.PolicyByName(c.SlaveSelect)
}

// SPIConfig projects the bus settings onto the SPI engine configuration
func (c *Config) SPIConfig() core.SPIConfig {
	cfg := core.DefaultSPIConfig()
	if c.CPOL != nil && c.CPHA != nil {
		cfg.Mode = core.ModeFromPolarity(*c.CPOL, *c.CPHA)
	}
	if c.BaudDivisor != nil {
		cfg.Divisor = core.BaudDivisor(*c.BaudDivisor)
	}
	cfg.SpinLimit = c.SpinLimit
	return cfg
}

// TimerConfig projects the timer settings
func (c *Config) TimerConfig() core.TimerConfig {
	return core.TimerConfig{Period: c.TimerPeriod}
}

// UARTConfig returns the debug link settings for USART1 on portA
func (c *Config) UARTConfig(portA *core.GPIOPort) core.UARTConfig {
	cfg := core.DefaultUART1Config(portA)
	cfg.ClockHz = c.ClockHz
	cfg.Baud = c.UARTBaud
	return cfg
}

// AddressBytes returns the poll addresses as bytes
func (c *Config) AddressBytes() []byte {
	out := make([]byte, len(c.Addresses))
	for i, addr := range c.Addresses {
		out[i] = byte(addr)
	}
	return out
}
