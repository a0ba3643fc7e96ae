package core

// SPIRegisters is the register block of one SPI peripheral (SPI1)
type SPIRegisters struct {
	CR1 Register
	CR2 Register
	SR  Register
	DR  Register
}

// SPI_CR1 bits
const (
	SPI_CR1_CPHA     = 1 << 0
	SPI_CR1_CPOL     = 1 << 1
	SPI_CR1_MSTR     = 1 << 2
	SPI_CR1_BR_Pos   = 3
	SPI_CR1_BR_Msk   = 0x7 << SPI_CR1_BR_Pos
	SPI_CR1_SPE      = 1 << 6
	SPI_CR1_LSBFIRST = 1 << 7
	SPI_CR1_SSI      = 1 << 8
	SPI_CR1_SSM      = 1 << 9
	SPI_CR1_RXONLY   = 1 << 10
	SPI_CR1_CRCL     = 1 << 11
	SPI_CR1_CRCNEXT  = 1 << 12
	SPI_CR1_CRCEN    = 1 << 13
	SPI_CR1_BIDIOE   = 1 << 14
	SPI_CR1_BIDIMODE = 1 << 15
)

// SPI_CR2 bits
const (
	SPI_CR2_RXDMAEN = 1 << 0
	SPI_CR2_TXDMAEN = 1 << 1
	SPI_CR2_SSOE    = 1 << 2
	SPI_CR2_NSSP    = 1 << 3
	SPI_CR2_FRF     = 1 << 4
	SPI_CR2_ERRIE   = 1 << 5
	SPI_CR2_RXNEIE  = 1 << 6
	SPI_CR2_TXEIE   = 1 << 7
	SPI_CR2_DS_Pos  = 8
	SPI_CR2_DS_Msk  = 0xF << SPI_CR2_DS_Pos
	SPI_CR2_FRXTH   = 1 << 12

	// DS field value for 16-bit frames
	SPI_CR2_DS_16BIT = 0xF << SPI_CR2_DS_Pos
)

// SPI_SR bits
const (
	SPI_SR_RXNE = 1 << 0
	SPI_SR_TXE  = 1 << 1
	SPI_SR_BSY  = 1 << 7
)

// BaudDivisor is the 3-bit BR field: the SPI clock is fPCLK / 2^(BR+1)
type BaudDivisor uint8

const (
	BaudDiv2   BaudDivisor = 0
	BaudDiv4   BaudDivisor = 1
	BaudDiv8   BaudDivisor = 2
	BaudDiv16  BaudDivisor = 3
	BaudDiv32  BaudDivisor = 4
	BaudDiv64  BaudDivisor = 5
	BaudDiv128 BaudDivisor = 6
	BaudDiv256 BaudDivisor = 7
)

// Rate returns the SCK frequency produced from a bus clock of pclk Hz
func (d BaudDivisor) Rate(pclk uint32) uint32 {
	return pclk >> (uint32(d) + 1)
}

// SPIMode represents SPI clock polarity and phase (0-3)
// Mode 0: CPOL=0, CPHA=0 (clock idle low, sample on rising edge)
// Mode 1: CPOL=0, CPHA=1 (clock idle low, sample on falling edge)
// Mode 2: CPOL=1, CPHA=0 (clock idle high, sample on falling edge)
// Mode 3: CPOL=1, CPHA=1 (clock idle high, sample on rising edge)
type SPIMode uint8

// ModeFromPolarity builds a mode number from CPOL and CPHA
func ModeFromPolarity(cpol, cpha bool) SPIMode {
	var m SPIMode
	if cpol {
		m |= 2
	}
	if cpha {
		m |= 1
	}
	return m
}

func (m SPIMode) cr1Bits() uint32 {
	var bits uint32
	if m&2 != 0 {
		bits |= SPI_CR1_CPOL
	}
	if m&1 != 0 {
		bits |= SPI_CR1_CPHA
	}
	return bits
}

// SPIConfig holds the bus parameters shared by both slave select policies
type SPIConfig struct {
	Mode    SPIMode     // SPI mode (0-3), mode 3 by default in this firmware
	Divisor BaudDivisor // BR field

	// SpinLimit bounds every wait on BSY/RXNE to that many status polls.
	// Zero keeps the plain polling loop that spins until the flags settle,
	// however long that takes.
	SpinLimit uint32
}

// DefaultSPIConfig returns mode 3, fPCLK/64, unbounded waits
func DefaultSPIConfig() SPIConfig {
	return SPIConfig{Mode: 3, Divisor: BaudDiv64}
}
