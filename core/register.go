package core

// Register is the access surface of one 32-bit memory-mapped register.
// On hardware it is satisfied by TinyGo's *volatile.Register32; host builds
// and tests use MemRegister or the simulated peripherals in package sim.
type Register interface {
	Get() uint32
	Set(value uint32)
	SetBits(value uint32)
	ClearBits(value uint32)
	HasBits(value uint32) bool
}

// MemRegister is a plain in-memory register with no side effects on access
type MemRegister struct {
	Reg uint32
}

func (r *MemRegister) Get() uint32 {
	return r.Reg
}

func (r *MemRegister) Set(value uint32) {
	r.Reg = value
}

func (r *MemRegister) SetBits(value uint32) {
	r.Reg |= value
}

func (r *MemRegister) ClearBits(value uint32) {
	r.Reg &^= value
}

func (r *MemRegister) HasBits(value uint32) bool {
	return r.Reg&value != 0
}

// replaceField clears a field of the given width at pos and writes value into it
func replaceField(r Register, value, width, pos uint32) {
	mask := (uint32(1)<<width - 1) << pos
	r.ClearBits(mask)
	r.SetBits((value << pos) & mask)
}
