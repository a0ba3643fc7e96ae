//go:build !tinygo

package core

// State stands in for the saved interrupt mask on host builds
type State uintptr

// Host builds have no interrupts to mask
func disableInterrupts() State {
	return 0
}

func restoreInterrupts(state State) {}
