package core

// ElapsedTicks returns the counter progress between two consecutive samples
// of a counter that reloads at period. A current sample below the previous
// one means exactly one wrap happened in between.
func ElapsedTicks(prev, cur, period uint32) uint32 {
	if cur < prev {
		return (period - prev) + cur
	}
	return cur - prev
}

// WaitTicks blocks until at least goal ticks of counter progress have been
// observed. The counter may start anywhere; at most one wrap may happen
// between two samples, which holds as long as the loop polls far more often
// than once per period.
//
// This is a pure busy-wait on the calling goroutine with no yield point and
// no way to cancel it. It starves anything else scheduled cooperatively on
// the same thread.
func (tb *Timebase) WaitTicks(goal uint64) {
	var accumulated uint64
	prev := tb.regs.CNT.Get()
	for accumulated < goal {
		cur := tb.regs.CNT.Get()
		accumulated += uint64(ElapsedTicks(prev, cur, tb.period))
		prev = cur
	}
}
