package core

// DelayOneSecond waits one full counter period, approximately one second
// at the nominal clock
func (tb *Timebase) DelayOneSecond() {
	tb.WaitTicks(uint64(tb.period))
}

// DelayMilliseconds waits ms milliseconds
func (tb *Timebase) DelayMilliseconds(ms uint32) {
	tb.WaitTicks(tb.TicksFromMS(ms))
}

// DelayMicroseconds waits us microseconds. Resolution is one tick-per-us
// step; at 4MHz that is 4 ticks.
func (tb *Timebase) DelayMicroseconds(us uint32) {
	tb.WaitTicks(tb.TicksFromUS(us))
}
