package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TraceEvent captures one driver event for post-mortem analysis
type TraceEvent struct {
	Kind   uint8  // Event kind code
	Clock  uint32 // Timer count at event
	Value1 uint32 // Context-dependent value
	Value2 uint32 // Context-dependent value
}

// Trace event kinds
const (
	TraceConfigure = 1 // SPI configured: cr1, cr2
	TraceTransfer  = 2 // byte exchanged: tx, rx
	TraceTimeout   = 3 // status wait gave up: tx
	TraceDelay     = 4 // delay started: ms

	TraceReportFailed = 5 // telemetry write failed: tx
)

const (
	TraceRingSize = 32 // Keep last 32 events
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// traceClock stamps trace events; nil leaves Clock at zero
	traceClock func() uint32

	traceRing     [TraceRingSize]TraceEvent
	traceRingHead uint8
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, a host console, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// SetTraceClock sets the time source used to stamp trace events,
// usually Timebase.Now
func SetTraceClock(clock func() uint32) {
	traceClock = clock
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// RecordTrace stores an event in the ring buffer. It never blocks and never
// allocates, so it is safe to call between register accesses and from
// interrupt handlers.
func RecordTrace(kind uint8, value1, value2 uint32) {
	var clock uint32
	if traceClock != nil {
		clock = traceClock()
	}

	state := disableInterrupts()
	defer restoreInterrupts(state)

	idx := traceRingHead
	traceRing[idx] = TraceEvent{
		Kind:   kind,
		Clock:  clock,
		Value1: value1,
		Value2: value2,
	}
	traceRingHead = (idx + 1) % TraceRingSize
}

// TraceEvents returns the recorded events, oldest first
func TraceEvents() []TraceEvent {
	var out []TraceEvent
	start := traceRingHead
	for i := uint8(0); i < TraceRingSize; i++ {
		evt := traceRing[(start+i)%TraceRingSize]
		if evt.Kind == 0 {
			continue
		}
		out = append(out, evt)
	}
	return out
}

func traceKindName(kind uint8) string {
	switch kind {
	case TraceConfigure:
		return "CONFIGURE"
	case TraceTransfer:
		return "TRANSFER"
	case TraceTimeout:
		return "TIMEOUT!"
	case TraceDelay:
		return "DELAY"
	case TraceReportFailed:
		return "REPORT!"
	}
	return "UNKNOWN"
}

// DumpTrace writes the trace ring through the debug writer, oldest first.
// It writes even when debug output is disabled.
func DumpTrace() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[TRACE] === Trace Ring Dump ===")
	for _, evt := range TraceEvents() {
		debugPrintln("[TRACE] " + traceKindName(evt.Kind) +
			" clock=" + utoa(evt.Clock) +
			" v1=" + hex32(evt.Value1) +
			" v2=" + hex32(evt.Value2))
	}
	debugPrintln("[TRACE] === End Dump ===")
}

// ClearTrace clears the trace buffer
func ClearTrace() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for i := range traceRing {
		traceRing[i] = TraceEvent{}
	}
	traceRingHead = 0
}
