package core

import (
	"errors"
	"tinygo.org/x/drivers"
)

var ErrNoAddresses = errors.New("poll address list is empty")

// Poller repeatedly exchanges one byte with the slave and waits between
// exchanges. Addresses are sent in order and the list restarts when it runs
// out.
type Poller struct {
	Bus        drivers.SPI
	Timebase   *Timebase
	Reporter   Reporter // may be nil
	Addresses  []byte
	IntervalMS uint32

	next int
}

// Step performs one exchange followed by one interval delay. A bus timeout
// is reported and returned, but the delay still runs. Other transfer errors
// are returned without a report. A failed report is returned when the
// transfer itself succeeded.
func (p *Poller) Step() error {
	if len(p.Addresses) == 0 {
		return ErrNoAddresses
	}
	if p.next >= len(p.Addresses) {
		p.next = 0
	}
	addr := p.Addresses[p.next]
	p.next = (p.next + 1) % len(p.Addresses)

	clock := p.Timebase.Now()
	rx, err := p.Bus.Transfer(addr)
	if reportErr := p.report(clock, addr, rx, err); reportErr != nil {
		RecordTrace(TraceReportFailed, uint32(addr), 0)
		if err == nil {
			err = reportErr
		}
	}

	RecordTrace(TraceDelay, p.IntervalMS, 0)
	p.Timebase.DelayMilliseconds(p.IntervalMS)
	return err
}

func (p *Poller) report(clock uint32, addr, rx byte, err error) error {
	if p.Reporter == nil {
		return nil
	}
	switch {
	case err == nil:
		return p.Reporter.ReportTransfer(clock, addr, rx)
	case errors.Is(err, ErrBusTimeout):
		return p.Reporter.ReportTimeout(clock, addr)
	}
	return nil
}

// Run calls Step n times, or forever when n is 0. Bus timeouts do not stop
// the loop; any other error does.
func (p *Poller) Run(n int) error {
	for i := 0; n == 0 || i < n; i++ {
		if err := p.Step(); err != nil && !errors.Is(err, ErrBusTimeout) {
			return err
		}
	}
	return nil
}
