package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"stm32spi/config"
	"stm32spi/core"
	"stm32spi/host/monitor"
	"stm32spi/protocol"
	"stm32spi/sim"
)

var (
	configPath = flag.String("config", "", "JSON board configuration (defaults if empty)")
	steps      = flag.Int("steps", 8, "Number of poll loop iterations")
	busyPolls  = flag.Int("busy", 4, "Status reads the simulated bus stays busy per frame")
	stuck      = flag.Bool("stuck", false, "Simulate a bus that never goes idle (needs spin_limit)")
	verbose    = flag.Bool("verbose", false, "Enable firmware debug output and dump the trace ring")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *stuck && cfg.SpinLimit == 0 {
		fmt.Fprintln(os.Stderr, "Error: -stuck needs spin_limit in the configuration")
		os.Exit(1)
	}
	if *steps <= 0 {
		fmt.Fprintln(os.Stderr, "Error: -steps must be positive")
		os.Exit(1)
	}

	// The UART output is decoded as it is written
	mon := monitor.New()
	uartOut := writerFunc(func(p []byte) (int, error) {
		mon.Feed(p, printEvent)
		return len(p), nil
	})

	board := sim.NewBoard(cfg, uartOut)
	board.SPI1.BusyPolls = *busyPolls
	board.SPI1.Stuck = *stuck

	if err := run(board); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%d frames on the bus, timer read %d times\n", len(board.SPI1.Frames), board.TIM2.CNT.Reads)
	if mon.Dropped() != 0 || mon.BadEvents != 0 {
		fmt.Printf("dropped frames: %d, unknown events: %d\n", mon.Dropped(), mon.BadEvents)
	}
}

func run(board *sim.Board) error {
	tb, err := board.StartTimer()
	if err != nil {
		return fmt.Errorf("timer: %w", err)
	}
	core.SetTraceClock(tb.Now)

	uart, err := board.StartUART()
	if err != nil {
		return fmt.Errorf("uart: %w", err)
	}
	reporter := core.NewFrameReporter(uart)
	core.SetDebugWriter(reporter.Log)
	core.SetDebugEnabled(*verbose)

	spi, err := board.StartSPI()
	if err != nil {
		return fmt.Errorf("spi: %w", err)
	}
	cr1, cr2 := spi.ControlRegisters()
	if err := reporter.ReportConfig(spi.Policy().Name(), cr1, cr2); err != nil {
		return fmt.Errorf("report config: %w", err)
	}

	if err := board.Poller(spi, tb, reporter).Run(*steps); err != nil {
		return fmt.Errorf("poll: %w", err)
	}

	if *verbose {
		core.DumpTrace()
	}
	return nil
}

func printEvent(e protocol.Event) {
	fmt.Println(monitor.Format(e))
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

var _ io.Writer = writerFunc(nil)
