package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"stm32spi/host/monitor"
	"stm32spi/host/serial"
	"stm32spi/protocol"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", 115200, "Baud rate of the board's debug UART")
	verbose = flag.Bool("verbose", false, "Print decoder statistics on exit")
)

func main() {
	flag.Parse()

	fmt.Println("spimon - STM32L432 SPI telemetry monitor")
	fmt.Println("========================================")

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud

	fmt.Printf("Opening %s at %d baud...\n", *device, *baud)
	port, err := serial.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer port.Close()

	if err := port.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: flush failed: %v\n", err)
	}

	mon := monitor.New()
	done := make(chan error, 1)
	go func() {
		for {
			// Read timeouts end a run with EOF; keep listening
			if err := mon.Run(port, printEvent); err != nil {
				done <- err
				return
			}
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	select {
	case err := <-done:
		if !errors.Is(err, os.ErrClosed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	case <-interrupt:
		fmt.Println()
	}

	if *verbose {
		fmt.Printf("dropped frames: %d, unknown events: %d\n", mon.Dropped(), mon.BadEvents)
	}
}

func printEvent(e protocol.Event) {
	fmt.Println(monitor.Format(e))
}
