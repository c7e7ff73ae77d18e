// Command hideki-monitor wires a GPIO edge source and a CC1101 radio
// frontend into a Receiver and Decoder, and prints every validated
// frame it sees.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tve/hideki/gpioedge"
	"github.com/tve/hideki/hideki"
	"github.com/tve/hideki/radio"
	"github.com/tve/hideki/receiver"
)

func run(dataPin int, spiBus string, interrupt int, debug bool) error {
	edges, err := gpioedge.Open(dataPin, 500*time.Millisecond)
	if err != nil {
		return fmt.Errorf("opening GPIO data pin %d: %w", dataPin, err)
	}

	logf := receiver.LogPrintf(func(string, ...interface{}) {})
	if debug {
		logf = log.Printf
	}

	front, err := radio.Open(spiBus, radio.Opts{Interrupt: interrupt, Logger: radio.LogPrintf(logf)})
	if err != nil {
		edges.Close()
		return fmt.Errorf("opening CC1101 on %s: %w", spiBus, err)
	}

	recv := receiver.New(edges, front, 500*time.Millisecond, logf)
	recv.Start()
	defer recv.Close()

	dec := hideki.New(recv, hideki.LogPrintf(logf))
	dec.Start()
	defer dec.Stop()

	log.Printf("hideki-monitor: listening on GPIO %d / SPI %s", dataPin, spiBus)
	for {
		if frame, length, ok := dec.Fetch(); ok {
			log.Printf("frame: % x (length=%d rssi=%.1fdBm)", frame.Buffer[:length], length, frame.RSSI)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func main() {
	dataPin := flag.Int("pin", 17, "GPIO pin carrying the CC1101 data output")
	spiBus := flag.String("spi", "", "SPI bus name, empty selects the first available")
	interrupt := flag.Int("intr", 0, "0 routes data via GDO0, 2 via GDO2")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if err := run(*dataPin, *spiBus, *interrupt, *debug); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
