// Copyright 2017 by Thorsten von Eicken, see LICENSE file

// Package spimux lets two devices share a single SPI bus that only
// exposes one hardware chip-select line, by toggling an extra GPIO pin
// that drives an external CS demultiplexer.
package spimux

import (
	"errors"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Conn represents a connection to a device on an SPI bus with a
// multiplexed chip select.
//
// A sample circuit is to use a 74LVC1G19 demux with the SPI CS
// connected to E, the GPIO select pin connected to A, and the CS
// inputs of the two devices attached to Y0 and Y1 respectively. A
// pull-down resistor on the A input of the demux is recommended to
// ensure both CS remain inactive when the SPI CS is not driven.
//
// A limitation is that the speed setting and the configuration (SPI
// mode and number of bits) are shared between the two devices.
type Conn struct {
	mu     *sync.Mutex // prevent concurrent access to shared SPI bus
	conn   *spi.Conn   // the underlying SPI connection with shared chip select
	port   spi.Port
	selPin gpio.PinIO // pin to select between the two devices
	sel    gpio.Level // select value for this device
}

// New returns two connections sharing port, the first one driving
// selPin Low during its transfers, the second driving it High.
func New(port spi.PortCloser, selPin gpio.PinIO) (*Conn, *Conn) {
	mu := sync.Mutex{} // shared mutex
	var shared spi.Conn
	return &Conn{&mu, &shared, port, selPin, gpio.Low}, &Conn{&mu, &shared, port, selPin, gpio.High}
}

// Connect configures the shared bus on first use and returns c itself
// as the resulting spi.Conn.
func (c *Conn) Connect(f physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if *c.conn == nil {
		sc, err := c.port.Connect(f, mode, bits)
		if err != nil {
			return nil, err
		}
		*c.conn = sc
	}
	return c, nil
}

// Tx drives the select pin to this connection's level and then
// forwards to the shared underlying transfer, holding the mutex for
// the duration so the other device's transfers can't interleave.
func (c *Conn) Tx(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.selPin.Out(c.sel); err != nil {
		return err
	}
	return (*c.conn).Tx(w, r)
}

// Duplex implements the spi.Conn interface.
func (c *Conn) Duplex() conn.Duplex { return conn.Full }

// String implements the spi.Conn interface.
func (c *Conn) String() string { return "spimux" }

// TxPackets is not implemented; every transfer in this driver set is a
// single full-duplex exchange.
func (c *Conn) TxPackets(p []spi.Packet) error {
	return errors.New("spimux: TxPackets not implemented")
}

var _ spi.Conn = &Conn{}
