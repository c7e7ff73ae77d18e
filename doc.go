// Package hideki is the root of a small collection of packages that
// receive and decode 433.92MHz Cresta/Hideki weather-sensor
// broadcasts: gpioedge captures GPIO edge timings, radio drives a
// CC1101 sub-GHz transceiver over SPI, pulse queues the resulting
// pulse durations, receiver turns edges into pulses, and the hideki
// package (github.com/tve/hideki/hideki) reassembles and
// checksum-verifies the frames. See cmd/hideki-monitor for a
// end-to-end example.
package hideki
