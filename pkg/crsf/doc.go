// Package crsf provides CRSF wire protocol support.
package crsf

// CRSF (Crossfire) is a compact serial protocol spoken between an RC
// handset/transmitter module, receivers and flight controllers.
//
// This package covers the transmitter-module side of the link: frame
// framing and CRC validation, the 11-bit RC channel packing, telemetry
// decoding (battery, link statistics, radio sync) and the chunked
// parameter entry protocol with its typed value decoders.
//
// Everything here is a pure transform over bytes. Transport handling
// and connection state live in package session.
//
// Producer: ExpressLRS / Crossfire transmitter module
// Consumer: session engine driving the module over a serial port
