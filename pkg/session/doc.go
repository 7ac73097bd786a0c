// Package session drives a CRSF transmitter module over a Transport.
package session

// The Session owns the connection state machine: it pings the module
// until it answers with device info, enumerates the parameter
// catalogue, then streams RC channel frames while decoding telemetry.
//
// The engine is single threaded and cooperative. One owner calls
// Tick then HandleRx at a fixed cadence; nothing inside blocks, and
// all waiting is state carried across ticks. Other goroutines only
// read published Snapshot copies.
