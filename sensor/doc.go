// Package sensor implements the client-side session handle to one sensor
// channel of the sensor daemon.
//
// A Channel composes two transports: a synchronous control channel for
// configuration and command RPCs, and a streaming data channel delivering raw
// measurement frames. It manages the session lifecycle (created, running,
// stopped, released), shadows configuration set while the session is stopped
// so it is applied at the next start, tracks a local error state that takes
// precedence over daemon-reported errors, and drives the data-range
// negotiation protocol.
//
// Frame payloads are sensor-type specific; a per-type FrameDecoder (see the
// accel package for an example) consumes frames from the channel's drain
// loop.
package sensor
