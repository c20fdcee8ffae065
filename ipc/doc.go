// Package ipc implements the control-channel protocol between a sensor client
// and the sensor daemon.
//
// The control channel is a synchronous request/response transport: every
// request carries a method or property name, a target object path and
// interface name, and a positional argument list. Messages are CBOR maps with
// integer keys, framed on the socket with a 4-byte big-endian length prefix.
//
// Conn owns the socket and the sender/receiver goroutines. Callers normally
// do not use Conn directly; InterfaceClient binds a (path, interface) pair and
// exposes blocking Call and Property methods, and Manager wraps the daemon's
// sensor registry interface.
package ipc
