package ipc

// InterfaceClient binds a Conn to one remote object: every call it issues
// carries the same object path and interface name. It is the concrete
// control-channel caller handed to a sensor channel.
type InterfaceClient struct {
	conn  *Conn
	path  string
	iface string
}

// NewInterfaceClient creates a client for the remote interface iface at the
// given object path over conn.
func NewInterfaceClient(conn *Conn, path, iface string) *InterfaceClient {
	return &InterfaceClient{
		conn:  conn,
		path:  path,
		iface: iface,
	}
}

// Path returns the remote object path this client is bound to.
func (ic *InterfaceClient) Path() string { return ic.path }

// Iface returns the remote interface name this client is bound to.
func (ic *InterfaceClient) Iface() string { return ic.iface }

// Call invokes the named method with the given positional arguments and
// blocks until the response arrives or the reply timeout elapses.
func (ic *InterfaceClient) Call(member string, args ...any) (Result, error) {
	return ic.conn.call(OpCall, ic.path, ic.iface, member, args)
}

// Property reads the named property of the remote interface.
func (ic *InterfaceClient) Property(name string) (Result, error) {
	return ic.conn.call(OpGetProperty, ic.path, ic.iface, name, nil)
}
