package ipc

import (
	"fmt"

	"github.com/google/uuid"
)

// ManagerPath is the object path of the daemon's sensor registry.
const ManagerPath = "/SensorManager"

// ManagerIface is the interface name of the daemon's sensor registry.
const ManagerIface = "local.SensorManager"

// Manager is a client for the daemon's sensor registry.
//
// The registry loads sensor plugins, hands out session IDs for sensor
// channels, and releases them when a client is done. Each Manager carries a
// random client token that identifies this client instance to the daemon for
// session accounting.
type Manager struct {
	client      *InterfaceClient
	clientToken string
}

// NewManager creates a registry client over conn.
func NewManager(conn *Conn) *Manager {
	token := uuid.NewString()

	return &Manager{
		client:      NewInterfaceClient(conn, ManagerPath, ManagerIface),
		clientToken: token,
	}
}

// ClientToken returns the random token identifying this client instance.
func (m *Manager) ClientToken() string {
	return m.clientToken
}

// LoadPlugin asks the daemon to load the named sensor plugin. It returns
// whether the plugin is available after the call.
func (m *Manager) LoadPlugin(name string) (bool, error) {
	res, err := m.client.Call("loadPlugin", name)
	if err != nil {
		return false, fmt.Errorf("load plugin %q: %w", name, err)
	}

	return res.Bool()
}

// RequestSensor asks the registry for a new session on the named sensor
// channel and returns the assigned session ID.
func (m *Manager) RequestSensor(name string) (int32, error) {
	res, err := m.client.Call("requestSensor", name, m.clientToken)
	if err != nil {
		return 0, fmt.Errorf("request sensor %q: %w", name, err)
	}

	id, err := res.Int()
	if err != nil {
		return 0, fmt.Errorf("request sensor %q: decode session id: %w", name, err)
	}

	return int32(id), nil
}

// ReleaseInterface asks the registry to release the session identified by
// sessionID on the sensor interface identified by interfaceID. It returns
// whether the daemon dropped the session.
func (m *Manager) ReleaseInterface(interfaceID string, sessionID int32) (bool, error) {
	res, err := m.client.Call("releaseSensor", interfaceID, sessionID)
	if err != nil {
		return false, fmt.Errorf("release sensor %q session %d: %w", interfaceID, sessionID, err)
	}

	return res.Bool()
}
