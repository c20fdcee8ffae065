package ipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRequestSensor(t *testing.T) {
	var gotReq *Request
	daemon := startTestDaemon(t, func(req *Request) *Response {
		switch req.Member {
		case "requestSensor":
			gotReq = req
			return okResponse(t, req, int32(7))
		default:
			return &Response{ID: req.ID, Status: StatusUnknownMember}
		}
	})

	conn := dialTestDaemon(t, daemon)
	mgr := NewManager(conn)

	sessionID, err := mgr.RequestSensor("accelerometersensor")
	require.NoError(t, err)
	assert.Equal(t, int32(7), sessionID)

	require.NotNil(t, gotReq)
	assert.Equal(t, ManagerPath, gotReq.Path)
	assert.Equal(t, ManagerIface, gotReq.Iface)
	require.Len(t, gotReq.Args, 2)
	assert.Equal(t, "accelerometersensor", gotReq.Args[0])
	assert.Equal(t, mgr.ClientToken(), gotReq.Args[1], "session requests must carry the client token")
}

func TestManagerLoadPlugin(t *testing.T) {
	daemon := startTestDaemon(t, func(req *Request) *Response {
		if req.Member != "loadPlugin" {
			return &Response{ID: req.ID, Status: StatusUnknownMember}
		}
		return okResponse(t, req, true)
	})

	conn := dialTestDaemon(t, daemon)
	mgr := NewManager(conn)

	ok, err := mgr.LoadPlugin("accelerometersensor")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestManagerReleaseInterface(t *testing.T) {
	var gotReq *Request
	daemon := startTestDaemon(t, func(req *Request) *Response {
		gotReq = req
		return okResponse(t, req, true)
	})

	conn := dialTestDaemon(t, daemon)
	mgr := NewManager(conn)

	released, err := mgr.ReleaseInterface("accelerometersensor", 7)
	require.NoError(t, err)
	assert.True(t, released)

	require.NotNil(t, gotReq)
	assert.Equal(t, "releaseSensor", gotReq.Member)
}

func TestManagerErrorWrapping(t *testing.T) {
	daemon := startTestDaemon(t, func(req *Request) *Response {
		return &Response{ID: req.ID, Status: StatusError, ErrText: "plugin load failed"}
	})

	conn := dialTestDaemon(t, daemon)
	mgr := NewManager(conn)

	_, err := mgr.LoadPlugin("magnetometersensor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "magnetometersensor")

	callErr := &CallError{}
	assert.ErrorAs(t, err, &callErr)
}

func TestManagerClientTokensDiffer(t *testing.T) {
	daemon := startTestDaemon(t, nil)
	conn := dialTestDaemon(t, daemon)

	a := NewManager(conn)
	b := NewManager(conn)
	assert.NotEmpty(t, a.ClientToken())
	assert.NotEqual(t, a.ClientToken(), b.ClientToken())
}
