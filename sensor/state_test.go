package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{CreatedState, "created"},
		{RunningState, "running"},
		{StoppedState, "stopped"},
		{ReleasedState, "released"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestAtomicState(t *testing.T) {
	var st AtomicState

	assert.Equal(t, CreatedState, st.Get())
	assert.False(t, st.IsRunning())
	assert.False(t, st.IsReleased())

	st.Set(RunningState)
	assert.True(t, st.IsRunning())
	assert.Equal(t, "running", st.String())

	st.Set(ReleasedState)
	assert.True(t, st.IsReleased())
	assert.False(t, st.IsRunning())
}

func TestErrorFromInt(t *testing.T) {
	assert.Equal(t, NoError, errorFromInt(0))
	assert.Equal(t, SensorNotFound, errorFromInt(int64(SensorNotFound)))
	assert.Equal(t, HardwareFault, errorFromInt(int64(HardwareFault)))
	assert.Equal(t, UnknownError, errorFromInt(999))
	assert.Equal(t, UnknownError, errorFromInt(-1))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "no-error", NoError.String())
	assert.Equal(t, "protocol-error", ProtocolError.String())
	assert.Equal(t, "unknown-error", Error(77).String())
}
