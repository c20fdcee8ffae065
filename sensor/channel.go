package sensor

import (
	"sync"

	"github.com/sensord-io/go-sensord/ipc"
	"github.com/sensord-io/go-sensord/logger"
)

// Channel is a client's subscription handle to one sensor channel of the
// daemon, identified by an opaque session ID.
//
// It composes the control channel (Caller) and the data channel (DataStream)
// into one session object. Control operations are mutually exclusive: a
// single mutex makes state transitions linearizable and interleaves the data
// drain loop with caller-issued operations, so a start or stop transition is
// fully applied before the next operation observes the new state.
//
// Configuration set while the session is stopped is cached and pushed to the
// daemon at the next start, so streaming begins with the client's desired
// parameters rather than daemon defaults.
type Channel struct {
	mu sync.Mutex

	caller   Caller
	registry Registry
	stream   DataStream
	decoder  FrameDecoder
	logger   logger.Logger

	sessionID int32
	state     AtomicState

	// Cached configuration. Each value is pending while the session is
	// stopped and confirmed remote while it is running.
	interval        int32
	bufferInterval  uint32
	bufferSize      uint32
	standbyOverride bool

	// Local error state. Takes precedence over daemon-reported errors until
	// explicitly cleared.
	errKind Error
	errMsg  string
}

// ChannelOption customizes NewChannel.
type ChannelOption func(*Channel)

// WithLogger sets the logger instance for the channel.
func WithLogger(l logger.Logger) ChannelOption {
	return func(ch *Channel) { ch.logger = l }
}

// WithDecoder sets the frame decoder for the channel.
func WithDecoder(d FrameDecoder) ChannelOption {
	return func(ch *Channel) { ch.decoder = d }
}

// NewChannel creates a session handle for the given session ID.
//
// The control caller must already be bound to the sensor's object path and
// interface name. The data channel is opened via opener; if that fails, a
// ClientSocketError is recorded as the local error and the channel remains
// usable for control-plane operations.
func NewChannel(caller Caller, registry Registry, opener StreamOpener, sessionID int32, opts ...ChannelOption) *Channel {
	ch := &Channel{
		caller:     caller,
		registry:   registry,
		sessionID:  sessionID,
		bufferSize: 1,
		logger:     logger.GetLogger(),
	}

	for _, opt := range opts {
		opt(ch)
	}

	if opener != nil {
		stream, err := opener(sessionID)
		if err != nil {
			ch.logger.Warn("failed to open data channel", "sessionID", sessionID, "error", err)
			ch.setErrorLocked(ClientSocketError, "socket connection failed")
		} else {
			ch.stream = stream
		}
	}

	return ch
}

// SetDecoder sets the frame decoder. It must be called before Start;
// sensor-type packages use it to attach themselves to the channel they wrap.
func (ch *Channel) SetDecoder(d FrameDecoder) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.decoder = d
}

// SessionID returns the session ID assigned to this channel at construction.
func (ch *Channel) SessionID() int32 {
	return ch.sessionID
}

// State returns the current lifecycle state.
func (ch *Channel) State() State {
	return ch.state.Get()
}

// IsRunning reports whether the session is currently running.
func (ch *Channel) IsRunning() bool {
	return ch.state.IsRunning()
}

// --- Lifecycle ---

// Start starts the session. Calling Start while running is a no-op returning
// nil without re-issuing the start RPC.
func (ch *Channel) Start() error {
	return ch.StartSession(ch.sessionID)
}

// StartSession starts the session identified by sessionID.
//
// It subscribes to data-channel readability, issues the blocking start RPC,
// and then pushes the cached configuration (standby override first, when
// set, then interval, buffer interval, and buffer size) so the daemon starts
// streaming with the client's parameters. Push failures are logged, not
// returned; the return value is the start RPC's error.
func (ch *Channel) StartSession(sessionID int32) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.state.IsReleased() {
		return ErrReleased
	}
	if ch.state.IsRunning() {
		return nil
	}

	ch.clearErrorLocked()
	ch.state.Set(RunningState)

	if ch.stream != nil {
		ch.stream.Subscribe(ch.dataReceived)
	}

	_, err := ch.caller.Call("start", sessionID)

	if ch.standbyOverride {
		if _, soErr := ch.callLocked("setStandbyOverride", sessionID, true); soErr != nil {
			ch.logger.Warn("failed to push standby override at start", "sessionID", sessionID, "error", soErr)
		}
	}

	// Send the cached configuration now that the session is running.
	ch.pushConfigLocked(sessionID, "setInterval", ch.interval)
	ch.pushConfigLocked(sessionID, "setBufferInterval", ch.bufferInterval)
	ch.pushConfigLocked(sessionID, "setBufferSize", ch.bufferSize)

	return err
}

// Stop stops the session. Calling Stop while not running (including on a
// session that never started) is a no-op returning nil and issuing zero RPCs.
func (ch *Channel) Stop() error {
	return ch.StopSession(ch.sessionID)
}

// StopSession stops the session identified by sessionID.
//
// It unsubscribes from readability notifications, forces standby override off
// and the interval request to zero on the daemon side, then issues the
// blocking stop RPC. The cached configuration values are left untouched.
func (ch *Channel) StopSession(sessionID int32) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.state.IsReleased() {
		return ErrReleased
	}
	if !ch.state.IsRunning() {
		return nil
	}

	ch.clearErrorLocked()
	ch.state.Set(StoppedState)

	if ch.stream != nil {
		ch.stream.Unsubscribe()
	}

	if _, err := ch.callLocked("setStandbyOverride", sessionID, false); err != nil {
		ch.logger.Warn("failed to drop standby override at stop", "sessionID", sessionID, "error", err)
	}
	// Drop interval requests while the client is not consuming data.
	ch.pushConfigLocked(sessionID, "setInterval", int32(0))

	_, err := ch.callLocked("stop", sessionID)

	return err
}

// Release releases the remote session via the registry and tears down the
// data channel. It is terminal: afterwards every control call returns
// ErrReleased. It returns whether the daemon dropped the session.
func (ch *Channel) Release() (bool, error) {
	ch.mu.Lock()
	released, stream, err := ch.releaseLocked()
	ch.mu.Unlock()

	ch.teardownStream(stream)

	return released, err
}

// Close releases the session (if not already released) and tears down the
// data channel, recording a local error if teardown fails. It never panics
// and is safe to call multiple times.
func (ch *Channel) Close() error {
	ch.mu.Lock()
	var stream DataStream
	if ch.state.IsReleased() {
		stream = ch.detachStreamLocked()
	} else {
		var err error
		_, stream, err = ch.releaseLocked()
		if err != nil {
			ch.logger.Warn("failed to release session on close", "sessionID", ch.sessionID, "error", err)
		}
	}
	ch.mu.Unlock()

	ch.teardownStream(stream)

	return nil
}

// releaseLocked performs the registry release and detaches the data stream.
// The caller tears the detached stream down after dropping the lock.
func (ch *Channel) releaseLocked() (bool, DataStream, error) {
	if ch.state.IsReleased() {
		return false, nil, ErrReleased
	}

	released := false
	var releaseErr error

	if ch.registry != nil {
		interfaceID := ""
		if res, err := ch.caller.Property("id"); err == nil {
			interfaceID, _ = res.String()
		}

		released, releaseErr = ch.registry.ReleaseInterface(interfaceID, ch.sessionID)
	}

	ch.state.Set(ReleasedState)

	return released, ch.detachStreamLocked(), releaseErr
}

func (ch *Channel) detachStreamLocked() DataStream {
	stream := ch.stream
	ch.stream = nil

	return stream
}

// teardownStream closes a detached data stream. It must be called without
// the channel lock held: closing the stream waits for its reader goroutine,
// which may itself be waiting on the lock to deliver a notification.
func (ch *Channel) teardownStream(stream DataStream) {
	if stream == nil {
		return
	}

	stream.Unsubscribe()
	if err := stream.Close(); err != nil {
		ch.logger.Warn("failed to close data channel", "sessionID", ch.sessionID, "error", err)
		ch.SetError(ClientSocketError, "socket disconnect failed")
	}
}

// --- Error state ---

// ErrorCode returns the local error kind when one is recorded, otherwise the
// daemon-reported error code mapped into the client vocabulary. After a
// release only local state is consulted; no further RPCs are issued.
func (ch *Channel) ErrorCode() Error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.errKind != NoError {
		return ch.errKind
	}
	if ch.state.IsReleased() {
		return NoError
	}

	res, err := ch.caller.Property("errorCodeInt")
	if err != nil {
		ch.logger.Debug("failed to read remote error code", "sessionID", ch.sessionID, "error", err)
		return NoError
	}

	code, err := res.Int()
	if err != nil {
		return NoError
	}

	return errorFromInt(code)
}

// ErrorString returns the local error message when one is recorded, otherwise
// the daemon-reported error string.
func (ch *Channel) ErrorString() string {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.errKind != NoError {
		return ch.errMsg
	}
	if ch.state.IsReleased() {
		return ""
	}

	res, err := ch.caller.Property("errorString")
	if err != nil {
		return ""
	}

	msg, _ := res.String()

	return msg
}

// SetError records a local error. Local errors take precedence over
// daemon-reported error state until cleared; frame decoders use this to
// surface protocol errors.
func (ch *Channel) SetError(kind Error, msg string) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.setErrorLocked(kind, msg)
}

// ClearError unconditionally resets the local error state.
func (ch *Channel) ClearError() {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.clearErrorLocked()
}

func (ch *Channel) setErrorLocked(kind Error, msg string) {
	ch.errKind = kind
	ch.errMsg = msg
}

func (ch *Channel) clearErrorLocked() {
	ch.errKind = NoError
	ch.errMsg = ""
}

// callLocked starts a fresh error-reporting epoch and issues a control RPC.
// Every control mutator goes through it, so a prior error does not mask the
// outcome of the next call.
func (ch *Channel) callLocked(member string, args ...any) (ipc.Result, error) {
	ch.clearErrorLocked()

	if ch.state.IsReleased() {
		return ipc.Result{}, ErrReleased
	}

	return ch.caller.Call(member, args...)
}

// pushConfigLocked issues a configuration RPC whose failure is logged rather
// than returned.
func (ch *Channel) pushConfigLocked(sessionID int32, member string, value any) {
	if _, err := ch.callLocked(member, sessionID, value); err != nil {
		ch.logger.Warn("failed to push configuration", "member", member, "sessionID", sessionID, "error", err)
	}
}

// --- Shadowed configuration ---

// Interval returns the sampling interval request in milliseconds: the live
// daemon value while running, the cached value otherwise.
func (ch *Channel) Interval() (int32, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.state.IsRunning() {
		res, err := ch.caller.Property("interval")
		if err != nil {
			return 0, err
		}
		v, err := res.Int()

		return int32(v), err
	}

	return ch.interval, nil
}

// SetInterval caches the sampling interval request and, while the session is
// running, pushes it to the daemon immediately. While stopped the value is
// applied at the next start.
func (ch *Channel) SetInterval(value int32) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.interval = value
	if ch.state.IsRunning() {
		_, err := ch.callLocked("setInterval", ch.sessionID, value)
		return err
	}

	return nil
}

// BufferInterval returns the buffering interval in milliseconds: the live
// daemon value while running, the cached value otherwise.
func (ch *Channel) BufferInterval() (uint32, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.state.IsRunning() {
		res, err := ch.caller.Property("bufferInterval")
		if err != nil {
			return 0, err
		}
		v, err := res.Uint()

		return uint32(v), err
	}

	return ch.bufferInterval, nil
}

// SetBufferInterval caches the buffering interval and, while the session is
// NOT running, pushes it to the daemon immediately. While running the value
// is cached only and pushed at the next start.
//
// Note the asymmetry with SetInterval, which pushes only while running. This
// reproduces the daemon protocol's historical behavior; see DESIGN.md before
// changing either setter.
func (ch *Channel) SetBufferInterval(value uint32) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.bufferInterval = value
	if !ch.state.IsRunning() {
		_, err := ch.callLocked("setBufferInterval", ch.sessionID, value)
		return err
	}

	return nil
}

// BufferSize returns the buffering sample count: the live daemon value while
// running, the cached value otherwise.
func (ch *Channel) BufferSize() (uint32, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.state.IsRunning() {
		res, err := ch.caller.Property("bufferSize")
		if err != nil {
			return 0, err
		}
		v, err := res.Uint()

		return uint32(v), err
	}

	return ch.bufferSize, nil
}

// SetBufferSize caches the buffering sample count and, while the session is
// NOT running, pushes it to the daemon immediately. Same asymmetry as
// SetBufferInterval.
func (ch *Channel) SetBufferSize(value uint32) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.bufferSize = value
	if !ch.state.IsRunning() {
		_, err := ch.callLocked("setBufferSize", ch.sessionID, value)
		return err
	}

	return nil
}

// StandbyOverride returns whether the sensor keeps delivering data in device
// standby: the live daemon value while running, the cached value otherwise.
func (ch *Channel) StandbyOverride() (bool, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.state.IsRunning() {
		res, err := ch.caller.Property("standbyOverride")
		if err != nil {
			return false, err
		}

		return res.Bool()
	}

	return ch.standbyOverride, nil
}

// SetStandbyOverride caches the standby override flag and always pushes it to
// the daemon, regardless of session state. It returns the daemon's resulting
// flag value.
func (ch *Channel) SetStandbyOverride(value bool) (bool, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.standbyOverride = value

	res, err := ch.callLocked("setStandbyOverride", ch.sessionID, value)
	if err != nil {
		return false, err
	}

	return res.Bool()
}

// --- Read-only properties ---

// Description returns the daemon's human-readable sensor description.
func (ch *Channel) Description() (string, error) {
	return ch.stringProperty("description")
}

// InterfaceID returns the daemon-side identifier of the sensor interface.
func (ch *Channel) InterfaceID() (string, error) {
	return ch.stringProperty("id")
}

// SensorType returns the daemon-side sensor type name.
func (ch *Channel) SensorType() (string, error) {
	return ch.stringProperty("type")
}

func (ch *Channel) stringProperty(name string) (string, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.state.IsReleased() {
		return "", ErrReleased
	}

	res, err := ch.caller.Property(name)
	if err != nil {
		return "", err
	}

	return res.String()
}

// --- Data-range negotiation ---

// AvailableDataRanges returns the daemon's admissible data ranges. Always a
// live round trip; the result is never cached.
func (ch *Channel) AvailableDataRanges() (DataRangeList, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	return ch.availableDataRangesLocked()
}

func (ch *Channel) availableDataRangesLocked() (DataRangeList, error) {
	if ch.state.IsReleased() {
		return nil, ErrReleased
	}

	res, err := ch.caller.Call("getAvailableDataRanges")
	if err != nil {
		return nil, err
	}

	var ranges DataRangeList
	if err := res.Decode(&ranges); err != nil {
		return nil, err
	}

	return ranges, nil
}

// CurrentDataRange returns the data range currently in effect.
func (ch *Channel) CurrentDataRange() (DataRange, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	return ch.currentDataRangeLocked()
}

func (ch *Channel) currentDataRangeLocked() (DataRange, error) {
	res, err := ch.callLocked("getCurrentDataRange")
	if err != nil {
		return DataRange{}, err
	}

	var r DataRange
	if err := res.Decode(&r); err != nil {
		return DataRange{}, err
	}

	return r, nil
}

// RequestDataRange asks the daemon to switch to the given range. Acceptance
// is not verified; callers must re-query CurrentDataRange to confirm.
func (ch *Channel) RequestDataRange(r DataRange) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	_, err := ch.callLocked("requestDataRange", ch.sessionID, r)

	return err
}

// RemoveDataRangeRequest releases a prior explicit range request, reverting
// to the daemon's default arbitration.
func (ch *Channel) RemoveDataRangeRequest() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	_, err := ch.callLocked("removeDataRangeRequest", ch.sessionID)

	return err
}

// SetDataRangeIndex requests the data range at the given index of the
// daemon's range list, then verifies the outcome with a round trip: it
// reports whether the daemon's current range now equals the requested entry.
//
// A false return means the request did not take effect (the daemon may
// silently reject or coerce the index); it is not an error by itself.
func (ch *Channel) SetDataRangeIndex(index int) (bool, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if _, err := ch.callLocked("setDataRangeIndex", ch.sessionID, index); err != nil {
		return false, err
	}

	ranges, err := ch.availableDataRangesLocked()
	if err != nil {
		return false, err
	}

	current, err := ch.currentDataRangeLocked()
	if err != nil {
		return false, err
	}

	if index < 0 || index >= len(ranges) {
		return false, nil
	}

	return ranges[index] == current, nil
}

// AvailableIntervals returns the daemon's admissible sampling intervals.
func (ch *Channel) AvailableIntervals() (DataRangeList, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.state.IsReleased() {
		return nil, ErrReleased
	}

	res, err := ch.caller.Call("getAvailableIntervals")
	if err != nil {
		return nil, err
	}

	var ranges DataRangeList
	if err := res.Decode(&ranges); err != nil {
		return nil, err
	}

	return ranges, nil
}

// AvailableBufferIntervals returns the daemon's admissible buffering
// intervals. Capability discovery, independent of the session state.
func (ch *Channel) AvailableBufferIntervals() (IntegerRangeList, error) {
	return ch.integerRangeCall("getAvailableBufferIntervals")
}

// AvailableBufferSizes returns the daemon's admissible buffering sample
// counts. Capability discovery, independent of the session state.
func (ch *Channel) AvailableBufferSizes() (IntegerRangeList, error) {
	return ch.integerRangeCall("getAvailableBufferSizes")
}

func (ch *Channel) integerRangeCall(member string) (IntegerRangeList, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.state.IsReleased() {
		return nil, ErrReleased
	}

	res, err := ch.caller.Call(member)
	if err != nil {
		return nil, err
	}

	var ranges IntegerRangeList
	if err := res.Decode(&ranges); err != nil {
		return nil, err
	}

	return ranges, nil
}

// HwBuffering reports whether the underlying sensor buffers samples in
// hardware. Read-only capability flag.
func (ch *Channel) HwBuffering() (bool, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.state.IsReleased() {
		return false, ErrReleased
	}

	res, err := ch.caller.Call("hwBuffering")
	if err != nil {
		return false, err
	}

	return res.Bool()
}

// --- Data-channel drain ---

// dataReceived is the readability callback. It drains every fully-buffered
// frame per notification: the decoder consumes one frame at a time until it
// reports a partial frame or the channel runs dry.
func (ch *Channel) dataReceived() {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if !ch.state.IsRunning() || ch.decoder == nil || ch.stream == nil {
		return
	}

	for {
		if !ch.decoder.DecodeFrame(ch) {
			return
		}
		if ch.stream.Available() == 0 {
			return
		}
	}
}

// Read fills p with exactly len(p) bytes from the data channel. It returns
// false, consuming nothing, when that many bytes are not buffered yet; the
// decoder should treat this as a partial frame and wait for more data.
//
// Read is the pass-through used by frame decoders inside DecodeFrame; it
// relies on the drain loop already holding the channel lock.
func (ch *Channel) Read(p []byte) bool {
	if ch.stream == nil {
		return false
	}

	return ch.stream.Read(p)
}
