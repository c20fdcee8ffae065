package ipc

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/sensord-io/go-sensord/internal/pool"
	"github.com/sensord-io/go-sensord/logger"
)

// request is a sender-queue entry: an encoded, framed control-channel request
// together with its ID for error reporting.
type request struct {
	id     uint32
	framed []byte
}

// Conn represents a control-channel connection to the sensor daemon.
//
// It owns the socket and two goroutines: a sender task draining the request
// queue, and a receiver task decoding framed responses and dispatching them
// to the pending-reply channels. All exported call methods block until the
// matching response arrives, the reply timeout elapses, or the connection
// closes.
type Conn struct {
	pctx   context.Context
	cfg    *ConnConfig
	logger logger.Logger

	connMutex sync.Mutex
	conn      net.Conn

	opened   atomic.Bool
	shutdown atomic.Bool

	taskMgr *taskManager

	senderMsgChan chan *request
	replyMsgChans *xsync.MapOf[uint32, chan *Response]
	replyErrs     *xsync.MapOf[uint32, error]

	metrics ConnMetrics
}

// NewConn creates a new control-channel connection with the given parent
// context and configuration. The connection is not established until Open is
// called.
func NewConn(ctx context.Context, cfg *ConnConfig) (*Conn, error) {
	if cfg == nil {
		return nil, ErrConnConfigNil
	}

	c := &Conn{
		pctx:          ctx,
		cfg:           cfg,
		logger:        cfg.logger,
		senderMsgChan: make(chan *request, cfg.senderQueueSize),
		replyMsgChans: xsync.NewMapOf[uint32, chan *Response](),
		replyErrs:     xsync.NewMapOf[uint32, error](),
	}

	return c, nil
}

// Open dials the daemon's control socket and starts the sender and receiver
// tasks. It returns an error if the connection cannot be established.
func (c *Conn) Open() error {
	if c.opened.Load() {
		return nil
	}

	conn, err := net.DialTimeout(c.cfg.network, c.cfg.address, c.cfg.connectTimeout)
	if err != nil {
		return err
	}

	c.connMutex.Lock()
	c.conn = conn
	c.connMutex.Unlock()

	c.shutdown.Store(false)
	c.opened.Store(true)

	c.taskMgr = newTaskManager(c.pctx, c.logger)
	c.taskMgr.StartSender("ipcSenderTask", c.senderTask, c.senderMsgChan)
	c.taskMgr.StartReceiver("ipcReceiverTask", c.receiverTask, c.dropAllReplyMsgs)

	c.logger.Debug("control channel opened", "network", c.cfg.network, "address", c.cfg.address)

	return nil
}

// Close closes the control channel gracefully.
//
// It terminates the sender and receiver tasks, closes the socket, and fails
// all pending calls with ErrConnClosed. Close is idempotent.
func (c *Conn) Close() error {
	if !c.opened.Swap(false) {
		return nil
	}

	c.shutdown.Store(true)
	c.taskMgr.Stop()

	c.connMutex.Lock()
	if c.conn != nil {
		if tcpConn, ok := c.conn.(*net.TCPConn); ok {
			_ = tcpConn.SetLinger(0)
		}
		if err := c.conn.Close(); err != nil {
			c.logger.Error("failed to close control socket", "method", "Close", "error", err)
		}
		c.conn = nil
	}
	c.connMutex.Unlock()

	c.dropAllReplyMsgs()

	waitCh := make(chan struct{})
	go func() {
		c.taskMgr.Wait()
		close(waitCh)
	}()

	closeTimer := pool.GetTimer(c.cfg.closeTimeout)
	defer pool.PutTimer(closeTimer)

	select {
	case <-waitCh:
		c.logger.Debug("control channel closed")
		return nil
	case <-closeTimer.C:
		c.logger.Error("close control channel timeout", "timeout", c.cfg.closeTimeout)
		return errors.New("ipc: close connection timeout")
	}
}

// Metrics returns the metrics associated with the connection.
func (c *Conn) Metrics() *ConnMetrics {
	return &c.metrics
}

// Logger returns the logger associated with the connection.
func (c *Conn) Logger() logger.Logger {
	return c.logger
}

// call sends one request and blocks until its response arrives, the reply
// timeout elapses, or the connection closes.
func (c *Conn) call(op Op, path, iface, member string, args []any) (Result, error) {
	if !c.opened.Load() {
		return Result{}, ErrNotConnected
	}
	if c.shutdown.Load() {
		return Result{}, ErrConnClosed
	}

	req := &Request{
		ID:     GenerateRequestID(),
		Op:     op,
		Path:   path,
		Iface:  iface,
		Member: member,
		Args:   args,
	}

	framed, err := EncodeRequest(req)
	if err != nil {
		return Result{}, err
	}

	replyCh := c.addPendingReply(req.ID)

	if err := c.queueRequest(&request{id: req.ID, framed: framed}); err != nil {
		c.removePendingReply(req.ID)
		return Result{}, err
	}

	replyTimer := pool.GetTimer(c.cfg.replyTimeout)
	defer pool.PutTimer(replyTimer)

	select {
	case <-c.taskMgr.Done():
		c.removePendingReply(req.ID)
		return Result{}, ErrConnClosed

	case <-replyTimer.C:
		c.removePendingReply(req.ID)
		c.logger.Warn("reply timeout", "method", "call", "member", member, "id", req.ID, "timeout", c.cfg.replyTimeout)
		return Result{}, ErrReplyTimeout

	case rsp := <-replyCh:
		if rsp == nil {
			if sendErr, ok := c.replyErrs.LoadAndDelete(req.ID); ok {
				return Result{}, sendErr
			}
			return Result{}, ErrConnClosed
		}

		if !rsp.Status.IsOK() {
			c.metrics.incRequestErrCount()
			return Result{}, &CallError{Status: rsp.Status, Member: member, Message: rsp.ErrText}
		}

		return rsp.Result(), nil
	}
}

// queueRequest hands the framed request to the sender task, bounded by the
// send timeout to avoid blocking the caller on a full queue.
func (c *Conn) queueRequest(req *request) error {
	sendTimer := pool.GetTimer(c.cfg.sendTimeout)
	defer pool.PutTimer(sendTimer)

	select {
	case <-sendTimer.C:
		return ErrSendTimeout
	case c.senderMsgChan <- req:
		return nil
	}
}

// addPendingReply registers a buffered reply channel for the request ID.
//
// The channel has capacity 1 so the receiver task never blocks delivering
// into it; ownership of the map entry is transferred with LoadAndDelete, so
// exactly one side (receiver, error path, or the timed-out caller) claims it.
func (c *Conn) addPendingReply(id uint32) <-chan *Response {
	ch := make(chan *Response, 1)
	c.replyMsgChans.Store(id, ch)
	c.metrics.incRequestInflightCount()

	return ch
}

// removePendingReply drops the reply channel for the given request ID, if it
// is still pending.
func (c *Conn) removePendingReply(id uint32) {
	if _, ok := c.replyMsgChans.LoadAndDelete(id); ok {
		c.metrics.decRequestInflightCount()
	}
}

// dropAllReplyMsgs fails every pending call, releasing their waiters.
func (c *Conn) dropAllReplyMsgs() {
	c.replyMsgChans.Range(func(id uint32, _ chan *Response) bool {
		if ch, ok := c.replyMsgChans.LoadAndDelete(id); ok {
			c.metrics.decRequestInflightCount()
			ch <- nil
		}
		return true
	})
}

// senderTask writes one framed request to the socket.
func (c *Conn) senderTask(req *request) bool {
	c.connMutex.Lock()
	conn := c.conn
	c.connMutex.Unlock()

	if conn == nil {
		c.replyErrToCaller(req.id, ErrConnClosed)
		return false
	}

	if err := conn.SetWriteDeadline(time.Now().Add(c.cfg.sendTimeout)); err != nil {
		c.replyErrToCaller(req.id, err)
		return false
	}

	if _, err := conn.Write(req.framed); err != nil {
		c.metrics.incRequestErrCount()
		c.replyErrToCaller(req.id, err)

		opErr := &net.OpError{}
		if !errors.As(err, &opErr) {
			c.logger.Error("failed to send request", "method", "senderTask", "error", err)
		}

		return false
	}

	c.metrics.incRequestSendCount()

	return true
}

// receiverTask reads and decodes one framed response from the socket and
// dispatches it to the matching pending caller.
func (c *Conn) receiverTask(msgLenBuf []byte) bool {
	c.connMutex.Lock()
	conn := c.conn
	c.connMutex.Unlock()

	if conn == nil {
		return false
	}

	body, err := ReadFrame(conn, msgLenBuf)
	if err != nil {
		if err != io.EOF && !errors.Is(err, net.ErrClosed) && !strings.Contains(err.Error(), "connection reset by peer") {
			c.logger.Error("failed to read response frame", "method", "receiverTask", "error", err)
		}

		return false
	}

	rsp, err := DecodeResponse(body)
	if err != nil {
		c.metrics.incRequestErrCount()
		c.logger.Error("failed to decode response", "method", "receiverTask", "error", err)

		return true
	}

	c.metrics.incResponseRecvCount()
	c.replyToCaller(rsp)

	return true
}

// replyToCaller delivers a response to its pending caller, if any.
func (c *Conn) replyToCaller(rsp *Response) {
	ch, ok := c.replyMsgChans.LoadAndDelete(rsp.ID)
	if !ok {
		c.metrics.incOrphanRecvCount()
		c.logger.Debug("response with no pending request", "method", "replyToCaller", "id", rsp.ID)

		return
	}

	c.metrics.decRequestInflightCount()
	ch <- rsp
}

// replyErrToCaller fails the pending call for the given request ID.
func (c *Conn) replyErrToCaller(id uint32, err error) {
	if ch, ok := c.replyMsgChans.LoadAndDelete(id); ok {
		c.metrics.decRequestInflightCount()
		c.replyErrs.Store(id, err)
		ch <- nil
	}
}
