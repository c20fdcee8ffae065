package ipc

import (
	"context"
	"fmt"
	"sync"

	"github.com/sensord-io/go-sensord/logger"
)

// TaskFunc represents one iteration of a task goroutine managed by the
// taskManager. It should return true to keep running, or false to stop.
type TaskFunc func() bool

// TaskRecvFunc represents one iteration of a receive task. The msgLenBuf
// argument is a 4-byte scratch buffer owned by the goroutine and reused
// across iterations.
type TaskRecvFunc func(msgLenBuf []byte) bool

// TaskCancelFunc is called when a task goroutine exits or is canceled.
type TaskCancelFunc func()

// taskManager manages the lifecycle of the connection goroutines.
//
// All tasks share one context; canceling it via Stop signals every task to
// terminate, and Wait blocks until they have.
type taskManager struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger logger.Logger
}

func newTaskManager(ctx context.Context, l logger.Logger) *taskManager {
	mgr := &taskManager{logger: l}
	mgr.ctx, mgr.cancel = context.WithCancel(ctx)
	return mgr
}

// Start starts a new goroutine that repeatedly invokes taskFunc until it
// returns false or the manager is stopped.
func (mgr *taskManager) Start(name string, taskFunc TaskFunc) {
	mgr.logger.Debug("start task", "name", name)

	mgr.wg.Add(1)
	go func() {
		defer mgr.wg.Done()
		mgr.runTaskLoop(name, taskFunc)
	}()
}

// StartReceiver starts a receive goroutine. taskCancelFunc, if non-nil, runs
// when the goroutine exits for any reason.
func (mgr *taskManager) StartReceiver(name string, taskFunc TaskRecvFunc, taskCancelFunc TaskCancelFunc) {
	mgr.logger.Debug("start receiver task", "name", name)

	mgr.wg.Add(1)
	go func() {
		defer mgr.wg.Done()
		if taskCancelFunc != nil {
			defer taskCancelFunc()
		}

		msgLenBuf := make([]byte, 4)
		mgr.runTaskLoop(name, func() bool {
			return taskFunc(msgLenBuf)
		})
	}()
}

// StartSender starts a goroutine that drains inputChan, invoking taskFunc for
// each request until taskFunc returns false, the channel closes, or the
// manager stops.
func (mgr *taskManager) StartSender(name string, taskFunc func(req *request) bool, inputChan chan *request) {
	mgr.logger.Debug("start sender task", "name", name)

	mgr.wg.Add(1)
	go func() {
		defer mgr.wg.Done()

		for {
			select {
			case <-mgr.ctx.Done():
				return
			case req, ok := <-inputChan:
				if !ok {
					mgr.logger.Debug("sender input channel closed", "name", name)
					return
				}
				if !mgr.callWithRecover(name, func() bool { return taskFunc(req) }) {
					return
				}
			}
		}
	}()
}

// Stop signals all tasks to terminate.
func (mgr *taskManager) Stop() {
	mgr.cancel()
}

// Wait blocks until all task goroutines have terminated.
func (mgr *taskManager) Wait() {
	mgr.wg.Wait()
}

// Done returns the manager's context done channel.
func (mgr *taskManager) Done() <-chan struct{} {
	return mgr.ctx.Done()
}

func (mgr *taskManager) runTaskLoop(name string, taskFunc TaskFunc) {
	for {
		select {
		case <-mgr.ctx.Done():
			return
		default:
			if !mgr.callWithRecover(name, taskFunc) {
				return
			}
		}
	}
}

// callWithRecover invokes taskFunc with panic protection; a panicking task
// terminates its goroutine instead of the process.
func (mgr *taskManager) callWithRecover(name string, taskFunc TaskFunc) (result bool) {
	defer func() {
		if r := recover(); r != nil {
			mgr.logger.Error("task panicked", "name", name, "panic", fmt.Sprintf("%v", r))
			result = false
		}
	}()

	return taskFunc()
}
