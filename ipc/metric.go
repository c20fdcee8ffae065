package ipc

import (
	"sync/atomic"
)

// ConnMetrics contains atomic metrics for a control-channel connection.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type ConnMetrics struct {
	// RequestSendCount indicates the number of requests sent.
	RequestSendCount atomic.Uint64
	// ResponseRecvCount indicates the number of responses received.
	ResponseRecvCount atomic.Uint64
	// RequestErrCount indicates the number of request failures.
	RequestErrCount atomic.Uint64
	// RequestInflightCount indicates the number of requests awaiting replies.
	RequestInflightCount atomic.Int64
	// OrphanRecvCount indicates the number of responses that arrived with no
	// matching pending request.
	OrphanRecvCount atomic.Uint64
}

func (m *ConnMetrics) incRequestSendCount() {
	m.RequestSendCount.Add(1)
}

func (m *ConnMetrics) incResponseRecvCount() {
	m.ResponseRecvCount.Add(1)
}

func (m *ConnMetrics) incRequestErrCount() {
	m.RequestErrCount.Add(1)
}

func (m *ConnMetrics) incRequestInflightCount() {
	m.RequestInflightCount.Add(1)
}

func (m *ConnMetrics) decRequestInflightCount() {
	m.RequestInflightCount.Add(-1)
}

func (m *ConnMetrics) incOrphanRecvCount() {
	m.OrphanRecvCount.Add(1)
}
