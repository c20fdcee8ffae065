package ipc

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"sync"
	"sync/atomic"
)

// reqIDGenerator generates unique request IDs for control-channel messages.
//
// It seeds the starting ID from a cryptographically secure random source and
// atomically increments it, so IDs stay unique across concurrent callers and
// don't collide across quick reconnects.
type reqIDGenerator struct {
	id atomic.Uint32
}

func newReqIDGenerator() *reqIDGenerator {
	inst := &reqIDGenerator{}
	var buf [4]byte
	if _, err := io.ReadFull(rand.Reader, buf[:]); err != nil {
		return inst
	}
	inst.id.Store(binary.LittleEndian.Uint32(buf[:]))
	return inst
}

func (g *reqIDGenerator) genID() uint32 {
	return g.id.Add(1)
}

var (
	genInst = &reqIDGenerator{}
	genOnce sync.Once
)

// GenerateRequestID returns a unique control-channel request ID.
func GenerateRequestID() uint32 {
	genOnce.Do(func() {
		genInst = newReqIDGenerator()
	})
	return genInst.genID()
}
