package bytebuff

import (
	"sync/atomic"

	"github.com/valyala/bytebufferpool"
)

// Pool 基于 bytebufferpool 的缓冲池，附带取还计数
type Pool struct {
	pool bytebufferpool.Pool
	gets atomic.Uint64
	puts atomic.Uint64
}

// NewPool 创建缓冲池
func NewPool() *Pool {
	return &Pool{}
}

// Get 取出一个已清空的缓冲
func (p *Pool) Get() *bytebufferpool.ByteBuffer {
	p.gets.Add(1)
	return p.pool.Get()
}

// Put 归还缓冲，调用方不得再使用
func (p *Pool) Put(buf *bytebufferpool.ByteBuffer) {
	if buf == nil {
		return
	}
	p.puts.Add(1)
	p.pool.Put(buf)
}

// Stats 累计取出与归还次数
func (p *Pool) Stats() (gets, puts uint64) {
	return p.gets.Load(), p.puts.Load()
}

var defaultPool = NewPool()

// Get 从默认池取出缓冲
func Get() *bytebufferpool.ByteBuffer { return defaultPool.Get() }

// Put 归还到默认池
func Put(buf *bytebufferpool.ByteBuffer) { defaultPool.Put(buf) }

// Bytes 复制缓冲内容，缓冲归还后结果仍然有效
func Bytes(buf *bytebufferpool.ByteBuffer) []byte {
	out := make([]byte, buf.Len())
	copy(out, buf.B)
	return out
}
