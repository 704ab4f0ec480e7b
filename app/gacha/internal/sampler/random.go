package sampler

import (
	"math/rand/v2"
	"sync"
)

// RandomSource 可注入的随机源，测试中用固定种子复现抽取序列
type RandomSource interface {
	// Float64 返回 [0,1) 均匀分布
	Float64() float64
	// IntN 返回 [0,n) 均匀分布整数
	IntN(n int) int
}

// NewSeeded 基于 PCG 的确定性随机源，非并发安全
func NewSeeded(seed uint64) RandomSource {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewRuntime 使用随机种子的 PCG 源，可并发使用
func NewRuntime() RandomSource {
	return NewLockedSource(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

type lockedSource struct {
	mu  sync.Mutex
	src RandomSource
}

// NewLockedSource 为任意随机源加锁，供并发请求共享
func NewLockedSource(src RandomSource) RandomSource {
	return &lockedSource{src: src}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Float64()
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.IntN(n)
}

// Chance 以 percent% 的概率返回 true，percent 取值 [0,100]
func Chance(rnd RandomSource, percent float64) bool {
	return rnd.Float64()*100 < percent
}

// IntRange 返回 [min,max] 闭区间内的均匀整数
func IntRange(rnd RandomSource, min, max int64) int64 {
	if max <= min {
		return min
	}
	return min + int64(rnd.IntN(int(max-min+1)))
}
