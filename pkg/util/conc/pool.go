package conc

import (
	"fmt"
	"runtime"

	"github.com/panjf2000/ants/v2"
)

// Pool 基于 ants 的协程池，任务 panic 转为 Future 错误
type Pool[T any] struct {
	inner *ants.Pool
}

// NewPool 创建协程池，size <= 0 时使用 CPU 核数
func NewPool[T any](size int, opts ...ants.Option) *Pool[T] {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	opts = append([]ants.Option{ants.WithPreAlloc(false)}, opts...)
	p, err := ants.NewPool(size, opts...)
	if err != nil {
		// 只有 size 非法时才会失败，上面已经处理
		panic(err)
	}
	return &Pool[T]{inner: p}
}

// Submit 提交任务，池已关闭或已满（非阻塞模式）时 Future 立即返回错误
func (p *Pool[T]) Submit(fn func() (T, error)) *Future[T] {
	future := newFuture[T]()
	err := p.inner.Submit(func() {
		var (
			v   T
			err error
		)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("conc: task panic: %v", r)
			}
			future.complete(v, err)
		}()
		v, err = fn()
	})
	if err != nil {
		var zero T
		future.complete(zero, err)
	}
	return future
}

// Running 正在运行的任务数
func (p *Pool[T]) Running() int {
	return p.inner.Running()
}

// Cap 容量
func (p *Pool[T]) Cap() int {
	return p.inner.Cap()
}

// Release 关闭协程池
func (p *Pool[T]) Release() {
	p.inner.Release()
}

// Go 在独立协程中执行任务
func Go[T any](fn func() (T, error)) *Future[T] {
	future := newFuture[T]()
	go func() {
		var (
			v   T
			err error
		)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("conc: task panic: %v", r)
			}
			future.complete(v, err)
		}()
		v, err = fn()
	}()
	return future
}
