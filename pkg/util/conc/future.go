package conc

// Future 异步任务结果
type Future[T any] struct {
	ch    chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{ch: make(chan struct{})}
}

func (f *Future[T]) complete(v T, err error) {
	f.value = v
	f.err = err
	close(f.ch)
}

// Done 任务结束时关闭
func (f *Future[T]) Done() <-chan struct{} {
	return f.ch
}

// Await 阻塞等待结果
func (f *Future[T]) Await() (T, error) {
	<-f.ch
	return f.value, f.err
}

// Value 阻塞等待并返回值
func (f *Future[T]) Value() T {
	<-f.ch
	return f.value
}

// Err 阻塞等待并返回错误
func (f *Future[T]) Err() error {
	<-f.ch
	return f.err
}

// AwaitAll 等待全部完成，返回第一个错误
func AwaitAll[T any](futures ...*Future[T]) error {
	var first error
	for _, f := range futures {
		if err := f.Err(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
