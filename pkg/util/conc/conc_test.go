package conc

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolSubmit(t *testing.T) {
	p := NewPool[int](2)
	defer p.Release()

	var n atomic.Int32
	futures := make([]*Future[int], 0, 10)
	for i := 0; i < 10; i++ {
		i := i
		futures = append(futures, p.Submit(func() (int, error) {
			n.Add(1)
			return i * 2, nil
		}))
	}

	require.NoError(t, AwaitAll(futures...))
	assert.Equal(t, int32(10), n.Load())
	assert.Equal(t, 8, futures[4].Value())
}

func TestPoolPanicBecomesError(t *testing.T) {
	p := NewPool[struct{}](1)
	defer p.Release()

	f := p.Submit(func() (struct{}, error) { panic("boom") })
	assert.ErrorContains(t, f.Err(), "boom")
}

func TestSubmitAfterRelease(t *testing.T) {
	p := NewPool[int](1)
	p.Release()

	_, err := p.Submit(func() (int, error) { return 1, nil }).Await()
	assert.Error(t, err)
}

func TestGo(t *testing.T) {
	want := errors.New("failed")
	assert.ErrorIs(t, Go(func() (int, error) { return 0, want }).Err(), want)

	v, err := Go(func() (string, error) { return "ok", nil }).Await()
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}
