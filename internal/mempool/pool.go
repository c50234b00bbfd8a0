package mempool

import (
	"sync"
)

// Sized pools for []float32 and []float64 scratch buffers used on hot paths:
// float32 for neural input tensors, float64 for Sauvola integral images.

var (
	float32Pools sync.Map // key: size class (int), value: *sync.Pool
	float64Pools sync.Map // key: size class (int), value: *sync.Pool
)

// sizeClass rounds n up to the next multiple-of-1024 bucket to reduce churn.
func sizeClass(n int) int {
	if n <= 1024 {
		return 1024
	}
	const step = 1024
	r := (n + step - 1) / step
	return r * step
}

// GetFloat32 retrieves a []float32 buffer of at least n elements from the pool.
// The returned slice has length n but may have larger capacity.
// The caller must return it via PutFloat32 when done.
func GetFloat32(n int) []float32 {
	cls := sizeClass(n)
	pAny, _ := float32Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]float32, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return make([]float32, cls)[:n]
	}
	buf, ok := p.Get().([]float32)
	if !ok || cap(buf) < cls {
		buf = make([]float32, cls)
	}
	return buf[:cap(buf)][:n]
}

// PutFloat32 returns a buffer to the pool. It is safe to pass a nil slice.
func PutFloat32(buf []float32) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	pAny, _ := float32Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]float32, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return
	}
	// Reset length to full cap; contents need not be zeroed.
	p.Put(buf[:cap(buf)]) //nolint:staticcheck
}

// GetFloat64 retrieves a []float64 buffer of at least n elements from the pool.
// The buffer is zeroed over its first n elements because integral-image code
// accumulates into it.
func GetFloat64(n int) []float64 {
	cls := sizeClass(n)
	pAny, _ := float64Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]float64, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return make([]float64, cls)[:n]
	}
	buf, ok := p.Get().([]float64)
	if !ok || cap(buf) < cls {
		buf = make([]float64, cls)
	}
	buf = buf[:cap(buf)][:n]
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

// PutFloat64 returns a buffer to the pool. It is safe to pass a nil slice.
func PutFloat64(buf []float64) {
	if buf == nil {
		return
	}
	cls := sizeClass(cap(buf))
	pAny, _ := float64Pools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]float64, cls) }})
	p, ok := pAny.(*sync.Pool)
	if !ok {
		return
	}
	p.Put(buf[:cap(buf)]) //nolint:staticcheck
}
