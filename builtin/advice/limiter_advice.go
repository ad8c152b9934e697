package advice

import (
	"errors"
	"sync/atomic"

	"github.com/aspectgo/aspectgo/api/types"
)

// ErrConcurrencyLimitReached is returned when a call would exceed the
// configured maximum number of concurrent invocations.
var ErrConcurrencyLimitReached = errors.New("concurrency limit reached")

// ConcurrencyLimiterAdvice bounds the number of calls running through it at
// once. A call over the limit fails immediately with
// ErrConcurrencyLimitReached rather than queueing.
type ConcurrencyLimiterAdvice struct {
	Max          int64
	currentCount int64
}

var _ types.Advice = (*ConcurrencyLimiterAdvice)(nil)

func NewConcurrencyLimiterAdvice(max int) *ConcurrencyLimiterAdvice {
	return &ConcurrencyLimiterAdvice{
		Max: int64(max),
	}
}

func (a *ConcurrencyLimiterAdvice) Invoke(invocation types.Invocation) (interface{}, error) {
	for {
		current := atomic.LoadInt64(&a.currentCount)
		if current >= a.Max {
			return nil, ErrConcurrencyLimitReached
		}
		if atomic.CompareAndSwapInt64(&a.currentCount, current, current+1) {
			break
		}
		// CAS lost to a concurrent caller, retry.
	}
	defer atomic.AddInt64(&a.currentCount, -1)
	return invocation.Proceed()
}
