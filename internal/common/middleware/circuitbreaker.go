package middleware

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen 熔断开启期间的请求直接拒绝，不会执行回调。
var ErrBreakerOpen = errors.New("circuit breaker is open")

// BreakerState 熔断器状态。
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // 正常放行
	BreakerOpen                         // 熔断中，直接拒绝
	BreakerHalfOpen                     // 放少量探测请求
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker 连续失败 maxFailures 次后开启，
// resetTimeout 后进入半开，放 probeLimit 个探测请求：
// 探测成功关闭，探测失败重新开启。
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	probeLimit   int

	mu       sync.Mutex
	state    BreakerState
	failures int
	probes   int
	openedAt time.Time
}

func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 5
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &CircuitBreaker{
		name:         name,
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		probeLimit:   3,
		state:        BreakerClosed,
	}
}

// Call 执行 fn 并把结果计入熔断统计；状态不允许时返回 ErrBreakerOpen。
func (cb *CircuitBreaker) Call(_ context.Context, fn func() error) error {
	if err := cb.acquire(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerOpen:
		if time.Since(cb.openedAt) < cb.resetTimeout {
			return ErrBreakerOpen
		}
		cb.state = BreakerHalfOpen
		cb.probes = 0
		fallthrough
	case BreakerHalfOpen:
		if cb.probes >= cb.probeLimit {
			return ErrBreakerOpen
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		if cb.state == BreakerHalfOpen {
			cb.state = BreakerClosed
			cb.probes = 0
		}
		cb.failures = 0
		return
	}

	cb.failures++
	cb.openedAt = time.Now()
	if cb.state == BreakerHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = BreakerOpen
		cb.probes = 0
	}
}

// State 当前状态（监控/测试用）。
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
