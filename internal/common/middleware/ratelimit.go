package middleware

import (
	"sync"
	"time"
)

// Limiter 按 key 限流；登录/注册按客户端 IP 各自计数，
// 单个来源被刷不影响其他来源。
type Limiter interface {
	Allow(key string) bool
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// KeyedTokenBucket 每个 key 一个令牌桶，懒清理长期不活跃的桶。
type KeyedTokenBucket struct {
	capacity   float64
	refillRate float64 // 每秒补充
	idleTTL    time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewKeyedTokenBucket(capacity, refillRate int64) *KeyedTokenBucket {
	if capacity <= 0 {
		capacity = 1
	}
	if refillRate <= 0 {
		refillRate = 1
	}
	return &KeyedTokenBucket{
		capacity:   float64(capacity),
		refillRate: float64(refillRate),
		idleTTL:    10 * time.Minute,
		buckets:    make(map[string]*bucket),
	}
}

// Allow 取一个令牌；没有令牌时拒绝。
func (k *KeyedTokenBucket) Allow(key string) bool {
	now := time.Now()

	k.mu.Lock()
	defer k.mu.Unlock()

	b, ok := k.buckets[key]
	if !ok {
		if len(k.buckets) >= 4096 {
			k.prune(now)
		}
		b = &bucket{tokens: k.capacity, lastSeen: now}
		k.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastSeen).Seconds() * k.refillRate
	if b.tokens > k.capacity {
		b.tokens = k.capacity
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// prune 调用方须持有锁。
func (k *KeyedTokenBucket) prune(now time.Time) {
	for key, b := range k.buckets {
		if now.Sub(b.lastSeen) > k.idleTTL {
			delete(k.buckets, key)
		}
	}
}
