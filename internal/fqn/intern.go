package fqn

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const internShardCount = 64

// internPool deduplicates segment strings. Package and type name fragments
// repeat across thousands of names, so every split segment goes through here.
type internPool struct {
	shards [internShardCount]internShard
}

type internShard struct {
	mu      sync.RWMutex
	strings map[string]string
}

var segments = newInternPool()

func newInternPool() *internPool {
	p := &internPool{}
	for i := range p.shards {
		p.shards[i].strings = make(map[string]string)
	}
	return p
}

func (p *internPool) shard(s string) *internShard {
	return &p.shards[xxhash.Sum64String(s)%internShardCount]
}

// Intern returns the canonical copy of s
func (p *internPool) Intern(s string) string {
	sh := p.shard(s)

	// Fast path: check if already interned
	sh.mu.RLock()
	if v, ok := sh.strings[s]; ok {
		sh.mu.RUnlock()
		return v
	}
	sh.mu.RUnlock()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	// Double-check after acquiring write lock
	if v, ok := sh.strings[s]; ok {
		return v
	}
	sh.strings[s] = s
	return s
}

// Len returns the number of distinct interned strings
func (p *internPool) Len() int {
	n := 0
	for i := range p.shards {
		sh := &p.shards[i]
		sh.mu.RLock()
		n += len(sh.strings)
		sh.mu.RUnlock()
	}
	return n
}

// Intern returns the process-wide canonical copy of a segment string.
func Intern(s string) string {
	return segments.Intern(s)
}
