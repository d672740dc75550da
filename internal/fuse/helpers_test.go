package fuse

import (
	"fmt"
	"sync"
)

// recorder is a log.Sink that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Debug(event string, kv ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) Exception(event string, err error, kv ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("%s: %v", event, err))
}

func (r *recorder) has(prefix string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
