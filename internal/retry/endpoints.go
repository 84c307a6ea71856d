package retry

import "sync"

// Endpoints is a round-robin cursor over a list of equivalent endpoint
// URLs. The retry controller rotates it once per throttled attempt.
type Endpoints struct {
	mu     sync.Mutex
	urls   []string
	cursor int
}

// NewEndpoints creates a rotation over the given URLs
func NewEndpoints(urls []string) *Endpoints {
	return &Endpoints{urls: urls}
}

// Current returns the endpoint the cursor points at, or "" when none are
// configured
func (e *Endpoints) Current() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.urls) == 0 {
		return ""
	}
	return e.urls[e.cursor]
}

// Rotate advances the cursor and returns the new endpoint. With zero or one
// URL configured it is a no-op.
func (e *Endpoints) Rotate() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.urls) == 0 {
		return ""
	}
	e.cursor = (e.cursor + 1) % len(e.urls)
	return e.urls[e.cursor]
}

// Len reports how many endpoints are configured
func (e *Endpoints) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.urls)
}
