package notify

import "sync"

// Revalidator tracks which view paths have gone stale since they were last
// rendered. Mutations invalidate a path; the next render consumes the flag
// and recomputes.
type Revalidator struct {
	mu    sync.Mutex
	stale map[string]bool
}

func NewRevalidator() *Revalidator {
	return &Revalidator{stale: make(map[string]bool)}
}

func (r *Revalidator) Invalidate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stale[path] = true
}

func (r *Revalidator) Stale(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stale[path]
}

// Consume reports whether the path was stale and clears the flag.
func (r *Revalidator) Consume(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	was := r.stale[path]
	delete(r.stale, path)
	return was
}
