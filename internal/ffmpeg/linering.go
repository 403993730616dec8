package ffmpeg

import (
	"strings"
	"sync"
)

// LineRing keeps the last lines written to it. It is used as the tool's
// stderr so failures can carry the diagnostics that preceded them.
type LineRing struct {
	mu      sync.Mutex
	lines   []string
	head    int
	size    int
	partial string
}

func NewLineRing(capacity int) *LineRing {
	if capacity < 1 {
		capacity = 50
	}
	return &LineRing{
		lines: make([]string, capacity),
		size:  capacity,
	}
}

// Write implements io.Writer. A trailing fragment without a newline is held
// until the rest of the line arrives.
func (r *LineRing) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parts := strings.Split(r.partial+string(p), "\n")
	r.partial = parts[len(parts)-1]
	for _, line := range parts[:len(parts)-1] {
		r.push(line)
	}
	return len(p), nil
}

func (r *LineRing) push(line string) {
	line = strings.TrimRight(line, "\r")
	if line == "" {
		return
	}
	r.lines[r.head] = line
	r.head = (r.head + 1) % r.size
}

// LastN returns up to n of the newest lines, oldest first. A pending
// fragment counts as the newest line.
func (r *LineRing) LastN(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ordered := make([]string, 0, r.size+1)
	for i := 0; i < r.size; i++ {
		if line := r.lines[(r.head+i)%r.size]; line != "" {
			ordered = append(ordered, line)
		}
	}
	if tail := strings.TrimSpace(r.partial); tail != "" {
		ordered = append(ordered, tail)
	}

	if len(ordered) <= n {
		return ordered
	}
	return ordered[len(ordered)-n:]
}

func (r *LineRing) String() string {
	return strings.Join(r.LastN(r.size), "\n")
}
