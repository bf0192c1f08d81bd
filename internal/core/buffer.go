package core

import (
	"strings"
	"sync"
)

// SyncBuffer is an io.Writer that may be shared by goroutines, used to
// capture console output in tests.
type SyncBuffer struct {
	mu   sync.Mutex
	data []byte
}

func (b *SyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *SyncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.data)
}

// Lines returns the non-empty lines written so far.
func (b *SyncBuffer) Lines() []string {
	var lines []string
	for _, l := range strings.Split(b.String(), "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
