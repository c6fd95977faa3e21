// Package logging wires a ring-buffered dashboard feed on top of
// logrus: every log line is formatted once, appended to a fixed-size
// in-memory ring for the TUI to render, and batched to an optional log
// file by a background writer.
package logging

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultCapacity      = 1000
	defaultBatchSize     = 10
	defaultFlushInterval = 100 * time.Millisecond
)

// Ring is a logrus.Hook that keeps the last capacity formatted lines
// in memory and streams them, batched, to an optional log file.
type Ring struct {
	mu       sync.Mutex
	lines    []string
	capacity int
	head     int
	count    int

	file   *os.File
	ch     chan string
	closed bool
	done   chan struct{}
}

// NewRing creates a Ring. If filePath is non-empty its directory is
// created and the file opened for append; a failure to open the file
// is non-fatal — the ring still functions in memory, only the on-disk
// copy is skipped.
func NewRing(filePath string, capacity int) *Ring {
	if capacity <= 0 {
		capacity = defaultCapacity
	}

	r := &Ring{
		lines:    make([]string, capacity),
		capacity: capacity,
		ch:       make(chan string, 100),
		done:     make(chan struct{}),
	}

	if filePath != "" {
		if dir := filepath.Dir(filePath); dir != "." {
			os.MkdirAll(dir, 0755)
		}
		if f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600); err == nil {
			r.file = f
		}
	}

	go r.writer()
	return r
}

// Levels reports that Ring hooks every level; the dashboard wants to
// see everything logrus emits.
func (r *Ring) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire formats the entry and appends it to the ring, satisfying
// logrus.Hook.
func (r *Ring) Fire(entry *logrus.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}
	r.push(line)
	return nil
}

func (r *Ring) push(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.lines[r.head] = line
	r.head = (r.head + 1) % r.capacity
	if r.count < r.capacity {
		r.count++
	}

	select {
	case r.ch <- line:
	default:
	}
}

// ReadAll returns every line currently held, oldest first.
func (r *Ring) ReadAll() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return ""
	}

	start := 0
	if r.count >= r.capacity {
		start = r.head
	}

	var result []byte
	for i := 0; i < r.count; i++ {
		idx := (start + i) % r.capacity
		if r.lines[idx] != "" {
			result = append(result, r.lines[idx]...)
		}
	}
	return string(result)
}

// Chan exposes a live feed of lines as they're pushed, for a
// dashboard's tail view. Sends are best-effort: a full channel drops
// the line rather than blocking the logger.
func (r *Ring) Chan() <-chan string {
	return r.ch
}

func (r *Ring) writer() {
	batch := make([]string, 0, defaultBatchSize)
	ticker := time.NewTicker(defaultFlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 || r.file == nil {
			return
		}
		for _, line := range batch {
			r.file.WriteString(line)
		}
		batch = batch[:0]
	}

	for {
		select {
		case line, ok := <-r.ch:
			if !ok {
				flush()
				close(r.done)
				return
			}
			batch = append(batch, line)
			if len(batch) >= defaultBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Close stops the background writer and closes the log file, if any.
func (r *Ring) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	close(r.ch)
	<-r.done
	if r.file != nil {
		r.file.Close()
	}
}

// New builds a logrus.Logger with a text formatter and a Ring hook
// attached, the structured-logging entry point the rest of the
// program uses.
func New(filePath string, capacity int, level logrus.Level) (*logrus.Logger, *Ring) {
	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetOutput(os.Stderr)

	ring := NewRing(filePath, capacity)
	log.AddHook(ring)
	return log, ring
}
