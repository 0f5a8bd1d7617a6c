package diagnostics

import (
	"fmt"
	"sync"
	"time"
)

// DefaultCapacity is the number of lines retained when New is given zero.
const DefaultCapacity = 256

// Logger is the logging surface the channel writes echo lines to.
type Logger interface {
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}

// Line is one echoed diagnostic.
type Line struct {
	Seq  uint64    `json:"seq"`
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Channel collects echo lines. It is safe for concurrent use.
type Channel struct {
	logger Logger

	mu   sync.Mutex
	ring []Line
	next int
	full bool
	seq  uint64
	subs map[int]chan Line
	subN int
}

// New creates a channel retaining up to capacity lines. A nil logger discards.
func New(logger Logger, capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Channel{
		logger: logger,
		ring:   make([]Line, capacity),
		subs:   make(map[int]chan Line),
	}
}

// Echo appends a line.
func (c *Channel) Echo(text string) {
	c.mu.Lock()
	c.seq++
	line := Line{Seq: c.seq, Time: time.Now().UTC(), Text: text}
	c.ring[c.next] = line
	c.next = (c.next + 1) % len(c.ring)
	if c.next == 0 {
		c.full = true
	}
	for _, ch := range c.subs {
		// Slow subscribers miss lines rather than stall the controller.
		select {
		case ch <- line:
		default:
		}
	}
	c.mu.Unlock()

	c.logger.Info(text, "component", "echo", "seq", line.Seq)
}

// Echof formats and appends a line.
func (c *Channel) Echof(format string, args ...any) {
	c.Echo(fmt.Sprintf(format, args...))
}

// Lines returns the retained lines, oldest first.
func (c *Channel) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.full {
		return append([]Line(nil), c.ring[:c.next]...)
	}
	out := make([]Line, 0, len(c.ring))
	out = append(out, c.ring[c.next:]...)
	return append(out, c.ring[:c.next]...)
}

// Since returns retained lines with a sequence number above seq.
func (c *Channel) Since(seq uint64) []Line {
	var out []Line
	for _, l := range c.Lines() {
		if l.Seq > seq {
			out = append(out, l)
		}
	}
	return out
}

// Subscribe returns a channel receiving every subsequent line and a cancel
// func that must be called to release it.
func (c *Channel) Subscribe(buffer int) (<-chan Line, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Line, buffer)

	c.mu.Lock()
	id := c.subN
	c.subN++
	c.subs[id] = ch
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}
