package diagnostics

import (
	"fmt"
	"testing"
	"time"
)

type recordingLogger struct {
	msgs []string
}

func (l *recordingLogger) Info(msg string, _ ...any) {
	l.msgs = append(l.msgs, msg)
}

func TestChannel_EchoAndLines(t *testing.T) {
	log := &recordingLogger{}
	c := New(log, 4)

	c.Echo("LCD panel not found!")
	c.Echof("Found item: %s in %s", "Iron", "Refinery")

	lines := c.Lines()
	if len(lines) != 2 {
		t.Fatalf("Lines() = %d, want 2", len(lines))
	}
	if lines[1].Text != "Found item: Iron in Refinery" || lines[1].Seq != 2 {
		t.Errorf("second line = %+v", lines[1])
	}
	if len(log.msgs) != 2 || log.msgs[0] != "LCD panel not found!" {
		t.Errorf("logged = %v", log.msgs)
	}
}

func TestChannel_RingWraps(t *testing.T) {
	c := New(nil, 3)
	for i := 1; i <= 5; i++ {
		c.Echo(fmt.Sprintf("line %d", i))
	}

	lines := c.Lines()
	if len(lines) != 3 {
		t.Fatalf("Lines() = %d, want 3", len(lines))
	}
	for i, want := range []string{"line 3", "line 4", "line 5"} {
		if lines[i].Text != want {
			t.Errorf("lines[%d] = %q, want %q", i, lines[i].Text, want)
		}
	}

	since := c.Since(4)
	if len(since) != 1 || since[0].Text != "line 5" {
		t.Errorf("Since(4) = %+v", since)
	}
}

func TestChannel_Subscribe(t *testing.T) {
	c := New(nil, 0)
	ch, cancel := c.Subscribe(4)

	c.Echo("hello")

	select {
	case line := <-ch:
		if line.Text != "hello" {
			t.Errorf("received %q", line.Text)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber received nothing")
	}

	cancel()
	cancel() // idempotent
	if _, ok := <-ch; ok {
		t.Error("channel still open after cancel")
	}

	// Echo after cancel must not panic.
	c.Echo("after")
}

func TestChannel_SlowSubscriberDoesNotBlock(t *testing.T) {
	c := New(nil, 0)
	_, cancel := c.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			c.Echo("x")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Echo blocked on a full subscriber")
	}
}
