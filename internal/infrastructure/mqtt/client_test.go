package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gridctl/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "gridctl-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// =============================================================================
// Fakes
// =============================================================================

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// stuckToken never completes.
type stuckToken struct{ doneToken }

func (stuckToken) WaitTimeout(time.Duration) bool { return false }

type sentMessage struct {
	topic    string
	retained bool
	payload  []byte
}

// fakePaho stands in for a broker session. Methods the client does not use
// are left to the embedded nil interface.
type fakePaho struct {
	pahomqtt.Client

	mu           sync.Mutex
	open         bool
	subs         map[string]pahomqtt.MessageHandler
	sent         []sentMessage
	unsubscribed []string
	disconnected bool
	subErr       error
	pubToken     pahomqtt.Token
}

func newFakePaho() *fakePaho {
	return &fakePaho{open: true, subs: make(map[string]pahomqtt.MessageHandler)}
}

func (f *fakePaho) IsConnected() bool { return f.IsConnectionOpen() }

func (f *fakePaho) IsConnectionOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakePaho) Subscribe(topic string, _ byte, handler pahomqtt.MessageHandler) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return doneToken{err: f.subErr}
	}
	f.subs[topic] = handler
	return doneToken{}
}

func (f *fakePaho) Publish(topic string, _ byte, retained bool, payload interface{}) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pubToken != nil {
		return f.pubToken
	}
	f.sent = append(f.sent, sentMessage{topic: topic, retained: retained, payload: payload.([]byte)})
	return doneToken{}
}

func (f *fakePaho) Unsubscribe(topics ...string) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, topic := range topics {
		delete(f.subs, topic)
	}
	f.unsubscribed = append(f.unsubscribed, topics...)
	return doneToken{}
}

func (f *fakePaho) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	f.disconnected = true
}

func (f *fakePaho) deliver(t *testing.T, filter, topic, payload string) {
	t.Helper()
	f.mu.Lock()
	handler, ok := f.subs[filter]
	f.mu.Unlock()
	if !ok {
		t.Fatalf("no subscription for %q", filter)
	}
	handler(f, fakeMessage{topic: topic, payload: []byte(payload)})
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type recordingLogger struct {
	mu     sync.Mutex
	warns  []string
	errors []string
}

func (l *recordingLogger) Info(string, ...any) {}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func newTestClient() (*Client, *fakePaho, *recordingLogger) {
	paho := newFakePaho()
	logger := &recordingLogger{}
	return newClient(paho, testConfig(), logger), paho, logger
}

// =============================================================================
// Topics and options
// =============================================================================

func TestTopics(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{CommandTopic("asteroid"), "gridctl/command/asteroid"},
		{StateTopic("dev-1"), "gridctl/state/dev-1"},
		{SnapshotTopic("dev-1"), "gridctl/device/dev-1"},
		{EchoTopic("asteroid"), "gridctl/echo/asteroid"},
		{PresenceTopic("gridctl"), "gridctl/status/gridctl"},
		{stateWildcard, "gridctl/state/+"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestDeviceIDFromStateTopic(t *testing.T) {
	tests := []struct {
		topic  string
		want   string
		wantOK bool
	}{
		{"gridctl/state/dev-1", "dev-1", true},
		{"gridctl/state/", "", false},
		{"gridctl/state/dev-1/extra", "", false},
		{"gridctl/device/dev-1", "", false},
		{"other/state/dev-1", "", false},
	}
	for _, tt := range tests {
		got, ok := deviceIDFromStateTopic(tt.topic)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("deviceIDFromStateTopic(%q) = %q, %v", tt.topic, got, ok)
		}
	}
}

func TestClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Auth.Username = "ops"

	opts := clientOptions(cfg)
	if len(opts.Servers) != 1 || opts.Servers[0].String() != "ssl://127.0.0.1:1883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.Username != "ops" || opts.TLSConfig == nil {
		t.Errorf("auth/TLS not applied: user=%q tls=%v", opts.Username, opts.TLSConfig)
	}
	if opts.WillTopic != "gridctl/status/gridctl-test" || !opts.WillRetained {
		t.Errorf("will = %q retained=%v", opts.WillTopic, opts.WillRetained)
	}

	var will presence
	if err := json.Unmarshal(opts.WillPayload, &will); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if will.State != presenceOffline || will.Reason != "connection_lost" || will.ClientID != "gridctl-test" {
		t.Errorf("will = %+v", will)
	}
}

// =============================================================================
// Routes
// =============================================================================

func TestSubscribeCommands(t *testing.T) {
	c, paho, _ := newTestClient()

	var got []string
	if err := c.SubscribeCommands("asteroid", func(argument string) error {
		got = append(got, argument)
		return nil
	}); err != nil {
		t.Fatalf("SubscribeCommands() error = %v", err)
	}

	paho.deliver(t, "gridctl/command/asteroid", "gridctl/command/asteroid", "move_items Ship Cargo")
	if len(got) != 1 || got[0] != "move_items Ship Cargo" {
		t.Errorf("arguments = %q", got)
	}
}

func TestSubscribeReadings(t *testing.T) {
	c, paho, logger := newTestClient()

	readings := map[string]string{}
	if err := c.SubscribeReadings(func(id string, reading []byte) error {
		readings[id] = string(reading)
		return nil
	}); err != nil {
		t.Fatalf("SubscribeReadings() error = %v", err)
	}

	paho.deliver(t, stateWildcard, "gridctl/state/dev-1", `{"functional":false}`)
	if readings["dev-1"] != `{"functional":false}` {
		t.Errorf("readings = %v", readings)
	}

	paho.deliver(t, stateWildcard, "gridctl/state/dev-1/extra", `{}`)
	if len(readings) != 1 || len(logger.warns) != 1 {
		t.Errorf("malformed topic: readings = %v, warns = %v", readings, logger.warns)
	}
}

func TestRoute_FailuresAreLogged(t *testing.T) {
	c, paho, logger := newTestClient()

	calls := 0
	_ = c.SubscribeCommands("asteroid", func(argument string) error {
		calls++
		if argument == "panic" {
			panic("bad payload")
		}
		return errors.New("controller busy")
	})

	paho.deliver(t, "gridctl/command/asteroid", "gridctl/command/asteroid", "move_items")
	paho.deliver(t, "gridctl/command/asteroid", "gridctl/command/asteroid", "panic")

	if calls != 2 {
		t.Errorf("calls = %d", calls)
	}
	if len(logger.warns) != 1 || len(logger.errors) != 1 {
		t.Errorf("warns = %v, errors = %v", logger.warns, logger.errors)
	}
}

func TestSubscribe_Failures(t *testing.T) {
	c, paho, _ := newTestClient()
	noop := func(string) error { return nil }

	paho.subErr = errors.New("not authorised")
	if err := c.SubscribeCommands("asteroid", noop); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("broker refusal error = %v, want ErrSubscribeFailed", err)
	}

	paho.subErr = nil
	paho.open = false
	if err := c.SubscribeCommands("asteroid", noop); !errors.Is(err, ErrNotConnected) {
		t.Errorf("disconnected error = %v, want ErrNotConnected", err)
	}

	paho.open = true
	if err := c.ReleaseRoutes(); err != nil {
		t.Fatalf("ReleaseRoutes() error = %v", err)
	}
	if len(paho.unsubscribed) != 0 {
		t.Errorf("failed subscriptions were tracked: %v", paho.unsubscribed)
	}
}

func TestPublishSnapshotAndEcho(t *testing.T) {
	c, paho, _ := newTestClient()

	snapshot := map[string]any{"id": "dev-1", "enabled": true}
	if err := c.PublishSnapshot("dev-1", snapshot); err != nil {
		t.Fatalf("PublishSnapshot() error = %v", err)
	}
	if err := c.PublishEcho("asteroid", "Transferred Iron to Cargo"); err != nil {
		t.Fatalf("PublishEcho() error = %v", err)
	}

	if len(paho.sent) != 2 {
		t.Fatalf("sent = %d messages", len(paho.sent))
	}
	snap, echo := paho.sent[0], paho.sent[1]
	if snap.topic != "gridctl/device/dev-1" || !snap.retained || !strings.Contains(string(snap.payload), `"enabled":true`) {
		t.Errorf("snapshot = %+v", snap)
	}
	if echo.topic != "gridctl/echo/asteroid" || echo.retained || string(echo.payload) != "Transferred Iron to Cargo" {
		t.Errorf("echo = %+v", echo)
	}
}

func TestPublish_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakePaho)
		line  string
		want  error
	}{
		{"not connected", func(p *fakePaho) { p.open = false }, "x", ErrNotConnected},
		{"too large", func(*fakePaho) {}, strings.Repeat("x", maxPayload+1), ErrPayloadTooLarge},
		{"no ack", func(p *fakePaho) { p.pubToken = stuckToken{} }, "x", ErrTimeout},
		{"broker error", func(p *fakePaho) { p.pubToken = doneToken{err: errors.New("quota")} }, "x", ErrPublishFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, paho, _ := newTestClient()
			tt.setup(paho)
			if err := c.PublishEcho("asteroid", tt.line); !errors.Is(err, tt.want) {
				t.Errorf("PublishEcho() error = %v, want %v", err, tt.want)
			}
		})
	}

	c, _, _ := newTestClient()
	if err := c.PublishSnapshot("dev-1", make(chan int)); err == nil {
		t.Error("PublishSnapshot(unencodable) error = nil")
	}
}

// =============================================================================
// Session lifecycle
// =============================================================================

func TestOnConnect_ReplaysRoutes(t *testing.T) {
	c, paho, _ := newTestClient()
	noop := func(string) error { return nil }

	_ = c.SubscribeCommands("asteroid", noop)
	_ = c.SubscribeReadings(func(string, []byte) error { return nil })

	// A clean session starts without subscriptions.
	paho.subs = make(map[string]pahomqtt.MessageHandler)
	c.onConnect()

	if _, ok := paho.subs["gridctl/command/asteroid"]; !ok {
		t.Error("command route not replayed")
	}
	if _, ok := paho.subs[stateWildcard]; !ok {
		t.Error("reading route not replayed")
	}

	last := paho.sent[len(paho.sent)-1]
	var p presence
	if err := json.Unmarshal(last.payload, &p); err != nil {
		t.Fatalf("presence payload: %v", err)
	}
	if last.topic != "gridctl/status/gridctl-test" || !last.retained || p.State != presenceOnline {
		t.Errorf("presence = %s %+v", last.topic, p)
	}
}

func TestReleaseRoutes(t *testing.T) {
	c, paho, _ := newTestClient()
	_ = c.SubscribeCommands("asteroid", func(string) error { return nil })
	_ = c.SubscribeReadings(func(string, []byte) error { return nil })

	if err := c.ReleaseRoutes(); err != nil {
		t.Fatalf("ReleaseRoutes() error = %v", err)
	}
	got := slices.Clone(paho.unsubscribed)
	slices.Sort(got)
	want := []string{"gridctl/command/asteroid", stateWildcard}
	if !slices.Equal(got, want) {
		t.Errorf("unsubscribed = %v, want %v", got, want)
	}

	c.onConnect()
	if len(paho.subs) != 0 {
		t.Errorf("released routes replayed: %v", paho.subs)
	}
}

func TestCloseAndHealth(t *testing.T) {
	c, paho, _ := newTestClient()
	ctx := context.Background()

	if err := c.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !paho.disconnected {
		t.Error("Close() did not disconnect")
	}

	var p presence
	if err := json.Unmarshal(paho.sent[0].payload, &p); err != nil || p.State != presenceOffline || p.Reason != "shutdown" {
		t.Errorf("offline record = %+v, err %v", p, err)
	}
	if err := c.HealthCheck(ctx); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after Close() = %v, want ErrNotConnected", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := c.HealthCheck(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) = %v", err)
	}
}

// =============================================================================
// Broker test (skipped without a local broker)
// =============================================================================

func TestConnect_LocalBroker(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "gridctl-test-connect"
	client, err := Connect(cfg, nil)
	if err != nil {
		t.Skipf("MQTT broker not available, skipping: %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	if err := client.PublishEcho("connect-test", "hello"); err != nil {
		t.Errorf("PublishEcho() error = %v", err)
	}
}
