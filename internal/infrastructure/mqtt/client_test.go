package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/offgridlab/offgrid-core/internal/infrastructure/config"
)

// ─── Fakes ─────────────────────────────────────────────────────────

type fakeToken struct {
	err      error
	timedOut bool
}

func (t *fakeToken) Wait() bool                     { return !t.timedOut }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timedOut }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakePaho implements the pahomqtt.Client methods Client uses. The embedded
// interface is nil, so any other call panics.
type fakePaho struct {
	pahomqtt.Client

	mu           sync.Mutex
	connected    bool
	publishErr   error
	timeout      bool
	messages     []published
	disconnected bool
}

func (f *fakePaho) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakePaho) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	var data []byte
	switch p := payload.(type) {
	case []byte:
		data = p
	case string:
		data = []byte(p)
	}
	f.messages = append(f.messages, published{topic: topic, qos: qos, retained: retained, payload: data})
	return &fakeToken{err: f.publishErr, timedOut: f.timeout}
}

func (f *fakePaho) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
	f.connected = false
}

func (f *fakePaho) sent() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.messages...)
}

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{Host: "localhost", Port: 1883, ClientID: "offgrid-test"},
		QoS:    1,
	}
}

// ─── Topics ────────────────────────────────────────────────────────

func TestTopics(t *testing.T) {
	topics := DefaultTopics()

	tests := []struct {
		got  string
		want string
	}{
		{topics.SensorState("28-0000000000ab"), "offgrid/state/onewire/28-0000000000ab"},
		{topics.DeviceState("AA:BB:CC:DD:EE:FF"), "offgrid/state/renogy/AA:BB:CC:DD:EE:FF"},
		{topics.SystemStatus(), "offgrid/system/status"},
		{topics.AllState(), "offgrid/state/#"},
		{Topics{Prefix: "cabin"}.SystemStatus(), "cabin/system/status"},
		{Topics{}.SystemStatus(), "offgrid/system/status"},
		{topics.SensorState("a/b+c#"), "offgrid/state/onewire/a_b_c_"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("topic = %q, want %q", tt.got, tt.want)
		}
	}
}

func TestBrokerURL(t *testing.T) {
	cfg := testConfig()
	if got := BrokerURL(cfg); got != "tcp://localhost:1883" {
		t.Errorf("BrokerURL() = %q", got)
	}
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883
	if got := BrokerURL(cfg); got != "ssl://localhost:8883" {
		t.Errorf("BrokerURL() with TLS = %q", got)
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.MQTTAuthConfig{Username: "cabin", Password: "secret"}
	cfg.Reconnect = config.MQTTReconnectConfig{InitialDelay: 2, MaxDelay: 30}

	opts := buildClientOptions(cfg)
	configureLWT(opts, DefaultTopics(), cfg.Broker.ClientID)

	if opts.ClientID != "offgrid-test" || opts.Username != "cabin" {
		t.Errorf("ClientID/Username = %q/%q", opts.ClientID, opts.Username)
	}
	if opts.MaxReconnectInterval != 30*time.Second || opts.ConnectRetryInterval != 2*time.Second {
		t.Errorf("reconnect = %v/%v", opts.ConnectRetryInterval, opts.MaxReconnectInterval)
	}
	if !opts.WillEnabled || opts.WillTopic != "offgrid/system/status" || !opts.WillRetained {
		t.Errorf("will = %v %q %v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
	if !strings.Contains(string(opts.WillPayload), `"reason":"unexpected_disconnect"`) {
		t.Errorf("will payload = %s", opts.WillPayload)
	}
}

// ─── Publish ───────────────────────────────────────────────────────

func TestPublish_Validation(t *testing.T) {
	c := newClient(&fakePaho{connected: true}, testConfig())

	tests := []struct {
		name    string
		topic   string
		qos     byte
		payload []byte
		wantErr error
	}{
		{"empty topic", "", 0, nil, ErrInvalidTopic},
		{"bad qos", "offgrid/x", 3, nil, ErrInvalidQoS},
		{"oversized", "offgrid/x", 0, make([]byte, maxPayloadSize+1), ErrPublishFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Publish(tt.topic, tt.payload, tt.qos, false); !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPublish_NotConnected(t *testing.T) {
	c := newClient(&fakePaho{}, testConfig())

	if err := c.Publish("offgrid/x", []byte("{}"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestPublish_BrokerFailure(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		c := newClient(&fakePaho{connected: true, publishErr: errors.New("refused")}, testConfig())
		if err := c.Publish("offgrid/x", nil, 0, false); !errors.Is(err, ErrPublishFailed) {
			t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		c := newClient(&fakePaho{connected: true, timeout: true}, testConfig())
		if err := c.Publish("offgrid/x", nil, 0, false); !errors.Is(err, ErrPublishFailed) {
			t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
		}
	})
}

func TestPublishState(t *testing.T) {
	fake := &fakePaho{connected: true}
	c := newClient(fake, testConfig())

	topic := c.Topics().SensorState("28-0000000000ab")
	if err := c.PublishState(topic, map[string]any{"temperature_celsius": 25.5}); err != nil {
		t.Fatalf("PublishState() error = %v", err)
	}

	msgs := fake.sent()
	if len(msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(msgs))
	}
	m := msgs[0]
	if m.topic != topic || !m.retained || m.qos != 1 {
		t.Errorf("message = %+v", m)
	}
	if string(m.payload) != `{"temperature_celsius":25.5}` {
		t.Errorf("payload = %s", m.payload)
	}

	if err := c.PublishState(topic, func() {}); !errors.Is(err, ErrPublishFailed) {
		t.Errorf("PublishState() with unencodable value error = %v", err)
	}
}

// ─── Lifecycle ─────────────────────────────────────────────────────

func TestClient_HandleConnectPublishesOnline(t *testing.T) {
	fake := &fakePaho{connected: true}
	c := newClient(fake, testConfig())
	c.setConnected(false)

	c.handleConnect()

	if !c.IsConnected() {
		t.Error("IsConnected() after handleConnect() = false")
	}
	msgs := fake.sent()
	if len(msgs) != 1 || msgs[0].topic != "offgrid/system/status" || !msgs[0].retained {
		t.Fatalf("messages = %+v", msgs)
	}
	var status statusPayload
	if err := json.Unmarshal(msgs[0].payload, &status); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if status.Status != "online" || status.ClientID != "offgrid-test" {
		t.Errorf("status = %+v", status)
	}
}

func TestClient_HandleDisconnect(t *testing.T) {
	c := newClient(&fakePaho{connected: true}, testConfig())

	c.handleDisconnect(errors.New("broker gone"))

	if c.IsConnected() {
		t.Error("IsConnected() after connection loss = true")
	}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestClient_Close(t *testing.T) {
	fake := &fakePaho{connected: true}
	c := newClient(fake, testConfig())

	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	msgs := fake.sent()
	if len(msgs) != 1 || !strings.Contains(string(msgs[0].payload), `"reason":"graceful_shutdown"`) {
		t.Errorf("messages = %+v", msgs)
	}
	if !fake.disconnected || c.IsConnected() {
		t.Error("Close() did not disconnect")
	}
}

func TestClient_HealthCheckCancelled(t *testing.T) {
	c := newClient(&fakePaho{connected: true}, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}
