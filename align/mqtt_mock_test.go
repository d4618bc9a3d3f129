package align

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/mock"
)

// mockToken is an already-completed mqtt.Token
type mockToken struct {
	err      error
	timedOut bool
}

func (t *mockToken) Wait() bool                     { return !t.timedOut }
func (t *mockToken) WaitTimeout(time.Duration) bool { return !t.timedOut }
func (t *mockToken) Error() error                   { return t.err }

func (t *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// mockClient records calls with testify/mock. Only IsConnected and Publish
// carry expectations; the rest satisfy mqtt.Client.
type mockClient struct {
	mock.Mock
}

func (c *mockClient) IsConnected() bool {
	return c.Called().Bool(0)
}

func (c *mockClient) IsConnectionOpen() bool { return c.IsConnected() }

func (c *mockClient) Connect() mqtt.Token { return &mockToken{} }

func (c *mockClient) Disconnect(uint) {}

func (c *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	return c.Called(topic, qos, retained, payload).Get(0).(mqtt.Token)
}

func (c *mockClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token { return &mockToken{} }

func (c *mockClient) SubscribeMultiple(map[string]byte, mqtt.MessageHandler) mqtt.Token {
	return &mockToken{}
}

func (c *mockClient) Unsubscribe(...string) mqtt.Token { return &mockToken{} }

func (c *mockClient) AddRoute(string, mqtt.MessageHandler) {}

func (c *mockClient) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

// published returns the topics passed to Publish, in call order
func (c *mockClient) published() []string {
	var topics []string
	for _, call := range c.Calls {
		if call.Method == "Publish" {
			topics = append(topics, call.Arguments.String(0))
		}
	}
	return topics
}

// payloadOf returns the payload of the first Publish to topic
func (c *mockClient) payloadOf(topic string) []byte {
	for _, call := range c.Calls {
		if call.Method == "Publish" && call.Arguments.String(0) == topic {
			return call.Arguments.Get(3).([]byte)
		}
	}
	return nil
}
