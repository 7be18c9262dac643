package wall

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Board topics, relative to the configured publish prefix
const (
	TopicProblem = "problem"
	TopicStatus  = "status"
)

// Board is the connection to an LED-lit wall that mirrors the current
// problem. It subscribes to the board's status topic and reports it to a
// StatusTracker.
type Board struct {
	client      mqtt.Client
	prefix      string
	status      *StatusTracker
	isConnected bool
	stop        chan struct{}
	stopOnce    sync.Once
	mu          sync.RWMutex
}

// NewBoard connects to the broker in cfg in the background. An empty
// broker disables the board and returns nil, nil.
func NewBoard(cfg MQTTConfig, status *StatusTracker) (*Board, error) {
	if cfg.Broker == "" {
		log.Println("[MQTT] disabled: no broker configured")
		return nil, nil
	}

	b := newBoard(nil, cfg, status)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "spraywall"
	}
	opts.SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetCleanSession(false)
	opts.SetOrderMatters(false)

	opts.SetOnConnectHandler(b.onConnect)
	opts.SetConnectionLostHandler(b.onConnectionLost)
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		log.Println("[MQTT] reconnecting...")
	})

	b.client = mqtt.NewClient(opts)
	go b.connectWithRetry()

	return b, nil
}

// NewBoardWithClient wraps an existing client, typically a MockClient
func NewBoardWithClient(client mqtt.Client, cfg MQTTConfig, status *StatusTracker) *Board {
	return newBoard(client, cfg, status)
}

func newBoard(client mqtt.Client, cfg MQTTConfig, status *StatusTracker) *Board {
	prefix := cfg.PublishPrefix
	if prefix == "" {
		prefix = "spraywall"
	}
	if status == nil {
		status = NewStatusTracker()
	}
	return &Board{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		status: status,
		stop:   make(chan struct{}),
	}
}

// Topic returns the full topic for a name under the board prefix
func (b *Board) Topic(name string) string {
	return b.prefix + "/" + name
}

// connectWithRetry connects with exponential backoff until it succeeds or
// the board is disconnected
func (b *Board) connectWithRetry() {
	retryDelay := 1 * time.Second
	maxRetryDelay := 60 * time.Second

	for {
		log.Println("[MQTT] connecting to broker...")
		token := b.client.Connect()
		if token.WaitTimeout(10 * time.Second) {
			if token.Error() == nil {
				log.Println("[MQTT] connected")
				b.setConnected(true)
				return
			}
			log.Printf("[MQTT] connection failed: %v", token.Error())
		} else {
			log.Println("[MQTT] connection timeout")
		}

		log.Printf("[MQTT] retrying in %v", retryDelay)
		select {
		case <-b.stop:
			return
		case <-time.After(retryDelay):
		}
		retryDelay = min(retryDelay*2, maxRetryDelay)
	}
}

func (b *Board) onConnect(client mqtt.Client) {
	b.setConnected(true)

	topic := b.Topic(TopicStatus)
	log.Printf("[MQTT] subscribing to %s", topic)
	token := client.Subscribe(topic, 0, b.handleStatus)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		log.Printf("[MQTT] error subscribing to %s: %v", topic, token.Error())
	}
}

func (b *Board) onConnectionLost(_ mqtt.Client, err error) {
	log.Printf("[MQTT] connection interrupted (%v), auto-reconnect will retry", err)
	b.setConnected(false)
}

type statusPayload struct {
	Value string `json:"value"`
}

// handleStatus accepts {"value":"..."}, a JSON string, or plain text
func (b *Board) handleStatus(_ mqtt.Client, msg mqtt.Message) {
	payload := msg.Payload()

	var value string
	var obj statusPayload
	var plain string
	switch {
	case json.Unmarshal(payload, &obj) == nil:
		value = obj.Value
	case json.Unmarshal(payload, &plain) == nil:
		value = plain
	default:
		value = strings.TrimSpace(string(payload))
	}
	if value == "" {
		log.Printf("[MQTT] empty board status on %s, skipping", msg.Topic())
		return
	}

	log.Printf("[MQTT] board status: %s", value)
	b.status.SetBoardStatus(value)
}

// IsConnected returns true if the broker connection is up
func (b *Board) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.isConnected
}

func (b *Board) setConnected(connected bool) {
	b.mu.Lock()
	b.isConnected = connected
	b.mu.Unlock()
	b.status.SetBrokerConnected(connected)
}

// Status returns the tracker the board reports to
func (b *Board) Status() *StatusTracker {
	return b.status
}

// Client returns the underlying MQTT client for publishing
func (b *Board) Client() mqtt.Client {
	return b.client
}

// Disconnect stops reconnect attempts and closes the connection
func (b *Board) Disconnect() {
	b.stopOnce.Do(func() { close(b.stop) })
	if b.client != nil && b.client.IsConnected() {
		log.Println("[MQTT] disconnecting...")
		b.client.Disconnect(250)
	}
	b.setConnected(false)
}
