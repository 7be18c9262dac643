package wall

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ProblemMessage is the payload published to <prefix>/problem
type ProblemMessage struct {
	Holds     HoldCollection `json:"holds"`
	Query     string         `json:"query"`
	Timestamp int64          `json:"timestamp"`
}

// Publisher sends layouts to the board. Messages are retained so a board
// that reconnects lights the latest problem.
type Publisher struct {
	client mqtt.Client
	topic  string
	status *StatusTracker
	qos    byte
	retain bool
	last   *ProblemMessage
	mu     sync.RWMutex
}

// NewPublisher creates a publisher for a board. A nil board disables
// publishing.
func NewPublisher(board *Board) *Publisher {
	p := &Publisher{
		qos:    0,
		retain: true,
	}
	if board != nil {
		p.client = board.Client()
		p.topic = board.Topic(TopicProblem)
		p.status = board.Status()
	}
	return p
}

// Enabled reports whether there is a client to publish through
func (p *Publisher) Enabled() bool {
	return p != nil && p.client != nil
}

// Persist publishes the layout. It satisfies Persister so a Store can be
// wired straight to the board; failures are logged, not returned.
func (p *Publisher) Persist(c HoldCollection) {
	if !p.Enabled() {
		return
	}
	if err := p.PublishLayout(c); err != nil {
		log.Printf("[MQTT] publishing layout: %v", err)
	}
}

// PublishLayout publishes one layout
func (p *Publisher) PublishLayout(c HoldCollection) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}
	if c == nil {
		c = HoldCollection{}
	}

	msg := &ProblemMessage{
		Holds:     c.Clone(),
		Query:     ShareQuery(c),
		Timestamp: time.Now().Unix(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling layout: %w", err)
	}

	p.mu.RLock()
	qos, retain := p.qos, p.retain
	p.mu.RUnlock()

	token := p.client.Publish(p.topic, qos, retain, payload)
	if token.WaitTimeout(2*time.Second) && token.Error() != nil {
		return fmt.Errorf("publishing to %s: %w", p.topic, token.Error())
	}

	p.mu.Lock()
	p.last = msg
	p.mu.Unlock()
	if p.status != nil {
		p.status.RecordPublish(msg.Query)
	}

	log.Printf("[MQTT] published %d holds to %s", len(c), p.topic)
	return nil
}

// Last returns the most recently published layout
func (p *Publisher) Last() (ProblemMessage, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return ProblemMessage{}, false
	}
	return *p.last, true
}

// SetQoS sets the Quality of Service level for publishing (0, 1, or 2)
func (p *Publisher) SetQoS(qos byte) {
	if qos <= 2 {
		p.mu.Lock()
		p.qos = qos
		p.mu.Unlock()
	}
}

// SetRetain sets whether published messages should be retained by the broker
func (p *Publisher) SetRetain(retain bool) {
	p.mu.Lock()
	p.retain = retain
	p.mu.Unlock()
}
