// Package bus is a small in-process pub/sub with MQTT-style topics.
// Subscriptions may use "+" (one level) and "#" (rest of topic).
// Delivery never blocks the publisher: a full subscriber queue drops its
// oldest message.
package bus

import (
	"strings"
	"sync"
)

const (
	AnyOne  = "+"
	AnyRest = "#"
)

// Topic is a sequence of levels.
type Topic []string

// T builds a topic from its levels.
func T(levels ...string) Topic { return Topic(levels) }

// Parse splits a slash-separated topic.
func Parse(s string) Topic { return Topic(strings.Split(s, "/")) }

func (t Topic) String() string { return strings.Join(t, "/") }

// Match reports whether topic matches the subscription pattern.
func Match(pattern, topic Topic) bool {
	for i, p := range pattern {
		if p == AnyRest {
			return true
		}
		if i >= len(topic) {
			return false
		}
		if p != AnyOne && p != topic[i] {
			return false
		}
	}
	return len(pattern) == len(topic)
}

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
}

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// deliver queues msg, dropping the oldest entry if the queue is full.
func (s *Subscription) deliver(msg *Message) {
	for {
		select {
		case s.ch <- msg:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

type node struct {
	children map[string]*node
	subs     []*Subscription
}

type Bus struct {
	mu       sync.Mutex
	root     *node
	retained map[string]*Message
	qLen     int
}

// NewBus creates a bus whose subscriptions queue up to queueLen messages.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{
		root:     &node{},
		retained: make(map[string]*Message),
		qLen:     queueLen,
	}
}

func (b *Bus) NewMessage(topic Topic, payload any, retained bool) *Message {
	return &Message{Topic: topic, Payload: payload, Retained: retained}
}

func (b *Bus) addSubscription(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	for _, tok := range sub.topic {
		if n.children == nil {
			n.children = make(map[string]*node)
		}
		child, ok := n.children[tok]
		if !ok {
			child = &node{}
			n.children[tok] = child
		}
		n = child
	}
	n.subs = append(n.subs, sub)

	for _, m := range b.retained {
		if Match(sub.topic, m.Topic) {
			sub.deliver(m)
		}
	}
}

// Publish delivers msg to every matching subscription. A retained
// message with a nil payload clears the retained value.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.walk(b.root, msg.Topic, msg)

	if msg.Retained {
		key := msg.Topic.String()
		if msg.Payload == nil {
			delete(b.retained, key)
		} else {
			b.retained[key] = msg
		}
	}
}

func (b *Bus) walk(n *node, rest Topic, msg *Message) {
	if c := n.children[AnyRest]; c != nil {
		for _, s := range c.subs {
			s.deliver(msg)
		}
	}
	if len(rest) == 0 {
		for _, s := range n.subs {
			s.deliver(msg)
		}
		return
	}
	if c := n.children[rest[0]]; c != nil {
		b.walk(c, rest[1:], msg)
	}
	if c := n.children[AnyOne]; c != nil && rest[0] != AnyOne {
		b.walk(c, rest[1:], msg)
	}
}

func (b *Bus) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.root
	stack := make([]*node, 0, len(sub.topic))
	for _, tok := range sub.topic {
		child, ok := n.children[tok]
		if !ok {
			return
		}
		stack = append(stack, n)
		n = child
	}

	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	// prune empty nodes
	for i := len(sub.topic) - 1; i >= 0; i-- {
		parent, key := stack[i], sub.topic[i]
		child := parent.children[key]
		if len(child.subs) != 0 || len(child.children) != 0 {
			break
		}
		delete(parent.children, key)
	}
}

// Connection owns a set of subscriptions.
type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) NewMessage(topic Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(topic, payload, retained)
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

func (c *Connection) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{
		topic: topic,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.addSubscription(sub)
	return sub
}

// Unsubscribe removes sub and closes its channel.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	found := false
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()
	if !found {
		return
	}
	c.bus.unsubscribe(sub)
	close(sub.ch)
}

// Disconnect closes all subscriptions.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.unsubscribe(sub)
		close(sub.ch)
	}
}
