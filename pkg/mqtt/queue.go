// Package mqtt forwards and monitors JSON lines over an MQTT broker.
package mqtt

import (
	"net/url"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// Handler is called with the topic (prefix stripped) and payload of
// every matching message.
type Handler func(topic string, payload []byte)

// ConnectHandler is called on connect/disconnect.
type ConnectHandler func(*Queue)

// Queue wraps a paho client with a topic prefix and local dispatch.
type Queue struct {
	Client       paho.Client
	TopicPrefix  string
	OnConnect    ConnectHandler
	OnDisconnect ConnectHandler

	subsLock sync.RWMutex
	subs     map[string][]*Subscription
}

// Subscription is a handler registered for a topic filter.
type Subscription struct {
	Token paho.Token

	queue   *Queue
	filter  string
	handler Handler
}

// MatchTopic matches topic against a filter with + and # wildcards.
func MatchTopic(topic, filter string) bool {
	levels, patterns := strings.Split(topic, "/"), strings.Split(filter, "/")
	for n, pattern := range patterns {
		if pattern == "#" && n+1 == len(patterns) {
			return true
		}
		if n >= len(levels) {
			return false
		}
		if pattern != "+" && pattern != levels[n] {
			return false
		}
	}
	return len(levels) == len(patterns)
}

// ClientOptionsFromURL parses mqtt://[user:pass@]host:port/prefix/?client-id=ID.
func ClientOptionsFromURL(brokerURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, "", err
	}
	scheme := u.Scheme
	switch scheme {
	case "", "mqtt":
		scheme = "tcp"
	case "mqtts":
		scheme = "ssl"
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if clientID := u.Query().Get("client-id"); clientID != "" {
		opts.SetClientID(clientID)
	}
	return opts, strings.TrimPrefix(u.Path, "/"), nil
}

// NewQueue creates a Queue, the client is not connected yet.
func NewQueue(options *paho.ClientOptions, topicPrefix string) *Queue {
	q := &Queue{TopicPrefix: topicPrefix, subs: make(map[string][]*Subscription)}
	options.SetOnConnectHandler(q.handleConnect)
	options.SetConnectionLostHandler(q.handleConnectionLost)
	q.Client = paho.NewClient(options)
	return q
}

// NewQueueFromURL creates a Queue from a broker URL.
func NewQueueFromURL(brokerURL string) (*Queue, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewQueue(opts, topicPrefix), nil
}

// Connect connects the client.
func (q *Queue) Connect() paho.Token {
	return q.Client.Connect()
}

// Close implements io.Closer.
func (q *Queue) Close() error {
	q.Client.Disconnect(250)
	return nil
}

// Sub registers handler for a topic filter relative to the prefix.
func (q *Queue) Sub(filter string, handler Handler) *Subscription {
	sub := &Subscription{queue: q, filter: filter, handler: handler}
	q.subsLock.Lock()
	subs := q.subs[filter]
	q.subs[filter] = append(subs, sub)
	q.subsLock.Unlock()

	if len(subs) == 0 {
		glog.V(2).Infof("SUB %q", q.TopicPrefix+filter)
		sub.Token = q.Client.Subscribe(q.TopicPrefix+filter, 0, q.dispatch)
	}
	return sub
}

// Pub publishes to a topic relative to the prefix.
func (q *Queue) Pub(topic string, payload []byte) paho.Token {
	return q.PubWith(topic, payload, 0, false)
}

// PubWith publishes with QoS and retain flag.
func (q *Queue) PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token {
	return q.Client.Publish(q.TopicPrefix+topic, qos, retain, payload)
}

func (q *Queue) handleConnect(paho.Client) {
	glog.Infof("MQTT connected")
	filters := make(map[string]byte)
	q.subsLock.RLock()
	for filter := range q.subs {
		filters[q.TopicPrefix+filter] = 0
	}
	q.subsLock.RUnlock()
	if len(filters) > 0 {
		q.Client.SubscribeMultiple(filters, q.dispatch)
	}
	if h := q.OnConnect; h != nil {
		h(q)
	}
}

func (q *Queue) handleConnectionLost(_ paho.Client, err error) {
	glog.Warningf("MQTT connection lost: %v", err)
	if h := q.OnDisconnect; h != nil {
		h(q)
	}
}

func (q *Queue) dispatch(_ paho.Client, msg paho.Message) {
	q.Dispatch(msg.Topic(), msg.Payload())
}

// Dispatch delivers a message received on the full topic to the
// matching handlers.
func (q *Queue) Dispatch(topic string, payload []byte) {
	if !strings.HasPrefix(topic, q.TopicPrefix) {
		return
	}
	topic = topic[len(q.TopicPrefix):]
	glog.V(2).Infof("RCV %q", topic)
	var handlers []Handler
	q.subsLock.RLock()
	for filter, subs := range q.subs {
		if MatchTopic(topic, filter) {
			for _, sub := range subs {
				handlers = append(handlers, sub.handler)
			}
		}
	}
	q.subsLock.RUnlock()
	for _, h := range handlers {
		h(topic, payload)
	}
}

// Close removes the handler, and unsubscribes when it was the last
// one on the filter.
func (s *Subscription) Close() error {
	q := s.queue
	q.subsLock.Lock()
	subs := q.subs[s.filter]
	for n, sub := range subs {
		if sub == s {
			subs = append(subs[:n], subs[n+1:]...)
			break
		}
	}
	if len(subs) == 0 {
		delete(q.subs, s.filter)
	} else {
		q.subs[s.filter] = subs
	}
	q.subsLock.Unlock()
	if len(subs) > 0 {
		return nil
	}
	glog.V(2).Infof("UNSUB %q", q.TopicPrefix+s.filter)
	token := q.Client.Unsubscribe(q.TopicPrefix + s.filter)
	token.Wait()
	return token.Error()
}
