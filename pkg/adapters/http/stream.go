package http

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/dgwatch/pkg/domain"
)

// Event topics carried by the stream.
const (
	TopicSubscription = "subscription"
	TopicReaction     = "reaction"
	TopicWatcher      = "watcher"
)

// StreamManager handles active SSE connections, keyed by topic.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{}
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

// Subscribe registers one channel for all the given topics.
func (sm *StreamManager) Subscribe(topics ...string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	for _, topic := range topics {
		if _, ok := sm.subscribers[topic]; !ok {
			sm.subscribers[topic] = make(map[chan<- string]struct{})
		}
		sm.subscribers[topic][ch] = struct{}{}
	}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		for _, topic := range topics {
			if subs, ok := sm.subscribers[topic]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(sm.subscribers, topic)
				}
			}
		}
		close(ch)
	}
}

// Broadcast delivers msg to every subscriber of topic without blocking.
func (sm *StreamManager) Broadcast(topic string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[topic] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			slog.Warn("SSE: Client buffer full, dropping message", "topic", topic)
		}
	}
}

func (sm *StreamManager) publish(topic string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("SSE: encode failed", "topic", topic, "error", err)
		return
	}
	sm.Broadcast(topic, `{"topic":"`+topic+`","event":`+string(data)+`}`)
}

// Hooks returns lifecycle hooks that publish every event to the stream.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnInstall: func(e *domain.SubscriptionEvent) { sm.publish(TopicSubscription, e) },
		OnRemove:  func(e *domain.SubscriptionEvent) { sm.publish(TopicSubscription, e) },
		OnReact:   func(e *domain.ReactionEvent) { sm.publish(TopicReaction, e) },
		OnWatcherTransition: func(e *domain.WatcherEvent) {
			sm.publish(TopicWatcher, e)
		},
	}
}
