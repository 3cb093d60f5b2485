// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package notifbus implements the broadcast channel carrying domain
// notifications (selection_changed, at_mentioned) from the editor protocol
// endpoint out to every connected WebSocket client. It is a hand-rolled
// fan-out rather than a third-party pub/sub library: the delivery policy is
// a single bounded, per-subscriber, drop-oldest queue, small enough that
// pulling in a message broker for it would be the wrong tool, and this is
// the shape a bounded in-process event dispatch follows.
package notifbus

import (
	"log/slog"
	"sync"

	"github.com/sengokudaikon/claude-code-zed/internal/log"
	"github.com/sengokudaikon/claude-code-zed/internal/rpctypes"
)

// QueueSize is the bounded capacity of each subscriber's channel.
const QueueSize = 1024

// Notification is a single domain event ready to serialize onto a
// WebSocket connection.
type Notification struct {
	Method string
	Params []byte
}

// ToMessage converts n into the JSON-RPC notification envelope the
// WebSocket endpoint writes to its peer.
func (n Notification) ToMessage() *rpctypes.Message {
	return rpctypes.NewNotification(n.Method, n.Params)
}

// Subscription is a single subscriber's bounded inbox. Callers read from C
// until it is closed by Unsubscribe.
type Subscription struct {
	id     uint64
	C      <-chan Notification
	bus    *Bus
	closed bool
	mu     sync.Mutex
}

// Unsubscribe removes the subscription from the bus and closes its channel.
// Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.bus.remove(s.id)
}

// Bus is a multi-producer, multi-consumer broadcast channel. The zero value
// is not usable; construct with New.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan Notification
	nextID      uint64
	logger      *slog.Logger
}

// New returns an empty Bus. A nil logger disables lag/drop logging.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{subscribers: make(map[uint64]chan Notification), logger: logger}
}

// Subscribe registers a new subscriber and returns its Subscription. Typical
// use is one subscription per WebSocket connection, created at handshake and
// torn down at disconnect.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Notification, QueueSize)
	b.subscribers[id] = ch

	return &Subscription{id: id, C: ch, bus: b}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

// Publish fans n out to every current subscriber. Publish never blocks: a
// subscriber whose queue is full is sent a drop-oldest notice by discarding
// its oldest queued message to make room, and the event is logged at debug
// level rather than retried.
func (b *Bus) Publish(n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- n:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- n:
			default:
			}
			b.logger.Warn("subscriber lagging, dropped oldest notification",
				log.Int64(log.ConnIDKey, int64(id)), log.String(log.MethodKey, n.Method))
		}
	}
}

// SubscriberCount reports the current number of live subscriptions, for
// diagnostics.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
