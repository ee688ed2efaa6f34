/*******************************************************************************
*
* Copyright 2026 The swupdate-core Authors
*
* Licensed under the Apache License, Version 2.0 (the "License");
* you may not use this file except in compliance with the License.
* You should have received a copy of the License along with this
* program. If not, you may obtain a copy of the License at
*
*     http://www.apache.org/licenses/LICENSE-2.0
*
* Unless required by applicable law or agreed to in writing, software
* distributed under the License is distributed on an "AS IS" BASIS,
* WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
* See the License for the specific language governing permissions and
* limitations under the License.
*
*******************************************************************************/

package notifier

import "sync"

// Subscriber receives every Record published after it subscribes.
type Subscriber func(Record)

// Bus dispatches Records to subscribers synchronously, in subscription
// order, on the publishing goroutine. A slow subscriber therefore
// blocks the coordinator; subscribers that need to do real work should
// hand records off to their own goroutine immediately.
type Bus struct {
	mu          sync.Mutex
	subscribers []Subscriber
	transport   Transport
}

// NewBus returns an empty Bus. Attach an optional Transport with
// SetTransport to also forward records over IPC.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a subscriber and returns an unsubscribe func.
func (b *Bus) Subscribe(s Subscriber) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, s)
	idx := len(b.subscribers) - 1
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if idx < len(b.subscribers) {
			b.subscribers[idx] = nil
		}
	}
}

// SetTransport attaches an outbound IPC transport; every Publish call
// also sends to it. A nil transport disables forwarding.
func (b *Bus) SetTransport(t Transport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transport = t
}

// Publish delivers rec to every live subscriber and the attached
// transport, if any. Transport errors are swallowed: a disconnected
// progress monitor must never fail the transaction it is merely
// observing.
func (b *Bus) Publish(rec Record) {
	b.mu.Lock()
	subs := make([]Subscriber, len(b.subscribers))
	copy(subs, b.subscribers)
	transport := b.transport
	b.mu.Unlock()

	for _, s := range subs {
		if s != nil {
			s(rec)
		}
	}
	if transport != nil {
		_ = transport.Send(rec)
	}
}
