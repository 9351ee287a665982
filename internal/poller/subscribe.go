package poller

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"
)

type subscriber[R any] struct {
	fn func([]R)
	id uint64
}

// Subscribe registers fn for every emitted batch. fn runs on the tick's
// goroutine and must not block for long or call Stop. The returned func unsubscribes.
func (e *Engine[E, R]) Subscribe(fn func(batch []R)) (cancel func()) {
	e.mu.Lock()
	e.nextSubID++
	id := e.nextSubID
	e.subscribers = append(e.subscribers, subscriber[R]{fn: fn, id: id})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.subscribers = slices.DeleteFunc(e.subscribers, func(s subscriber[R]) bool {
				return s.id == id
			})
		})
	}
}

// Updates returns a channel receiving every emitted batch. When the consumer
// falls behind the oldest pending batch is replaced by the newest. cancel
// unsubscribes and closes the channel.
func (e *Engine[E, R]) Updates(buffer int) (<-chan []R, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan []R, buffer)

	var (
		mu     sync.Mutex
		closed bool
	)
	unsubscribe := e.Subscribe(func(batch []R) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- batch:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- batch:
		default:
			e.logger.Debug("Dropped update for slow consumer")
		}
	})

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			unsubscribe()
			mu.Lock()
			closed = true
			close(ch)
			mu.Unlock()
		})
	}
}

// fingerprint hashes the ordered encoded tuples of a batch
func fingerprint[R any](batch []R, encode func(R) string) string {
	var b strings.Builder
	for _, result := range batch {
		b.WriteString(encode(result))
		b.WriteByte('\n')
	}
	return fmt.Sprintf("%016x", xxh3.HashString(b.String()))
}
