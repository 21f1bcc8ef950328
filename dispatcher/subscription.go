package dispatcher

import (
	intake "github.com/goliatone/go-intake"
	"github.com/goliatone/go-intake/flow"
)

// Listener observes audited intents after they reach the sink.
type Listener func(Entry)

type Subscription interface {
	Unsubscribe()
}

type subs struct {
	dispatcher *Dispatcher
	id         uint64
}

func (s *subs) Unsubscribe() {
	d := s.dispatcher
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.listeners, s.id)
}

// Subscribe registers l for every future entry.
func (d *Dispatcher) Subscribe(l Listener) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextSubID++
	d.listeners[d.nextSubID] = l
	return &subs{dispatcher: d, id: d.nextSubID}
}

func (d *Dispatcher) notify(entry Entry) {
	d.mu.RLock()
	listeners := make([]Listener, 0, len(d.listeners))
	for _, l := range d.listeners {
		listeners = append(listeners, l)
	}
	d.mu.RUnlock()

	for _, l := range listeners {
		if l == nil {
			continue
		}
		func() {
			defer intake.MakePanicHandler(d.panicLogger)("dispatcher.listener", map[string]any{
				"intent": entry.Intent,
				"id":     entry.ID,
			})
			l(entry)
		}()
	}
}

func (d *Dispatcher) panicLogger(funcName string, err any, _ []byte, fields ...map[string]any) {
	logger := d.logger
	if len(fields) > 0 {
		logger = flow.WithLoggerFields(logger, fields[0])
	}
	logger.Error("recovered from panic in %s: %v", funcName, err)
}
