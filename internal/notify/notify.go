// Package notify carries semantic events from the core to whatever
// presentation layer is attached. The core never depends on how an
// event is rendered.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

type Kind string

const (
	KindIngestCompleted Kind = "ingest_completed"
	KindIngestFailed    Kind = "ingest_failed"
	KindUploadCanceled  Kind = "upload_canceled"
	KindStageChanged    Kind = "stage_changed"
	KindCategoryTally   Kind = "category_tally"
	KindExportCompleted Kind = "export_completed"
	KindExportFailed    Kind = "export_failed"
)

type Event struct {
	Kind    Kind      `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type Notifier interface {
	Publish(event Event)
}

// LogNotifier renders events as structured log lines.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Publish(event Event) {
	switch event.Kind {
	case KindIngestFailed, KindExportFailed:
		n.logger.Warn("notification", "kind", event.Kind, "message", event.Message)
	default:
		n.logger.Info("notification", "kind", event.Kind, "message", event.Message)
	}
}

const bufferCap = 100

// Buffer retains the most recent events so observers can poll them.
type Buffer struct {
	mu     sync.Mutex
	events []Event
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, event)
	if len(b.events) > bufferCap {
		b.events = b.events[len(b.events)-bufferCap:]
	}
}

// Events returns the retained events, oldest first.
func (b *Buffer) Events() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := make([]Event, len(b.events))
	copy(cp, b.events)
	return cp
}

// Multi fans one event out to several notifiers.
type Multi []Notifier

func (m Multi) Publish(event Event) {
	for _, n := range m {
		n.Publish(event)
	}
}
