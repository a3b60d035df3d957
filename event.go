package ohlcv

import "time"

type EventKind string

const (
	EventBackfillStarted EventKind = "backfill-started"
	EventPageRetried     EventKind = "page-retried"
	EventRetryExhausted  EventKind = "retry-exhausted"
	EventPageRejected    EventKind = "page-rejected"
	EventRecordSkipped   EventKind = "record-skipped"
	EventPairUpToDate    EventKind = "pair-up-to-date"
	EventSeriesPersisted EventKind = "series-persisted"
	EventPairFailed      EventKind = "pair-failed"
)

// Event is a structured notification about the progress of an ingestion
// sweep. The core publishes events instead of logging ad-hoc so that all
// side effects flow through declared collaborators.
type Event struct {
	Kind   EventKind
	Pair   Pair
	Fields map[string]interface{}
}

func NewBackfillStartedEvent(pair Pair, window *FetchWindow) *Event {
	return &Event{
		Kind: EventBackfillStarted,
		Pair: pair,
		Fields: map[string]interface{}{
			"start": window.Start.Format(time.RFC3339),
			"end":   window.End.Format(time.RFC3339),
		},
	}
}

func NewPageRetriedEvent(pair Pair, attempt int, cause error) *Event {
	return &Event{
		Kind: EventPageRetried,
		Pair: pair,
		Fields: map[string]interface{}{
			"attempt": attempt,
			"cause":   cause.Error(),
		},
	}
}

func NewRetryExhaustedEvent(pair Pair, attempts int, cause error) *Event {
	return &Event{
		Kind: EventRetryExhausted,
		Pair: pair,
		Fields: map[string]interface{}{
			"attempts": attempts,
			"cause":    cause.Error(),
		},
	}
}

func NewPageRejectedEvent(pair Pair, reason string) *Event {
	return &Event{
		Kind: EventPageRejected,
		Pair: pair,
		Fields: map[string]interface{}{
			"reason": reason,
		},
	}
}

func NewRecordSkippedEvent(pair Pair, index int, cause error) *Event {
	return &Event{
		Kind: EventRecordSkipped,
		Pair: pair,
		Fields: map[string]interface{}{
			"index": index,
			"cause": cause.Error(),
		},
	}
}

func NewPairUpToDateEvent(pair Pair) *Event {
	return &Event{
		Kind:   EventPairUpToDate,
		Pair:   pair,
		Fields: map[string]interface{}{},
	}
}

func NewSeriesPersistedEvent(pair Pair, totalCount, newCount int) *Event {
	return &Event{
		Kind: EventSeriesPersisted,
		Pair: pair,
		Fields: map[string]interface{}{
			"total": totalCount,
			"new":   newCount,
		},
	}
}

func NewPairFailedEvent(pair Pair, cause error) *Event {
	return &Event{
		Kind: EventPairFailed,
		Pair: pair,
		Fields: map[string]interface{}{
			"cause": cause.Error(),
		},
	}
}

type EventSink interface {
	Publish(event *Event)
}

// LoggingSink renders events through the configured logger. It is the
// default sink.
type LoggingSink struct {
	logger Logger
}

func NewLoggingSink(logger Logger) *LoggingSink {
	return &LoggingSink{logger: logger}
}

func (ls *LoggingSink) Publish(event *Event) {
	eventLogger := ls.logger.
		WithField("pair", event.Pair.String()).
		WithFields(event.Fields)

	switch event.Kind {
	case EventPageRetried,
		EventRetryExhausted,
		EventPageRejected,
		EventRecordSkipped:
		eventLogger.Warningf("%v", event.Kind)
	case EventPairFailed:
		eventLogger.Errorf("%v", event.Kind)
	default:
		eventLogger.Infof("%v", event.Kind)
	}
}

type fanoutSink struct {
	sinks []EventSink
}

// NewFanoutSink publishes every event to all given sinks, in order.
func NewFanoutSink(sinks ...EventSink) EventSink {
	return &fanoutSink{sinks: sinks}
}

func (fs *fanoutSink) Publish(event *Event) {
	for _, sink := range fs.sinks {
		sink.Publish(event)
	}
}
