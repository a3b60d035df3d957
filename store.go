package ohlcv

import "fmt"

// CandleRepository is the storage collaborator. LoadSeries returns
// (nil, nil) when no data has been persisted for the pair yet.
// PersistSeries must replace the pair's series atomically: a crash
// mid-write must not leave a series that violates the uniqueness or
// ordering invariant when next read.
type CandleRepository interface {
	LoadSeries(pair Pair) (*Series, error)

	PersistSeries(pair Pair, series *Series) error
}

// Store wraps the repository with the merge semantics of the pipeline:
// dedup by open time with incoming records winning, sort ascending,
// persist the full resulting series.
type Store struct {
	logger     Logger
	sink       EventSink
	repository CandleRepository
}

func NewStore(logger Logger, sink EventSink, repository CandleRepository) *Store {
	return &Store{
		logger:     logger,
		sink:       sink,
		repository: repository,
	}
}

// Load reads the persisted series for the pair. A read or deserialize
// failure degrades to "no prior data" so the pair falls back to full
// backfill semantics; the failure is logged, not propagated.
func (s *Store) Load(pair Pair) *Series {
	series, err := s.repository.LoadSeries(pair)
	if err != nil {
		s.logger.Warningf(
			"could not load series for pair [%v]; "+
				"falling back to backfill: [%v]",
			pair,
			err,
		)
		return nil
	}

	return series
}

// MergeAndPersist merges incoming candles into the existing series and
// writes the result back. A write failure is propagated; it must never
// be swallowed as it would mask permanent data loss.
func (s *Store) MergeAndPersist(
	pair Pair,
	existing *Series,
	incoming []*Candle,
) (*Series, error) {
	merged := NewSeries()

	if existing != nil {
		merged.Add(existing.Candles()...)
	}

	merged.Add(incoming...)

	if err := s.repository.PersistSeries(pair, merged); err != nil {
		return nil, fmt.Errorf(
			"could not persist series for pair [%v]: [%v]",
			pair,
			err,
		)
	}

	s.sink.Publish(NewSeriesPersistedEvent(pair, merged.Len(), len(incoming)))

	return merged, nil
}
