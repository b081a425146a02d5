package store

import "swapcore/internal/model"

// SwapSink is a destination for executed swap records.
type SwapSink interface {
	PutSwaps(records []model.SwapRecord) error
}

// MultiSink fans swap records out to several sinks, stopping at the first
// failure.
type MultiSink []SwapSink

func (m MultiSink) PutSwaps(records []model.SwapRecord) error {
	for _, sink := range m {
		if err := sink.PutSwaps(records); err != nil {
			return err
		}
	}
	return nil
}
