package logging

import (
	"log/slog"
	"sort"

	"marketfront/core/events"
)

// EventEmitter returns an emitter that writes each confirmed ledger event to
// logger. Events implementing events.Recorder log their flattened attributes.
func EventEmitter(logger *slog.Logger) events.Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return events.EmitterFunc(func(evt events.Event) {
		if evt == nil {
			return
		}
		recorder, ok := evt.(events.Recorder)
		if !ok {
			logger.Info("ledger event confirmed", slog.String("event", evt.EventType()))
			return
		}
		record := recorder.Record()
		keys := make([]string, 0, len(record.Attributes))
		for key := range record.Attributes {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		attrs := make([]any, 0, len(keys))
		for _, key := range keys {
			attrs = append(attrs, slog.String(key, record.Attributes[key]))
		}
		logger.Info("ledger event confirmed",
			slog.String("event", record.Type),
			slog.Group("attributes", attrs...))
	})
}
