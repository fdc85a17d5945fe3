package sink

import (
	"fmt"
	"strings"
	"sync"

	"hyprice/metrics"
	"hyprice/models"
	"hyprice/utils"
)

// PresentationSink receives rendered views for delivery. Chat
// transports (message edit, pinned summaries, inline buttons) implement
// this interface outside the core.
type PresentationSink interface {
	Deliver(subscriberID int64, view models.RenderedView) error
}

// LogSink writes delivered views to the structured log. Used as the
// default sink when no transport is attached.
type LogSink struct{}

func (LogSink) Deliver(subscriberID int64, view models.RenderedView) error {
	metrics.IncrementDeliveries()
	utils.Logger.Infow("View delivered",
		"subscriber", subscriberID,
		"tokens", len(view.Actions)/2,
		"bytes", len(view.Text),
	)
	return nil
}

// MultiSink fans one delivery out to several sinks concurrently.
type MultiSink struct {
	sinks []PresentationSink
}

func NewMultiSink(sinks ...PresentationSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Deliver(subscriberID int64, view models.RenderedView) error {
	var wg sync.WaitGroup
	errChan := make(chan error, len(m.sinks))

	for _, s := range m.sinks {
		wg.Add(1)
		go func(s PresentationSink) {
			defer wg.Done()
			if err := s.Deliver(subscriberID, view); err != nil {
				errChan <- err
			}
		}(s)
	}

	wg.Wait()
	close(errChan)

	var errs []string
	for err := range errChan {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("delivery errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
