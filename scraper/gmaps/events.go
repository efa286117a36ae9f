package gmaps

import (
	"gmaps-scraper/models"
	"gmaps-scraper/utils"
)

// EventKind identifies a progress or error event emitted during a run.
type EventKind string

const (
	EventUnitStarted      EventKind = "unit_started"
	EventScrollProgress   EventKind = "scroll_progress"
	EventTargetMet        EventKind = "target_met"
	EventExhausted        EventKind = "exhausted"
	EventScrollCapReached EventKind = "scroll_cap_reached"
	EventListingFailed    EventKind = "listing_failed"
	EventUnitFailed       EventKind = "unit_failed"
	EventBatchFlushed     EventKind = "batch_flushed"
)

// Event is one entry of the run's event stream. Fields that do not apply to
// a kind are left zero.
type Event struct {
	Kind EventKind
	Unit models.SearchUnit
	// TermIndex is the position of the unit's term in the term list.
	TermIndex int
	// Count is the number of results or records the event refers to.
	Count   int
	Listing Listing
	Err     error
}

// Observer consumes run events.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// LogObserver prints events as console lines.
type LogObserver struct {
	logger *utils.Logger
}

func NewLogObserver(logger *utils.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) Observe(e Event) {
	switch e.Kind {
	case EventUnitStarted:
		o.logger.Info("-----")
		o.logger.Info("%d - %s", e.TermIndex, e.Unit.Query())
	case EventScrollProgress:
		o.logger.Info("[lister] Currently scraped: %d", e.Count)
	case EventTargetMet:
		o.logger.Info("[lister] Total scraped: %d", e.Count)
	case EventExhausted:
		o.logger.Info("[lister] Arrived at all available, total scraped: %d", e.Count)
	case EventScrollCapReached:
		o.logger.Warn("[lister] Scroll cap reached with %d results, continuing with what is loaded", e.Count)
	case EventListingFailed:
		o.logger.Error("[scraper] Error occurred on listing %d (%s): %v", e.Listing.Index, e.Listing.Label, e.Err)
	case EventUnitFailed:
		o.logger.Error("[scraper] Search %q failed: %v", e.Unit.Query(), e.Err)
	case EventBatchFlushed:
		o.logger.Info("[storage] Saved %d businesses to %s", e.Count, e.Unit.FileStem())
	default:
		o.logger.Debug("[scraper] event %s", e.Kind)
	}
}

// multiObserver fans an event out to several observers.
type multiObserver []Observer

func (m multiObserver) Observe(e Event) {
	for _, o := range m {
		o.Observe(e)
	}
}

// Observers combines observers into one, skipping nils.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}
