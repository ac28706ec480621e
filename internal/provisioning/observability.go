package provisioning

import (
	"fmt"
	"log"
	"maps"
	"slices"
	"strings"
	"time"
)

// Logger is the minimal printf-style logger handlers receive.
type Logger interface {
	Printf(format string, v ...any)
}

// Observer defines the interface for structured observability during a run.
type Observer interface {
	Logger

	// Event emits a structured event
	Event(event Event)

	// Progress reports progress for a phase
	Progress(phase string, current, total int)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured engine event.
type Event struct {
	Type      EventType         // Type of event
	Phase     string            // Phase name (e.g., "apply", "destroy")
	Message   string            // Human-readable message
	Resource  string            // Resource ID ("kind/name") if applicable
	Timestamp time.Time         // When the event occurred
	Fields    map[string]string // Additional contextual fields
}

// EventType represents the type of engine event.
type EventType string

const (
	// EventPhaseStarted indicates a phase has started.
	EventPhaseStarted EventType = "phase.started"
	// EventPhaseCompleted indicates a phase completed successfully.
	EventPhaseCompleted EventType = "phase.completed"
	// EventPhaseFailed indicates a phase failed.
	EventPhaseFailed EventType = "phase.failed"

	// EventResourceCreating indicates a resource is being created.
	EventResourceCreating EventType = "resource.creating"
	// EventResourceCreated indicates a resource was created successfully.
	EventResourceCreated EventType = "resource.created"
	// EventResourceUpdating indicates a resource is being updated in place.
	EventResourceUpdating EventType = "resource.updating"
	// EventResourceUpdated indicates a resource was updated in place.
	EventResourceUpdated EventType = "resource.updated"
	// EventResourceUnchanged indicates a resource needed no change.
	EventResourceUnchanged EventType = "resource.unchanged"
	// EventResourceFailed indicates a resource operation failed.
	EventResourceFailed EventType = "resource.failed"
	// EventResourceDeleting indicates a resource is being deleted.
	EventResourceDeleting EventType = "resource.deleting"
	// EventResourceDeleted indicates a resource was deleted successfully.
	EventResourceDeleted EventType = "resource.deleted"
	// EventResourceGone indicates a refresh found a resource missing at the provider.
	EventResourceGone EventType = "resource.gone"

	// EventProgress indicates progress in a long-running operation.
	EventProgress EventType = "progress"
)

// ConsoleObserver implements Observer using the standard log package.
type ConsoleObserver struct {
	logger        *log.Logger
	contextFields map[string]string
}

// NewConsoleObserver creates a new console-based observer writing to the
// default logger.
func NewConsoleObserver() *ConsoleObserver {
	return NewConsoleObserverWithLogger(log.Default())
}

// NewConsoleObserverWithLogger creates a console observer writing to logger.
func NewConsoleObserverWithLogger(logger *log.Logger) *ConsoleObserver {
	return &ConsoleObserver{
		logger:        logger,
		contextFields: make(map[string]string),
	}
}

// Printf implements Logger.
func (o *ConsoleObserver) Printf(format string, v ...any) {
	o.logger.Printf(format, v...)
}

// Event implements Observer interface.
func (o *ConsoleObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Fields = mergeFields(o.contextFields, event.Fields)
	o.logger.Print(o.formatEvent(event))
}

// Progress implements Observer interface.
func (o *ConsoleObserver) Progress(phase string, current, total int) {
	if total == 0 {
		o.logger.Printf("[%s] Progress: %d/%d", phase, current, total)
		return
	}
	percentage := (current * 100) / total
	o.logger.Printf("[%s] Progress: %d/%d (%d%%)", phase, current, total, percentage)
}

// WithFields implements Observer interface.
func (o *ConsoleObserver) WithFields(fields map[string]string) Observer {
	return &ConsoleObserver{
		logger:        o.logger,
		contextFields: mergeFields(fields, o.contextFields),
	}
}

// formatEvent formats an event for console output.
func (o *ConsoleObserver) formatEvent(event Event) string {
	var parts []string

	parts = append(parts, string(event.Type))

	if event.Phase != "" {
		parts = append(parts, fmt.Sprintf("[%s]", event.Phase))
	}

	if event.Resource != "" {
		parts = append(parts, fmt.Sprintf("resource=%s", event.Resource))
	}

	parts = append(parts, event.Message)

	if len(event.Fields) > 0 {
		var fieldParts []string
		for _, k := range slices.Sorted(maps.Keys(event.Fields)) {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%s", k, event.Fields[k]))
		}
		parts = append(parts, fmt.Sprintf("(%s)", strings.Join(fieldParts, ", ")))
	}

	return strings.Join(parts, " ")
}

// mergeFields returns a copy of override with base entries it does not set.
func mergeFields(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	maps.Copy(out, base)
	maps.Copy(out, override)
	return out
}

// nopObserver discards everything.
type nopObserver struct{}

func (nopObserver) Printf(string, ...any)                   {}
func (nopObserver) Event(Event)                             {}
func (nopObserver) Progress(string, int, int)               {}
func (n nopObserver) WithFields(map[string]string) Observer { return n }

// Helper functions for common events

// LogPhaseStart logs a phase start event.
func LogPhaseStart(observer Observer, phase string) {
	observer.Event(Event{
		Type:    EventPhaseStarted,
		Phase:   phase,
		Message: "starting",
	})
}

// LogPhaseComplete logs a phase completion event.
func LogPhaseComplete(observer Observer, phase string, duration time.Duration) {
	observer.Event(Event{
		Type:    EventPhaseCompleted,
		Phase:   phase,
		Message: fmt.Sprintf("completed in %v", duration.Round(time.Millisecond)),
	})
}

// LogPhaseFailed logs a phase failure event.
func LogPhaseFailed(observer Observer, phase string, err error) {
	observer.Event(Event{
		Type:    EventPhaseFailed,
		Phase:   phase,
		Message: fmt.Sprintf("failed: %v", err),
	})
}

// resourceEvents maps an action to its start and finish events.
var resourceEvents = map[Action][2]EventType{
	ActionCreate: {EventResourceCreating, EventResourceCreated},
	ActionUpdate: {EventResourceUpdating, EventResourceUpdated},
	ActionDelete: {EventResourceDeleting, EventResourceDeleted},
}

// LogResourceStart logs the start of a create, update or delete.
func LogResourceStart(observer Observer, phase string, action Action, id string) {
	observer.Event(Event{
		Type:     resourceEvents[action][0],
		Phase:    phase,
		Resource: id,
		Message:  fmt.Sprintf("%s %s", strings.TrimSuffix(string(action), "e")+"ing", id),
	})
}

// LogResourceDone logs a finished create, update or delete.
func LogResourceDone(observer Observer, phase string, action Action, id string, elapsed time.Duration) {
	observer.Event(Event{
		Type:     resourceEvents[action][1],
		Phase:    phase,
		Resource: id,
		Message:  fmt.Sprintf("%s %sd", id, strings.TrimSuffix(string(action), "e")),
		Fields: map[string]string{
			"duration": elapsed.Round(time.Millisecond).String(),
		},
	})
}

// LogResourceFailed logs a failed resource operation.
func LogResourceFailed(observer Observer, phase string, action Action, id string, err error) {
	observer.Event(Event{
		Type:     EventResourceFailed,
		Phase:    phase,
		Resource: id,
		Message:  fmt.Sprintf("%s failed: %v", action, err),
		Fields: map[string]string{
			"action": string(action),
		},
	})
}

// LogResourceUnchanged logs a resource that needed no change.
func LogResourceUnchanged(observer Observer, phase, id string) {
	observer.Event(Event{
		Type:     EventResourceUnchanged,
		Phase:    phase,
		Resource: id,
		Message:  "up to date",
	})
}

// LogResourceGone logs a resource that no longer exists at the provider.
func LogResourceGone(observer Observer, phase, id string) {
	observer.Event(Event{
		Type:     EventResourceGone,
		Phase:    phase,
		Resource: id,
		Message:  "no longer exists, removing from state",
	})
}
