package events

import "fmt"

// Emitter wraps a Sink with typed helpers and keeps the message of every
// non-progress, non-complete event as a detail line. The detail list backs the
// non-streaming API responses so both variants report the same text.
type Emitter struct {
	sink    Sink
	details []string
}

// NewEmitter returns an emitter publishing to sink. A nil sink discards.
func NewEmitter(sink Sink) *Emitter {
	if sink == nil {
		sink = Discard
	}
	return &Emitter{sink: sink}
}

func (e *Emitter) emit(evt Event) {
	if evt.Message != "" && evt.Type != TypeProgress && evt.Type != TypeComplete {
		e.details = append(e.details, evt.Message)
	}
	e.sink.Emit(evt)
}

// Status reports a run-level state change.
func (e *Emitter) Status(format string, args ...any) {
	e.emit(Event{Type: TypeStatus, Message: fmt.Sprintf(format, args...)})
}

// Info reports a note that requires no action.
func (e *Emitter) Info(format string, args ...any) {
	e.emit(Event{Type: TypeInfo, Message: fmt.Sprintf(format, args...)})
}

// Success reports a completed unit of work.
func (e *Emitter) Success(format string, args ...any) {
	e.emit(Event{Type: TypeSuccess, Message: fmt.Sprintf(format, args...)})
}

// Error reports a failed unit of work. The run continues.
func (e *Emitter) Error(format string, args ...any) {
	e.emit(Event{Type: TypeError, Message: fmt.Sprintf(format, args...)})
}

// Summary reports the outcome of one worklist entry.
func (e *Emitter) Summary(format string, args ...any) {
	e.emit(Event{Type: TypeSummary, Message: fmt.Sprintf(format, args...)})
}

// Progress reports that worklist entry current of total is starting.
func (e *Emitter) Progress(current, total int, tag string) {
	e.emit(Event{Type: TypeProgress, Current: current, Total: total, Tag: tag})
}

// Complete reports the end of the run with its aggregate data.
func (e *Emitter) Complete(data any, message string) {
	e.emit(Event{Type: TypeComplete, Data: data, Message: message})
}

// Details returns the detail lines collected so far.
func (e *Emitter) Details() []string {
	out := make([]string, len(e.details))
	copy(out, e.details)
	return out
}
