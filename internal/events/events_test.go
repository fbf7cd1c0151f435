package events_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"szurutools/internal/events"
)

func TestEmitterCollectsDetails(t *testing.T) {
	rec := &events.Recorder{}
	em := events.NewEmitter(rec)

	em.Status("starting %d", 1)
	em.Progress(1, 2, "tag_a")
	em.Info("note")
	em.Success("done")
	em.Error("failed: %s", "boom")
	em.Summary("summary")
	em.Complete(map[string]int{"n": 1}, "COMPLETE")

	want := []string{"starting 1", "note", "done", "failed: boom", "summary"}
	if diff := cmp.Diff(want, em.Details()); diff != "" {
		t.Fatalf("details mismatch (-want +got):\n%s", diff)
	}
	got := rec.Events()
	if len(got) != 7 {
		t.Fatalf("expected 7 events, got %d", len(got))
	}
	if got[len(got)-1].Type != events.TypeComplete {
		t.Fatalf("expected complete last, got %s", got[len(got)-1].Type)
	}
	progress := rec.OfType(events.TypeProgress)
	if len(progress) != 1 || progress[0].Current != 1 || progress[0].Total != 2 || progress[0].Tag != "tag_a" {
		t.Fatalf("unexpected progress events: %+v", progress)
	}
}

func TestNilSinkDiscards(t *testing.T) {
	em := events.NewEmitter(nil)
	em.Info("ignored")
	if len(em.Details()) != 1 {
		t.Fatalf("expected details to be kept even without a sink")
	}
}

func TestMultiFansOut(t *testing.T) {
	a, b := &events.Recorder{}, &events.Recorder{}
	sink := events.Multi(a, nil, b)
	sink.Emit(events.Event{Type: events.TypeInfo, Message: "x"})
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatalf("expected both sinks to receive the event")
	}
}

func TestStreamWriterFramesEvents(t *testing.T) {
	var buf bytes.Buffer
	w := events.NewStreamWriter(&buf)
	w.Emit(events.Event{Type: events.TypeProgress, Current: 1, Total: 3, Tag: "cat"})
	w.Emit(events.Event{Type: events.TypeComplete, Message: "DONE", Data: map[string]int{"processed_tags": 3}})

	frames := strings.Split(strings.TrimSuffix(buf.String(), "\n\n"), "\n\n")
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d: %q", len(frames), buf.String())
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(strings.TrimPrefix(frames[0], "data: ")), &first); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if first["type"] != "progress" || first["tag"] != "cat" || first["current"] != float64(1) {
		t.Fatalf("unexpected frame: %v", first)
	}
	if _, ok := first["message"]; ok {
		t.Fatalf("expected empty message to be omitted: %v", first)
	}
}

type failingWriter struct{ calls int }

func (f *failingWriter) Write([]byte) (int, error) {
	f.calls++
	return 0, errors.New("closed")
}

func TestStreamWriterStopsAfterFailure(t *testing.T) {
	fw := &failingWriter{}
	w := events.NewStreamWriter(fw)
	w.Emit(events.Event{Type: events.TypeInfo, Message: "a"})
	w.Emit(events.Event{Type: events.TypeInfo, Message: "b"})
	if fw.calls != 1 {
		t.Fatalf("expected a single write attempt, got %d", fw.calls)
	}
	if w.Err() == nil {
		t.Fatal("expected the write failure to be retained")
	}
}

func TestReadStreamRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := events.NewStreamWriter(&buf)
	w.Emit(events.Event{Type: events.TypeProgress, Current: 1, Total: 2, Tag: "cat"})
	w.Emit(events.Event{Type: events.TypeComplete, Message: "DRY RUN COMPLETE"})
	buf.WriteString(": keepalive\n\n")

	var got []events.Event
	if err := events.ReadStream(&buf, func(evt events.Event) error {
		got = append(got, evt)
		return nil
	}); err != nil {
		t.Fatalf("ReadStream returned error: %v", err)
	}
	if len(got) != 2 || got[0].Tag != "cat" || got[1].Message != "DRY RUN COMPLETE" {
		t.Fatalf("unexpected events %+v", got)
	}
}

func TestReadStreamRejectsBadFrame(t *testing.T) {
	err := events.ReadStream(strings.NewReader("data: {oops\n\n"), func(events.Event) error { return nil })
	if err == nil {
		t.Fatal("expected decode error")
	}
}
