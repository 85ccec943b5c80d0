package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskflow/internal/engine"
)

func TestRecorderSnapshotIsolatesCaller(t *testing.T) {
	r := engine.NewRecorder()
	r.Record(engine.Event{Kind: engine.EventDispatched, Task: "T1"})
	r.Record(engine.Event{Kind: engine.EventCompleted, Task: "T1"})

	snap := r.Snapshot()
	assert.Len(t, snap, 2)

	snap[0].Task = "mutated"
	assert.Equal(t, "T1", r.Snapshot()[0].Task, "Snapshot must return an independent copy")
}

func TestNopSinkDiscardsSilently(t *testing.T) {
	assert.NotPanics(t, func() {
		engine.NopSink{}.Record(engine.Event{Kind: engine.EventFailed})
	})
}

func TestSafeRecordToleratesNilSink(t *testing.T) {
	assert.NotPanics(t, func() {
		engine.SafeRecord(nil, engine.Event{Kind: engine.EventDispatched})
	})
}

type panicSink struct{}

func (panicSink) Record(engine.Event) { panic("sink exploded") }

func TestSafeRecordToleratesPanickingSink(t *testing.T) {
	assert.NotPanics(t, func() {
		engine.SafeRecord(panicSink{}, engine.Event{Kind: engine.EventDispatched})
	})
}

func TestRecorderOnNilReceiverIsInert(t *testing.T) {
	var r *engine.Recorder
	assert.NotPanics(t, func() {
		r.Record(engine.Event{Kind: engine.EventDispatched})
	})
	assert.Nil(t, r.Snapshot())
}
