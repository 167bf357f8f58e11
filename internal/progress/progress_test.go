package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCancelActive(t *testing.T) {
	r := NewRegistry()

	assert.False(t, r.CancelActive(), "nothing running")

	sink := r.NewSink("Syncing", true)
	assert.False(t, sink.IsCanceled())

	assert.True(t, r.CancelActive())
	assert.True(t, sink.IsCanceled())
}

func TestCloseReleasesCancelTarget(t *testing.T) {
	r := NewRegistry()
	sink := r.NewSink("Syncing", true)
	sink.Close()

	assert.False(t, r.CancelActive(), "closed sink is no longer the target")
	assert.False(t, sink.IsCanceled())
}

func TestNewSinkReplacesTarget(t *testing.T) {
	r := NewRegistry()
	first := r.NewSink("Importing", true)
	second := r.NewSink("Exporting", true)

	assert.True(t, r.CancelActive())
	assert.False(t, first.IsCanceled())
	assert.True(t, second.IsCanceled())

	// Closing a superseded sink must not drop the current target.
	first.Close()
	assert.True(t, r.CancelActive())
}
