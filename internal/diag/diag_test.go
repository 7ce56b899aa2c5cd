package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorderRetainsRecentBytes(t *testing.T) {
	r := NewRecorder(16)
	_, _ = r.Write([]byte("hello "))
	_, _ = r.Write([]byte("world"))
	assert.Contains(t, r.String(), "world")
}

func TestRecorderEvictsOldestOnOverflow(t *testing.T) {
	r := NewRecorder(8)
	_, _ = r.Write([]byte("aaaaaaaa"))
	_, _ = r.Write([]byte("bbbb"))
	got := r.String()
	assert.NotContains(t, got, "aaaaaaaa")
	assert.Contains(t, got, "bbbb")
}

func TestRecorderTruncatesOversizeWrite(t *testing.T) {
	r := NewRecorder(4)
	_, _ = r.Write([]byte("abcdefgh"))
	assert.Equal(t, "efgh", r.String())
}
