package eodobs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stubSummarizer struct {
	path string
	err  error
}

func (s stubSummarizer) SummarizeDay(time.Time) (string, error) { return s.path, s.err }
func (s stubSummarizer) SummarizeToday() (string, error)        { return s.path, s.err }
func (s stubSummarizer) ShouldRunNow() (bool, string)           { return s.path != "", s.path }

func TestWrapPassesThrough(t *testing.T) {
	w := Wrap(stubSummarizer{path: "logs/eod/2024-03-04.csv"})

	p, err := w.SummarizeDay(time.Now())
	assert.NoError(t, err)
	assert.Equal(t, "logs/eod/2024-03-04.csv", p)

	p, err = w.SummarizeToday()
	assert.NoError(t, err)
	assert.Equal(t, "logs/eod/2024-03-04.csv", p)

	run, p := w.ShouldRunNow()
	assert.True(t, run)
	assert.NotEmpty(t, p)
}

func TestWrapReturnsErrors(t *testing.T) {
	boom := errors.New("disk full")
	w := Wrap(stubSummarizer{path: "x", err: boom})

	p, err := w.SummarizeDay(time.Now())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, p)
}

func TestWrapNoFills(t *testing.T) {
	p, err := Wrap(stubSummarizer{}).SummarizeToday()
	assert.NoError(t, err)
	assert.Empty(t, p)
}
