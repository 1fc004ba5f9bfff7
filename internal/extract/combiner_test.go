package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	name   string
	result *Result
	err    error
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Extract(string) (*Result, error) {
	return f.result, f.err
}

func fakeResult(backend string, textLen, tables int) *Result {
	r := &Result{Backend: backend}
	r.Pages = []Page{{Number: 1, Text: strings.Repeat("word ", textLen/5)}}
	for i := 0; i < tables; i++ {
		r.Tables = append(r.Tables, Table{Page: 1, Rows: [][]string{{"a", "b"}}})
	}
	return r
}

func TestCombinerPicksHighestScore(t *testing.T) {
	rich := fakeResult("stream", 20000, 5)
	poor := fakeResult("layout", 500, 0)

	c := NewCombiner(
		[]Backend{&fakeBackend{name: "stream", result: rich}, &fakeBackend{name: "layout", result: poor}},
		CombinerOptions{Quality: func(string) float64 { return 0.9 }},
	)

	sel, err := c.Extract("x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "stream", sel.Result.Backend)
	assert.Len(t, sel.Candidates, 2)
	assert.Greater(t, sel.Chosen.Score, 0.5)
}

func TestCombinerPrefersLayoutOnScannedDocuments(t *testing.T) {
	stream := fakeResult("stream", 9000, 0)
	layout := fakeResult("layout", 8000, 0)

	c := NewCombiner(
		[]Backend{&fakeBackend{name: "stream", result: stream}, &fakeBackend{name: "layout", result: layout}},
		CombinerOptions{
			Quality:          func(string) float64 { return 0.3 },
			PreferLayout:     true,
			ScannedThreshold: 0.6,
		},
	)

	sel, err := c.Extract("x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "layout", sel.Result.Backend,
		"layout backend within 10%% of best must win when all candidates look scanned")
}

func TestCombinerLayoutPreferenceNeedsCloseScore(t *testing.T) {
	stream := fakeResult("stream", 20000, 8)
	layout := fakeResult("layout", 300, 0)

	c := NewCombiner(
		[]Backend{&fakeBackend{name: "stream", result: stream}, &fakeBackend{name: "layout", result: layout}},
		CombinerOptions{
			Quality:          func(string) float64 { return 0.3 },
			PreferLayout:     true,
			ScannedThreshold: 0.6,
		},
	)

	sel, err := c.Extract("x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "stream", sel.Result.Backend,
		"a far weaker layout result must not win the scanned preference")
}

func TestCombinerSurvivesSingleBackendFailure(t *testing.T) {
	ok := fakeResult("layout", 5000, 1)

	c := NewCombiner(
		[]Backend{
			&fakeBackend{name: "stream", err: errors.New("parse failure")},
			&fakeBackend{name: "layout", result: ok},
		},
		CombinerOptions{Quality: func(string) float64 { return 0.8 }},
	)

	sel, err := c.Extract("x.pdf")
	require.NoError(t, err)
	assert.Equal(t, "layout", sel.Result.Backend)
	require.Len(t, sel.Warnings, 1)
	assert.Contains(t, sel.Warnings[0], "stream")
}

func TestCombinerAllBackendsFailed(t *testing.T) {
	c := NewCombiner(
		[]Backend{
			&fakeBackend{name: "stream", err: errors.New("broken xref")},
			&fakeBackend{name: "layout", err: errors.New("encrypted")},
		},
		CombinerOptions{},
	)

	_, err := c.Extract("x.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAllBackendsFailed))
}

func TestMetricsCompletenessSaturates(t *testing.T) {
	c := NewCombiner(nil, CombinerOptions{Quality: func(string) float64 { return 1 }})

	m := c.measure(fakeResult("stream", 100000, 0))
	assert.Equal(t, 1.0, m.Completeness)

	m = c.measure(fakeResult("stream", 0, 0))
	assert.Equal(t, 0.0, m.Completeness)
}
