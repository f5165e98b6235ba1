package monitor

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/godqn/cadence"
)

func TestEWMA(t *testing.T) {
	// α = 2/3 for span 2
	got := EWMA([]float64{1, 2, 3}, 2, 1)
	want := []float64{
		1,
		(2 + 1.0/3) / (1 + 1.0/3),
		(3 + 2.0/3 + 1.0/9) / (1 + 1.0/3 + 1.0/9),
	}
	require.InDeltaSlice(t, want, got, 1e-12)

	// Constant series average to the constant
	got = EWMA([]float64{5, 5, 5, 5}, 10, 1)
	require.InDeltaSlice(t, []float64{5, 5, 5, 5}, got, 1e-12)
}

func TestEWMAMinPeriods(t *testing.T) {
	x := make([]float64, 12)
	for i := range x {
		x[i] = float64(i)
	}
	got := EWMA(x, 10, 10)
	require.Len(t, got, 12)
	for i := 0; i < 9; i++ {
		require.True(t, math.IsNaN(got[i]), "index %d", i)
	}
	for i := 9; i < 12; i++ {
		require.False(t, math.IsNaN(got[i]), "index %d", i)
	}

	// Increasing series have increasing averages
	require.Greater(t, got[11], got[10])
	require.Greater(t, got[10], got[9])
}

func TestPlot(t *testing.T) {
	file := filepath.Join(t.TempDir(), "returns.png")
	rule, err := cadence.NewExceptMultipleOf(10)
	require.NoError(t, err)
	p, err := NewPlot(file, rule)
	require.NoError(t, err)

	// Episode 0 does not render
	require.NoError(t, p.Observe([]float64{1}))
	require.NoFileExists(t, file)

	require.NoError(t, p.Observe([]float64{1, 2}))
	require.FileExists(t, file)

	require.NoError(t, os.Remove(file))
	returns := make([]float64, 0, 20)
	for i := 0; i < 11; i++ {
		returns = append(returns, float64(i))
	}
	require.NoError(t, p.Observe(returns))
	require.NoFileExists(t, file)

	// Close renders the history that was skipped
	require.NoError(t, p.Close())
	require.FileExists(t, file)
}

func TestNewPlotErrors(t *testing.T) {
	_, err := NewPlot("", cadence.NewAlways())
	require.Error(t, err)
	_, err = NewPlot("x.png", cadence.Rule{Kind: cadence.OnMultipleOf})
	require.Error(t, err)
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(zerolog.New(&buf))

	returns := []float64{}
	for i := 0; i < 10; i++ {
		returns = append(returns, 1)
		require.NoError(t, l.Observe(returns))
	}
	require.NoError(t, l.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 10)

	var first, last map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[9]), &last))
	require.Equal(t, 0.0, first["episode"])
	require.NotContains(t, first, "trend")
	require.Equal(t, 9.0, last["episode"])
	require.InDelta(t, 1.0, last["trend"], 1e-12)
}

func TestTracker(t *testing.T) {
	file := filepath.Join(t.TempDir(), "returns.bin")
	tr := NewTracker(file)

	require.NoError(t, tr.Observe([]float64{1}))
	require.NoError(t, tr.Observe([]float64{1, -2.5}))
	require.Equal(t, []float64{1, -2.5}, tr.Returns())
	require.NoError(t, tr.Close())

	got, err := LoadReturns(file)
	require.NoError(t, err)
	require.Equal(t, []float64{1, -2.5}, got)

	_, err = LoadReturns(filepath.Join(t.TempDir(), "missing.bin"))
	require.Error(t, err)
}

func TestTrackerCloseUnobserved(t *testing.T) {
	file := filepath.Join(t.TempDir(), "returns.bin")
	require.NoError(t, NewTracker(file).Close())
	require.NoFileExists(t, file)
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 4, 0)

	require.NoError(t, p.Observe([]float64{1}))
	require.Contains(t, buf.String(), "25.00%")
	require.NoError(t, p.Observe([]float64{1, 2}))
	require.NoError(t, p.Observe([]float64{1, 2, 3}))
	require.NoError(t, p.Observe([]float64{1, 2, 3, 4}))
	require.NoError(t, p.Close())
	require.Contains(t, buf.String(), "100.00%")
	require.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestHTTP(t *testing.T) {
	h := NewHTTP(zerolog.Nop())
	handler := h.Handler()

	get := func(path string, v interface{}) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
	}

	var empty Summary
	get("/summary", &empty)
	require.Equal(t, 0, empty.Episodes)

	returns := []float64{}
	for i := 0; i < 10; i++ {
		returns = append(returns, float64(i))
	}
	require.NoError(t, h.Observe(returns))

	var body struct{ Returns []float64 }
	get("/returns", &body)
	require.Equal(t, returns, body.Returns)

	var s Summary
	get("/summary", &s)
	require.Equal(t, 10, s.Episodes)
	require.Equal(t, 9.0, s.Last)
	require.InDelta(t, 4.5, s.Mean, 1e-12)
	require.Equal(t, 9.0, s.Max)
	require.NotNil(t, s.Trend)

	// Closing without serving is a no-op
	require.NoError(t, h.Close())
}

func TestHTTPConcurrent(t *testing.T) {
	h := NewHTTP(zerolog.Nop())
	handler := h.Handler()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		returns := []float64{}
		for i := 0; i < 200; i++ {
			returns = append(returns, float64(i))
			h.Observe(returns)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec,
				httptest.NewRequest(http.MethodGet, "/summary", nil))
		}
	}()
	wg.Wait()
}

func TestHTTPServe(t *testing.T) {
	h := NewHTTP(zerolog.Nop())
	addr, err := h.Serve("127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, h.Observe([]float64{3}))

	resp, err := http.Get("http://" + addr.String() + "/returns")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, h.Close())
}

type sink struct {
	observed int
	err      error
}

func (s *sink) Observe([]float64) error { s.observed++; return s.err }
func (s *sink) Close() error            { return s.err }

func TestMulti(t *testing.T) {
	failure := errors.New("failed")
	a, b := &sink{}, &sink{err: failure}
	m := Multi{a, b}

	err := m.Observe([]float64{1})
	require.ErrorIs(t, err, failure)
	require.Equal(t, 1, a.observed)
	require.Equal(t, 1, b.observed)
	require.ErrorIs(t, m.Close(), failure)
	require.NoError(t, Multi{a}.Close())
}
