package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/23skdu/wordscope/internal/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	tokens []string
	res    []core.Match
	err    error
}

func (f *fakeEngine) Tokens() []string { return f.tokens }

func (f *fakeEngine) ByToken(context.Context, string, int, bool) ([]core.Match, error) {
	return f.res, f.err
}

type fakeCache int

func (f fakeCache) Len() int { return int(f) }

func TestHealthyEngine(t *testing.T) {
	engine := &fakeEngine{tokens: []string{"the"}, res: []core.Match{{Token: "the", Score: 10}}}
	m := NewManager("test", zerolog.Nop(), NewEngineChecker(engine), NewCacheChecker(fakeCache(3)))

	h := m.CheckHealth(context.Background())
	assert.Equal(t, StatusHealthy, h.Status)
	assert.Equal(t, "the", h.Components["engine"].Metadata["probe"])
	assert.Equal(t, 3, h.Components["cache"].Metadata["entries"])
	assert.EqualValues(t, 1, h.CheckCount)
}

func TestUnhealthyEngine(t *testing.T) {
	tests := []struct {
		name   string
		engine *fakeEngine
	}{
		{"error", &fakeEngine{tokens: []string{"the"}, err: errors.New("boom")}},
		{"wrong top match", &fakeEngine{tokens: []string{"the"}, res: []core.Match{{Token: "a"}}}},
		{"empty result", &fakeEngine{tokens: []string{"the"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("test", zerolog.Nop(), NewEngineChecker(tt.engine))
			h := m.CheckHealth(context.Background())
			assert.Equal(t, StatusUnhealthy, h.Status)
			assert.NotEmpty(t, h.Components["engine"].Message)
		})
	}
}

func TestHTTPHandler(t *testing.T) {
	healthy := NewManager("v1", zerolog.Nop(), NewEngineChecker(&fakeEngine{tokens: []string{"x"}, res: []core.Match{{Token: "x"}}}))
	rec := httptest.NewRecorder()
	healthy.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body SystemHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "v1", body.Version)
	assert.Equal(t, StatusHealthy, body.Status)

	broken := NewManager("v1", zerolog.Nop(), NewEngineChecker(&fakeEngine{tokens: []string{"x"}, err: errors.New("down")}))
	rec = httptest.NewRecorder()
	broken.HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
