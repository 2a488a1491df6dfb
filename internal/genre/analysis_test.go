package genre

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playlist-porter/internal/client"
	"playlist-porter/internal/config"
	"playlist-porter/internal/model"
	"playlist-porter/internal/service"
)

// stubForwarder returns res and keeps the last request.
type stubForwarder struct {
	res  *model.Result
	last *model.ForwardRequest
}

func (f *stubForwarder) Forward(_ context.Context, req *model.ForwardRequest) *model.Result {
	f.last = req
	return f.res
}

func newTestAnalyzer(f Forwarder) *Analyzer {
	cfg := &config.Config{Genre: config.GenreConfig{Endpoint: "/genre-analysis"}}
	return NewAnalyzer(f, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAnalyze_Success(t *testing.T) {
	f := &stubForwarder{res: model.Success(json.RawMessage(
		`{"commonGenres":["indie","lo-fi"],"playlistCurationSuggestions":"Start mellow."}`))}
	a := newTestAnalyzer(f)

	out, err := a.Analyze(context.Background(), Input{
		Account1Playlists:  []string{"Chill Vibes"},
		Account2LikedSongs: []string{"Song Five"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"indie", "lo-fi"}, out.CommonGenres)
	assert.Equal(t, "Start mellow.", out.PlaylistCurationSuggestions)

	require.NotNil(t, f.last)
	assert.Equal(t, "/genre-analysis", f.last.LogicalEndpoint)

	var sent struct {
		Prompt string         `json:"prompt"`
		Input  map[string]any `json:"input"`
	}
	require.NoError(t, json.Unmarshal(f.last.Payload, &sent))
	assert.Contains(t, sent.Prompt, "Account 1 Playlists: Chill Vibes")
	assert.Contains(t, sent.Prompt, "Account 2 Liked Songs: Song Five")
	assert.Equal(t, []any{}, sent.Input["account1LikedSongs"], "nil lists are sent as empty arrays")
}

func TestAnalyze_EmptyGenresIsValid(t *testing.T) {
	f := &stubForwarder{res: model.Success(json.RawMessage(`{"commonGenres":[],"playlistCurationSuggestions":""}`))}

	out, err := newTestAnalyzer(f).Analyze(context.Background(), Input{})
	require.NoError(t, err)
	assert.Empty(t, out.CommonGenres)
}

func TestAnalyze_Failures(t *testing.T) {
	tests := []struct {
		name      string
		res       *model.Result
		wantKind  model.Kind
		retryable bool
	}{
		{"missing genres", model.Success(json.RawMessage(`{"playlistCurationSuggestions":"x"}`)), model.KindBadGateway, false},
		{"wrong shape", model.Success(json.RawMessage(`["indie"]`)), model.KindBadGateway, false},
		{"upstream error", model.UpstreamError(http.StatusTooManyRequests, "slow down", nil), model.KindUpstreamError, true},
		{"unavailable", model.ServiceUnavailable("timeout"), model.KindServiceUnavailable, true},
		{"misconfigured", model.Misconfigured(), model.KindMisconfigured, false},
		{"bad gateway", model.BadGateway("<html>"), model.KindBadGateway, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestAnalyzer(&stubForwarder{res: tt.res}).Analyze(context.Background(), Input{})

			var ae *AnalysisError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tt.wantKind, ae.Kind)
			assert.Equal(t, tt.retryable, ae.Retryable)
		})
	}
}

func TestAnalyze_MissingGenresWrapsSentinel(t *testing.T) {
	f := &stubForwarder{res: model.Success(json.RawMessage(`{}`))}

	_, err := newTestAnalyzer(f).Analyze(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrMissingGenres)
}

func TestRenderPrompt_EmptyLists(t *testing.T) {
	p, err := RenderPrompt(Input{}.normalized())
	require.NoError(t, err)
	assert.Contains(t, p, "Account 1 Playlists: (none)")
	assert.Contains(t, p, `"commonGenres"`)
}

func TestAnalyze_ThroughGateway(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"commonGenres":["jazz"],"playlistCurationSuggestions":"Late night."}`))
	}))
	defer srv.Close()

	cfg := &config.Config{
		Upstream: config.UpstreamConfig{BaseURL: srv.URL + "/", TimeoutSeconds: 5, IdleConnections: 2},
		Genre:    config.GenreConfig{Endpoint: "/genre-analysis"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := service.NewGateway(client.NewUpstreamClient(cfg, logger, nil), cfg, logger, nil)
	a := NewAnalyzer(gw, cfg, logger)

	out, err := a.Analyze(context.Background(), Input{Account1Playlists: []string{"Focus Flow"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"jazz"}, out.CommonGenres)
	assert.Equal(t, "/genre-analysis", gotPath)
	assert.Contains(t, gotBody, "prompt")
	assert.NotContains(t, gotBody, model.LogicalEndpointField)
}
