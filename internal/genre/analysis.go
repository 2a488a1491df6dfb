// Package genre asks the upstream processing service for the genres two
// accounts have in common and how to curate playlists around them.
package genre

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"playlist-porter/internal/config"
	"playlist-porter/internal/model"
)

// ErrMissingGenres is returned when the upstream answer lacks commonGenres.
var ErrMissingGenres = errors.New("genre analysis: response has no commonGenres")

const promptText = `You are a playlist curation expert. You are provided with the playlist
and liked song data from two different Spotify accounts. Analyze the data to
determine the common musical genres liked by both accounts.

Account 1 Playlists: {{join .Account1Playlists}}
Account 1 Liked Songs: {{join .Account1LikedSongs}}
Account 2 Playlists: {{join .Account2Playlists}}
Account 2 Liked Songs: {{join .Account2LikedSongs}}

Based on this analysis, suggest some ways to curate playlists based on the
identified common genres.

Output a JSON object containing:
- A "commonGenres" field with a list of the common genres.
- A "playlistCurationSuggestions" field with suggestions for how to create playlists based on those genres.
`

var promptTemplate = template.Must(template.New("curation").
	Funcs(template.FuncMap{"join": joinNames}).
	Parse(promptText))

// Forwarder is the part of the gateway the analyzer needs.
type Forwarder interface {
	Forward(ctx context.Context, req *model.ForwardRequest) *model.Result
}

// Input holds the names to compare. Account 1 is the source account.
type Input struct {
	Account1Playlists  []string `json:"account1Playlists"`
	Account1LikedSongs []string `json:"account1LikedSongs"`
	Account2Playlists  []string `json:"account2Playlists"`
	Account2LikedSongs []string `json:"account2LikedSongs"`
}

// Output is the decoded analysis.
type Output struct {
	CommonGenres                []string `json:"commonGenres"`
	PlaylistCurationSuggestions string   `json:"playlistCurationSuggestions"`
}

// AnalysisError reports a gateway result that was not a usable analysis.
type AnalysisError struct {
	Kind      model.Kind
	Retryable bool
	Err       error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("genre analysis failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("genre analysis failed (%s)", e.Kind)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

// request is the payload sent upstream.
type request struct {
	Prompt string `json:"prompt"`
	Input  Input  `json:"input"`
}

// Analyzer runs genre analysis through the gateway.
type Analyzer struct {
	gateway  Forwarder
	endpoint string
	logger   *slog.Logger
}

// NewAnalyzer creates an Analyzer that calls the configured genre endpoint.
func NewAnalyzer(gw Forwarder, cfg *config.Config, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		gateway:  gw,
		endpoint: cfg.Genre.Endpoint,
		logger:   logger.With("component", "genre"),
	}
}

// Analyze renders the curation prompt and forwards it with the input.
func (a *Analyzer) Analyze(ctx context.Context, in Input) (*Output, error) {
	in = in.normalized()

	prompt, err := RenderPrompt(in)
	if err != nil {
		return nil, &AnalysisError{Kind: model.KindInternal, Err: err}
	}
	payload, err := json.Marshal(request{Prompt: prompt, Input: in})
	if err != nil {
		return nil, &AnalysisError{Kind: model.KindInternal, Err: err}
	}

	res := a.gateway.Forward(ctx, &model.ForwardRequest{LogicalEndpoint: a.endpoint, Payload: payload})
	if res.Kind != model.KindSuccess {
		a.logger.Warn("genre analysis failed", "kind", res.Kind, "message", res.Message)
		return nil, &AnalysisError{Kind: res.Kind, Retryable: res.Retryable()}
	}

	var out struct {
		CommonGenres                *[]string `json:"commonGenres"`
		PlaylistCurationSuggestions string    `json:"playlistCurationSuggestions"`
	}
	if err := json.Unmarshal(res.Data, &out); err != nil {
		return nil, &AnalysisError{Kind: model.KindBadGateway, Err: err}
	}
	if out.CommonGenres == nil {
		return nil, &AnalysisError{Kind: model.KindBadGateway, Err: ErrMissingGenres}
	}

	a.logger.Info("genre analysis finished", "genres", len(*out.CommonGenres))
	return &Output{
		CommonGenres:                *out.CommonGenres,
		PlaylistCurationSuggestions: out.PlaylistCurationSuggestions,
	}, nil
}

// RenderPrompt fills the curation prompt with the input lists.
func RenderPrompt(in Input) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, in); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

func (in Input) normalized() Input {
	return Input{
		Account1Playlists:  orEmpty(in.Account1Playlists),
		Account1LikedSongs: orEmpty(in.Account1LikedSongs),
		Account2Playlists:  orEmpty(in.Account2Playlists),
		Account2LikedSongs: orEmpty(in.Account2LikedSongs),
	}
}

func joinNames(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}
	return strings.Join(names, ", ")
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
