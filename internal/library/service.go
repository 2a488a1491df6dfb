package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"playlist-porter/internal/config"
	"playlist-porter/internal/metrics"
	"playlist-porter/internal/model"
)

var (
	ErrInvalidRole             = errors.New("role must be source or destination")
	ErrSessionNotFound         = errors.New("session not found")
	ErrSourceNotConnected      = errors.New("source account is not connected")
	ErrDestinationNotConnected = errors.New("destination account is not connected")
	ErrEmptySelection          = errors.New("select at least one playlist or liked song")
	ErrUnknownItem             = errors.New("unknown item")
)

var spotifyEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.spotify.com/authorize",
	TokenURL: "https://accounts.spotify.com/api/token",
}

// spotifyScopes are the scopes a real transfer would request.
var spotifyScopes = []string{
	"user-read-private",
	"user-read-email",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-public",
	"playlist-modify-private",
	"user-library-read",
	"user-library-modify",
	"user-top-read",
}

// Connection is the result of connecting an account.
type Connection struct {
	Session model.Session `json:"session"`
	User    model.User    `json:"user"`
	// AuthURL is where a real connection would send the user. It is
	// informational only; no token exchange happens.
	AuthURL string `json:"authUrl,omitempty"`
}

// Service implements the simulated account operations.
type Service struct {
	catalog     *Catalog
	store       *SessionStore
	oauth       *oauth2.Config
	delay       time.Duration
	failureRate float64
	random      func() float64
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewService creates a Service. The metrics parameter may be nil.
func NewService(cfg *config.Config, store *SessionStore, catalog *Catalog, logger *slog.Logger, m *metrics.Metrics) *Service {
	var oc *oauth2.Config
	if cfg.Spotify.ClientID != "" {
		oc = &oauth2.Config{
			ClientID:    cfg.Spotify.ClientID,
			Endpoint:    spotifyEndpoint,
			RedirectURL: cfg.Spotify.RedirectURL,
			Scopes:      spotifyScopes,
		}
	}

	return &Service{
		catalog:     catalog,
		store:       store,
		oauth:       oc,
		delay:       time.Duration(cfg.Library.SimulatedDelayMS) * time.Millisecond,
		failureRate: cfg.Library.FailureRate(),
		random:      rand.Float64,
		logger:      logger.With("component", "library"),
		metrics:     m,
	}
}

// Session returns the session with id.
func (s *Service) Session(id string) (model.Session, error) {
	sess, ok := s.store.Get(id)
	if !ok {
		return model.Session{}, ErrSessionNotFound
	}
	return sess, nil
}

// ConnectAccount simulates connecting the account for role. An empty or
// unknown sessionID starts a new session.
func (s *Service) ConnectAccount(ctx context.Context, sessionID string, role model.Role) (*Connection, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	user := s.catalog.Users[role]
	sess := s.store.Connect(sessionID, role, user)

	conn := &Connection{Session: sess, User: user}
	if s.oauth != nil {
		conn.AuthURL = s.oauth.AuthCodeURL(sess.ID)
	}

	s.logger.Info("account connected", "session_id", sess.ID, "role", role, "user_id", user.ID)
	return conn, nil
}

// FetchLibrary returns the source account's playlists and liked songs.
func (s *Service) FetchLibrary(ctx context.Context, sessionID string) (*model.Library, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Source == nil {
		return nil, ErrSourceNotConnected
	}

	var lib model.Library
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.wait(gctx); err != nil {
			return err
		}
		lib.Playlists = slices.Clone(s.catalog.Playlists)
		return nil
	})
	g.Go(func() error {
		if err := s.wait(gctx); err != nil {
			return err
		}
		lib.LikedSongs = slices.Clone(s.catalog.LikedSongs)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch library: %w", err)
	}
	return &lib, nil
}

// CopyItems simulates copying the selection to the destination account.
// A copy that fails is reported in the result, not as an error; errors are
// reserved for requests that could never succeed.
func (s *Service) CopyItems(ctx context.Context, sessionID string, sel model.Selection) (*model.CopyResult, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Source == nil {
		return nil, ErrSourceNotConnected
	}
	if sess.Destination == nil {
		return nil, ErrDestinationNotConnected
	}
	if len(sel.PlaylistIDs) == 0 && len(sel.SongIDs) == 0 {
		return nil, ErrEmptySelection
	}
	for _, id := range sel.PlaylistIDs {
		if !s.catalog.hasPlaylist(id) {
			return nil, fmt.Errorf("%w: playlist %q", ErrUnknownItem, id)
		}
	}
	for _, id := range sel.SongIDs {
		if !s.catalog.hasSong(id) {
			return nil, fmt.Errorf("%w: song %q", ErrUnknownItem, id)
		}
	}

	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	res := &model.CopyResult{JobID: uuid.NewString()}
	if len(sel.PlaylistIDs) > 0 && s.random() < s.failureRate {
		res.Error = fmt.Sprintf("Failed to copy playlist ID: %s. Please try again.", sel.PlaylistIDs[0])
	} else {
		res.Success = true
		res.Message = fmt.Sprintf("Successfully copied %d playlists and %d liked songs.", len(sel.PlaylistIDs), len(sel.SongIDs))
	}

	s.logger.Info("copy finished",
		"session_id", sess.ID,
		"job_id", res.JobID,
		"success", res.Success,
		"playlists", len(sel.PlaylistIDs),
		"songs", len(sel.SongIDs),
	)
	if s.metrics != nil {
		result := "success"
		if !res.Success {
			result = "failed"
		}
		s.metrics.CopyJobs.WithLabelValues(result).Inc()
	}
	return res, nil
}

// wait simulates provider latency. It returns early with the context error.
func (s *Service) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
