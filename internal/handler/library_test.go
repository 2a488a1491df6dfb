package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"playlist-porter/internal/config"
	"playlist-porter/internal/library"
	"playlist-porter/internal/middleware"
)

func newTestLibraryEcho(t *testing.T, failureRate float64) *echo.Echo {
	t.Helper()
	catalog, err := library.DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog: %v", err)
	}
	cfg := &config.Config{Library: config.LibraryConfig{CopyFailureRate: &failureRate}}
	svc := library.NewService(cfg, library.NewSessionStore(cfg), catalog, discardLogger(), nil)
	h := NewLibraryHandler(svc, discardLogger())

	e := echo.New()
	e.POST("/api/accounts/:role/connect", h.Connect)
	e.GET("/api/library", h.Library)
	e.POST("/api/copy", h.Copy)
	return e
}

func do(e *echo.Echo, method, path, session, body string) *httptest.ResponseRecorder {
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if session != "" {
		req.Header.Set(middleware.HeaderSessionID, session)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestLibraryHandler_Flow(t *testing.T) {
	e := newTestLibraryEcho(t, 0)

	rec := do(e, http.MethodPost, "/api/accounts/source/connect", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("connect source status = %d, want %d", rec.Code, http.StatusOK)
	}
	session := rec.Header().Get(middleware.HeaderSessionID)
	if session == "" {
		t.Fatal("connect did not return a session header")
	}

	var conn struct {
		User struct {
			DisplayName string `json:"displayName"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &conn); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if conn.User.DisplayName != "SourceUser123" {
		t.Errorf("user.displayName = %q, want %q", conn.User.DisplayName, "SourceUser123")
	}

	rec = do(e, http.MethodGet, "/api/library", session, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("library status = %d, want %d", rec.Code, http.StatusOK)
	}
	var lib struct {
		Playlists  []json.RawMessage `json:"playlists"`
		LikedSongs []json.RawMessage `json:"likedSongs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &lib); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(lib.Playlists) != 4 || len(lib.LikedSongs) != 5 {
		t.Errorf("library = %d playlists, %d songs; want 4, 5", len(lib.Playlists), len(lib.LikedSongs))
	}

	// Copy before the destination is connected.
	rec = do(e, http.MethodPost, "/api/copy", session, `{"playlistIds":["p1"]}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("copy without destination status = %d, want %d", rec.Code, http.StatusConflict)
	}

	rec = do(e, http.MethodPost, "/api/accounts/destination/connect", session, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("connect destination status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get(middleware.HeaderSessionID); got != session {
		t.Errorf("session after second connect = %q, want %q", got, session)
	}

	rec = do(e, http.MethodPost, "/api/copy", session, `{"playlistIds":["p1","p2"],"songIds":["s3"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("copy status = %d, want %d", rec.Code, http.StatusOK)
	}
	var res struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !res.Success {
		t.Errorf("copy success = false, want true")
	}
	if want := "Successfully copied 2 playlists and 1 liked songs."; res.Message != want {
		t.Errorf("copy message = %q, want %q", res.Message, want)
	}
}

func TestLibraryHandler_Errors(t *testing.T) {
	e := newTestLibraryEcho(t, 0)

	rec := do(e, http.MethodPost, "/api/accounts/source/connect", "", "")
	srcOnly := rec.Header().Get(middleware.HeaderSessionID)

	tests := []struct {
		name       string
		method     string
		path       string
		session    string
		body       string
		wantStatus int
	}{
		{"invalid role", http.MethodPost, "/api/accounts/sideways/connect", "", "", http.StatusBadRequest},
		{"library without session", http.MethodGet, "/api/library", "", "", http.StatusNotFound},
		{"library unknown session", http.MethodGet, "/api/library", "nope", "", http.StatusNotFound},
		{"copy without destination", http.MethodPost, "/api/copy", srcOnly, `{"songIds":["s1"]}`, http.StatusConflict},
		{"copy malformed body", http.MethodPost, "/api/copy", srcOnly, `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, tt.method, tt.path, tt.session, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body["error"] == "" {
				t.Error("error body has no message")
			}
		})
	}
}

func TestLibraryHandler_CopyValidation(t *testing.T) {
	e := newTestLibraryEcho(t, 0)

	rec := do(e, http.MethodPost, "/api/accounts/source/connect", "", "")
	session := rec.Header().Get(middleware.HeaderSessionID)
	do(e, http.MethodPost, "/api/accounts/destination/connect", session, "")

	for _, body := range []string{`{}`, `{"playlistIds":["nope"]}`} {
		rec := do(e, http.MethodPost, "/api/copy", session, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("copy %s status = %d, want %d", body, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestLibraryHandler_CopyFailureIsReported(t *testing.T) {
	e := newTestLibraryEcho(t, 1)

	rec := do(e, http.MethodPost, "/api/accounts/source/connect", "", "")
	session := rec.Header().Get(middleware.HeaderSessionID)
	do(e, http.MethodPost, "/api/accounts/destination/connect", session, "")

	rec = do(e, http.MethodPost, "/api/copy", session, `{"playlistIds":["p3"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var res struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if res.Success {
		t.Error("success = true, want false")
	}
	if want := "Failed to copy playlist ID: p3. Please try again."; res.Error != want {
		t.Errorf("error = %q, want %q", res.Error, want)
	}
}
