package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jaymasl/frtl-arcade/internal/auth"
	"github.com/jaymasl/frtl-arcade/internal/http/middleware"
	"github.com/jaymasl/frtl-arcade/internal/reward"
	"github.com/jaymasl/frtl-arcade/internal/service"
	"github.com/jaymasl/frtl-arcade/internal/session"
	"github.com/jaymasl/frtl-arcade/internal/signer"
)

type stubGateway struct{}

func (stubGateway) OpenSession(context.Context, uuid.UUID, string) (string, error) {
	return "stub-token", nil
}
func (stubGateway) CreditCurrency(context.Context, uuid.UUID, string, int) (int, error) {
	return 1, nil
}
func (stubGateway) CreditItem(context.Context, uuid.UUID, string, string, int) error { return nil }
func (stubGateway) RecordLeaderboard(context.Context, uuid.UUID, string, int) error  { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *auth.Verifier) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sig, err := signer.New("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatal(err)
	}
	verifier := auth.NewVerifier("test-jwt-secret")
	cap := session.NewCap(100)
	limiter := session.NewUserLimiter(100, time.Minute)

	h := NewHandler(
		service.NewMatchService(cap, sig, stubGateway{}, limiter, 6*time.Minute, 30),
		service.New2048Service(cap, sig, stubGateway{}, limiter, nil, 6*time.Minute, 0),
		nil,
	)

	r := gin.New()
	jwt := middleware.JWT(verifier)
	match := r.Group("/api/v1/game/match", jwt)
	match.POST("/new", h.MatchNew)
	match.POST("/reveal", h.MatchReveal)
	match.GET("/reveal_one", h.MatchRevealOne)
	match.GET("/refresh", h.MatchRefresh)
	g2048 := r.Group("/api/v1/game/2048", jwt)
	g2048.POST("/new", h.Game2048New)
	g2048.POST("/move", h.Game2048Move)
	g2048.GET("/refresh", h.Game2048Refresh)
	r.GET("/api/v1/leaderboard/:game", h.Leaderboard)
	return r, verifier
}

// doReq performs a request with the bearer token and session signature set
// as headers. A nil body with MethodPost sends an empty JSON body.
func doReq(t *testing.T, r *gin.Engine, method, path, token, sig string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if sig != "" {
		req.Header.Set(sessionSignatureHeader, sig)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearerToken(t *testing.T, verifier *auth.Verifier) string {
	t.Helper()
	token, err := verifier.Issue(uuid.New(), time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

type sessionView struct {
	SessionID string `json:"session_id"`
	Signature string `json:"session_signature"`
}

func newSession(t *testing.T, r *gin.Engine, token, path string) sessionView {
	t.Helper()
	w := doReq(t, r, http.MethodPost, path, token, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("new: %d %s", w.Code, w.Body)
	}
	var view sessionView
	if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.SessionID == "" || view.Signature == "" {
		t.Fatalf("missing session credentials: %s", w.Body)
	}
	return view
}

func TestMatchFlowOverHTTP(t *testing.T) {
	r, verifier := newTestRouter(t)
	token := bearerToken(t, verifier)
	view := newSession(t, r, token, "/api/v1/game/match/new")

	w := doReq(t, r, http.MethodPost, "/api/v1/game/match/reveal", token, view.Signature, map[string]any{
		"session_id":   view.SessionID,
		"first_index":  0,
		"second_index": 1,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("reveal: %d %s", w.Code, w.Body)
	}

	w = doReq(t, r, http.MethodGet, "/api/v1/game/match/refresh?session_id="+view.SessionID, token, view.Signature, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", w.Code, w.Body)
	}
	var refreshed struct {
		MatchFound bool `json:"match_found"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &refreshed); err != nil {
		t.Fatal(err)
	}
	if refreshed.MatchFound {
		t.Fatal("refresh must never report a match")
	}
}

func TestMatchRevealOneOverHTTP(t *testing.T) {
	r, verifier := newTestRouter(t)
	token := bearerToken(t, verifier)
	view := newSession(t, r, token, "/api/v1/game/match/new")

	w := doReq(t, r, http.MethodGet,
		"/api/v1/game/match/reveal_one?session_id="+view.SessionID+"&card_index=3",
		token, view.Signature, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reveal_one: %d %s", w.Code, w.Body)
	}
	var got struct {
		Card struct {
			Revealed bool   `json:"revealed"`
			Color    string `json:"color"`
		} `json:"card"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if !got.Card.Revealed || got.Card.Color == "" {
		t.Fatalf("card should be face up with its color: %s", w.Body)
	}

	w = doReq(t, r, http.MethodGet,
		"/api/v1/game/match/reveal_one?session_id="+view.SessionID+"&card_index=nope",
		token, view.Signature, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad card_index: %d, want 400", w.Code)
	}
}

func TestMatchRejectsForgedSignature(t *testing.T) {
	r, verifier := newTestRouter(t)
	token := bearerToken(t, verifier)
	view := newSession(t, r, token, "/api/v1/game/match/new")

	w := doReq(t, r, http.MethodPost, "/api/v1/game/match/reveal", token, "0000", map[string]any{
		"session_id":   view.SessionID,
		"first_index":  0,
		"second_index": 1,
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("forged signature: %d, want 403", w.Code)
	}
}

func TestUnknownSessionIs404(t *testing.T) {
	r, verifier := newTestRouter(t)
	token := bearerToken(t, verifier)

	// Signature must verify for the id, otherwise the 403 masks the lookup.
	sig, _ := signer.New("0123456789abcdef0123456789abcdef")
	id := uuid.New().String()
	w := doReq(t, r, http.MethodGet, "/api/v1/game/2048/refresh?session_id="+id,
		token, sig.Sign(signer.SessionMessage(id)), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown session: %d, want 404", w.Code)
	}
}

func TestGameRoutesRequireAuth(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, path := range []string{
		"/api/v1/game/match/new",
		"/api/v1/game/2048/new",
	} {
		w := doReq(t, r, http.MethodPost, path, "", "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s without token: %d, want 401", path, w.Code)
		}
	}

	w := doReq(t, r, http.MethodPost, "/api/v1/game/match/new", "not-a-jwt", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: %d, want 401", w.Code)
	}
}

func Test2048MoveOverHTTP(t *testing.T) {
	r, verifier := newTestRouter(t)
	token := bearerToken(t, verifier)
	view := newSession(t, r, token, "/api/v1/game/2048/new")

	w := doReq(t, r, http.MethodPost, "/api/v1/game/2048/move", token, view.Signature, map[string]any{
		"session_id": view.SessionID,
		"direction":  "Left",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("move: %d %s", w.Code, w.Body)
	}

	w = doReq(t, r, http.MethodPost, "/api/v1/game/2048/move", token, view.Signature, map[string]any{
		"session_id": view.SessionID,
		"direction":  "Diagonal",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad direction: %d, want 400", w.Code)
	}
}

func TestLeaderboardRejectsUnknownGame(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/leaderboard/chess", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unknown game: %d, want 400", w.Code)
	}
}

var _ reward.Gateway = stubGateway{}
