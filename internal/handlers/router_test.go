package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"mediarank/internal/database"
	"mediarank/internal/lock"
	"mediarank/internal/models"
	"mediarank/internal/service"
	"mediarank/internal/stats"
	"mediarank/migrations"
)

const testSecret = "handler-test-secret-0123"

type testServer struct {
	t      *testing.T
	server *httptest.Server
	auth   *service.AuthService
}

func newTestServer(t *testing.T, mutate func(cfg *RouterConfig)) *testServer {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping handler integration test in short mode")
	}
	captureLogs(t)

	db, err := database.Initialize(filepath.Join(t.TempDir(), "handlers.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	deps := service.Deps{
		DB:      db,
		Locker:  lock.NewLocalLocker(),
		Tracker: stats.NewTracker(time.UTC, 100),
	}
	settings := service.DefaultSettings()
	auth := service.NewAuthService(testSecret, "")

	cfg := RouterConfig{
		Auth:               auth,
		Ranking:            service.NewRankingService(deps, nil, settings),
		Library:            service.NewLibraryService(deps, settings),
		Stats:              service.NewStatsService(deps, settings),
		Media:              service.NewMediaService(deps),
		CORSAllowedOrigins: []string{"*"},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	server := httptest.NewServer(NewRouter(cfg))
	t.Cleanup(server.Close)
	return &testServer{t: t, server: server, auth: auth}
}

func (s *testServer) token(userID string) string {
	s.t.Helper()
	tok, err := s.auth.IssueToken(userID, time.Hour)
	if err != nil {
		s.t.Fatalf("IssueToken: %v", err)
	}
	return tok
}

// do sends a request and decodes a JSON response into out when non-nil
func (s *testServer) do(method, path, token string, body interface{}, out interface{}) int {
	s.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, s.server.URL+path, reader)
	if err != nil {
		s.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			s.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (s *testServer) addItem(token string, externalID int64) models.LibraryItem {
	s.t.Helper()
	var media models.MediaItem
	if code := s.do(http.MethodPost, "/api/v1/media", token, models.MediaItemInput{
		ExternalID: externalID,
		Type:       models.MediaTypeAnime,
		Title:      fmt.Sprintf("Show %d", externalID),
	}, &media); code != http.StatusOK {
		s.t.Fatalf("POST /media = %d", code)
	}

	var item models.LibraryItem
	if code := s.do(http.MethodPost, "/api/v1/library", token,
		models.AddLibraryItemInput{MediaItemID: media.ID}, &item); code != http.StatusCreated {
		s.t.Fatalf("POST /library = %d", code)
	}
	return item
}

func TestRouter_ComparisonFlow(t *testing.T) {
	s := newTestServer(t, nil)
	tok := s.token("alice")

	var pair *models.Pair
	if code := s.do(http.MethodGet, "/api/v1/comparisons/pair", tok, nil, &pair); code != http.StatusOK || pair != nil {
		t.Fatalf("empty library pair: code=%d pair=%v", code, pair)
	}

	a := s.addItem(tok, 1)
	b := s.addItem(tok, 2)

	if code := s.do(http.MethodGet, "/api/v1/comparisons/pair", tok, nil, &pair); code != http.StatusOK || pair == nil {
		t.Fatalf("pair: code=%d pair=%v", code, pair)
	}
	if pair.Item1.Media == nil || pair.Item2.Media == nil {
		t.Error("pair items missing media")
	}

	var result models.ComparisonResult
	code := s.do(http.MethodPost, "/api/v1/comparisons", tok, map[string]int64{"winnerId": a.ID, "loserId": b.ID}, &result)
	if code != http.StatusOK {
		t.Fatalf("POST /comparisons = %d", code)
	}
	if result.WinnerNewRating != 1520 || result.LoserNewRating != 1480 {
		t.Errorf("result = %+v", result)
	}

	var history []models.HistoryEntry
	if code := s.do(http.MethodGet, "/api/v1/comparisons/history?limit=5", tok, nil, &history); code != http.StatusOK {
		t.Fatalf("GET /comparisons/history = %d", code)
	}
	if len(history) != 1 || history[0].WinnerID != a.ID {
		t.Errorf("history = %+v", history)
	}

	var agg models.AggregatedStats
	if code := s.do(http.MethodGet, "/api/v1/stats", tok, nil, &agg); code != http.StatusOK {
		t.Fatalf("GET /stats = %d", code)
	}
	if agg.TotalComparisons != 1 || agg.AnimeCount != 2 || len(agg.Last7Days) != 7 {
		t.Errorf("stats = %+v", agg)
	}

	var top []models.TopItem
	if code := s.do(http.MethodGet, "/api/v1/stats/top?category=ANIME&limit=1", tok, nil, &top); code != http.StatusOK {
		t.Fatalf("GET /stats/top = %d", code)
	}
	if len(top) != 1 || top[0].ItemID != a.ID || top[0].PercentileScore != 10 {
		t.Errorf("top = %+v", top)
	}

	var reset models.ResetResult
	if code := s.do(http.MethodPost, "/api/v1/rankings/reset", tok, nil, &reset); code != http.StatusOK {
		t.Fatalf("POST /rankings/reset = %d", code)
	}
	if reset.ItemsReset != 2 || reset.ComparisonsCleared != 1 {
		t.Errorf("reset = %+v", reset)
	}
}

func TestRouter_ComparisonErrors(t *testing.T) {
	s := newTestServer(t, nil)
	tok := s.token("alice")
	a := s.addItem(tok, 1)
	other := s.addItem(s.token("bob"), 2)

	tests := []struct {
		name       string
		token      string
		body       interface{}
		wantStatus int
	}{
		{name: "no token", token: "", body: map[string]int64{"winnerId": a.ID, "loserId": other.ID}, wantStatus: http.StatusUnauthorized},
		{name: "bad token", token: "garbage", body: map[string]int64{"winnerId": a.ID, "loserId": other.ID}, wantStatus: http.StatusUnauthorized},
		{name: "same item", token: tok, body: map[string]int64{"winnerId": a.ID, "loserId": a.ID}, wantStatus: http.StatusConflict},
		{name: "foreign item", token: tok, body: map[string]int64{"winnerId": a.ID, "loserId": other.ID}, wantStatus: http.StatusNotFound},
		{name: "missing loser", token: tok, body: map[string]int64{"winnerId": a.ID}, wantStatus: http.StatusBadRequest},
		{name: "unknown field", token: tok, body: map[string]int64{"winner": a.ID}, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorResponse
			if code := s.do(http.MethodPost, "/api/v1/comparisons", tt.token, tt.body, &body); code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", code, tt.wantStatus, body.Error)
			}
			if body.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestRouter_LibraryEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	tok := s.token("alice")
	item := s.addItem(tok, 7)

	var dup errorResponse
	if code := s.do(http.MethodPost, "/api/v1/library", tok,
		models.AddLibraryItemInput{MediaItemID: item.MediaItemID}, &dup); code != http.StatusConflict {
		t.Errorf("duplicate add = %d, want 409", code)
	}

	var got models.LibraryItemWithMedia
	path := fmt.Sprintf("/api/v1/library/%d", item.ID)
	if code := s.do(http.MethodGet, path, tok, nil, &got); code != http.StatusOK {
		t.Fatalf("GET %s = %d", path, code)
	}
	if got.Media == nil || got.Media.ExternalID != 7 {
		t.Errorf("item media = %+v", got.Media)
	}

	if code := s.do(http.MethodGet, path, s.token("bob"), nil, nil); code != http.StatusNotFound {
		t.Errorf("foreign GET = %d, want 404", code)
	}
	if code := s.do(http.MethodGet, "/api/v1/library/abc", tok, nil, nil); code != http.StatusBadRequest {
		t.Errorf("bad id GET = %d, want 400", code)
	}

	notes := "loved it"
	var updated models.LibraryItem
	if code := s.do(http.MethodPatch, path, tok, models.LibraryItemUpdate{UserNotes: &notes}, &updated); code != http.StatusOK {
		t.Fatalf("PATCH %s = %d", path, code)
	}
	if updated.UserNotes != notes {
		t.Errorf("UserNotes = %q", updated.UserNotes)
	}

	var list []models.LibraryItem
	if code := s.do(http.MethodGet, "/api/v1/library/by-rating?category=ANIME", tok, nil, &list); code != http.StatusOK || len(list) != 1 {
		t.Errorf("by-rating: code=%d len=%d", code, len(list))
	}
	if code := s.do(http.MethodGet, "/api/v1/library/by-rating?category=BOOK", tok, nil, nil); code != http.StatusBadRequest {
		t.Errorf("bad category = %d, want 400", code)
	}

	if code := s.do(http.MethodDelete, path, tok, nil, nil); code != http.StatusNoContent {
		t.Errorf("DELETE %s = %d", path, code)
	}
	if code := s.do(http.MethodGet, "/api/v1/library", tok, nil, &list); code != http.StatusOK || len(list) != 0 {
		t.Errorf("after delete: code=%d len=%d", code, len(list))
	}

	var cleared models.ClearResult
	if code := s.do(http.MethodDelete, "/api/v1/data", tok, nil, &cleared); code != http.StatusOK {
		t.Errorf("DELETE /data = %d", code)
	}
}

func TestRouter_AnonymousAccess(t *testing.T) {
	s := newTestServer(t, nil)

	var agg models.AggregatedStats
	if code := s.do(http.MethodGet, "/api/v1/stats", "", nil, &agg); code != http.StatusOK {
		t.Fatalf("anonymous GET /stats = %d", code)
	}
	if agg.TotalComparisons != 0 || len(agg.Last7Days) != 0 {
		t.Errorf("anonymous stats = %+v", agg)
	}

	var top []models.TopItem
	if code := s.do(http.MethodGet, "/api/v1/stats/top", "", nil, &top); code != http.StatusOK || len(top) != 0 {
		t.Errorf("anonymous top: code=%d len=%d", code, len(top))
	}

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/comparisons/pair"},
		{http.MethodGet, "/api/v1/comparisons/history"},
		{http.MethodPost, "/api/v1/rankings/reset"},
		{http.MethodPost, "/api/v1/stats/init"},
		{http.MethodDelete, "/api/v1/data"},
		{http.MethodGet, "/api/v1/library"},
		{http.MethodGet, "/api/v1/media/1"},
	} {
		if code := s.do(route.method, route.path, "", nil, nil); code != http.StatusUnauthorized {
			t.Errorf("%s %s = %d, want 401", route.method, route.path, code)
		}
	}

	if code := s.do(http.MethodGet, "/api/v1/stats", "not-a-token", nil, nil); code != http.StatusUnauthorized {
		t.Errorf("bad token on optional route = %d, want 401", code)
	}
}

func TestRouter_HistoryLimitValidation(t *testing.T) {
	s := newTestServer(t, nil)
	tok := s.token("alice")

	for _, q := range []string{"limit=0", "limit=-1", "limit=abc"} {
		if code := s.do(http.MethodGet, "/api/v1/comparisons/history?"+q, tok, nil, nil); code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", q, code)
		}
	}
}

func TestRouter_RateLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *RouterConfig) {
		cfg.RateLimitEnabled = true
		cfg.RateLimitRequests = 2
		cfg.RateLimitWindow = time.Minute
	})

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = s.do(http.MethodGet, "/api/v1/stats", "", nil, nil)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	startup := NewStartupStatus()
	s := newTestServer(t, func(cfg *RouterConfig) { cfg.Startup = startup })

	var report startupReport
	if code := s.do(http.MethodGet, "/health", "", nil, &report); code != http.StatusServiceUnavailable || report.Ready {
		t.Errorf("health before ready: code=%d report=%+v", code, report)
	}

	startup.CompleteStep(StepDatabase)
	startup.MarkReady()
	if code := s.do(http.MethodGet, "/health", "", nil, &report); code != http.StatusOK || !report.Ready || report.Progress != 100 {
		t.Errorf("health after ready: code=%d report=%+v", code, report)
	}

	resp, err := http.Get(s.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "mediarank_api_requests_total") {
		t.Error("metrics output missing mediarank_api_requests_total")
	}
}

func TestRouter_RequestIDHeader(t *testing.T) {
	s := newTestServer(t, nil)

	req, _ := http.NewRequest(http.MethodGet, s.server.URL+"/health", nil)
	req.Header.Set(RequestIDHeader, "trace-abc")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(RequestIDHeader); got != "trace-abc" {
		t.Errorf("echoed request id = %q", got)
	}

	resp, err = http.Get(s.server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("expected a generated request id")
	}
}
