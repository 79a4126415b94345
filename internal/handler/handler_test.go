package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/dharmasatrya/flightbooking/internal/auth"
	"github.com/dharmasatrya/flightbooking/internal/booking"
	"github.com/dharmasatrya/flightbooking/internal/cache"
	"github.com/dharmasatrya/flightbooking/internal/models"
	"github.com/dharmasatrya/flightbooking/internal/providers"
	"github.com/dharmasatrya/flightbooking/internal/ratelimit"
	"github.com/dharmasatrya/flightbooking/internal/store"
)

var testNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingProvider records upstream traffic.
type countingProvider struct {
	providers.Provider
	starts  atomic.Int32
	results atomic.Int32
}

func (p *countingProvider) StartSearch(ctx context.Context, req models.SearchRequest) (string, error) {
	p.starts.Add(1)
	return p.Provider.StartSearch(ctx, req)
}

func (p *countingProvider) Results(ctx context.Context, id string) (models.ResultsPage, error) {
	p.results.Add(1)
	return p.Provider.Results(ctx, id)
}

type testServer struct {
	e        *echo.Echo
	provider *countingProvider
	issuer   *auth.Issuer
	store    *store.MemoryStore
}

func newTestServer(t *testing.T, c cache.Cache, throttle *ratelimit.KeyedLimiter) *testServer {
	t.Helper()
	logger := quietLogger()

	provider := &countingProvider{Provider: providers.NewSimulatedProvider(providers.SimulatedConfig{Trips: 6, Step: 50, Resend: 1, Seed: 3})}
	st := store.NewMemoryStore()
	svc := booking.NewService(st, booking.WithLogger(logger), booking.WithClock(func() time.Time { return testNow }))
	issuer := auth.NewIssuer("test-secret", time.Hour)

	search := NewSearchHandler(provider, c, logger)
	search.now = func() time.Time { return testNow }

	e := echo.New()
	Register(e, Handlers{
		Search:   search,
		Cart:     NewCartHandler(svc, logger),
		Bookings: NewBookingHandler(svc, logger),
		Issuer:   issuer,
		Throttle: throttle,
	})
	return &testServer{e: e, provider: provider, issuer: issuer, store: st}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = strings.NewReader(string(data))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) token(t *testing.T, user string) string {
	t.Helper()
	tok, err := s.issuer.Issue(user)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func searchBody() models.SearchBody {
	return models.NewSearchBody(models.SearchRequest{
		Origin:      "JFK",
		Destination: "CDG",
		Date:        "2026-11-01",
		Passengers:  models.PassengerCounts{Adults: 1},
		CabinClass:  models.CabinEconomy,
	})
}

func TestStartSearchValidation(t *testing.T) {
	s := newTestServer(t, cache.NewNoOpCache(), nil)

	body := searchBody()
	body.FlightSegments[0].Destination = "JFK"
	rec := s.do(t, http.MethodPost, "/api/v1/flights/search", "", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
	if got := decode[models.ErrorResponse](t, rec); got.Error != "validation_error" {
		t.Errorf("error = %+v", got)
	}

	body = searchBody()
	body.FlightSegments = append(body.FlightSegments, body.FlightSegments[0])
	if rec := s.do(t, http.MethodPost, "/api/v1/flights/search", "", body); rec.Code != http.StatusBadRequest {
		t.Errorf("two segments code = %d, want 400", rec.Code)
	}

	if s.provider.starts.Load() != 0 {
		t.Error("invalid request reached the provider")
	}
}

func TestSearchAndPoll(t *testing.T) {
	s := newTestServer(t, cache.NewNoOpCache(), nil)

	rec := s.do(t, http.MethodPost, "/api/v1/flights/search", "", searchBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("start code = %d: %s", rec.Code, rec.Body)
	}
	id := decode[models.StartSearchResponse](t, rec).SearchID
	if id == "" {
		t.Fatal("empty search id")
	}

	rec = s.do(t, http.MethodGet, "/api/v1/flights/search/"+id+"/results", "", nil)
	first := decode[models.ResultsPage](t, rec)
	if first.Complete != 50 || len(first.Results) != 3 {
		t.Errorf("first page = %d%% with %d results", first.Complete, len(first.Results))
	}

	rec = s.do(t, http.MethodGet, "/api/v1/flights/search/"+id+"/results?sort_by=price&max_stops=0", "", nil)
	second := decode[models.ResultsPage](t, rec)
	if second.Complete != 100 {
		t.Errorf("second page complete = %d", second.Complete)
	}
	for i := 1; i < len(second.Results); i++ {
		if second.Results[i].Price < second.Results[i-1].Price {
			t.Error("results not sorted by price")
		}
	}
	for _, r := range second.Results {
		if r.Stops() != 0 {
			t.Errorf("max_stops=0 returned %d stops", r.Stops())
		}
	}

	rec = s.do(t, http.MethodGet, "/api/v1/flights/search/missing/results", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown search code = %d, want 404", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/api/v1/flights/search/"+id+"/results?max_stops=lots", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad filter code = %d, want 400", rec.Code)
	}
}

func TestSearchCaching(t *testing.T) {
	mr := miniredis.RunT(t)
	c := cache.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)
	t.Cleanup(func() { c.Close() })
	s := newTestServer(t, c, nil)

	first := decode[models.StartSearchResponse](t, s.do(t, http.MethodPost, "/api/v1/flights/search", "", searchBody()))
	second := decode[models.StartSearchResponse](t, s.do(t, http.MethodPost, "/api/v1/flights/search", "", searchBody()))
	if first.SearchID != second.SearchID {
		t.Errorf("identical requests got %q and %q", first.SearchID, second.SearchID)
	}
	if n := s.provider.starts.Load(); n != 1 {
		t.Errorf("provider starts = %d, want 1", n)
	}

	path := "/api/v1/flights/search/" + first.SearchID + "/results"
	s.do(t, http.MethodGet, path, "", nil)
	done := decode[models.ResultsPage](t, s.do(t, http.MethodGet, path, "", nil))
	if done.Complete != 100 {
		t.Fatalf("complete = %d", done.Complete)
	}

	again := decode[models.ResultsPage](t, s.do(t, http.MethodGet, path, "", nil))
	if n := s.provider.results.Load(); n != 2 {
		t.Errorf("provider polls = %d, want 2 with the final page cached", n)
	}
	if len(again.Results) != len(done.Results) {
		t.Errorf("cached page has %d results, want %d", len(again.Results), len(done.Results))
	}
}

type blockingProvider struct {
	providers.Provider
	calls   atomic.Int32
	release chan struct{}
}

func (p *blockingProvider) Results(ctx context.Context, id string) (models.ResultsPage, error) {
	p.calls.Add(1)
	<-p.release
	return models.ResultsPage{Complete: 10, Results: []models.FlightResult{{ID: "a", Price: 1}}}, nil
}

func TestConcurrentPollsShareUpstreamCall(t *testing.T) {
	p := &blockingProvider{release: make(chan struct{})}
	h := NewSearchHandler(p, cache.NewNoOpCache(), quietLogger())
	e := echo.New()
	e.GET("/search/:id/results", h.Results)

	const n = 8
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/search/abc/results", nil))
			codes[i] = rec.Code
		}(i)
	}

	for p.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(p.release)
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("request %d code = %d", i, code)
		}
	}
	if calls := p.calls.Load(); calls >= n {
		t.Errorf("upstream calls = %d, want fewer than %d", calls, n)
	}
}

func TestInboundThrottle(t *testing.T) {
	s := newTestServer(t, cache.NewNoOpCache(), ratelimit.NewKeyedLimiter(ratelimit.RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1}))

	if rec := s.do(t, http.MethodPost, "/api/v1/flights/search", "", searchBody()); rec.Code != http.StatusOK {
		t.Fatalf("first code = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/v1/flights/search", "", searchBody()); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second code = %d, want 429", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Errorf("health throttled: %d", rec.Code)
	}
}
