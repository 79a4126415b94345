package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/flightbooking/internal/auth"
	"github.com/dharmasatrya/flightbooking/internal/booking"
	"github.com/dharmasatrya/flightbooking/internal/cache"
	"github.com/dharmasatrya/flightbooking/internal/cart"
	"github.com/dharmasatrya/flightbooking/internal/config"
	"github.com/dharmasatrya/flightbooking/internal/handler"
	"github.com/dharmasatrya/flightbooking/internal/models"
	"github.com/dharmasatrya/flightbooking/internal/providers"
	"github.com/dharmasatrya/flightbooking/internal/store"
)

const testSecret = "cli-test-secret"

// mixedCabinProvider re-labels the first trip it ever returns as business
// class, the way some vendors answer outside the requested cabin.
type mixedCabinProvider struct {
	*providers.SimulatedProvider

	mu       sync.Mutex
	business string
}

func (p *mixedCabinProvider) Results(ctx context.Context, searchID string) (models.ResultsPage, error) {
	page, err := p.SimulatedProvider.Results(ctx, searchID)
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, r := range page.Results {
		if p.business == "" {
			p.business = r.Key()
		}
		if r.Key() == p.business {
			page.Results[i].CabinClass = models.CabinBusiness
		}
	}
	return page, err
}

func (p *mixedCabinProvider) businessKey() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.business
}

func newBackend(t *testing.T, provider providers.Provider) string {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := booking.NewService(store.NewMemoryStore(), booking.WithLogger(logger))

	e := echo.New()
	handler.Register(e, handler.Handlers{
		Search:   handler.NewSearchHandler(provider, cache.NewNoOpCache(), logger),
		Cart:     handler.NewCartHandler(svc, logger),
		Bookings: handler.NewBookingHandler(svc, logger),
		Issuer:   auth.NewIssuer(testSecret, time.Hour),
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv.URL + "/api/v1"
}

func cli(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...), &out)
	return out.String(), err
}

func TestSearchCartCheckout(t *testing.T) {
	t.Setenv("FLIGHTBOOKING_TOKEN", "")
	t.Setenv("FLIGHTBOOKING_REDIS_URL", "")
	provider := &mixedCabinProvider{
		SimulatedProvider: providers.NewSimulatedProvider(providers.SimulatedConfig{Trips: 4, Step: 50, Seed: 9}),
	}
	api := newBackend(t, provider)
	dataDir := t.TempDir()
	date := time.Now().AddDate(0, 1, 0).Format("2006-01-02")

	out, err := cli(t, "--api", api, "--data-dir", dataDir,
		"search", "--from", "JFK", "--to", "CDG", "--date", date, "--interval", "1ms")
	if err != nil {
		t.Fatalf("search: %v\n%s", err, out)
	}
	if !strings.Contains(out, "ROUTE") || !strings.Contains(out, "JFK-CDG") {
		t.Fatalf("search output:\n%s", out)
	}

	data, err := os.ReadFile(filepath.Join(dataDir, lastSearchKey+".json"))
	if err != nil {
		t.Fatalf("last search not saved: %v", err)
	}
	var last lastSearch
	if err := json.Unmarshal(data, &last); err != nil || len(last.Session.Results) != 3 {
		t.Fatalf("last search = %+v, %v", last, err)
	}
	business := provider.businessKey()
	if business == "" || strings.Contains(out, business) {
		t.Errorf("business result %q shown for an economy search:\n%s", business, out)
	}
	for _, r := range last.Session.Results {
		if r.CabinClass != models.CabinEconomy {
			t.Errorf("saved result %s has cabin %s", r.Key(), r.CabinClass)
		}
	}
	if _, err := cli(t, "--api", api, "--data-dir", dataDir, "cart", "add", business); err == nil {
		t.Error("cart add accepted a result outside the requested cabin")
	}
	flightID := last.Session.Results[0].Key()

	out, err = cli(t, "--api", api, "--data-dir", dataDir, "cart", "add", flightID)
	if err != nil {
		t.Fatalf("cart add: %v", err)
	}
	if !strings.Contains(out, "Added "+flightID) {
		t.Errorf("cart add output: %s", out)
	}

	out, err = cli(t, "--api", api, "--data-dir", dataDir, "cart", "list")
	if err != nil || !strings.Contains(out, flightID) {
		t.Fatalf("cart list: %v\n%s", err, out)
	}

	out, err = cli(t, "--api", api, "--data-dir", dataDir, "checkout", "--customer", "cli@example.com")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !strings.Contains(out, "BOOKING CONFIRMATION") || !strings.Contains(out, "cli@example.com") {
		t.Errorf("checkout output:\n%s", out)
	}

	out, _ = cli(t, "--api", api, "--data-dir", dataDir, "cart")
	if !strings.Contains(out, "Cart is empty.") {
		t.Errorf("cart after checkout:\n%s", out)
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	out, err := cli(t, "token", "alice")
	if err != nil {
		t.Fatal(err)
	}
	user, err := auth.NewIssuer(testSecret, time.Hour).Parse(strings.TrimSpace(out))
	if err != nil || user != "alice" {
		t.Errorf("token parsed to %q, %v", user, err)
	}
}

func TestUsageErrors(t *testing.T) {
	tests := [][]string{
		{},
		{"fly"},
		{"token"},
		{"token", "alice", "bob"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			_, err := cli(t, args...)
			var ue *usageError
			if err == nil || !errors.As(err, &ue) {
				t.Errorf("err = %v, want usage error", err)
			}
		})
	}
}

func TestOpenStorage(t *testing.T) {
	t.Run("file by default", func(t *testing.T) {
		s, err := openStorage(config.Client{DataDir: t.TempDir()})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := s.(*cart.FileStorage); !ok {
			t.Errorf("storage = %T, want *cart.FileStorage", s)
		}
	})

	t.Run("redis when configured", func(t *testing.T) {
		mr := miniredis.RunT(t)
		s, err := openStorage(config.Client{RedisURL: "redis://" + mr.Addr(), RedisCartTTL: time.Hour})
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Set(context.Background(), "last_search", []byte("{}")); err != nil {
			t.Fatal(err)
		}
		if !mr.Exists("flightbooking:last_search") {
			t.Errorf("keys = %v", mr.Keys())
		}
		if ttl := mr.TTL("flightbooking:last_search"); ttl != time.Hour {
			t.Errorf("ttl = %v", ttl)
		}
	})

	t.Run("bad url", func(t *testing.T) {
		if _, err := openStorage(config.Client{RedisURL: "://nope"}); err == nil {
			t.Error("want error")
		}
	})
}
