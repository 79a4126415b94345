package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dharmasatrya/flightbooking/internal/models"
)

const (
	searchKeyPrefix  = "search:req:"
	resultsKeyPrefix = "search:results:"
)

// Cache remembers which vendor search answers a request and the final
// results page of a completed search. Misses and decode failures are
// reported as ok=false; callers fall through to the provider.
type Cache interface {
	GetSearchID(ctx context.Context, req models.SearchRequest) (string, bool)
	SetSearchID(ctx context.Context, req models.SearchRequest, searchID string) error
	GetResults(ctx context.Context, searchID string) (models.ResultsPage, bool)
	SetResults(ctx context.Context, searchID string, page models.ResultsPage) error
	Close() error
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Host:     "localhost",
		Port:     "6379",
		Password: "",
		DB:       0,
		TTL:      5 * time.Minute,
	}
}

func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return NewRedisCacheFromClient(client, cfg.TTL), nil
}

func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) GetSearchID(ctx context.Context, req models.SearchRequest) (string, bool) {
	id, err := c.client.Get(ctx, RequestKey(req)).Result()
	if err != nil || id == "" {
		return "", false
	}
	return id, true
}

func (c *RedisCache) SetSearchID(ctx context.Context, req models.SearchRequest, searchID string) error {
	if searchID == "" {
		return errors.New("cache: empty search id")
	}
	return c.client.Set(ctx, RequestKey(req), searchID, c.ttl).Err()
}

func (c *RedisCache) GetResults(ctx context.Context, searchID string) (models.ResultsPage, bool) {
	data, err := c.client.Get(ctx, resultsKeyPrefix+searchID).Bytes()
	if err != nil {
		return models.ResultsPage{}, false
	}

	var page models.ResultsPage
	if err := json.Unmarshal(data, &page); err != nil {
		return models.ResultsPage{}, false
	}
	return page, true
}

// SetResults stores a page. Only a page at 100% is final; anything less is
// ignored.
func (c *RedisCache) SetResults(ctx context.Context, searchID string, page models.ResultsPage) error {
	if page.Complete < 100 {
		return nil
	}
	data, err := json.Marshal(page)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, resultsKeyPrefix+searchID, data, c.ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) GetSearchID(context.Context, models.SearchRequest) (string, bool) {
	return "", false
}

func (c *NoOpCache) SetSearchID(context.Context, models.SearchRequest, string) error {
	return nil
}

func (c *NoOpCache) GetResults(context.Context, string) (models.ResultsPage, bool) {
	return models.ResultsPage{}, false
}

func (c *NoOpCache) SetResults(context.Context, string, models.ResultsPage) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}

// RequestKey derives the cache key of a normalised search request.
func RequestKey(req models.SearchRequest) string {
	keyData := struct {
		Origin      string
		Destination string
		Date        string
		Adults      int
		Children    int
		Infants     int
		CabinClass  string
		DirectOnly  bool
	}{
		Origin:      req.Origin,
		Destination: req.Destination,
		Date:        req.Date,
		Adults:      req.Passengers.Adults,
		Children:    req.Passengers.Children,
		Infants:     req.Passengers.Infants,
		CabinClass:  req.CabinClass,
		DirectOnly:  req.DirectOnly,
	}

	data, _ := json.Marshal(keyData)
	hash := sha256.Sum256(data)
	return searchKeyPrefix + hex.EncodeToString(hash[:])
}
