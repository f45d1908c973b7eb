package matching

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"lending-core/internal/common/errors"
	"lending-core/internal/common/logger"
	"lending-core/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

const productCacheKey = "matching:products"

var (
	errCatalogNotConfigured          = stderrors.New("no product catalog configured")
	errApplicationStoreNotConfigured = stderrors.New("no application store configured")
)

// ServiceConfig holds the matching defaults applied when a request omits them.
type ServiceConfig struct {
	MinScore     float64
	Limit        int
	CacheTTL     time.Duration
	CacheEnabled bool
}

// Service wraps the scorer with catalog access and caching.
type Service struct {
	config   ServiceConfig
	products ProductRepository
	apps     ApplicationRepository
	redis    *redis.Client
	logger   logger.Logger
}

func NewService(cfg ServiceConfig, products ProductRepository, apps ApplicationRepository, rdb *redis.Client, log logger.Logger) *Service {
	return &Service{
		config:   cfg,
		products: products,
		apps:     apps,
		redis:    rdb,
		logger:   log.WithFields(map[string]interface{}{"component": "matching"}),
	}
}

// FindMatches scores the application against the given candidates, or the
// whole catalog when candidates is empty. Zero minScore/limit fall back to
// the configured defaults.
func (s *Service) FindMatches(ctx context.Context, app *LoanApplication, candidates []LenderProduct, minScore float64, limit int) ([]MatchResult, error) {
	if minScore <= 0 {
		minScore = s.config.MinScore
	}
	if limit <= 0 {
		limit = s.config.Limit
	}

	products := candidates
	if len(products) == 0 {
		var err error
		products, err = s.listProducts(ctx)
		if err != nil {
			metrics.MatchRequests.WithLabelValues("error").Inc()
			return nil, err
		}
	}

	results, err := FindMatches(app, products, minScore, limit)
	if err != nil {
		metrics.MatchRequests.WithLabelValues("invalid").Inc()
		return nil, err
	}

	for _, r := range results {
		metrics.MatchScores.Observe(r.Score)
	}
	metrics.MatchRequests.WithLabelValues("ok").Inc()

	s.logger.Info("matches computed", map[string]interface{}{
		"applicationId": app.ID,
		"candidates":    len(products),
		"matches":       len(results),
	})
	return results, nil
}

// FindMatchesForApplication loads the application snapshot by id first.
func (s *Service) FindMatchesForApplication(ctx context.Context, applicationID string, minScore float64, limit int) ([]MatchResult, error) {
	if s.apps == nil {
		return nil, errors.NewProductQueryFailedError(errApplicationStoreNotConfigured)
	}
	app, err := s.apps.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return s.FindMatches(ctx, app, nil, minScore, limit)
}

// ListProducts exposes the catalog read used by the admin API.
func (s *Service) ListProducts(ctx context.Context) ([]LenderProduct, error) {
	return s.listProducts(ctx)
}

// listProducts serves the catalog through a Redis read-through cache when
// enabled. Cache failures fall back to the repository; the catalog read
// must not depend on Redis availability. A deployment without any catalog
// source gets a structured error, not a nil dereference.
func (s *Service) listProducts(ctx context.Context) ([]LenderProduct, error) {
	if s.config.CacheEnabled && s.redis != nil {
		if val, err := s.redis.Get(ctx, productCacheKey).Result(); err == nil {
			var cached []LenderProduct
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return cached, nil
			}
		}
	}

	if s.products == nil {
		return nil, errors.NewProductQueryFailedError(errCatalogNotConfigured)
	}

	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	if s.config.CacheEnabled && s.redis != nil {
		if data, err := json.Marshal(products); err == nil {
			if err := s.redis.Set(ctx, productCacheKey, data, s.config.CacheTTL).Err(); err != nil {
				s.logger.Warn("product cache write failed", map[string]interface{}{
					"error": err,
				})
			}
		}
	}
	return products, nil
}
