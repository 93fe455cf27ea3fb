package provider

import (
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/sifan077/LinkRewards/config"
	"github.com/sifan077/LinkRewards/internal/app/model"
	"go.uber.org/zap"
)

type cachedClient struct {
	apiKey    string
	shortener Shortener
}

// Registry keeps one long-lived client per provider so rate limit windows
// survive across requests. A client is rebuilt when its api key changes and
// keeps the provider's limiter.
type Registry struct {
	mu       sync.Mutex
	cfg      config.ProvidersConfig
	redis    redis.Cmdable
	logger   *zap.Logger
	clients  map[model.Provider]cachedClient
	limiters map[model.Provider]Limiter
}

// NewRegistry builds a registry. A nil redis client keeps limiters in-process
// even when cfg.SharedLimiter is set.
func NewRegistry(cfg config.ProvidersConfig, redisClient redis.Cmdable, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		cfg:      cfg,
		redis:    redisClient,
		logger:   logger,
		clients:  make(map[model.Provider]cachedClient),
		limiters: make(map[model.Provider]Limiter),
	}
}

// Client returns the shortener for p configured with apiKey.
func (r *Registry) Client(p model.Provider, apiKey string) (Shortener, error) {
	if p == model.ProviderLinkvertise {
		return nil, ErrNoShortener
	}
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.clients[p]; ok && cached.apiKey == apiKey {
		return cached.shortener, nil
	}

	opts := Options{
		APIKey:    apiKey,
		Timeout:   r.cfg.Timeout,
		UserAgent: r.cfg.UserAgent,
		Limiter:   r.limiterFor(p),
	}

	var shortener Shortener
	switch p {
	case model.ProviderShareUS:
		opts.BaseURL = r.cfg.ShareUSBaseURL
		shortener = NewShareUS(opts)
	case model.ProviderGyaniLinks:
		opts.BaseURL = r.cfg.GyaniLinksBaseURL
		shortener = NewGyaniLinks(opts)
	case model.ProviderLinkPays:
		opts.BaseURL = r.cfg.LinkPaysBaseURL
		shortener = NewLinkPays(opts)
	default:
		return nil, ErrNoShortener
	}

	r.clients[p] = cachedClient{apiKey: apiKey, shortener: shortener}
	r.logger.Debug("provider client built", zap.String("provider", p.String()))
	return shortener, nil
}

func (r *Registry) limiterFor(p model.Provider) Limiter {
	if l, ok := r.limiters[p]; ok {
		return l
	}

	var l Limiter
	if r.cfg.SharedLimiter && r.redis != nil {
		l = NewRedisLimiter(r.redis, p.String(), r.cfg.RateLimit, r.cfg.RateWindow, r.logger)
	} else {
		l = NewFixedWindow(r.cfg.RateLimit, r.cfg.RateWindow)
	}
	r.limiters[p] = l
	return l
}
