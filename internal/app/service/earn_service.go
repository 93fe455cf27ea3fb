package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/LinkRewards/internal/app/model"
	"github.com/sifan077/LinkRewards/internal/app/provider"
	"github.com/sifan077/LinkRewards/internal/app/repository"
	"github.com/sifan077/LinkRewards/internal/app/settings"
	"github.com/sifan077/LinkRewards/internal/infra/prometheus"
	"go.uber.org/zap"
)

const (
	limitWindow  = 24 * time.Hour
	historyLimit = 50
	earnPath     = "/api/user/billinglinks/earn/"
)

// SettingsSource yields the current typed settings.
type SettingsSource interface {
	Snapshot(ctx context.Context) (settings.Snapshot, error)
}

// ShortenerSource hands out the client for a provider and credential.
type ShortenerSource interface {
	Client(p model.Provider, apiKey string) (provider.Shortener, error)
}

// EarnService runs the start and earn halves of a reward link.
type EarnService interface {
	Providers(ctx context.Context) ([]ProviderSummary, error)
	History(ctx context.Context, identity Identity) ([]model.Link, error)
	Start(ctx context.Context, identity Identity, providerName string) (*StartResult, error)
	Earn(ctx context.Context, identity Identity, code string) (*EarnResult, error)
}

// ProviderSummary is the public view of an enabled provider.
type ProviderSummary struct {
	Name         model.Provider `json:"name"`
	Enabled      bool           `json:"enabled"`
	CoinsPerLink int            `json:"coins_per_link"`
	DailyLimit   int            `json:"daily_limit"`
}

// Interstitial carries what the Linkvertise page needs.
type Interstitial struct {
	PublisherID int
	CallbackURL string
}

// StartResult tells the caller where to send the user. Exactly one of
// RedirectURL and Interstitial is set.
type StartResult struct {
	Link         *model.Link
	RedirectURL  string
	Interstitial *Interstitial
}

// EarnResult describes a redeemed link.
type EarnResult struct {
	Link  *model.Link
	Coins int
	// CreditFailed is set when the ledger rejected the credit; the link stays completed.
	CreditFailed bool
}

// EarnDeps groups the collaborators of the earn flow.
type EarnDeps struct {
	Logger     *zap.Logger
	Links      repository.LinkRepository
	Settings   SettingsSource
	Shorteners ShortenerSource
	Ledger     Ledger
	Activities ActivityRecorder
	AppURL     string
	Now        func() time.Time
}

type earnService struct {
	logger     *zap.Logger
	links      repository.LinkRepository
	settings   SettingsSource
	shorteners ShortenerSource
	ledger     Ledger
	activities ActivityRecorder
	baseURL    string
	now        func() time.Time
}

// NewEarnService returns the earn flow backed by deps.
func NewEarnService(deps EarnDeps) EarnService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &earnService{
		logger:     logger,
		links:      deps.Links,
		settings:   deps.Settings,
		shorteners: deps.Shorteners,
		ledger:     deps.Ledger,
		activities: deps.Activities,
		baseURL:    normalizeBaseURL(deps.AppURL),
		now:        now,
	}
}

func normalizeBaseURL(raw string) string {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if raw != "" && !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	return raw
}

// CallbackURL is where a provider sends the user back for code.
func (s *earnService) CallbackURL(code string) string {
	return s.baseURL + earnPath + code
}

func (s *earnService) snapshot(ctx context.Context) (settings.Snapshot, error) {
	snap, err := s.settings.Snapshot(ctx)
	if err != nil {
		return settings.Snapshot{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !snap.Enabled {
		return snap, ErrFeatureDisabled
	}
	return snap, nil
}

func (s *earnService) Providers(ctx context.Context) ([]ProviderSummary, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ProviderSummary, 0, len(model.Providers))
	for _, p := range model.Providers {
		ps := snap.Provider(p)
		if !ps.Enabled {
			continue
		}
		out = append(out, ProviderSummary{
			Name:         p,
			Enabled:      true,
			CoinsPerLink: ps.CoinsPerLink,
			DailyLimit:   ps.DailyLimit,
		})
	}
	return out, nil
}

func (s *earnService) History(ctx context.Context, identity Identity) ([]model.Link, error) {
	if !identity.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	if _, err := s.snapshot(ctx); err != nil {
		return nil, err
	}

	links, err := s.links.ListByUser(ctx, identity.UserID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: list links: %v", ErrPersistence, err)
	}
	return links, nil
}

func (s *earnService) Start(ctx context.Context, identity Identity, providerName string) (*StartResult, error) {
	result, err := s.start(ctx, identity, providerName)
	if err != nil {
		prometheus.LinksRejected.WithLabelValues("start", Reason(err)).Inc()
		return nil, err
	}
	prometheus.LinksStarted.WithLabelValues(result.Link.Provider.String()).Inc()
	return result, nil
}

func (s *earnService) start(ctx context.Context, identity Identity, providerName string) (*StartResult, error) {
	if !identity.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	p, ok := model.ParseProvider(providerName)
	if !ok {
		return nil, ErrUnknownProvider
	}
	ps := snap.Provider(p)
	if !ps.Enabled {
		return nil, ErrProviderDisabled
	}

	// resolve the redirect mechanism before a link is spent on a misconfigured provider
	var (
		shortener   provider.Shortener
		publisherID int
	)
	if p == model.ProviderLinkvertise {
		publisherID, err = strconv.Atoi(ps.APIKey)
		if err != nil || publisherID <= 0 {
			return nil, &ShorteningError{Provider: p, Err: provider.ErrMissingAPIKey}
		}
	} else {
		shortener, err = s.shorteners.Client(p, ps.APIKey)
		if err != nil {
			return nil, &ShorteningError{Provider: p, Err: err}
		}
	}

	if err := s.checkLimits(ctx, identity, ps); err != nil {
		return nil, err
	}

	code := uuid.New().String()
	id, err := s.links.Create(ctx, code, identity.UserID, p)
	if err != nil {
		s.logger.Error("failed to create link",
			zap.Int64("user_id", identity.UserID),
			zap.String("provider", p.String()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}

	link := &model.Link{
		ID:        id,
		Code:      code,
		UserID:    identity.UserID,
		Provider:  p,
		CreatedAt: s.now(),
	}
	result := &StartResult{Link: link}
	callback := s.CallbackURL(code)

	if shortener == nil {
		result.Interstitial = &Interstitial{PublisherID: publisherID, CallbackURL: callback}
	} else {
		short, err := shortener.Shorten(ctx, callback)
		if err != nil {
			s.logger.Warn("failed to shorten link",
				zap.Int64("link_id", id),
				zap.Int64("user_id", identity.UserID),
				zap.String("provider", p.String()),
				zap.Error(err))
			return nil, &ShorteningError{Provider: p, Err: err}
		}
		result.RedirectURL = short
	}

	s.record(ctx, identity, model.ActivityLinkStarted, map[string]any{
		"link_id":  id,
		"code":     code,
		"provider": p,
	})

	s.logger.Info("reward link started",
		zap.Int64("link_id", id),
		zap.Int64("user_id", identity.UserID),
		zap.String("provider", p.String()))
	return result, nil
}

// checkLimits enforces the cooldown and the daily allowance over the trailing 24 hours.
func (s *earnService) checkLimits(ctx context.Context, identity Identity, ps settings.ProviderSettings) error {
	now := s.now()
	since := now.Add(-limitWindow)

	recent, err := s.links.ListRecentByUserProvider(ctx, identity.UserID, ps.Provider, since, settings.MaxDailyLimit)
	if err != nil {
		return fmt.Errorf("%w: load recent links: %v", ErrPersistence, err)
	}

	count := 0
	for _, link := range recent {
		if link.CreatedAt.Before(since) {
			continue
		}
		count++

		if elapsed := now.Sub(link.CreatedAt); elapsed < ps.Cooldown {
			remaining := ps.Cooldown - elapsed
			return &CooldownError{
				Provider:         ps.Provider,
				SecondsRemaining: int((remaining + time.Second - 1) / time.Second),
			}
		}
	}

	if count >= ps.DailyLimit {
		return &DailyLimitError{Provider: ps.Provider, Limit: ps.DailyLimit}
	}
	return nil
}

func (s *earnService) Earn(ctx context.Context, identity Identity, code string) (*EarnResult, error) {
	result, err := s.earn(ctx, identity, code)
	if err != nil {
		prometheus.LinksRejected.WithLabelValues("earn", Reason(err)).Inc()
		return nil, err
	}
	name := result.Link.Provider.String()
	prometheus.LinksRedeemed.WithLabelValues(name).Inc()
	if !result.CreditFailed {
		prometheus.CreditsAwarded.WithLabelValues(name).Add(float64(result.Coins))
	}
	return result, nil
}

func (s *earnService) earn(ctx context.Context, identity Identity, code string) (*EarnResult, error) {
	if !identity.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	code = strings.TrimSpace(code)
	if !model.ValidCode(code) {
		return nil, ErrInvalidCode
	}

	link, err := s.links.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return nil, ErrInvalidCode
		}
		s.logger.Error("failed to load link", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("%w: load link: %v", ErrPersistence, err)
	}

	if link.UserID != identity.UserID {
		s.logger.Warn("earn attempted by non-owner",
			zap.Int64("link_id", link.ID),
			zap.Int64("owner_id", link.UserID),
			zap.Int64("user_id", identity.UserID))
		return nil, ErrNotOwner
	}
	if link.Completed {
		return nil, ErrAlreadyCompleted
	}

	ps := snap.Provider(link.Provider)
	elapsed := s.now().Sub(link.CreatedAt)

	switch {
	case elapsed < 0:
		s.logger.Warn("link created in the future, allowing earn",
			zap.Int64("link_id", link.ID),
			zap.Duration("elapsed", elapsed))
	case elapsed < ps.MinTimeToComplete:
		if _, err := s.links.SoftDelete(ctx, link.ID); err != nil {
			s.logger.Error("failed to delete too-fast link",
				zap.Int64("link_id", link.ID),
				zap.Error(err))
		}
		s.record(ctx, identity, model.ActivityLinkCompletedTooFast, map[string]any{
			"link_id":  link.ID,
			"provider": link.Provider,
			"elapsed":  int(elapsed.Seconds()),
		})
		return nil, &TooFastError{MinSeconds: int(ps.MinTimeToComplete / time.Second)}
	}

	ok, err := s.links.MarkCompleted(ctx, link.ID)
	if err != nil {
		s.logger.Error("failed to complete link",
			zap.Int64("link_id", link.ID),
			zap.String("provider", link.Provider.String()),
			zap.Int64("user_id", identity.UserID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: mark completed: %v", ErrPersistence, err)
	}
	if !ok {
		s.logger.Warn("link completion lost a race", zap.Int64("link_id", link.ID))
		return nil, fmt.Errorf("%w: link %d no longer pending", ErrPersistence, link.ID)
	}
	link.Completed = true

	result := &EarnResult{Link: link, Coins: ps.CoinsPerLink}
	if err := s.ledger.AddUserCredits(ctx, identity.UserID, ps.CoinsPerLink); err != nil {
		s.logger.Error("failed to credit user, manual reconciliation required",
			zap.Int64("link_id", link.ID),
			zap.Int64("user_id", identity.UserID),
			zap.Int("coins", ps.CoinsPerLink),
			zap.Error(err))
		result.CreditFailed = true
	}

	s.record(ctx, identity, model.ActivityLinkRedeemed, map[string]any{
		"link_id":  link.ID,
		"provider": link.Provider,
		"coins":    ps.CoinsPerLink,
	})

	s.logger.Info("reward link redeemed",
		zap.Int64("link_id", link.ID),
		zap.Int64("user_id", identity.UserID),
		zap.Int("coins", ps.CoinsPerLink))
	return result, nil
}

func (s *earnService) record(ctx context.Context, identity Identity, name string, fields map[string]any) {
	if s.activities == nil {
		return
	}
	if err := s.activities.Record(ctx, newActivity(identity, name, fields)); err != nil {
		s.logger.Warn("failed to record activity", zap.String("name", name), zap.Error(err))
	}
}
