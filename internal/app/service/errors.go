package service

import (
	"errors"
	"fmt"

	"github.com/sifan077/LinkRewards/internal/app/model"
	"github.com/sifan077/LinkRewards/internal/app/provider"
)

var (
	ErrNotAuthenticated = errors.New("user is not authenticated")
	ErrFeatureDisabled  = errors.New("links for rewards is disabled")
	ErrUnknownProvider  = errors.New("unknown provider")
	ErrProviderDisabled = errors.New("provider is disabled")
	ErrInvalidCode      = errors.New("invalid link code")
	ErrNotOwner         = errors.New("link belongs to another user")
	ErrAlreadyCompleted = errors.New("link already completed")
	ErrCreationFailed   = errors.New("failed to create link")
	// ErrPersistence covers an unavailable store and a lost completion race.
	ErrPersistence = errors.New("failed to persist link state")
)

// CooldownError rejects a start issued too soon after the previous one.
type CooldownError struct {
	Provider         model.Provider
	SecondsRemaining int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s cooldown active, %ds remaining", e.Provider, e.SecondsRemaining)
}

// MinutesRemaining rounds the wait up to whole minutes.
func (e *CooldownError) MinutesRemaining() int {
	return (e.SecondsRemaining + 59) / 60
}

// DailyLimitError rejects a start once the 24 hour allowance is used up.
type DailyLimitError struct {
	Provider model.Provider
	Limit    int
}

func (e *DailyLimitError) Error() string {
	return fmt.Sprintf("%s daily limit of %d links reached", e.Provider, e.Limit)
}

// TooFastError rejects an earn that arrived before the minimum dwell time.
// The link is consumed.
type TooFastError struct {
	MinSeconds int
}

func (e *TooFastError) Error() string {
	return fmt.Sprintf("link completed in under %d seconds", e.MinSeconds)
}

// ShorteningError wraps a provider failure while building the redirect.
type ShorteningError struct {
	Provider model.Provider
	Err      error
}

func (e *ShorteningError) Error() string {
	return fmt.Sprintf("shorten link with %s: %v", e.Provider, e.Err)
}

func (e *ShorteningError) Unwrap() error {
	return e.Err
}

// Kind groups errors by how callers should present them.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindAuthorization
	KindPolicy
	KindUpstream
	KindPersistence
	KindTooFast
)

// KindOf classifies err.
func KindOf(err error) Kind {
	var (
		cooldown   *CooldownError
		dailyLimit *DailyLimitError
		tooFast    *TooFastError
		shortening *ShorteningError
	)

	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrNotAuthenticated), errors.Is(err, ErrNotOwner):
		return KindAuthorization
	case errors.Is(err, ErrInvalidCode), errors.Is(err, ErrUnknownProvider), errors.Is(err, ErrAlreadyCompleted):
		return KindValidation
	case errors.As(err, &tooFast):
		return KindTooFast
	case errors.As(err, &cooldown), errors.As(err, &dailyLimit),
		errors.Is(err, ErrFeatureDisabled), errors.Is(err, ErrProviderDisabled),
		errors.Is(err, provider.ErrRateLimited):
		return KindPolicy
	case errors.As(err, &shortening):
		return KindUpstream
	case errors.Is(err, ErrPersistence), errors.Is(err, ErrCreationFailed):
		return KindPersistence
	default:
		return KindInternal
	}
}

// Reason is a stable snake_case label for err, used in metrics and error codes.
func Reason(err error) string {
	var (
		cooldown   *CooldownError
		dailyLimit *DailyLimitError
		tooFast    *TooFastError
	)

	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return "not_authenticated"
	case errors.Is(err, ErrFeatureDisabled):
		return "feature_disabled"
	case errors.Is(err, ErrUnknownProvider):
		return "unknown_provider"
	case errors.Is(err, ErrProviderDisabled):
		return "provider_disabled"
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrNotOwner):
		return "not_owner"
	case errors.Is(err, ErrAlreadyCompleted):
		return "already_completed"
	case errors.As(err, &cooldown):
		return "cooldown"
	case errors.As(err, &dailyLimit):
		return "daily_limit"
	case errors.As(err, &tooFast):
		return "too_fast"
	case errors.Is(err, provider.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrCreationFailed):
		return "creation_failed"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	}

	var shortening *ShorteningError
	if errors.As(err, &shortening) {
		return "shortening_failed"
	}
	return "internal"
}
