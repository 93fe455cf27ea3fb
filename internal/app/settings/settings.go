// Package settings turns the flat string settings of the billing links plugin
// into typed per-provider snapshots.
package settings

import (
	"strconv"
	"strings"
	"time"

	"github.com/sifan077/LinkRewards/internal/app/model"
)

const (
	// KeyEnabled is the global feature flag.
	KeyEnabled = "l4r_enabled"

	FieldEnabled           = "enabled"
	FieldAPIKey            = "api_key"
	FieldUserID            = "user_id"
	FieldCoinsPerLink      = "coins_per_link"
	FieldDailyLimit        = "daily_limit"
	FieldMinTimeToComplete = "min_time_to_complete"
	FieldTimeToExpire      = "time_to_expire"
	FieldCooldownTime      = "cooldown_time"
)

const (
	DefaultCoinsPerLink      = 100
	DefaultDailyLimit        = 5
	DefaultMinTimeToComplete = 60
	DefaultTimeToExpire      = 3600
	DefaultCooldownTime      = 3600

	// MaxDailyLimit bounds daily_limit so the recent-link scan always sees every counted link.
	MaxDailyLimit = 150
)

// ProviderSettings is the parsed configuration of one provider.
type ProviderSettings struct {
	Provider model.Provider
	Enabled  bool
	// APIKey holds the publisher id for linkvertise.
	APIKey            string
	CoinsPerLink      int
	DailyLimit        int
	MinTimeToComplete time.Duration
	TimeToExpire      time.Duration
	Cooldown          time.Duration
}

// Snapshot is a consistent view of all plugin settings.
type Snapshot struct {
	Enabled   bool
	Providers map[model.Provider]ProviderSettings
}

// Provider returns the settings of p, or defaults when p was never configured.
func (s Snapshot) Provider(p model.Provider) ProviderSettings {
	if ps, ok := s.Providers[p]; ok {
		return ps
	}
	return defaultsFor(p)
}

// Key builds the storage key of a provider field.
func Key(p model.Provider, field string) string {
	return "l4r_" + string(p) + "_" + field
}

// CredentialField is the field holding the provider credential.
func CredentialField(p model.Provider) string {
	if p == model.ProviderLinkvertise {
		return FieldUserID
	}
	return FieldAPIKey
}

var numericFields = []string{
	FieldCoinsPerLink,
	FieldDailyLimit,
	FieldMinTimeToComplete,
	FieldTimeToExpire,
	FieldCooldownTime,
}

// AllowedKeys lists every key an administrator may write.
func AllowedKeys() []string {
	keys := []string{KeyEnabled}
	for _, p := range model.Providers {
		keys = append(keys, Key(p, FieldEnabled), Key(p, CredentialField(p)))
		for _, f := range numericFields {
			keys = append(keys, Key(p, f))
		}
	}
	return keys
}

// Parse builds a Snapshot from raw key/value pairs.
func Parse(raw map[string]string) Snapshot {
	snap := Snapshot{
		Enabled:   parseBool(raw[KeyEnabled]),
		Providers: make(map[model.Provider]ProviderSettings, len(model.Providers)),
	}

	for _, p := range model.Providers {
		ps := defaultsFor(p)
		ps.Enabled = parseBool(raw[Key(p, FieldEnabled)])
		ps.APIKey = strings.TrimSpace(raw[Key(p, CredentialField(p))])
		ps.CoinsPerLink = positiveInt(raw[Key(p, FieldCoinsPerLink)], DefaultCoinsPerLink)
		ps.DailyLimit = min(positiveInt(raw[Key(p, FieldDailyLimit)], DefaultDailyLimit), MaxDailyLimit)
		ps.MinTimeToComplete = seconds(raw[Key(p, FieldMinTimeToComplete)], DefaultMinTimeToComplete)
		ps.TimeToExpire = seconds(raw[Key(p, FieldTimeToExpire)], DefaultTimeToExpire)
		ps.Cooldown = seconds(raw[Key(p, FieldCooldownTime)], DefaultCooldownTime)
		snap.Providers[p] = ps
	}

	return snap
}

func defaultsFor(p model.Provider) ProviderSettings {
	return ProviderSettings{
		Provider:          p,
		CoinsPerLink:      DefaultCoinsPerLink,
		DailyLimit:        DefaultDailyLimit,
		MinTimeToComplete: DefaultMinTimeToComplete * time.Second,
		TimeToExpire:      DefaultTimeToExpire * time.Second,
		Cooldown:          DefaultCooldownTime * time.Second,
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "on", "yes":
		return true
	default:
		return false
	}
}

// positiveInt falls back to def for blank, non-numeric or non-positive input.
func positiveInt(v string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func seconds(v string, def int) time.Duration {
	return time.Duration(positiveInt(v, def)) * time.Second
}
