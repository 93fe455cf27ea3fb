package model

import (
	"regexp"
	"strings"
	"time"
)

// Provider names a third-party link locker a reward link is routed through.
type Provider string

const (
	ProviderLinkvertise Provider = "linkvertise"
	ProviderShareUS     Provider = "shareus"
	ProviderLinkPays    Provider = "linkpays"
	ProviderGyaniLinks  Provider = "gyanilinks"
)

// Providers lists every supported provider in display order.
var Providers = []Provider{
	ProviderLinkvertise,
	ProviderShareUS,
	ProviderLinkPays,
	ProviderGyaniLinks,
}

// ParseProvider resolves a user supplied provider name.
func ParseProvider(name string) (Provider, bool) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Providers {
		if p == known {
			return p, true
		}
	}
	return "", false
}

func (p Provider) String() string {
	return string(p)
}

var codePattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ValidCode reports whether code is a lowercase canonical UUID.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// Link is one reward attempt. It starts pending and ends either completed or deleted.
type Link struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Code      string    `json:"code" gorm:"size:36;uniqueIndex;not null"`
	UserID    int64     `json:"user_id" gorm:"index:idx_links_user_provider;not null"`
	Provider  Provider  `json:"provider" gorm:"size:32;index:idx_links_user_provider;not null"`
	Completed bool      `json:"completed" gorm:"not null;default:false"`
	Deleted   bool      `json:"deleted" gorm:"not null;default:false"`
	Locked    bool      `json:"locked" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Link) TableName() string {
	return "billinglinks_links"
}
