package i18n

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var locales embed.FS

// Translator holds the message bundle for every embedded locale.
type Translator struct {
	bundle      *goi18n.Bundle
	defaultLang string
	supported   []language.Tag
	matcher     language.Matcher
}

// New loads the embedded locales. defaultLang must be one of them.
func New(defaultLang string) (*Translator, error) {
	if defaultLang == "" {
		defaultLang = "en"
	}
	defaultTag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("parse default language: %w", err)
	}

	bundle := goi18n.NewBundle(defaultTag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales: %w", err)
	}

	// default language first so the matcher falls back to it
	supported := []language.Tag{defaultTag}
	found := false
	for _, entry := range entries {
		name := entry.Name()
		data, err := locales.ReadFile(path.Join("locales", name))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", name, err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, name); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", name, err)
		}

		tag := language.Make(strings.TrimSuffix(name, path.Ext(name)))
		if tag == defaultTag {
			found = true
			continue
		}
		supported = append(supported, tag)
	}
	if !found {
		return nil, fmt.Errorf("no locale for default language %q", defaultLang)
	}

	return &Translator{
		bundle:      bundle,
		defaultLang: defaultTag.String(),
		supported:   supported,
		matcher:     language.NewMatcher(supported),
	}, nil
}

// Languages lists the supported language tags, default first.
func (t *Translator) Languages() []string {
	out := make([]string, 0, len(t.supported))
	for _, tag := range t.supported {
		out = append(out, tag.String())
	}
	return out
}

// Match picks the best supported language for an Accept-Language header.
func (t *Translator) Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return t.defaultLang
	}
	_, index, confidence := t.matcher.Match(tags...)
	if confidence == language.No {
		return t.defaultLang
	}
	return t.supported[index].String()
}

// Localizer returns a localizer for lang with the default language as fallback.
func (t *Translator) Localizer(lang string) *goi18n.Localizer {
	return goi18n.NewLocalizer(t.bundle, lang, t.defaultLang)
}

// T renders message id. A missing message renders as its id.
func T(localizer *goi18n.Localizer, id string, data map[string]any) string {
	return localize(localizer, &goi18n.LocalizeConfig{MessageID: id, TemplateData: data})
}

// TN renders message id selecting the plural form for count.
func TN(localizer *goi18n.Localizer, id string, count int, data map[string]any) string {
	return localize(localizer, &goi18n.LocalizeConfig{MessageID: id, TemplateData: data, PluralCount: count})
}

func localize(localizer *goi18n.Localizer, cfg *goi18n.LocalizeConfig) string {
	if localizer == nil {
		return cfg.MessageID
	}
	msg, err := localizer.Localize(cfg)
	if err != nil || msg == "" {
		return cfg.MessageID
	}
	return msg
}
