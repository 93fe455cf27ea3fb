package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNoSettings is returned when an update carries no allow-listed keys.
	ErrNoSettings = errors.New("no settings provided")
)

// InvalidSettingError reports a value that failed validation.
type InvalidSettingError struct {
	Key   string
	Value string
}

func (e *InvalidSettingError) Error() string {
	return fmt.Sprintf("invalid value %q for setting %s", e.Value, e.Key)
}

// Service exposes typed reads and validated writes over a Store.
type Service interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	Raw(ctx context.Context) (map[string]string, error)
	Update(ctx context.Context, values map[string]any) ([]string, error)
}

type service struct {
	store    Store
	validate *validator.Validate
	rules    map[string]string
}

// NewService wraps store with parsing and validation.
func NewService(store Store) Service {
	rules := make(map[string]string)
	for _, key := range AllowedKeys() {
		rules[key] = ruleFor(key)
	}

	return &service{
		store:    store,
		validate: validator.New(),
		rules:    rules,
	}
}

func (s *service) Snapshot(ctx context.Context) (Snapshot, error) {
	raw, err := s.store.GetAll(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load settings: %w", err)
	}
	return Parse(raw), nil
}

// Raw returns every allow-listed key with its stored value, blank when unset.
func (s *service) Raw(ctx context.Context) (map[string]string, error) {
	stored, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	out := make(map[string]string, len(s.rules))
	for key := range s.rules {
		out[key] = stored[key]
	}
	return out, nil
}

// Update writes the allow-listed subset of values and returns the keys written.
// Unknown keys are ignored.
func (s *service) Update(ctx context.Context, values map[string]any) ([]string, error) {
	accepted := make(map[string]string)
	for key, raw := range values {
		rule, ok := s.rules[key]
		if !ok {
			continue
		}

		value := normalize(raw)
		if isFlag(key) {
			value = normalizeBool(value)
		}
		if err := s.validate.Var(value, rule); err != nil {
			return nil, &InvalidSettingError{Key: key, Value: value}
		}
		accepted[key] = value
	}

	if len(accepted) == 0 {
		return nil, ErrNoSettings
	}

	if err := s.store.SetMany(ctx, accepted); err != nil {
		return nil, fmt.Errorf("save settings: %w", err)
	}

	keys := make([]string, 0, len(accepted))
	for key := range accepted {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func isFlag(key string) bool {
	return key == KeyEnabled || strings.HasSuffix(key, "_"+FieldEnabled)
}

func ruleFor(key string) string {
	switch {
	case isFlag(key):
		return "oneof=true false"
	case strings.HasSuffix(key, "_"+FieldAPIKey), strings.HasSuffix(key, "_"+FieldUserID):
		return "omitempty,max=255,printascii"
	default:
		return "omitempty,numeric,max=10"
	}
}

func normalize(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func normalizeBool(v string) string {
	switch strings.ToLower(v) {
	case "true", "1", "on", "yes":
		return "true"
	case "false", "0", "off", "no", "":
		return "false"
	default:
		return v
	}
}
