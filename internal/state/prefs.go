package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"budgeto/internal/core"
	"budgeto/internal/log"
	"budgeto/internal/storage"
)

type (
	Theme            string
	LocalePreference string
)

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"

	LocaleDA   LocalePreference = "da"
	LocaleEN   LocalePreference = "en"
	LocaleAuto LocalePreference = "auto"
)

var ErrInvalidPreference = errors.New("invalid preference value")

func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeLight, ThemeDark, ThemeAuto:
		return t, nil
	}
	return "", fmt.Errorf("%w: theme %q", ErrInvalidPreference, s)
}

func ParseLocalePreference(s string) (LocalePreference, error) {
	switch l := LocalePreference(strings.ToLower(strings.TrimSpace(s))); l {
	case LocaleDA, LocaleEN, LocaleAuto:
		return l, nil
	}
	return "", fmt.Errorf("%w: locale %q", ErrInvalidPreference, s)
}

// ResolveLocale turns a preference into a display locale. auto follows the
// environment language tag: anything starting with "da" is Danish, the rest
// English.
func ResolveLocale(pref LocalePreference, lang string) core.Locale {
	switch pref {
	case LocaleDA:
		return core.LocaleDA
	case LocaleEN:
		return core.LocaleEN
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(lang)), "da") {
		return core.LocaleDA
	}
	return core.LocaleEN
}

// Theme returns the stored theme. Missing or unknown values read as auto.
func (s *Store) Theme(ctx context.Context) (Theme, error) {
	raw, ok, err := s.kv.Get(ctx, s.keys.Theme)
	if err != nil || !ok {
		return ThemeAuto, err
	}
	t, err := ParseTheme(raw)
	if err != nil {
		return ThemeAuto, nil
	}
	return t, nil
}

func (s *Store) SetTheme(ctx context.Context, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	return s.setPreference(ctx, s.keys.Theme, string(t))
}

// LocalePreference returns the stored locale choice. Missing or unknown
// values read as auto.
func (s *Store) LocalePreference(ctx context.Context) (LocalePreference, error) {
	raw, ok, err := s.kv.Get(ctx, s.keys.Locale)
	if err != nil || !ok {
		return LocaleAuto, err
	}
	l, err := ParseLocalePreference(raw)
	if err != nil {
		return LocaleAuto, nil
	}
	return l, nil
}

func (s *Store) SetLocalePreference(ctx context.Context, l LocalePreference) error {
	if _, err := ParseLocalePreference(string(l)); err != nil {
		return err
	}
	return s.setPreference(ctx, s.keys.Locale, string(l))
}

func (s *Store) setPreference(ctx context.Context, key storage.Key, value string) error {
	if err := s.kv.Set(ctx, key, value); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	s.logger.DebugContext(ctx, "preference saved", log.FieldKey, key.String(), "value", value)
	s.notify(ctx, ChangePreferences, nil)
	return nil
}

// ShouldShowOnboarding is true until the first state has been seeded or
// onboarding is completed, and again after Reset.
func (s *Store) ShouldShowOnboarding(ctx context.Context) (bool, error) {
	_, ok, err := s.kv.Get(ctx, s.keys.SeedApplied)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

func (s *Store) CompleteOnboarding(ctx context.Context) error {
	if err := s.kv.Set(ctx, s.keys.SeedApplied, "true"); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	return nil
}

// IsDevMode is true when configured or when the devMode key is "true".
func (s *Store) IsDevMode(ctx context.Context) (bool, error) {
	if s.devMode {
		return true, nil
	}
	raw, ok, err := s.kv.Get(ctx, s.keys.DevMode)
	if err != nil || !ok {
		return false, err
	}
	dev, err := strconv.ParseBool(raw)
	if err != nil {
		return false, nil
	}
	return dev, nil
}

// SetDevMode stores the dev-mode flag. It only matters when the state is
// created, and Reset clears it like every other key.
func (s *Store) SetDevMode(ctx context.Context, on bool) error {
	return s.setPreference(ctx, s.keys.DevMode, strconv.FormatBool(on))
}
