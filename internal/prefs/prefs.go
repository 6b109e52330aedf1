// Package prefs keeps the visitor's theme preference in a cookie.
package prefs

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"slices"

	"github.com/BurntSushi/toml"
)

//go:embed themes.toml
var themesTOML []byte

// ErrUnknownTheme is returned when saving a theme outside the catalogue.
var ErrUnknownTheme = errors.New("unknown theme")

// Catalogue lists the selectable themes.
type Catalogue struct {
	Default string
	Random  string
	Themes  []string
}

// LoadCatalogue parses the embedded theme catalogue.
func LoadCatalogue() (*Catalogue, error) {
	return ParseCatalogue(themesTOML)
}

// ParseCatalogue parses a TOML theme catalogue.
func ParseCatalogue(data []byte) (*Catalogue, error) {
	var cat Catalogue

	err := toml.Unmarshal(data, &cat)
	if err != nil {
		return nil, fmt.Errorf("failed to parse theme catalogue: %w", err)
	}

	if len(cat.Themes) == 0 {
		return nil, errors.New("theme catalogue has no themes")
	}

	if cat.Random == "" {
		return nil, errors.New("theme catalogue missing Random marker")
	}

	if !slices.Contains(cat.Themes, cat.Default) {
		return nil, fmt.Errorf("default theme %q is not in the catalogue", cat.Default)
	}

	return &cat, nil
}

// Valid reports whether name can be stored: a catalogue theme or the random
// marker.
func (c *Catalogue) Valid(name string) bool {
	return name == c.Random || slices.Contains(c.Themes, name)
}

// Prefs is the preference applied to a request. RealTheme is what was
// stored; Theme is what to render, which differs when RealTheme is random.
type Prefs struct {
	Theme     string `json:"theme"`
	RealTheme string `json:"realTheme"`
}

// Store reads and writes preferences.
type Store struct {
	catalogue    *Catalogue
	cookieName   string
	secure       bool
	defaultTheme string
	pick         func(n int) int
}

// Options configures a Store.
type Options struct {
	CookieName   string
	Secure       bool
	DefaultTheme string
}

// NewStore returns a store over cat. An invalid default theme falls back to
// the catalogue default.
func NewStore(cat *Catalogue, opts Options) *Store {
	def := opts.DefaultTheme
	if !slices.Contains(cat.Themes, def) {
		def = cat.Default
	}

	return &Store{
		catalogue:    cat,
		cookieName:   opts.CookieName,
		secure:       opts.Secure,
		defaultTheme: def,
		pick:         rand.IntN,
	}
}

// Catalogue returns the catalogue the store validates against.
func (s *Store) Catalogue() *Catalogue {
	return s.catalogue
}

func (s *Store) resolve(stored string) Prefs {
	if stored == s.catalogue.Random {
		return Prefs{
			Theme:     s.catalogue.Themes[s.pick(len(s.catalogue.Themes))],
			RealTheme: stored,
		}
	}

	return Prefs{Theme: stored, RealTheme: stored}
}

// Get returns the preferences carried by r. A missing or unknown cookie
// yields the default theme.
func (s *Store) Get(r *http.Request) Prefs {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || !s.catalogue.Valid(cookie.Value) {
		return s.resolve(s.defaultTheme)
	}

	return s.resolve(cookie.Value)
}

// Save stores theme and returns the resulting preferences.
func (s *Store) Save(w http.ResponseWriter, theme string) (Prefs, error) {
	if !s.catalogue.Valid(theme) {
		return Prefs{}, fmt.Errorf("%w: %q", ErrUnknownTheme, theme)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    theme,
		Path:     "/",
		MaxAge:   60 * 60 * 24 * 365,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return s.resolve(theme), nil
}

// Destroy clears the stored preference.
func (s *Store) Destroy(w http.ResponseWriter) Prefs {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return s.resolve(s.defaultTheme)
}
