package prefs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	cat, err := LoadCatalogue()
	require.NoError(t, err)

	s := NewStore(cat, Options{CookieName: "prefs", DefaultTheme: "dracula"})
	s.pick = func(int) int { return 0 }

	return s
}

func TestLoadCatalogue(t *testing.T) {
	cat, err := LoadCatalogue()
	require.NoError(t, err)

	assert.Equal(t, "dracula", cat.Default)
	assert.Equal(t, "$$random", cat.Random)
	assert.Len(t, cat.Themes, 29)
	assert.True(t, cat.Valid("cupcake"))
	assert.True(t, cat.Valid("$$random"))
	assert.False(t, cat.Valid("neon"))
	assert.False(t, cat.Valid(""))
}

func TestParseCatalogueErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		message string
	}{
		{name: "syntax", data: "Themes = [", message: "failed to parse"},
		{name: "empty", data: `Default = "x"` + "\n" + `Random = "r"`, message: "no themes"},
		{name: "no random", data: `Default = "a"` + "\n" + `Themes = ["a"]`, message: "Random"},
		{name: "bad default", data: `Default = "z"` + "\n" + `Random = "r"` + "\n" + `Themes = ["a"]`, message: "default theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalogue([]byte(tt.data))
			assert.ErrorContains(t, err, tt.message)
		})
	}
}

func TestGet(t *testing.T) {
	s := newTestStore(t)

	tests := []struct {
		name   string
		cookie string
		want   Prefs
	}{
		{name: "no cookie", want: Prefs{Theme: "dracula", RealTheme: "dracula"}},
		{name: "stored theme", cookie: "winter", want: Prefs{Theme: "winter", RealTheme: "winter"}},
		{name: "unknown theme", cookie: "neon", want: Prefs{Theme: "dracula", RealTheme: "dracula"}},
		{name: "random", cookie: "$$random", want: Prefs{Theme: "light", RealTheme: "$$random"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: "prefs", Value: tt.cookie})
			}

			assert.Equal(t, tt.want, s.Get(r))
		})
	}
}

func TestSaveAndDestroy(t *testing.T) {
	s := newTestStore(t)

	rec := httptest.NewRecorder()
	p, err := s.Save(rec, "retro")
	require.NoError(t, err)
	assert.Equal(t, Prefs{Theme: "retro", RealTheme: "retro"}, p)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "prefs", cookies[0].Name)
	assert.Equal(t, "retro", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookies[0])
	assert.Equal(t, "retro", s.Get(r).Theme)

	rec = httptest.NewRecorder()
	p = s.Destroy(rec)
	assert.Equal(t, "dracula", p.Theme)

	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestSaveUnknownTheme(t *testing.T) {
	s := newTestStore(t)

	rec := httptest.NewRecorder()
	_, err := s.Save(rec, "neon")
	require.ErrorIs(t, err, ErrUnknownTheme)
	assert.Empty(t, rec.Result().Cookies())
}

func TestNewStoreFallsBackToCatalogueDefault(t *testing.T) {
	cat, err := LoadCatalogue()
	require.NoError(t, err)

	s := NewStore(cat, Options{CookieName: "prefs", DefaultTheme: "neon"})
	p := s.Get(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "dracula", p.Theme)
}
