// Package lang resolves locale codes used by concept definitions into shared
// Language handles.
//
// Codes are either natural languages ("en", "es-ES") or pseudo-locales that
// name a programming or notation language ("ruby", "sql", "math"). Natural
// codes are matched with golang.org/x/text/language so regional variants
// resolve to the closest configured locale; pseudo-locales match exactly.
package lang

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// ErrUnknownLanguage is returned by a strict Resolver for codes that do not
// match any configured locale.
var ErrUnknownLanguage = errors.New("lang: unknown language")

// Language is a resolved locale handle. Handles are owned by the Resolver
// that produced them; concepts hold a pointer and never copy or mutate it.
type Language struct {
	Code string       // configured code, e.g. "en" or "ruby"
	Tag  language.Tag // language.Und for pseudo-locales
}

// Natural reports whether the handle names a natural language.
func (l *Language) Natural() bool {
	return l.Tag != language.Und
}

func (l *Language) String() string {
	return l.Code
}

// Resolver maps locale codes to Language handles. It is safe for concurrent use.
type Resolver struct {
	// Strict makes Resolve fail with ErrUnknownLanguage instead of falling
	// back to the default language.
	Strict bool

	def     *Language
	byCode  map[string]*Language
	natural []*Language
	matcher language.Matcher

	mu       sync.Mutex
	fallback map[string]*Language // memoised lookups of unconfigured codes
}

// NewResolver builds a resolver for the given locales. defaultCode must be one
// of locales.
func NewResolver(defaultCode string, locales []string) (*Resolver, error) {
	r := &Resolver{
		byCode:   make(map[string]*Language, len(locales)),
		fallback: make(map[string]*Language),
	}

	var tags []language.Tag
	for _, code := range locales {
		code = normalize(code)
		if code == "" {
			continue
		}
		if _, dup := r.byCode[code]; dup {
			continue
		}
		l := &Language{Code: code, Tag: language.Und}
		if tag, err := language.Parse(code); err == nil && !isPseudo(code) {
			l.Tag = tag
			tags = append(tags, tag)
			r.natural = append(r.natural, l)
		}
		r.byCode[code] = l
	}

	def, ok := r.byCode[normalize(defaultCode)]
	if !ok {
		return nil, fmt.Errorf("%w: default %q is not among locales %v", ErrUnknownLanguage, defaultCode, locales)
	}
	r.def = def

	if len(tags) > 0 {
		r.matcher = language.NewMatcher(tags)
	}
	return r, nil
}

// Default returns the default language handle.
func (r *Resolver) Default() *Language {
	return r.def
}

// Resolve returns the handle for code. An empty code resolves to the default.
func (r *Resolver) Resolve(code string) (*Language, error) {
	code = normalize(code)
	if code == "" {
		return r.def, nil
	}
	if l, ok := r.byCode[code]; ok {
		return l, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.fallback[code]; ok {
		return l, nil
	}

	if r.matcher != nil {
		if tag, err := language.Parse(code); err == nil {
			_, idx, conf := r.matcher.Match(tag)
			if conf >= language.High {
				l := r.natural[idx]
				r.fallback[code] = l
				return l, nil
			}
		}
	}

	if r.Strict {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLanguage, code)
	}
	slog.Warn("lang: unknown code, using default", "code", code, "default", r.def.Code)
	r.fallback[code] = r.def
	return r.def, nil
}

func normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// pseudoLocales never go through BCP 47 matching, even when the code
// happens to be a well-formed language subtag ("sql" is an ISO 639-3 code).
var pseudoLocales = map[string]bool{
	"javascript": true,
	"math":       true,
	"python":     true,
	"ruby":       true,
	"sql":        true,
}

func isPseudo(code string) bool {
	return pseudoLocales[code]
}
