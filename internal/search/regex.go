package search

import (
	"regexp"
	"sync"

	"github.com/cristianoliveira/ancs-intray/internal/inbox"
)

// RegexProvider matches if any configured field matches the query as a regular expression.
type RegexProvider struct {
	opts    Options
	cache   map[string]*regexp.Regexp
	cacheMu sync.RWMutex
}

// NewRegexProvider creates a new regex search provider.
func NewRegexProvider(opts ...Option) *RegexProvider {
	return &RegexProvider{
		opts:  applyOptions(opts),
		cache: make(map[string]*regexp.Regexp),
	}
}

// Compile checks the pattern and caches it. Match treats an invalid pattern as matching
// nothing, so callers validate user input with Compile first.
func (p *RegexProvider) Compile(pattern string) error {
	_, err := p.getRegex(pattern)
	return err
}

// Match returns true if any configured field matches the pattern.
func (p *RegexProvider) Match(e inbox.Entry, query string) bool {
	if query == "" {
		return true
	}
	re, err := p.getRegex(query)
	if err != nil {
		return false
	}
	for _, field := range p.opts.Fields {
		for _, value := range fieldValues(e, field) {
			if re.MatchString(value) {
				return true
			}
		}
	}
	return false
}

func (p *RegexProvider) getRegex(pattern string) (*regexp.Regexp, error) {
	p.cacheMu.RLock()
	re, ok := p.cache[pattern]
	p.cacheMu.RUnlock()
	if ok {
		return re, nil
	}

	expr := pattern
	if p.opts.CaseInsensitive {
		expr = "(?i)" + pattern
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}

	p.cacheMu.Lock()
	p.cache[pattern] = re
	p.cacheMu.Unlock()
	return re, nil
}

// Name returns the provider name.
func (p *RegexProvider) Name() string {
	return "regex"
}
