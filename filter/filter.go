package filter

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// Options lists regex patterns applied to raw messages before they are
// decoded. Include and exclude modes are mutually exclusive.
type Options struct {
	IncludeHeader []string
	IncludeBody   []string
	ExcludeHeader []string
	ExcludeBody   []string
}

type patternSet struct {
	header []*regexp.Regexp
	body   []*regexp.Regexp
}

func (p patternSet) empty() bool {
	return len(p.header) == 0 && len(p.body) == 0
}

func (p patternSet) matches(header, body []byte) bool {
	return matchAny(p.header, header) || matchAny(p.body, body)
}

// Filter applies compiled include or exclude patterns to raw messages.
type Filter struct {
	include patternSet
	exclude patternSet
}

func New(opts Options) (*Filter, error) {
	include, err := compileSet(opts.IncludeHeader, opts.IncludeBody)
	if err != nil {
		return nil, fmt.Errorf("compile include patterns: %w", err)
	}
	exclude, err := compileSet(opts.ExcludeHeader, opts.ExcludeBody)
	if err != nil {
		return nil, fmt.Errorf("compile exclude patterns: %w", err)
	}

	if !include.empty() && !exclude.empty() {
		return nil, fmt.Errorf("include and exclude filters are mutually exclusive")
	}

	return &Filter{include: include, exclude: exclude}, nil
}

// Allows reports whether the message passes the filter criteria.
func (f *Filter) Allows(header, body []byte) bool {
	if !f.include.empty() {
		return f.include.matches(header, body)
	}
	if !f.exclude.empty() {
		return !f.exclude.matches(header, body)
	}
	return true
}

// SplitRawMessage splits a raw mail message into its header block and body.
func SplitRawMessage(raw []byte) (header, body []byte) {
	if len(raw) == 0 {
		return nil, nil
	}

	if idx := bytes.Index(raw, []byte("\r\n\r\n")); idx >= 0 {
		return raw[:idx], raw[idx+4:]
	}
	if idx := bytes.Index(raw, []byte("\n\n")); idx >= 0 {
		return raw[:idx], raw[idx+2:]
	}

	return raw, nil
}

func compileSet(header, body []string) (patternSet, error) {
	compiledHeader, err := compilePatterns(header)
	if err != nil {
		return patternSet{}, err
	}
	compiledBody, err := compilePatterns(body)
	if err != nil {
		return patternSet{}, err
	}
	return patternSet{header: compiledHeader, body: compiledBody}, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", pattern, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func matchAny(patterns []*regexp.Regexp, text []byte) bool {
	for _, re := range patterns {
		if re.Match(text) {
			return true
		}
	}
	return false
}
