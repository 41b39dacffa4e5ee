// Package secrets redacts credentials from text before it leaves the
// process, using the gitleaks default rule set.
//
// Prompts sent to the LLM and context written to the memory store both pass
// through a Scrubber:
//
//	scrubber, err := secrets.NewScrubber(cfg.Secrets.Allowlist)
//	clean := scrubber.Scrub("push with ghp_...")
//	// "push with [REDACTED:github-pat:ghp_]"
package secrets

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksRegexp "github.com/zricethezav/gitleaks/v8/regexp"
)

// ErrInvalidRegex indicates an allowlist pattern failed to compile.
var ErrInvalidRegex = errors.New("invalid regex pattern")

// Finding is one detected secret.
type Finding struct {
	RuleID string
	Match  string
}

// Scrubber detects and redacts secrets. A nil *Scrubber returns content
// unchanged. It is safe for concurrent use.
type Scrubber struct {
	mu       sync.Mutex
	detector *detect.Detector
}

// NewScrubber builds a scrubber over the gitleaks default config. Content
// matching any allowlist regex is never redacted.
func NewScrubber(allowlist []string) (*Scrubber, error) {
	compiled := make([]*regexp.Regexp, 0, len(allowlist))
	for _, pattern := range allowlist {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRegex, pattern, err)
		}
		compiled = append(compiled, re)
	}

	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("loading gitleaks config: %w", err)
	}
	if len(compiled) > 0 {
		applyAllowlist(&detector.Config, allowlist, compiled)
	}
	return &Scrubber{detector: detector}, nil
}

func applyAllowlist(cfg *gitleaksConfig.Config, patterns []string, compiled []*regexp.Regexp) {
	allow := &gitleaksConfig.Allowlist{Description: "sovereign allowlist"}
	for _, re := range compiled {
		allow.Regexes = append(allow.Regexes, (*gitleaksRegexp.Regexp)(re))
	}
	allow.StopWords = append(allow.StopWords, patterns...)
	cfg.Allowlists = append(cfg.Allowlists, allow)
}

// Detect returns the secrets found in content.
func (s *Scrubber) Detect(content string) []Finding {
	if s == nil || content == "" {
		return nil
	}

	s.mu.Lock()
	found := s.detector.DetectString(content)
	s.mu.Unlock()

	out := make([]Finding, 0, len(found))
	for _, f := range found {
		match := f.Secret
		if match == "" {
			match = f.Match
		}
		if match == "" {
			continue
		}
		out = append(out, Finding{RuleID: f.RuleID, Match: match})
	}
	return out
}

// Scrub replaces every detected secret with a [REDACTED:rule:prefix] marker.
func (s *Scrubber) Scrub(content string) string {
	findings := s.Detect(content)
	if len(findings) == 0 {
		return content
	}

	// Longest first so a secret contained in another is not split.
	sort.Slice(findings, func(i, j int) bool {
		return len(findings[i].Match) > len(findings[j].Match)
	})
	for _, f := range findings {
		content = strings.ReplaceAll(content, f.Match, marker(f))
	}
	return content
}

// ScrubPayload returns a copy of payload with every string value scrubbed.
func (s *Scrubber) ScrubPayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if str, ok := v.(string); ok {
			v = s.Scrub(str)
		}
		out[k] = v
	}
	return out
}

func marker(f Finding) string {
	return fmt.Sprintf("[REDACTED:%s:%s]", f.RuleID, preview(f.Match, 4))
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
