// Package redact scrubs credentials out of free text before it leaves the
// process, using the Gitleaks rule set.
package redact

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	gitleaksConfig "github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
	gitleaksRegexp "github.com/zricethezav/gitleaks/v8/regexp"
)

var (
	// ErrInvalidRegex indicates an allowlist pattern failed to compile.
	ErrInvalidRegex = errors.New("invalid regex pattern")

	// ErrInvalidTOML indicates an allowlist file could not be parsed.
	ErrInvalidTOML = errors.New("invalid TOML format")
)

// Finding is a detected secret.
type Finding struct {
	RuleID string
	Line   int
	Match  string
}

// Scrubber replaces detected secrets with [REDACTED:rule-id] markers.
// A nil *Scrubber passes text through unchanged.
type Scrubber struct {
	mu       sync.Mutex
	detector *detect.Detector
}

// New builds a scrubber from the default Gitleaks config plus the regexes in
// the allowlist file at allowlistPath. An empty path or a missing file means
// no allowlist.
func New(allowlistPath string) (*Scrubber, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("creating detector: %w", err)
	}

	if allowlistPath != "" {
		regexes, err := LoadAllowlist(allowlistPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if len(regexes) > 0 {
			applyAllowlist(&detector.Config, regexes)
		}
	}

	return &Scrubber{detector: detector}, nil
}

// Detect returns the secrets found in text.
func (s *Scrubber) Detect(text string) []Finding {
	if s == nil || text == "" {
		return nil
	}

	s.mu.Lock()
	raw := s.detector.DetectString(text)
	s.mu.Unlock()

	findings := make([]Finding, 0, len(raw))
	for _, f := range raw {
		if f.Secret == "" {
			continue
		}
		findings = append(findings, Finding{RuleID: f.RuleID, Line: f.StartLine, Match: f.Secret})
	}
	return findings
}

// Scrub returns text with every detected secret replaced, and the findings.
func (s *Scrubber) Scrub(text string) (string, []Finding) {
	findings := s.Detect(text)
	if len(findings) == 0 {
		return text, nil
	}

	// Longest first so a secret that contains another is replaced whole.
	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Match) > len(sorted[j].Match)
	})

	for _, f := range sorted {
		text = strings.ReplaceAll(text, f.Match, "[REDACTED:"+f.RuleID+"]")
	}
	return text, findings
}

// LoadAllowlist reads content regexes from a TOML file of the form
//
//	[allowlist]
//	regexes = ['''example-token-\d+''']
//
// A missing file returns an error satisfying os.IsNotExist.
func LoadAllowlist(path string) ([]string, error) {
	var file struct {
		Allowlist struct {
			Regexes []string
		}
	}

	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTOML, path, err)
	}

	for _, pattern := range file.Allowlist.Regexes {
		if _, err := regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("%w: %q in %s: %v", ErrInvalidRegex, pattern, path, err)
		}
	}
	return file.Allowlist.Regexes, nil
}

// applyAllowlist expects regexes already validated by LoadAllowlist.
func applyAllowlist(cfg *gitleaksConfig.Config, regexes []string) {
	allow := &gitleaksConfig.Allowlist{Description: "weekpulse allowlist"}
	for _, pattern := range regexes {
		allow.Regexes = append(allow.Regexes, (*gitleaksRegexp.Regexp)(regexp.MustCompile(pattern)))
	}
	allow.StopWords = append(allow.StopWords, regexes...)
	cfg.Allowlists = append(cfg.Allowlists, allow)
}
