package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
)

// FileName is the per-project ignore file, one gitignore-style rule per line.
const FileName = ".atlasignore"

// DefaultRules are always applied first and can be overridden by negation.
var DefaultRules = []string{
	".git/",
	".atlas/",
	"node_modules/",
	"vendor/",
	"dist/",
	"build/",
	"target/",
	"__pycache__/",
	".venv/",
	"venv/",
	".next/",
	".pytest_cache/",
	"coverage/",
	".idea/",
	".vscode/",
	".eggs/",
}

type rule struct {
	pattern  string
	negated  bool
	dirOnly  bool
	anchored bool
	git      *gitignore.GitIgnore
	gitKeep  *gitignore.GitIgnore // negated .gitignore lines, compiled without the "!"
}

// Matcher applies gitignore-like rules with "last rule wins" behavior.
type Matcher struct {
	rules  []rule
	reopen []string // negated patterns; directories above them stay walkable
}

// NewMatcher builds a matcher from user-provided rule lines.
// Default excludes are prepended and can be overridden by user negation rules.
func NewMatcher(userRules []string) *Matcher {
	m := &Matcher{}
	m.addLines(DefaultRules)
	m.addLines(userRules)
	return m
}

// Options controls which rule sources Load reads from the project root.
type Options struct {
	Rules     []string // extra rules, applied last
	GitIgnore bool     // honor the root .gitignore
}

// Load builds a matcher from the defaults, the root .gitignore (when enabled),
// the root .atlasignore, and opts.Rules, in that order.
func Load(root string, opts Options) (*Matcher, error) {
	m := &Matcher{}
	m.addLines(DefaultRules)

	if opts.GitIgnore {
		gitPath := filepath.Join(root, ".gitignore")
		lines, err := ReadRuleFile(gitPath)
		if err != nil {
			return nil, err
		}
		if len(lines) > 0 {
			m.addGitLines(lines)
		}
	}

	lines, err := ReadRuleFile(filepath.Join(root, FileName))
	if err != nil {
		return nil, err
	}
	m.addLines(lines)
	m.addLines(opts.Rules)
	return m, nil
}

// ReadRuleFile returns the rule lines of an ignore file. A missing file has
// no rules.
func ReadRuleFile(filePath string) ([]string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return lines, nil
}

// ValidRule reports whether a rule line parses to a usable glob.
func ValidRule(line string) bool {
	parsed, ok := parseRule(line)
	if !ok {
		return strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#")
	}
	return doublestar.ValidatePattern(parsed.pattern)
}

func (m *Matcher) addLines(lines []string) {
	for _, line := range lines {
		if parsed, ok := parseRule(line); ok {
			m.rules = append(m.rules, parsed)
			if parsed.negated {
				m.reopen = append(m.reopen, parsed.pattern)
			}
		}
	}
}

// addGitLines compiles .gitignore lines as one rule. MatchesPath only lets a
// negation cancel a match from the same file, so negated lines are compiled
// again on their own to re-include paths excluded by earlier rules.
func (m *Matcher) addGitLines(lines []string) {
	compiled := rule{git: gitignore.CompileIgnoreLines(lines...)}
	var keep []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "!") {
			continue
		}
		keep = append(keep, line[1:])
		if parsed, ok := parseRule(line); ok {
			m.reopen = append(m.reopen, parsed.pattern)
		}
	}
	if len(keep) > 0 {
		compiled.gitKeep = gitignore.CompileIgnoreLines(keep...)
	}
	m.rules = append(m.rules, compiled)
}

// ShouldIgnore returns true when relPath should be excluded.
func (m *Matcher) ShouldIgnore(relPath string, isDir bool) bool {
	if m == nil {
		return false
	}
	relPath = normalizePath(relPath)
	if relPath == "" || relPath == "." {
		return false
	}
	ignored := false
	for _, rule := range m.rules {
		if rule.git != nil {
			candidate := relPath
			if isDir {
				candidate += "/"
			}
			if rule.git.MatchesPath(candidate) {
				ignored = true
			} else if rule.gitKeep != nil && rule.gitKeep.MatchesPath(candidate) {
				ignored = false
			}
			continue
		}
		if ruleMatches(rule, relPath, isDir) {
			ignored = !rule.negated
		}
	}
	return ignored
}

// Reopens reports whether a negation rule names a path below dir. Such a
// directory is walked even when ShouldIgnore excludes it, so that the
// re-included files can be reached.
func (m *Matcher) Reopens(dir string) bool {
	if m == nil {
		return false
	}
	dirParts := strings.Split(normalizePath(dir), "/")
	for _, pattern := range m.reopen {
		if patternBelow(strings.Split(pattern, "/"), dirParts) {
			return true
		}
	}
	return false
}

func patternBelow(patternParts, dirParts []string) bool {
	for i, part := range dirParts {
		if i >= len(patternParts) {
			return false
		}
		if patternParts[i] == "**" {
			return true
		}
		if !matchPathPattern(patternParts[i], part) {
			return false
		}
	}
	return len(patternParts) > len(dirParts)
}

func parseRule(line string) (rule, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return rule{}, false
	}

	parsed := rule{}
	if strings.HasPrefix(line, "!") {
		parsed.negated = true
		line = strings.TrimPrefix(line, "!")
	}
	if strings.HasPrefix(line, "/") {
		parsed.anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	if strings.HasSuffix(line, "/") {
		parsed.dirOnly = true
		line = strings.TrimSuffix(line, "/")
	}

	line = normalizePath(line)
	if line == "" {
		return rule{}, false
	}
	parsed.pattern = line
	return parsed, true
}

func ruleMatches(rule rule, relPath string, isDir bool) bool {
	if rule.dirOnly {
		return matchDirectoryPattern(rule, relPath, isDir)
	}

	if rule.anchored {
		return matchPathPattern(rule.pattern, relPath) || matchPathPattern(rule.pattern+"/**", relPath)
	}

	if strings.Contains(rule.pattern, "/") {
		parts := strings.Split(relPath, "/")
		for i := 0; i < len(parts); i++ {
			if matchPathPattern(rule.pattern, strings.Join(parts[i:], "/")) {
				return true
			}
		}
		return false
	}

	for _, segment := range strings.Split(relPath, "/") {
		if matchPathPattern(rule.pattern, segment) {
			return true
		}
	}
	return false
}

// matchDirectoryPattern reports whether relPath is, or lies below, a
// directory matched by the rule.
func matchDirectoryPattern(rule rule, relPath string, isDir bool) bool {
	parts := strings.Split(relPath, "/")
	for i := range parts {
		if i == len(parts)-1 && !isDir {
			break
		}
		candidate := strings.Join(parts[:i+1], "/")
		if matchPathPattern(rule.pattern, candidate) {
			return true
		}
		if rule.anchored || strings.Contains(rule.pattern, "/") {
			continue
		}
		if matchPathPattern(rule.pattern, parts[i]) {
			return true
		}
	}
	return false
}

func matchPathPattern(pattern, value string) bool {
	ok, err := doublestar.Match(pattern, value)
	return err == nil && ok
}

func normalizePath(p string) string {
	p = filepath.ToSlash(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	return p
}
