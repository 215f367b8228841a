package tools

import (
	"regexp"
	"strings"
	"sync"
)

// Permission is the outcome of evaluating rules against a subject.
type Permission string

const (
	PermissionAllow Permission = "allow"
	PermissionDeny  Permission = "deny"
	PermissionAsk   Permission = "ask"
)

// Rule is one ordered pattern→permission entry. Patterns support '*'
// wildcards; anything else matches literally.
type Rule struct {
	Pattern    string
	Permission Permission
}

// blocklist contains command patterns that are catastrophic regardless of
// configuration. It is checked before any rule and can never be overridden.
var blocklist = []string{
	"rm -rf /",
	"rm -rf /*",
	"rm -fr /",
	"mkfs*",
	"dd if=* of=/dev/*",
	":(){*",
	"chmod -R 777 /",
	"> /dev/sda*",
}

// RuleStore persists rules created by "always allow"/"always deny"
// decisions. Implemented by config.PermissionStore.
type RuleStore interface {
	Append(pattern, permission string) error
}

// Rules evaluates permission subjects against an ordered rule list.
type Rules struct {
	mu    sync.RWMutex
	rules []Rule
}

func NewRules(rules []Rule) *Rules {
	return &Rules{rules: rules}
}

// Add appends a rule at the end of the evaluation order.
func (r *Rules) Add(rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
}

// Evaluate resolves a subject to a permission. The fixed blocklist is
// checked first and always denies. Then rules are scanned: when both a deny
// rule and an allow rule match, deny takes priority. When nothing matches,
// the result is PermissionAsk.
func (r *Rules) Evaluate(subject string) Permission {
	for _, pattern := range blocklist {
		if matchPattern(pattern, subject) {
			return PermissionDeny
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	allowed := false
	for _, rule := range r.rules {
		if !matchPattern(rule.Pattern, subject) {
			continue
		}
		if rule.Permission == PermissionDeny {
			return PermissionDeny
		}
		if rule.Permission == PermissionAllow {
			allowed = true
		}
	}

	if allowed {
		return PermissionAllow
	}
	return PermissionAsk
}

// Blocked reports whether the subject hits the fixed blocklist.
func Blocked(subject string) bool {
	for _, pattern := range blocklist {
		if matchPattern(pattern, subject) {
			return true
		}
	}
	return false
}

// GeneralizePattern widens a confirmation subject into a reusable rule
// pattern: a command keeps its first word ("git status -s" becomes "git *"),
// an MCP subject keeps its server ("mcp:github/create_issue" becomes
// "mcp:github/*"). Subjects with nothing to widen stay literal.
func GeneralizePattern(subject string) string {
	if strings.Contains(subject, "*") {
		return subject
	}
	if strings.HasPrefix(subject, "mcp:") {
		if i := strings.Index(subject, "/"); i >= 0 {
			return subject[:i+1] + "*"
		}
	}
	if i := strings.IndexByte(subject, ' '); i >= 0 {
		return subject[:i] + " *"
	}
	return subject
}

// matchPattern matches subject against a pattern where '*' matches any run
// of characters (including none). Patterns without wildcards match exactly.
func matchPattern(pattern, subject string) bool {
	if !strings.Contains(pattern, "*") {
		return pattern == subject
	}

	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	expr := "^" + strings.Join(parts, ".*") + "$"

	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	return re.MatchString(subject)
}
