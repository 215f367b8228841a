package tools

import "testing"

func TestRulesEvaluate(t *testing.T) {
	rules := NewRules([]Rule{
		{Pattern: "git status*", Permission: PermissionAllow},
		{Pattern: "rm *", Permission: PermissionDeny},
	})

	tests := []struct {
		subject string
		want    Permission
	}{
		{"git status -s", PermissionAllow},
		{"git status", PermissionAllow},
		{"rm -rf x", PermissionDeny},
		{"ls", PermissionAsk},
		{"git stash", PermissionAsk},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			if got := rules.Evaluate(tt.subject); got != tt.want {
				t.Errorf("Evaluate(%q): got %q, want %q", tt.subject, got, tt.want)
			}
		})
	}
}

func TestDenyTakesPriorityOverAllow(t *testing.T) {
	// Both rules match; deny wins regardless of order.
	tests := []struct {
		name  string
		rules []Rule
	}{
		{
			name: "allow listed first",
			rules: []Rule{
				{Pattern: "git *", Permission: PermissionAllow},
				{Pattern: "git push*", Permission: PermissionDeny},
			},
		},
		{
			name: "deny listed first",
			rules: []Rule{
				{Pattern: "git push*", Permission: PermissionDeny},
				{Pattern: "git *", Permission: PermissionAllow},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := NewRules(tt.rules)
			if got := rules.Evaluate("git push origin main"); got != PermissionDeny {
				t.Errorf("got %q, want deny", got)
			}
			if got := rules.Evaluate("git status"); got == PermissionDeny {
				t.Errorf("non-matching deny should not fire: got %q", got)
			}
		})
	}
}

func TestBlocklistCannotBeOverridden(t *testing.T) {
	rules := NewRules([]Rule{
		{Pattern: "*", Permission: PermissionAllow},
	})

	blocked := []string{
		"rm -rf /",
		"mkfs.ext4 /dev/sda1",
		"dd if=/dev/zero of=/dev/sda",
	}
	for _, subject := range blocked {
		if got := rules.Evaluate(subject); got != PermissionDeny {
			t.Errorf("Evaluate(%q): got %q, want deny despite allow-all rule", subject, got)
		}
		if !Blocked(subject) {
			t.Errorf("Blocked(%q): got false", subject)
		}
	}

	if Blocked("rm -rf ./build") {
		t.Error("scoped delete should not hit the blocklist")
	}
}

func TestGeneralizePattern(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"git status -s", "git *"},
		{"rm -rf build", "rm *"},
		{"ls", "ls"},
		{"edit_file", "edit_file"},
		{"mcp:github/create_issue", "mcp:github/*"},
		{"mcp:weird-server", "mcp:weird-server"},
		// already a pattern, widen no further
		{"git status*", "git status*"},
	}

	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			if got := GeneralizePattern(tt.subject); got != tt.want {
				t.Errorf("GeneralizePattern(%q): got %q, want %q", tt.subject, got, tt.want)
			}
		})
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		subject string
		want    bool
	}{
		{"ls", "ls", true},
		{"ls", "ls -la", false},
		{"git status*", "git status -s", true},
		{"git status*", "git statusx", true},
		{"git status*", "git stash", false},
		{"rm *", "rm -rf x", true},
		{"rm *", "rm", false},
		{"*push*", "git push origin", true},
		{"a*c", "abc", true},
		{"a*c", "ac", true},
		{"a*c", "abd", false},
		// regex metacharacters in the pattern are literal
		{"echo $(date)*", "echo $(date) now", true},
		{"echo .*", "echo x", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.subject, func(t *testing.T) {
			if got := matchPattern(tt.pattern, tt.subject); got != tt.want {
				t.Errorf("matchPattern(%q, %q): got %v, want %v", tt.pattern, tt.subject, got, tt.want)
			}
		})
	}
}
