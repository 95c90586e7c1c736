package email

import (
	"strings"
	"testing"
)

func TestServiceIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{
			name:     "empty config",
			config:   Config{},
			expected: false,
		},
		{
			name: "missing host",
			config: Config{
				Port: "587",
				From: "portal@example.com",
			},
			expected: false,
		},
		{
			name: "missing port",
			config: Config{
				Host: "smtp.example.com",
				From: "portal@example.com",
			},
			expected: false,
		},
		{
			name: "missing from",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
			},
			expected: false,
		},
		{
			name: "fully configured",
			config: Config{
				Host: "smtp.example.com",
				Port: "587",
				From: "portal@example.com",
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config)
			if svc.IsConfigured() != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", svc.IsConfigured(), tt.expected)
			}
		})
	}
}

func TestRenderDecisionTemplate(t *testing.T) {
	html, err := renderTemplate(decisionEmailTemplate, decisionData{
		AppName:  "MLTF Portal",
		UserName: "Jane Doe",
		Title:    "Foo Protocol",
		Action:   "approve",
		Detail:   "published as draft-doe-foo-protocol",
	})
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	for _, want := range []string{"MLTF Portal", "Jane Doe", "Foo Protocol", "approve", "draft-doe-foo-protocol"} {
		if !strings.Contains(html, want) {
			t.Errorf("template missing %q", want)
		}
	}
}

func TestRenderDecisionTemplateWithoutDetail(t *testing.T) {
	html, err := renderTemplate(decisionEmailTemplate, decisionData{
		AppName:  "MLTF Portal",
		UserName: "Bob",
		Title:    "Bar",
		Action:   "reject",
	})
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}
	if strings.Contains(html, `class="detail"`) {
		t.Error("detail block should be omitted when empty")
	}
}

func TestDecisionSubjectPastTense(t *testing.T) {
	tests := []struct {
		action   string
		expected string
	}{
		{"approved", `Your submission "Foo Protocol" was approved`},
		{"rejected", `Your submission "Foo Protocol" was rejected`},
		{"published", `Your submission "Foo Protocol" was published`},
	}
	for _, tt := range tests {
		if got := decisionSubject("Foo Protocol", tt.action); got != tt.expected {
			t.Errorf("decisionSubject(%q) = %q, want %q", tt.action, got, tt.expected)
		}
	}
}

func TestRecipientAddress(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Jane Doe", "jane.doe@portal.local"},
		{"  Bob  ", "bob@portal.local"},
		{"", "user@portal.local"},
	}
	for _, tt := range tests {
		if got := recipientAddress(tt.input); got != tt.expected {
			t.Errorf("recipientAddress(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestSendEmailFailsWhenUnconfigured(t *testing.T) {
	svc := NewService(Config{})
	if err := svc.SendEmail([]string{"a@example.com"}, "subject", "body"); err == nil {
		t.Error("expected error for unconfigured service, got nil")
	}
}
