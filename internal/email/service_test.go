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
				From: "test@example.com",
			},
			expected: false,
		},
		{
			name: "missing port",
			config: Config{
				Host: "smtp.example.com",
				From: "test@example.com",
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
				From: "test@example.com",
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.config)
			if got := svc.IsConfigured(); got != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSendCodeEmailNotConfigured(t *testing.T) {
	svc := NewService(Config{})
	if err := svc.SendCodeEmail("user@example.com", "Ada", "123456", "login"); err == nil {
		t.Error("expected error when SMTP is not configured")
	}
}

func TestSendCodeEmailUnknownPurpose(t *testing.T) {
	svc := NewService(Config{Host: "smtp.example.com", Port: "587", From: "noreply@example.com"})
	err := svc.SendCodeEmail("user@example.com", "Ada", "123456", "mystery")
	if err == nil || !strings.Contains(err.Error(), "unknown code purpose") {
		t.Errorf("expected unknown purpose error, got %v", err)
	}
}

func TestRenderCodeTemplate(t *testing.T) {
	html, err := renderTemplate(codeEmailTemplate, CodeData{
		AppName:  "Clarify",
		UserName: "Ada",
		Code:     "042137",
		Action:   "sign in to your account",
	})
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}

	for _, want := range []string{"Ada", "042137", "sign in to your account"} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered template missing %q", want)
		}
	}
	if strings.Contains(html, "expires in") {
		t.Error("expiry warning should be omitted when Expiry is empty")
	}

	withExpiry, err := renderTemplate(codeEmailTemplate, CodeData{
		AppName: "Clarify", UserName: "Ada", Code: "042137",
		Action: "reset your password", Expiry: "10 minutes",
	})
	if err != nil {
		t.Fatalf("renderTemplate failed: %v", err)
	}
	if !strings.Contains(withExpiry, "10 minutes") {
		t.Error("expiry warning should render when Expiry is set")
	}
}
