package email

import (
	"strings"
	"testing"
)

func TestIsConfigured(t *testing.T) {
	unconfigured := NewService(Config{})
	if unconfigured.IsConfigured() {
		t.Fatal("empty config must not report configured")
	}

	configured := NewService(Config{Host: "smtp.example.com", Port: "587", From: "noreply@example.com"})
	if !configured.IsConfigured() {
		t.Fatal("full config must report configured")
	}
}

func TestSendEmailWithoutConfig(t *testing.T) {
	svc := NewService(Config{})
	if err := svc.SendEmail([]string{"kim@example.com"}, "hi", "body"); err == nil {
		t.Fatal("sending without config must fail")
	}
}

func TestApprovalTemplateRenders(t *testing.T) {
	html, err := renderTemplate(approvalEmailTemplate, ApprovalData{
		AppName:      "Discograph",
		UserName:     "kim",
		EntityType:   "artist",
		CorrectionID: 42,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"kim", "#42", "artist"} {
		if !strings.Contains(html, want) {
			t.Fatalf("rendered email missing %q", want)
		}
	}
}
