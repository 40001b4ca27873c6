package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/outboundiq/personalize-backend/internal/logger"
)

type fakeOpenAI struct {
	mu    sync.Mutex
	reply string
	err   error
	calls int
}

func (f *fakeOpenAI) ChatCompletion(_ context.Context, _ string, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeOpenAI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestBuildPromptBuiltinTemplate(t *testing.T) {
	content := []string{"We sell artisanal coffee roasting equipment."}
	prompt, err := BuildPrompt(content, "intro", "", "Acme Coffee")
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}
	if strings.Contains(prompt, "{content}") || strings.Contains(prompt, "{business_name}") {
		t.Fatalf("placeholders left unresolved:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Acme Coffee") {
		t.Fatal("business name not substituted")
	}
	if !strings.Contains(prompt, "artisanal coffee roasting equipment") {
		t.Fatal("content not substituted")
	}
}

func TestBuildPromptSummaryTemplate(t *testing.T) {
	prompt, err := BuildPrompt([]string{"page text"}, "summary", "", "Acme")
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}
	if !strings.Contains(prompt, "less than 30 word summary") {
		t.Fatalf("unexpected summary prompt:\n%s", prompt)
	}
}

func TestBuildPromptCustomTemplate(t *testing.T) {
	prompt, err := BuildPrompt([]string{"page text"}, "custom_followup", "Write a follow-up line.", "Acme")
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}
	if !strings.HasPrefix(prompt, "Write a follow-up line.") {
		t.Fatalf("custom prompt not used verbatim:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Website content:") || !strings.Contains(prompt, "page text") {
		t.Fatalf("content not appended:\n%s", prompt)
	}
}

func TestBuildPromptCustomTemplateWithoutPrompt(t *testing.T) {
	_, err := BuildPrompt([]string{"page text"}, "custom_followup", "", "Acme")
	var genErr *GenError
	if !errors.As(err, &genErr) {
		t.Fatalf("want GenError, got %v", err)
	}
}

func TestBuildPromptUnknownTemplate(t *testing.T) {
	_, err := BuildPrompt([]string{"page text"}, "mystery", "", "Acme")
	var genErr *GenError
	if !errors.As(err, &genErr) {
		t.Fatalf("want GenError, got %v", err)
	}
	if genErr.Template != "mystery" {
		t.Fatalf("GenError.Template = %q, want %q", genErr.Template, "mystery")
	}
}

func TestAnalyzeWebsiteWrapsClientErrors(t *testing.T) {
	client := &fakeOpenAI{err: errors.New("upstream unavailable")}
	limiter, _ := newTestLimiter(10, time.Minute)
	svc := NewAIService(client, limiter, logger.NewNop())

	_, err := svc.AnalyzeWebsite(context.Background(), []string{"text"}, "intro", "", "Acme")
	var genErr *GenError
	if !errors.As(err, &genErr) {
		t.Fatalf("want GenError, got %v", err)
	}
	if genErr.Template != "intro" {
		t.Fatalf("GenError.Template = %q", genErr.Template)
	}
}

func TestAnalyzeWebsiteGoesThroughLimiter(t *testing.T) {
	client := &fakeOpenAI{reply: "I was checking out Acme's website and loved the pricing page!"}
	limiter, clock := newTestLimiter(1, time.Minute)
	svc := NewAIService(client, limiter, logger.NewNop())

	for i := 0; i < 2; i++ {
		if _, err := svc.AnalyzeWebsite(context.Background(), []string{"text"}, "intro", "", "Acme"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if client.callCount() != 2 {
		t.Fatalf("client calls = %d, want 2", client.callCount())
	}
	if len(clock.sleeps) != 1 {
		t.Fatalf("expected the second call to wait for the window, sleeps = %v", clock.sleeps)
	}
}
