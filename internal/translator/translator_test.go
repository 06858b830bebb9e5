package translator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewParsesServiceSpec(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr bool
	}{
		{"google without model", "google", false},
		{"bing without model", "bing", false},
		{"deeplx without key", "deeplx", false},
		{"unknown service", "nosuch", true},
		{"empty spec", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := New(tt.spec, "en", "zh")
			if tt.wantErr {
				if err == nil {
					t.Errorf("New(%q) expected error, got %v", tt.spec, tr.Name())
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q) returned error: %v", tt.spec, err)
			}
			wantName := tt.spec
			if idx := strings.Index(wantName, ":"); idx >= 0 {
				wantName = wantName[:idx]
			}
			if tr.Name() != wantName {
				t.Errorf("Name() = %q, want %q", tr.Name(), wantName)
			}
		})
	}
}

func TestNewRejectsInvalidLanguage(t *testing.T) {
	if _, err := New("google", "", "zh"); err == nil {
		t.Error("expected error for empty source language")
	}
	if _, err := New("google", "en", "!!"); err == nil {
		t.Error("expected error for malformed target language")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := New("openai:gpt-4o-mini", "en", "zh"); err == nil {
		t.Error("expected error when OPENAI_API_KEY is unset")
	}
}

func TestMapLang(t *testing.T) {
	m := map[string]string{"zh": "zh-Hans"}
	if got := mapLang("zh", m); got != "zh-Hans" {
		t.Errorf("mapLang(zh) = %q, want zh-Hans", got)
	}
	if got := mapLang("ZH", m); got != "zh-Hans" {
		t.Errorf("mapLang(ZH) = %q, want zh-Hans", got)
	}
	if got := mapLang("ja", m); got != "ja" {
		t.Errorf("mapLang(ja) = %q, want ja", got)
	}
}

func TestSkipTranslation(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		if !skipTranslation(text) {
			t.Errorf("skipTranslation(%q) = false, want true", text)
		}
	}
	if skipTranslation("hello") {
		t.Error("skipTranslation(hello) = true, want false")
	}
}

func TestRemoveControlCharacters(t *testing.T) {
	in := "he\x00llo\x1fworld\nsecond\tline"
	got := removeControlCharacters(in)
	want := "helloworld\nsecond\tline"
	if got != want {
		t.Errorf("removeControlCharacters(%q) = %q, want %q", in, got, want)
	}
}

func TestBuildPromptPreservesText(t *testing.T) {
	msgs := buildPrompt("en", "zh", "Energy {v1} is conserved")
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[1].Role != "user" {
		t.Errorf("unexpected roles: %s, %s", msgs[0].Role, msgs[1].Role)
	}
	if !strings.Contains(msgs[1].Content, "Energy {v1} is conserved") {
		t.Error("user prompt does not contain the source text")
	}
	if !strings.Contains(msgs[1].Content, "from en to zh") {
		t.Error("user prompt does not name the language pair")
	}
}

func TestOpenAITranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","model":"gpt-4o-mini",` +
			`"choices":[{"index":0,"message":{"role":"assistant","content":"你好，世界"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	tr, err := newOpenAICompatible("openai", "en", "zh", "gpt-4o-mini", "test-key", srv.URL+"/v1")
	if err != nil {
		t.Fatalf("newOpenAICompatible returned error: %v", err)
	}
	got, err := tr.Translate(context.Background(), "Hello, world")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got != "你好，世界" {
		t.Errorf("Translate = %q", got)
	}
}

func TestOpenAITranslateSkipsEmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider should not be called for empty text")
	}))
	defer srv.Close()

	tr, err := newOpenAICompatible("openai", "en", "zh", "gpt-4o-mini", "test-key", srv.URL)
	if err != nil {
		t.Fatalf("newOpenAICompatible returned error: %v", err)
	}
	got, err := tr.Translate(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got != "   " {
		t.Errorf("empty text should be returned unchanged, got %q", got)
	}
}

func TestOpenAITranslateRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	tr, err := newOpenAICompatible("openai", "en", "zh", "gpt-4o-mini", "test-key", srv.URL)
	if err != nil {
		t.Fatalf("newOpenAICompatible returned error: %v", err)
	}
	_, err = tr.Translate(context.Background(), "Hello")
	if err == nil {
		t.Fatal("expected rate limit error")
	}
	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Errorf("expected *RateLimitError, got %T: %v", err, err)
	}
}

func TestChatErrorMapsRateLimit(t *testing.T) {
	err := chatError("openai", errors.New("error, status code: 429, message: slow down"))
	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Errorf("429 should map to *RateLimitError, got %T", err)
	}

	err = chatError("openai", errors.New("connection refused"))
	if errors.As(err, &rateErr) {
		t.Error("transport error should not map to *RateLimitError")
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short ascii untouched", "hello", 10, "hello"},
		{"ascii cut", "hello", 3, "hel"},
		{"multibyte boundary kept", "数学公式", 2, "数学"},
		{"mixed text", "a数b学c", 3, "a数b"},
		{"zero max", "hello", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateRunes(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncateRunes(%q, %d) produced invalid UTF-8", tt.in, tt.max)
			}
		})
	}
}

func TestDeepLXTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":"翻译结果"}`))
	}))
	defer srv.Close()

	t.Setenv("DEEPLX_ENDPOINT", srv.URL)
	tr, err := New("deeplx", "en", "zh")
	if err != nil {
		t.Fatalf("New(deeplx) returned error: %v", err)
	}

	got, err := tr.Translate(context.Background(), "result")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got != "翻译结果" {
		t.Errorf("Translate = %q", got)
	}
}

func TestCatalog(t *testing.T) {
	infos := Catalog()
	if len(infos) != len(registry) {
		t.Fatalf("Catalog() returned %d entries, registry has %d", len(infos), len(registry))
	}

	byName := make(map[string]ServiceInfo, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
		if info.Description == "" {
			t.Errorf("%s: empty description", info.Name)
		}
		if info.ConfigNeeded != (len(info.EnvVars) > 0) {
			t.Errorf("%s: config_needed=%v but env_vars=%v", info.Name, info.ConfigNeeded, info.EnvVars)
		}
	}

	if byName["google"].ConfigNeeded {
		t.Error("google should not need configuration")
	}
	openaiEnvs := strings.Join(byName["openai"].EnvVars, ",")
	if !strings.Contains(openaiEnvs, "OPENAI_API_KEY") {
		t.Errorf("openai env vars missing OPENAI_API_KEY: %v", byName["openai"].EnvVars)
	}
	if !byName["deepl"].ConfigNeeded {
		t.Error("deepl should need configuration")
	}
}

func TestServicesSorted(t *testing.T) {
	names := Services()
	if len(names) != len(registry) {
		t.Fatalf("Services() returned %d names, registry has %d", len(names), len(registry))
	}
	for i := 1; i < len(names); i++ {
		if names[i] < names[i-1] {
			t.Errorf("Services() not sorted at %d: %s < %s", i, names[i], names[i-1])
		}
	}
}
