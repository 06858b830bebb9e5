package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DeepLTranslator 官方 DeepL REST API (v2/translate)。
type DeepLTranslator struct {
	langIn    string
	langOut   string
	serverURL string
	authKey   string
	client    *http.Client
}

func newDeepL(langIn, langOut, _ string) (Translator, error) {
	authKey := os.Getenv("DEEPL_AUTH_KEY")
	if authKey == "" {
		return nil, fmt.Errorf("DEEPL_AUTH_KEY is not set")
	}
	langMap := map[string]string{"zh": "zh-Hans"}
	return &DeepLTranslator{
		langIn:    mapLang(langIn, langMap),
		langOut:   mapLang(langOut, langMap),
		serverURL: envOr("DEEPL_SERVER_URL", "https://api.deepl.com"),
		authKey:   authKey,
		client:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (t *DeepLTranslator) Name() string { return "deepl" }

func (t *DeepLTranslator) Translate(ctx context.Context, text string) (string, error) {
	if skipTranslation(text) {
		return text, nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"text":        []string{text},
		"source_lang": strings.ToUpper(t.langIn),
		"target_lang": strings.ToUpper(t.langOut),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	reqURL := strings.TrimSuffix(t.serverURL, "/") + "/v2/translate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+t.authKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepl request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read deepl response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", httpStatusError("deepl", resp.StatusCode, body)
	}

	var result struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse deepl response: %w", err)
	}
	if len(result.Translations) == 0 {
		return "", fmt.Errorf("deepl response did not contain a translation")
	}

	return result.Translations[0].Text, nil
}

// DeepLXTranslator 自建 DeepLX 端点，请求格式与 DeepL 不同。
type DeepLXTranslator struct {
	langIn   string
	langOut  string
	endpoint string
	client   *http.Client
}

func newDeepLX(langIn, langOut, _ string) (Translator, error) {
	langMap := map[string]string{"zh": "zh-Hans"}
	return &DeepLXTranslator{
		langIn:   mapLang(langIn, langMap),
		langOut:  mapLang(langOut, langMap),
		endpoint: envOr("DEEPLX_ENDPOINT", "https://api.deepl.com/translate"),
		client:   &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (t *DeepLXTranslator) Name() string { return "deeplx" }

func (t *DeepLXTranslator) Translate(ctx context.Context, text string) (string, error) {
	if skipTranslation(text) {
		return text, nil
	}

	payload, err := json.Marshal(map[string]string{
		"source_lang": t.langIn,
		"target_lang": t.langOut,
		"text":        text,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deeplx request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read deeplx response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deeplx request failed with status %d", resp.StatusCode)
	}

	var result struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse deeplx response: %w", err)
	}

	return result.Data, nil
}
