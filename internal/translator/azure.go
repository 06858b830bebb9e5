package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// AzureTranslator Azure Text Translation REST API (v3.0)。
type AzureTranslator struct {
	langIn   string
	langOut  string
	endpoint string
	apiKey   string
	region   string
	client   *http.Client
}

func newAzure(langIn, langOut, _ string) (Translator, error) {
	apiKey := os.Getenv("AZURE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("AZURE_API_KEY is not set")
	}
	langMap := map[string]string{"zh": "zh-Hans"}
	return &AzureTranslator{
		langIn:   mapLang(langIn, langMap),
		langOut:  mapLang(langOut, langMap),
		endpoint: envOr("AZURE_ENDPOINT", "https://api.translator.azure.cn"),
		apiKey:   apiKey,
		region:   envOr("AZURE_REGION", "chinaeast2"),
		client:   &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (t *AzureTranslator) Name() string { return "azure" }

func (t *AzureTranslator) Translate(ctx context.Context, text string) (string, error) {
	if skipTranslation(text) {
		return text, nil
	}

	payload, err := json.Marshal([]map[string]string{{"Text": text}})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	q := url.Values{}
	q.Set("api-version", "3.0")
	q.Set("from", t.langIn)
	q.Set("to", t.langOut)
	reqURL := strings.TrimSuffix(t.endpoint, "/") + "/translate?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", t.apiKey)
	req.Header.Set("Ocp-Apim-Subscription-Region", t.region)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("azure request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read azure response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", httpStatusError("azure", resp.StatusCode, body)
	}

	var result []struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse azure response: %w", err)
	}
	if len(result) == 0 || len(result[0].Translations) == 0 {
		return "", fmt.Errorf("azure response did not contain a translation")
	}

	return result[0].Translations[0].Text, nil
}
