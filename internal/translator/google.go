package translator

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"
)

// googleMaxLen google 免费端点单次请求的文本上限
const googleMaxLen = 5000

var googleResultRe = regexp.MustCompile(`(?s)class="(?:t0|result-container)">(.*?)<`)

// GoogleTranslator 免费网页端点，无需配置。
type GoogleTranslator struct {
	langIn   string
	langOut  string
	endpoint string
	client   *http.Client
}

func newGoogle(langIn, langOut, _ string) (Translator, error) {
	langMap := map[string]string{"zh": "zh-CN"}
	return &GoogleTranslator{
		langIn:   mapLang(langIn, langMap),
		langOut:  mapLang(langOut, langMap),
		endpoint: "http://translate.google.com/m",
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (t *GoogleTranslator) Name() string { return "google" }

func (t *GoogleTranslator) Translate(ctx context.Context, text string) (string, error) {
	if skipTranslation(text) {
		return text, nil
	}
	text = truncateRunes(text, googleMaxLen)

	q := url.Values{}
	q.Set("tl", t.langOut)
	q.Set("sl", t.langIn)
	q.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent",
		"Mozilla/4.0 (compatible;MSIE 6.0;Windows NT 5.1;SV1;.NET CLR 1.1.4322;.NET CLR 2.0.50727;.NET CLR 3.0.04506.30)")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("google request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read google response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google request failed with status %d", resp.StatusCode)
	}

	matches := googleResultRe.FindSubmatch(body)
	if matches == nil {
		return "", fmt.Errorf("google response did not contain a translation")
	}

	return removeControlCharacters(html.UnescapeString(string(matches[1]))), nil
}
