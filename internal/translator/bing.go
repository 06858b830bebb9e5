package translator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// bingMaxLen bing 免费端点单次请求的文本上限
const bingMaxLen = 1000

const bingUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36 Edg/131.0.0.0"

var (
	bingIGRe    = regexp.MustCompile(`"ig":"(.*?)"`)
	bingIIDRe   = regexp.MustCompile(`data-iid="(.*?)"`)
	bingTokenRe = regexp.MustCompile(`params_AbusePreventionHelper\s=\s\[(.*?),"(.*?)",`)
)

// BingTranslator 免费网页端点。每次翻译前要先抓取反滥用 token。
type BingTranslator struct {
	langIn   string
	langOut  string
	endpoint string
	client   *http.Client
}

func newBing(langIn, langOut, _ string) (Translator, error) {
	langMap := map[string]string{"zh": "zh-Hans"}
	return &BingTranslator{
		langIn:   mapLang(langIn, langMap),
		langOut:  mapLang(langOut, langMap),
		endpoint: "https://www.bing.com/ttranslatev3",
		client:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (t *BingTranslator) Name() string { return "bing" }

// findSID 抓取翻译页面，解析出 IG、IID 以及反滥用 key/token。
func (t *BingTranslator) findSID(ctx context.Context) (ig, iid, key, token string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.bing.com/translator", nil)
	if err != nil {
		return "", "", "", "", err
	}
	req.Header.Set("User-Agent", bingUserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", "", "", "", fmt.Errorf("failed to fetch bing translator page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", "", "", err
	}

	igm := bingIGRe.FindSubmatch(body)
	iidm := bingIIDRe.FindAllSubmatch(body, -1)
	tokm := bingTokenRe.FindSubmatch(body)
	if igm == nil || len(iidm) == 0 || tokm == nil {
		return "", "", "", "", fmt.Errorf("failed to parse bing session tokens")
	}

	ig = string(igm[1])
	iid = string(iidm[len(iidm)-1][1])
	key = string(tokm[1])
	token = string(tokm[2])
	return ig, iid, key, token, nil
}

func (t *BingTranslator) Translate(ctx context.Context, text string) (string, error) {
	if skipTranslation(text) {
		return text, nil
	}
	text = truncateRunes(text, bingMaxLen)

	ig, iid, key, token, err := t.findSID(ctx)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("fromLang", t.langIn)
	form.Set("to", t.langOut)
	form.Set("text", text)
	form.Set("token", token)
	form.Set("key", key)

	reqURL := fmt.Sprintf("%s?IG=%s&IID=%s", t.endpoint, ig, iid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", bingUserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("bing request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read bing response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bing request failed with status %d", resp.StatusCode)
	}

	var result []struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse bing response: %w", err)
	}
	if len(result) == 0 || len(result[0].Translations) == 0 {
		return "", fmt.Errorf("bing response did not contain a translation")
	}

	return result[0].Translations[0].Text, nil
}
