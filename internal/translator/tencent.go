package translator

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const (
	tencentHost    = "tmt.tencentcloudapi.com"
	tencentService = "tmt"
	tencentVersion = "2018-03-21"
	tencentAction  = "TextTranslate"
)

// TencentTranslator 腾讯云机器翻译 (TMT)。
// 请求用 TC3-HMAC-SHA256 签名，不依赖官方 SDK。
type TencentTranslator struct {
	langIn    string
	langOut   string
	secretID  string
	secretKey string
	region    string
	client    *http.Client
}

func newTencent(langIn, langOut, _ string) (Translator, error) {
	secretID := os.Getenv("TENCENTCLOUD_SECRET_ID")
	secretKey := os.Getenv("TENCENTCLOUD_SECRET_KEY")
	if secretID == "" || secretKey == "" {
		return nil, fmt.Errorf("TENCENTCLOUD_SECRET_ID or TENCENTCLOUD_SECRET_KEY is not set")
	}
	return &TencentTranslator{
		langIn:    langIn,
		langOut:   langOut,
		secretID:  secretID,
		secretKey: secretKey,
		region:    envOr("TENCENTCLOUD_REGION", "ap-beijing"),
		client:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (t *TencentTranslator) Name() string { return "tencent" }

func (t *TencentTranslator) Translate(ctx context.Context, text string) (string, error) {
	if skipTranslation(text) {
		return text, nil
	}

	payload, err := json.Marshal(map[string]interface{}{
		"SourceText": text,
		"Source":     t.langIn,
		"Target":     t.langOut,
		"ProjectId":  0,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	now := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://"+tencentHost, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Host", tencentHost)
	req.Header.Set("X-TC-Action", tencentAction)
	req.Header.Set("X-TC-Version", tencentVersion)
	req.Header.Set("X-TC-Region", t.region)
	req.Header.Set("X-TC-Timestamp", fmt.Sprintf("%d", now.Unix()))
	req.Header.Set("Authorization", t.sign(payload, now))

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tencent request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read tencent response: %w", err)
	}

	var result struct {
		Response struct {
			TargetText string `json:"TargetText"`
			Error      *struct {
				Code    string `json:"Code"`
				Message string `json:"Message"`
			} `json:"Error,omitempty"`
		} `json:"Response"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse tencent response: %w", err)
	}
	if result.Response.Error != nil {
		return "", fmt.Errorf("tencent API error %s: %s",
			result.Response.Error.Code, result.Response.Error.Message)
	}

	return result.Response.TargetText, nil
}

// sign 计算 TC3-HMAC-SHA256 签名。
// 流程见 https://cloud.tencent.com/document/api/213/30654
func (t *TencentTranslator) sign(payload []byte, now time.Time) string {
	date := now.UTC().Format("2006-01-02")
	timestamp := now.Unix()

	// step 1: canonical request
	hashedPayload := sha256Hex(payload)
	canonicalHeaders := "content-type:application/json; charset=utf-8\nhost:" + tencentHost + "\n"
	signedHeaders := "content-type;host"
	canonicalRequest := fmt.Sprintf("POST\n/\n\n%s\n%s\n%s",
		canonicalHeaders, signedHeaders, hashedPayload)

	// step 2: string to sign
	credentialScope := fmt.Sprintf("%s/%s/tc3_request", date, tencentService)
	stringToSign := fmt.Sprintf("TC3-HMAC-SHA256\n%d\n%s\n%s",
		timestamp, credentialScope, sha256Hex([]byte(canonicalRequest)))

	// step 3: derive signing key and sign
	secretDate := hmacSHA256([]byte("TC3"+t.secretKey), date)
	secretService := hmacSHA256(secretDate, tencentService)
	secretSigning := hmacSHA256(secretService, "tc3_request")
	signature := hex.EncodeToString(hmacSHA256(secretSigning, stringToSign))

	return fmt.Sprintf("TC3-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		t.secretID, credentialScope, signedHeaders, signature)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}
