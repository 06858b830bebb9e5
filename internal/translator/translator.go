// Package translator implements the translation provider clients.
// A provider is selected with a service spec of the form "name[:model]",
// e.g. "google" or "openai:gpt-4o-mini".
package translator

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// Translator 翻译后端统一接口
type Translator interface {
	// Name returns the provider name, e.g. "openai".
	Name() string
	// Translate 把 text 从源语言翻译到目标语言。
	// 空白文本原样返回，不发起请求。
	Translate(ctx context.Context, text string) (string, error)
}

// constructor builds a provider for the given language pair and optional model.
type constructor func(langIn, langOut, model string) (Translator, error)

// provider 注册表条目：构造函数加上对外公布的配置说明
type provider struct {
	build       constructor
	description string
	envVars     []string // 为空表示开箱即用
}

var registry = map[string]provider{
	"google": {newGoogle, "Google Translate (免费，无需配置)", nil},
	"bing":   {newBing, "Bing Translator (免费，无需配置)", nil},
	"deepl": {newDeepL, "DeepL API (需要 API Key)",
		[]string{"DEEPL_AUTH_KEY", "DEEPL_SERVER_URL"}},
	"deeplx": {newDeepLX, "DeepLX API (自建或第三方端点)",
		[]string{"DEEPLX_ENDPOINT"}},
	"ollama": {newOllama, "Ollama 本地模型 (需要安装 Ollama)",
		[]string{"OLLAMA_HOST", "OLLAMA_MODEL"}},
	"openai": {newOpenAI, "OpenAI 及兼容接口 (需要 API Key)",
		[]string{"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL"}},
	"zhipu": {newZhipu, "智谱 GLM (需要 API Key)",
		[]string{"ZHIPU_API_KEY", "ZHIPU_MODEL"}},
	"silicon": {newSilicon, "SiliconFlow (需要 API Key)",
		[]string{"SILICON_API_KEY", "SILICON_MODEL"}},
	"azure": {newAzure, "Azure Translator (需要 API Key)",
		[]string{"AZURE_ENDPOINT", "AZURE_API_KEY", "AZURE_REGION"}},
	"tencent": {newTencent, "腾讯机器翻译 TMT (需要云 API 密钥)",
		[]string{"TENCENTCLOUD_SECRET_ID", "TENCENTCLOUD_SECRET_KEY"}},
}

// ServiceInfo 描述一个翻译后端及其所需配置
type ServiceInfo struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	ConfigNeeded bool     `json:"config_needed"`
	EnvVars      []string `json:"env_vars,omitempty"`
}

// Services returns the sorted list of supported provider names.
func Services() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	// 稳定输出顺序
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j] < names[j-1]; j-- {
			names[j], names[j-1] = names[j-1], names[j]
		}
	}
	return names
}

// Catalog 返回按名称排序的后端目录，含各自需要的环境变量。
func Catalog() []ServiceInfo {
	infos := make([]ServiceInfo, 0, len(registry))
	for _, name := range Services() {
		p := registry[name]
		infos = append(infos, ServiceInfo{
			Name:         name,
			Description:  p.description,
			ConfigNeeded: len(p.envVars) > 0,
			EnvVars:      p.envVars,
		})
	}
	return infos
}

// New 根据 service spec 创建翻译器。
// spec 形如 "openai:gpt-4o-mini"，冒号后的 model 部分可省略。
func New(spec, langIn, langOut string) (Translator, error) {
	if spec == "" {
		return nil, fmt.Errorf("empty translation service")
	}

	name, model := spec, ""
	if idx := strings.Index(spec, ":"); idx >= 0 {
		name, model = spec[:idx], spec[idx+1:]
	}

	p, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported translation service: %s", name)
	}

	if err := validateLang(langIn); err != nil {
		return nil, fmt.Errorf("invalid source language %q: %w", langIn, err)
	}
	if err := validateLang(langOut); err != nil {
		return nil, fmt.Errorf("invalid target language %q: %w", langOut, err)
	}

	return p.build(langIn, langOut, model)
}

// validateLang checks the code parses as a BCP 47 tag.
func validateLang(code string) error {
	if code == "" {
		return fmt.Errorf("empty language code")
	}
	_, err := language.Parse(code)
	return err
}

// mapLang 把通用语言代码映射为 provider 专用代码，如 zh -> zh-Hans。
func mapLang(code string, langMap map[string]string) string {
	if mapped, ok := langMap[strings.ToLower(code)]; ok {
		return mapped
	}
	return code
}

// skipTranslation reports whether the text should bypass the provider.
func skipTranslation(text string) bool {
	return strings.TrimSpace(text) == ""
}

// truncateRunes 按字符数截断，不会把多字节 UTF-8 序列切断
func truncateRunes(text string, max int) string {
	if max <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == max {
			return text[:i]
		}
		count++
	}
	return text
}

// removeControlCharacters strips Unicode control characters from provider output.
func removeControlCharacters(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
