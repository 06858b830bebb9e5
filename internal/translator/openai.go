package translator

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const defaultLLMTimeout = 180 * time.Second

// chatGenerator 是 eino ChatModel 的最小子集
type chatGenerator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// OpenAITranslator 通过 eino 的 OpenAI ChatModel 走 chat completions 接口。
// zhipu、silicon 和 ollama 复用这个实现，只是预置了各自的 base URL 和密钥来源。
type OpenAITranslator struct {
	name    string
	langIn  string
	langOut string
	chat    chatGenerator
}

func newOpenAI(langIn, langOut, model string) (Translator, error) {
	if model == "" {
		model = envOr("OPENAI_MODEL", "gpt-4o-mini")
	}
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	return newOpenAICompatible("openai", langIn, langOut, model, apiKey,
		envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"))
}

func newZhipu(langIn, langOut, model string) (Translator, error) {
	if model == "" {
		model = envOr("ZHIPU_MODEL", "glm-4-flash")
	}
	apiKey := os.Getenv("ZHIPU_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ZHIPU_API_KEY is not set")
	}
	return newOpenAICompatible("zhipu", langIn, langOut, model, apiKey,
		"https://open.bigmodel.cn/api/paas/v4")
}

func newSilicon(langIn, langOut, model string) (Translator, error) {
	if model == "" {
		model = envOr("SILICON_MODEL", "Qwen/Qwen2.5-7B-Instruct")
	}
	apiKey := os.Getenv("SILICON_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("SILICON_API_KEY is not set")
	}
	return newOpenAICompatible("silicon", langIn, langOut, model, apiKey,
		"https://api.siliconflow.cn/v1")
}

func newOpenAICompatible(name, langIn, langOut, model, apiKey, baseURL string) (*OpenAITranslator, error) {
	// 随机采样可能会打断公式占位符
	temperature := float32(0)
	chat, err := openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
		Model:       model,
		APIKey:      apiKey,
		BaseURL:     strings.TrimSuffix(baseURL, "/"),
		Temperature: &temperature,
		Timeout:     defaultLLMTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s chat model: %w", name, err)
	}
	return &OpenAITranslator{
		name:    name,
		langIn:  langIn,
		langOut: langOut,
		chat:    chat,
	}, nil
}

func (t *OpenAITranslator) Name() string { return t.name }

func (t *OpenAITranslator) Translate(ctx context.Context, text string) (string, error) {
	if skipTranslation(text) {
		return text, nil
	}

	msg, err := t.chat.Generate(ctx, buildPrompt(t.langIn, t.langOut, text))
	if err != nil {
		return "", chatError(t.name, err)
	}
	return strings.TrimSpace(msg.Content), nil
}

// chatError 归一化 chat model 的错误，限流映射为 RateLimitError。
func chatError(name string, err error) error {
	msg := err.Error()
	if strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "rate limit") {
		return &RateLimitError{Provider: name, Detail: msg}
	}
	return fmt.Errorf("%s chat request failed: %w", name, err)
}
