package translator

import "strings"

// newOllama 接入本地 Ollama。Ollama 自带 OpenAI 兼容的 /v1 接口，
// 复用 OpenAITranslator；密钥仅作占位，服务端不校验。
func newOllama(langIn, langOut, model string) (Translator, error) {
	if model == "" {
		model = envOr("OLLAMA_MODEL", "gemma2")
	}
	host := strings.TrimSuffix(envOr("OLLAMA_HOST", "http://127.0.0.1:11434"), "/")
	return newOpenAICompatible("ollama", langIn, langOut, model, "ollama", host+"/v1")
}
