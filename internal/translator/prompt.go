package translator

import (
	"fmt"

	"github.com/cloudwego/eino/schema"
)

const systemPrompt = "You are a professional translation engine specialized in academic and technical content."

// buildPrompt 构造 LLM 翻译提示词。
// 公式占位符（如 {v1}）和行结构必须原样保留，这是版面重建的前提。
func buildPrompt(langIn, langOut, text string) []*schema.Message {
	user := fmt.Sprintf(`Please translate the following text from %s to %s. Follow these requirements:
1. Keep all formula placeholders (e.g. {v1}) and mathematical notation unchanged
2. Preserve markdown formatting including lists, headings, and emphasis
3. Maintain the original structure and layout, including all line breaks
4. If any part cannot be confidently translated, keep it in the original language
5. If the source text is empty or contains only whitespace, return the original text
6. IMPORTANT: Each line in the output must correspond to the same line in the input

Source Text: %s

Translated Text:`, langIn, langOut, text)

	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(user),
	}
}
