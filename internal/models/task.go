package models

import "time"

// TranslationStatus 任务状态
type TranslationStatus string

const (
	StatusPending   TranslationStatus = "pending"
	StatusRunning   TranslationStatus = "running"
	StatusCompleted TranslationStatus = "completed"
	StatusFailed    TranslationStatus = "failed"
	StatusCancelled TranslationStatus = "cancelled"
)

// TranslationTask 一次 PDF 翻译任务
type TranslationTask struct {
	ID        string            `json:"id"`
	Status    TranslationStatus `json:"status"`
	Type      string            `json:"type"`
	Priority  int               `json:"priority"`
	Progress  float64           `json:"progress"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt,omitempty"`
}

// TranslationOptions 翻译参数，CLI 和 API 共用
type TranslationOptions struct {
	LangIn    string `json:"langIn"`
	LangOut   string `json:"langOut"`
	Service   string `json:"service"` // service[:model]，如 openai:gpt-4o-mini
	Pages     string `json:"pages"`   // 页码选择，如 "1,3-5"，为空翻译全部
	Threads   int    `json:"threads"`
	FontRegex string `json:"fontRegex,omitempty"` // 公式字体例外规则
	CharRegex string `json:"charRegex,omitempty"` // 公式字符例外规则
}

// OutputVariant 输出变体
type OutputVariant string

const (
	// VariantMono 纯译文 PDF
	VariantMono OutputVariant = "mono"
	// VariantDual 原文/译文逐页交错的双语 PDF
	VariantDual OutputVariant = "dual"
)

// TranslationResult 翻译完成后的产物信息
type TranslationResult struct {
	TaskID           string    `json:"taskId"`
	MonoKey          string    `json:"monoKey"` // 存储层中的对象键
	DualKey          string    `json:"dualKey"`
	TotalBlocks      int       `json:"totalBlocks"`
	TranslatedBlocks int       `json:"translatedBlocks"`
	CachedBlocks     int       `json:"cachedBlocks"`
	Pages            int       `json:"pages"`
	FinishedAt       time.Time `json:"finishedAt"`
}
