package taskstore

import "time"

// 任务状态，与 translate 表的 status 列取值一致
const (
	StatusStart      = "start"
	StatusProcessing = "process"
	StatusDone       = "done"
	StatusFailed     = "failed"
)

// TranslateRecord 表示 translate 表中的一行翻译任务
type TranslateRecord struct {
	ID             uint64    `gorm:"primarykey" json:"id"`
	OriginFilepath string    `gorm:"column:origin_filepath" json:"origin_filepath"`
	TargetFilepath string    `gorm:"column:target_filepath" json:"target_filepath"`
	OriginLang     string    `gorm:"column:origin_lang" json:"origin_lang"`
	TargetLang     string    `gorm:"column:target_lang" json:"target_lang"`
	Model          string    `gorm:"column:model" json:"model"`
	Status         string    `gorm:"column:status" json:"status"`
	Process        float64   `gorm:"column:process" json:"process"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName 指定表名
func (TranslateRecord) TableName() string {
	return "translate"
}

// Service 返回任务使用的翻译服务，model 列为空时回落到 google
func (r *TranslateRecord) Service() string {
	if r.Model == "" {
		return "google"
	}
	return r.Model
}
