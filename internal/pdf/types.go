// Package pdf implements text extraction from source documents and
// layout-preserving rebuilding of translated ones.
package pdf

// Info PDF 基本信息
type Info struct {
	FilePath  string `json:"file_path"`
	FileName  string `json:"file_name"`
	PageCount int    `json:"page_count"`
	FileSize  int64  `json:"file_size"`
	IsTextPDF bool   `json:"is_text_pdf"`
}

// TextBlock 从 PDF 提取出的一段可翻译文本及其版面信息。
// 坐标为 PDF 坐标系，原点在页面左下角。
type TextBlock struct {
	ID       string  `json:"id"`
	Page     int     `json:"page"`
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	FontSize float64 `json:"font_size"`
	FontName string  `json:"font_name"`
	Kind     string  `json:"kind"` // paragraph, heading, caption, formula, footnote
}

// TranslatedBlock 翻译完成的文本块
type TranslatedBlock struct {
	TextBlock
	TranslatedText string `json:"translated_text"`
	FromCache      bool   `json:"from_cache"`
}

// Block kinds assigned by the parser.
const (
	KindParagraph = "paragraph"
	KindHeading   = "heading"
	KindCaption   = "caption"
	KindFormula   = "formula"
	KindFootnote  = "footnote"
)

// ErrorCode 错误代码
type ErrorCode string

const (
	ErrNotFound       ErrorCode = "PDF_NOT_FOUND"
	ErrInvalid        ErrorCode = "PDF_INVALID"
	ErrNoText         ErrorCode = "PDF_NO_TEXT"
	ErrExtractFailed  ErrorCode = "EXTRACT_FAILED"
	ErrGenerateFailed ErrorCode = "GENERATE_FAILED"
	ErrBadPageRange   ErrorCode = "BAD_PAGE_RANGE"
)

// Error carries a stable code alongside the message so callers can map
// failures onto API responses.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Page    int       `json:"page,omitempty"`
	Cause   error     `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates an Error with the given code and message.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// NewErrorWithPage attaches the page number where the failure happened.
func NewErrorWithPage(code ErrorCode, message string, page int, cause error) *Error {
	return &Error{Code: code, Message: message, Page: page, Cause: cause}
}
