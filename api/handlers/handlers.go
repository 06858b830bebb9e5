package handlers

import (
	"github.com/pdf2zh/pdf2zh/internal/service/translation"
	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

type Handlers struct {
	Translate *TranslateHandler
}

func NewHandlers(svc translation.Service, log logger.Logger) *Handlers {
	return &Handlers{
		Translate: NewTranslateHandler(svc, log),
	}
}
