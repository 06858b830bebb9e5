// Package pipeline drives a document translation end to end: parse,
// layout detection, formula shielding, cached translation and layout
// rebuild.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdf2zh/pdf2zh/internal/cache"
	"github.com/pdf2zh/pdf2zh/internal/layout"
	"github.com/pdf2zh/pdf2zh/internal/models"
	"github.com/pdf2zh/pdf2zh/internal/pdf"
	"github.com/pdf2zh/pdf2zh/internal/translator"
	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

const (
	defaultThreads = 4
	maxRetries     = 3
	baseRetryDelay = 2 * time.Second
)

// Stage names reported through the progress callback.
const (
	StageParsing     = "parsing"
	StageLayout      = "layout"
	StageTranslating = "translating"
	StageGenerating  = "generating"
)

// Progress 任务进度快照
type Progress struct {
	Stage       string `json:"stage"`
	Percent     int    `json:"percent"`
	TotalBlocks int    `json:"total_blocks"`
	DoneBlocks  int    `json:"done_blocks"`
}

// ProgressFunc receives progress snapshots. May be nil.
type ProgressFunc func(Progress)

// Result 翻译产物
type Result struct {
	MonoPath         string `json:"mono_path"`
	DualPath         string `json:"dual_path"`
	Pages            int    `json:"pages"`
	TotalBlocks      int    `json:"total_blocks"`
	TranslatedBlocks int    `json:"translated_blocks"`
	CachedBlocks     int    `json:"cached_blocks"`
}

// Pipeline wires the stages together. Construct with New.
type Pipeline struct {
	parser     *pdf.Parser
	detector   layout.Detector
	translator translator.Translator
	cache      cache.Cache
	shield     *pdf.Shield
	writer     *pdf.Writer
	threads    int
	log        logger.Logger
}

// Config collects the pipeline collaborators.
type Config struct {
	Detector   layout.Detector
	Translator translator.Translator
	Cache      cache.Cache
	Writer     *pdf.Writer
	Options    models.TranslationOptions
	Logger     logger.Logger
}

func New(cfg Config) (*Pipeline, error) {
	if cfg.Translator == nil {
		return nil, errors.New("pipeline needs a translator")
	}
	shield, err := pdf.NewShield(cfg.Options.FontRegex, cfg.Options.CharRegex)
	if err != nil {
		return nil, err
	}

	threads := cfg.Options.Threads
	if threads <= 0 {
		threads = defaultThreads
	}
	c := cfg.Cache
	if c == nil {
		c = cache.Nop{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}
	writer := cfg.Writer
	if writer == nil {
		writer = pdf.NewWriter("", log)
	}

	return &Pipeline{
		parser:     pdf.NewParser(),
		detector:   cfg.Detector,
		translator: cfg.Translator,
		cache:      c,
		shield:     shield,
		writer:     writer,
		threads:    threads,
		log:        log,
	}, nil
}

// Run translates inputPath and writes both output variants into outputDir.
func (p *Pipeline) Run(ctx context.Context, inputPath, outputDir, pageSpec string, report ProgressFunc) (*Result, error) {
	notify := func(pr Progress) {
		if report != nil {
			report(pr)
		}
	}

	notify(Progress{Stage: StageParsing})
	info, err := p.parser.GetInfo(inputPath)
	if err != nil {
		return nil, err
	}
	if !info.IsTextPDF {
		return nil, pdf.NewError(pdf.ErrNoText,
			"document has no extractable text layer, scanned PDFs are not supported", nil)
	}

	pages, err := pdf.ParsePageRange(pageSpec, info.PageCount)
	if err != nil {
		return nil, err
	}

	blocks, err := p.parser.ExtractBlocks(inputPath, pages)
	if err != nil {
		return nil, err
	}
	p.log.Info("document parsed",
		logger.String("file", info.FileName),
		logger.Int("pages", info.PageCount),
		logger.Int("blocks", len(blocks)))

	notify(Progress{Stage: StageLayout, Percent: 10, TotalBlocks: len(blocks)})
	translatable, _ := p.splitByLayout(ctx, inputPath, blocks)

	notify(Progress{Stage: StageTranslating, Percent: 20, TotalBlocks: len(blocks)})
	translated, cachedCount, err := p.translateBlocks(ctx, translatable, func(done int) {
		pct := 20
		if len(translatable) > 0 {
			pct += done * 60 / len(translatable)
		}
		notify(Progress{
			Stage:       StageTranslating,
			Percent:     pct,
			TotalBlocks: len(blocks),
			DoneBlocks:  done,
		})
	})
	if err != nil {
		return nil, err
	}

	notify(Progress{Stage: StageGenerating, Percent: 80, TotalBlocks: len(blocks)})
	stem := strings.TrimSuffix(info.FileName, filepath.Ext(info.FileName))
	monoPath := filepath.Join(outputDir, stem+"-zh.pdf")
	dualPath := filepath.Join(outputDir, stem+"-dual.pdf")

	if err := p.writer.WriteMono(inputPath, monoPath, translated); err != nil {
		return nil, err
	}
	if err := p.writer.WriteDual(inputPath, monoPath, dualPath); err != nil {
		return nil, err
	}

	notify(Progress{Stage: StageGenerating, Percent: 100, TotalBlocks: len(blocks), DoneBlocks: len(translatable)})
	return &Result{
		MonoPath:         monoPath,
		DualPath:         dualPath,
		Pages:            info.PageCount,
		TotalBlocks:      len(blocks),
		TranslatedBlocks: len(translated),
		CachedBlocks:     cachedCount,
		// kept blocks stay verbatim in the output, nothing to count
	}, nil
}

// splitByLayout drops blocks that sit inside masked layout regions
// (figures, tables, isolated formulas) or are formula material themselves.
func (p *Pipeline) splitByLayout(ctx context.Context, inputPath string, blocks []pdf.TextBlock) (translatable, kept []pdf.TextBlock) {
	masksByPage := make(map[int][]layout.Element)
	if p.detector != nil {
		seen := make(map[int]bool)
		for _, b := range blocks {
			if seen[b.Page] {
				continue
			}
			seen[b.Page] = true
			elements, err := p.detector.DetectPage(ctx, inputPath, b.Page)
			if err != nil {
				p.log.Warn("layout detection failed, translating whole page",
					logger.Int("page", b.Page), logger.Error(err))
				continue
			}
			for _, el := range elements {
				if layout.Masked(el.Type) {
					masksByPage[b.Page] = append(masksByPage[b.Page], el)
				}
			}
		}
	}

	for _, b := range blocks {
		if b.Kind == pdf.KindFormula || p.shield.ProtectedFont(b.FontName) {
			kept = append(kept, b)
			continue
		}
		if insideMask(masksByPage[b.Page], b) {
			kept = append(kept, b)
			continue
		}
		translatable = append(translatable, b)
	}
	return translatable, kept
}

func insideMask(masks []layout.Element, b pdf.TextBlock) bool {
	cx := b.X + b.Width/2
	cy := b.Y + b.Height/2
	for _, m := range masks {
		if m.BoundingBox.Contains(cx, cy) {
			return true
		}
	}
	return false
}

// translateBlocks resolves each block through the cache or the provider,
// running up to p.threads provider calls in parallel.
func (p *Pipeline) translateBlocks(ctx context.Context, blocks []pdf.TextBlock, onDone func(int)) ([]pdf.TranslatedBlock, int, error) {
	results := make([]pdf.TranslatedBlock, len(blocks))

	var (
		mu     sync.Mutex
		done   int
		cached int
	)
	finish := func(fromCache bool) {
		mu.Lock()
		done++
		if fromCache {
			cached++
		}
		d := done
		mu.Unlock()
		if onDone != nil {
			onDone(d)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, p.threads)

	for i, block := range blocks {
		i, block := i, block
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			if hit, ok, err := p.cache.Get(gctx, block.Text); err == nil && ok {
				results[i] = pdf.TranslatedBlock{TextBlock: block, TranslatedText: hit, FromCache: true}
				finish(true)
				return nil
			}

			masked, vars := p.shield.Mask(block.Text)
			out, err := p.translateWithRetry(gctx, masked)
			if err != nil {
				return fmt.Errorf("block %s: %w", block.ID, err)
			}
			out = p.shield.Restore(out, vars)

			if err := p.cache.Set(gctx, block.Text, out); err != nil {
				p.log.Debug("cache write failed", logger.Error(err))
			}
			results[i] = pdf.TranslatedBlock{TextBlock: block, TranslatedText: out}
			finish(false)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return results, cached, nil
}

func (p *Pipeline) translateWithRetry(ctx context.Context, text string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay << (attempt - 1)
			var rateErr *translator.RateLimitError
			if errors.As(lastErr, &rateErr) {
				delay *= 2
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		out, err := p.translator.Translate(ctx, text)
		if err == nil {
			return out, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		lastErr = err
		p.log.Warn("translation attempt failed",
			logger.Int("attempt", attempt+1),
			logger.Error(err))
	}
	return "", fmt.Errorf("translation failed after %d retries: %w", maxRetries, lastErr)
}
