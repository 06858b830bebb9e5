package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdf2zh/pdf2zh/config"
	"github.com/pdf2zh/pdf2zh/internal/cache"
	"github.com/pdf2zh/pdf2zh/internal/downloader"
	"github.com/pdf2zh/pdf2zh/internal/layout"
	"github.com/pdf2zh/pdf2zh/internal/models"
	"github.com/pdf2zh/pdf2zh/internal/pipeline"
	"github.com/pdf2zh/pdf2zh/internal/translator"
	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// 命令行参数
type cliOptions struct {
	pages       string
	langIn      string
	langOut     string
	service     string
	threads     int
	output      string
	fontRegex   string
	charRegex   string
	ignoreCache bool
	verbose     bool
}

func NewRootCommand() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:   "pdf2zh <file-or-url>",
		Short: "翻译科学文献 PDF，保留排版",
		Long: "pdf2zh 将 PDF 文档翻译为目标语言并重排版面，" +
			"输出纯译文（-zh.pdf）和双语对照（-dual.pdf）两个版本。",
		Args: cobra.ExactArgs(1),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd.Context(), args[0], opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.pages, "pages", "p", "", "页码选择，如 1,3-5；默认全部")
	flags.StringVar(&opts.langIn, "li", "en", "源语言")
	flags.StringVar(&opts.langOut, "lo", "zh", "目标语言")
	flags.StringVarP(&opts.service, "service", "s", "google", "翻译服务，service[:model]")
	flags.IntVarP(&opts.threads, "threads", "t", 4, "并发翻译线程数")
	flags.StringVarP(&opts.output, "output", "o", "", "输出目录，默认 pdf2zh_files")
	flags.StringVarP(&opts.fontRegex, "font-regex", "f", "", "公式字体正则，匹配的字体不翻译")
	flags.StringVarP(&opts.charRegex, "char-regex", "c", "", "公式字符正则，匹配的字符不翻译")
	flags.BoolVarP(&opts.ignoreCache, "ignore-cache", "i", false, "跳过翻译缓存")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "输出调试日志")

	return rootCmd
}

func runTranslate(ctx context.Context, input string, opts *cliOptions) error {
	level := "info"
	if opts.verbose {
		level = "debug"
	}
	log, err := logger.NewLogger(
		logger.WithLevel(level),
		logger.WithEncoding("console"),
		logger.WithOutputPaths([]string{"stderr"}),
	)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	outputDir := opts.output
	if outputDir == "" {
		outputDir = config.GetStorageConfig().OutputDir
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	// URL 输入先下载到输出目录
	inputPath, err := downloader.New(outputDir, log).Resolve(ctx, input)
	if err != nil {
		return err
	}

	tr, err := translator.New(opts.service, opts.langIn, opts.langOut)
	if err != nil {
		return err
	}

	c := buildCache(tr.Name(), opts, log)
	defer c.Close()

	detector := layout.NewDetector(config.GetLayoutConfig(), log)
	defer detector.Close()

	p, err := pipeline.New(pipeline.Config{
		Detector:   detector,
		Translator: tr,
		Cache:      c,
		Options: models.TranslationOptions{
			Service:   opts.service,
			LangIn:    opts.langIn,
			LangOut:   opts.langOut,
			Pages:     opts.pages,
			Threads:   opts.threads,
			FontRegex: opts.fontRegex,
			CharRegex: opts.charRegex,
		},
		Logger: log,
	})
	if err != nil {
		return err
	}

	log.Info("translating",
		logger.String("input", inputPath),
		logger.String("service", tr.Name()),
		logger.String("lang", opts.langIn+" -> "+opts.langOut),
	)

	lastPercent := -1
	result, err := p.Run(ctx, inputPath, outputDir, opts.pages, func(pr pipeline.Progress) {
		if pr.Percent == lastPercent {
			return
		}
		lastPercent = pr.Percent
		log.Info("progress",
			logger.String("stage", pr.Stage),
			logger.Int("percent", pr.Percent),
			logger.Int("done", pr.DoneBlocks),
			logger.Int("total", pr.TotalBlocks),
		)
	})
	if err != nil {
		return err
	}

	log.Info("done",
		logger.Int("pages", result.Pages),
		logger.Int("translated", result.TranslatedBlocks),
		logger.Int("cached", result.CachedBlocks),
	)
	fmt.Println(result.MonoPath)
	fmt.Println(result.DualPath)
	return nil
}

// buildCache 选择缓存后端：-i 关闭缓存；Redis 可用则共享缓存，
// 否则回落到本地文件缓存。
func buildCache(service string, opts *cliOptions, log logger.Logger) cache.Cache {
	if opts.ignoreCache {
		return cache.Nop{}
	}
	if rc, err := cache.NewRedisCache(service, opts.langIn, opts.langOut); err == nil {
		return rc
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	path := filepath.Join(cacheDir, "pdf2zh", "cache.json")
	fc, err := cache.NewFileCache(path, service, opts.langIn, opts.langOut)
	if err != nil {
		log.Warn("file cache unavailable", logger.Error(err))
		return cache.Nop{}
	}
	return fc
}
