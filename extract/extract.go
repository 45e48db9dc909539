package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/meghashyamc/buzee/logger"
)

const (
	defaultOCRCommand    = "tesseract"
	defaultPDFRasterizer = "pdftoppm"
	defaultOCRTimeout    = 2 * time.Minute
)

type Options struct {
	Runner        CommandRunner
	OCRCommand    string
	PDFRasterizer string
	OCRTimeout    time.Duration
}

// Extractor turns a file on disk into plain text, choosing the adapter by extension.
type Extractor struct {
	logger logger.Logger
	ocr    *ocr
}

type adapter func(e *Extractor, ctx context.Context, path string) (string, error)

var adapters = map[string]adapter{
	"txt":  func(_ *Extractor, _ context.Context, path string) (string, error) { return extractPlainText(path) },
	"md":   func(_ *Extractor, _ context.Context, path string) (string, error) { return extractPlainText(path) },
	"csv":  func(_ *Extractor, _ context.Context, path string) (string, error) { return extractCSV(path) },
	"docx": func(_ *Extractor, _ context.Context, path string) (string, error) { return extractDocx(path) },
	"pptx": func(_ *Extractor, _ context.Context, path string) (string, error) { return extractPptx(path) },
	"xlsx": func(_ *Extractor, _ context.Context, path string) (string, error) { return extractXlsx(path) },
	"epub": func(_ *Extractor, _ context.Context, path string) (string, error) { return extractEpub(path) },
	"mobi": func(_ *Extractor, _ context.Context, path string) (string, error) { return extractMobi(path) },
	"svg":  func(_ *Extractor, _ context.Context, path string) (string, error) { return extractSVG(path) },
	"pdf":  (*Extractor).extractPDF,
	"png":  (*Extractor).extractImage,
	"jpg":  (*Extractor).extractImage,
	"jpeg": (*Extractor).extractImage,
}

func New(logger logger.Logger, opts Options) *Extractor {
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.OCRCommand == "" {
		opts.OCRCommand = defaultOCRCommand
	}
	if opts.PDFRasterizer == "" {
		opts.PDFRasterizer = defaultPDFRasterizer
	}
	if opts.OCRTimeout <= 0 {
		opts.OCRTimeout = defaultOCRTimeout
	}

	return &Extractor{
		logger: logger,
		ocr: &ocr{
			runner:     opts.Runner,
			command:    opts.OCRCommand,
			rasterizer: opts.PDFRasterizer,
			timeout:    opts.OCRTimeout,
		},
	}
}

// SupportedExtensions lists every extension with an adapter, sorted.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(adapters))
	for ext := range adapters {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func Supports(ext string) bool {
	_, ok := adapters[normalizeExt(ext)]
	return ok
}

// Extract returns the text of the file at path. A panicking adapter is reported as an
// ExtractionError instead of taking the caller down.
func (e *Extractor) Extract(ctx context.Context, path string) (text string, err error) {
	ext := normalizeExt(filepath.Ext(path))
	extract, ok := adapters[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}

	if _, err := os.Stat(path); err != nil {
		return "", failure(path, "stat", err)
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extractor panicked", "path", path, "panic", fmt.Sprint(r))
			text, err = "", failure(path, fmt.Sprintf("panic: %v", r), nil)
		}
	}()

	e.logger.Debug("extracting text", "path", path, "file_type", ext)

	text, err = extract(e, ctx, path)
	if err != nil {
		var extractionErr *ExtractionError
		if errors.As(err, &extractionErr) {
			return "", err
		}
		return "", failure(path, ext, err)
	}
	return text, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
