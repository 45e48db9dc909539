package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CommandRunner runs an external program and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

type ocr struct {
	runner     CommandRunner
	command    string
	rasterizer string
	timeout    time.Duration
}

// image runs the OCR engine on one image and returns the recognised text.
func (o *ocr) image(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	out, err := o.runner.Run(ctx, o.command, path, "stdout")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// pdf rasterises every page of a PDF into a temporary directory and OCRs the pages in order.
func (o *ocr) pdf(ctx context.Context, path string) (string, error) {
	dir, err := os.MkdirTemp("", "buzee-ocr-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	rasterCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	if _, err := o.runner.Run(rasterCtx, o.rasterizer, "-r", "150", "-png", path, filepath.Join(dir, "page")); err != nil {
		return "", err
	}

	pages, err := filepath.Glob(filepath.Join(dir, "page*.png"))
	if err != nil {
		return "", err
	}
	sort.Slice(pages, func(i, j int) bool {
		return pageNumber(pages[i]) < pageNumber(pages[j])
	})

	var text strings.Builder
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		pageText, err := o.image(ctx, page)
		if err != nil {
			return "", err
		}
		if text.Len() > 0 {
			text.WriteByte('\n')
		}
		text.WriteString(pageText)
	}
	return text.String(), nil
}

// pageNumber reads the page index from pdftoppm's page-<n>.png naming.
func pageNumber(path string) int {
	name := strings.TrimSuffix(filepath.Base(path), ".png")
	idx := strings.LastIndexByte(name, '-')
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(name[idx+1:]))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
