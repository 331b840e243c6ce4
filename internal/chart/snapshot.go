package chart

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"divscan/internal/logger"
)

// Snapshot loads a rendered HTML chart in headless Chrome and stores a
// full-page PNG next to it. Requires a local Chrome/Chromium.
func Snapshot(ctx context.Context, htmlPath string) (string, error) {
	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return "", err
	}
	pngPath := strings.TrimSuffix(abs, filepath.Ext(abs)) + ".png"

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(1440, 960),
	)...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var buf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+filepath.ToSlash(abs)),
		chromedp.WaitVisible("canvas", chromedp.ByQuery),
		// echarts animates the first paint.
		chromedp.Sleep(800*time.Millisecond),
		chromedp.FullScreenshot(&buf, 90),
	)
	if err != nil {
		return "", fmt.Errorf("snapshot %s: %w", htmlPath, err)
	}
	if err := os.WriteFile(pngPath, buf, 0o644); err != nil {
		return "", err
	}
	logger.Debugf("[chart] snapshot %s (%d bytes)", pngPath, len(buf))
	return pngPath, nil
}
