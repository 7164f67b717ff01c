// Package pdfx implements the document pipeline: normalizing uploads to PDF,
// rendering signature overlays and compositing them onto document pages.
package pdfx

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/signvault/internal/common"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultConvertTimeout bounds one external conversion run. LibreOffice can
// take seconds on large documents; it must never hang a scheduler pass.
const DefaultConvertTimeout = 2 * time.Minute

// Converter normalizes an uploaded file to PDF by invoking an external
// headless converter. Already-PDF input is a no-op.
type Converter struct {
	binary  string
	timeout time.Duration
}

// NewConverter builds a converter around the given binary (usually
// "soffice"). A zero timeout falls back to DefaultConvertTimeout.
func NewConverter(binary string, timeout time.Duration) *Converter {
	if binary == "" {
		binary = "soffice"
	}
	if timeout <= 0 {
		timeout = DefaultConvertTimeout
	}
	return &Converter{binary: binary, timeout: timeout}
}

// ToPDF converts the file at path into a PDF next to it and returns the
// resulting path. PDF input is returned unchanged. A run that produces no
// output file fails with common.ErrConversionFailed.
func (c *Converter) ToPDF(ctx context.Context, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return path, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	outDir := filepath.Dir(path)
	cmd := exec.CommandContext(ctx, c.binary, "--headless", "--convert-to", "pdf", "--outdir", outDir, path)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%w: %s: %w (output: %s)", common.ErrConversionFailed, c.binary, err, strings.TrimSpace(string(out)))
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	pdfPath := filepath.Join(outDir, stem+".pdf")
	if _, err := os.Stat(pdfPath); err != nil {
		return "", fmt.Errorf("%w: no output file %s", common.ErrConversionFailed, pdfPath)
	}

	if err := api.ValidateFile(pdfPath, relaxedConfiguration()); err != nil {
		return "", fmt.Errorf("%w: invalid output: %w", common.ErrConversionFailed, err)
	}

	return pdfPath, nil
}

func relaxedConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}
