package pdfx

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// firstPage restricts composition to page 1. Every overlay lands there; see
// RenderOverlays.
var firstPage = []string{"1"}

// DerivedPath returns a sibling path for a new immutable artifact derived
// from in: same directory, original stem, the given suffix and a short
// random component so successive passes never collide.
func DerivedPath(in, suffix string) string {
	dir := filepath.Dir(in)
	stem := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	return filepath.Join(dir, fmt.Sprintf("%s_%s_%s.pdf", stem, suffix, uuid.NewString()[:8]))
}

// ComposeOverlays merges the overlays onto the first page of the PDF at in,
// writing the result to out. The input file is never mutated.
func ComposeOverlays(in, out string, overlays []Overlay) error {
	if len(overlays) == 0 {
		return fmt.Errorf("no overlays to compose")
	}

	conf := relaxedConfiguration()
	src := in
	for i, overlay := range overlays {
		wm, err := api.ImageWatermark(overlay.ImagePath, overlay.Desc, true, false, types.POINTS)
		if err != nil {
			return fmt.Errorf("overlay %d: %w", i, err)
		}

		dst := out
		if src == out {
			// In-place update for every pass after the first.
			dst = ""
		}
		if err := api.AddWatermarksFile(src, dst, firstPage, wm, conf); err != nil {
			return fmt.Errorf("overlay %d: %w", i, err)
		}
		src = out
	}

	return nil
}

// EmbedSignature attaches a detached signature file to the PDF at in,
// producing the sealed artifact at out.
func EmbedSignature(in, out, signatureFile string) error {
	if err := api.AddAttachmentsFile(in, out, []string{signatureFile}, false, relaxedConfiguration()); err != nil {
		return fmt.Errorf("embed signature: %w", err)
	}
	return nil
}
