package pdfx

import "fmt"

// Reference dimensions of a rendered signature box. Field rectangles are
// expressed relative to these when computing the overlay scale.
const (
	refSignatureWidth  = 200.0
	refSignatureHeight = 50.0
	stampOffsetY       = 60.0
)

// Placement is a rectangle on a document page, in PDF points with a
// bottom-left origin, telling the renderer where a mark belongs.
type Placement struct {
	Page   int
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Overlay is one image stamped onto a page: the image file plus a pdfcpu
// watermark description positioning it.
type Overlay struct {
	ImagePath string
	Desc      string
}

// RenderOverlays produces the overlay list for one signing event: the
// signature image (when captured) anchored at the placement origin, and the
// stamp image (when uploaded) a fixed offset below it. Without a placement
// both images render unscaled at the page origin.
//
// The overlay target is always the first page, regardless of the declared
// placement page; multi-page targeting is intentionally not supported.
func RenderOverlays(signatureImagePath, stampImagePath string, placement *Placement) []Overlay {
	var overlays []Overlay

	offX, offY := 0.0, 0.0
	scale := 1.0
	if placement != nil {
		offX, offY = placement.X, placement.Y
		scale = placement.Width / refSignatureWidth
	}

	if signatureImagePath != "" {
		overlays = append(overlays, Overlay{
			ImagePath: signatureImagePath,
			Desc:      watermarkDesc(offX, offY, scale),
		})
	}

	if stampImagePath != "" {
		stampScale := scale
		if placement != nil && placement.Height > 0 {
			stampScale = placement.Height / refSignatureHeight
		}
		overlays = append(overlays, Overlay{
			ImagePath: stampImagePath,
			Desc:      watermarkDesc(offX, offY-stampOffsetY, stampScale),
		})
	}

	return overlays
}

func watermarkDesc(offX, offY, scale float64) string {
	return fmt.Sprintf("pos:bl, off:%.2f %.2f, scale:%.2f abs, rot:0", offX, offY, scale)
}
