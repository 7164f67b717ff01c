package models

import "time"

// Document is an uploaded file attached to an envelope. OriginalPath always
// points at the bytes as uploaded; PDFPath is nil until the conversion job
// has produced a PDF artifact, and is advanced to a new artifact by every
// signing pass thereafter.
type Document struct {
	ID           string
	EnvelopeID   string
	Filename     string
	OriginalPath string
	PDFPath      *string
	CreatedAt    time.Time
}

// CurrentPath is the artifact to read for display or compositing:
// the PDF when conversion has happened, the original otherwise.
func (d *Document) CurrentPath() string {
	if d.PDFPath != nil {
		return *d.PDFPath
	}
	return d.OriginalPath
}
