package models

// Field is an optional placement rectangle telling the renderer where a
// given signer's mark belongs on a document page. Coordinates are PDF
// points with the origin at the bottom-left corner.
type Field struct {
	ID         string
	DocumentID string
	SignerID   string
	FieldType  string
	Page       int
	X          float64
	Y          float64
	Width      float64
	Height     float64
	Required   bool
}
