package core

// QREncoder renders a QR code image for the given content.
type QREncoder interface {
	// Encode returns a PNG image of side length sizePx.
	Encode(content string, sizePx int) ([]byte, error)
}
