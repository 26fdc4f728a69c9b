package present

import (
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QRSize is the edge length, in pixels, of generated PNG codes.
const QRSize = 256

// QRCode renders url as a PNG image.
func QRCode(url string) ([]byte, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, QRSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}

// QRTerminal renders url as block characters for a terminal.
func QRTerminal(url string) (string, error) {
	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return q.ToString(false), nil
}
