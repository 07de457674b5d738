package token

import qrcode "github.com/skip2/go-qrcode"

// QRPNG renders a token payload as a PNG image suitable for display or
// printing. The payload string itself stays usable for manual entry.
func QRPNG(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}
