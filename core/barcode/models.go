package barcode

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core/catalog"
	"github.com/zargarco/zargar/core/invoice"
)

// Kinds
const (
	KindProduct = "product"
	KindInvoice = "invoice"
)

const codeLen = 10

// Crockford base32: no I, L, O or U, so codes survive handwriting and
// shouting across the shop.
const codeAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

type (
	Barcode struct {
		ID        string    `json:"id"`
		Code      string    `json:"code"`
		Kind      string    `json:"kind"`
		RefID     string    `json:"ref_id"`
		CreatedAt time.Time `json:"created_at"`           // UTC
		RevokedAt time.Time `json:"revoked_at,omitempty"` // UTC; zero means active
	}

	ScanEvent struct {
		ID        string    `json:"id"`
		BarcodeID string    `json:"barcode_id"`
		Station   string    `json:"station,omitempty"`
		ScannedAt time.Time `json:"scanned_at"` // UTC
	}

	// Resolution is what a scanning station gets back for a code.
	Resolution struct {
		Barcode Barcode          `json:"barcode"`
		Revoked bool             `json:"revoked"`
		Product *catalog.Product `json:"product,omitempty"`
		Invoice *invoice.Invoice `json:"invoice,omitempty"`
	}

	GetFilter struct {
		ID   string
		Code string
	}
)

func (b *Barcode) Revoked() bool { return !b.RevokedAt.IsZero() }

// NormalizeCode undoes the usual transcription slips: lowercase input and
// the Crockford aliases I/L for 1 and O for 0.
func NormalizeCode(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case 'I', 'L':
			b.WriteRune('1')
		case 'O':
			b.WriteRune('0')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func generateCode() (string, error) {
	var buf [codeLen]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", errors.Wrap(err, "generating barcode")
	}
	code := make([]byte, codeLen)
	for i, b := range buf {
		code[i] = codeAlphabet[int(b)&31]
	}
	return string(code), nil
}
