package qrcodesvc

import (
	qrcode "github.com/skip2/go-qrcode"

	"github.com/zargarco/zargar/core"
)

type service struct {
	level qrcode.RecoveryLevel
}

var _ core.QREncoder = (*service)(nil)

// NewService returns a PNG encoder at medium recovery level, which keeps
// labels scannable with the small scuffs they pick up on a shop counter.
func NewService() *service {
	return &service{level: qrcode.Medium}
}

func (svc *service) Encode(content string, sizePx int) ([]byte, error) {
	return qrcode.Encode(content, svc.level, sizePx)
}
