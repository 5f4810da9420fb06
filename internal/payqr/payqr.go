// Package payqr renders UPI deep links as QR images users can scan from any UPI app.
package payqr

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const DefaultSize = 256

var ErrNoUPIID = errors.New("upi id is not configured")

// UPIURI builds a upi://pay link with the amount pre-filled in whole rupees.
func UPIURI(upiID, payee string, amount int64, note string) (string, error) {
	upiID = strings.TrimSpace(upiID)
	if upiID == "" {
		return "", ErrNoUPIID
	}
	parts := []string{"pa=" + url.PathEscape(upiID)}
	if payee = strings.TrimSpace(payee); payee != "" {
		parts = append(parts, "pn="+url.PathEscape(payee))
	}
	if amount > 0 {
		parts = append(parts, fmt.Sprintf("am=%d.00", amount))
	}
	parts = append(parts, "cu=INR")
	if note = strings.TrimSpace(note); note != "" {
		parts = append(parts, "tn="+url.PathEscape(note))
	}
	return "upi://pay?" + strings.Join(parts, "&"), nil
}

func PNG(content string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("build qr code: %w", err)
	}
	png, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	return png, nil
}
