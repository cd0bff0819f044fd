package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

type CryptoController struct {
	secretKey string
}

func NewCryptoController(secretKey string) *CryptoController {
	return &CryptoController{
		secretKey: secretKey,
	}
}

// GetSignature returns the hex encoded HMAC-SHA256 of payload.
func (c *CryptoController) GetSignature(payload string) string {
	h := hmac.New(sha256.New, []byte(c.secretKey))
	h.Write([]byte(payload))

	return hex.EncodeToString(h.Sum(nil))
}

func (c *CryptoController) Verify(payload, signature string) bool {
	want, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}

	h := hmac.New(sha256.New, []byte(c.secretKey))
	h.Write([]byte(payload))

	return hmac.Equal(h.Sum(nil), want)
}
