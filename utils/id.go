package utils

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// GenerateRequestID identifie une demande de rapport (nom des fichiers csv/xlsx)
func GenerateRequestID() string {
	return uuid.NewString()
}

func RandomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
