package services

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateSecureToken возвращает URL-safe base64 строку из length случайных
// байт криптографического источника ОС. Используется для секрета cookie,
// когда он не задан в окружении.
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("не удалось сгенерировать случайные байты: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
