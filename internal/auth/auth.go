package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword возвращает bcrypt-хеш пароля.
// Используем bcrypt.DefaultCost - разумный баланс между стойкостью и скоростью.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("ошибка хэширования пароля: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash сравнивает хеш из БД с введенным паролем.
// Соль встроена в сам bcrypt-хеш, отдельно хранить её не нужно.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
