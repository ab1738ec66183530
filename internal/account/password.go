package account

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen 修改密码时新密码的最小长度。
const MinPasswordLen = 8

// HashPassword bcrypt 哈希，明文不落库。
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword 校验明文与已存哈希是否匹配。
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
