package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/FindOutRent/FindOutRent/internal/common/config"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenTypeAccess / TokenTypeRefresh 写入自定义 typ claim，
	// 刷新接口只接受 refresh 类型的 token。
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type Claims struct {
	Role      string `json:"role,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair 登录成功后下发的一对 token。
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// GenerateAccessToken 生成 HS256 JWT access token。
func GenerateAccessToken(cfg config.AuthConfig, subject, role string, ttl time.Duration) (token string, expiresAt time.Time, err error) {
	return generate(cfg, subject, role, TokenTypeAccess, ttl)
}

// GenerateRefreshToken 生成 HS256 JWT refresh token。
func GenerateRefreshToken(cfg config.AuthConfig, subject, role string, ttl time.Duration) (token string, expiresAt time.Time, err error) {
	return generate(cfg, subject, role, TokenTypeRefresh, ttl)
}

// IssueTokens 按配置的有效期同时生成 access + refresh。
func IssueTokens(cfg config.AuthConfig, subject, role string) (*TokenPair, error) {
	accessTTL := time.Duration(cfg.AccessTTLMin) * time.Minute
	refreshTTL := time.Duration(cfg.RefreshTTLHour) * time.Hour

	access, accessExp, err := GenerateAccessToken(cfg, subject, role, accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := GenerateRefreshToken(cfg, subject, role, refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh 校验 refresh token 并签发新的 access token。
func Refresh(cfg config.AuthConfig, refreshToken string) (string, time.Time, error) {
	claims, err := ParseToken(cfg, refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return "", time.Time{}, fmt.Errorf("not a refresh token")
	}
	return GenerateAccessToken(cfg, claims.Subject, claims.Role, time.Duration(cfg.AccessTTLMin)*time.Minute)
}

// ParseToken 校验签名与标准字段（exp/nbf 由 jwt/v5 默认校验），可选校验 iss/aud。
func ParseToken(cfg config.AuthConfig, tokenStr string) (*Claims, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, fmt.Errorf("token is empty")
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return []byte(cfg.JWTSecret), nil
	}, jwt.WithLeeway(30*time.Second))
	if err != nil || parsed == nil || !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, fmt.Errorf("invalid issuer")
	}
	if cfg.Audience != "" && !audienceContains(claims.Audience, cfg.Audience) {
		return nil, fmt.Errorf("invalid audience")
	}
	return claims, nil
}

func generate(cfg config.AuthConfig, subject, role, tokenType string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, fmt.Errorf("subject is empty")
	}
	if cfg.JWTSecret == "" {
		return "", time.Time{}, fmt.Errorf("jwt_secret is empty")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	now := time.Now()
	expiresAt := now.Add(ttl)

	c := Claims{
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    cfg.Issuer,
			Audience:  audience(cfg.Audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := t.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func audience(aud string) jwt.ClaimStrings {
	if aud == "" {
		return nil
	}
	return jwt.ClaimStrings{aud}
}

func audienceContains(aud jwt.ClaimStrings, want string) bool {
	want = strings.TrimSpace(want)
	if want == "" || len(aud) == 0 {
		return false
	}
	for _, v := range aud {
		if strings.TrimSpace(v) == want {
			return true
		}
	}
	return false
}
