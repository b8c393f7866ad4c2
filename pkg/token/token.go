package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// 角色常量；只有这两种角色可以写入审核数据
const (
	RoleCurator = "curator"
	RoleAdmin   = "admin"
)

const minSecretLength = 16

var (
	ErrInvalidToken = errors.New("无效的身份令牌")
	ErrExpiredToken = errors.New("身份令牌已过期")
	ErrWeakSecret   = fmt.Errorf("签名密钥长度至少为 %d 字节", minSecretLength)
)

// Claims 定义了需要被签名的身份数据。
// 令牌由外部的认证服务签发，本服务只负责校验。
type Claims struct {
	Subject   string `json:"sub"`
	Role      string `json:"role"`
	ExpiresAt int64  `json:"exp"`
}

// IsCurator 判断身份是否具有审核权限
func (c Claims) IsCurator() bool {
	return c.Role == RoleCurator || c.Role == RoleAdmin
}

// Signer 持有HMAC密钥，负责签发与校验令牌。
type Signer struct {
	secret []byte
}

// NewSigner 使用共享密钥创建签名器
func NewSigner(secret string) (*Signer, error) {
	if len(secret) < minSecretLength {
		return nil, ErrWeakSecret
	}
	return &Signer{secret: []byte(secret)}, nil
}

func (s *Signer) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(payload)
	return mac.Sum(nil)
}

// Issue 生成 "<payload>.<signature>" 格式的令牌，两段均为 Base64URL 编码。
func (s *Signer) Issue(claims Claims) (string, error) {
	if claims.Subject == "" {
		return "", errors.New("令牌主体不能为空")
	}
	payloadBytes, err := json.Marshal(claims)
	if err != nil {
		return "", errors.New("无法序列化令牌payload")
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString(payloadBytes) + "." + enc.EncodeToString(s.sign(payloadBytes)), nil
}

// Verify 校验令牌签名与有效期，返回其中的身份数据。
func (s *Signer) Verify(raw string, now time.Time) (Claims, error) {
	payloadB64, sigB64, ok := strings.Cut(raw, ".")
	if !ok || payloadB64 == "" || sigB64 == "" {
		return Claims{}, ErrInvalidToken
	}

	enc := base64.RawURLEncoding
	payloadBytes, err := enc.DecodeString(payloadB64)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	actualSignature, err := enc.DecodeString(sigB64)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	// 时间恒定的比较，防止时序攻击
	if !hmac.Equal(s.sign(payloadBytes), actualSignature) {
		return Claims{}, ErrInvalidToken
	}

	var claims Claims
	if err := json.Unmarshal(payloadBytes, &claims); err != nil || claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	if claims.ExpiresAt != 0 && now.Unix() >= claims.ExpiresAt {
		return Claims{}, ErrExpiredToken
	}
	return claims, nil
}
