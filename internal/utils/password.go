package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100000
	pbkdf2KeyLen     = 32
	saltLen          = 16
)

// Credential 存储的密码凭证：Hashed 或老版本遗留的明文
type Credential struct {
	Salt   string // hex
	Hash   string // hex
	Legacy string // 明文，仅老数据
}

func (c Credential) IsLegacy() bool {
	return c.Salt == "" && c.Hash == ""
}

// String 返回存储格式 salt_hex:hash_hex
func (c Credential) String() string {
	if c.IsLegacy() {
		return c.Legacy
	}
	return c.Salt + ":" + c.Hash
}

// ParseCredential 解析 password_hash 列，不含 ':' 的按明文处理
func ParseCredential(stored string) Credential {
	salt, hash, ok := strings.Cut(stored, ":")
	if !ok {
		return Credential{Legacy: stored}
	}
	return Credential{Salt: salt, Hash: hash}
}

// HashPassword 用 PBKDF2-SHA256 派生 256 位密钥。saltHex 为空时生成随机盐。
func HashPassword(password, saltHex string) (Credential, error) {
	var salt []byte
	if saltHex == "" {
		salt = make([]byte, saltLen)
		if _, err := rand.Read(salt); err != nil {
			return Credential{}, fmt.Errorf("generate salt: %w", err)
		}
	} else {
		var err error
		salt, err = hex.DecodeString(saltHex)
		if err != nil {
			return Credential{}, fmt.Errorf("decode salt: %w", err)
		}
	}

	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	return Credential{
		Salt: hex.EncodeToString(salt),
		Hash: hex.EncodeToString(key),
	}, nil
}

// VerifyPassword 校验密码。明文匹配成功时 shouldRehash=true，由调用方写回新哈希。
// 不匹配或存储格式损坏都只返回 false。
func VerifyPassword(password string, stored Credential) (ok bool, shouldRehash bool) {
	if stored.IsLegacy() {
		if stored.Legacy == "" {
			return false, false
		}
		match := subtle.ConstantTimeCompare([]byte(stored.Legacy), []byte(password)) == 1
		return match, match
	}

	derived, err := HashPassword(password, stored.Salt)
	if err != nil {
		return false, false
	}
	return subtle.ConstantTimeCompare([]byte(derived.Hash), []byte(stored.Hash)) == 1, false
}
