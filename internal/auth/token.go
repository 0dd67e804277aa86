package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	// TokenPrefix identifies structured bridge tokens.
	TokenPrefix = "awspc"
	randomBytes = 32
	randomLen   = 43
	checksumLen = 6
)

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

var (
	newTokenPattern    = regexp.MustCompile(`^awspc_[A-Za-z0-9]{43}_[A-Za-z0-9]{6}$`)
	legacyTokenPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{32,64}$`)
)

func encodeBase62(data []byte) string {
	num := new(big.Int).SetBytes(data)
	if num.Sign() == 0 {
		return string(base62Alphabet[0])
	}

	base := big.NewInt(int64(len(base62Alphabet)))
	mod := new(big.Int)
	var out []byte
	for num.Sign() > 0 {
		num.DivMod(num, base, mod)
		out = append(out, base62Alphabet[mod.Int64()])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return string(out)
}

func checksum(randomPart string) string {
	crc := crc32.ChecksumIEEE([]byte(randomPart))
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], crc)
	sum := encodeBase62(buf[:])
	if len(sum) < checksumLen {
		sum = strings.Repeat("0", checksumLen-len(sum)) + sum
	}
	return sum
}

// GenerateToken produces a token of the form awspc_<random>_<checksum>
// (56 characters total) from cryptographically random bytes.
func GenerateToken() (string, error) {
	buf := make([]byte, randomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	randomPart := encodeBase62(buf)
	if len(randomPart) > randomLen {
		randomPart = randomPart[:randomLen]
	}
	if len(randomPart) < randomLen {
		randomPart += strings.Repeat("0", randomLen-len(randomPart))
	}

	return fmt.Sprintf("%s_%s_%s", TokenPrefix, randomPart, checksum(randomPart)), nil
}

// ValidateFormat checks a token's shape and embedded checksum. It is
// pure: no storage is touched, so obviously-wrong tokens are rejected
// before any I/O. Legacy unstructured tokens still pass, with a
// warning per acceptance so operators can track migration.
func ValidateFormat(token string) bool {
	if token == "" {
		return false
	}

	if newTokenPattern.MatchString(token) {
		parts := strings.Split(token, "_")
		if checksum(parts[1]) != parts[2] {
			logrus.Warn("API token checksum validation failed")
			return false
		}
		return true
	}

	// Anything claiming the structured prefix must match it exactly.
	if strings.HasPrefix(token, TokenPrefix+"_") {
		return false
	}
	// Three underscore-separated parts look structured; wrong prefix.
	if len(strings.Split(token, "_")) == 3 {
		return false
	}

	if legacyTokenPattern.MatchString(token) && !strings.Contains(token, "__") {
		logrus.Warn("Legacy API token format accepted - rotate to the structured format")
		return true
	}
	return false
}

type tokenFile struct {
	APIToken string `json:"api_token"`
}

// TokenManager owns the single stored API token. The token file is
// the only state this service writes.
type TokenManager struct {
	fs    afero.Fs
	path  string
	mu    sync.RWMutex
	token string
}

func NewTokenManager(fs afero.Fs, path string) *TokenManager {
	return &TokenManager{fs: fs, path: path}
}

// LoadOrCreate returns the stored token, generating and persisting a
// new one when the file is missing or holds an invalid token.
func (m *TokenManager) LoadOrCreate() (string, error) {
	data, err := afero.ReadFile(m.fs, m.path)
	if err == nil {
		var stored tokenFile
		if jsonErr := json.Unmarshal(data, &stored); jsonErr == nil && ValidateFormat(stored.APIToken) {
			m.mu.Lock()
			m.token = stored.APIToken
			m.mu.Unlock()
			return stored.APIToken, nil
		}
		logrus.Warn("Stored API token is invalid, generating a new one")
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	return m.Rotate()
}

// Rotate generates a new token and overwrites the stored one,
// invalidating the previous value immediately.
func (m *TokenManager) Rotate() (string, error) {
	token, err := GenerateToken()
	if err != nil {
		return "", err
	}
	if err := m.save(token); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	logrus.Info("API token rotated")
	return token, nil
}

func (m *TokenManager) save(token string) error {
	data, err := json.MarshalIndent(tokenFile{APIToken: token}, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(m.path)
	if err := m.fs.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := afero.WriteFile(m.fs, m.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	// WriteFile honors the mode only on creation.
	if err := m.fs.Chmod(m.path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict token file permissions: %w", err)
	}
	return nil
}

// Validate checks format and compares against the stored token.
func (m *TokenManager) Validate(token string) bool {
	if !ValidateFormat(token) {
		return false
	}

	m.mu.RLock()
	stored := m.token
	m.mu.RUnlock()
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(stored)) == 1
}
