package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"

	"hrpay/internal/platform/logger"
	"hrpay/internal/platform/metrics"
)

const (
	keySize   = 32
	nonceSize = 12
	tagSize   = 16

	hkdfInfo = "hrpay field cipher v1"
)

var (
	// ErrDecryption is wrapped by every Decrypt failure.
	ErrDecryption = errors.New("field decryption failed")
	// ErrCipherUnavailable means no key is configured.
	ErrCipherUnavailable = errors.New("field cipher key not configured")
)

// Service encrypts individual field values into self-contained
// "iv:tag:ciphertext" tokens using AES-256-GCM.
type Service struct {
	key     []byte
	log     logger.Logger
	metrics *metrics.Collector

	warnOnce sync.Once
}

type Option func(*Service)

func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New builds a Service from the configured secret. An empty secret yields an
// unconfigured Service whose Encrypt passes plaintext through.
func New(key string, opts ...Option) (*Service, error) {
	s := &Service{log: logger.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return s, nil
	}
	decoded := decodeKey(key)
	if len(decoded) != keySize {
		derived, err := deriveKey(decoded)
		if err != nil {
			return nil, errors.Wrap(err, "derive DATA_ENCRYPTION_KEY")
		}
		s.log.Warnf("DATA_ENCRYPTION_KEY decodes to %d bytes, deriving a 32-byte key with HKDF", len(decoded))
		decoded = derived
	}
	s.key = decoded
	return s, nil
}

func (s *Service) Configured() bool {
	return s != nil && len(s.key) == keySize
}

// Encrypt seals plaintext under a fresh nonce. Without a key the plaintext is
// returned unchanged.
func (s *Service) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	if !s.Configured() {
		s.unavailable()
		return plaintext, nil
	}
	gcm, err := s.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Wrap(err, "read nonce")
	}
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	body, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]
	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(body),
	}, ":"), nil
}

func (s *Service) Decrypt(token string) (string, error) {
	plain, err := s.decrypt(token)
	if err != nil {
		s.metrics.DecryptFailed()
		return "", err
	}
	return plain, nil
}

func (s *Service) decrypt(token string) (string, error) {
	if !s.Configured() {
		return "", errors.Wrap(ErrDecryption, ErrCipherUnavailable.Error())
	}
	nonce, tag, body, ok := splitToken(token)
	if !ok {
		return "", errors.Wrap(ErrDecryption, "malformed token")
	}
	gcm, err := s.aead()
	if err != nil {
		return "", errors.Wrap(ErrDecryption, err.Error())
	}
	plain, err := gcm.Open(nil, nonce, append(body, tag...), nil)
	if err != nil {
		return "", errors.Wrap(ErrDecryption, "authentication failed")
	}
	return string(plain), nil
}

func (s *Service) EncryptFloat(v float64) (string, error) {
	return s.Encrypt(strconv.FormatFloat(v, 'f', -1, 64))
}

func (s *Service) DecryptFloat(token string) (float64, error) {
	plain, err := s.Decrypt(token)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(plain), 64)
	if err != nil {
		return 0, errors.Wrap(ErrDecryption, "decrypted value is not numeric")
	}
	return v, nil
}

// LooksEncrypted reports whether s has the token shape, without checking the
// tag.
func LooksEncrypted(s string) bool {
	_, _, _, ok := splitToken(s)
	return ok
}

// GenerateKey returns a random hex-encoded 32-byte key.
func GenerateKey() (string, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", errors.Wrap(err, "read key")
	}
	return hex.EncodeToString(key), nil
}

func (s *Service) unavailable() {
	s.metrics.CipherUnavailable()
	s.warnOnce.Do(func() {
		s.log.Warnf("%v: sensitive fields are being stored as plaintext", ErrCipherUnavailable)
	})
	s.log.Debugf("field cipher passthrough")
}

func (s *Service) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}

func splitToken(token string) (nonce, tag, body []byte, ok bool) {
	parts := strings.Split(strings.TrimSpace(token), ":")
	if len(parts) != 3 {
		return nil, nil, nil, false
	}
	decoded := make([][]byte, 3)
	for i, part := range parts {
		if part == "" && i != 2 {
			return nil, nil, nil, false
		}
		b, err := base64.StdEncoding.DecodeString(part)
		if err != nil {
			return nil, nil, nil, false
		}
		decoded[i] = b
	}
	if len(decoded[0]) != nonceSize || len(decoded[1]) != tagSize {
		return nil, nil, nil, false
	}
	return decoded[0], decoded[1], decoded[2], true
}

func decodeKey(raw string) []byte {
	if len(raw) == 64 {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return decoded
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(raw); err == nil {
		return decoded
	}
	return []byte(raw)
}

func deriveKey(secret []byte) ([]byte, error) {
	out := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)), out); err != nil {
		return nil, err
	}
	return out, nil
}
