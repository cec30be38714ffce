// Package sensitive models per-field encrypted values. A field is either a
// plaintext value (legacy rows, or rows written without a configured key) or
// an encrypted token; readers resolve both through one accessor.
package sensitive

import (
	"database/sql"
	"math"
	"strconv"
	"strings"

	"hrpay/internal/platform/crypto"
)

// Cipher is the field cipher as seen by the domain.
type Cipher interface {
	Configured() bool
	Encrypt(plaintext string) (string, error)
	Decrypt(token string) (string, error)
	EncryptFloat(v float64) (string, error)
	DecryptFloat(token string) (float64, error)
}

// Value is a numeric field: Plain(x) or Encrypted(token).
type Value struct {
	plain     float64
	token     string
	encrypted bool
}

func Plain(v float64) Value {
	return Value{plain: v}
}

func Encrypted(token string) Value {
	return Value{token: token, encrypted: true}
}

// SealValue encrypts v. Without a configured key it yields Plain(v).
func SealValue(c Cipher, v float64) (Value, error) {
	token, err := c.EncryptFloat(v)
	if err != nil {
		return Value{}, err
	}
	if !c.Configured() {
		return Plain(v), nil
	}
	return Encrypted(token), nil
}

// ValueFromColumns rebuilds a Value from its mirror column and token column.
// A non-empty token column is authoritative. Rows written before a key was
// configured hold the plain number there instead of a token.
func ValueFromColumns(mirror float64, token sql.NullString) Value {
	raw := strings.TrimSpace(token.String)
	if !token.Valid || raw == "" {
		return Plain(mirror)
	}
	if !crypto.LooksEncrypted(raw) {
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return Plain(n)
		}
	}
	return Encrypted(token.String)
}

func (v Value) IsEncrypted() bool { return v.encrypted }

// Mirror is the value stored in the plaintext column: 0 when encrypted.
func (v Value) Mirror() float64 {
	if v.encrypted {
		return 0
	}
	return v.plain
}

// Token is the value stored in the token column.
func (v Value) Token() sql.NullString {
	if !v.encrypted {
		return sql.NullString{}
	}
	return sql.NullString{String: v.token, Valid: true}
}

// Resolve returns the plaintext number. ok is false when the token does not
// decrypt or does not hold a finite number.
func (v Value) Resolve(c Cipher) (float64, bool) {
	if !v.encrypted {
		if math.IsNaN(v.plain) || math.IsInf(v.plain, 0) {
			return 0, false
		}
		return v.plain, true
	}
	if c == nil {
		return 0, false
	}
	n, err := c.DecryptFloat(v.token)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// Or0 resolves the value, treating any failure as zero.
func (v Value) Or0(c Cipher) float64 {
	n, _ := v.Resolve(c)
	return n
}

// Ptr resolves the value into a presence pointer: nil on failure.
func (v Value) Ptr(c Cipher) *float64 {
	n, ok := v.Resolve(c)
	if !ok {
		return nil
	}
	return &n
}

// Text is a string field: plaintext or an encrypted token.
type Text struct {
	plain     string
	token     string
	encrypted bool
}

func PlainText(s string) Text {
	return Text{plain: s}
}

func EncryptedText(token string) Text {
	return Text{token: token, encrypted: true}
}

// SealText encrypts s. Empty strings stay empty plaintext.
func SealText(c Cipher, s string) (Text, error) {
	if s == "" {
		return Text{}, nil
	}
	token, err := c.Encrypt(s)
	if err != nil {
		return Text{}, err
	}
	if !c.Configured() {
		return PlainText(s), nil
	}
	return EncryptedText(token), nil
}

// TextFromColumns mirrors ValueFromColumns: a token column that does not
// hold a token is legacy plaintext.
func TextFromColumns(plain string, token sql.NullString) Text {
	if !token.Valid || strings.TrimSpace(token.String) == "" {
		return PlainText(plain)
	}
	if !crypto.LooksEncrypted(token.String) {
		return PlainText(token.String)
	}
	return EncryptedText(token.String)
}

func (t Text) IsEncrypted() bool { return t.encrypted }

func (t Text) IsZero() bool { return !t.encrypted && t.plain == "" }

func (t Text) Mirror() string {
	if t.encrypted {
		return ""
	}
	return t.plain
}

func (t Text) Token() sql.NullString {
	if !t.encrypted {
		return sql.NullString{}
	}
	return sql.NullString{String: t.token, Valid: true}
}

func (t Text) Resolve(c Cipher) (string, bool) {
	if !t.encrypted {
		return t.plain, true
	}
	if c == nil {
		return "", false
	}
	plain, err := c.Decrypt(t.token)
	if err != nil {
		return "", false
	}
	return plain, true
}

func (t Text) OrEmpty(c Cipher) string {
	s, _ := t.Resolve(c)
	return s
}

// Ptr resolves the text into a presence pointer: nil on failure or when the
// field is empty.
func (t Text) Ptr(c Cipher) *string {
	s, ok := t.Resolve(c)
	if !ok || s == "" {
		return nil
	}
	return &s
}

const MaskChar = '*'

// Mask hides all but the last keepLast characters of value. Values no longer
// than keepLast are masked completely.
func Mask(value string, keepLast int) string {
	runes := []rune(value)
	if keepLast < 0 {
		keepLast = 0
	}
	if len(runes) <= keepLast {
		return strings.Repeat(string(MaskChar), len(runes))
	}
	hidden := len(runes) - keepLast
	return strings.Repeat(string(MaskChar), hidden) + string(runes[hidden:])
}

// MaskedText decrypts t and masks the plaintext tail. nil when the field is
// empty or undecryptable.
func MaskedText(c Cipher, t Text, keepLast int) *string {
	s := t.Ptr(c)
	if s == nil {
		return nil
	}
	masked := Mask(*s, keepLast)
	return &masked
}
