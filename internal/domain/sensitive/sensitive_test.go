package sensitive

import (
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"hrpay/internal/platform/crypto"
)

func newCipher(t *testing.T, key string) *crypto.Service {
	t.Helper()
	svc, err := crypto.New(key)
	require.NoError(t, err)
	return svc
}

func TestSealValueEncryptsWhenConfigured(t *testing.T) {
	c := newCipher(t, strings.Repeat("11", 32))
	v, err := SealValue(c, 25600)
	require.NoError(t, err)
	require.True(t, v.IsEncrypted())
	require.Equal(t, float64(0), v.Mirror())
	require.True(t, v.Token().Valid)

	n, ok := v.Resolve(c)
	require.True(t, ok)
	require.Equal(t, float64(25600), n)
}

func TestSealValueWithoutKeyIsPlain(t *testing.T) {
	c := newCipher(t, "")
	v, err := SealValue(c, 1800.5)
	require.NoError(t, err)
	require.False(t, v.IsEncrypted())
	require.Equal(t, 1800.5, v.Mirror())
	require.False(t, v.Token().Valid)
	require.Equal(t, 1800.5, v.Or0(c))
}

func TestValueFromColumns(t *testing.T) {
	c := newCipher(t, strings.Repeat("22", 32))
	sealed, err := SealValue(c, 200)
	require.NoError(t, err)

	fromToken := ValueFromColumns(0, sealed.Token())
	require.True(t, fromToken.IsEncrypted())
	require.Equal(t, float64(200), fromToken.Or0(c))

	legacy := ValueFromColumns(4000, sql.NullString{})
	require.False(t, legacy.IsEncrypted())
	require.Equal(t, float64(4000), legacy.Or0(c))

	blank := ValueFromColumns(12, sql.NullString{String: "  ", Valid: true})
	require.False(t, blank.IsEncrypted())

	keyless := ValueFromColumns(0, sql.NullString{String: "1500.75", Valid: true})
	require.False(t, keyless.IsEncrypted())
	require.Equal(t, 1500.75, keyless.Or0(c))

	junk := ValueFromColumns(0, sql.NullString{String: "n/a", Valid: true})
	require.True(t, junk.IsEncrypted())
	require.Nil(t, junk.Ptr(c))
}

func TestTextFromColumnsReadsKeylessPlaintext(t *testing.T) {
	c := newCipher(t, strings.Repeat("66", 32))
	sealed, err := SealText(c, "50100012345678")
	require.NoError(t, err)

	fromToken := TextFromColumns("", sealed.Token())
	require.True(t, fromToken.IsEncrypted())
	require.Equal(t, "50100012345678", fromToken.OrEmpty(c))

	keyless := TextFromColumns("", sql.NullString{String: "KA/BNG/0001", Valid: true})
	require.False(t, keyless.IsEncrypted())
	require.Equal(t, "KA/BNG/0001", keyless.OrEmpty(c))
}

func TestResolveFailuresAreIsolated(t *testing.T) {
	c := newCipher(t, strings.Repeat("33", 32))
	other := newCipher(t, strings.Repeat("44", 32))
	v, err := SealValue(other, 99)
	require.NoError(t, err)

	_, ok := v.Resolve(c)
	require.False(t, ok)
	require.Equal(t, float64(0), v.Or0(c))
	require.Nil(t, v.Ptr(c))
	require.Nil(t, Encrypted("garbage").Ptr(c))
	require.Nil(t, Encrypted("garbage").Ptr(nil))

	textToken, err := c.Encrypt("not-a-number")
	require.NoError(t, err)
	require.Nil(t, Encrypted(textToken).Ptr(c))
}

func TestTextRoundTrip(t *testing.T) {
	c := newCipher(t, strings.Repeat("55", 32))
	sealed, err := SealText(c, "123456789012")
	require.NoError(t, err)
	require.True(t, sealed.IsEncrypted())
	require.Equal(t, "", sealed.Mirror())
	require.Equal(t, "123456789012", sealed.OrEmpty(c))

	empty, err := SealText(c, "")
	require.NoError(t, err)
	require.True(t, empty.IsZero())
	require.Nil(t, empty.Ptr(c))

	legacy := TextFromColumns("HDFC0001234", sql.NullString{})
	require.Equal(t, "HDFC0001234", *legacy.Ptr(c))
}

func TestMask(t *testing.T) {
	tests := []struct {
		value    string
		keepLast int
		want     string
	}{
		{value: "123456789012", keepLast: 4, want: "********9012"},
		{value: "PF12345", keepLast: 3, want: "****345"},
		{value: "1234", keepLast: 4, want: "****"},
		{value: "12", keepLast: 4, want: "**"},
		{value: "", keepLast: 4, want: ""},
		{value: "éèêëà", keepLast: 2, want: "***ëà"},
		{value: "abc", keepLast: -1, want: "***"},
	}
	for _, tc := range tests {
		if got := Mask(tc.value, tc.keepLast); got != tc.want {
			t.Fatalf("Mask(%q, %d) = %q, want %q", tc.value, tc.keepLast, got, tc.want)
		}
	}
}

func TestMaskedTextUsesPlaintextTail(t *testing.T) {
	c := newCipher(t, strings.Repeat("66", 32))
	sealed, err := SealText(c, "50100012345678")
	require.NoError(t, err)

	masked := MaskedText(c, sealed, 4)
	require.NotNil(t, masked)
	require.Equal(t, "**********5678", *masked)

	require.Nil(t, MaskedText(c, EncryptedText("broken"), 4))
}
