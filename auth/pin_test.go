package auth_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nalsan/peka/auth"
)

func TestValidatePIN(t *testing.T) {
	require.NoError(t, auth.ValidatePIN("0000"))
	require.NoError(t, auth.ValidatePIN("1234"))

	require.ErrorIs(t, auth.ValidatePIN(""), auth.ErrPINRequired)
	for _, bad := range []string{"123", "12345", "12a4", " 123", "١٢٣٤", "12.4"} {
		require.ErrorIs(t, auth.ValidatePIN(bad), auth.ErrPINFormat, "pin %q", bad)
	}
}

func TestHashAndVerifyPIN(t *testing.T) {
	hash, err := auth.HashPIN("1234")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"), hash)

	ok, err := auth.VerifyPIN("1234", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = auth.VerifyPIN("9999", hash)
	require.NoError(t, err)
	require.False(t, ok)

	again, err := auth.HashPIN("1234")
	require.NoError(t, err)
	require.NotEqual(t, hash, again, "salts must differ between hashes")
}

func TestVerifyPINRejectsMalformedHash(t *testing.T) {
	good, err := auth.HashPIN("4321")
	require.NoError(t, err)
	parts := strings.Split(good, "$")

	cases := map[string]string{
		"empty":         "",
		"not phc":       "plaintext",
		"wrong alg":     strings.Replace(good, "argon2id", "argon2i", 1),
		"wrong version": strings.Replace(good, "v=19", "v=16", 1),
		"bad params":    strings.Join([]string{"", parts[1], parts[2], "m=abc,t=2,p=1", parts[4], parts[5]}, "$"),
		"zero time":     strings.Join([]string{"", parts[1], parts[2], "m=19456,t=0,p=1", parts[4], parts[5]}, "$"),
		"huge memory":   strings.Join([]string{"", parts[1], parts[2], "m=99999999,t=1,p=1", parts[4], parts[5]}, "$"),
		"bad salt":      strings.Join([]string{"", parts[1], parts[2], parts[3], "!!!", parts[5]}, "$"),
	}
	for name, encoded := range cases {
		t.Run(name, func(t *testing.T) {
			ok, err := auth.VerifyPIN("4321", encoded)
			require.False(t, ok)
			require.True(t, errors.Is(err, auth.ErrInvalidPINHash), "got %v", err)
		})
	}
}
