package auth_test

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nalsan/peka/auth"
)

func TestValidateMasterPassword(t *testing.T) {
	require.NoError(t, auth.ValidateMasterPassword("Tr0ub4dour&3xyz"))

	for _, bad := range []string{
		"",
		"   ",
		"Sh0rt!",
		"alllowercase1!",
		"ALLUPPERCASE1!",
		"NoDigitsHere!!",
		"NoSpecials1234",
	} {
		require.ErrorIs(t, auth.ValidateMasterPassword(bad), auth.ErrWeakPassword, "password %q", bad)
	}
}

func TestValidateMasterPasswordAdvancedScore(t *testing.T) {
	ctx := context.Background()
	opts := auth.DefaultValidateOptions()

	require.ErrorIs(t, auth.ValidateMasterPasswordAdvanced(ctx, "Password123!", opts), auth.ErrWeakPassword)
	require.NoError(t, auth.ValidateMasterPasswordAdvanced(ctx, "vH7#qLz!m2Rw@pX9", opts))
}

func hibpServer(t *testing.T, pw string, count int) *httptest.Server {
	t.Helper()
	sum := sha1.Sum([]byte(pw))
	full := strings.ToUpper(hex.EncodeToString(sum[:]))

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/"+full[:5]) {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "0018A45C4D1DEF81644B54AB7F969B88D65:1\r\n")
		fmt.Fprintf(w, "%s:%d\r\n", full[5:], count)
	}))
}

func TestBreachCheckerFindsSuffix(t *testing.T) {
	srv := hibpServer(t, "hunter2", 17)
	defer srv.Close()

	checker := &auth.BreachChecker{Client: srv.Client(), RangeURL: srv.URL + "/range/", UserAgent: "test"}
	res, err := checker.Check(context.Background(), "hunter2")
	require.NoError(t, err)
	require.True(t, res.Found)
	require.Equal(t, 17, res.Count)

	res, err = checker.Check(context.Background(), "something else")
	require.NoError(t, err)
	require.False(t, res.Found)
}

func TestBreachCheckerIgnoresPadding(t *testing.T) {
	srv := hibpServer(t, "hunter2", 0)
	defer srv.Close()

	checker := &auth.BreachChecker{Client: srv.Client(), RangeURL: srv.URL + "/range/"}
	res, err := checker.Check(context.Background(), "hunter2")
	require.NoError(t, err)
	require.False(t, res.Found)
}

func TestValidateMasterPasswordAdvancedBreach(t *testing.T) {
	const pw = "vH7#qLz!m2Rw@pX9"
	srv := hibpServer(t, pw, 3)
	defer srv.Close()

	opts := auth.ValidateOptions{
		EnableHIBP: true,
		Breach:     &auth.BreachChecker{Client: srv.Client(), RangeURL: srv.URL + "/range/"},
	}
	err := auth.ValidateMasterPasswordAdvanced(context.Background(), pw, opts)
	require.ErrorIs(t, err, auth.ErrWeakPassword)
	require.Contains(t, err.Error(), "3 known breaches")
}

func TestBreachCheckerStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	checker := &auth.BreachChecker{Client: srv.Client(), RangeURL: srv.URL + "/"}
	_, err := checker.Check(context.Background(), "x")
	require.Error(t, err)
}
