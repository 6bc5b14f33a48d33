package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjunct-search-go/internal/config"
	"adjunct-search-go/pkg/token"
)

func runTokenWith(t *testing.T, email, role string) (string, error) {
	t.Helper()
	config.Conf.JWT = config.JWTConfig{Secret: "test-secret", AccessTokenExpireHours: 1}
	tokenEmail, tokenRole = email, role
	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	err := runToken(cmd, nil)
	return strings.TrimSpace(out.String()), err
}

func TestRunToken(t *testing.T) {
	signed, err := runTokenWith(t, "dean@law.edu", "admin")
	require.NoError(t, err)

	claims, err := token.NewJWTManager("test-secret", 1).VerifyToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "dean@law.edu", claims.Email)
	assert.Equal(t, token.RoleAdmin, claims.Role)
}

func TestRunToken_RejectsUnknownRole(t *testing.T) {
	_, err := runTokenWith(t, "s@law.edu", "student")
	assert.Error(t, err)
}
