package service

import (
	"context"
	"errors"
	"testing"

	"icomm2mqtt/pkg/icomm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSessionLoginOnce(t *testing.T) {

	require := require.New(t)

	svc := icomm.NewTestService()
	session := NewSessionManager(svc, "user@example.com", "secret", zap.NewNop())

	token, err := session.EnsureSession(context.Background())
	require.NoError(err)
	require.Equal("test-access-token", token)

	token, err = session.EnsureSession(context.Background())
	require.NoError(err)
	require.Equal("test-access-token", token)

	login, _, _, _ := svc.Counts()
	assert.Equal(t, 1, login, "token must be cached between calls")
	assert.True(t, session.HasSession())
}

func TestSessionInvalidateForcesRelogin(t *testing.T) {

	require := require.New(t)

	svc := icomm.NewTestService()
	session := NewSessionManager(svc, "user@example.com", "secret", zap.NewNop())

	_, err := session.EnsureSession(context.Background())
	require.NoError(err)

	session.Invalidate()
	assert.False(t, session.HasSession())

	_, err = session.EnsureSession(context.Background())
	require.NoError(err)

	login, _, _, _ := svc.Counts()
	assert.Equal(t, 2, login)
}

func TestSessionLoginError(t *testing.T) {

	require := require.New(t)

	svc := icomm.NewTestService()
	svc.LoginErrs = []error{icomm.ErrLoginFailed}
	session := NewSessionManager(svc, "user@example.com", "secret", zap.NewNop())

	_, err := session.EnsureSession(context.Background())
	require.Error(err)
	require.True(errors.Is(err, icomm.ErrLoginFailed))
	assert.False(t, session.HasSession())
}
