package auth_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/goalkeeper/internal/client/auth"
	"github.com/dmitrijs2005/goalkeeper/internal/logging"
	"github.com/dmitrijs2005/goalkeeper/internal/server/feed"
	"github.com/dmitrijs2005/goalkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/goalkeeper/internal/server/store"
	"github.com/dmitrijs2005/goalkeeper/internal/shared"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	hub := feed.NewHub()
	h := httpapi.NewHandler(store.NewMemory(hub), hub, log, "test-secret", time.Hour)

	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestSignUpSignInSignOut(t *testing.T) {
	url := startServer(t)
	c := auth.NewClient(url)
	ctx := context.Background()

	assert.Empty(t, c.Token())
	assert.Nil(t, c.Current())

	require.NoError(t, c.SignUp(ctx, "a@b.c", "hunter2"))
	require.NotEmpty(t, c.Token())
	require.NotNil(t, c.Current())
	assert.Equal(t, "a@b.c", c.Current().Email)

	err := c.SignUp(ctx, "a@b.c", "hunter2")
	assert.ErrorIs(t, err, shared.ErrEmailAlreadyExists)

	c.SignOut()
	assert.Empty(t, c.Token())
	assert.Nil(t, c.Current())

	err = c.SignIn(ctx, "a@b.c", "wrong!!")
	assert.ErrorIs(t, err, shared.ErrInvalidEmailPassword)

	require.NoError(t, c.SignIn(ctx, "a@b.c", "hunter2"))
	assert.NotEmpty(t, c.Token())
}

func TestSubscribe_ReceivesTransitions(t *testing.T) {
	url := startServer(t)
	c := auth.NewClient(url)
	ctx := context.Background()

	var states []*auth.User
	unsub := c.Subscribe(func(u *auth.User) { states = append(states, u) })
	defer unsub()

	require.Len(t, states, 1)
	assert.Nil(t, states[0], "initial state is delivered immediately")

	require.NoError(t, c.SignUp(ctx, "a@b.c", "hunter2"))
	require.Len(t, states, 2)
	require.NotNil(t, states[1])
	assert.Equal(t, "a@b.c", states[1].Email)

	c.SignOut()
	require.Len(t, states, 3)
	assert.Nil(t, states[2])

	unsub()
	c.SignOut()
	assert.Len(t, states, 3, "no callbacks after unsubscribe")
}

func TestDeleteUser(t *testing.T) {
	url := startServer(t)
	c := auth.NewClient(url)
	ctx := context.Background()

	assert.ErrorIs(t, c.DeleteUser(ctx), shared.ErrNotSignedIn)

	require.NoError(t, c.SignUp(ctx, "a@b.c", "hunter2"))
	require.NoError(t, c.DeleteUser(ctx))
	assert.Nil(t, c.Current())

	err := c.SignIn(ctx, "a@b.c", "hunter2")
	assert.ErrorIs(t, err, shared.ErrInvalidEmailPassword)
}
