package memrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/sksmith/video-shoppe/core"
	"github.com/sksmith/video-shoppe/core/employee"
	"github.com/sksmith/video-shoppe/db/memrepo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmployeeRepo(t *testing.T) {
	ctx := context.Background()
	repo := memrepo.NewEmployeeRepo(memrepo.NewStore())

	e := employee.Employee{Username: "clerk", HashedPassword: "hash", Created: time.Now()}
	require.NoError(t, repo.Create(ctx, &e))
	assert.Error(t, repo.Create(ctx, &e))

	got, err := repo.Get(ctx, "clerk")
	require.NoError(t, err)
	assert.Equal(t, "hash", got.HashedPassword)

	require.NoError(t, repo.Delete(ctx, "clerk"))
	_, err = repo.Get(ctx, "clerk")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "clerk"), core.ErrNotFound)
}
