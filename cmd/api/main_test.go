package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bekicr/universal-clinic/internal/models"
	"github.com/bekicr/universal-clinic/internal/storage/memory"
	"github.com/bekicr/universal-clinic/internal/utils"
)

func TestCreateAdmin(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	user, err := createAdmin(ctx, store, " Root ", "Root@Clinic.io", "supersecret", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, "Root", user.Name)

	stored, err := store.FindUserByEmail(ctx, "root@clinic.io")
	require.NoError(t, err)
	assert.True(t, utils.CheckPasswordHash("supersecret", stored.Password))

	_, err = createAdmin(ctx, store, "Root", "root@clinic.io", "supersecret", "")
	assert.ErrorContains(t, err, "already exists")
}

func TestCreateAdmin_Validation(t *testing.T) {
	store := memory.New()

	_, err := createAdmin(context.Background(), store, "", "a@b.io", "supersecret", "")
	assert.Error(t, err)

	_, err = createAdmin(context.Background(), store, "A", "a@b.io", "short", "")
	assert.ErrorContains(t, err, "at least 8")
}

func TestRootCommand_Subcommands(t *testing.T) {
	root := rootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "create-admin"}, names)

	root.SetArgs([]string{"create-admin", "--name", "x"})
	assert.Error(t, root.Execute())
}
