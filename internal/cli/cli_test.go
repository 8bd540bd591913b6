package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TWRT/task-manager/internal/models"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := cmd.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "tasks.db")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("LOG_LEVEL", "error")
	return dbPath
}

func TestMigrate(t *testing.T) {
	dbPath := setupEnv(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, dbPath)
	assert.FileExists(t, dbPath)
}

func TestUsersAddAndList(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "users", "add", "--id", "admin-1", "--name", "Ada", "--email", "ADA@example.com", "--role", "admin")
	require.NoError(t, err)
	_, err = run(t, "users", "add", "--name", "Lin", "--email", "lin@example.com")
	require.NoError(t, err)

	_, err = run(t, "users", "add", "--name", "Bad", "--email", "not-an-email")
	assert.Error(t, err)

	out, err := run(t, "users", "list", "--json")
	require.NoError(t, err)
	var users []models.User
	require.NoError(t, json.Unmarshal([]byte(out), &users))
	require.Len(t, users, 2)
	assert.Equal(t, "Ada", users[0].Name)
	assert.Equal(t, "ada@example.com", users[0].Email)
	assert.Equal(t, models.RoleAdmin, users[0].Role)
	assert.Equal(t, models.RoleMember, users[1].Role)

	out, err = run(t, "users", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "admin-1")
}

func TestUsersImport(t *testing.T) {
	setupEnv(t)

	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`users:
  - id: admin-1
    name: Ada
    email: ada@example.com
    role: admin
  - id: user-1
    name: Lin
    email: lin@example.com
`), 0o600))

	out, err := run(t, "users", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 users")

	out, err = run(t, "users", "list", "--json")
	require.NoError(t, err)
	var users []models.User
	require.NoError(t, json.Unmarshal([]byte(out), &users))
	assert.Len(t, users, 2)
}

func TestUsersImport_RejectsUnknownFields(t *testing.T) {
	setupEnv(t)

	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users:\n  - name: Ada\n    password: hunter2\n"), 0o600))

	_, err := run(t, "users", "import", path)
	assert.Error(t, err)
}

func TestServe_RequiresSecret(t *testing.T) {
	setupEnv(t)
	t.Setenv("JWT_SECRET", "")

	_, err := run(t, "serve")
	assert.ErrorContains(t, err, "JWT_SECRET")
}
