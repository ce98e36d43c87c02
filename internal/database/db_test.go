package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"realtynet/internal/models"
)

// setupTestDB поднимает чистую базу в temp-директории теста.
// Пул глобальный, поэтому тесты пакета не параллелятся.
func setupTestDB(t *testing.T) {
	t.Helper()
	require.NoError(t, InitDB(filepath.Join(t.TempDir(), "test.db")))
	t.Cleanup(func() {
		if DB != nil {
			DB.Close()
		}
	})
}

// createApprovedUser - типовая фикстура: пользователь сразу в статусе approved.
func createApprovedUser(t *testing.T, username string, role models.Role) int64 {
	t.Helper()
	id, err := CreateUser(username, username+"@example.com", "hash", role, "", "", "")
	require.NoError(t, err)
	require.NoError(t, ApproveUser(id))
	return id
}

func createActivePost(t *testing.T, userID int64, title string) int64 {
	t.Helper()
	id, err := CreatePost(&models.Post{
		UserID:       userID,
		Title:        title,
		Description:  "Test description",
		Price:        100000,
		PropertyType: "house",
	})
	require.NoError(t, err)
	return id
}
