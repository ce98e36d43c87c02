package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtynet/internal/models"
)

// primaryCount считает изображения с is_primary у объявления.
// Инвариант: ровно одно, пока изображения вообще есть.
func primaryCount(t *testing.T, postID int64) int {
	t.Helper()
	images, err := ListPostImages(postID)
	require.NoError(t, err)
	n := 0
	for _, img := range images {
		if img.IsPrimary {
			n++
		}
	}
	return n
}

func TestFirstImageBecomesPrimary(t *testing.T) {
	setupTestDB(t)
	sellerID := createApprovedUser(t, "seller", models.RoleSeller)
	postID := createActivePost(t, sellerID, "post")

	// Первое изображение становится главным, даже если об этом не просили.
	_, isPrimary, err := CreatePostImage(postID, "a.png", "a.png", 10, false)
	require.NoError(t, err)
	assert.True(t, isPrimary)

	// Последующие без флага главными не становятся.
	_, isPrimary, err = CreatePostImage(postID, "b.png", "b.png", 10, false)
	require.NoError(t, err)
	assert.False(t, isPrimary)

	assert.Equal(t, 1, primaryCount(t, postID))
}

func TestExplicitPrimaryDemotesOthers(t *testing.T) {
	setupTestDB(t)
	sellerID := createApprovedUser(t, "seller", models.RoleSeller)
	postID := createActivePost(t, sellerID, "post")

	_, _, err := CreatePostImage(postID, "a.png", "a.png", 10, false)
	require.NoError(t, err)
	_, _, err = CreatePostImage(postID, "b.png", "b.png", 10, false)
	require.NoError(t, err)

	cID, isPrimary, err := CreatePostImage(postID, "c.png", "c.png", 10, true)
	require.NoError(t, err)
	assert.True(t, isPrimary)

	images, err := ListPostImages(postID)
	require.NoError(t, err)
	require.Len(t, images, 3)
	// Главное - первым в списке, и оно единственное.
	assert.Equal(t, cID, images[0].ID)
	assert.Equal(t, 1, primaryCount(t, postID))
}

func TestDeletePrimaryPromotesLowestID(t *testing.T) {
	setupTestDB(t)
	sellerID := createApprovedUser(t, "seller", models.RoleSeller)
	postID := createActivePost(t, sellerID, "post")

	aID, _, err := CreatePostImage(postID, "a.png", "a.png", 10, false)
	require.NoError(t, err)
	_, _, err = CreatePostImage(postID, "b.png", "b.png", 10, false)
	require.NoError(t, err)
	cID, _, err := CreatePostImage(postID, "c.png", "c.png", 10, true)
	require.NoError(t, err)

	// Удаляем главное: главным становится оставшееся с наименьшим id.
	require.NoError(t, DeletePostImage(cID))

	images, err := ListPostImages(postID)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, aID, images[0].ID)
	assert.True(t, images[0].IsPrimary)
	assert.Equal(t, 1, primaryCount(t, postID))
}

func TestDeleteNonPrimaryKeepsPrimary(t *testing.T) {
	setupTestDB(t)
	sellerID := createApprovedUser(t, "seller", models.RoleSeller)
	postID := createActivePost(t, sellerID, "post")

	aID, _, err := CreatePostImage(postID, "a.png", "a.png", 10, false)
	require.NoError(t, err)
	bID, _, err := CreatePostImage(postID, "b.png", "b.png", 10, false)
	require.NoError(t, err)

	require.NoError(t, DeletePostImage(bID))

	images, err := ListPostImages(postID)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, aID, images[0].ID)
	assert.True(t, images[0].IsPrimary)
}

func TestDeleteMissingImage(t *testing.T) {
	setupTestDB(t)
	assert.ErrorIs(t, DeletePostImage(12345), ErrNotFound)
}

func TestDuplicateFilenameConflict(t *testing.T) {
	setupTestDB(t)
	sellerID := createApprovedUser(t, "seller", models.RoleSeller)
	postID := createActivePost(t, sellerID, "post")

	_, _, err := CreatePostImage(postID, "same.png", "same.png", 10, false)
	require.NoError(t, err)
	_, _, err = CreatePostImage(postID, "same.png", "same.png", 10, false)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestImageLookups(t *testing.T) {
	setupTestDB(t)
	sellerID := createApprovedUser(t, "seller", models.RoleSeller)
	postID := createActivePost(t, sellerID, "post")

	imgID, _, err := CreatePostImage(postID, "a.png", "original.png", 42, false)
	require.NoError(t, err)

	img, ownerID, err := GetImageWithOwner(imgID)
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, sellerID, ownerID)
	assert.Equal(t, "original.png", img.OriginalName.String)

	byName, err := GetImageByFilename("a.png")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, imgID, byName.ID)

	missing, _, err := GetImageWithOwner(9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	missingByName, err := GetImageByFilename("nope.png")
	require.NoError(t, err)
	assert.Nil(t, missingByName)
}
