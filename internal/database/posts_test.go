package database

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtynet/internal/models"
)

func TestListPostsFilters(t *testing.T) {
	setupTestDB(t)
	sellerID := createApprovedUser(t, "seller", models.RoleSeller)

	mk := func(title, city, propertyType string, price float64, bedrooms int64) int64 {
		p := &models.Post{
			UserID:       sellerID,
			Title:        title,
			Description:  "Test description",
			Price:        price,
			PropertyType: propertyType,
			City:         sql.NullString{String: city, Valid: true},
			Bedrooms:     sql.NullInt64{Int64: bedrooms, Valid: true},
		}
		id, err := CreatePost(p)
		require.NoError(t, err)
		return id
	}

	mk("Downtown loft", "Springfield", "apartment", 250000, 2)
	mk("Family house", "Springfield", "house", 480000, 4)
	mk("Country land", "Shelbyville", "land", 90000, 0)

	// Без фильтров - все активные.
	posts, total, err := ListPosts(PostFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, posts, 3)

	// Город - поиск по подстроке.
	_, total, err = ListPosts(PostFilter{City: "spring"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	// Тип - точное совпадение.
	posts, total, err = ListPosts(PostFilter{PropertyType: "house"}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Family house", posts[0].Title)

	// Диапазон цены и минимум спален.
	_, total, err = ListPosts(PostFilter{MinPrice: 100000, MaxPrice: 300000}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	_, total, err = ListPosts(PostFilter{Bedrooms: 3}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

// Порядок списка детерминирован даже при одинаковых created_at:
// id - стабильный разделитель, новые объявления первыми.
func TestListPostsOrderAndPagination(t *testing.T) {
	setupTestDB(t)
	sellerID := createApprovedUser(t, "seller", models.RoleSeller)

	createActivePost(t, sellerID, "first")
	createActivePost(t, sellerID, "second")
	createActivePost(t, sellerID, "third")

	posts, total, err := ListPosts(PostFilter{}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, posts, 2)
	assert.Equal(t, "third", posts[0].Title)
	assert.Equal(t, "second", posts[1].Title)

	posts, _, err = ListPosts(PostFilter{}, 2, 2)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "first", posts[0].Title)
}

func TestInactivePostVisibility(t *testing.T) {
	setupTestDB(t)
	sellerID := createApprovedUser(t, "seller", models.RoleSeller)
	postID := createActivePost(t, sellerID, "Hidden gem")

	status := models.PostInactive
	require.NoError(t, UpdatePost(postID, PostUpdate{Status: &status}))

	// Из публичного списка и деталей объявление пропадает...
	_, total, err := ListPosts(PostFilter{}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	detail, err := GetActivePostDetail(postID)
	require.NoError(t, err)
	assert.Nil(t, detail)

	// ...но владелец видит его в своих объявлениях.
	mine, total, err := ListMyPosts(sellerID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, mine, 1)
	assert.Equal(t, models.PostInactive, mine[0].Status)
}

func TestGetActivePostDetail(t *testing.T) {
	setupTestDB(t)
	sellerID := createApprovedUser(t, "seller", models.RoleSeller)
	first := "Sara"
	require.NoError(t, UpdateUserProfile(sellerID, &first, nil, nil))

	postID := createActivePost(t, sellerID, "With images")
	_, _, err := CreatePostImage(postID, "b.png", "b.png", 10, false)
	require.NoError(t, err)
	_, _, err = CreatePostImage(postID, "c.png", "c.png", 10, true)
	require.NoError(t, err)

	detail, err := GetActivePostDetail(postID)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Equal(t, "seller", detail.Username)
	assert.Equal(t, "Sara", detail.FirstName.String)

	// Главное изображение первым.
	require.Len(t, detail.Images, 2)
	assert.Equal(t, "c.png", detail.Images[0].Filename)
	assert.True(t, detail.Images[0].IsPrimary)

	missing, err := GetActivePostDetail(99999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdatePost(t *testing.T) {
	setupTestDB(t)
	sellerID := createApprovedUser(t, "seller", models.RoleSeller)
	postID := createActivePost(t, sellerID, "Old title")

	title := "New title"
	price := 123456.0
	require.NoError(t, UpdatePost(postID, PostUpdate{Title: &title, Price: &price}))

	post, err := GetPostByID(postID)
	require.NoError(t, err)
	assert.Equal(t, "New title", post.Title)
	assert.Equal(t, 123456.0, post.Price)
	// Нетронутые поля сохраняются.
	assert.Equal(t, "house", post.PropertyType)

	// Пустое обновление и несуществующее объявление различимы по ошибке.
	assert.ErrorIs(t, UpdatePost(postID, PostUpdate{}), ErrConflict)
	assert.ErrorIs(t, UpdatePost(99999, PostUpdate{Title: &title}), ErrNotFound)
}

func TestDeletePostCascadesImages(t *testing.T) {
	setupTestDB(t)
	sellerID := createApprovedUser(t, "seller", models.RoleSeller)
	postID := createActivePost(t, sellerID, "Doomed")

	_, _, err := CreatePostImage(postID, "x.png", "x.png", 10, false)
	require.NoError(t, err)

	require.NoError(t, DeletePost(postID))

	post, err := GetPostByID(postID)
	require.NoError(t, err)
	assert.Nil(t, post)

	// Записи изображений ушли по внешнему ключу.
	images, err := ListPostImages(postID)
	require.NoError(t, err)
	assert.Empty(t, images)

	assert.ErrorIs(t, DeletePost(postID), ErrNotFound)
}
