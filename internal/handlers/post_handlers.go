package handlers

import (
	// Стандартные библиотеки
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	// Внутренние пакеты
	"realtynet/internal/database"
	"realtynet/internal/guard"
	"realtynet/internal/models"
	"realtynet/internal/response"

	// Сторонние библиотеки
	"github.com/gin-gonic/gin"
)

// PostsDispatch - граница /api/posts. Список и детали активных объявлений
// публичны; создание - только одобренным продавцам; изменение и удаление -
// владельцу либо admin/superuser.
func PostsDispatch(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodGet:
		switch c.Query("action") {
		case "", "list":
			handleGetPosts(c)
		case "detail":
			handleGetPostDetail(c)
		case "my":
			handleGetMyPosts(c)
		default:
			response.BadRequest(c, "Invalid action")
		}
	case http.MethodPost:
		handleCreatePost(c)
	case http.MethodPut:
		handleUpdatePost(c)
	case http.MethodDelete:
		handleDeletePost(c)
	default:
		response.MethodNotAllowed(c)
	}
}

// handleGetPosts - публичный список активных объявлений с фильтрами
// (город, тип, диапазон цены, минимум спален) и пагинацией.
func handleGetPosts(c *gin.Context) {
	page, limit, offset := parsePagination(c, 10, 50)

	filter := database.PostFilter{
		City:         c.Query("city"),
		PropertyType: c.Query("property_type"),
	}
	if v, err := strconv.ParseFloat(c.Query("min_price"), 64); err == nil && v > 0 {
		filter.MinPrice = v
	}
	if v, err := strconv.ParseFloat(c.Query("max_price"), 64); err == nil && v > 0 {
		filter.MaxPrice = v
	}
	if v, err := strconv.ParseInt(c.Query("bedrooms"), 10, 64); err == nil && v > 0 {
		filter.Bedrooms = v
	}

	posts, total, err := database.ListPosts(filter, limit, offset)
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}

	response.Success(c, "Posts retrieved", gin.H{
		"posts": posts,
		"pagination": models.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: totalPages(total, limit),
		},
	})
}

// handleGetPostDetail - публичные детали активного объявления:
// контакты владельца и все изображения, главное первым.
func handleGetPostDetail(c *gin.Context) {
	postID, ok := queryID(c, "id")
	if !ok {
		response.BadRequest(c, "Post ID is required")
		return
	}

	post, err := database.GetActivePostDetail(postID)
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}
	if post == nil {
		response.NotFound(c, "Post not found")
		return
	}
	response.Success(c, "Post detail retrieved", gin.H{"post": post})
}

// handleGetMyPosts - собственные объявления пользователя, включая неактивные.
func handleGetMyPosts(c *gin.Context) {
	principal, err := guard.RequireApproved(c)
	if err != nil {
		response.GuardError(c, err)
		return
	}

	page, limit, offset := parsePagination(c, 10, 50)
	posts, total, err := database.ListMyPosts(principal.UserID, limit, offset)
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}

	response.Success(c, "My posts retrieved", gin.H{
		"posts": posts,
		"pagination": models.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: totalPages(total, limit),
		},
	})
}

type createPostInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	PropertyType string   `json:"property_type"`
	Bedrooms     *int64   `json:"bedrooms"`
	Bathrooms    *int64   `json:"bathrooms"`
	AreaSqm      *float64 `json:"area_sqm"`
	Address      *string  `json:"address"`
	City         *string  `json:"city"`
	State        *string  `json:"state"`
	Country      *string  `json:"country"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

func handleCreatePost(c *gin.Context) {
	principal, err := guard.RequireApproved(c)
	if err != nil {
		response.GuardError(c, err)
		return
	}
	if !principal.CanCreatePosts() {
		response.Forbidden(c, "Only approved sellers can create posts")
		return
	}

	var input createPostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, "Post data is required")
		return
	}

	errors := map[string]string{}
	if input.Title == "" {
		errors["title"] = "Title is required"
	}
	if input.Description == "" {
		errors["description"] = "Description is required"
	}
	if input.Price <= 0 {
		errors["price"] = "Valid price is required"
	}
	if !models.PropertyTypes[input.PropertyType] {
		errors["property_type"] = "Valid property type is required"
	}
	if len(errors) > 0 {
		response.Validation(c, errors)
		return
	}

	post := &models.Post{
		UserID:       principal.UserID,
		Title:        input.Title,
		Description:  input.Description,
		Price:        input.Price,
		PropertyType: input.PropertyType,
	}
	if input.Bedrooms != nil {
		post.Bedrooms.Int64, post.Bedrooms.Valid = *input.Bedrooms, true
	}
	if input.Bathrooms != nil {
		post.Bathrooms.Int64, post.Bathrooms.Valid = *input.Bathrooms, true
	}
	if input.AreaSqm != nil {
		post.AreaSqm.Float64, post.AreaSqm.Valid = *input.AreaSqm, true
	}
	if input.Address != nil {
		post.Address.String, post.Address.Valid = *input.Address, true
	}
	if input.City != nil {
		post.City.String, post.City.Valid = *input.City, true
	}
	if input.State != nil {
		post.State.String, post.State.Valid = *input.State, true
	}
	if input.Country != nil {
		post.Country.String, post.Country.Valid = *input.Country, true
	}
	if input.Latitude != nil {
		post.Latitude.Float64, post.Latitude.Valid = *input.Latitude, true
	}
	if input.Longitude != nil {
		post.Longitude.Float64, post.Longitude.Valid = *input.Longitude, true
	}

	postID, err := database.CreatePost(post)
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}
	response.Success(c, "Post created successfully", gin.H{"post_id": postID})
}

type updatePostInput struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price"`
	PropertyType *string  `json:"property_type"`
	Bedrooms     *int64   `json:"bedrooms"`
	Bathrooms    *int64   `json:"bathrooms"`
	AreaSqm      *float64 `json:"area_sqm"`
	Address      *string  `json:"address"`
	City         *string  `json:"city"`
	State        *string  `json:"state"`
	Country      *string  `json:"country"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Status       *string  `json:"status"`
}

// handleUpdatePost - частичное обновление. Права: владелец или admin/superuser.
func handleUpdatePost(c *gin.Context) {
	principal, err := guard.RequireApproved(c)
	if err != nil {
		response.GuardError(c, err)
		return
	}

	postID, ok := queryID(c, "id")
	if !ok {
		response.BadRequest(c, "Post ID is required")
		return
	}

	post, err := database.GetPostByID(postID)
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}
	if post == nil {
		response.NotFound(c, "Post not found")
		return
	}
	if !principal.CanEditPost(post) {
		response.Forbidden(c, "Cannot edit this post")
		return
	}

	var input updatePostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, "Post data is required")
		return
	}

	// Проверяем значения тех полей, которые реально переданы.
	errors := map[string]string{}
	if input.Title != nil && *input.Title == "" {
		errors["title"] = "Title is required"
	}
	if input.Description != nil && *input.Description == "" {
		errors["description"] = "Description is required"
	}
	if input.Price != nil && *input.Price <= 0 {
		errors["price"] = "Valid price is required"
	}
	if input.PropertyType != nil && !models.PropertyTypes[*input.PropertyType] {
		errors["property_type"] = "Valid property type is required"
	}
	if input.Status != nil && *input.Status != models.PostActive && *input.Status != models.PostInactive {
		errors["status"] = "Valid status is required"
	}
	if len(errors) > 0 {
		response.Validation(c, errors)
		return
	}

	upd := database.PostUpdate{
		Title:        input.Title,
		Description:  input.Description,
		Price:        input.Price,
		PropertyType: input.PropertyType,
		Bedrooms:     input.Bedrooms,
		Bathrooms:    input.Bathrooms,
		AreaSqm:      input.AreaSqm,
		Address:      input.Address,
		City:         input.City,
		State:        input.State,
		Country:      input.Country,
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
		Status:       input.Status,
	}
	if err := database.UpdatePost(postID, upd); err != nil {
		response.StorageError(c, err, "Post not found", "No valid fields to update")
		return
	}
	response.Success(c, "Post updated successfully", nil)
}

// handleDeletePost удаляет объявление. Записи изображений уходят каскадно,
// файлы убираем с диска сами - их имена забираются ДО удаления строк.
func handleDeletePost(c *gin.Context) {
	principal, err := guard.RequireApproved(c)
	if err != nil {
		response.GuardError(c, err)
		return
	}

	postID, ok := queryID(c, "id")
	if !ok {
		response.BadRequest(c, "Post ID is required")
		return
	}

	post, err := database.GetPostByID(postID)
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}
	if post == nil {
		response.NotFound(c, "Post not found")
		return
	}
	if !principal.CanDeletePost(post) {
		response.Forbidden(c, "Cannot delete this post")
		return
	}

	images, err := database.ListPostImages(postID)
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}

	if err := database.DeletePost(postID); err != nil {
		response.StorageError(c, err, "Post not found", "")
		return
	}

	// Файлы чистим после фиксации удаления в БД; неудача здесь не
	// откатывает операцию, только попадает в лог.
	for _, img := range images {
		path := filepath.Join(uploadDir(), img.Filename)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("ПРЕДУПРЕЖДЕНИЕ: не удалось удалить файл %s после удаления объявления %d: %v", path, postID, err)
		}
	}

	response.Success(c, "Post deleted successfully", nil)
}
