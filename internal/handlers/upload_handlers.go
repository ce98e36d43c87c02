package handlers

import (
	// Стандартные библиотеки
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	// Внутренние пакеты
	"realtynet/internal/database"
	"realtynet/internal/guard"
	"realtynet/internal/models"
	"realtynet/internal/response"
	"realtynet/internal/services"

	// Сторонние библиотеки
	"github.com/gin-gonic/gin"
)

// UploadsDispatch - граница /api/uploads: загрузка, удаление и отдача
// изображений объявлений.
func UploadsDispatch(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodPost:
		handleImageUpload(c)
	case http.MethodDelete:
		handleImageDelete(c)
	case http.MethodGet:
		handleImageServe(c)
	default:
		response.MethodNotAllowed(c)
	}
}

// parsePrimaryFlag превращает значение формы is_primary в строгий bool.
// Принимаются только "true"/"1" (истина), "false"/"0" и пустая строка (ложь);
// все прочее - ошибка ввода, а не молчаливое приведение к истине.
func parsePrimaryFlag(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "false", "0":
		return false, nil
	case "true", "1":
		return true, nil
	}
	return false, fmt.Errorf("некорректное значение is_primary: %q", raw)
}

// handleImageUpload принимает multipart-файл и привязывает его к объявлению.
// Проверки: права на объявление, размер, расширение, декодируемость.
// Инвариант единственного главного изображения держит слой БД.
func handleImageUpload(c *gin.Context) {
	principal, err := guard.RequireApproved(c)
	if err != nil {
		response.GuardError(c, err)
		return
	}
	if !principal.CanCreatePosts() {
		response.Forbidden(c, "Only approved sellers can upload images")
		return
	}

	postID, err := strconv.ParseInt(c.PostForm("post_id"), 10, 64)
	if err != nil || postID <= 0 {
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
		response.Forbidden(c, "Cannot upload images to this post")
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		response.BadRequest(c, "No image uploaded or upload error")
		return
	}
	if fileHeader.Size == 0 {
		response.BadRequest(c, "Uploaded file is empty")
		return
	}
	if fileHeader.Size > MaxUploadSize {
		response.BadRequest(c, fmt.Sprintf("File too large. Maximum size is %dMB", MaxUploadSize/1024/1024))
		return
	}

	isPrimary, err := parsePrimaryFlag(c.PostForm("is_primary"))
	if err != nil {
		response.BadRequest(c, "Invalid is_primary value")
		return
	}

	storedFilename, err := services.ProcessAndSaveImage(fileHeader, uploadDir())
	if err != nil {
		log.Printf("Ошибка обработки файла '%s' для объявления %d: %v", fileHeader.Filename, postID, err)
		switch {
		case strings.Contains(err.Error(), "расширение"):
			response.BadRequest(c, "Invalid file type. Allowed: jpg, jpeg, png, gif")
		case strings.Contains(err.Error(), "недопустимый тип"):
			response.BadRequest(c, "Invalid file type. Allowed: jpg, jpeg, png, gif")
		case strings.Contains(err.Error(), "декодировать"):
			response.BadRequest(c, "Invalid image file")
		default:
			response.Error(c, http.StatusInternalServerError, "Failed to save image")
		}
		return
	}

	imageID, finalPrimary, err := database.CreatePostImage(postID, storedFilename, fileHeader.Filename, fileHeader.Size, isPrimary)
	if err != nil {
		// Файл уже на диске - убираем, чтобы не копить сирот.
		cleanupFile(filepath.Join(uploadDir(), storedFilename))
		response.StorageError(c, err, "", "Image could not be saved")
		return
	}

	response.Success(c, "Image uploaded successfully", gin.H{
		"image_id":   imageID,
		"filename":   storedFilename,
		"url":        "/api/uploads?action=serve&filename=" + storedFilename,
		"is_primary": finalPrimary,
	})
}

// handleImageDelete удаляет изображение; при удалении главного слой БД
// в той же транзакции повышает оставшееся с наименьшим id.
func handleImageDelete(c *gin.Context) {
	principal, err := guard.RequireApproved(c)
	if err != nil {
		response.GuardError(c, err)
		return
	}

	imageID, ok := queryID(c, "id")
	if !ok {
		response.BadRequest(c, "Image ID is required")
		return
	}

	img, ownerID, err := database.GetImageWithOwner(imageID)
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}
	if img == nil {
		response.NotFound(c, "Image not found")
		return
	}

	// Для проверки прав достаточно владельца объявления.
	if !principal.CanEditPost(&models.Post{ID: img.PostID, UserID: ownerID}) {
		response.Forbidden(c, "Cannot delete this image")
		return
	}

	if err := database.DeletePostImage(imageID); err != nil {
		response.StorageError(c, err, "Image not found", "")
		return
	}

	cleanupFile(filepath.Join(uploadDir(), img.Filename))
	response.Success(c, "Image deleted successfully", nil)
}

// handleImageServe отдает файл изображения по имени.
// Имя проверяется на попытку выхода из директории загрузок.
func handleImageServe(c *gin.Context) {
	filename := c.Query("filename")
	if filename == "" || filepath.Base(filename) != filename {
		response.BadRequest(c, "Filename is required")
		return
	}

	img, err := database.GetImageByFilename(filename)
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}
	if img == nil {
		response.NotFound(c, "Image not found")
		return
	}

	filePath := filepath.Join(uploadDir(), img.Filename)
	if _, err := os.Stat(filePath); err != nil {
		log.Printf("ОШИБКА: файл %s числится в БД, но отсутствует на диске: %v", filePath, err)
		response.NotFound(c, "Image not found")
		return
	}

	c.Header("Content-Type", services.GetImageContentType(img.Filename))
	c.File(filePath)
}

// cleanupFile удаляет файл, не считая его отсутствие ошибкой.
func cleanupFile(fullPath string) {
	if fullPath == "" {
		return
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		log.Printf("ПРЕДУПРЕЖДЕНИЕ: не удалось удалить файл %s: %v", fullPath, err)
	}
}
