package handlers

import (
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Ограничение на размер одного загружаемого изображения.
const MaxUploadSize = 5 << 20 // 5 МБ

// getEnv - локальная вспомогательная функция для переменных окружения.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// uploadDir возвращает директорию для загруженных файлов.
func uploadDir() string {
	return getEnv("UPLOAD_PATH", "./uploads")
}

// parsePagination читает page и limit из query-параметров.
// page >= 1; limit зажимается в [1, maxLimit]. Возвращает page, limit и offset.
func parsePagination(c *gin.Context, defaultLimit, maxLimit int) (int, int, int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, (page - 1) * limit
}

// queryID читает положительный int64 из query-параметра.
// Возвращает 0, false если параметр отсутствует или некорректен.
func queryID(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// totalPages считает число страниц для пагинации.
func totalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
