package response

import (
	// Стандартные библиотеки
	"errors"
	"log"
	"net/http"

	// Внутренние пакеты
	"realtynet/internal/database"
	"realtynet/internal/guard"

	// Сторонние библиотеки
	"github.com/gin-gonic/gin"
)

// Единый конверт ответа API:
//   успех:  {"success":true, "message":..., "data":...}
//   ошибка: {"success":false,"message":..., "errors":{поле: текст}}
// Коды: 422 - валидация, 400 - плохой ввод, 401 - нет входа/сессия истекла,
// 403 - запрещено/не одобрен, 404 - не найдено, 405 - метод не поддерживается.

// Success отправляет успешный ответ; data может быть nil.
func Success(c *gin.Context, message string, data gin.H) {
	body := gin.H{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(http.StatusOK, body)
}

// Error отправляет ошибку с произвольным статусом.
func Error(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}

// BadRequest - некорректный ввод (400).
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

// Validation - пофамильные ошибки валидации (422).
func Validation(c *gin.Context, fieldErrors map[string]string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
		"success": false,
		"message": "Validation failed",
		"errors":  fieldErrors,
	})
}

// Unauthorized - требуется аутентификация (401).
func Unauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	Error(c, http.StatusUnauthorized, message)
}

// Forbidden - доступ запрещен (403).
func Forbidden(c *gin.Context, message string) {
	if message == "" {
		message = "Forbidden"
	}
	Error(c, http.StatusForbidden, message)
}

// NotFound - ресурс не найден (404).
func NotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Not found"
	}
	Error(c, http.StatusNotFound, message)
}

// MethodNotAllowed - метод не поддерживается ресурсом (405).
func MethodNotAllowed(c *gin.Context) {
	Error(c, http.StatusMethodNotAllowed, "Method not allowed")
}

// GuardError превращает ошибку guard в 401/403.
// Текст различает виды ошибок, но внутренних деталей не раскрывает.
func GuardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, guard.ErrSessionExpired):
		Unauthorized(c, "Session expired")
	case errors.Is(err, guard.ErrUnauthenticated):
		Unauthorized(c, "Authentication required")
	case errors.Is(err, guard.ErrNotApproved):
		Forbidden(c, "Account not approved")
	case errors.Is(err, guard.ErrForbidden):
		Forbidden(c, "Insufficient permissions")
	default:
		// Сюда попадать не должны; считаем отказом в доступе.
		Forbidden(c, "Forbidden")
	}
}

// StorageError обрабатывает ошибку слоя хранения: сигнальные ошибки
// превращаются в 404/400, все прочее - фатальная ошибка запроса (500)
// с общим текстом, без утечки внутренних подробностей. Повторов нет.
func StorageError(c *gin.Context, err error, notFoundMessage, conflictMessage string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		NotFound(c, notFoundMessage)
	case errors.Is(err, database.ErrConflict):
		BadRequest(c, conflictMessage)
	default:
		log.Printf("ОШИБКА БД при обработке %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		Error(c, http.StatusInternalServerError, "Internal server error")
	}
}
