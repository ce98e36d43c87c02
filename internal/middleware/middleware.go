package middleware

import (
	// Стандартные библиотеки
	"log"

	// Внутренние пакеты
	"realtynet/internal/guard"
	"realtynet/internal/response"

	// Сторонние библиотеки
	"github.com/gin-gonic/gin"
)

// RequireAuth - middleware для групп маршрутов, целиком закрытых от анонимов
// (/api/users, /api/messages). Проверка истечения сессии выполняется внутри
// guard ДО всего остального, так что протухшая сессия сюда не проходит.
// Тонкие проверки ролей и возможностей остаются за обработчиками.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := guard.RequireAuthenticated(c)
		if err != nil {
			log.Printf("Доступ запрещен (%v) к %s с IP %s", err, c.Request.URL.Path, c.ClientIP())
			response.GuardError(c, err) // отвечает 401 и прерывает цепочку
			return
		}

		// Кладем личность в контекст Gin - обработчикам не нужно
		// повторно разбирать сессию.
		c.Set("principal", principal)
		c.Next()
	}
}
