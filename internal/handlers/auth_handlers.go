package handlers

import (
	// Стандартные библиотеки
	"log"
	"net/http"
	"net/mail"
	"strings"

	// Внутренние пакеты
	"realtynet/internal/auth"
	"realtynet/internal/database"
	"realtynet/internal/guard"
	"realtynet/internal/models"
	"realtynet/internal/response"

	// Сторонние библиотеки
	"github.com/gin-gonic/gin"
)

// Минимальная длина пароля при регистрации.
const passwordMinLength = 6

// AuthDispatch - граница /api/auth: метод + параметр action выбирают операцию.
func AuthDispatch(c *gin.Context) {
	action := c.Query("action")

	switch c.Request.Method {
	case http.MethodPost:
		switch action {
		case "login":
			handleLogin(c)
		case "register":
			handleRegister(c)
		case "logout":
			handleLogout(c)
		default:
			response.BadRequest(c, "Invalid action")
		}
	case http.MethodGet:
		if action == "me" {
			handleGetCurrentUser(c)
		} else {
			response.BadRequest(c, "Invalid action")
		}
	default:
		response.MethodNotAllowed(c)
	}
}

type loginInput struct {
	Username string `json:"username"` // имя пользователя ИЛИ email
	Password string `json:"password"`
}

// handleLogin проверяет учетные данные и создает сессию.
// Забаненный пользователь не входит даже с верным паролем.
func handleLogin(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil || input.Username == "" || input.Password == "" {
		response.BadRequest(c, "Username and password are required")
		return
	}

	user, err := database.GetUserByLogin(input.Username)
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}

	// Единый ответ для "нет пользователя" и "неверный пароль" -
	// не раскрываем, какие имена заняты.
	if user == nil || !auth.CheckPasswordHash(input.Password, user.PasswordHash) {
		log.Printf("Неудачная попытка входа для '%s' с IP %s.", input.Username, c.ClientIP())
		response.Unauthorized(c, "Invalid credentials")
		return
	}

	if user.Status == models.StatusBanned {
		log.Printf("Попытка входа забаненного пользователя '%s'.", user.Username)
		response.Forbidden(c, "Account has been banned")
		return
	}

	if err := guard.Login(c, user); err != nil {
		log.Printf("Ошибка сохранения сессии после входа пользователя %s (ID: %d): %v", user.Username, user.ID, err)
		response.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("Пользователь %s (ID: %d) вошел в систему.", user.Username, user.ID)
	response.Success(c, "Login successful", gin.H{
		"user": gin.H{
			"id":         user.ID,
			"username":   user.Username,
			"email":      user.Email,
			"role":       user.Role,
			"status":     user.Status,
			"first_name": user.FirstName,
			"last_name":  user.LastName,
		},
	})
}

type registerInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// handleRegister создает пользователя в статусе 'pending'.
// Самостоятельно зарегистрироваться можно только продавцом или покупателем.
func handleRegister(c *gin.Context) {
	var input registerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)

	errors := map[string]string{}
	if input.Username == "" {
		errors["username"] = "Username is required"
	}
	if _, err := mail.ParseAddress(input.Email); input.Email == "" || err != nil {
		errors["email"] = "Valid email is required"
	}
	if len(input.Password) < passwordMinLength {
		errors["password"] = "Password must be at least 6 characters"
	}
	if !models.Role(input.Role).SelfRegisterable() {
		errors["role"] = "Role must be either seller or buyer"
	}
	if len(errors) > 0 {
		response.Validation(c, errors)
		return
	}

	hashedPassword, err := auth.HashPassword(input.Password)
	if err != nil {
		log.Printf("Ошибка хеширования пароля для пользователя %s: %v", input.Username, err)
		response.Error(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	_, err = database.CreateUser(input.Username, input.Email, hashedPassword,
		models.Role(input.Role), input.FirstName, input.LastName, input.Phone)
	if err != nil {
		response.StorageError(c, err, "", "Username or email already exists")
		return
	}

	response.Success(c, "Registration successful. Please wait for approval.", nil)
}

// handleLogout уничтожает сессию. Повторный выход безвреден.
func handleLogout(c *gin.Context) {
	if err := guard.Logout(c); err != nil {
		log.Printf("Ошибка уничтожения сессии при выходе: %v", err)
	}
	response.Success(c, "Logged out successfully", nil)
}

// handleGetCurrentUser возвращает свежий профиль текущего пользователя из БД
// (сессия хранит только снимок на момент входа).
func handleGetCurrentUser(c *gin.Context) {
	principal, err := guard.RequireAuthenticated(c)
	if err != nil {
		response.GuardError(c, err)
		return
	}

	user, err := database.GetUserByID(principal.UserID)
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}
	if user == nil {
		// Пользователь удален, а сессия еще жива.
		response.Unauthorized(c, "")
		return
	}

	response.Success(c, "User data retrieved", gin.H{"user": user})
}
