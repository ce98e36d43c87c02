package handlers

import (
	// Стандартные библиотеки
	"net/http"

	// Внутренние пакеты
	"realtynet/internal/database"
	"realtynet/internal/guard"
	"realtynet/internal/models"
	"realtynet/internal/response"

	// Сторонние библиотеки
	"github.com/gin-gonic/gin"
)

// UsersDispatch - граница /api/users: модерация пользователей и профили.
// Ролевая матрица:
//   approve/reject/promote, список pending  - только superuser
//   ban/unban, список all                   - superuser и admin
//   profile, updateProfile                  - любой вошедший (чужой профиль -
//                                             только superuser/admin)
func UsersDispatch(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodGet:
		switch c.Query("action") {
		case "pending":
			handleGetPendingUsers(c)
		case "all":
			handleGetAllUsers(c)
		case "profile":
			handleGetUserProfile(c)
		default:
			response.BadRequest(c, "Invalid action")
		}
	case http.MethodPost:
		switch c.Query("action") {
		case "approve":
			handleApproveUser(c)
		case "reject":
			handleRejectUser(c)
		case "ban":
			handleBanUser(c)
		case "unban":
			handleUnbanUser(c)
		case "promote":
			handlePromoteUser(c)
		default:
			response.BadRequest(c, "Invalid action")
		}
	case http.MethodPut:
		handleUpdateProfile(c)
	default:
		response.MethodNotAllowed(c)
	}
}

// userIDInput - тело запросов модерации.
type userIDInput struct {
	UserID int64 `json:"user_id"`
}

func bindUserID(c *gin.Context) (int64, bool) {
	var input userIDInput
	if err := c.ShouldBindJSON(&input); err != nil || input.UserID <= 0 {
		response.BadRequest(c, "User ID is required")
		return 0, false
	}
	return input.UserID, true
}

func handleGetPendingUsers(c *gin.Context) {
	if _, err := guard.RequireRole(c, models.RoleSuperuser); err != nil {
		response.GuardError(c, err)
		return
	}

	users, err := database.ListPendingUsers()
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}
	response.Success(c, "Pending users retrieved", gin.H{"users": users})
}

func handleGetAllUsers(c *gin.Context) {
	if _, err := guard.RequireRole(c, models.RoleSuperuser, models.RoleAdmin); err != nil {
		response.GuardError(c, err)
		return
	}

	users, err := database.ListAllUsers()
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}
	response.Success(c, "All users retrieved", gin.H{"users": users})
}

// handleGetUserProfile возвращает профиль: свой - всем вошедшим,
// чужой - только superuser/admin.
func handleGetUserProfile(c *gin.Context) {
	principal, err := guard.RequireApproved(c)
	if err != nil {
		response.GuardError(c, err)
		return
	}

	userID, ok := queryID(c, "id")
	if !ok {
		userID = principal.UserID // без id возвращаем собственный профиль
	}

	if userID != principal.UserID && !principal.CanManageUsers() {
		response.Forbidden(c, "Cannot view other user profiles")
		return
	}

	user, err := database.GetUserByID(userID)
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}
	if user == nil {
		response.NotFound(c, "User not found")
		return
	}
	response.Success(c, "User profile retrieved", gin.H{"user": user})
}

// handleApproveUser: pending -> approved. Условный UPDATE в БД делает
// повторное одобрение безопасным при конкурентных действиях модераторов.
func handleApproveUser(c *gin.Context) {
	if _, err := guard.RequireRole(c, models.RoleSuperuser); err != nil {
		response.GuardError(c, err)
		return
	}

	userID, ok := bindUserID(c)
	if !ok {
		return
	}

	if err := database.ApproveUser(userID); err != nil {
		response.StorageError(c, err, "", "User not found or already processed")
		return
	}
	response.Success(c, "User approved successfully", nil)
}

// handleRejectUser удаляет заявку: отклонить можно только из 'pending'.
func handleRejectUser(c *gin.Context) {
	if _, err := guard.RequireRole(c, models.RoleSuperuser); err != nil {
		response.GuardError(c, err)
		return
	}

	userID, ok := bindUserID(c)
	if !ok {
		return
	}

	if err := database.RejectUser(userID); err != nil {
		response.StorageError(c, err, "", "User not found or already processed")
		return
	}
	response.Success(c, "User rejected and deleted successfully", nil)
}

// handleBanUser банит любого, кроме себя и суперпользователей.
func handleBanUser(c *gin.Context) {
	principal, err := guard.RequireRole(c, models.RoleSuperuser, models.RoleAdmin)
	if err != nil {
		response.GuardError(c, err)
		return
	}

	userID, ok := bindUserID(c)
	if !ok {
		return
	}

	if userID == principal.UserID {
		response.BadRequest(c, "Cannot ban yourself")
		return
	}

	target, err := database.GetUserByID(userID)
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}
	if target == nil {
		response.NotFound(c, "User not found")
		return
	}
	if target.Role == models.RoleSuperuser {
		response.Forbidden(c, "Cannot ban superuser")
		return
	}

	// Условие role <> 'superuser' в самом UPDATE повторяет проверку выше
	// на случай повышения роли между чтением и записью.
	if err := database.BanUser(userID); err != nil {
		response.StorageError(c, err, "", "User not found or already processed")
		return
	}
	response.Success(c, "User banned successfully", nil)
}

// handleUnbanUser: banned -> approved.
func handleUnbanUser(c *gin.Context) {
	if _, err := guard.RequireRole(c, models.RoleSuperuser, models.RoleAdmin); err != nil {
		response.GuardError(c, err)
		return
	}

	userID, ok := bindUserID(c)
	if !ok {
		return
	}

	if err := database.UnbanUser(userID); err != nil {
		response.StorageError(c, err, "", "User not found or not banned")
		return
	}
	response.Success(c, "User unbanned successfully", nil)
}

type promoteInput struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// handlePromoteUser назначает роль из {admin, seller, buyer}.
// Сменить собственную роль нельзя - суперпользователь не может
// случайно разжаловать сам себя.
func handlePromoteUser(c *gin.Context) {
	principal, err := guard.RequireRole(c, models.RoleSuperuser)
	if err != nil {
		response.GuardError(c, err)
		return
	}

	var input promoteInput
	if err := c.ShouldBindJSON(&input); err != nil || input.UserID <= 0 || input.Role == "" {
		response.BadRequest(c, "User ID and role are required")
		return
	}

	newRole := models.Role(input.Role)
	if !newRole.Valid() || newRole == models.RoleSuperuser {
		response.BadRequest(c, "Invalid role")
		return
	}

	if input.UserID == principal.UserID {
		response.BadRequest(c, "Cannot change your own role")
		return
	}

	if err := database.PromoteUser(input.UserID, newRole); err != nil {
		response.StorageError(c, err, "User not found", "")
		return
	}
	response.Success(c, "User role updated successfully", nil)
}

type profileInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
}

// handleUpdateProfile обновляет собственный профиль. Белый список полей
// зашит в profileInput: изменить роль или статус этим запросом невозможно.
func handleUpdateProfile(c *gin.Context) {
	principal, err := guard.RequireAuthenticated(c)
	if err != nil {
		response.GuardError(c, err)
		return
	}

	var input profileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, "Profile data is required")
		return
	}
	if input.FirstName == nil && input.LastName == nil && input.Phone == nil {
		response.BadRequest(c, "No valid fields to update")
		return
	}

	if err := database.UpdateUserProfile(principal.UserID, input.FirstName, input.LastName, input.Phone); err != nil {
		response.StorageError(c, err, "", "No valid fields to update")
		return
	}
	response.Success(c, "Profile updated successfully", nil)
}
