package handlers

import (
	// Стандартные библиотеки
	"net/http"
	"strings"

	// Внутренние пакеты
	"realtynet/internal/database"
	"realtynet/internal/guard"
	"realtynet/internal/models"
	"realtynet/internal/response"

	// Сторонние библиотеки
	"github.com/gin-gonic/gin"
)

// MessagesDispatch - граница /api/messages. Переписка доступна только
// одобренным покупателям и продавцам; администраторы могут лишь удалять
// сообщения (модерация), собственных переписок у них нет.
func MessagesDispatch(c *gin.Context) {
	switch c.Request.Method {
	case http.MethodGet:
		switch c.Query("action") {
		case "", "list":
			handleGetConversations(c)
		case "conversation":
			handleGetConversation(c)
		case "unread":
			handleGetUnreadCount(c)
		default:
			response.BadRequest(c, "Invalid action")
		}
	case http.MethodPost:
		handleSendMessage(c)
	case http.MethodPut:
		handleMarkAsRead(c)
	case http.MethodDelete:
		handleDeleteMessage(c)
	default:
		response.MethodNotAllowed(c)
	}
}

// requireMessagingPrincipal - общий вход операций переписки:
// аутентификация (включая проверку истечения сессии) плюс возможность
// CanSendMessages.
func requireMessagingPrincipal(c *gin.Context) (*guard.Principal, bool) {
	principal, err := guard.RequireApproved(c)
	if err != nil {
		response.GuardError(c, err)
		return nil, false
	}
	if !principal.CanSendMessages() {
		response.Forbidden(c, "Only approved buyers and sellers can access messages")
		return nil, false
	}
	return principal, true
}

// handleGetConversations - список переписок: одна строка на пару
// собеседников, строка - самое свежее сообщение пары, свежие переписки
// первыми.
func handleGetConversations(c *gin.Context) {
	principal, ok := requireMessagingPrincipal(c)
	if !ok {
		return
	}

	_, limit, offset := parsePagination(c, 20, 50)
	conversations, err := database.ListConversations(principal.UserID, limit, offset)
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}
	response.Success(c, "Conversations retrieved", gin.H{"conversations": conversations})
}

// handleGetConversation - страница переписки с конкретным пользователем.
// Окно пагинации отсчитывается от новых сообщений, внутри страницы -
// хронологический порядок. Побочный эффект: все входящие от собеседника
// помечаются прочитанными (повторные вызовы ничего не меняют).
func handleGetConversation(c *gin.Context) {
	principal, ok := requireMessagingPrincipal(c)
	if !ok {
		return
	}

	otherUserID, ok := queryID(c, "user_id")
	if !ok {
		response.BadRequest(c, "User ID is required")
		return
	}

	_, limit, offset := parsePagination(c, 50, 100)
	messages, err := database.GetConversationMessages(principal.UserID, otherUserID, limit, offset)
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}

	if err := database.MarkConversationRead(principal.UserID, otherUserID); err != nil {
		response.StorageError(c, err, "", "")
		return
	}

	response.Success(c, "Conversation retrieved", gin.H{"messages": messages})
}

func handleGetUnreadCount(c *gin.Context) {
	principal, ok := requireMessagingPrincipal(c)
	if !ok {
		return
	}

	count, err := database.GetUnreadCount(principal.UserID)
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}
	response.Success(c, "Unread count retrieved", gin.H{"unread_count": count})
}

type sendMessageInput struct {
	ReceiverID int64  `json:"receiver_id"`
	PostID     *int64 `json:"post_id"`
	Subject    string `json:"subject"`
	Body       string `json:"message"`
}

// handleSendMessage отправляет сообщение. Себе писать нельзя; получатель
// должен существовать и быть одобренным; объявление, если указано,
// должно быть активным.
func handleSendMessage(c *gin.Context) {
	principal, ok := requireMessagingPrincipal(c)
	if !ok {
		return
	}

	var input sendMessageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, "Message data is required")
		return
	}

	errors := map[string]string{}
	if input.ReceiverID <= 0 {
		errors["receiver_id"] = "Receiver ID is required"
	}
	if strings.TrimSpace(input.Body) == "" {
		errors["message"] = "Message content is required"
	}
	if len(errors) > 0 {
		response.Validation(c, errors)
		return
	}

	if input.ReceiverID == principal.UserID {
		response.BadRequest(c, "Cannot send message to yourself")
		return
	}

	receiver, err := database.GetUserByID(input.ReceiverID)
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}
	if receiver == nil {
		response.NotFound(c, "Receiver not found")
		return
	}
	if receiver.Status != models.StatusApproved {
		response.BadRequest(c, "Cannot send message to non-approved user")
		return
	}

	if input.PostID != nil {
		post, err := database.GetPostByID(*input.PostID)
		if err != nil {
			response.StorageError(c, err, "", "")
			return
		}
		if post == nil || post.Status != models.PostActive {
			response.BadRequest(c, "Post not found or inactive")
			return
		}
	}

	messageID, err := database.CreateMessage(principal.UserID, input.ReceiverID, input.PostID,
		strings.TrimSpace(input.Subject), strings.TrimSpace(input.Body))
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}
	response.Success(c, "Message sent successfully", gin.H{"message_id": messageID})
}

// handleMarkAsRead помечает сообщение прочитанным. Успех возможен, только
// если текущий пользователь - получатель; "чужое" и "несуществующее"
// сообщение дают одинаковый ответ, чтобы не раскрывать существование.
func handleMarkAsRead(c *gin.Context) {
	principal, err := guard.RequireApproved(c)
	if err != nil {
		response.GuardError(c, err)
		return
	}

	messageID, ok := queryID(c, "id")
	if !ok {
		response.BadRequest(c, "Message ID is required")
		return
	}

	if err := database.MarkMessageRead(messageID, principal.UserID); err != nil {
		response.StorageError(c, err, "Message not found or not authorized", "")
		return
	}
	response.Success(c, "Message marked as read", nil)
}

// handleDeleteMessage удаляет сообщение. Право есть у отправителя
// и у admin/superuser.
func handleDeleteMessage(c *gin.Context) {
	principal, err := guard.RequireApproved(c)
	if err != nil {
		response.GuardError(c, err)
		return
	}

	messageID, ok := queryID(c, "id")
	if !ok {
		response.BadRequest(c, "Message ID is required")
		return
	}

	message, err := database.GetMessageByID(messageID)
	if err != nil {
		response.StorageError(c, err, "", "")
		return
	}
	if message == nil {
		response.NotFound(c, "Message not found")
		return
	}

	if message.SenderID != principal.UserID && !principal.HasAnyRole(models.RoleSuperuser, models.RoleAdmin) {
		response.Forbidden(c, "Cannot delete this message")
		return
	}

	if err := database.DeleteMessage(messageID); err != nil {
		response.StorageError(c, err, "Message not found", "")
		return
	}
	response.Success(c, "Message deleted successfully", nil)
}
