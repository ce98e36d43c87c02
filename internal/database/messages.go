package database

import (
	"database/sql"
	"fmt"
	"log"

	"realtynet/internal/models"
)

// CreateMessage сохраняет сообщение с is_read=0.
// postID может быть nil - сообщение без привязки к объявлению.
func CreateMessage(senderID, receiverID int64, postID *int64, subject, body string) (int64, error) {
	var post sql.NullInt64
	if postID != nil {
		post = sql.NullInt64{Int64: *postID, Valid: true}
	}
	res, err := DB.Exec(`
		INSERT INTO messages (sender_id, receiver_id, post_id, subject, body)
		VALUES (?, ?, ?, NULLIF(?, ''), ?)
	`, senderID, receiverID, post, subject, body)
	if err != nil {
		return 0, fmt.Errorf("ошибка выполнения запроса CreateMessage: %w", err)
	}

	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ошибка получения ID сообщения CreateMessage: %w", err)
	}
	log.Printf("Сообщение %d отправлено: %d -> %d", lastID, senderID, receiverID)
	return lastID, nil
}

// pairKey - канонический ключ переписки: неупорядоченная пара участников.
// Low < High всегда, поэтому пары (a,b) и (b,a) дают один и тот же ключ
// независимо от того, кто в конкретной строке отправитель.
type pairKey struct {
	Low  int64
	High int64
}

func canonicalPair(a, b int64) pairKey {
	if a < b {
		return pairKey{Low: a, High: b}
	}
	return pairKey{Low: b, High: a}
}

// ListConversations возвращает страницу переписок пользователя: по одной
// строке на каждую пару собеседников, строка - самое свежее сообщение пары.
//
// Группировку "последнее сообщение на пару" делаем в два шага: выбираем все
// сообщения пользователя в порядке (created_at DESC, id DESC) и оставляем
// первое встреченное на каждый канонический ключ. Семантика при этом не
// зависит от особенностей GROUP BY конкретной СУБД, а порядок детерминирован
// даже при совпадающих created_at (id - стабильный разделитель).
func ListConversations(userID int64, limit, offset int) ([]models.Conversation, error) {
	rows, err := DB.Query(`
		SELECT
			m.id, m.sender_id, m.receiver_id, m.post_id, m.subject, m.body, m.is_read, m.created_at,
			s.username, s.first_name, s.last_name,
			r.username, r.first_name, r.last_name,
			p.title
		FROM messages m
		JOIN users s ON m.sender_id = s.id
		JOIN users r ON m.receiver_id = r.id
		LEFT JOIN posts p ON m.post_id = p.id
		WHERE m.sender_id = ? OR m.receiver_id = ?
		ORDER BY m.created_at DESC, m.id DESC`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса ListConversations: %w", err)
	}
	defer rows.Close()

	seen := map[pairKey]bool{}
	conversations := []models.Conversation{}

	for rows.Next() {
		var c models.Conversation
		var senderUsername, receiverUsername string
		var senderFirst, senderLast, receiverFirst, receiverLast sql.NullString
		err := rows.Scan(
			&c.ID, &c.SenderID, &c.ReceiverID, &c.PostID, &c.Subject, &c.Body, &c.IsRead, &c.CreatedAt,
			&senderUsername, &senderFirst, &senderLast,
			&receiverUsername, &receiverFirst, &receiverLast,
			&c.PostTitle,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки ListConversations: %w", err)
		}

		key := canonicalPair(c.SenderID, c.ReceiverID)
		if seen[key] {
			continue // у этой пары уже есть более свежее сообщение
		}
		seen[key] = true

		// "Собеседник" определяется относительно того, с какой стороны
		// текущий пользователь в данной строке.
		if c.SenderID == userID {
			c.OtherUserID = c.ReceiverID
			c.OtherUsername = receiverUsername
			c.OtherFirstName = receiverFirst
			c.OtherLastName = receiverLast
		} else {
			c.OtherUserID = c.SenderID
			c.OtherUsername = senderUsername
			c.OtherFirstName = senderFirst
			c.OtherLastName = senderLast
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Пагинация по уже сгруппированному списку: он отсортирован по времени
	// последнего сообщения, потому что исходная выборка шла по убыванию.
	if offset >= len(conversations) {
		return []models.Conversation{}, nil
	}
	end := offset + limit
	if end > len(conversations) {
		end = len(conversations)
	}
	return conversations[offset:end], nil
}

// GetConversationMessages возвращает страницу переписки между двумя
// пользователями. Окно пагинации берется от новых к старым (страница 1 -
// самые свежие сообщения), но внутри страницы сообщения возвращаются
// в хронологическом порядке.
func GetConversationMessages(userID, otherUserID int64, limit, offset int) ([]models.Message, error) {
	rows, err := DB.Query(`
		SELECT
			m.id, m.sender_id, m.receiver_id, m.post_id, m.subject, m.body, m.is_read, m.created_at,
			s.username, s.first_name, s.last_name,
			p.title
		FROM messages m
		JOIN users s ON m.sender_id = s.id
		LEFT JOIN posts p ON m.post_id = p.id
		WHERE (m.sender_id = ? AND m.receiver_id = ?)
		   OR (m.sender_id = ? AND m.receiver_id = ?)
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ? OFFSET ?`,
		userID, otherUserID, otherUserID, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса GetConversationMessages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		err := rows.Scan(
			&m.ID, &m.SenderID, &m.ReceiverID, &m.PostID, &m.Subject, &m.Body, &m.IsRead, &m.CreatedAt,
			&m.SenderUsername, &m.SenderFirstName, &m.SenderLastName,
			&m.PostTitle,
		)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки GetConversationMessages: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Разворачиваем страницу: старые первыми.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkConversationRead помечает прочитанными все непрочитанные сообщения
// от otherUserID к userID. Повторные вызовы безвредны: прочитанное
// остается прочитанным.
func MarkConversationRead(userID, otherUserID int64) error {
	_, err := DB.Exec(`
		UPDATE messages SET is_read = 1
		WHERE sender_id = ? AND receiver_id = ? AND is_read = 0
	`, otherUserID, userID)
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса MarkConversationRead: %w", err)
	}
	return nil
}

// GetUnreadCount возвращает число непрочитанных входящих сообщений.
func GetUnreadCount(userID int64) (int, error) {
	var count int
	err := DB.QueryRow(
		"SELECT COUNT(*) FROM messages WHERE receiver_id = ? AND is_read = 0", userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка выполнения запроса GetUnreadCount: %w", err)
	}
	return count, nil
}

// MarkMessageRead помечает сообщение прочитанным, только если receiverID -
// его получатель. Условие в WHERE заодно скрывает существование чужих
// сообщений: "не ваше" и "нет такого" дают один и тот же ErrNotFound.
func MarkMessageRead(messageID, receiverID int64) error {
	res, err := DB.Exec(
		"UPDATE messages SET is_read = 1 WHERE id = ? AND receiver_id = ?",
		messageID, receiverID)
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса MarkMessageRead: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("MarkMessageRead: сообщение %d недоступно: %w", messageID, ErrNotFound)
	}
	return nil
}

// GetMessageByID возвращает сообщение по ID (для проверки прав на удаление).
// nil, nil - если не найдено.
func GetMessageByID(id int64) (*models.Message, error) {
	m := &models.Message{}
	row := DB.QueryRow(`
		SELECT id, sender_id, receiver_id, post_id, subject, body, is_read, created_at
		FROM messages WHERE id = ?`, id)

	err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.PostID, &m.Subject, &m.Body, &m.IsRead, &m.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка сканирования GetMessageByID для %d: %w", id, err)
	}
	return m, nil
}

// DeleteMessage удаляет сообщение. Права (отправитель или admin/superuser)
// проверяет обработчик до вызова.
func DeleteMessage(id int64) error {
	res, err := DB.Exec("DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса DeleteMessage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("DeleteMessage: сообщение %d не найдено: %w", id, ErrNotFound)
	}
	log.Printf("Сообщение %d удалено.", id)
	return nil
}
