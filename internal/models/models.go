package models

import (
	// Стандартные библиотеки
	"database/sql" // Нужен для NULLable-полей (sql.NullString, sql.NullInt64 и т.д.)
	"time"         // Для временных меток
)

// Role - закрытое перечисление ролей пользователя.
// Используем отдельный тип вместо "голых" строк, чтобы невалидное значение
// нельзя было пронести мимо проверки Valid().
type Role string

const (
	RoleSuperuser Role = "superuser" // Суперпользователь: одобрение/отклонение, смена ролей
	RoleAdmin     Role = "admin"     // Администратор: бан/разбан, модерация объявлений
	RoleSeller    Role = "seller"    // Продавец: создает объявления
	RoleBuyer     Role = "buyer"     // Покупатель
)

// Valid сообщает, является ли значение одной из известных ролей.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperuser, RoleAdmin, RoleSeller, RoleBuyer:
		return true
	}
	return false
}

// SelfRegisterable сообщает, может ли пользователь выбрать эту роль при регистрации.
// admin и superuser назначаются только вручную (через promote или при старте сервера).
func (r Role) SelfRegisterable() bool {
	return r == RoleSeller || r == RoleBuyer
}

// UserStatus - закрытое перечисление статусов пользователя.
// Жизненный цикл: pending -> approved <-> banned; pending -> (удален при отклонении).
type UserStatus string

const (
	StatusPending  UserStatus = "pending"
	StatusApproved UserStatus = "approved"
	StatusBanned   UserStatus = "banned"
)

// Valid сообщает, является ли значение одним из известных статусов.
func (s UserStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusBanned:
		return true
	}
	return false
}

// User представляет пользователя в системе.
// Поля соответствуют столбцам таблицы 'users'.
// `json:"-"` исключает хеш пароля из любых ответов API.
type User struct {
	ID           int64          `json:"id"`
	Username     string         `json:"username"` // UNIQUE
	Email        string         `json:"email"`    // UNIQUE
	PasswordHash string         `json:"-"`
	Role         Role           `json:"role"`
	Status       UserStatus     `json:"status"`
	FirstName    sql.NullString `json:"first_name"`
	LastName     sql.NullString `json:"last_name"`
	Phone        sql.NullString `json:"phone"`
	CreatedAt    time.Time      `json:"created_at"`
}

// PropertyTypes - допустимые типы недвижимости для объявления.
var PropertyTypes = map[string]bool{
	"house":      true,
	"apartment":  true,
	"condo":      true,
	"land":       true,
	"commercial": true,
}

// Статусы объявления. Хранятся как текст; 'active' видим всем,
// 'inactive' остается доступным только владельцу и модераторам.
const (
	PostActive   = "active"
	PostInactive = "inactive"
)

// Post представляет объявление о недвижимости (таблица 'posts').
// Объявление принадлежит создателю; редактировать/удалять может
// владелец либо admin/superuser.
type Post struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Price        float64         `json:"price"`
	PropertyType string          `json:"property_type"`
	Bedrooms     sql.NullInt64   `json:"bedrooms"`
	Bathrooms    sql.NullInt64   `json:"bathrooms"`
	AreaSqm      sql.NullFloat64 `json:"area_sqm"`
	Address      sql.NullString  `json:"address"`
	City         sql.NullString  `json:"city"`
	State        sql.NullString  `json:"state"`
	Country      sql.NullString  `json:"country"`
	Latitude     sql.NullFloat64 `json:"latitude"`
	Longitude    sql.NullFloat64 `json:"longitude"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`

	// Данные владельца и главное изображение, подтягиваются JOIN'ами в списках.
	Username     string         `json:"username,omitempty"`
	FirstName    sql.NullString `json:"first_name"`
	LastName     sql.NullString `json:"last_name"`
	PrimaryImage sql.NullString `json:"primary_image"`
	Images       []PostImage    `json:"images,omitempty"`
}

// PostImage представляет изображение объявления (таблица 'post_images').
// Инвариант: не более одного is_primary=true на объявление; при удалении
// главного изображения главным становится оставшееся с наименьшим id.
type PostImage struct {
	ID           int64          `json:"id"`
	PostID       int64          `json:"post_id"`
	Filename     string         `json:"filename"` // Имя файла на сервере (UNIQUE)
	OriginalName sql.NullString `json:"original_name"`
	FileSize     int64          `json:"file_size"`
	IsPrimary    bool           `json:"is_primary"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Message представляет личное сообщение (таблица 'messages').
// post_id может быть NULL - сообщение не обязано ссылаться на объявление.
type Message struct {
	ID         int64          `json:"id"`
	SenderID   int64          `json:"sender_id"`
	ReceiverID int64          `json:"receiver_id"`
	PostID     sql.NullInt64  `json:"post_id"`
	Subject    sql.NullString `json:"subject"`
	Body       string         `json:"message"`
	IsRead     bool           `json:"is_read"`
	CreatedAt  time.Time      `json:"created_at"`

	// Данные отправителя и заголовок объявления для страницы переписки.
	SenderUsername  string         `json:"sender_username,omitempty"`
	SenderFirstName sql.NullString `json:"sender_first_name"`
	SenderLastName  sql.NullString `json:"sender_last_name"`
	PostTitle       sql.NullString `json:"post_title"`
}

// Conversation - производная сущность: последняя реплика переписки между
// неупорядоченной парой пользователей. В БД не хранится, вычисляется из messages.
type Conversation struct {
	Message
	OtherUserID    int64          `json:"other_user_id"`
	OtherUsername  string         `json:"other_user"`
	OtherFirstName sql.NullString `json:"other_first_name"`
	OtherLastName  sql.NullString `json:"other_last_name"`
}

// Pagination описывает страницу выборки в ответах списков.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}
