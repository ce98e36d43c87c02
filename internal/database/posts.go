package database

import (
	"database/sql"
	"fmt"
	"log"

	"realtynet/internal/models"
)

// PostFilter - параметры фильтрации публичного списка объявлений.
// Нулевые значения означают "фильтр не задан".
type PostFilter struct {
	City         string  // подстрока, LIKE-поиск
	PropertyType string  // точное совпадение
	MinPrice     float64 // price >= MinPrice, если > 0
	MaxPrice     float64 // price <= MaxPrice, если > 0
	Bedrooms     int64   // bedrooms >= Bedrooms, если > 0
}

const postColumns = `p.id, p.user_id, p.title, p.description, p.price, p.property_type,
		p.bedrooms, p.bathrooms, p.area_sqm, p.address, p.city, p.state, p.country,
		p.latitude, p.longitude, p.status, p.created_at`

func scanPostRow(rows *sql.Rows, p *models.Post, extra ...any) error {
	dest := []any{
		&p.ID, &p.UserID, &p.Title, &p.Description, &p.Price, &p.PropertyType,
		&p.Bedrooms, &p.Bathrooms, &p.AreaSqm, &p.Address, &p.City, &p.State, &p.Country,
		&p.Latitude, &p.Longitude, &p.Status, &p.CreatedAt,
	}
	dest = append(dest, extra...)
	return rows.Scan(dest...)
}

// ListPosts возвращает страницу активных объявлений с данными владельца
// и главным изображением, плюс общее число строк под фильтром.
func ListPosts(filter PostFilter, limit, offset int) ([]models.Post, int, error) {
	whereClause := "p.status = 'active'"
	args := []any{}

	if filter.City != "" {
		whereClause += " AND p.city LIKE ?"
		args = append(args, "%"+filter.City+"%")
	}
	if filter.PropertyType != "" {
		whereClause += " AND p.property_type = ?"
		args = append(args, filter.PropertyType)
	}
	if filter.MinPrice > 0 {
		whereClause += " AND p.price >= ?"
		args = append(args, filter.MinPrice)
	}
	if filter.MaxPrice > 0 {
		whereClause += " AND p.price <= ?"
		args = append(args, filter.MaxPrice)
	}
	if filter.Bedrooms > 0 {
		whereClause += " AND p.bedrooms >= ?"
		args = append(args, filter.Bedrooms)
	}

	var total int
	err := DB.QueryRow("SELECT COUNT(*) FROM posts p WHERE "+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчета объявлений ListPosts: %w", err)
	}

	query := `
		SELECT ` + postColumns + `,
			u.username, u.first_name, u.last_name,
			pi.filename
		FROM posts p
		JOIN users u ON p.user_id = u.id
		LEFT JOIN post_images pi ON p.id = pi.post_id AND pi.is_primary = 1
		WHERE ` + whereClause + `
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка выполнения запроса ListPosts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		var p models.Post
		if err := scanPostRow(rows, &p, &p.Username, &p.FirstName, &p.LastName, &p.PrimaryImage); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования строки ListPosts: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, total, rows.Err()
}

// ListMyPosts возвращает страницу объявлений пользователя (включая неактивные)
// и общее их число.
func ListMyPosts(userID int64, limit, offset int) ([]models.Post, int, error) {
	var total int
	err := DB.QueryRow("SELECT COUNT(*) FROM posts WHERE user_id = ?", userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчета объявлений ListMyPosts: %w", err)
	}

	rows, err := DB.Query(`
		SELECT `+postColumns+`, pi.filename
		FROM posts p
		LEFT JOIN post_images pi ON p.id = pi.post_id AND pi.is_primary = 1
		WHERE p.user_id = ?
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка выполнения запроса ListMyPosts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		var p models.Post
		if err := scanPostRow(rows, &p, &p.PrimaryImage); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования строки ListMyPosts: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, total, rows.Err()
}

// GetPostByID возвращает объявление без JOIN'ов, независимо от статуса.
// Используется для проверок владения перед изменением/удалением.
// Возвращает nil, nil если объявление не найдено.
func GetPostByID(id int64) (*models.Post, error) {
	rows, err := DB.Query("SELECT "+postColumns+" FROM posts p WHERE p.id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса GetPostByID: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	p := &models.Post{}
	if err := scanPostRow(rows, p); err != nil {
		return nil, fmt.Errorf("ошибка сканирования GetPostByID для %d: %w", id, err)
	}
	return p, nil
}

// GetActivePostDetail возвращает активное объявление с контактами владельца
// и полным списком изображений (главное - первым).
// Возвращает nil, nil если активного объявления с таким ID нет.
func GetActivePostDetail(id int64) (*models.Post, error) {
	rows, err := DB.Query(`
		SELECT `+postColumns+`, u.username, u.first_name, u.last_name
		FROM posts p
		JOIN users u ON p.user_id = u.id
		WHERE p.id = ? AND p.status = 'active'`, id)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса GetActivePostDetail: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	p := &models.Post{}
	if err := scanPostRow(rows, p, &p.Username, &p.FirstName, &p.LastName); err != nil {
		return nil, fmt.Errorf("ошибка сканирования GetActivePostDetail для %d: %w", id, err)
	}
	rows.Close()

	images, err := ListPostImages(id)
	if err != nil {
		return nil, err
	}
	p.Images = images
	return p, nil
}

// CreatePost создает объявление и возвращает его ID.
// Статус нового объявления всегда 'active'.
func CreatePost(p *models.Post) (int64, error) {
	res, err := DB.Exec(`
		INSERT INTO posts (
			user_id, title, description, price, property_type,
			bedrooms, bathrooms, area_sqm, address, city, state, country,
			latitude, longitude
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.UserID, p.Title, p.Description, p.Price, p.PropertyType,
		p.Bedrooms, p.Bathrooms, p.AreaSqm, p.Address, p.City, p.State, p.Country,
		p.Latitude, p.Longitude)
	if err != nil {
		return 0, fmt.Errorf("ошибка выполнения запроса CreatePost: %w", err)
	}

	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ошибка получения ID объявления CreatePost: %w", err)
	}
	log.Printf("Создано объявление '%s' (ID: %d, владелец: %d)", p.Title, lastID, p.UserID)
	return lastID, nil
}

// PostUpdate - частичное обновление объявления. nil-поле не изменяется.
// Белый список столбцов зашит в структуру.
type PostUpdate struct {
	Title        *string
	Description  *string
	Price        *float64
	PropertyType *string
	Bedrooms     *int64
	Bathrooms    *int64
	AreaSqm      *float64
	Address      *string
	City         *string
	State        *string
	Country      *string
	Latitude     *float64
	Longitude    *float64
	Status       *string
}

// UpdatePost применяет частичное обновление. Возвращает ErrConflict,
// если ни одно поле не задано, и ErrNotFound, если объявления нет.
func UpdatePost(id int64, upd PostUpdate) error {
	setClauses := ""
	args := []any{}

	appendSet := func(column string, value any) {
		if setClauses != "" {
			setClauses += ", "
		}
		setClauses += column + " = ?"
		args = append(args, value)
	}
	if upd.Title != nil {
		appendSet("title", *upd.Title)
	}
	if upd.Description != nil {
		appendSet("description", *upd.Description)
	}
	if upd.Price != nil {
		appendSet("price", *upd.Price)
	}
	if upd.PropertyType != nil {
		appendSet("property_type", *upd.PropertyType)
	}
	if upd.Bedrooms != nil {
		appendSet("bedrooms", *upd.Bedrooms)
	}
	if upd.Bathrooms != nil {
		appendSet("bathrooms", *upd.Bathrooms)
	}
	if upd.AreaSqm != nil {
		appendSet("area_sqm", *upd.AreaSqm)
	}
	if upd.Address != nil {
		appendSet("address", *upd.Address)
	}
	if upd.City != nil {
		appendSet("city", *upd.City)
	}
	if upd.State != nil {
		appendSet("state", *upd.State)
	}
	if upd.Country != nil {
		appendSet("country", *upd.Country)
	}
	if upd.Latitude != nil {
		appendSet("latitude", *upd.Latitude)
	}
	if upd.Longitude != nil {
		appendSet("longitude", *upd.Longitude)
	}
	if upd.Status != nil {
		appendSet("status", *upd.Status)
	}

	if setClauses == "" {
		return fmt.Errorf("UpdatePost: нет полей для обновления: %w", ErrConflict)
	}

	args = append(args, id)
	res, err := DB.Exec("UPDATE posts SET "+setClauses+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса UpdatePost: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdatePost: объявление %d не найдено: %w", id, ErrNotFound)
	}
	return nil
}

// DeletePost удаляет объявление. Записи изображений удаляются каскадно
// по внешнему ключу; файлы на диске убирает вызывающий код (он заранее
// забирает их имена через ListPostImages).
func DeletePost(id int64) error {
	res, err := DB.Exec("DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса DeletePost: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("DeletePost: объявление %d не найдено: %w", id, ErrNotFound)
	}
	log.Printf("Объявление %d удалено (изображения - каскадно).", id)
	return nil
}
