package database

import (
	"database/sql"
	"fmt"
	"log"

	"realtynet/internal/models"
)

// ListPostImages возвращает изображения объявления, главное - первым.
func ListPostImages(postID int64) ([]models.PostImage, error) {
	rows, err := DB.Query(`
		SELECT id, post_id, filename, original_name, file_size, is_primary, created_at
		FROM post_images
		WHERE post_id = ?
		ORDER BY is_primary DESC, id ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса ListPostImages: %w", err)
	}
	defer rows.Close()

	images := []models.PostImage{}
	for rows.Next() {
		var img models.PostImage
		err := rows.Scan(&img.ID, &img.PostID, &img.Filename, &img.OriginalName, &img.FileSize, &img.IsPrimary, &img.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки ListPostImages: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// GetImageWithOwner возвращает изображение вместе с ID владельца объявления
// (нужен для проверки прав на удаление). nil, 0, nil - если не найдено.
func GetImageWithOwner(id int64) (*models.PostImage, int64, error) {
	img := &models.PostImage{}
	var ownerID int64
	row := DB.QueryRow(`
		SELECT pi.id, pi.post_id, pi.filename, pi.original_name, pi.file_size, pi.is_primary, pi.created_at, p.user_id
		FROM post_images pi
		JOIN posts p ON pi.post_id = p.id
		WHERE pi.id = ?`, id)

	err := row.Scan(&img.ID, &img.PostID, &img.Filename, &img.OriginalName, &img.FileSize, &img.IsPrimary, &img.CreatedAt, &ownerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("ошибка сканирования GetImageWithOwner для %d: %w", id, err)
	}
	return img, ownerID, nil
}

// GetImageByFilename возвращает изображение по имени файла на сервере
// (для отдачи файла клиенту). nil, nil - если не найдено.
func GetImageByFilename(filename string) (*models.PostImage, error) {
	img := &models.PostImage{}
	row := DB.QueryRow(`
		SELECT id, post_id, filename, original_name, file_size, is_primary, created_at
		FROM post_images
		WHERE filename = ?`, filename)

	err := row.Scan(&img.ID, &img.PostID, &img.Filename, &img.OriginalName, &img.FileSize, &img.IsPrimary, &img.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка сканирования GetImageByFilename для %s: %w", filename, err)
	}
	return img, nil
}

// CreatePostImage добавляет изображение к объявлению, соблюдая инвариант
// "не более одного главного". Вся логика выполняется в одной транзакции:
// сброс старого главного и вставка нового - атомарная пара, отдельные
// запросы могли бы разъехаться при конкурентных загрузках.
// Возвращает ID записи и итоговый признак is_primary (он может отличаться
// от запрошенного: первое изображение объявления всегда становится главным).
func CreatePostImage(postID int64, filename, originalName string, fileSize int64, isPrimary bool) (int64, bool, error) {
	tx, err := DB.Begin()
	if err != nil {
		return 0, false, fmt.Errorf("ошибка начала транзакции CreatePostImage: %w", err)
	}
	defer tx.Rollback()

	if isPrimary {
		// Явно запрошено главное - снимаем флаг с остальных.
		if _, err := tx.Exec("UPDATE post_images SET is_primary = 0 WHERE post_id = ?", postID); err != nil {
			return 0, false, fmt.Errorf("ошибка сброса главного изображения CreatePostImage: %w", err)
		}
	} else {
		// Если главного еще нет, новое изображение становится главным.
		var existing int64
		err := tx.QueryRow("SELECT id FROM post_images WHERE post_id = ? AND is_primary = 1", postID).Scan(&existing)
		if err == sql.ErrNoRows {
			isPrimary = true
		} else if err != nil {
			return 0, false, fmt.Errorf("ошибка поиска главного изображения CreatePostImage: %w", err)
		}
	}

	res, err := tx.Exec(`
		INSERT INTO post_images (post_id, filename, original_name, file_size, is_primary)
		VALUES (?, ?, ?, ?, ?)
	`, postID, filename, originalName, fileSize, isPrimary)
	if err != nil {
		if isUniqueViolation(err) {
			// Имена генерируются из UUID, дубликат означает ошибку в генерации.
			log.Printf("КРИТИЧЕСКАЯ ОШИБКА: дубликат имени файла '%s' для объявления %d", filename, postID)
			return 0, false, fmt.Errorf("конфликт имен файлов: %w", ErrConflict)
		}
		return 0, false, fmt.Errorf("ошибка выполнения запроса CreatePostImage: %w", err)
	}

	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("ошибка получения ID изображения CreatePostImage: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("ошибка фиксации транзакции CreatePostImage: %w", err)
	}

	log.Printf("Изображение '%s' (ID: %d) добавлено к объявлению %d (главное: %v)", filename, lastID, postID, isPrimary)
	return lastID, isPrimary, nil
}

// DeletePostImage удаляет запись изображения. Если удалено главное,
// в той же транзакции главным назначается оставшееся с наименьшим id -
// между удалением и повышением не бывает момента "объявление без главного
// изображения при наличии изображений".
func DeletePostImage(id int64) error {
	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции DeletePostImage: %w", err)
	}
	defer tx.Rollback()

	var postID int64
	var wasPrimary bool
	err = tx.QueryRow("SELECT post_id, is_primary FROM post_images WHERE id = ?", id).Scan(&postID, &wasPrimary)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("DeletePostImage: изображение %d не найдено: %w", id, ErrNotFound)
		}
		return fmt.Errorf("ошибка поиска изображения DeletePostImage: %w", err)
	}

	if _, err = tx.Exec("DELETE FROM post_images WHERE id = ?", id); err != nil {
		return fmt.Errorf("ошибка удаления записи DeletePostImage: %w", err)
	}

	if wasPrimary {
		// Повышаем изображение с наименьшим id; если изображений не осталось,
		// подзапрос вернет NULL и UPDATE не затронет ни одной строки.
		_, err = tx.Exec(`
			UPDATE post_images SET is_primary = 1
			WHERE id = (SELECT id FROM post_images WHERE post_id = ? ORDER BY id ASC LIMIT 1)
		`, postID)
		if err != nil {
			return fmt.Errorf("ошибка назначения нового главного изображения DeletePostImage: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции DeletePostImage: %w", err)
	}

	log.Printf("Изображение %d удалено из объявления %d (было главным: %v)", id, postID, wasPrimary)
	return nil
}
