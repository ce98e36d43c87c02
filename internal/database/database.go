package database

import (
	// Стандартные библиотеки
	"database/sql" // Основной пакет для работы с SQL базами данных
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	// Драйвер SQLite. Пустой импорт (_) регистрирует драйвер "sqlite"
	// в пакете database/sql как побочный эффект.
	_ "modernc.org/sqlite"
)

// Сигнальные ошибки слоя хранения. Обработчики проверяют их через errors.Is
// и превращают в соответствующий HTTP-статус.
var (
	// ErrNotFound - запись не найдена (или недоступна вызывающему:
	// для сообщений "не ваше" и "не существует" намеренно неразличимы).
	ErrNotFound = errors.New("запись не найдена")
	// ErrConflict - нарушение уникальности (username/email) либо переход
	// состояния, не прошедший условие WHERE (affected rows == 0).
	ErrConflict = errors.New("конфликт данных")
)

// DB - глобальный пул соединений с базой данных (*sql.DB).
// Инициализируется один раз в InitDB при старте сервера.
var DB *sql.DB

// InitDB открывает соединение с SQLite и создает схему, если её еще нет.
// dataSourceName - путь к файлу БД.
func InitDB(dataSourceName string) error {
	var err error

	// Параметры DSN:
	// - _journal_mode=WAL: журнал с упреждающей записью, лучше переносит
	//   одновременные чтение и запись, чем режим DELETE.
	// - _busy_timeout=5000: ждать снятия блокировки до 5 секунд.
	// - _foreign_keys=on: включает проверку внешних ключей - на этом держится
	//   каскадное удаление post -> post_images.
	// - _synchronous=NORMAL: компромисс между скоростью и надежностью записи.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)", dataSourceName)

	DB, err = sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("ошибка при открытии %s: %w", dataSourceName, err)
	}

	// Для SQLite ограничиваем пул одним соединением: параллельная запись
	// в один файл все равно сериализуется.
	DB.SetMaxOpenConns(1)
	DB.SetMaxIdleConns(1)
	DB.SetConnMaxLifetime(time.Hour)

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("ошибка при проверке соединения с %s: %w", dataSourceName, err)
	}

	log.Println("Успешно подключились к базе данных:", dataSourceName)

	if err = createTables(); err != nil {
		DB.Close()
		return fmt.Errorf("ошибка при создании таблиц: %w", err)
	}
	log.Println("Таблицы и индексы успешно проверены/созданы.")
	return nil
}

// createTables создает таблицы users, posts, post_images, messages и индексы,
// если они еще не существуют.
func createTables() error {
	// Пользователи. username и email уникальны, сравнение регистрозависимое
	// (стандартная для SQLite BINARY-сортировка).
	usersTableSQL := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL,                            -- 'superuser','admin','seller','buyer'
		status TEXT NOT NULL DEFAULT 'pending',        -- 'pending','approved','banned'
		first_name TEXT,
		last_name TEXT,
		phone TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`

	// Объявления. При удалении пользователя его объявления удаляются каскадно.
	postsTableSQL := `
	CREATE TABLE IF NOT EXISTS posts (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		price REAL NOT NULL,
		property_type TEXT NOT NULL,                   -- 'house','apartment','condo','land','commercial'
		bedrooms INTEGER,
		bathrooms INTEGER,
		area_sqm REAL,
		address TEXT,
		city TEXT,
		state TEXT,
		country TEXT,
		latitude REAL,
		longitude REAL,
		status TEXT NOT NULL DEFAULT 'active',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
	);`

	// Изображения объявлений. ON DELETE CASCADE: удаление объявления
	// удаляет и записи его изображений.
	imagesTableSQL := `
	CREATE TABLE IF NOT EXISTS post_images (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		post_id INTEGER NOT NULL,
		filename TEXT NOT NULL UNIQUE,
		original_name TEXT,
		file_size INTEGER NOT NULL DEFAULT 0,
		is_primary INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE
	);`

	// Личные сообщения. post_id необязателен; при удалении объявления
	// ссылка обнуляется, сама переписка остается.
	messagesTableSQL := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		sender_id INTEGER NOT NULL,
		receiver_id INTEGER NOT NULL,
		post_id INTEGER,
		subject TEXT,
		body TEXT NOT NULL,
		is_read INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(sender_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY(receiver_id) REFERENCES users(id) ON DELETE CASCADE,
		FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE SET NULL
	);`

	tables := []string{usersTableSQL, postsTableSQL, imagesTableSQL, messagesTableSQL}
	for _, tableSQL := range tables {
		if _, err := DB.Exec(tableSQL); err != nil {
			return fmt.Errorf("ошибка при создании таблицы: %w", err)
		}
	}

	// Индексы под основные запросы.
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_users_status ON users (status);`,
		`CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts (user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_posts_status_created ON posts (status, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_post_images_post_id ON post_images (post_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages (sender_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages (receiver_id, is_read);`,
	}
	for _, indexSQL := range indexes {
		if _, err := DB.Exec(indexSQL); err != nil {
			return fmt.Errorf("ошибка при создании индекса: %w", err)
		}
	}

	return nil
}

// GetDB возвращает глобальный экземпляр *sql.DB.
func GetDB() *sql.DB {
	return DB
}

// isUniqueViolation распознает нарушение UNIQUE constraint в ошибке SQLite.
// Драйвер не экспортирует типизированную ошибку, поэтому смотрим текст.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
