package database

import (
	"database/sql"
	"fmt"
	"log"

	"realtynet/internal/models"
)

// userColumns - список столбцов, которые сканируются в models.User.
// Хеш пароля выбирается только в GetUserByLogin, для проверки при входе.
const userColumns = "id, username, email, role, status, first_name, last_name, phone, created_at"

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Role,
		&user.Status,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser создает нового пользователя в статусе 'pending'.
// Возвращает ID созданной записи. Нарушение уникальности username/email
// возвращается как ErrConflict.
func CreateUser(username, email, passwordHash string, role models.Role, firstName, lastName, phone string) (int64, error) {
	res, err := DB.Exec(`
		INSERT INTO users (username, email, password_hash, role, status, first_name, last_name, phone)
		VALUES (?, ?, ?, ?, 'pending', NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''))
	`, username, email, passwordHash, string(role), firstName, lastName, phone)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("пользователь с таким именем или email уже существует: %w", ErrConflict)
		}
		return 0, fmt.Errorf("ошибка при выполнении запроса CreateUser: %w", err)
	}

	lastID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ошибка при получении ID последнего пользователя CreateUser: %w", err)
	}

	log.Printf("Создан пользователь: %s (ID: %d, роль: %s, статус: pending)", username, lastID, role)
	return lastID, nil
}

// EnsureSuperuser создает суперпользователя в статусе 'approved', если записи
// с таким username еще нет. admin/superuser не регистрируются через API,
// поэтому начальная учетная запись заводится при старте сервера.
func EnsureSuperuser(username, email, passwordHash string) error {
	res, err := DB.Exec(`
		INSERT INTO users (username, email, password_hash, role, status)
		SELECT ?, ?, ?, 'superuser', 'approved'
		WHERE NOT EXISTS (SELECT 1 FROM users WHERE username = ?)
	`, username, email, passwordHash, username)
	if err != nil {
		return fmt.Errorf("ошибка при создании суперпользователя: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Printf("Суперпользователь '%s' создан.", username)
	}
	return nil
}

// GetUserByLogin ищет пользователя по имени ИЛИ email (форма входа принимает
// и то, и другое). Единственная функция, возвращающая хеш пароля.
// Возвращает nil, nil если пользователь не найден.
func GetUserByLogin(login string) (*models.User, error) {
	user := &models.User{}
	row := DB.QueryRow(`
		SELECT id, username, email, password_hash, role, status, first_name, last_name, phone, created_at
		FROM users
		WHERE username = ? OR email = ?`, login, login)

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Status,
		&user.FirstName,
		&user.LastName,
		&user.Phone,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка сканирования GetUserByLogin для %s: %w", login, err)
	}
	return user, nil
}

// GetUserByID возвращает пользователя по ID или nil, nil если не найден.
func GetUserByID(id int64) (*models.User, error) {
	row := DB.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("ошибка сканирования GetUserByID для %d: %w", id, err)
	}
	return user, nil
}

func queryUsers(query string, args ...any) ([]models.User, error) {
	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса списка пользователей: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.Status, &u.FirstName, &u.LastName, &u.Phone, &u.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки пользователя: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ListPendingUsers возвращает пользователей, ожидающих одобрения,
// в порядке подачи заявок (старые первыми).
func ListPendingUsers() ([]models.User, error) {
	return queryUsers("SELECT " + userColumns + " FROM users WHERE status = 'pending' ORDER BY created_at ASC")
}

// ListAllUsers возвращает всех пользователей, новые первыми.
func ListAllUsers() ([]models.User, error) {
	return queryUsers("SELECT " + userColumns + " FROM users ORDER BY created_at DESC, id DESC")
}

// execGuarded выполняет условный UPDATE/DELETE и возвращает ErrConflict,
// если условие WHERE не пропустило ни одной строки. На этом держится
// защита переходов состояния от гонок: проверка и запись - один оператор.
func execGuarded(op, query string, args ...any) error {
	res, err := DB.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения rowsAffected в %s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: строка не найдена или состояние уже изменилось: %w", op, ErrConflict)
	}
	return nil
}

// ApproveUser переводит пользователя pending -> approved.
// Условие status='pending' в WHERE делает переход атомарным:
// повторное одобрение вернет ErrConflict.
func ApproveUser(id int64) error {
	return execGuarded("ApproveUser",
		"UPDATE users SET status = 'approved' WHERE id = ? AND status = 'pending'", id)
}

// RejectUser удаляет заявку на регистрацию. Удаление возможно только
// из статуса 'pending' - одобренных пользователей отклонить нельзя.
func RejectUser(id int64) error {
	return execGuarded("RejectUser",
		"DELETE FROM users WHERE id = ? AND status = 'pending'", id)
}

// BanUser переводит пользователя в статус 'banned'.
// Суперпользователя забанить нельзя; условие в WHERE повторяет проверку
// обработчика на случай смены роли между чтением и записью.
func BanUser(id int64) error {
	return execGuarded("BanUser",
		"UPDATE users SET status = 'banned' WHERE id = ? AND role <> 'superuser'", id)
}

// UnbanUser возвращает забаненного пользователя в 'approved'.
func UnbanUser(id int64) error {
	return execGuarded("UnbanUser",
		"UPDATE users SET status = 'approved' WHERE id = ? AND status = 'banned'", id)
}

// PromoteUser назначает пользователю новую роль.
func PromoteUser(id int64, role models.Role) error {
	res, err := DB.Exec("UPDATE users SET role = ? WHERE id = ?", string(role), id)
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса PromoteUser: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("PromoteUser: пользователь %d не найден: %w", id, ErrNotFound)
	}
	log.Printf("Пользователю %d назначена роль '%s'.", id, role)
	return nil
}

// UpdateUserProfile обновляет разрешенные поля профиля (имя, фамилия, телефон).
// nil означает "поле не передано, не трогать". Белый список зашит в сигнатуру:
// другие столбцы через эту функцию изменить невозможно.
func UpdateUserProfile(id int64, firstName, lastName, phone *string) error {
	setClauses := ""
	args := []any{}

	appendSet := func(column string, value *string) {
		if value == nil {
			return
		}
		if setClauses != "" {
			setClauses += ", "
		}
		setClauses += column + " = ?"
		args = append(args, *value)
	}
	appendSet("first_name", firstName)
	appendSet("last_name", lastName)
	appendSet("phone", phone)

	if setClauses == "" {
		return fmt.Errorf("UpdateUserProfile: нет полей для обновления: %w", ErrConflict)
	}

	args = append(args, id)
	_, err := DB.Exec("UPDATE users SET "+setClauses+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса UpdateUserProfile: %w", err)
	}
	return nil
}
