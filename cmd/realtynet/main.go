package main

import (
	// Стандартные библиотеки
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	// Внутренние пакеты проекта
	"realtynet/internal/auth"
	"realtynet/internal/database"
	"realtynet/internal/guard"
	"realtynet/internal/handlers"
	"realtynet/internal/middleware"
	"realtynet/internal/services"

	// Сторонние библиотеки
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// getEnv получает значение переменной окружения по ключу.
// Если переменная не установлена, возвращает fallback и логирует предупреждение.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	log.Printf("Переменная окружения %s не установлена, используется значение по умолчанию: %s", key, fallback)
	return fallback
}

// checkOrCreateDir проверяет существование директории и создает её при
// необходимости. Любая неустранимая проблема с путем - критическая ошибка.
func checkOrCreateDir(dirPath string) {
	if dirPath == "" {
		log.Fatalf("КРИТИЧЕСКАЯ ОШИБКА: путь к директории не может быть пустым.")
	}
	if dirPath == "/" || dirPath == "." {
		log.Fatalf("КРИТИЧЕСКАЯ ОШИБКА: указан небезопасный путь для создания директории: %s", dirPath)
	}

	info, err := os.Stat(dirPath)
	if os.IsNotExist(err) {
		log.Printf("Папка %s не найдена, создаем...", dirPath)
		if err := os.MkdirAll(dirPath, 0755); err != nil {
			log.Fatalf("КРИТИЧЕСКАЯ ОШИБКА: не удалось создать папку %s: %v", dirPath, err)
		}
		return
	}
	if err != nil {
		log.Fatalf("КРИТИЧЕСКАЯ ОШИБКА: ошибка при проверке папки %s: %v", dirPath, err)
	}
	if !info.IsDir() {
		log.Fatalf("КРИТИЧЕСКАЯ ОШИБКА: путь %s существует, но не является директорией.", dirPath)
	}
}

func main() {
	// --- 1. Конфигурация ---
	// .env необязателен: в контейнере конфигурация приходит из окружения.
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используется только окружение процесса.")
	}

	cookieSecret := os.Getenv("COOKIE_SECRET")
	if cookieSecret == "" {
		// Без секрета в окружении генерируем случайный на время жизни
		// процесса: сессии не переживут рестарт, о чем предупреждаем.
		generated, err := services.GenerateSecureToken(32)
		if err != nil {
			log.Fatalf("КРИТИЧЕСКАЯ ОШИБКА: COOKIE_SECRET не задан и не удалось сгенерировать случайный: %v", err)
		}
		log.Println("ПРЕДУПРЕЖДЕНИЕ: COOKIE_SECRET не задан, используется случайный секрет. Все сессии будут сброшены при рестарте.")
		cookieSecret = generated
	}

	dbPath := getEnv("DB_PATH", "./data/realtynet.db")
	listenPort := getEnv("LISTEN_PORT", "8080")
	uploadPath := getEnv("UPLOAD_PATH", "./uploads")

	// Время жизни сессии в секундах, фиксированное окно от момента входа.
	sessionLifetime := 3600
	if raw := os.Getenv("SESSION_LIFETIME"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			sessionLifetime = v
		} else {
			log.Printf("ПРЕДУПРЕЖДЕНИЕ: некорректное значение SESSION_LIFETIME %q, используется %d.", raw, sessionLifetime)
		}
	}
	guard.SetSessionLifetime(time.Duration(sessionLifetime) * time.Second)

	// Проверяем директории ДО инициализации зависимых компонентов.
	checkOrCreateDir(filepath.Dir(dbPath))
	checkOrCreateDir(uploadPath)

	// --- 2. Инициализация зависимостей ---
	if err := database.InitDB(dbPath); err != nil {
		log.Fatalf("Ошибка инициализации базы данных: %v", err)
	}

	// Начальный суперпользователь: admin/superuser не регистрируются через
	// API, учетная запись заводится из окружения при старте.
	suUsername := os.Getenv("SUPERUSER_USERNAME")
	suPassword := os.Getenv("SUPERUSER_PASSWORD")
	if suUsername != "" && suPassword != "" {
		hash, err := auth.HashPassword(suPassword)
		if err != nil {
			log.Fatalf("Ошибка хеширования пароля суперпользователя: %v", err)
		}
		suEmail := getEnv("SUPERUSER_EMAIL", suUsername+"@localhost")
		if err := database.EnsureSuperuser(suUsername, suEmail, hash); err != nil {
			log.Fatalf("Ошибка создания суперпользователя: %v", err)
		}
	} else {
		log.Println("SUPERUSER_USERNAME/SUPERUSER_PASSWORD не заданы, начальный суперпользователь не создается.")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()

	// За обратным прокси nil доверяет любому прокси - в продакшене
	// ограничьте подсетью прокси-контейнера.
	if err := router.SetTrustedProxies(nil); err != nil {
		log.Fatalf("Ошибка установки доверенных прокси: %v", err)
	}

	// Максимальный размер multipart-формы в памяти (остальное - во временные файлы).
	router.MaxMultipartMemory = 10 << 20

	// Cookie-хранилище сессий. Время жизни cookie совпадает с окном сессии;
	// истечение дополнительно проверяется в guard по login_time.
	store := cookie.NewStore([]byte(cookieSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   sessionLifetime,
		HttpOnly: true, // недоступен из JavaScript
		Secure:   false,
	})
	router.Use(sessions.Sessions("realtynet_session", store))

	// --- 3. Маршруты ---
	// Каждый ресурс - одна точка входа; метод и параметр action выбирают
	// операцию внутри диспетчера (граница нормализует 405 и invalid action).
	router.Any("/api/auth", handlers.AuthDispatch)
	router.Any("/api/posts", handlers.PostsDispatch)
	router.Any("/api/uploads", handlers.UploadsDispatch)

	// Группы, целиком закрытые от анонимов.
	protected := router.Group("/api")
	protected.Use(middleware.RequireAuth())
	{
		protected.Any("/users", handlers.UsersDispatch)
		protected.Any("/messages", handlers.MessagesDispatch)
	}

	// --- 4. Запуск сервера ---
	listenAddr := ":" + listenPort
	log.Printf("Сервер запускается на %s", listenAddr)
	if err := router.Run(listenAddr); err != nil {
		log.Fatalf("Не удалось запустить сервер: %v", err)
	}
}
