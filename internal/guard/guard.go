package guard

import (
	// Стандартные библиотеки
	"errors"
	"log"
	"time"

	// Внутренние пакеты
	"realtynet/internal/models"

	// Сторонние библиотеки
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Виды ошибок авторизации. Граница API превращает их в HTTP-статусы:
// ErrUnauthenticated и ErrSessionExpired -> 401, остальные -> 403.
var (
	ErrUnauthenticated = errors.New("требуется вход в систему")
	ErrSessionExpired  = errors.New("сессия истекла")
	ErrNotApproved     = errors.New("учетная запись не одобрена")
	ErrForbidden       = errors.New("недостаточно прав")
)

// Ключи значений в сессии.
const (
	sessionKeyUserID    = "user_id"
	sessionKeyUsername  = "username"
	sessionKeyRole      = "role"
	sessionKeyStatus    = "status"
	sessionKeyLoginTime = "login_time"
)

// SessionLifetime - время жизни сессии, отсчитываемое от момента входа.
// Окно фиксированное, активность его НЕ продлевает - так вела себя
// исходная система; настраивается из main через SetSessionLifetime.
var sessionLifetime = time.Hour

// SetSessionLifetime задает время жизни сессии.
func SetSessionLifetime(d time.Duration) {
	if d > 0 {
		sessionLifetime = d
	}
}

// Principal - снимок личности пользователя из сессии.
// Это именно снимок на момент входа: смена статуса в БД (например, бан)
// не видна живой сессии до её истечения или перелогина.
type Principal struct {
	UserID    int64
	Username  string
	Role      models.Role
	Status    models.UserStatus
	LoginTime time.Time
}

// Login записывает в сессию снимок личности и время входа.
func Login(c *gin.Context, user *models.User) error {
	session := sessions.Default(c)
	session.Set(sessionKeyUserID, user.ID)
	session.Set(sessionKeyUsername, user.Username)
	session.Set(sessionKeyRole, string(user.Role))
	session.Set(sessionKeyStatus, string(user.Status))
	session.Set(sessionKeyLoginTime, time.Now().Unix())
	return session.Save()
}

// Logout уничтожает сессию: значения очищаются, cookie получает MaxAge=-1,
// чтобы браузер его удалил.
func Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}

// CurrentPrincipal извлекает личность из сессии.
// Возвращает (nil, nil) для анонимного запроса.
// Проверка истечения выполняется ДО всего остального: протухшая сессия
// уничтожается как побочный эффект и возвращается ErrSessionExpired,
// чтобы она никогда не прошла последующие проверки роли или статуса.
func CurrentPrincipal(c *gin.Context) (*Principal, error) {
	session := sessions.Default(c)

	userIDRaw := session.Get(sessionKeyUserID)
	if userIDRaw == nil {
		return nil, nil
	}

	userID, ok := userIDRaw.(int64)
	if !ok {
		// Поврежденные данные сессии - чистим и считаем запрос анонимным.
		log.Printf("ОШИБКА ТИПА ДАННЫХ СЕССИИ: некорректный user_id (%T) с IP %s. Сессия будет очищена.", userIDRaw, c.ClientIP())
		_ = Logout(c)
		return nil, nil
	}

	loginUnix, _ := session.Get(sessionKeyLoginTime).(int64)
	loginTime := time.Unix(loginUnix, 0)
	if time.Since(loginTime) > sessionLifetime {
		log.Printf("Сессия пользователя %d истекла (вход: %s), уничтожаем.", userID, loginTime.Format(time.RFC3339))
		if err := Logout(c); err != nil {
			log.Printf("Ошибка уничтожения истекшей сессии пользователя %d: %v", userID, err)
		}
		return nil, ErrSessionExpired
	}

	username, _ := session.Get(sessionKeyUsername).(string)
	role, _ := session.Get(sessionKeyRole).(string)
	status, _ := session.Get(sessionKeyStatus).(string)

	return &Principal{
		UserID:    userID,
		Username:  username,
		Role:      models.Role(role),
		Status:    models.UserStatus(status),
		LoginTime: loginTime,
	}, nil
}

// RequireAuthenticated возвращает личность или ошибку (ErrSessionExpired /
// ErrUnauthenticated).
func RequireAuthenticated(c *gin.Context) (*Principal, error) {
	p, err := CurrentPrincipal(c)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrUnauthenticated
	}
	return p, nil
}

// RequireApproved - как RequireAuthenticated, плюс статус 'approved'.
func RequireApproved(c *gin.Context) (*Principal, error) {
	p, err := RequireAuthenticated(c)
	if err != nil {
		return nil, err
	}
	if !p.IsApproved() {
		return nil, ErrNotApproved
	}
	return p, nil
}

// RequireRole - как RequireApproved, плюс одна из перечисленных ролей.
func RequireRole(c *gin.Context, roles ...models.Role) (*Principal, error) {
	p, err := RequireApproved(c)
	if err != nil {
		return nil, err
	}
	if !p.HasAnyRole(roles...) {
		return nil, ErrForbidden
	}
	return p, nil
}

// --- Предикаты возможностей ---
// Чистые функции от роли и статуса. Вся ролевая политика собрана здесь,
// доменные обработчики не сравнивают роли напрямую.

// IsApproved сообщает, одобрена ли учетная запись.
func (p *Principal) IsApproved() bool {
	return p != nil && p.Status == models.StatusApproved
}

// HasAnyRole сообщает, входит ли роль пользователя в перечисленные.
func (p *Principal) HasAnyRole(roles ...models.Role) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// CanCreatePosts: объявления создают только одобренные продавцы.
func (p *Principal) CanCreatePosts() bool {
	return p.HasAnyRole(models.RoleSeller) && p.IsApproved()
}

// CanSendMessages: переписка доступна одобренным покупателям и продавцам.
func (p *Principal) CanSendMessages() bool {
	return p.HasAnyRole(models.RoleBuyer, models.RoleSeller) && p.IsApproved()
}

// CanEditPost: владелец объявления либо admin/superuser.
func (p *Principal) CanEditPost(post *models.Post) bool {
	if p == nil || post == nil {
		return false
	}
	if p.HasAnyRole(models.RoleSuperuser, models.RoleAdmin) {
		return true
	}
	return post.UserID == p.UserID
}

// CanDeletePost совпадает с CanEditPost.
func (p *Principal) CanDeletePost(post *models.Post) bool {
	return p.CanEditPost(post)
}

// CanApproveUsers: одобряет и отклоняет заявки только superuser.
func (p *Principal) CanApproveUsers() bool {
	return p.HasAnyRole(models.RoleSuperuser)
}

// CanBanUsers: банят superuser и admin.
func (p *Principal) CanBanUsers() bool {
	return p.HasAnyRole(models.RoleSuperuser, models.RoleAdmin)
}

// CanManageUsers: просмотр списков пользователей и чужих профилей.
func (p *Principal) CanManageUsers() bool {
	return p.HasAnyRole(models.RoleSuperuser, models.RoleAdmin)
}
