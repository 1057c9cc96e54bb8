package model

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleMentor  Role = "mentor"
	RoleStudent Role = "student"
)

// Valid проверяет, что роль известна
func (r Role) Valid() bool {
	return r == RoleMentor || r == RoleStudent
}

type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Role       Role      `json:"role"`
	Bio        string    `json:"bio"`
	TelegramID *int64    `json:"telegram_id,omitempty"` // Привязанный Telegram аккаунт
	CreatedAt  time.Time `json:"created_at"`
}

func (u *User) IsMentor() bool {
	return u.Role == RoleMentor
}

func (u *User) IsStudent() bool {
	return u.Role == RoleStudent
}

// HasTelegram проверяет, привязан ли Telegram
func (u *User) HasTelegram() bool {
	return u.TelegramID != nil && *u.TelegramID != 0
}

// DisplayName возвращает имя для уведомлений
func (u *User) DisplayName() string {
	name := strings.TrimSpace(fmt.Sprintf("%s %s", u.FirstName, u.LastName))
	if name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return u.Email
}
