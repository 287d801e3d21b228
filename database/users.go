package database

import (
	"database/sql"
	"errors"
	"time"

	"storefront/models"
)

var ErrEmailTaken = errors.New("email already registered")

// UserStore is the MySQL-backed user repository. It satisfies
// session.Backend: FetchProfile reads the profile row, IsAdmin is the
// authoritative privilege check against the admins table, never the
// cached role column.
type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(u *models.User) error {
	var exists int
	err := s.db.QueryRow("SELECT COUNT(1) FROM users WHERE email = ?", u.Email).Scan(&exists)
	if err != nil {
		return err
	}
	if exists > 0 {
		return ErrEmailTaken
	}
	_, err = s.db.Exec(
		"INSERT INTO users (id, email, password_hash, full_name, phone, avatar_url, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		u.ID, u.Email, u.PasswordHash, u.FullName, u.Phone, u.AvatarURL, string(u.Role), u.CreatedAt, u.UpdatedAt,
	)
	return err
}

func (s *UserStore) GetUserByEmail(email string) (*models.User, bool) {
	var u models.User
	var role string
	err := s.db.QueryRow(
		"SELECT id, email, password_hash, full_name, phone, avatar_url, role, created_at, updated_at FROM users WHERE email = ?",
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.AvatarURL, &role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, false
	}
	u.Role = models.Role(role)
	return &u, true
}

func (s *UserStore) FetchProfile(userID string) (*models.Profile, error) {
	var p models.Profile
	var role string
	err := s.db.QueryRow(
		"SELECT id, email, full_name, phone, avatar_url, role FROM users WHERE id = ?", userID,
	).Scan(&p.UserID, &p.Email, &p.FullName, &p.Phone, &p.AvatarURL, &role)
	if err != nil {
		return nil, err
	}
	p.Role = models.Role(role)
	return &p, nil
}

func (s *UserStore) IsAdmin(userID string) (bool, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(1) FROM admins WHERE user_id = ?", userID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SignOut exists to satisfy session.Backend. Tokens are stateless
// JWTs, so there is nothing to revoke server-side.
func (s *UserStore) SignOut(token string) error {
	return nil
}

func (s *UserStore) UpdateProfile(userID, fullName, phone, avatarURL string) error {
	_, err := s.db.Exec(
		"UPDATE users SET full_name = ?, phone = ?, avatar_url = ?, updated_at = ? WHERE id = ?",
		fullName, phone, avatarURL, time.Now().UTC(), userID,
	)
	return err
}
