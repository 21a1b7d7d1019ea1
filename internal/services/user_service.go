package services

import (
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/civicgrid/civicgrid-be/internal/apperr"
	"github.com/civicgrid/civicgrid-be/internal/models"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// emailPattern matches a standard local@domain.tld address.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const minPasswordLength = 8

// UserServiceProvider defines the interface for user services.
type UserServiceProvider interface {
	Register(username, email, password, confirm string) (models.User, error)
	Authenticate(username, password string) (models.User, error)
	GetUserByUsername(username string) (models.User, error)
}

// UserService provides business logic for user management.
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

// Register validates a sign-up attempt and inserts the new account with a
// hashed password. Duplicate usernames or emails are detected by the
// storage layer's uniqueness constraint, not by a lookup beforehand, so
// two concurrent registrations of the same name cannot both succeed.
func (s *UserService) Register(username, email, password, confirm string) (models.User, error) {
	if username == "" || email == "" || password == "" || confirm == "" {
		return models.User{}, apperr.NewValidation(apperr.CodeMissingField, "all fields are required")
	}
	if !emailPattern.MatchString(email) {
		return models.User{}, apperr.NewValidation(apperr.CodeInvalidEmail, "email address is not valid")
	}
	if len(password) < minPasswordLength {
		return models.User{}, apperr.NewValidation(apperr.CodeWeakPassword, "password must be at least 8 characters")
	}
	if password != confirm {
		return models.User{}, apperr.NewValidation(apperr.CodeMismatch, "passwords do not match")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, apperr.NewStorage("hash password", err)
	}

	user := models.User{
		ID:       uuid.New().String(),
		Username: username,
		Email:    email,
		Role:     models.RoleStandard,
	}

	_, err = s.db.Exec(
		"INSERT INTO users (id, username, email, password_hash, role) VALUES (?, ?, ?, ?, ?)",
		user.ID, user.Username, user.Email, string(hashedPassword), user.Role,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, apperr.NewConflict("username or email already exists")
		}
		return models.User{}, apperr.NewStorage("insert user", err)
	}

	return user, nil
}

// Authenticate verifies a login attempt. An unknown username and a wrong
// password yield the same AuthError so accounts cannot be enumerated.
func (s *UserService) Authenticate(username, password string) (models.User, error) {
	if username == "" || password == "" {
		return models.User{}, apperr.NewValidation(apperr.CodeMissingCredentials, "username and password are required")
	}

	user, err := s.getWithHash(username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, apperr.NewAuth()
		}
		return models.User{}, apperr.NewStorage("look up user", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return models.User{}, apperr.NewAuth()
	}

	// Don't hand the password hash back to the caller.
	user.PasswordHash = ""
	return user, nil
}

// GetUserByUsername retrieves a single user by name, without the password hash.
func (s *UserService) GetUserByUsername(username string) (models.User, error) {
	var user models.User
	row := s.db.QueryRow("SELECT id, username, email, role, created_at FROM users WHERE username = ?", username)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, err
		}
		return models.User{}, apperr.NewStorage("look up user", err)
	}
	return user, nil
}

func (s *UserService) getWithHash(username string) (models.User, error) {
	var user models.User
	row := s.db.QueryRow("SELECT id, username, email, password_hash, role, created_at FROM users WHERE username = ?", username)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// isUniqueViolation reports whether err is the sqlite uniqueness
// constraint firing on insert.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
