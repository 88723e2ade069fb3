package postgresql

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"golang.org/x/crypto/bcrypt"

	"bluedex/internal/db"
	"bluedex/internal/repository"
	"bluedex/internal/storage"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type UserRepo struct {
	db db.DB
}

func NewUserRepo(db db.DB) storage.UserRepository {
	return &UserRepo{db: db}
}

func (r *UserRepo) CreateUser(ctx context.Context, user *repository.User, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	_, err = r.db.Exec(ctx, `
        INSERT INTO users (id, username, password, role, name, email, phone, address)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, user.ID, user.Username, string(hashed), user.Role, user.Name, user.Email, user.Phone, user.Address)
	return err
}

// Authenticate verifies the username/password pair and returns the matching
// user. The bcrypt comparison runs even though the caller only learns
// "invalid credentials" either way.
func (r *UserRepo) Authenticate(ctx context.Context, username, password string) (*repository.User, error) {
	var user repository.User
	err := r.db.Get(ctx, &user, "SELECT * FROM users WHERE username = $1", username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	var user repository.User
	err := r.db.Get(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &user, nil
}
