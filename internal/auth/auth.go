package auth

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/frahmantamala/expense-tracker/internal"
	userDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/user"
	"github.com/golang-jwt/jwt/v5"
)

type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO) (*AuthResponse, error)
	Register(ctx context.Context, dto RegisterDTO) (*RegisteredUser, error)
	Resolve(token string) (apperrors.Identity, error)
}

type RepositoryAPI interface {
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user *userDatamodel.User) error
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(userID int64, username string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) error
}

type Claims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	Secret         []byte
	Issuer         string
	AccessTokenTTL time.Duration
	now            func() time.Time
}

type RegisteredUser struct {
	ID       int64
	Username string
	Email    string
}

// ErrDuplicateAccount is returned by repositories when a unique index on
// username or email rejects an insert.
var ErrDuplicateAccount = errors.New("username or email already exists")
