package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/frahmantamala/expense-tracker/internal"
	userDatamodel "github.com/frahmantamala/expense-tracker/internal/core/datamodel/user"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const TokenType = "Bearer"

// Service is the main auth service with dependencies
type Service struct {
	repo   RepositoryAPI
	tokens TokenGeneratorAPI
	hasher PasswordHasher
	logger *slog.Logger
	now    func() time.Time

	dummyOnce sync.Once
	dummy     string
}

// NewService creates a new auth service
func NewService(repo RepositoryAPI, tokens TokenGeneratorAPI, hasher PasswordHasher, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		hasher: hasher,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Login verifies credentials and issues a bearer token. An unknown username
// and a wrong password produce the same error.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*AuthResponse, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	u, err := s.repo.GetByUsername(ctx, dto.Username)
	if err != nil {
		s.logger.Error("failed to load user for login", "error", err)
		return nil, apperrors.NewInternalError("failed to authenticate", err)
	}
	if u == nil {
		// keep timing close to the wrong-password path
		_ = s.hasher.Verify(s.dummyHash(), dto.Password)
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := s.hasher.Verify(u.PasswordHash, dto.Password); err != nil {
		s.logger.Info("login rejected", "user_id", u.ID)
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateAccessToken(u.ID, u.Username)
	if err != nil {
		s.logger.Error("failed to sign token", "user_id", u.ID, "error", err)
		return nil, apperrors.NewInternalError("failed to authenticate", err)
	}

	return &AuthResponse{
		Token:    token,
		Type:     TokenType,
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}, nil
}

// Register creates an account. Username and email uniqueness are both
// checked so the caller sees every conflict at once.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*RegisteredUser, error) {
	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	var conflicts []apperrors.ValidationError

	taken, err := s.repo.ExistsByUsername(ctx, dto.Username)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to register", err)
	}
	if taken {
		conflicts = append(conflicts, apperrors.ValidationError{
			Field: "username", Message: "Username is already taken", Code: string(apperrors.ErrCodeUsernameTaken),
		})
	}

	inUse, err := s.repo.ExistsByEmail(ctx, dto.Email)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to register", err)
	}
	if inUse {
		conflicts = append(conflicts, apperrors.ValidationError{
			Field: "email", Message: "Email is already in use", Code: string(apperrors.ErrCodeEmailInUse),
		})
	}

	if len(conflicts) > 0 {
		return nil, apperrors.NewConflictError(conflicts[0].Message, apperrors.ErrCodeAccountExists).
			WithDetails(apperrors.ValidationErrors{Errors: conflicts})
	}

	hash, err := s.hasher.Hash(dto.Password)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to register", err)
	}

	now := s.now().UTC()
	row := &userDatamodel.User{
		Username:     dto.Username,
		Email:        dto.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if errors.Is(err, ErrDuplicateAccount) {
			return nil, apperrors.NewConflictError("Username or email is already in use", apperrors.ErrCodeAccountExists)
		}
		s.logger.Error("failed to create user", "error", err)
		return nil, apperrors.NewInternalError("failed to register", err)
	}

	s.logger.Info("user registered", "user_id", row.ID)
	return &RegisteredUser{ID: row.ID, Username: row.Username, Email: row.Email}, nil
}

// Resolve turns a bearer token into the caller identity. It does not touch
// the store: a valid signature and expiry are sufficient.
func (s *Service) Resolve(token string) (apperrors.Identity, error) {
	if token == "" {
		return apperrors.Identity{}, apperrors.ErrMissingToken
	}
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return apperrors.Identity{}, err
	}
	return apperrors.Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

// NewJWTTokenGenerator creates a new JWT token generator
func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTTokenGenerator{
		Secret:         []byte(secret),
		Issuer:         "expense-tracker",
		AccessTokenTTL: ttl,
		now:            time.Now,
	}
}

func (j *JWTTokenGenerator) WithClock(now func() time.Time) *JWTTokenGenerator {
	j.now = now
	return j
}

// GenerateAccessToken creates a new access token
func (j *JWTTokenGenerator) GenerateAccessToken(userID int64, username string) (string, error) {
	issuedAt := j.now()

	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(j.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(j.Issuer),
		jwt.WithTimeFunc(j.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken.WithCause(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, apperrors.ErrInvalidToken
	}

	return claims, nil
}

type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

// Hash creates a bcrypt hash of the password
func (b *BcryptHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (b *BcryptHasher) Verify(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (s *Service) dummyHash() string {
	s.dummyOnce.Do(func() {
		s.dummy, _ = s.hasher.Hash("expense-tracker/unknown-user")
	})
	return s.dummy
}
