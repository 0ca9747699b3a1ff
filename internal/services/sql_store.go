package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/pokstore/backend/internal/apperrors"
	"github.com/pokstore/backend/internal/models"
)

// SQLStore keeps items and accounts in the local database (sqlite or
// postgres through gorm). Sessions are HS256 JWTs.
type SQLStore struct {
	db         *gorm.DB
	jwtSecret  []byte
	sessionTTL time.Duration
	now        func() time.Time
}

// NewSQLStore creates a store over db
func NewSQLStore(db *gorm.DB, jwtSecret string, sessionTTL time.Duration) *SQLStore {
	if sessionTTL <= 0 {
		sessionTTL = time.Hour
	}
	return &SQLStore{
		db:         db,
		jwtSecret:  []byte(jwtSecret),
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// translateError maps database errors to store error codes
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &StoreError{Code: StoreCodeDuplicate, Message: "duplicate key value", Cause: err}
	}
	return &StoreError{Code: StoreCodeServer, Message: err.Error(), Cause: err}
}

func itemNotFound(id string) error {
	return apperrors.Wrap(apperrors.CodeNotFound, apperrors.KeyItemNotFound, fmt.Errorf("item %s", id))
}

func (s *SQLStore) ListItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, translateError(err)
	}
	for i := range items {
		items[i].Normalize()
	}
	return items, nil
}

func (s *SQLStore) CreateItem(ctx context.Context, item models.Item) (models.Item, error) {
	created, err := s.CreateItems(ctx, []models.Item{item})
	if err != nil {
		return models.Item{}, err
	}
	return created[0], nil
}

// CreateItems inserts items in one transaction, assigning identifiers
func (s *SQLStore) CreateItems(ctx context.Context, items []models.Item) ([]models.Item, error) {
	if len(items) == 0 {
		return []models.Item{}, nil
	}
	out := make([]models.Item, len(items))
	now := s.now().UTC()
	for i, item := range items {
		item = item.Clone()
		item.ID = uuid.NewString()
		item.CreatedAt = now
		item.UpdatedAt = now
		out[i] = item
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&out, 100).Error
	})
	if err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

func (s *SQLStore) UpdateItem(ctx context.Context, id string, patch models.ItemPatch) (models.Item, error) {
	var item models.Item
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			return err
		}
		patch.Apply(&item)
		item.UpdatedAt = s.now().UTC()
		return tx.Save(&item).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Item{}, itemNotFound(id)
	}
	if err != nil {
		return models.Item{}, translateError(err)
	}
	item.Normalize()
	return item, nil
}

func (s *SQLStore) DeleteItem(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.Item{}, "id = ?", id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return itemNotFound(id)
	}
	return nil
}

func (s *SQLStore) SignIn(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", creds.Email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Localized(apperrors.CodeAuth, apperrors.KeyInvalidLogin)
	}
	if err != nil {
		return nil, translateError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, apperrors.Localized(apperrors.CodeAuth, apperrors.KeyInvalidLogin)
	}
	return s.newSession(&user)
}

func (s *SQLStore) SignUp(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", creds.Email).Count(&count).Error; err != nil {
		return nil, translateError(err)
	}
	if count > 0 {
		return nil, apperrors.Localized(apperrors.CodeConflict, apperrors.KeyEmailTaken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		ID:           uuid.NewString(),
		Email:        creds.Email,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return s.newSession(&user)
}

// SignOut checks the token. Tokens are stateless, so nothing else is kept.
func (s *SQLStore) SignOut(_ context.Context, token string) error {
	_, err := s.VerifyToken(token)
	return err
}

func (s *SQLStore) newSession(user *models.User) (*models.Session, error) {
	now := s.now()
	expires := now.Add(s.sessionTTL)
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"exp":   expires.Unix(),
		"iat":   now.Unix(),
		"jti":   uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &models.Session{Token: signed, UserID: user.ID, Email: user.Email, ExpiresAt: expires}, nil
}

// VerifyToken parses a session token minted by this store. An expired token
// is reported with the session-expired code.
func (s *SQLStore) VerifyToken(token string) (*models.Session, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, &StoreError{Code: StoreCodeSessionExpired, Message: "JWT expired", Status: 401, Cause: err}
	}
	if err != nil || !parsed.Valid {
		return nil, apperrors.Localized(apperrors.CodeAuth, apperrors.KeyUnauthorized)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperrors.Localized(apperrors.CodeAuth, apperrors.KeyUnauthorized)
	}
	userID, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if userID == "" {
		return nil, apperrors.Localized(apperrors.CodeAuth, apperrors.KeyUnauthorized)
	}
	session := &models.Session{Token: token, UserID: userID, Email: email}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		session.ExpiresAt = exp.Time
	}
	return session, nil
}

// Online pings the database
func (s *SQLStore) Online(ctx context.Context) bool {
	sqlDB, err := s.db.DB()
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx) == nil
}
