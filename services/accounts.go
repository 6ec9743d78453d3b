package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/cppla/studytutor/models"
	"github.com/cppla/studytutor/utils"
)

const maxNameLength = 64

// ExternalIdentity is the profile returned by an OAuth provider.
type ExternalIdentity struct {
	Provider   string
	ProviderID string
	Email      string
	Name       string
}

// Accounts registers and authenticates users.
type Accounts struct {
	db *gorm.DB
}

// NewAccounts creates an Accounts service.
func NewAccounts(db *gorm.DB) *Accounts {
	return &Accounts{db: db}
}

// Register creates a local user and an empty progress record in one transaction.
func (a *Accounts) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	email, err := utils.NormalizeEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if err := utils.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	name = strings.TrimSpace(utils.SanitizeText(name))
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, invalidArgument("name exceeds %d characters", maxNameLength)
	}
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{Email: email, Name: name, PasswordHash: hash, Provider: "local"}
	if err := a.createWithProgress(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate checks email and password. Unknown email and wrong password are indistinguishable.
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	err := a.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, persistence("load user", err)
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrNotAuthenticated
	}
	return &user, nil
}

// Get loads a user by id.
func (a *Accounts) Get(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := a.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, persistence("load user", err)
	}
	return &user, nil
}

// FindOrCreateExternal resolves an OAuth identity: by provider id, then by email, else a new user.
// A matching account is linked to the provider only when it has no provider link yet.
func (a *Accounts) FindOrCreateExternal(ctx context.Context, id ExternalIdentity) (*models.User, error) {
	if id.Provider == "" || id.ProviderID == "" {
		return nil, invalidArgument("provider identity is incomplete")
	}
	db := a.db.WithContext(ctx)

	var user models.User
	err := db.Where("provider = ? AND provider_id = ?", id.Provider, id.ProviderID).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, persistence("lookup provider user", err)
	}

	email, emailErr := utils.NormalizeEmail(id.Email)
	if emailErr == nil {
		err = db.Where("email = ?", email).First(&user).Error
		if err == nil {
			if user.ProviderID != "" {
				// already linked to another provider; keep that link
				return &user, nil
			}
			res := db.Model(&models.User{}).
				Where("id = ? AND (provider_id = '' OR provider_id IS NULL)", user.ID).
				Updates(map[string]interface{}{
					"provider":    id.Provider,
					"provider_id": id.ProviderID,
				})
			if res.Error != nil {
				return nil, persistence("link provider", res.Error)
			}
			if res.RowsAffected == 1 {
				user.Provider = id.Provider
				user.ProviderID = id.ProviderID
			}
			return &user, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, persistence("lookup user", err)
		}
	} else {
		email = fmt.Sprintf("%s-%s@users.noreply.local", id.Provider, id.ProviderID)
	}

	name := strings.TrimSpace(utils.SanitizeText(id.Name))
	if name == "" {
		name = id.Provider + " user"
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}
	user = models.User{Email: email, Name: name, Provider: id.Provider, ProviderID: id.ProviderID}
	if err := a.createWithProgress(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *Accounts) createWithProgress(ctx context.Context, user *models.User) error {
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("%w: email already registered", ErrConflict)
		}
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: email already registered", ErrConflict)
			}
			return err
		}
		return tx.Create(models.NewProgressRecord(user.ID)).Error
	})
	return persistence("create user", err)
}
