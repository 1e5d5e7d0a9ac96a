package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"farmlink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountFilter narrows an account listing.
type AccountFilter struct {
	Role   *models.Role
	Query  string
	Limit  int
	Offset int
}

// AccountRepository defines persistence operations for accounts and their
// role profiles.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id uint) (*models.Account, error)
	GetByPhone(ctx context.Context, phone string) (*models.Account, error)
	Save(ctx context.Context, account *models.Account) error
	TouchLastLogin(ctx context.Context, id uint, at time.Time) error
	List(ctx context.Context, filter AccountFilter) ([]models.Account, int64, error)
	ListByRole(ctx context.Context, role models.Role) ([]models.Account, error)
	Delete(ctx context.Context, id uint) error
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository returns a new AccountRepository implementation.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

// Create inserts the account and its profile variant, if any. Phone
// uniqueness is enforced by the unique index.
func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		return saveProfile(tx, account)
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewDuplicatePhoneError()
		}
		return internal(err)
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	db := r.db.WithContext(ctx)
	if err := db.First(&account, id).Error; err != nil {
		return nil, notFoundOr(err, "Account", id)
	}
	if err := loadProfile(db, &account); err != nil {
		return nil, internal(err)
	}
	return &account, nil
}

func (r *accountRepository) GetByPhone(ctx context.Context, phone string) (*models.Account, error) {
	var account models.Account
	db := r.db.WithContext(ctx)
	if err := db.Where("phone = ?", phone).First(&account).Error; err != nil {
		return nil, notFoundOr(err, "Account", phone)
	}
	if err := loadProfile(db, &account); err != nil {
		return nil, internal(err)
	}
	return &account, nil
}

// Save persists account columns and replaces the profile variant in one
// transaction. Variant rows that do not match the account role are removed.
func (r *accountRepository) Save(ctx context.Context, account *models.Account) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Account{ID: account.ID}).
			Select("Email", "Name", "Role", "IsActive", "ProfileImage", "UpdatedAt").
			Updates(&models.Account{
				Email:        account.Email,
				Name:         account.Name,
				Role:         account.Role,
				IsActive:     account.IsActive,
				ProfileImage: account.ProfileImage,
				UpdatedAt:    time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		for _, variant := range models.ProfileModels() {
			if variant.(models.RoleProfile).ProfileRole() == account.Role {
				continue
			}
			if err := tx.Where("account_id = ?", account.ID).Delete(variant).Error; err != nil {
				return err
			}
		}
		return saveProfile(tx, account)
	})
	if err != nil {
		return notFoundOr(err, "Account", account.ID)
	}
	return nil
}

func (r *accountRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	if err := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		UpdateColumn("last_login", at).Error; err != nil {
		return internal(err)
	}
	return nil
}

func (r *accountRepository) List(ctx context.Context, filter AccountFilter) ([]models.Account, int64, error) {
	db := r.db.WithContext(ctx)
	q := db.Model(&models.Account{})
	if filter.Role != nil {
		q = q.Where("role = ?", *filter.Role)
	}
	if term := strings.TrimSpace(filter.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR phone LIKE ?)", like, like)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, internal(err)
	}

	var accounts []models.Account
	if err := q.Order("id ASC").Limit(filter.Limit).Offset(filter.Offset).Find(&accounts).Error; err != nil {
		return nil, 0, internal(err)
	}
	if err := loadProfiles(db, accounts); err != nil {
		return nil, 0, internal(err)
	}
	return accounts, total, nil
}

func (r *accountRepository) ListByRole(ctx context.Context, role models.Role) ([]models.Account, error) {
	accounts, _, err := r.List(ctx, AccountFilter{Role: &role, Limit: -1})
	return accounts, err
}

// Delete removes the account together with everything it authored.
func (r *accountRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var postIDs []uint
		if err := tx.Model(&models.Post{}).Where("author_id = ?", id).Pluck("id", &postIDs).Error; err != nil {
			return err
		}
		if err := deletePosts(tx, postIDs); err != nil {
			return err
		}
		for _, model := range []interface{}{&models.PollVote{}, &models.Comment{}, &models.Like{}, &models.SavedPost{}} {
			column := "account_id"
			if _, ok := model.(*models.Comment); ok {
				column = "author_id"
			}
			if err := tx.Where(column+" = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		for _, variant := range models.ProfileModels() {
			if err := tx.Where("account_id = ?", id).Delete(variant).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&models.Account{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return notFoundOr(err, "Account", id)
	}
	return nil
}

func saveProfile(tx *gorm.DB, account *models.Account) error {
	if account.Profile == nil || account.Profile.ProfileRole() != account.Role {
		return nil
	}
	account.Profile.SetAccountID(account.ID)
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		UpdateAll: true,
	}).Create(account.Profile).Error
}

// loadProfile attaches the variant matching the account role. A missing row
// yields an empty variant so the account always carries a coherent profile.
func loadProfile(db *gorm.DB, account *models.Account) error {
	profile := models.NewProfile(account.Role)
	if profile == nil {
		account.Profile = nil
		return nil
	}
	err := db.Where("account_id = ?", account.ID).Take(profile).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	profile.SetAccountID(account.ID)
	account.Profile = profile
	return nil
}

func loadProfiles(db *gorm.DB, accounts []models.Account) error {
	for i := range accounts {
		if err := loadProfile(db, &accounts[i]); err != nil {
			return err
		}
	}
	return nil
}
