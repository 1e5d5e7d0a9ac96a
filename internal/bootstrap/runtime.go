// Package bootstrap wires the shared runtime dependencies used by the
// server and the command line tools.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"farmlink/internal/cache"
	"farmlink/internal/config"
	"farmlink/internal/database"
	"farmlink/internal/middleware"
	"farmlink/internal/models"
	"farmlink/internal/repository"
	"farmlink/internal/seed"
	"farmlink/internal/validation"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedSchemes upserts the bundled government scheme catalogue.
	SeedSchemes bool
}

// InitRuntime connects to the database and Redis, ensures the development
// root administrator and optionally seeds reference data. The Redis client
// is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	rdb := cache.GetClient()

	accounts := repository.NewAccountRepository(db)
	if err := EnsureDevRootAdmin(ctx, cfg, accounts); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SeedSchemes {
		schemes, err := seed.DefaultSchemes()
		if err != nil {
			return nil, nil, err
		}
		if _, err := seed.UpsertSchemes(ctx, repository.NewSchemeRepository(db), schemes); err != nil {
			return nil, nil, fmt.Errorf("failed to seed schemes: %w", err)
		}
	}

	return db, rdb, nil
}

// EnsureDevRootAdmin makes the account identified by DEV_ROOT_PHONE an
// active administrator. It only runs in development and only when a phone
// is configured; a missing account is created with DEV_ROOT_PASSWORD.
func EnsureDevRootAdmin(ctx context.Context, cfg *config.Config, accounts repository.AccountRepository) error {
	if cfg == nil || accounts == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") {
		return nil
	}
	phone := validation.NormalizePhone(cfg.DevRootPhone)
	if phone == "" {
		return nil
	}
	if err := validation.ValidatePhone(phone); err != nil {
		return fmt.Errorf("DEV_ROOT_PHONE: %w", err)
	}

	account, err := accounts.GetByPhone(ctx, phone)
	switch {
	case err == nil:
		if account.Role == models.RoleAdministrator && account.IsActive {
			return nil
		}
		if account.Role != models.RoleAdministrator {
			account.Role = models.RoleAdministrator
			account.Profile = models.NewProfile(models.RoleAdministrator)
		}
		account.IsActive = true
		if err := accounts.Save(ctx, account); err != nil {
			return err
		}
	case models.IsCode(err, models.CodeNotFound):
		if cfg.DevRootPassword == "" {
			return fmt.Errorf("DEV_ROOT_PASSWORD must be set to create the root account")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.DevRootPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash root password: %w", err)
		}
		account = &models.Account{
			Phone:    phone,
			Name:     "FarmLink Root",
			Password: string(hash),
			Role:     models.RoleAdministrator,
			IsActive: true,
			Profile:  &models.AdministratorProfile{Designation: "Root administrator", AccessLevel: "full"},
		}
		if err := accounts.Create(ctx, account); err != nil {
			return err
		}
	default:
		return err
	}

	middleware.Logger.InfoContext(ctx, "development root admin ensured",
		"account_id", account.ID, "phone", phone)
	return nil
}
