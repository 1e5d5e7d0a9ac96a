// Package main provides administrator management utilities for FarmLink.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"farmlink/internal/config"
	"farmlink/internal/database"
	"farmlink/internal/models"
	"farmlink/internal/repository"
	"farmlink/internal/validation"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin promote <phone>     - Make an account an administrator")
		fmt.Println("  go run ./cmd/admin demote <phone>      - Clear an administrator's role")
		fmt.Println("  go run ./cmd/admin list-admins         - List all administrators")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	accounts := repository.NewAccountRepository(db)
	ctx := context.Background()

	command := os.Args[1]

	switch command {
	case "promote", "demote":
		if len(os.Args) < 3 {
			fmt.Printf("Usage: go run ./cmd/admin %s <phone>\n", command)
			os.Exit(1)
		}
		role := models.RoleAdministrator
		if command == "demote" {
			role = models.RoleUnassigned
		}
		if err := setRole(ctx, accounts, os.Args[2], role); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

	case "list-admins":
		listAdmins(ctx, accounts)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func setRole(ctx context.Context, accounts repository.AccountRepository, phone string, role models.Role) error {
	account, err := accounts.GetByPhone(ctx, validation.NormalizePhone(phone))
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return fmt.Errorf("account with phone %s not found", phone)
		}
		log.Fatalf("Database error: %v", err)
	}

	if account.Role == role {
		fmt.Printf("Account %s (ID: %d) already has role %q\n", account.Phone, account.ID, role)
		return nil
	}

	account.Role = role
	account.Profile = models.NewProfile(role)
	if err := accounts.Save(ctx, account); err != nil {
		log.Fatalf("Failed to update account: %v", err)
	}

	if role == models.RoleAdministrator {
		fmt.Printf("✅ Successfully promoted %s (ID: %d) to administrator\n", account.Phone, account.ID)
	} else {
		fmt.Printf("✅ Successfully demoted %s (ID: %d)\n", account.Phone, account.ID)
	}
	return nil
}

func listAdmins(ctx context.Context, accounts repository.AccountRepository) {
	admins, err := accounts.ListByRole(ctx, models.RoleAdministrator)
	if err != nil {
		log.Fatalf("Failed to fetch administrators: %v", err)
	}

	if len(admins) == 0 {
		fmt.Println("No administrators found in the system")
		return
	}

	fmt.Printf("Found %d administrator(s):\n", len(admins))
	for _, a := range admins {
		fmt.Printf("  - ID: %d, Phone: %s, Name: %s, Active: %t\n", a.ID, a.Phone, a.Name, a.IsActive)
	}
}
