// Command generate_demo creates a demo database with the sample catalog,
// a demo administrator, a regular member and a few bookshelf entries.
// Usage: go run ./cmd/generate_demo [-db path/to/demo.db]
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/database"
	"github.com/mrlokans/catalog/internal/database/catalog"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/seed"
)

const defaultDemoDatabasePath = "./demo/demo.db"

type demoAccount struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Role      entities.Role
	Groups    []string
	Superuser bool
}

var demoAccounts = []demoAccount{
	{"admin@demo.local", "admin", "Demo", "Admin", entities.RoleAdmin, []string{entities.GroupAdmins}, true},
	{"reader@demo.local", "reader", "Rita", "Reader", entities.RoleMember, []string{entities.GroupViewers}, false},
	{"editor@demo.local", "editor", "Eddie", "Editor", entities.RoleMember, []string{entities.GroupEditors}, false},
}

// Public domain titles for the personal bookshelf.
var demoShelf = []entities.ShelfBook{
	{Title: "Pride and Prejudice", Author: "Jane Austen", PublicationYear: 1813},
	{Title: "Moby-Dick", Author: "Herman Melville", PublicationYear: 1851},
	{Title: "The Adventures of Sherlock Holmes", Author: "Arthur Conan Doyle", PublicationYear: 1892},
	{Title: "Frankenstein", Author: "Mary Shelley", PublicationYear: 1818},
	{Title: "The Time Machine", Author: "H. G. Wells", PublicationYear: 1895},
}

func main() {
	dbPath := flag.String("db", defaultDemoDatabasePath, "path to the demo database file")
	password := flag.String("password", seed.DefaultPassword, "password for every demo account")
	flag.Parse()

	log.Printf("Generating demo database at %s...", *dbPath)

	// Start fresh
	if err := os.Remove(*dbPath); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Failed to remove existing demo database: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
		log.Fatalf("Failed to create demo directory: %v", err)
	}

	cfg := config.NewConfig()
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.Path = *dbPath

	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	catalogRepo := catalog.NewRepository(db.DB)
	authService := auth.NewService(db.DB, cfg.Auth)

	result, err := seed.New(catalogRepo, authService, *password).Run()
	if err != nil {
		log.Fatalf("Failed to seed catalog: %v", err)
	}
	log.Printf("Catalog: %s", result)

	for _, account := range demoAccounts {
		if err := createAccount(authService, account, *password); err != nil {
			log.Fatalf("Failed to create %s: %v", account.Email, err)
		}
	}

	for i := range demoShelf {
		if err := catalogRepo.CreateShelfBook(&demoShelf[i]); err != nil {
			log.Fatalf("Failed to add %q to the bookshelf: %v", demoShelf[i].Title, err)
		}
	}

	log.Printf("Demo database ready: %d accounts, %d bookshelf entries", len(demoAccounts), len(demoShelf))
	log.Printf("All demo accounts use the password %q", *password)
}

func createAccount(svc *auth.Service, account demoAccount, password string) error {
	in := auth.RegisterInput{
		Email:     account.Email,
		Username:  account.Username,
		Password:  password,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Role:      account.Role,
	}

	var (
		user *entities.User
		err  error
	)
	if account.Superuser {
		user, err = svc.CreateSuperuser(in)
	} else {
		user, err = svc.Register(in)
	}
	if err != nil {
		return err
	}

	for _, group := range account.Groups {
		if err := svc.Permissions().AddUserToGroup(user.ID, group); err != nil {
			return fmt.Errorf("add to group %s: %w", group, err)
		}
	}
	return nil
}
