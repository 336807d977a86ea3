package main

import (
	"context"
	"flag"
	"log"
	"time"

	"campusportal/internal/config"
	"campusportal/internal/roster"
	"campusportal/internal/store"
)

// addadmin creates an admin account, or rotates the password when the email
// already exists.
func main() {
	email := flag.String("email", "", "admin email")
	password := flag.String("password", "", "admin password")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatal("usage: addadmin -email <email> -password <password>")
	}

	cfg := config.Load()
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Migrate(ctx, db.Client); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	svc := roster.NewService(roster.NewRepository(db.Client), roster.TokenConfig{
		Issuer:     cfg.JWTIssuer,
		SigningKey: cfg.JWTSigningKey,
		TTL:        cfg.TokenTTL,
	}, nil)

	if err := svc.UpsertAdmin(ctx, *email, *password); err != nil {
		log.Fatalf("upsert admin failed: %v", err)
	}
	log.Printf("admin %s ready", *email)
}
