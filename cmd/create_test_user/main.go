package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jaymasl/frtl-arcade/internal/auth"
)

// Inserts a user row and prints a bearer token for smoke testing.
func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	username := flag.String("username", "smoke", "username for the test user")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	db, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	userID := uuid.New()
	_, err = db.Exec(context.Background(),
		`INSERT INTO users (id, username) VALUES ($1, $2)
		 ON CONFLICT (username) DO NOTHING`,
		userID, *username,
	)
	if err != nil {
		log.Fatalf("create user: %v", err)
	}
	if err := db.QueryRow(context.Background(),
		`SELECT id FROM users WHERE username = $1`, *username,
	).Scan(&userID); err != nil {
		log.Fatalf("load user: %v", err)
	}

	token, err := auth.NewVerifier(jwtSecret).Issue(userID, *ttl)
	if err != nil {
		log.Fatalf("issue token: %v", err)
	}

	fmt.Printf("user_id=%s\n", userID)
	fmt.Printf("token=%s\n", token)
}
