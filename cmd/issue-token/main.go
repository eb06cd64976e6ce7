package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/ajharbinger/lead-funnel/internal/auth"
	"github.com/ajharbinger/lead-funnel/pkg/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	name := flag.String("name", "", "client name recorded in the token")
	role := flag.String("role", "reader", "client role")
	clientID := flag.String("client-id", "", "client UUID (default: generated)")
	ttl := flag.Duration("ttl", auth.DefaultTokenTTL, "token lifetime")
	flag.Parse()

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	if *name == "" {
		flag.Usage()
		os.Exit(2)
	}

	claims := auth.Claims{Name: *name, Role: *role}
	if *clientID != "" {
		id, err := uuid.Parse(*clientID)
		if err != nil {
			log.Fatalf("Invalid -client-id: %v", err)
		}
		claims.ClientID = id
	}

	token, expiresAt, err := auth.NewJWTService(cfg.JWTSecret).GenerateToken(claims, *ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "Token for %s expires at %s\n", *name, expiresAt.Format(time.RFC3339))
	fmt.Println(token)
}
