package main

import (
	"context"
	"errors"
	"log"
	"os"

	"taskfi_backend/internal/db"
	"taskfi_backend/internal/domain"
	"taskfi_backend/internal/repository"
	"taskfi_backend/internal/service"
)

func main() {
	// expects DATABASE_URL and JWT_SECRET env vars
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	address := os.Getenv("TEST_ADDRESS")
	if address == "" {
		address = "0x00000000000000000000000000000000deadbeef"
	}
	address = domain.NormalizeAddress(address)

	pool := db.Connect(dsn)
	defer pool.Close()

	repo := repository.NewUserRepository(pool)
	ctx := context.Background()

	u, err := repo.GetByAddress(ctx, address)
	if err == nil {
		log.Printf("user already exists address=%s level=%d xp=%d\n", u.Address, u.Level, u.XP)
	} else if errors.Is(err, domain.ErrNotFound) {
		u = &domain.User{
			Address:  address,
			Username: "tester",
			Level:    1,
			Stage:    "Spark",
		}
		if err := repo.Create(ctx, u); err != nil {
			log.Fatalf("create user failed: %v", err)
		}
		log.Printf("user created address=%s\n", u.Address)
	} else {
		log.Fatalf("get user failed: %v", err)
	}

	service.InitJWT()
	token, err := service.GenerateJWT(address)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	log.Printf("token=%s\n", token)
}
