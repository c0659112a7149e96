package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/NordCoder/Uptimer/internal/repository/postgres"
)

// migrator applies the embedded postgres migrations. The DSN comes from -dsn or
// STORAGE_POSTGRES_DSN, which is what the uptimer binary reads too.
func main() {
	_ = godotenv.Load()
	dsn := flag.String("dsn", os.Getenv("STORAGE_POSTGRES_DSN"), "postgres DSN")
	timeout := flag.Duration("timeout", time.Minute, "overall timeout")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("no DSN: pass -dsn or set STORAGE_POSTGRES_DSN")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := postgres.Migrate(ctx, *dsn); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("migrations: up OK")
}
