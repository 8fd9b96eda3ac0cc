package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"payout-service/config"
	"payout-service/internal/domain/payout"
	"payout-service/internal/repository"
	"payout-service/pkg/database"

	"gorm.io/gorm"
)

const usage = `
Payout Service - Database CLI Tool

Usage:
  migrate [flags] [command]

Commands:
  up          Create or update the payouts schema
  down        Drop the payouts table (DANGEROUS)
  status      Show database connection status and row counts
  seed        Insert sample payouts
  reset       Drop and re-create the schema (DANGEROUS)
  truncate    Delete every payout (DANGEROUS)

Flags:
  -count int          Number of payouts to seed (default 10)
  -callback string    Callback URL stored on seeded payouts

Examples:
  go run cmd/migrate/main.go up
  go run cmd/migrate/main.go -count 50 seed
  go run cmd/migrate/main.go reset
`

func main() {
	count := flag.Int("count", 10, "Number of payouts to seed")
	callback := flag.String("callback", "", "Callback URL stored on seeded payouts")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer database.Close(db)

	ctx := context.Background()

	switch command {
	case "up":
		runMigrationsUp(db)
	case "down":
		runMigrationsDown(db)
	case "status":
		showStatus(ctx, db)
	case "seed":
		runSeed(ctx, db, *count, *callback)
	case "reset":
		runMigrationsDown(db)
		runMigrationsUp(db)
	case "truncate":
		runTruncate(ctx, db)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp(db *gorm.DB) {
	log.Println("🚀 Running migrations UP...")

	if err := repository.InitSchema(db); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	log.Println("✅ Migrations completed successfully!")
}

func runMigrationsDown(db *gorm.DB) {
	log.Println("⬇️  Dropping payouts schema...")

	if err := repository.DropSchema(db); err != nil {
		log.Fatalf("❌ Rollback failed: %v", err)
	}

	log.Println("✅ Schema dropped")
}

func showStatus(ctx context.Context, db *gorm.DB) {
	log.Println("🔍 Checking database status...")

	if err := database.HealthCheck(ctx, db); err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	log.Println("✅ Database connection: OK")

	if !db.Migrator().HasTable(&payout.Payout{}) {
		log.Printf("❌ Table %-10s does not exist", "payouts")
		return
	}

	type statusCount struct {
		Status string
		Count  int64
	}
	var counts []statusCount
	if err := db.WithContext(ctx).Model(&payout.Payout{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status").
		Scan(&counts).Error; err != nil {
		log.Fatalf("❌ Failed to count payouts: %v", err)
	}

	log.Printf("✅ Table %-10s exists", "payouts")
	for _, c := range counts {
		log.Printf("   - %-10s %d", c.Status, c.Count)
	}
}

func runSeed(ctx context.Context, db *gorm.DB, count int, callback string) {
	log.Println("🌱 Seeding payouts...")

	items, err := database.Seed(ctx, db, &database.SeedConfig{Count: count, CallbackURL: callback})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✅ Seeded %d payouts", len(items))
}

func runTruncate(ctx context.Context, db *gorm.DB) {
	log.Println("⚠️  WARNING: This will delete every payout!")

	n, err := database.Truncate(ctx, db)
	if err != nil {
		log.Fatalf("❌ Truncate failed: %v", err)
	}

	log.Printf("✅ %d payouts deleted", n)
}
