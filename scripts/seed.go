package main

import (
	"log"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/zatekoja/consultbook/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/consultbook/pkg/config"
)

// Seeds a development database with a few users and providers so the API can
// be exercised locally.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	dialect := goqu.Dialect("postgres")
	now := time.Now()

	users := []goqu.Record{
		{
			"id": uuid.New().String(), "name": "Nimal Perera",
			"email": "nimal@example.com", "phone": "+94771234567",
			"address_line": "12 Galle Road", "city": "Colombo", "country": "Sri Lanka",
			"created_at": now,
		},
		{
			"id": uuid.New().String(), "name": "Kamala Silva",
			"email": "kamala@example.com", "phone": "+94777654321",
			"address_line": "3 Kandy Road", "city": "Kandy", "country": "Sri Lanka",
			"created_at": now,
		},
	}

	providers := []goqu.Record{
		{
			"id": uuid.New().String(), "name": "Dr. Ruwan Fernando",
			"speciality": "Cardiology", "fee": 3500.00, "available": true,
			"created_at": now, "updated_at": now,
		},
		{
			"id": uuid.New().String(), "name": "Dr. Anoma Jayawardena",
			"speciality": "Dermatology", "fee": 2750.00, "available": true,
			"created_at": now, "updated_at": now,
		},
	}

	for _, record := range users {
		query, args, err := dialect.Insert("users").Rows(record).ToSQL()
		if err != nil {
			log.Fatalf("Failed to build user insert: %v", err)
		}
		if _, err := pgClient.DB().Exec(query, args...); err != nil {
			log.Fatalf("Failed to insert user: %v", err)
		}
	}

	for _, record := range providers {
		query, args, err := dialect.Insert("providers").Rows(record).ToSQL()
		if err != nil {
			log.Fatalf("Failed to build provider insert: %v", err)
		}
		if _, err := pgClient.DB().Exec(query, args...); err != nil {
			log.Fatalf("Failed to insert provider: %v", err)
		}
	}

	log.Printf("Seeded %d users and %d providers", len(users), len(providers))
}
