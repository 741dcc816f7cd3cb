package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"corporate-fund-bot/internal/config"
	pg "corporate-fund-bot/internal/infra/db/postgres"
	"corporate-fund-bot/internal/infra/logging"
	"corporate-fund-bot/internal/usecase"
)

func main() {
	// ---- Config ----
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema ensured")

	logger := logging.New(cfg.Log, true)
	personRepo := pg.NewPostgresPersonRepo(pool)
	userRepo := pg.NewPostgresUserRepo(pool)
	txManager := pg.NewTxManager(pool)
	personUC := usecase.NewPersonUseCase(personRepo, userRepo, txManager, logger)

	// If the roster already has entries, do nothing
	people, err := personUC.List(ctx)
	if err != nil {
		log.Fatalf("list people: %v", err)
	}
	if len(people) > 0 {
		fmt.Printf("%d people already present. No changes.\n", len(people))
		return
	}

	// Seed a small sample roster for local testing
	seed := []struct {
		Number     string
		First      string
		Patronymic string
		BirthDate  string
	}{
		{"1001", "Ivan", "Petrovich", "15.06.1990"},
		{"1002", "Olga", "Sergeevna", "29.02.1992"},
		{"1003", "Dmitry", "Alexandrovich", "03.01.1987"},
	}

	for _, s := range seed {
		p, err := personUC.Add(ctx, s.Number, s.First, s.Patronymic, s.BirthDate)
		if err != nil {
			log.Fatalf("add person %q: %v", s.Number, err)
		}
		fmt.Printf("seeded: %s (№%s)\n", p.FullName(), p.PersonnelNumber)
	}

	fmt.Println("✅ Seeding complete.")
}
