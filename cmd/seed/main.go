// Command seed populates the catalogue with sample batches and creates the
// bootstrap admin user. Intended for demo and development databases.
//
// Usage:
//
//	DATABASE_URL=postgres://... go run ./cmd/seed
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	_ "github.com/lib/pq"

	"github.com/pharmatrace/medverify/internal/admin"
	"github.com/pharmatrace/medverify/internal/catalog"
	"github.com/pharmatrace/medverify/internal/config"
)

// manufacturer reliability scores drive the anomaly model's strongest
// feature, so the seed data spans the full range including one known-bad
// supplier.
type manufacturer struct {
	name    string
	score   float64
	country string
}

var manufacturers = []manufacturer{
	{"PharmaCorp", 9.5, "USA"},
	{"MediTech Industries", 8.8, "Germany"},
	{"HealthFirst Labs", 9.2, "Switzerland"},
	{"BioMed Solutions", 8.5, "UK"},
	{"PharmaGlobal", 7.8, "India"},
	{"MedLife Corp", 9.0, "Japan"},
	{"GenericMeds Inc", 7.2, "China"},
	{"EuroPharma", 8.9, "France"},
	{"AsiaMed Ltd", 6.5, "Vietnam"},
	{"CounterfeitCorp", 3.2, "Unknown"},
}

var medicineNames = []string{
	"Paracetamol 500mg", "Ibuprofen 200mg", "Amoxicillin 250mg",
	"Aspirin 75mg", "Metformin 500mg", "Omeprazole 20mg",
	"Atorvastatin 20mg", "Losartan 50mg", "Amlodipine 5mg",
	"Ciprofloxacin 500mg", "Doxycycline 100mg", "Prednisone 5mg",
	"Insulin Glargine", "Salbutamol Inhaler", "Vitamin D3 1000IU",
	"Folic Acid 5mg", "Iron Sulfate 200mg", "Calcium Carbonate 500mg",
}

const totalBatches = 50

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("seed: config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("seed: open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		log.Fatalf("seed: connect to database: %v", err)
	}

	ctx := context.Background()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	created, err := seedBatches(ctx, catalog.NewPostgresStore(db), rng)
	if err != nil {
		log.Fatalf("seed: batches: %v", err)
	}
	fmt.Printf("Seeded %d batches\n", created)

	if err := seedAdmin(ctx, admin.NewPostgresStore(db), cfg); err != nil {
		log.Fatalf("seed: admin user: %v", err)
	}
}

// seedBatches inserts 50 batches: 5 expired, 5 near expiry, 35 valid, 5
// catalogued fakes. Existing codes are skipped so reruns are safe.
func seedBatches(ctx context.Context, store catalog.Store, rng *rand.Rand) (int, error) {
	now := time.Now().UTC()
	created := 0

	for i := 0; i < totalBatches; i++ {
		m := manufacturers[rng.Intn(len(manufacturers))]

		var expiry time.Time
		status := catalog.StatusValid
		switch {
		case i < 5: // expired
			expiry = now.AddDate(0, 0, -(rng.Intn(365) + 1))
			status = catalog.StatusExpired
		case i < 10: // near expiry
			expiry = now.AddDate(0, 0, rng.Intn(30)+1)
		case i < 45: // comfortably valid
			expiry = now.AddDate(0, 0, rng.Intn(700)+31)
		default: // catalogued fakes
			expiry = now.AddDate(0, 0, rng.Intn(401)+100)
			status = catalog.StatusFake
		}
		manufactured := expiry.AddDate(0, 0, -(rng.Intn(731) + 365))

		b := &catalog.Batch{
			BatchCode:           batchCode(rng),
			Name:                medicineNames[rng.Intn(len(medicineNames))],
			Manufacturer:        m.name,
			ManufacturerScore:   m.score,
			ManufacturerCountry: m.country,
			ExpiryDate:          expiry,
			ManufacturingDate:   manufactured,
			Status:              status,
			ScanCount:           rng.Intn(16),
			DistinctLocations:   rng.Intn(5) + 1,
		}

		err := store.Create(ctx, b)
		if errors.Is(err, catalog.ErrExists) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}

	return created, nil
}

// batchCode generates codes in the catalogue's conventional shape,
// e.g. MED483920A.
func batchCode(rng *rand.Rand) string {
	prefixes := []string{"MED", "PHR", "BTH", "LOT"}
	suffixes := "ABCXYZ"
	return fmt.Sprintf("%s%06d%c",
		prefixes[rng.Intn(len(prefixes))],
		rng.Intn(900000)+100000,
		suffixes[rng.Intn(len(suffixes))],
	)
}

// seedAdmin creates the bootstrap dashboard user from the ADMIN_USERNAME /
// ADMIN_PASSWORD config, falling back to the demo default password.
func seedAdmin(ctx context.Context, store admin.Store, cfg *config.Config) error {
	username := cfg.AdminUsername
	password := cfg.AdminPassword
	if password == "" {
		password = "admin123"
		fmt.Println("WARNING: using default admin password; set ADMIN_PASSWORD for anything non-local")
	}

	hash, err := admin.HashPassword(password)
	if err != nil {
		return err
	}

	err = store.Create(ctx, &admin.User{
		Username:     username,
		PasswordHash: hash,
		Role:         "admin",
	})
	if errors.Is(err, admin.ErrUserExists) {
		fmt.Printf("Admin user %q already exists, skipping\n", username)
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Admin user created: %s\n", username)
	return nil
}
