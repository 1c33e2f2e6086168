//go:build integration

package repository_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"service-dispatch/internal/repository"
)

var tcPool *pgxpool.Pool

var tcDSN string

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_pass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start postgres testcontainer: %v", err)
	}

	terminate := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("failed to terminate postgres container: %v", err)
		}
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		log.Fatalf("failed to get connection string from container: %v", err)
	}

	pool, err := repository.NewPool(ctx, connStr)
	if err != nil {
		terminate()
		log.Fatalf("failed to connect to postgres in testcontainer: %v", err)
	}

	if err := repository.Migrate(ctx, pool); err != nil {
		pool.Close()
		terminate()
		log.Fatalf("failed to apply migrations: %v", err)
	}

	tcPool = pool
	tcDSN = connStr

	code := m.Run()

	pool.Close()
	terminate()
	os.Exit(code)
}

// fixture seeds one service area, a vendor at pickup and returns their ids.
type fixture struct {
	areaID   int64
	vendorID int64
}

func truncateAll(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `TRUNCATE location_history, order_status_history, orders, couriers, vendors, service_areas RESTART IDENTITY CASCADE`)
	return err
}

func seed(ctx context.Context, pool *pgxpool.Pool, pickupLat, pickupLng float64) (fixture, error) {
	var f fixture
	if err := pool.QueryRow(ctx, `
		INSERT INTO service_areas(name, polygon, centroid_lat, centroid_lng, area_km2)
		VALUES('central', '[]', 0, 0, 1) RETURNING id
	`).Scan(&f.areaID); err != nil {
		return f, err
	}
	if err := pool.QueryRow(ctx, `
		INSERT INTO vendors(name, lat, lng, service_area_id) VALUES('kitchen', $1, $2, $3) RETURNING id
	`, pickupLat, pickupLng, f.areaID).Scan(&f.vendorID); err != nil {
		return f, err
	}
	return f, nil
}

func insertOrder(ctx context.Context, pool *pgxpool.Pool, id string, vendorID int64, status string) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO orders(id, vendor_id, customer_id, status, destination_lat, destination_lng, delivery_address)
		VALUES($1, $2, 'customer-1', $3, 12.99, 77.62, 'MG Road 1')
	`, id, vendorID, status)
	return err
}

func insertCourier(ctx context.Context, pool *pgxpool.Pool, userID, phone string, areaID int64, status string, lat, lng float64) (int64, error) {
	var id int64
	err := pool.QueryRow(ctx, `
		INSERT INTO couriers(user_id, name, phone, status, service_area_id, lat, lng, location_updated_at)
		VALUES($1, $1, $2, $3, $4, $5, $6, now()) RETURNING id
	`, userID, phone, status, areaID, lat, lng).Scan(&id)
	return id, err
}
