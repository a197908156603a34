// Package dbtest opens in-memory sqlite databases carrying the same tables,
// checks and unique indexes as the goose migrations.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/floristeria-backend/pkg/db"
	"github.com/angelmondragon/floristeria-backend/pkg/db/models"
	"github.com/angelmondragon/floristeria-backend/pkg/enums"
)

var schema = []string{
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  phone TEXT,
  address TEXT,
  role TEXT NOT NULL DEFAULT 'customer',
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE arrangements (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  image_url TEXT,
  price NUMERIC NOT NULL,
  discount INTEGER NOT NULL DEFAULT 0,
  available BOOLEAN NOT NULL DEFAULT 1,
  stock INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  customer_id TEXT REFERENCES users(id),
  guest_name TEXT,
  guest_email TEXT,
  guest_phone TEXT,
  guest_address TEXT,
  state TEXT NOT NULL DEFAULT 'cart' CHECK (state IN ('cart', 'pending', 'processing', 'completed', 'cancelled', 'declined')),
  comments TEXT,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE UNIQUE INDEX orders_one_cart_per_customer ON orders (customer_id) WHERE state = 'cart'`,
	`CREATE TABLE order_lines (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  arrangement_id TEXT NOT NULL REFERENCES arrangements(id),
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  unit_price NUMERIC NOT NULL,
  discount_percent INTEGER NOT NULL DEFAULT 0,
  price NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE UNIQUE INDEX order_lines_order_arrangement_key ON order_lines (order_id, arrangement_id)`,
	`CREATE TABLE payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  method TEXT NOT NULL,
  amount NUMERIC NOT NULL,
  state TEXT NOT NULL CHECK (state IN ('pending', 'processing', 'approved', 'declined', 'expired')),
  external_reference TEXT NOT NULL,
  provider_transaction_id TEXT,
  provider_link_id TEXT,
  payment_url TEXT,
  settled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE UNIQUE INDEX payments_external_reference_key ON payments (external_reference)`,
	`CREATE UNIQUE INDEX payments_provider_transaction_id_key ON payments (provider_transaction_id) WHERE provider_transaction_id IS NOT NULL`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
)`,
	`CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL UNIQUE,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
)`,
}

// Open returns a fresh, isolated database with the full schema applied.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, ddl := range schema {
		require.NoError(t, conn.Exec(ddl).Error)
	}
	return conn
}

// Client wraps Open in a db.Client for services that need WithTx.
func Client(t testing.TB) (*db.Client, *gorm.DB) {
	t.Helper()
	conn := Open(t)
	return db.NewFromGorm(conn), conn
}

// SeedUser inserts a customer with the given email.
func SeedUser(t testing.TB, conn *gorm.DB, email string) *models.User {
	t.Helper()
	address := "Colonia Escalón, San Salvador"
	user := &models.User{
		ID:      uuid.New(),
		Name:    "Cliente " + email,
		Email:   email,
		Address: &address,
		Role:    string(enums.RoleCustomer),
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

// SeedArrangement inserts an available arrangement with stock.
func SeedArrangement(t testing.TB, conn *gorm.DB, name, price string, discount int) *models.Arrangement {
	t.Helper()
	image := "https://cdn.example.com/" + strings.ReplaceAll(strings.ToLower(name), " ", "-") + ".jpg"
	arrangement := &models.Arrangement{
		ID:        uuid.New(),
		Name:      name,
		ImageURL:  &image,
		Price:     decimal.RequireFromString(price),
		Discount:  discount,
		Available: true,
		Stock:     10,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, conn.Create(arrangement).Error)
	return arrangement
}

// MarkUnavailable flips an arrangement's availability flag.
func MarkUnavailable(t testing.TB, conn *gorm.DB, id uuid.UUID) {
	t.Helper()
	require.NoError(t, conn.Model(&models.Arrangement{}).Where("id = ?", id).Update("available", false).Error)
}
