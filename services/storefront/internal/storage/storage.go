// Package storage defines the durable key-value slot the cart is persisted
// to, and the drivers that back it.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been written or was
// deleted.
var ErrNotFound = errors.New("storage: key not found")

// KeyValue is a string-keyed store of opaque values. Set overwrites
// wholesale; there is no expiry.
type KeyValue interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Driver names accepted by CART_STORAGE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Drivers lists every supported driver.
var Drivers = []string{DriverMemory, DriverSQLite, DriverRedis, DriverPostgres}
