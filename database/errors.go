package database

import (
	"errors"
	"fmt"
)

var (
	// ErrDatabaseConnection is returned when the pool cannot be built or the
	// liveness query fails. The driver error is only logged.
	ErrDatabaseConnection = errors.New("Database connection error")

	ErrMigrateSchema = errors.New("failed to create database schema")
	ErrInvalidLimit  = errors.New("limit must be positive")
)

func ErrTransferInvalid(transferID string) error {
	return fmt.Errorf("transfer is missing identifying fields: transferId=%q", transferID)
}

func ErrRouterBalanceInvalid(router string) error {
	return fmt.Errorf("router balance is missing identifying fields: router=%q", router)
}
