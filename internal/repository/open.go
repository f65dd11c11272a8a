package store

import "fmt"

// Supported database drivers.
const (
	DriverSQLite     = "sqlite3"
	DriverGormSQLite = "gorm-sqlite"
	DriverPostgres   = "postgres"
)

// Open returns the Store implementation for driver.
func Open(driver, dsn string) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		return NewSQLiteStore(dsn)
	case DriverGormSQLite, DriverPostgres:
		return NewGormStore(driver, dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}
