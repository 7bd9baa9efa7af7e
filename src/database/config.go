package database

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver string // "sqlite" or "postgres"
	DSN    string

	// GormLogLevel follows gorm's logger levels: 1 silent, 2 error, 3 warn, 4 info.
	GormLogLevel int
}
