package postgres

import (
	"testing"

	"prism/config"

	"github.com/stretchr/testify/assert"
	gormlogger "gorm.io/gorm/logger"
)

func TestDSN(t *testing.T) {
	cfg := config.Database{
		Host:     "db",
		Port:     5432,
		User:     "prism",
		Password: "secret",
		DBName:   "prism",
		SSLMode:  "disable",
	}

	assert.Equal(t, "host=db user=prism password=secret dbname=prism port=5432 sslmode=disable", DSN(cfg))

	cfg.TimeZone = "UTC"
	assert.Equal(t, "host=db user=prism password=secret dbname=prism port=5432 sslmode=disable TimeZone=UTC", DSN(cfg))
	assert.Equal(t, "postgres://prism:secret@db:5432/prism?sslmode=disable", MigrationURL(cfg))
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, gormLogLevel("Silent"))
	assert.Equal(t, gormlogger.Info, gormLogLevel("Info"))
	assert.Equal(t, gormlogger.Warn, gormLogLevel("bogus"))
}
