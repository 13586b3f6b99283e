package db

import (
	"testing"

	"github.com/smallbiznis/motorbook/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	base := config.Config{
		DBHost:     "db",
		DBPort:     "5432",
		DBName:     "motorbook",
		DBUser:     "app",
		DBPassword: "pw",
		DBSSLMode:  "disable",
	}

	cases := []struct {
		name   string
		dbType string
		path   string
		want   string
	}{
		{"postgres", "postgres", "", "host=db user=app password=pw dbname=motorbook port=5432 sslmode=disable TimeZone=UTC"},
		{"postgres alias", "PostgreSQL", "", "host=db user=app password=pw dbname=motorbook port=5432 sslmode=disable TimeZone=UTC"},
		{"mysql", "mysql", "", "app:pw@tcp(db:5432)/motorbook?charset=utf8mb4&parseTime=True&loc=UTC"},
		{"sqlite default path", "sqlite", "", "motorbook.db?_busy_timeout=5000&_journal_mode=WAL"},
		{"sqlite memory", "sqlite", ":memory:", ":memory:"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			cfg.DBType = tc.dbType
			cfg.DBPath = tc.path

			got, err := DSN(cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDialectRejectsUnknownType(t *testing.T) {
	_, err := Dialect(config.Config{DBType: "oracle"})
	assert.Error(t, err)

	d, err := Dialect(config.Config{DBType: "sqlite", DBPath: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())
}
