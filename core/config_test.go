package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func TestNewConfig(t *testing.T) {
	t.Setenv("ENV", "test")

	t.Run("defaults", func(t *testing.T) {
		conf := NewConfig()
		assert.Equal(t, "TEST", conf.Env)
		assert.True(t, conf.TestMode)
		assert.Equal(t, ":8000", conf.Server.Address)
		assert.Equal(t, StorageMemory, conf.Storage.Backend)
		assert.Equal(t, time.Duration(0), conf.Resource.Latency)
		assert.Equal(t, bcrypt.DefaultCost, conf.Auth.PasswordCost)
		assert.Equal(t, 7*24*time.Hour, conf.Server.TokenExpirationDelta)
	})

	t.Run("env overrides", func(t *testing.T) {
		t.Setenv("TEST_STORAGE_BACKEND", "SQL")
		t.Setenv("TEST_RESOURCE_LATENCY", "500ms")
		t.Setenv("TEST_DATABASE_ENGINE", "sqlite3")
		t.Setenv("TEST_DATABASE_NAME", "shule.db")
		t.Setenv("TEST_AUTH_PASSWORDCOST", "4")

		conf := NewConfig()
		assert.Equal(t, StorageSQL, conf.Storage.Backend)
		assert.Equal(t, 500*time.Millisecond, conf.Resource.Latency)
		assert.Equal(t, "shule.db", conf.Database.DataSourceName())
		assert.Equal(t, 4, conf.Auth.PasswordCost)
	})
}

func TestDatabaseConfig_DataSourceName(t *testing.T) {
	tests := []struct {
		name string
		conf DatabaseConfig
		want string
	}{
		{name: "dsn wins", conf: DatabaseConfig{Engine: "postgres", DSN: "postgres://x", Host: "db"}, want: "postgres://x"},
		{name: "sqlite", conf: DatabaseConfig{Engine: "sqlite3", Name: ":memory:"}, want: ":memory:"},
		{
			name: "postgres",
			conf: DatabaseConfig{Engine: "postgres", Host: "db", Port: "5432", Name: "shule", User: "shule", Password: "s3cret", DisableTLS: true},
			want: "postgres://shule:s3cret@db:5432/shule?sslmode=disable&timezone=utc",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.conf.DataSourceName())
		})
	}
}

func TestGetwd(t *testing.T) {
	wd := Getwd()
	_, err := os.Stat(filepath.Join(wd, "go.mod"))
	assert.NoError(t, err)
}

func TestParseOrdering(t *testing.T) {
	assert.Equal(t, []Ordering{{Field: "name", Ascending: true}, {Field: "created_at"}}, ParseOrdering("name, -created_at,,-"))
	assert.Nil(t, ParseOrdering(""))
	assert.Equal(t, "score DESC", Ordering{Field: "score"}.String())
}

func TestErrors(t *testing.T) {
	assert.EqualError(t, NewNotFoundError("classes", int64(4)), "classes 4 not found")
	assert.EqualError(t, NewDuplicateEmailError("a@b.c"), "a user with this email already exists")
	assert.EqualError(t, NewValidationError(nil, FieldError{Field: "resource", Error: "this field is required"}), "resource: this field is required")
	assert.True(t, IsNotFound(NewNotFoundError("user", "x")))
	assert.False(t, IsNotFound(NewAuthenticationError()))
}
