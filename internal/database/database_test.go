package database

import (
	"testing"
	"time"

	"resort/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestConfigurePool_Defaults(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, configurePool(db, &config.Config{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 25, sqlDB.Stats().MaxOpenConnections)
}

func TestDSNs(t *testing.T) {
	cfg := &config.Config{
		DBHost: "primary", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "resort",
		DBReadHost: "replica", DBReadPort: "6432", DBReadUser: "ru", DBReadPassword: "rp",
	}
	assert.Equal(t, "host=primary port=5432 user=u password=p dbname=resort sslmode=disable", primaryDSN(cfg))

	cfg.DBSSLMode = "require"
	assert.Equal(t, "host=replica port=6432 user=ru password=rp dbname=resort sslmode=require", replicaDSN(cfg))
}

func TestRegisterMetrics_RecordsQueries(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, registerMetrics(db))

	type probe struct {
		ID   uint
		Name string
	}
	require.NoError(t, db.AutoMigrate(&probe{}))
	require.NoError(t, db.Create(&probe{Name: "x"}).Error)

	var out probe
	require.NoError(t, db.First(&out).Error)
	assert.Equal(t, "x", out.Name)
}

func TestGormLogger_LogMode(t *testing.T) {
	l := NewGormLogger(nil)
	assert.Equal(t, 200*time.Millisecond, l.Config.SlowThreshold)

	silent := l.LogMode(1)
	assert.NotSame(t, l, silent)
}
