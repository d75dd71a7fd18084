package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aetherframe/orchestrator/internal/models"
)

func TestPluginStore_Create(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewPluginStore(sqlDB)

	rows := sqlmock.NewRows([]string{"id", "name", "version", "description", "created_at"}).
		AddRow(1, "gate", "1.0.0", "anti-analysis gate", time.Now())

	mock.ExpectQuery("INSERT INTO plugins").
		WithArgs("gate", "1.0.0", "anti-analysis gate").
		WillReturnRows(rows)

	p, err := store.Create(context.Background(), models.PluginCreate{
		Name:        "gate",
		Version:     "1.0.0",
		Description: "anti-analysis gate",
	})
	require.NoError(t, err)
	assert.Equal(t, "gate", p.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPluginStore_Get_NotFound(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewPluginStore(sqlDB)

	mock.ExpectQuery("SELECT (.+) FROM plugins WHERE id").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	p, err := store.Get(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPluginStore_List(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewPluginStore(sqlDB)

	rows := sqlmock.NewRows([]string{"id", "name", "version", "description", "created_at"}).
		AddRow(1, "gate", "1.0.0", "", time.Now()).
		AddRow(2, "static", "1.0.0", "", time.Now())

	mock.ExpectQuery("SELECT (.+) FROM plugins ORDER BY id").
		WillReturnRows(rows)

	plugins, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, plugins, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
