package database

import (
	"context"
	"testing"
	"testing/fstest"

	"farmlink/internal/config"
	"farmlink/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)

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

func TestEmbeddedMigrationsAreOrderedAndPaired(t *testing.T) {
	list := GetMigrations()
	require.NotEmpty(t, list)
	for i, m := range list {
		assert.NotEmpty(t, m.UpScript, m.String())
		assert.NotEmpty(t, m.DownScript, m.String())
		if i > 0 {
			assert.Greater(t, m.Version, list[i-1].Version)
		}
	}
	assert.NotNil(t, GetMigrationByVersion(list[0].Version))
	assert.Nil(t, GetMigrationByVersion(99999))
}

func TestEmbeddedMigrationsEnforceOneVotePerPoll(t *testing.T) {
	found := false
	for _, m := range GetMigrations() {
		if m.Name == "polls" {
			found = true
			assert.Contains(t, m.UpScript, "idx_poll_votes_poll_account ON poll_votes (poll_id, account_id)")
		}
	}
	assert.True(t, found)
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000002_second.up.sql":   {Data: []byte("CREATE TABLE b (id INTEGER)")},
		"m/000002_second.down.sql": {Data: []byte("DROP TABLE b")},
		"m/000001_first.up.sql":    {Data: []byte("CREATE TABLE a (id INTEGER)")},
		"m/000001_first.down.sql":  {Data: []byte("DROP TABLE a")},
		"m/README.md":              {Data: []byte("ignored")},
	}

	list, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "000001_first", list[0].String())
	assert.Equal(t, "second", list[1].Name)
}

func TestLoadMigrations_MissingDown(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000001_first.up.sql": {Data: []byte("SELECT 1")},
	}
	_, err := LoadMigrations(fsys, "m")
	assert.Error(t, err)
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/000001_a.up.sql":   {Data: []byte("SELECT 1")},
		"m/000001_a.down.sql": {Data: []byte("SELECT 1")},
		"m/000001_b.up.sql":   {Data: []byte("SELECT 1")},
		"m/000001_b.down.sql": {Data: []byte("SELECT 1")},
	}
	_, err := LoadMigrations(fsys, "m")
	assert.Error(t, err)
}

func TestApplyPendingAndRollback(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	list := []Migration{
		{Version: 1, Name: "widgets", UpScript: "CREATE TABLE widgets (id INTEGER PRIMARY KEY)", DownScript: "DROP TABLE widgets"},
		{Version: 2, Name: "gadgets", UpScript: "CREATE TABLE gadgets (id INTEGER PRIMARY KEY)", DownScript: "DROP TABLE gadgets"},
	}

	require.NoError(t, applyPending(ctx, db, list))
	require.NoError(t, applyPending(ctx, db, list), "second run is a no-op")

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, applied)
	assert.True(t, db.Migrator().HasTable("gadgets"))

	m, err := rollbackLatest(ctx, db, list)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Version)
	assert.False(t, db.Migrator().HasTable("gadgets"))

	applied, err = NewMigrationStore(db).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, applied)
}

func TestApplyPending_UnknownAppliedVersion(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, applyPending(ctx, db, []Migration{
		{Version: 7, Name: "future", UpScript: "SELECT 1", DownScript: "SELECT 1"},
	}))

	err := applyPending(ctx, db, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007")
}

func TestApplyPending_FailedScriptIsNotRecorded(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	err := applyPending(ctx, db, []Migration{
		{Version: 1, Name: "broken", UpScript: "CREATE TABLE", DownScript: "SELECT 1"},
	})
	require.Error(t, err)

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		mode, env       string
		wantSQL, wantAM bool
		wantErr         bool
	}{
		{"", "development", true, true, false},
		{"hybrid", "production", true, false, false},
		{"sql", "development", true, false, false},
		{"auto", "development", false, true, false},
		{"auto", "production", false, false, true},
		{"magic", "development", false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.mode+"/"+tt.env, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&config.Config{DBSchemaMode: tt.mode, Env: tt.env})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL)
			assert.Equal(t, tt.wantAM, runAuto)
		})
	}
}

func TestAutoMigrate_VoteUniqueness(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, AutoMigrate(db))

	require.NoError(t, db.Create(&models.PollVote{PollID: 1, AccountID: 1, ChoiceID: 1}).Error)
	err := db.Create(&models.PollVote{PollID: 1, AccountID: 1, ChoiceID: 2}).Error
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	assert.NoError(t, db.Create(&models.PollVote{PollID: 1, AccountID: 2, ChoiceID: 2}).Error)
}

func TestPersistentModels_IncludesSocialGraph(t *testing.T) {
	var haveVote, haveSaved, haveFarmer bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.PollVote:
			haveVote = true
		case *models.SavedPost:
			haveSaved = true
		case *models.FarmerProfile:
			haveFarmer = true
		}
	}
	assert.True(t, haveVote)
	assert.True(t, haveSaved)
	assert.True(t, haveFarmer)
}
