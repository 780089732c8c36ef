package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"pushdispatch.app/internal/ports"
	"pushdispatch.app/pkg/errors"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection keeps every goroutine on the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, RunMigrations(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func registration(token, recipient string, created time.Time) *ports.RegistrationData {
	return &ports.RegistrationData{
		Token:       token,
		RecipientID: recipient,
		Platform:    "ios",
		CreatedAt:   created,
		LastUpdated: created,
	}
}

func TestRegistrationRepository_UpsertIsIdempotentByToken(t *testing.T) {
	repo := NewRegistrationRepositoryAdapter(setupTestDB(t))
	ctx := context.Background()
	first := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, registration("tok-1", "u1", first)))

	update := &ports.RegistrationData{
		Token:          "tok-1",
		RecipientID:    "u2",
		ContactAddress: "u2@example.com",
		Platform:       "android",
		CreatedAt:      first.Add(time.Hour),
		LastUpdated:    first.Add(time.Hour),
	}
	require.NoError(t, repo.Upsert(ctx, update))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "u2", all[0].RecipientID)
	assert.Equal(t, "u2@example.com", all[0].ContactAddress)
	assert.Equal(t, "android", all[0].Platform)
	assert.True(t, all[0].CreatedAt.Equal(first), "creation time survives re-registration")
	assert.True(t, update.CreatedAt.Equal(first), "upsert reloads the stored row")
}

func TestRegistrationRepository_FindAllOrdersOldestFirst(t *testing.T) {
	repo := NewRegistrationRepositoryAdapter(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, registration("tok-b", "u1", base.Add(2*time.Minute))))
	require.NoError(t, repo.Upsert(ctx, registration("tok-a", "u1", base)))

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "tok-a", all[0].Token)
	assert.Equal(t, "tok-b", all[1].Token)
}

func TestRegistrationRepository_FindByFilter(t *testing.T) {
	repo := NewRegistrationRepositoryAdapter(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	withAddress := registration("tok-2", "u2", base.Add(time.Minute))
	withAddress.ContactAddress = "two@example.com"
	require.NoError(t, repo.Upsert(ctx, registration("tok-1", "u1", base)))
	require.NoError(t, repo.Upsert(ctx, withAddress))
	require.NoError(t, repo.Upsert(ctx, registration("tok-3", "u3", base.Add(2*time.Minute))))

	tests := []struct {
		name     string
		filter   ports.RegistrationFilter
		expected []string
	}{
		{"ByRecipient", ports.RegistrationFilter{RecipientIDs: []string{"u1"}}, []string{"tok-1"}},
		{"ByAddress", ports.RegistrationFilter{ContactAddresses: []string{"two@example.com"}}, []string{"tok-2"}},
		{"Ored", ports.RegistrationFilter{RecipientIDs: []string{"u3"}, ContactAddresses: []string{"two@example.com"}}, []string{"tok-2", "tok-3"}},
		{"ByToken", ports.RegistrationFilter{Tokens: []string{"tok-3"}}, []string{"tok-3"}},
		{"NoMatch", ports.RegistrationFilter{RecipientIDs: []string{"nobody"}}, []string{}},
		{"EmptyMeansAll", ports.RegistrationFilter{}, []string{"tok-1", "tok-2", "tok-3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := repo.FindByFilter(ctx, tt.filter)
			require.NoError(t, err)
			tokens := make([]string, 0, len(found))
			for _, f := range found {
				tokens = append(tokens, f.Token)
			}
			assert.Equal(t, tt.expected, tokens)
		})
	}
}

func TestRegistrationRepository_CountAndDelete(t *testing.T) {
	repo := NewRegistrationRepositoryAdapter(setupTestDB(t))
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Upsert(ctx, registration("tok-1", "u1", now)))
	require.NoError(t, repo.Upsert(ctx, registration("tok-2", "u1", now)))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, repo.DeleteByToken(ctx, "tok-1"))
	require.NoError(t, repo.DeleteByToken(ctx, "never-registered"))

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRegistrationRepository_Validation(t *testing.T) {
	repo := NewRegistrationRepositoryAdapter(setupTestDB(t))
	ctx := context.Background()

	assert.True(t, errors.IsValidationError(repo.Upsert(ctx, nil)))
	assert.True(t, errors.IsValidationError(repo.Upsert(ctx, &ports.RegistrationData{})))
	assert.True(t, errors.IsValidationError(repo.DeleteByToken(ctx, "")))
}
