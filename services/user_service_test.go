package services_test

import (
	"fmt"
	"sync/atomic"
	"testing"

	"melodia/apperrors"
	"melodia/models"
	"melodia/repositories"
	"melodia/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testDBCounter int64

// setupTestDB initializes an isolated in-memory SQLite database per test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Track{}))
	return db
}

func newService(db *gorm.DB) services.UserService {
	userRepo := repositories.NewUserRepository(db)
	trackRepo := repositories.NewTrackRepository(db)
	return services.NewUserService(db, userRepo, trackRepo, nil, zap.NewNop())
}

func seedUser(t *testing.T, db *gorm.DB, name, email, secret, role string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Name:      name,
		Email:     email,
		Password:  string(hash),
		Role:      role,
		Birthdate: "1990-01-01",
		AvatarURL: "https://img.example/" + name,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedTrack(t *testing.T, db *gorm.DB, title string) *models.Track {
	t.Helper()
	track := &models.Track{Title: title, Artist: "Test Artist"}
	require.NoError(t, db.Create(track).Error)
	return track
}

func requireKind(t *testing.T, err error, kind apperrors.Kind) *apperrors.Error {
	t.Helper()
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, kind, appErr.Kind)
	return appErr
}

func TestRegister(t *testing.T) {
	t.Run("Success with defaulted role", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)

		user, err := svc.Register(&services.RegisterInput{
			Name: "ana", Email: "ana@x.com", Secret: "secret123", Birthdate: "1992-03-04",
		})
		require.NoError(t, err)
		assert.Equal(t, "user", user.Role)
		assert.NotEqual(t, "secret123", user.Password, "secret must be stored hashed")
	})

	t.Run("Duplicate email rejected", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)

		_, err := svc.Register(&services.RegisterInput{
			Name: "a", Email: "a@x.com", Secret: "pw123456", Birthdate: "1990-01-01",
		})
		require.NoError(t, err)

		_, err = svc.Register(&services.RegisterInput{
			Name: "b", Email: "a@x.com", Secret: "pw654321", Birthdate: "1991-01-01",
		})
		requireKind(t, err, apperrors.KindDuplicateEmail)

		var count int64
		db.Model(&models.User{}).Count(&count)
		assert.EqualValues(t, 1, count)
	})

	t.Run("Missing required fields", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)

		_, err := svc.Register(&services.RegisterInput{Name: "a", Email: "a@x.com"})
		requireKind(t, err, apperrors.KindInvalidPayload)
	})
}

func TestLogin(t *testing.T) {
	t.Run("Unknown email", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)

		_, _, err := svc.Login(&services.LoginInput{Email: "ghost@x.com", Secret: "whatever"})
		requireKind(t, err, apperrors.KindNotFound)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)
		seedUser(t, db, "ana", "ana@x.com", "rightpass", "user")

		_, _, err := svc.Login(&services.LoginInput{Email: "ana@x.com", Secret: "wrongpass"})
		requireKind(t, err, apperrors.KindInvalidPayload)
	})

	t.Run("Correct pair issues token", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)
		seedUser(t, db, "ana", "ana@x.com", "rightpass", "user")

		user, token, err := svc.Login(&services.LoginInput{Email: "ana@x.com", Secret: "rightpass"})
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.Equal(t, "ana@x.com", user.Email)
	})
}

func TestUpdateUserMerge(t *testing.T) {
	t.Run("Empty patch preserves everything but role", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)
		existing := seedUser(t, db, "ana", "ana@x.com", "pw", "admin")

		merged, err := svc.UpdateUser(existing.ID, &services.UpdateUserInput{Role: "admin"})
		require.NoError(t, err)

		assert.Equal(t, existing.Name, merged.Name)
		assert.Equal(t, existing.Email, merged.Email)
		assert.Equal(t, existing.Birthdate, merged.Birthdate)
		assert.Equal(t, existing.AvatarURL, merged.AvatarURL)
		assert.Equal(t, existing.Password, merged.Password)
		assert.Equal(t, "admin", merged.Role)
	})

	t.Run("Role is overwritten verbatim, not retained", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)
		existing := seedUser(t, db, "ana", "ana@x.com", "pw", "admin")

		merged, err := svc.UpdateUser(existing.ID, &services.UpdateUserInput{Name: "ana maria"})
		require.NoError(t, err)
		assert.Equal(t, "", merged.Role, "an omitted role is written as-is, never defaulted from the record")
		assert.Equal(t, "ana maria", merged.Name)
	})

	t.Run("Email collision with another user", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)
		u1 := seedUser(t, db, "ana", "ana@x.com", "pw", "user")
		seedUser(t, db, "bob", "bob@x.com", "pw", "user")

		_, err := svc.UpdateUser(u1.ID, &services.UpdateUserInput{Email: "bob@x.com", Role: "user"})
		requireKind(t, err, apperrors.KindDuplicateEmail)

		var stored models.User
		require.NoError(t, db.First(&stored, u1.ID).Error)
		assert.Equal(t, "ana@x.com", stored.Email, "no field may change on a rejected merge")
		assert.Equal(t, "ana", stored.Name)
	})

	t.Run("Re-sending own email is not a collision", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)
		u1 := seedUser(t, db, "ana", "ana@x.com", "pw", "user")

		merged, err := svc.UpdateUser(u1.ID, &services.UpdateUserInput{Email: "ana@x.com", Role: "user"})
		require.NoError(t, err)
		assert.Equal(t, "ana@x.com", merged.Email)
	})

	t.Run("Secret is re-hashed only when supplied", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)
		existing := seedUser(t, db, "ana", "ana@x.com", "oldpass", "user")
		oldHash := existing.Password

		merged, err := svc.UpdateUser(existing.ID, &services.UpdateUserInput{Role: "user"})
		require.NoError(t, err)
		assert.Equal(t, oldHash, merged.Password)

		merged, err = svc.UpdateUser(existing.ID, &services.UpdateUserInput{Role: "user", Secret: "newpass"})
		require.NoError(t, err)
		assert.NotEqual(t, oldHash, merged.Password)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(merged.Password), []byte("newpass")))
	})

	t.Run("Unknown user", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)

		_, err := svc.UpdateUser(4242, &services.UpdateUserInput{Name: "nobody"})
		requireKind(t, err, apperrors.KindNotFound)
	})
}

func TestSyncLikedTracks(t *testing.T) {
	t.Run("Missing ids mutate nothing and are reported exactly", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)
		user := seedUser(t, db, "ana", "ana@x.com", "pw", "user")
		tr1 := seedTrack(t, db, "one")
		tr2 := seedTrack(t, db, "two")

		_, err := svc.SyncLikedTracks(user.ID, []uint{tr1.ID, tr2.ID, 999}, services.SyncAdd)
		appErr := requireKind(t, err, apperrors.KindUnresolvedReferences)
		assert.Contains(t, appErr.Message, "999")

		details, ok := appErr.Details.(map[string][]uint)
		require.True(t, ok)
		assert.Equal(t, []uint{999}, details["missing_track_ids"])

		var count int64
		db.Table("user_liked_tracks").Count(&count)
		assert.EqualValues(t, 0, count, "neither resolvable id may be applied")
	})

	t.Run("Add then remove round-trips to the prior state", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)
		user := seedUser(t, db, "ana", "ana@x.com", "pw", "user")
		tr1 := seedTrack(t, db, "one")
		tr2 := seedTrack(t, db, "two")

		updated, err := svc.SyncLikedTracks(user.ID, []uint{tr1.ID, tr2.ID}, services.SyncAdd)
		require.NoError(t, err)
		assert.Len(t, updated.LikedTracks, 2)

		updated, err = svc.SyncLikedTracks(user.ID, []uint{tr1.ID, tr2.ID}, services.SyncRemove)
		require.NoError(t, err)
		assert.Len(t, updated.LikedTracks, 0)
	})

	t.Run("Re-adding an already-liked track is a no-op", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)
		user := seedUser(t, db, "ana", "ana@x.com", "pw", "user")
		tr1 := seedTrack(t, db, "one")

		_, err := svc.SyncLikedTracks(user.ID, []uint{tr1.ID}, services.SyncAdd)
		require.NoError(t, err)

		updated, err := svc.SyncLikedTracks(user.ID, []uint{tr1.ID}, services.SyncAdd)
		require.NoError(t, err)
		assert.Len(t, updated.LikedTracks, 1)
	})

	t.Run("Removing a track that is not liked is a no-op", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)
		user := seedUser(t, db, "ana", "ana@x.com", "pw", "user")
		tr1 := seedTrack(t, db, "one")

		updated, err := svc.SyncLikedTracks(user.ID, []uint{tr1.ID}, services.SyncRemove)
		require.NoError(t, err)
		assert.Len(t, updated.LikedTracks, 0)
	})

	t.Run("Empty id list is rejected without I/O", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)
		user := seedUser(t, db, "ana", "ana@x.com", "pw", "user")

		_, err := svc.SyncLikedTracks(user.ID, nil, services.SyncAdd)
		requireKind(t, err, apperrors.KindInvalidPayload)
	})

	t.Run("Unknown user", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)
		tr1 := seedTrack(t, db, "one")

		_, err := svc.SyncLikedTracks(4242, []uint{tr1.ID}, services.SyncAdd)
		requireKind(t, err, apperrors.KindNotFound)
	})
}

func TestDeleteUser(t *testing.T) {
	t.Run("Delete clears liked membership", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)
		user := seedUser(t, db, "ana", "ana@x.com", "pw", "user")
		tr1 := seedTrack(t, db, "one")

		_, err := svc.SyncLikedTracks(user.ID, []uint{tr1.ID}, services.SyncAdd)
		require.NoError(t, err)

		require.NoError(t, svc.DeleteUser(user.ID))

		var count int64
		db.Table("user_liked_tracks").Count(&count)
		assert.EqualValues(t, 0, count)

		_, err = svc.GetUserByID(user.ID)
		requireKind(t, err, apperrors.KindNotFound)
	})

	t.Run("Unknown user", func(t *testing.T) {
		db := setupTestDB(t)
		svc := newService(db)

		err := svc.DeleteUser(4242)
		requireKind(t, err, apperrors.KindNotFound)
	})
}
