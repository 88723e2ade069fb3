package postgresql_test

import (
	"context"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	mock_database "bluedex/internal/db/mocks"
	"bluedex/internal/repository"
	"bluedex/internal/repository/postgresql"
)

func TestUserRepo_CreateUser(t *testing.T) {
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := mock_database.NewMockDB(ctrl)
	repo := postgresql.NewUserRepo(mockDB)

	user := &repository.User{
		Username: "ada",
		Role:     "sender",
		Name:     "Ada Sender",
		Email:    "ada@example.com",
		Phone:    "+15550002222",
		Address:  "1 Depot Road",
	}

	mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq(user.Username),
		gomock.Any(), gomock.Eq(user.Role), gomock.Eq(user.Name), gomock.Eq(user.Email),
		gomock.Eq(user.Phone), gomock.Eq(user.Address)).
		DoAndReturn(func(_ context.Context, _ string, args ...interface{}) (pgconn.CommandTag, error) {
			// the stored password must be a bcrypt hash, never the plaintext
			hashed, ok := args[2].(string)
			require.True(t, ok)
			assert.NotEqual(t, "s3cret", hashed)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hashed), []byte("s3cret")))
			return nil, nil
		})

	err := repo.CreateUser(ctx, user, "s3cret")
	assert.NoError(t, err)
	assert.NotEmpty(t, user.ID)
}

func TestUserRepo_Authenticate(t *testing.T) {
	ctx := context.Background()

	hashed, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	stored := &repository.User{
		ID:       "user-1",
		Username: "ada",
		Password: string(hashed),
		Role:     "sender",
	}

	t.Run("valid credentials", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewUserRepo(mockDB)

		mockDB.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("ada")).
			DoAndReturn(func(_ context.Context, dest *repository.User, _ string, _ string) error {
				*dest = *stored
				return nil
			})

		user, err := repo.Authenticate(ctx, "ada", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, stored.ID, user.ID)
		assert.Equal(t, "sender", user.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewUserRepo(mockDB)

		mockDB.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("ada")).
			DoAndReturn(func(_ context.Context, dest *repository.User, _ string, _ string) error {
				*dest = *stored
				return nil
			})

		user, err := repo.Authenticate(ctx, "ada", "wrong")
		assert.ErrorIs(t, err, postgresql.ErrInvalidCredentials)
		assert.Nil(t, user)
	})

	t.Run("unknown username", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewUserRepo(mockDB)

		mockDB.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("ghost")).
			Return(pgx.ErrNoRows)

		user, err := repo.Authenticate(ctx, "ghost", "s3cret")
		assert.ErrorIs(t, err, postgresql.ErrInvalidCredentials)
		assert.Nil(t, user)
	})
}

func TestUserRepo_GetByID(t *testing.T) {
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := mock_database.NewMockDB(ctrl)
	repo := postgresql.NewUserRepo(mockDB)

	mockDB.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("ghost")).
		Return(pgx.ErrNoRows)

	user, err := repo.GetByID(ctx, "ghost")
	assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	assert.Nil(t, user)
}
