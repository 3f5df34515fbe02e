package storage

import (
	"context"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytakahashi/todo-app/internal/models"
)

func newUser(email string) *models.User {
	return &models.User{
		ID:        uuid.NewString(),
		Name:      "Ann",
		Email:     email,
		Password:  "hash",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

func newTodo(ownerID, text string, at time.Time) *models.Todo {
	return &models.Todo{
		ID:        uuid.NewString(),
		UserID:    ownerID,
		Text:      text,
		CreatedAt: at.UTC().Truncate(time.Millisecond),
	}
}

// runStoreContract checks the behaviour every backend must share.
func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()

	t.Run("users", func(t *testing.T) {
		email := uuid.NewString() + "@x.com"
		u := newUser(email)
		require.NoError(t, s.CreateUser(ctx, u))

		dup := newUser(email)
		assert.ErrorIs(t, s.CreateUser(ctx, dup), ErrDuplicate)

		got, err := s.GetUserByEmail(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, "hash", got.Password)

		got, err = s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, email, got.Email)

		_, err = s.GetUserByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetUserByEmail(ctx, "nobody-"+uuid.NewString()+"@x.com")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unusual email shapes", func(t *testing.T) {
		for _, email := range []string{
			"__" + uuid.NewString() + "@b.co__",
			uuid.NewString() + "/slash@x.com",
			".." + uuid.NewString() + "@x.com",
		} {
			u := newUser(email)
			require.NoError(t, s.CreateUser(ctx, u), email)
			got, err := s.GetUserByEmail(ctx, email)
			require.NoError(t, err, email)
			assert.Equal(t, u.ID, got.ID)
			assert.ErrorIs(t, s.CreateUser(ctx, newUser(email)), ErrDuplicate, email)
		}
	})

	t.Run("todos are owner scoped", func(t *testing.T) {
		owner, other := uuid.NewString(), uuid.NewString()
		base := time.Now()

		older := newTodo(owner, "older", base)
		newer := newTodo(owner, "newer", base.Add(time.Second))
		foreign := newTodo(other, "foreign", base)
		for _, td := range []*models.Todo{older, newer, foreign} {
			require.NoError(t, s.CreateTodo(ctx, td))
		}

		list, err := s.ListTodos(ctx, owner)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "newer", list[0].Text)
		assert.Equal(t, "older", list[1].Text)

		_, err = s.GetTodo(ctx, owner, foreign.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.MarkTodoCompleted(ctx, owner, foreign.ID), ErrNotFound)
		assert.ErrorIs(t, s.DeleteTodo(ctx, owner, foreign.ID), ErrNotFound)

		got, err := s.GetTodo(ctx, other, foreign.ID)
		require.NoError(t, err)
		assert.False(t, got.IsCompleted)

		require.NoError(t, s.MarkTodoCompleted(ctx, owner, older.ID))
		got, err = s.GetTodo(ctx, owner, older.ID)
		require.NoError(t, err)
		assert.True(t, got.IsCompleted)
		assert.ErrorIs(t, s.MarkTodoCompleted(ctx, owner, older.ID), ErrAlreadyCompleted)

		require.NoError(t, s.DeleteTodo(ctx, owner, newer.ID))
		assert.ErrorIs(t, s.DeleteTodo(ctx, owner, newer.ID), ErrNotFound)

		list, err = s.ListTodos(ctx, owner)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, older.ID, list[0].ID)

		empty, err := s.ListTodos(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("links", func(t *testing.T) {
		lineID := "U" + uuid.NewString()
		_, err := s.GetLink(ctx, lineID)
		assert.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.SaveLink(ctx, &models.LineLink{LineUserID: lineID, UserID: "u1", LinkedAt: time.Now().UTC()}))
		require.NoError(t, s.SaveLink(ctx, &models.LineLink{LineUserID: lineID, UserID: "u2", LinkedAt: time.Now().UTC()}))

		link, err := s.GetLink(ctx, lineID)
		require.NoError(t, err)
		assert.Equal(t, "u2", link.UserID)
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	runStoreContract(t, s)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := NewMongoStore(ctx, uri)
	require.NoError(t, err)
	defer s.Close()

	runStoreContract(t, s)
}

func TestFirestoreStore(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	s, err := NewFirestoreStore(context.Background(), "todo-app-test")
	require.NoError(t, err)
	defer s.Close()

	runStoreContract(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "memory://")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	for _, dsn := range []string{"", "localhost:27017", "postgres://x", "firestore://"} {
		_, err := Open(ctx, dsn)
		assert.Error(t, err, dsn)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	td := newTodo("o", "text", time.Now())
	require.NoError(t, s.CreateTodo(ctx, td))

	got, err := s.GetTodo(ctx, "o", td.ID)
	require.NoError(t, err)
	got.IsCompleted = true

	again, err := s.GetTodo(ctx, "o", td.ID)
	require.NoError(t, err)
	assert.False(t, again.IsCompleted)
}

func TestEmailReservationID(t *testing.T) {
	reserved := regexp.MustCompile(`^__.*__$`)
	for _, email := range []string{"__a@b.co__", "a/b@x.com", ".", "..", "a@x.com"} {
		id := emailReservationID(email)
		assert.False(t, reserved.MatchString(id), id)
		assert.NotContains(t, id, "/")
		assert.NotEqual(t, ".", id)
		assert.NotEqual(t, "..", id)
	}
	assert.Equal(t, emailReservationID("a@x.com"), emailReservationID("a@x.com"))
	assert.NotEqual(t, emailReservationID("a@x.com"), emailReservationID("b@x.com"))
}
