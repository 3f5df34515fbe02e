package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ytakahashi/todo-app/internal/models"
)

const (
	usersCollection      = "users"
	userEmailsCollection = "userEmails"
	todosCollection      = "todos"
	linksCollection      = "lineLinks"
)

// FirestoreStore keeps documents in Cloud Firestore. Listing todos needs the
// composite index (userId asc, createdAt desc) on the todos collection.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return &FirestoreStore{
		client: client,
	}, nil
}

func (fs *FirestoreStore) Close() error {
	return fs.client.Close()
}

// emailReservationID hex-encodes the address. Hex digits can never form a
// reserved document id such as "__x__", ".", ".." or contain "/".
func emailReservationID(email string) string {
	return hex.EncodeToString([]byte(email))
}

type emailReservation struct {
	UserID string `firestore:"userId"`
}

// CreateUser reserves the email first; the reservation document can only be
// created once, which keeps emails unique without a transaction.
func (fs *FirestoreStore) CreateUser(ctx context.Context, u *models.User) error {
	reservation := fs.client.Collection(userEmailsCollection).Doc(emailReservationID(u.Email))
	if _, err := reservation.Create(ctx, emailReservation{UserID: u.ID}); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to reserve email: %w", err)
	}

	if _, err := fs.client.Collection(usersCollection).Doc(u.ID).Set(ctx, u); err != nil {
		if _, derr := reservation.Delete(ctx); derr != nil {
			err = errors.Join(err, derr)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (fs *FirestoreStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	doc, err := fs.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var u models.User
	if err := doc.DataTo(&u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &u, nil
}

func (fs *FirestoreStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	iter := fs.client.Collection(usersCollection).
		Where("email", "==", email).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	var u models.User
	if err := doc.DataTo(&u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &u, nil
}

func (fs *FirestoreStore) CreateTodo(ctx context.Context, t *models.Todo) error {
	_, err := fs.client.Collection(todosCollection).Doc(t.ID).Create(ctx, t)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create todo: %w", err)
	}

	return nil
}

func (fs *FirestoreStore) ListTodos(ctx context.Context, ownerID string) ([]*models.Todo, error) {
	iter := fs.client.Collection(todosCollection).
		Where("userId", "==", ownerID).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	todos := []*models.Todo{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate todos: %w", err)
		}

		var todo models.Todo
		if err := doc.DataTo(&todo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal todo: %w", err)
		}

		todos = append(todos, &todo)
	}

	return todos, nil
}

func (fs *FirestoreStore) GetTodo(ctx context.Context, ownerID, id string) (*models.Todo, error) {
	doc, err := fs.client.Collection(todosCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}

	var todo models.Todo
	if err := doc.DataTo(&todo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal todo: %w", err)
	}
	if todo.UserID != ownerID {
		return nil, ErrNotFound
	}
	return &todo, nil
}

func (fs *FirestoreStore) MarkTodoCompleted(ctx context.Context, ownerID, id string) error {
	ref := fs.client.Collection(todosCollection).Doc(id)

	err := fs.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}

		var todo models.Todo
		if err := doc.DataTo(&todo); err != nil {
			return fmt.Errorf("failed to unmarshal todo: %w", err)
		}
		if todo.UserID != ownerID {
			return ErrNotFound
		}
		if todo.IsCompleted {
			return ErrAlreadyCompleted
		}

		return tx.Update(ref, []firestore.Update{{Path: "isCompleted", Value: true}})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyCompleted) {
			return err
		}
		return fmt.Errorf("failed to complete todo: %w", err)
	}

	return nil
}

func (fs *FirestoreStore) DeleteTodo(ctx context.Context, ownerID, id string) error {
	if _, err := fs.GetTodo(ctx, ownerID, id); err != nil {
		return err
	}

	if _, err := fs.client.Collection(todosCollection).Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete todo: %w", err)
	}

	return nil
}

func (fs *FirestoreStore) SaveLink(ctx context.Context, link *models.LineLink) error {
	if _, err := fs.client.Collection(linksCollection).Doc(link.LineUserID).Set(ctx, link); err != nil {
		return fmt.Errorf("failed to save link: %w", err)
	}
	return nil
}

func (fs *FirestoreStore) GetLink(ctx context.Context, lineUserID string) (*models.LineLink, error) {
	doc, err := fs.client.Collection(linksCollection).Doc(lineUserID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	var link models.LineLink
	if err := doc.DataTo(&link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal link: %w", err)
	}
	return &link, nil
}
