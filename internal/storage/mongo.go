package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/ytakahashi/todo-app/internal/models"
)

const defaultMongoDatabase = "todo"

// MongoStore keeps documents in MongoDB. Email uniqueness is enforced by a
// unique index created in NewMongoStore.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	todos  *mongo.Collection
	links  *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri string) (*MongoStore, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}
	dbName := cs.Database
	if dbName == "" {
		dbName = defaultMongoDatabase
	}

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(10).
		SetServerSelectionTimeout(5 * time.Second).
		SetSocketTimeout(45 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := client.Database(dbName)
	s := &MongoStore{
		client: client,
		users:  db.Collection(usersCollection),
		todos:  db.Collection(todosCollection),
		links:  db.Collection(linksCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	_, err = s.todos.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create todos index: %w", err)
	}

	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) CreateUser(ctx context.Context, u *models.User) error {
	if _, err := s.users.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.D{{Key: "email", Value: email}})
}

func (s *MongoStore) findUser(ctx context.Context, filter bson.D) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (s *MongoStore) CreateTodo(ctx context.Context, t *models.Todo) error {
	if _, err := s.todos.InsertOne(ctx, t); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create todo: %w", err)
	}
	return nil
}

func (s *MongoStore) ListTodos(ctx context.Context, ownerID string) ([]*models.Todo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.todos.Find(ctx, bson.D{{Key: "userId", Value: ownerID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}

	todos := []*models.Todo{}
	if err := cur.All(ctx, &todos); err != nil {
		return nil, fmt.Errorf("failed to decode todos: %w", err)
	}
	return todos, nil
}

func ownedTodo(ownerID, id string) bson.D {
	return bson.D{{Key: "_id", Value: id}, {Key: "userId", Value: ownerID}}
}

func (s *MongoStore) GetTodo(ctx context.Context, ownerID, id string) (*models.Todo, error) {
	var t models.Todo
	if err := s.todos.FindOne(ctx, ownedTodo(ownerID, id)).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	return &t, nil
}

func (s *MongoStore) MarkTodoCompleted(ctx context.Context, ownerID, id string) error {
	filter := append(ownedTodo(ownerID, id), bson.E{Key: "isCompleted", Value: false})
	res, err := s.todos.UpdateOne(ctx, filter,
		bson.D{{Key: "$set", Value: bson.D{{Key: "isCompleted", Value: true}}}})
	if err != nil {
		return fmt.Errorf("failed to complete todo: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	// Nothing open matched: either the todo is gone or it was already done.
	if _, err := s.GetTodo(ctx, ownerID, id); err != nil {
		return err
	}
	return ErrAlreadyCompleted
}

func (s *MongoStore) DeleteTodo(ctx context.Context, ownerID, id string) error {
	res, err := s.todos.DeleteOne(ctx, ownedTodo(ownerID, id))
	if err != nil {
		return fmt.Errorf("failed to delete todo: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) SaveLink(ctx context.Context, link *models.LineLink) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.links.ReplaceOne(ctx, bson.D{{Key: "_id", Value: link.LineUserID}}, link, opts); err != nil {
		return fmt.Errorf("failed to save link: %w", err)
	}
	return nil
}

func (s *MongoStore) GetLink(ctx context.Context, lineUserID string) (*models.LineLink, error) {
	var link models.LineLink
	if err := s.links.FindOne(ctx, bson.D{{Key: "_id", Value: lineUserID}}).Decode(&link); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return &link, nil
}
