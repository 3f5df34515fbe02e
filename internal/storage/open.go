package storage

import (
	"context"
	"fmt"
	"strings"
)

// Open connects to the backend named by the DSN scheme:
//
//	memory://
//	mongodb://host/db, mongodb+srv://host/db
//	firestore://project-id
func Open(ctx context.Context, dsn string) (Store, error) {
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return nil, fmt.Errorf("invalid database url %q", dsn)
	}

	switch strings.ToLower(scheme) {
	case "memory":
		return NewMemoryStore(), nil
	case "mongodb", "mongodb+srv":
		return NewMongoStore(ctx, dsn)
	case "firestore":
		project := strings.Trim(rest, "/")
		if project == "" {
			return nil, fmt.Errorf("firestore url needs a project id")
		}
		return NewFirestoreStore(ctx, project)
	default:
		return nil, fmt.Errorf("unsupported database scheme %q", scheme)
	}
}
