package models

import (
	"time"
)

// Todo represents a todo item owned by a single user.
type Todo struct {
	ID          string    `firestore:"id" bson:"_id" json:"id"`
	UserID      string    `firestore:"userId" bson:"userId" json:"userId"`
	Text        string    `firestore:"text" bson:"text" json:"text"`
	IsCompleted bool      `firestore:"isCompleted" bson:"isCompleted" json:"isCompleted"`
	CreatedAt   time.Time `firestore:"createdAt" bson:"createdAt" json:"createdAt"`
}
