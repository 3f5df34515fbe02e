package models

import "time"

// LineLink binds a LINE user to an account of this service.
type LineLink struct {
	LineUserID string    `firestore:"lineUserId" bson:"_id" json:"lineUserId"`
	UserID     string    `firestore:"userId" bson:"userId" json:"userId"`
	LinkedAt   time.Time `firestore:"linkedAt" bson:"linkedAt" json:"linkedAt"`
}
