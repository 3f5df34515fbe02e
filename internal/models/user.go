package models

import "time"

// User is a registered account. Password holds the bcrypt hash and is never
// serialized to clients.
type User struct {
	ID        string    `firestore:"id" bson:"_id" json:"-"`
	Name      string    `firestore:"name" bson:"name" json:"-"`
	Email     string    `firestore:"email" bson:"email" json:"-"`
	Password  string    `firestore:"password" bson:"password" json:"-"`
	CreatedAt time.Time `firestore:"createdAt" bson:"createdAt" json:"-"`
}

// PublicUser is the view of a User that leaves the server.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}
