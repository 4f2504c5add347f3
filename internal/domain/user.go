package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User mirrors the identity provider's view of an account. A record is
// created on first sign-in and merge-updated on every subsequent sign-in
// and every successful upload.
type User struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UID         string             `bson:"uid" json:"uid"` // Provider-issued id, unique
	Email       string             `bson:"email" json:"email"`
	DisplayName string             `bson:"displayName" json:"displayName"`
	PhotoURL    string             `bson:"photoURL,omitempty" json:"photoURL,omitempty"`

	// TotalUploads counts successful uploads. Incremented atomically in the
	// document store so overlapping sessions cannot lose updates.
	TotalUploads int64 `bson:"totalUploads" json:"totalUploads"`

	CreatedAt  time.Time  `bson:"createdAt" json:"createdAt"`
	LastSignIn time.Time  `bson:"lastSignIn" json:"lastSignIn"`
	LastUpload *time.Time `bson:"lastUpload,omitempty" json:"lastUpload,omitempty"`
}
