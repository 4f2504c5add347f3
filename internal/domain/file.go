package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileRecord stores metadata about an uploaded file. The bytes themselves
// live in object storage; possession of ShareID (or DownloadURL) is the
// only access control on the download path.
type FileRecord struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	// ShareID is an opaque random token minted before the upload starts.
	// It is immutable once created and is the only key the download path
	// uses to locate the record.
	ShareID string `bson:"shareId" json:"shareId"`

	Filename     string `bson:"filename" json:"filename"`         // User-supplied name, unsanitized
	OriginalName string `bson:"originalName" json:"originalName"` // Same as Filename, kept for the download page
	Size         int64  `bson:"size" json:"size"`                 // Byte count, validated at upload time
	ContentType  string `bson:"type" json:"type"`                 // Client-reported MIME string, untrusted

	// DownloadURL is a capability URL issued by the storage service;
	// possession of this URL is sufficient to retrieve the bytes.
	DownloadURL string `bson:"downloadURL" json:"downloadURL"`

	UploadedBy string    `bson:"uploadedBy" json:"uploadedBy"` // Provider uid of the uploader
	UploadedAt time.Time `bson:"uploadedAt" json:"uploadedAt"`

	// StorageRef is the object key in the storage bucket. Bookkeeping only,
	// never used for access control.
	StorageRef string `bson:"storageRef" json:"-"`
}
