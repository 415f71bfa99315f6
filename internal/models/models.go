package models

import "time"

// User represents an account within the Photon platform.
type User struct {
	ID        string
	Email     string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Image holds the metadata for an uploaded picture. The bytes themselves live
// behind a storage backend and are addressed through FileRef.
type Image struct {
	ID        string
	OwnerID   string
	Name      string
	FileRef   string
	Size      int64
	InTrash   bool
	Favourite bool
	Archived  bool
	CreatedAt time.Time
}

// Pair represents the friendship workflow between two users. A single record
// exists per unordered user pair; direction is carried by Requester/Receiver.
type Pair struct {
	ID          string
	Requester   string
	Receiver    string
	Status      string
	CreatedAt   time.Time
	RespondedAt *time.Time
}

const (
	PairStatusPending  = "pending"
	PairStatusAccepted = "accepted"
)

// Share grants a viewer standing access to one of the owner's images.
// Sharing is independent of friendship between the two users.
type Share struct {
	ID        string
	ImageID   string
	OwnerID   string
	ViewerID  string
	CreatedAt time.Time
}

// SharedImage is the viewer-facing projection of a share grant: the image
// snapshot joined with the owner's contact details.
type SharedImage struct {
	ImageID    string
	FileRef    string
	Name       string
	CreatedAt  time.Time
	OwnerID    string
	OwnerEmail string
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
