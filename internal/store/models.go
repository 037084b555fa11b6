package store

import "time"

type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type ArtistImage struct {
	ID         int64
	ArtistID   int64
	ObjectKey  string
	MimeType   string
	UploadedBy int64
	CreatedAt  time.Time
}

// ArtistRow is the browse-listing projection of a live artist.
type ArtistRow struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ArtistType string `json:"artist_type"`
}

// TagRow is the browse-listing projection of a live tag.
type TagRow struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}
