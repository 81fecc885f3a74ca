package room

import "time"

// Info is the immutable room metadata snapshot fetched once per room entry.
type Info struct {
	// Title is the room's display title.
	Title string `json:"title"`

	// Menu is the ordered list of items the bill is split over. Display data only.
	Menu []MenuItem `json:"menu"`
}

// MenuItem is one ordered menu entry.
type MenuItem struct {
	Name string `json:"name"`

	// Price in the smallest currency unit.
	Price int64 `json:"price"`
}

// Proof is the attachment descriptor the upload endpoint returns on success.
// The session turns it into a Message carrying the proof URL.
type Proof struct {
	ID        string
	FileURL   string
	CreatedAt time.Time
}
