package model

// Role identifies which side of a transfer an account sits on.
type Role string

const (
	RoleSource      Role = "source"
	RoleDestination Role = "destination"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleSource || r == RoleDestination
}

// User is a connected music-service account.
type User struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"displayName" yaml:"display_name"`
	ImageURL    string `json:"imageUrl,omitempty" yaml:"image_url"`
}

// Track is a single song.
type Track struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Artist   string `json:"artist" yaml:"artist"`
	Album    string `json:"album" yaml:"album"`
	ImageURL string `json:"imageUrl,omitempty" yaml:"image_url"`
}

// Playlist is a named collection of tracks.
type Playlist struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
	Owner       string `json:"owner" yaml:"owner"`
	TrackCount  int    `json:"trackCount" yaml:"track_count"`
	ImageURL    string `json:"imageUrl,omitempty" yaml:"image_url"`
}

// Session holds the per-user connection state for a transfer.
type Session struct {
	ID          string `json:"id"`
	Source      *User  `json:"source,omitempty"`
	Destination *User  `json:"destination,omitempty"`
}

// Library is the content of a source account.
type Library struct {
	Playlists  []Playlist `json:"playlists"`
	LikedSongs []Track    `json:"likedSongs"`
}

// Selection lists the items a user chose to copy.
type Selection struct {
	PlaylistIDs []string `json:"playlistIds"`
	SongIDs     []string `json:"songIds"`
}

// CopyResult is the outcome of a simulated copy.
type CopyResult struct {
	JobID   string `json:"jobId"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
