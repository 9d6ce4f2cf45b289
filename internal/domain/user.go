package domain

// Profile is the read-only snapshot of a user taken from the user directory.
type Profile struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar,omitempty"`
}
