package model

import "time"

type User struct {
	ID                 string    `json:"id"`
	Username           string    `json:"username"`
	Email              string    `json:"email"`
	ProfilePictureURL  string    `json:"profile_picture_url"`
	Bio                string    `json:"bio"`
	Location           string    `json:"location"`
	Website            string    `json:"website"`
	IsPrivate          bool      `json:"is_private"`
	ShowOnlineStatus   bool      `json:"show_online_status"`
	EmailNotifications bool      `json:"email_notifications"`
	PushNotifications  bool      `json:"push_notifications"`
	CreatedAt          time.Time `json:"created_at"`
}

type UserPublic struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Email             string `json:"email"`
	ProfilePictureURL string `json:"profile_picture_url"`
}

func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:                u.ID,
		Username:          u.Username,
		Email:             u.Email,
		ProfilePictureURL: u.ProfilePictureURL,
	}
}

// PresenceStatus is the ephemeral per-user state kept in the presence store,
// not in the users table: online flag, last-seen time, free-text status and
// the single conversation the user is currently typing in (empty = none).
type PresenceStatus struct {
	IsOnline      bool      `json:"is_online"`
	LastSeenAt    time.Time `json:"last_seen_at"`
	StatusMessage string    `json:"status_message"`
	TypingIn      string    `json:"typing_in,omitempty"`
}
