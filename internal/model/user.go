package model

import "time"

type User struct {
	ID         string    `json:"-"`
	Username   string    `json:"username"`
	IsOnline   bool      `json:"is_online"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserPublic — представление пользователя для клиента и для событий userUpdate.
type UserPublic struct {
	Username   string    `json:"username"`
	IsOnline   bool      `json:"is_online"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
}

func (u *User) ToPublic() UserPublic {
	return UserPublic{
		Username:   u.Username,
		IsOnline:   u.IsOnline,
		LastSeenAt: u.LastSeenAt,
		CreatedAt:  u.CreatedAt,
	}
}
