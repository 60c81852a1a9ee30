package domain

import "context"

// User is the client-side auth record kept in the local store under UserKey.
type User struct {
	ID           string `json:"id"`
	Nickname     string `json:"nickname"`
	ProfileImage string `json:"profile_image,omitempty"`
	Token        string `json:"token"`
}

// UserKey is the local-store key holding the serialized User.
const UserKey = "user"

// LoginResult is the backend response to an OAuth code exchange.
type LoginResult struct {
	AccessToken string `json:"access_token"`
	UserID      string `json:"user_id"`
	Nickname    string `json:"nickname"`
}

// UserInfo is the account summary returned by the user API.
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Email    string `json:"email,omitempty"`
}

// RegisterRequest creates a username/password account.
type RegisterRequest struct {
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// Profile is the editable "my page" profile.
type Profile struct {
	Bio string `json:"bio"`
}

// KeyValueStore is the local-storage facility: string values by key.
// Get returns ("", false, nil) for a missing key.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// UserStore persists the signed-in user. LoadUser returns (nil, nil) when
// nobody is signed in.
type UserStore interface {
	LoadUser(ctx context.Context) (*User, error)
	SaveUser(ctx context.Context, u User) error
	DeleteUser(ctx context.Context) error
}
