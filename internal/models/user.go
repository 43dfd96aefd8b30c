package models

import "time"

// User is a registered account. PushToken is the primary delivery token;
// ExtraPushTokens carries additional registered devices.
type User struct {
	ID              string    `json:"id"`
	DisplayName     string    `json:"displayName"`
	PushToken       string    `json:"pushToken,omitempty"`
	ExtraPushTokens []string  `json:"extraPushTokens,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Crew is a persistent named group of users, used here only as a
// target-expansion source.
type Crew struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	MemberIDs []string  `json:"memberIds"`
	CreatedAt time.Time `json:"createdAt"`
}
