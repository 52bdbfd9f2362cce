package models

import "time"

// Profile holds user preferences passed to the assistant.
type Profile struct {
	Name    string `json:"name,omitempty"`
	ICRatio string `json:"icRatio,omitempty"`
}

// User is the ownership record for assistant threads.
// Threads are ordered newest first.
type User struct {
	ID         string    `json:"id"`
	Threads    []string  `json:"threads"`
	Profile    Profile   `json:"profile"`
	LastUsedAt time.Time `json:"-"`
}

// OwnsThread reports whether threadID is registered to the user.
func (u *User) OwnsThread(threadID string) bool {
	for _, t := range u.Threads {
		if t == threadID {
			return true
		}
	}
	return false
}
