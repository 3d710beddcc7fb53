// Package model defines the data models for the daily mission tracker.
package model

import "time"

// UserID is the opaque, stable identifier of a user.
type UserID string

// String returns the raw identifier.
func (id UserID) String() string {
	return string(id)
}

// MissionID is the identifier of a daily mission.
type MissionID string

// String returns the raw identifier.
func (id MissionID) String() string {
	return string(id)
}

// User represents a registered account.
type User struct {
	UserID       UserID    `db:"user_id"`
	UserName     string    `db:"user_name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// UserInfo is the public view of a user.
type UserInfo struct {
	UserID   UserID `json:"userId"`
	UserName string `json:"userName"`
}

// Info returns the public view of the user.
func (u *User) Info() UserInfo {
	return UserInfo{UserID: u.UserID, UserName: u.UserName}
}

// UserExp is a user's experience balance. Points only ever grow.
type UserExp struct {
	UserID           UserID `db:"user_id"`
	ExperiencePoints int64  `db:"experience_points"`
}

// UserLevel is an experience balance together with its derived level.
// Remaining is nil when the user is at the maximum level.
type UserLevel struct {
	UserID           UserID  `json:"userId"`
	ExperiencePoints int64   `json:"experiencePoints"`
	Level            int     `json:"level"`
	Remaining        *uint64 `json:"remaining,omitempty"`
}

// DailyMission is a recurring task whose completion flag is cleared every day.
type DailyMission struct {
	MissionID   MissionID `db:"mission_id" json:"missionId"`
	UserID      UserID    `db:"user_id" json:"userId"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description,omitempty"`
	IsComplete  bool      `db:"is_complete" json:"isComplete"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// MissionInput carries the user-editable fields of a mission.
type MissionInput struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}
