// Package models holds the persistence models shared by repositories and
// services.
package models

import "time"

type User struct {
	ID        string
	UserName  string
	CreatedAt time.Time
}
