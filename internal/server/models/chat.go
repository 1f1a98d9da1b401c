package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
)

// Visibility controls whether a chat can be opened by other users.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// ParseVisibility validates a client supplied visibility.
func ParseVisibility(s string) (Visibility, error) {
	switch v := Visibility(s); v {
	case VisibilityPrivate, VisibilityPublic:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown visibility %q", common.ErrorValidation, s)
	}
}

type Chat struct {
	ID         string
	UserID     string
	Title      string
	Visibility Visibility
	CreatedAt  time.Time
}
