package model

import "time"

type List struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ListInvite grants another email address access to a list once accepted.
type ListInvite struct {
	ListID           string    `json:"listId"`
	InvitedUserEmail string    `json:"invitedUserEmail"`
	InvitedUserID    *string   `json:"invitedUserId"`
	UserID           string    `json:"userId"`
	Accepted         bool      `json:"accepted"`
	CreatedAt        time.Time `json:"createdAt"`
}
