package model

import (
	"time"
)

type Team struct {
	ID            string    `db:"id" json:"id"`
	OwnerID       string    `db:"owner_id" json:"owner_id"`
	Name          string    `db:"name" json:"name"`
	WorkspaceSlug string    `db:"workspace_slug" json:"workspace_slug"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// TeamWithRole is a team as seen by one of its members.
type TeamWithRole struct {
	Team
	Role TeamRole `db:"role" json:"role"`
}

type CreateTeamParams struct {
	OwnerID       string
	Name          string
	WorkspaceSlug string
}

type TeamMember struct {
	ID       string    `db:"id" json:"id"`
	TeamID   string    `db:"team_id" json:"team_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	Role     TeamRole  `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// MemberWithUser joins a membership with the member's profile.
type MemberWithUser struct {
	TeamMember
	Email    string `db:"email" json:"email"`
	Username string `db:"username" json:"username"`
	Name     string `db:"name" json:"name"`
}

type TeamInvitation struct {
	ID        string     `db:"id" json:"id"`
	TeamID    string     `db:"team_id" json:"team_id"`
	Email     string     `db:"email" json:"email"`
	Role      TeamRole   `db:"role" json:"role"`
	Token     string     `db:"token" json:"-"`
	InvitedBy string     `db:"invited_by" json:"invited_by"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	ClaimedAt *time.Time `db:"claimed_at" json:"claimed_at"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

type CreateInvitationParams struct {
	TeamID    string
	Email     string
	Role      TeamRole
	Token     string
	InvitedBy string
	ExpiresAt time.Time
}

// MemberListing is one row of the members view: an active member or a pending invitation.
type MemberListing struct {
	ID        string       `json:"id"`
	UserID    *string      `json:"user_id,omitempty"`
	Email     string       `json:"email"`
	Username  *string      `json:"username,omitempty"`
	Name      *string      `json:"name,omitempty"`
	Role      TeamRole     `json:"role"`
	Status    MemberStatus `json:"status"`
	JoinedAt  *time.Time   `json:"joined_at,omitempty"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
}
