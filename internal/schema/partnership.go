package schema

import (
	"fmt"
	"time"
)

// PartnershipStatus is the lifecycle state of a partnership.
type PartnershipStatus string

const (
	PartnershipActive    PartnershipStatus = "ACTIVE"
	PartnershipDissolved PartnershipStatus = "DISSOLVED"
)

// Partnership is a symmetric pairing of exactly two users. User1ID is always
// the lexicographically smaller id so the pair has one canonical form.
type Partnership struct {
	ID        string            `json:"id"`
	User1ID   string            `json:"user1_id"`
	User2ID   string            `json:"user2_id"`
	Status    PartnershipStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewPartnership builds a Partnership with canonical user ordering.
func NewPartnership(id, userA, userB string, createdAt time.Time) *Partnership {
	if userB < userA {
		userA, userB = userB, userA
	}
	return &Partnership{
		ID:        id,
		User1ID:   userA,
		User2ID:   userB,
		Status:    PartnershipActive,
		CreatedAt: createdAt.UTC(),
	}
}

// PartnerOf returns the counter-party for userID, or "" if userID is not a
// member of the partnership.
func (p *Partnership) PartnerOf(userID string) string {
	switch userID {
	case p.User1ID:
		return p.User2ID
	case p.User2ID:
		return p.User1ID
	}
	return ""
}

// Validate checks the Partnership's field invariants.
func (p *Partnership) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("id is required")
	}
	if p.User1ID == "" || p.User2ID == "" {
		return fmt.Errorf("both user ids are required")
	}
	if p.User1ID == p.User2ID {
		return fmt.Errorf("a partnership needs two distinct users")
	}
	if p.User2ID < p.User1ID {
		return fmt.Errorf("user ids are not in canonical order")
	}
	switch p.Status {
	case PartnershipActive, PartnershipDissolved:
	default:
		return fmt.Errorf("unknown partnership status %q", p.Status)
	}
	return nil
}

// InviteStatus is the lifecycle state of a pairing invite.
type InviteStatus string

const (
	InvitePending   InviteStatus = "PENDING"
	InviteAccepted  InviteStatus = "ACCEPTED"
	InviteExpired   InviteStatus = "EXPIRED"
	InviteCancelled InviteStatus = "CANCELLED"
)

// Invite is an ephemeral pairing code. The remote authority owns issuance
// and validation; local rows are a passive mirror for offline display.
type Invite struct {
	Code       string       `json:"code"`
	CreatorID  string       `json:"creator_id"`
	CreatedAt  time.Time    `json:"created_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
	AcceptedBy string       `json:"accepted_by,omitempty"`
	AcceptedAt *time.Time   `json:"accepted_at,omitempty"`
	Status     InviteStatus `json:"status"`
}

// Expired reports whether the invite's expiry has passed at the given
// instant. The stored status may lag; the remote authority is the source of
// truth.
func (i *Invite) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Validate checks the Invite's field invariants.
func (i *Invite) Validate() error {
	if i.Code == "" {
		return fmt.Errorf("code is required")
	}
	if i.CreatorID == "" {
		return fmt.Errorf("creator_id is required")
	}
	switch i.Status {
	case InvitePending, InviteAccepted, InviteExpired, InviteCancelled:
	default:
		return fmt.Errorf("unknown invite status %q", i.Status)
	}
	return nil
}
