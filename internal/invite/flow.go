// Package invite orchestrates the pairing flow. The remote partnership
// service owns invite issuance and validation; this package calls it and
// keeps the local mirror rows current so the pairing state is visible
// offline.
package invite

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tandemhq/tandem/internal/remote"
	"github.com/tandemhq/tandem/internal/schema"
	"github.com/tandemhq/tandem/internal/store"
)

// PartnerAPI is the slice of the remote client the flow needs.
type PartnerAPI interface {
	CreateInvite(ctx context.Context, userID string) (*remote.InviteGrant, error)
	AcceptInvite(ctx context.Context, userID, code string) (*remote.PartnershipInfo, error)
	DissolvePartnership(ctx context.Context, userID string) error
	GetPartner(ctx context.Context, userID string) (*remote.PartnershipInfo, error)
}

// Flow runs the pairing operations end to end: remote call first, local
// mirror update on success.
type Flow struct {
	store  *store.Store
	api    PartnerAPI
	logger *log.Logger
	now    func() time.Time
}

// NewFlow creates a Flow. A nil logger means a default stderr logger.
func NewFlow(s *store.Store, api PartnerAPI, logger *log.Logger) *Flow {
	if logger == nil {
		logger = log.New(os.Stderr, "[invite] ", log.LstdFlags)
	}
	return &Flow{
		store:  s,
		api:    api,
		logger: logger,
		now:    time.Now,
	}
}

// CreateInvite mints a new invite code for the user and mirrors it locally.
// A user who already has an active partnership is rejected without a remote
// round trip.
func (f *Flow) CreateInvite(ctx context.Context, userID string) (*schema.Invite, error) {
	existing, err := f.store.GetPartnershipForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &remote.Error{Code: remote.CodeAlreadyPartnered, Message: "user already has a partner"}
	}

	grant, err := f.api.CreateInvite(ctx, userID)
	if err != nil {
		return nil, remote.Classify(err)
	}

	inv := &schema.Invite{
		Code:      grant.Code,
		CreatorID: userID,
		CreatedAt: f.now().UTC(),
		ExpiresAt: grant.ExpiresAt,
		Status:    schema.InvitePending,
	}
	if err := f.store.UpsertInvite(ctx, inv); err != nil {
		return nil, err
	}
	f.logger.Printf("created invite %s for %s", inv.Code, userID)
	return inv, nil
}

// AcceptInvite redeems an invite code and records the resulting partnership
// locally. The remote service enforces code validity, expiry, self-invites
// and single-partnership; its failures come back classified.
func (f *Flow) AcceptInvite(ctx context.Context, userID, code string) (*schema.Partnership, error) {
	info, err := f.api.AcceptInvite(ctx, userID, code)
	if err != nil {
		return nil, remote.Classify(err)
	}

	p := schema.NewPartnership(info.PartnershipID, userID, info.PartnerID, f.now())
	if err := f.store.UpsertPartnership(ctx, p); err != nil {
		return nil, err
	}

	// Refresh the invite mirror when we hold one for this code.
	if inv, err := f.store.GetInvite(ctx, code); err == nil && inv != nil {
		now := f.now().UTC()
		inv.AcceptedBy = userID
		inv.AcceptedAt = &now
		inv.Status = schema.InviteAccepted
		if err := f.store.UpsertInvite(ctx, inv); err != nil {
			f.logger.Printf("failed to update invite mirror %s: %v", code, err)
		}
	}

	f.logger.Printf("partnership %s established for %s", p.ID, userID)
	return p, nil
}

// CancelInvite withdraws a pending invite in the local mirror. Only the
// creator may cancel, and only while the invite is still pending.
func (f *Flow) CancelInvite(ctx context.Context, userID, code string) error {
	inv, err := f.store.GetInvite(ctx, code)
	if err != nil {
		return err
	}
	if inv == nil {
		return &remote.Error{Code: remote.CodeInvalidCode, Message: "invite not found"}
	}
	if inv.CreatorID != userID {
		return fmt.Errorf("invite %s was not created by %s", code, userID)
	}
	if inv.Status != schema.InvitePending {
		return fmt.Errorf("invite %s is %s, not pending", code, inv.Status)
	}
	inv.Status = schema.InviteCancelled
	return f.store.UpsertInvite(ctx, inv)
}

// Dissolve ends the user's partnership on the service, marks the local
// mirror dissolved, and drops the former partner's mirrored goals.
func (f *Flow) Dissolve(ctx context.Context, userID string) error {
	if err := f.api.DissolvePartnership(ctx, userID); err != nil {
		return remote.Classify(err)
	}

	p, err := f.store.GetPartnershipForUser(ctx, userID)
	if err != nil {
		return err
	}
	if p == nil {
		return nil
	}

	partnerID := p.PartnerOf(userID)
	p.Status = schema.PartnershipDissolved
	if err := f.store.UpsertPartnership(ctx, p); err != nil {
		return err
	}
	if n, err := f.store.DeletePartnerGoals(ctx, partnerID); err != nil {
		f.logger.Printf("failed to drop mirrored goals for %s: %v", partnerID, err)
	} else if n > 0 {
		f.logger.Printf("dropped %d mirrored goal(s) for %s", n, partnerID)
	}
	f.logger.Printf("partnership %s dissolved", p.ID)
	return nil
}

// Refresh reconciles the local partnership mirror with the service: the
// remote answer wins in both directions. Returns the current partnership,
// or nil when the user has none.
func (f *Flow) Refresh(ctx context.Context, userID string) (*schema.Partnership, error) {
	info, err := f.api.GetPartner(ctx, userID)
	if err != nil {
		return nil, remote.Classify(err)
	}

	local, lerr := f.store.GetPartnershipForUser(ctx, userID)
	if lerr != nil {
		return nil, lerr
	}

	if info == nil {
		if local != nil {
			local.Status = schema.PartnershipDissolved
			if err := f.store.UpsertPartnership(ctx, local); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	p := schema.NewPartnership(info.PartnershipID, userID, info.PartnerID, f.now())
	if local != nil {
		p.CreatedAt = local.CreatedAt
	}
	if err := f.store.UpsertPartnership(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// PartnerID returns the user's current partner from the local mirror, or ""
// when unpaired. No remote call is made.
func (f *Flow) PartnerID(ctx context.Context, userID string) (string, error) {
	p, err := f.store.GetPartnershipForUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", nil
	}
	return p.PartnerOf(userID), nil
}
