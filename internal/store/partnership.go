package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tandemhq/tandem/internal/schema"
)

// UpsertPartnership inserts or replaces a partnership row.
func (s *Store) UpsertPartnership(ctx context.Context, p *schema.Partnership) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid partnership: %w", err)
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO partnership (id, user1_id, user2_id, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status`,
		p.ID, p.User1ID, p.User2ID, string(p.Status), msec(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert partnership %s: %w", p.ID, err)
	}

	s.changed(TablePartnership)
	return nil
}

// GetPartnershipForUser retrieves the user's ACTIVE partnership.
// Returns (nil, nil) when the user has none.
func (s *Store) GetPartnershipForUser(ctx context.Context, userID string) (*schema.Partnership, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, user1_id, user2_id, status, created_at
		FROM partnership
		WHERE (user1_id = ? OR user2_id = ?) AND status = 'ACTIVE'`,
		userID, userID)

	p, err := scanPartnership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get partnership for %s: %w", userID, err)
	}
	return p, nil
}

// GetPartnership retrieves a partnership by id regardless of status.
// Returns (nil, nil) when absent.
func (s *Store) GetPartnership(ctx context.Context, id string) (*schema.Partnership, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, user1_id, user2_id, status, created_at
		FROM partnership WHERE id = ?`, id)

	p, err := scanPartnership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get partnership %s: %w", id, err)
	}
	return p, nil
}

func scanPartnership(row scanner) (*schema.Partnership, error) {
	var (
		p         schema.Partnership
		status    string
		createdAt int64
	)
	if err := row.Scan(&p.ID, &p.User1ID, &p.User2ID, &status, &createdAt); err != nil {
		return nil, err
	}
	p.Status = schema.PartnershipStatus(status)
	p.CreatedAt = fromMsec(createdAt)
	return &p, nil
}

// UpsertInvite inserts or replaces an invite mirror row keyed by code.
func (s *Store) UpsertInvite(ctx context.Context, inv *schema.Invite) error {
	if err := inv.Validate(); err != nil {
		return fmt.Errorf("invalid invite: %w", err)
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO invite (code, creator_id, created_at, expires_at, accepted_by, accepted_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			accepted_by = excluded.accepted_by,
			accepted_at = excluded.accepted_at,
			status = excluded.status`,
		inv.Code, inv.CreatorID, msec(inv.CreatedAt), msec(inv.ExpiresAt),
		nullStr(inv.AcceptedBy), nullMsec(inv.AcceptedAt), string(inv.Status))
	if err != nil {
		return fmt.Errorf("failed to upsert invite %s: %w", inv.Code, err)
	}

	s.changed(TableInvite)
	return nil
}

// GetInvite retrieves an invite mirror row by code. Returns (nil, nil) when
// absent.
func (s *Store) GetInvite(ctx context.Context, code string) (*schema.Invite, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT code, creator_id, created_at, expires_at, accepted_by, accepted_at, status
		FROM invite WHERE code = ?`, code)

	var (
		inv                  schema.Invite
		createdAt, expiresAt int64
		acceptedBy           sql.NullString
		acceptedAt           sql.NullInt64
		status               string
	)
	err := row.Scan(&inv.Code, &inv.CreatorID, &createdAt, &expiresAt,
		&acceptedBy, &acceptedAt, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite %s: %w", code, err)
	}

	inv.CreatedAt = fromMsec(createdAt)
	inv.ExpiresAt = fromMsec(expiresAt)
	inv.AcceptedBy = strVal(acceptedBy)
	inv.AcceptedAt = msecPtr(acceptedAt)
	inv.Status = schema.InviteStatus(status)

	return &inv, nil
}

// UpsertPartnerGoal inserts or replaces a mirrored partner goal. These rows
// are refreshed by synchronization only; nothing else writes them.
func (s *Store) UpsertPartnerGoal(ctx context.Context, pg *schema.PartnerGoal) error {
	if pg.ID == "" || pg.PartnerID == "" {
		return fmt.Errorf("partner goal needs id and partner_id")
	}

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO partner_goal (id, partner_id, name, icon, kind, target,
			current_progress, current_week_id, status, updated_at, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			icon = excluded.icon,
			kind = excluded.kind,
			target = excluded.target,
			current_progress = excluded.current_progress,
			current_week_id = excluded.current_week_id,
			status = excluded.status,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at`,
		pg.ID, pg.PartnerID, pg.Name, nullStr(pg.Icon), string(pg.Kind), pg.Target,
		pg.CurrentProgress, pg.CurrentWeekID, string(pg.Status),
		msec(pg.UpdatedAt), msec(pg.SyncedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert partner goal %s: %w", pg.ID, err)
	}

	s.changed(TablePartnerGoal)
	return nil
}

// ListPartnerGoals retrieves all mirrored goals for a partner.
func (s *Store) ListPartnerGoals(ctx context.Context, partnerID string) ([]*schema.PartnerGoal, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, partner_id, name, icon, kind, target,
		       current_progress, current_week_id, status, updated_at, synced_at
		FROM partner_goal WHERE partner_id = ? ORDER BY name ASC`, partnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list partner goals: %w", err)
	}
	defer rows.Close()

	var goals []*schema.PartnerGoal
	for rows.Next() {
		var (
			pg                  schema.PartnerGoal
			icon                sql.NullString
			kind, status        string
			updatedAt, syncedAt int64
		)
		if err := rows.Scan(&pg.ID, &pg.PartnerID, &pg.Name, &icon, &kind, &pg.Target,
			&pg.CurrentProgress, &pg.CurrentWeekID, &status, &updatedAt, &syncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan partner goal: %w", err)
		}
		pg.Icon = strVal(icon)
		pg.Kind = schema.GoalKind(kind)
		pg.Status = schema.GoalStatus(status)
		pg.UpdatedAt = fromMsec(updatedAt)
		pg.SyncedAt = fromMsec(syncedAt)
		goals = append(goals, &pg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating partner goals: %w", err)
	}

	return goals, nil
}

// DeletePartnerGoals removes all mirrored goals for a partner, used when a
// partnership dissolves.
func (s *Store) DeletePartnerGoals(ctx context.Context, partnerID string) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		`DELETE FROM partner_goal WHERE partner_id = ?`, partnerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete partner goals: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.changed(TablePartnerGoal)
	}
	return n, nil
}
