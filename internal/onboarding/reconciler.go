package onboarding

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/iota-community/optimus-bot/internal/platform"
)

// Reconciler turns an accumulated selection set into the minimal role delta
// against the user's current roles. It is idempotent: reapplying the same
// selections yields an empty delta.
type Reconciler struct {
	platform platform.Platform
	logger   *slog.Logger
}

func NewReconciler(p platform.Platform, logger *slog.Logger) *Reconciler {
	return &Reconciler{platform: p, logger: logger}
}

// Apply removes auto-assignable roles no longer selected, grants the newly
// selected ones and ensures the base roles, in that order. Removal runs
// before addition to keep the window where both an old and a new role are
// held as small as possible. Returns the role IDs granted from selections.
func (r *Reconciler) Apply(ctx context.Context, guildID, userID string, selections []string) ([]string, error) {
	currentIDs, err := r.platform.MemberRoles(ctx, guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read member roles: %w", err)
	}
	all, err := r.platform.Roles(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guild roles: %w", err)
	}
	nameByID := make(map[string]string, len(all))
	for _, role := range all {
		nameByID[role.ID] = role.Name
	}

	auto := AutoAssignable()
	selected := make(map[string]bool, len(selections))
	for _, sel := range selections {
		if sel != SelectionNone {
			selected[sel] = true
		}
	}

	var removeIDs []string
	for _, id := range currentIDs {
		name := nameByID[id]
		if auto[name] && !selected[name] {
			removeIDs = append(removeIDs, id)
		}
	}
	if len(removeIDs) > 0 {
		if err := r.platform.RevokeRoles(ctx, guildID, userID, removeIDs); err != nil {
			return nil, fmt.Errorf("failed to revoke roles: %w", err)
		}
	}

	var addIDs []string
	for _, sel := range selections {
		if sel == SelectionNone {
			continue
		}
		role, err := r.platform.EnsureRole(ctx, guildID, sel)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve role %q: %w", sel, err)
		}
		if !slices.Contains(currentIDs, role.ID) {
			addIDs = append(addIDs, role.ID)
		}
	}
	if len(addIDs) > 0 {
		if err := r.platform.GrantRoles(ctx, guildID, userID, addIDs); err != nil {
			return nil, fmt.Errorf("failed to grant roles: %w", err)
		}
	}

	// Base roles are ensured unconditionally, independent of selections.
	for _, base := range []string{RoleMember, RoleOnboarded} {
		role, err := r.platform.EnsureRole(ctx, guildID, base)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve base role %q: %w", base, err)
		}
		if !slices.Contains(currentIDs, role.ID) {
			if err := r.platform.GrantRoles(ctx, guildID, userID, []string{role.ID}); err != nil {
				return nil, fmt.Errorf("failed to grant base role %q: %w", base, err)
			}
		}
	}

	r.logger.Info("reconciled roles",
		"user", userID,
		"added", len(addIDs),
		"removed", len(removeIDs))
	return addIDs, nil
}
