// Package identity implements the durable identity model behind every
// service handler: users, their physical cards, and the per-game public
// identifiers (extid, refid) plus the profile rows that gate the
// new-versus-returning player branches.
package identity

import (
	"context"

	"github.com/573dev/gfdm-server/internal/server/models"
)

// The game constants for this deployment. Extids span the series; refids
// are minted per (game, version).
const (
	Game    = "GFDM"
	Version = 8
)

// Store is the set of identity operations handlers rely on.
//
// Multi-step operations (RegisterCard, MintRefID) are atomic: either all
// rows exist afterwards or none do, with uniqueness enforced by the store
// itself rather than by check-then-insert.
type Store interface {
	// UserByCardID resolves a physical card to its owner.
	// Returns common.ErrNotFound for an unregistered card.
	UserByCardID(ctx context.Context, cardID string) (*models.User, error)

	// UserByRefID resolves a reference id to its owner.
	// Returns common.ErrNotFound for a refid that was never issued.
	UserByRefID(ctx context.Context, refID string) (*models.User, error)

	// RegisterCard creates a user with the given PIN, attaches the card,
	// ensures the extid and mints a refid, all in one transaction.
	// A card id that is already attached yields common.ErrDuplicateCard.
	RegisterCard(ctx context.Context, cardID, pin string) (*models.RefID, error)

	// RefIDForUser returns the user's refid for this game and version,
	// or common.ErrNotFound.
	RefIDForUser(ctx context.Context, userID int64) (*models.RefID, error)

	// EnsureExtID returns the user's extid for this game series, allocating
	// a fresh globally unique 8-digit value on first use.
	EnsureExtID(ctx context.Context, userID int64) (*models.ExtID, error)

	// MintRefID returns the user's refid for this game and version,
	// allocating a fresh globally unique value on first use. The extid
	// is ensured first.
	MintRefID(ctx context.Context, userID int64) (*models.RefID, error)

	// HasProfile reports whether a profile row exists for the refid.
	HasProfile(ctx context.Context, refID string) (bool, error)

	// SaveProfile creates or replaces the profile row for the refid.
	SaveProfile(ctx context.Context, refID string, data []byte) error

	// ProfileByRefID returns the profile row, or common.ErrNotFound.
	ProfileByRefID(ctx context.Context, refID string) (*models.Profile, error)

	// VerifyPIN compares the candidate against the PIN of the refid's
	// owner. A missing refid is common.ErrNotFound: by the time a cabinet
	// sends a PIN it must already hold an issued refid.
	VerifyPIN(ctx context.Context, refID, pin string) (bool, error)
}
