package identity

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"

	"github.com/573dev/gfdm-server/internal/common"
	"github.com/573dev/gfdm-server/internal/server/models"
)

// MemoryStore is an in-memory Store used in tests and for running without a
// database. A single mutex makes every multi-step operation atomic, matching
// the transactional guarantees of the Postgres implementation.
type MemoryStore struct {
	mu         sync.Mutex
	nextUserID int64
	users      map[int64]*models.User
	cards      map[string]*models.Card
	extids     map[int64]*models.ExtID  // keyed by extid value
	refids     map[string]*models.RefID // keyed by refid value
	profiles   map[string]*models.Profile
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]*models.User),
		cards:    make(map[string]*models.Card),
		extids:   make(map[int64]*models.ExtID),
		refids:   make(map[string]*models.RefID),
		profiles: make(map[string]*models.Profile),
	}
}

func (s *MemoryStore) UserByCardID(_ context.Context, cardID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, ok := s.cards[cardID]
	if !ok {
		return nil, common.ErrNotFound
	}
	user, ok := s.users[card.UserID]
	if !ok {
		return nil, fmt.Errorf("card %s owned by missing user %d: %w",
			cardID, card.UserID, common.ErrIntegrity)
	}
	u := *user
	return &u, nil
}

func (s *MemoryStore) UserByRefID(_ context.Context, refID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userByRefIDLocked(refID)
}

func (s *MemoryStore) userByRefIDLocked(refID string) (*models.User, error) {
	refid, ok := s.refids[refID]
	if !ok {
		return nil, common.ErrNotFound
	}
	user, ok := s.users[refid.UserID]
	if !ok {
		return nil, fmt.Errorf("refid %s owned by missing user %d: %w",
			refID, refid.UserID, common.ErrIntegrity)
	}
	u := *user
	return &u, nil
}

func (s *MemoryStore) RegisterCard(_ context.Context, cardID, pin string) (*models.RefID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cards[cardID]; ok {
		return nil, fmt.Errorf("attach card %s: %w", cardID, common.ErrDuplicateCard)
	}

	s.nextUserID++
	userID := s.nextUserID
	s.users[userID] = &models.User{UserID: userID, PIN: pin}
	s.cards[cardID] = &models.Card{CardID: cardID, UserID: userID}

	if _, err := s.ensureExtIDLocked(userID); err != nil {
		// Roll the partial registration back; the store must not keep
		// a user without its card's identifiers.
		delete(s.users, userID)
		delete(s.cards, cardID)
		s.nextUserID--
		return nil, err
	}

	return s.mintRefIDLocked(userID)
}

func (s *MemoryStore) RefIDForUser(_ context.Context, userID int64) (*models.RefID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.refids {
		if r.UserID == userID && r.Game == Game && r.Version == Version {
			ref := *r
			return &ref, nil
		}
	}
	return nil, common.ErrNotFound
}

func (s *MemoryStore) EnsureExtID(_ context.Context, userID int64) (*models.ExtID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureExtIDLocked(userID)
}

func (s *MemoryStore) ensureExtIDLocked(userID int64) (*models.ExtID, error) {
	for _, e := range s.extids {
		if e.UserID == userID && e.Game == Game {
			ext := *e
			return &ext, nil
		}
	}

	for {
		candidate, err := common.MakeRandIntInRange(10000000, 99999999)
		if err != nil {
			return nil, err
		}
		if _, taken := s.extids[candidate]; taken {
			continue
		}
		extid := &models.ExtID{ExtID: candidate, Game: Game, UserID: userID}
		s.extids[candidate] = extid
		ext := *extid
		return &ext, nil
	}
}

func (s *MemoryStore) MintRefID(_ context.Context, userID int64) (*models.RefID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ensureExtIDLocked(userID); err != nil {
		return nil, err
	}
	return s.mintRefIDLocked(userID)
}

func (s *MemoryStore) mintRefIDLocked(userID int64) (*models.RefID, error) {
	// At most one refid per user per game and version.
	for _, r := range s.refids {
		if r.UserID == userID && r.Game == Game && r.Version == Version {
			ref := *r
			return &ref, nil
		}
	}

	for {
		candidate, err := common.MakeRandHexString(16)
		if err != nil {
			return nil, err
		}
		if _, taken := s.refids[candidate]; taken {
			continue
		}
		refid := &models.RefID{RefID: candidate, Game: Game, Version: Version, UserID: userID}
		s.refids[candidate] = refid
		ref := *refid
		return &ref, nil
	}
}

func (s *MemoryStore) HasProfile(_ context.Context, refID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.profiles[refID]
	return ok, nil
}

func (s *MemoryStore) SaveProfile(_ context.Context, refID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.refids[refID]; !ok {
		return fmt.Errorf("profile for unissued refid %s: %w", refID, common.ErrIntegrity)
	}
	s.profiles[refID] = &models.Profile{RefID: refID, Data: data}
	return nil
}

func (s *MemoryStore) ProfileByRefID(_ context.Context, refID string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[refID]
	if !ok {
		return nil, common.ErrNotFound
	}
	profile := *p
	return &profile, nil
}

func (s *MemoryStore) VerifyPIN(_ context.Context, refID, pin string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, err := s.userByRefIDLocked(refID)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(user.PIN), []byte(pin)) == 1, nil
}
