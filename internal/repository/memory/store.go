// Package memory is an in-process repository.Store used for local runs and
// service tests. Transactions are serialized and commit by swapping in a
// modified copy of the whole data set.
package memory

import (
	"context"
	"maps"
	"sync"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/repository"
)

type state struct {
	nextID        map[string]int32
	zones         map[int32]domain.Zone
	slots         map[int32]domain.ParkingSlot
	users         map[int32]domain.User
	vehicles      map[int32]domain.Vehicle
	sessions      map[int32]domain.ParkingSession
	reservations  map[int32]domain.Reservation
	transactions  []domain.WalletTransaction
	violations    map[int32]domain.Violation
	notifications []domain.Notification
}

func newState() *state {
	return &state{
		nextID:       make(map[string]int32),
		zones:        make(map[int32]domain.Zone),
		slots:        make(map[int32]domain.ParkingSlot),
		users:        make(map[int32]domain.User),
		vehicles:     make(map[int32]domain.Vehicle),
		sessions:     make(map[int32]domain.ParkingSession),
		reservations: make(map[int32]domain.Reservation),
		violations:   make(map[int32]domain.Violation),
	}
}

func (s *state) clone() *state {
	return &state{
		nextID:        maps.Clone(s.nextID),
		zones:         maps.Clone(s.zones),
		slots:         maps.Clone(s.slots),
		users:         maps.Clone(s.users),
		vehicles:      maps.Clone(s.vehicles),
		sessions:      maps.Clone(s.sessions),
		reservations:  maps.Clone(s.reservations),
		transactions:  append([]domain.WalletTransaction(nil), s.transactions...),
		violations:    maps.Clone(s.violations),
		notifications: append([]domain.Notification(nil), s.notifications...),
	}
}

func (s *state) id(table string) int32 {
	s.nextID[table]++
	return s.nextID[table]
}

type Store struct {
	mu    sync.Mutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

// handle routes repository calls either to the live data set, taking the
// store lock per call, or to the copy owned by a running transaction.
type handle struct {
	store *Store
	tx    *state
}

func (h *handle) with(fn func(st *state) error) error {
	if h.tx != nil {
		return fn(h.tx)
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return fn(h.store.state)
}

func newRepositories(h *handle) repository.Repositories {
	return repository.Repositories{
		Zones:         &zoneRepository{h},
		Slots:         &slotRepository{h},
		Users:         &userRepository{h},
		Vehicles:      &vehicleRepository{h},
		Sessions:      &sessionRepository{h},
		Reservations:  &reservationRepository{h},
		Wallet:        &walletRepository{h},
		Violations:    &violationRepository{h},
		Notifications: &notificationRepository{h},
	}
}

func (s *Store) Repos() repository.Repositories {
	return newRepositories(&handle{store: s})
}

func (s *Store) RunInTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := s.state.clone()
	if err := fn(newRepositories(&handle{store: s, tx: tx})); err != nil {
		return err
	}
	s.state = tx
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

var _ repository.Store = (*Store)(nil)

func paginate[T any](items []T, page, pageSize int32) []T {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		return items
	}
	start := int((page - 1) * pageSize)
	if start >= len(items) {
		return nil
	}
	end := start + int(pageSize)
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func containsStatus[T comparable](list []T, v T) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

var errNotFound = domain.ErrNotFound
