package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"smartpark-backend/internal/domain"
)

type zoneRepository struct{ h *handle }

func (r *zoneRepository) GetByID(ctx context.Context, id int32) (*domain.Zone, error) {
	var out *domain.Zone
	err := r.h.with(func(st *state) error {
		z, ok := st.zones[id]
		if !ok {
			return errNotFound
		}
		out = &z
		return nil
	})
	return out, err
}

// LockForUpdate is a plain read; transactions are already serialized.
func (r *zoneRepository) LockForUpdate(ctx context.Context, id int32) (*domain.Zone, error) {
	return r.GetByID(ctx, id)
}

func (r *zoneRepository) ListActive(ctx context.Context, countryCode string) ([]domain.Zone, error) {
	var out []domain.Zone
	err := r.h.with(func(st *state) error {
		for _, z := range st.zones {
			if z.IsActive && (countryCode == "" || z.CountryCode == countryCode) {
				out = append(out, z)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.Zone) int { return cmp.Compare(a.Name, b.Name) })
	return out, err
}

func (r *zoneRepository) Create(ctx context.Context, z *domain.Zone) error {
	return r.h.with(func(st *state) error {
		z.ID = st.id("zones")
		st.zones[z.ID] = *z
		return nil
	})
}

type slotRepository struct{ h *handle }

func (r *slotRepository) GetByID(ctx context.Context, id int32) (*domain.ParkingSlot, error) {
	var out *domain.ParkingSlot
	err := r.h.with(func(st *state) error {
		s, ok := st.slots[id]
		if !ok {
			return errNotFound
		}
		out = &s
		return nil
	})
	return out, err
}

func (r *slotRepository) CountByZone(ctx context.Context, zoneID int32) (int32, error) {
	var n int32
	err := r.h.with(func(st *state) error {
		for _, s := range st.slots {
			if s.ZoneID == zoneID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *slotRepository) CountByStatus(ctx context.Context, zoneID int32) (map[domain.SlotStatus]int32, error) {
	counts := make(map[domain.SlotStatus]int32)
	err := r.h.with(func(st *state) error {
		for _, s := range st.slots {
			if s.ZoneID == zoneID {
				counts[s.Status]++
			}
		}
		return nil
	})
	return counts, err
}

func (r *slotRepository) FindFirstAvailable(ctx context.Context, zoneID int32) (*domain.ParkingSlot, error) {
	var out *domain.ParkingSlot
	err := r.h.with(func(st *state) error {
		for _, s := range st.slots {
			if s.ZoneID != zoneID || s.Status != domain.SlotStatusAvailable {
				continue
			}
			if out == nil || s.CreatedOn.Before(out.CreatedOn) || (s.CreatedOn.Equal(out.CreatedOn) && s.ID < out.ID) {
				c := s
				out = &c
			}
		}
		if out == nil {
			return errNotFound
		}
		return nil
	})
	return out, err
}

func (r *slotRepository) Claim(ctx context.Context, zoneID, slotID int32, status domain.SlotStatus) error {
	return r.h.with(func(st *state) error {
		s, ok := st.slots[slotID]
		if !ok || s.ZoneID != zoneID || s.Status != domain.SlotStatusAvailable {
			return domain.ErrSlotUnavailable
		}
		s.Status = status
		s.UpdatedOn = time.Now().UTC()
		st.slots[slotID] = s
		return nil
	})
}

func (r *slotRepository) SetStatus(ctx context.Context, slotID int32, status domain.SlotStatus) error {
	return r.h.with(func(st *state) error {
		s, ok := st.slots[slotID]
		if !ok {
			return errNotFound
		}
		s.Status = status
		s.UpdatedOn = time.Now().UTC()
		st.slots[slotID] = s
		return nil
	})
}

func (r *slotRepository) Create(ctx context.Context, s *domain.ParkingSlot) error {
	return r.h.with(func(st *state) error {
		s.ID = st.id("parking_slots")
		st.slots[s.ID] = *s
		return nil
	})
}

type userRepository struct{ h *handle }

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	var out *domain.User
	err := r.h.with(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return errNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	return r.h.with(func(st *state) error {
		u.ID = st.id("users")
		u.WalletBalance = decimal.Zero
		st.users[u.ID] = *u
		return nil
	})
}

type vehicleRepository struct{ h *handle }

func (r *vehicleRepository) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	var out *domain.Vehicle
	err := r.h.with(func(st *state) error {
		v, ok := st.vehicles[id]
		if !ok {
			return errNotFound
		}
		out = &v
		return nil
	})
	return out, err
}

func (r *vehicleRepository) ListByUser(ctx context.Context, userID int32) ([]domain.Vehicle, error) {
	var out []domain.Vehicle
	err := r.h.with(func(st *state) error {
		for _, v := range st.vehicles {
			if v.UserID == userID {
				out = append(out, v)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.Vehicle) int { return cmp.Compare(a.ID, b.ID) })
	return out, err
}

func (r *vehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	return r.h.with(func(st *state) error {
		v.ID = st.id("vehicles")
		st.vehicles[v.ID] = *v
		return nil
	})
}

type sessionRepository struct{ h *handle }

func (r *sessionRepository) Create(ctx context.Context, s *domain.ParkingSession) error {
	return r.h.with(func(st *state) error {
		if s.Status == domain.SessionStatusActive {
			for _, existing := range st.sessions {
				if existing.VehicleID == s.VehicleID && existing.Status == domain.SessionStatusActive {
					return domain.ErrActiveSessionExists
				}
			}
		}
		s.ID = st.id("parking_sessions")
		st.sessions[s.ID] = *s
		return nil
	})
}

func (r *sessionRepository) GetByID(ctx context.Context, id int32) (*domain.ParkingSession, error) {
	var out *domain.ParkingSession
	err := r.h.with(func(st *state) error {
		s, ok := st.sessions[id]
		if !ok {
			return errNotFound
		}
		out = &s
		return nil
	})
	return out, err
}

func (r *sessionRepository) GetForUpdate(ctx context.Context, id int32) (*domain.ParkingSession, error) {
	return r.GetByID(ctx, id)
}

func (r *sessionRepository) Update(ctx context.Context, s *domain.ParkingSession) error {
	return r.h.with(func(st *state) error {
		if _, ok := st.sessions[s.ID]; !ok {
			return errNotFound
		}
		st.sessions[s.ID] = *s
		return nil
	})
}

func (r *sessionRepository) FindActiveForVehicle(ctx context.Context, vehicleID int32) (*domain.ParkingSession, error) {
	var out *domain.ParkingSession
	err := r.h.with(func(st *state) error {
		for _, s := range st.sessions {
			if s.VehicleID == vehicleID && s.Status == domain.SessionStatusActive {
				out = &s
				return nil
			}
		}
		return errNotFound
	})
	return out, err
}

func (r *sessionRepository) CountActiveInZone(ctx context.Context, zoneID int32) (int32, error) {
	var n int32
	err := r.h.with(func(st *state) error {
		for _, s := range st.sessions {
			if s.ZoneID == zoneID && s.Status == domain.SessionStatusActive {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *sessionRepository) ListActiveEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]int32, error) {
	var due []domain.ParkingSession
	err := r.h.with(func(st *state) error {
		for _, s := range st.sessions {
			if s.Status == domain.SessionStatusActive && !s.PlannedEndTime.After(cutoff) {
				due = append(due, s)
			}
		}
		return nil
	})
	slices.SortFunc(due, func(a, b domain.ParkingSession) int { return a.PlannedEndTime.Compare(b.PlannedEndTime) })
	ids := make([]int32, 0, len(due))
	for i, s := range due {
		if limit > 0 && i >= limit {
			break
		}
		ids = append(ids, s.ID)
	}
	return ids, err
}

func (r *sessionRepository) ListActiveEndingBetween(ctx context.Context, from, to time.Time) ([]domain.ParkingSession, error) {
	var out []domain.ParkingSession
	err := r.h.with(func(st *state) error {
		for _, s := range st.sessions {
			if s.Status == domain.SessionStatusActive && s.PlannedEndTime.After(from) && !s.PlannedEndTime.After(to) {
				out = append(out, s)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.ParkingSession) int { return a.PlannedEndTime.Compare(b.PlannedEndTime) })
	return out, err
}

func (r *sessionRepository) ListByUser(ctx context.Context, userID int32, statuses []domain.SessionStatus, page, pageSize int32) ([]domain.ParkingSession, int32, error) {
	var out []domain.ParkingSession
	err := r.h.with(func(st *state) error {
		for _, s := range st.sessions {
			if s.UserID == userID && (len(statuses) == 0 || containsStatus(statuses, s.Status)) {
				out = append(out, s)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.ParkingSession) int {
		if c := b.StartTime.Compare(a.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return paginate(out, page, pageSize), int32(len(out)), err
}

type reservationRepository struct{ h *handle }

func (r *reservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	return r.h.with(func(st *state) error {
		res.ID = st.id("reservations")
		st.reservations[res.ID] = *res
		return nil
	})
}

func (r *reservationRepository) GetByID(ctx context.Context, id int32) (*domain.Reservation, error) {
	var out *domain.Reservation
	err := r.h.with(func(st *state) error {
		res, ok := st.reservations[id]
		if !ok {
			return errNotFound
		}
		out = &res
		return nil
	})
	return out, err
}

func (r *reservationRepository) GetForUpdate(ctx context.Context, id int32) (*domain.Reservation, error) {
	return r.GetByID(ctx, id)
}

func (r *reservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	return r.h.with(func(st *state) error {
		if _, ok := st.reservations[res.ID]; !ok {
			return errNotFound
		}
		st.reservations[res.ID] = *res
		return nil
	})
}

func (r *reservationRepository) CountOverlapping(ctx context.Context, zoneID int32, from, until time.Time, statuses []domain.ReservationStatus) (int32, error) {
	var n int32
	err := r.h.with(func(st *state) error {
		for _, res := range st.reservations {
			if res.ZoneID == zoneID && containsStatus(statuses, res.Status) &&
				res.ReservedFrom.Before(until) && res.ReservedUntil.After(from) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *reservationRepository) ListHoldingForSlot(ctx context.Context, slotID int32, from, until time.Time) ([]domain.Reservation, error) {
	var out []domain.Reservation
	err := r.h.with(func(st *state) error {
		for _, res := range st.reservations {
			if res.SlotID != nil && *res.SlotID == slotID && containsStatus(domain.HoldingStatuses, res.Status) &&
				res.ReservedFrom.Before(until) && res.ReservedUntil.After(from) {
				out = append(out, res)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.Reservation) int { return a.ReservedFrom.Compare(b.ReservedFrom) })
	return out, err
}

func (r *reservationRepository) listIDs(match func(domain.Reservation) bool, key func(domain.Reservation) time.Time, limit int) ([]int32, error) {
	var found []domain.Reservation
	err := r.h.with(func(st *state) error {
		for _, res := range st.reservations {
			if match(res) {
				found = append(found, res)
			}
		}
		return nil
	})
	slices.SortFunc(found, func(a, b domain.Reservation) int { return key(a).Compare(key(b)) })
	ids := make([]int32, 0, len(found))
	for i, res := range found {
		if limit > 0 && i >= limit {
			break
		}
		ids = append(ids, res.ID)
	}
	return ids, err
}

func (r *reservationRepository) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]int32, error) {
	return r.listIDs(func(res domain.Reservation) bool {
		return res.Status == domain.ReservationStatusPendingPayment && !res.CreatedOn.After(cutoff)
	}, func(res domain.Reservation) time.Time { return res.CreatedOn }, limit)
}

func (r *reservationRepository) ListConfirmedEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]int32, error) {
	return r.listIDs(func(res domain.Reservation) bool {
		return res.Status == domain.ReservationStatusConfirmed && !res.ReservedUntil.After(cutoff)
	}, func(res domain.Reservation) time.Time { return res.ReservedUntil }, limit)
}

func (r *reservationRepository) ListByUser(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Reservation, int32, error) {
	var out []domain.Reservation
	err := r.h.with(func(st *state) error {
		for _, res := range st.reservations {
			if res.UserID == userID {
				out = append(out, res)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.Reservation) int {
		if c := b.ReservedFrom.Compare(a.ReservedFrom); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return paginate(out, page, pageSize), int32(len(out)), err
}

type walletRepository struct{ h *handle }

func (r *walletRepository) GetBalance(ctx context.Context, userID int32) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.h.with(func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return errNotFound
		}
		balance = u.WalletBalance
		return nil
	})
	return balance, err
}

func (r *walletRepository) LockBalance(ctx context.Context, userID int32) (decimal.Decimal, error) {
	return r.GetBalance(ctx, userID)
}

func (r *walletRepository) ApplyDelta(ctx context.Context, userID int32, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.h.with(func(st *state) error {
		u, ok := st.users[userID]
		if !ok {
			return errNotFound
		}
		u.WalletBalance = u.WalletBalance.Add(delta)
		u.UpdatedOn = time.Now().UTC()
		st.users[userID] = u
		balance = u.WalletBalance
		return nil
	})
	return balance, err
}

func (r *walletRepository) CreateTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	return r.h.with(func(st *state) error {
		tx.ID = st.id("wallet_transactions")
		st.transactions = append(st.transactions, *tx)
		return nil
	})
}

func (r *walletRepository) ListTransactions(ctx context.Context, userID int32, page, pageSize int32) ([]domain.WalletTransaction, int32, error) {
	var out []domain.WalletTransaction
	err := r.h.with(func(st *state) error {
		for i := len(st.transactions) - 1; i >= 0; i-- {
			if st.transactions[i].UserID == userID {
				out = append(out, st.transactions[i])
			}
		}
		return nil
	})
	return paginate(out, page, pageSize), int32(len(out)), err
}

func sumSigned(st *state, userID int32) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range st.transactions {
		if tx.UserID == userID && tx.Status == domain.TransactionStatusCompleted {
			sum = sum.Add(tx.SignedAmount())
		}
	}
	return sum
}

func (r *walletRepository) SumSigned(ctx context.Context, userID int32) (decimal.Decimal, error) {
	var sum decimal.Decimal
	err := r.h.with(func(st *state) error {
		sum = sumSigned(st, userID)
		return nil
	})
	return sum, err
}

func (r *walletRepository) ListInconsistent(ctx context.Context) ([]domain.WalletReconciliation, error) {
	var out []domain.WalletReconciliation
	err := r.h.with(func(st *state) error {
		for id, u := range st.users {
			sum := sumSigned(st, id)
			if !sum.Equal(u.WalletBalance) {
				out = append(out, domain.WalletReconciliation{UserID: id, Balance: u.WalletBalance, LedgerSum: sum})
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.WalletReconciliation) int { return cmp.Compare(a.UserID, b.UserID) })
	return out, err
}

type violationRepository struct{ h *handle }

func (r *violationRepository) Create(ctx context.Context, v *domain.Violation) error {
	return r.h.with(func(st *state) error {
		v.ID = st.id("violations")
		st.violations[v.ID] = *v
		return nil
	})
}

func (r *violationRepository) GetByID(ctx context.Context, id int32) (*domain.Violation, error) {
	var out *domain.Violation
	err := r.h.with(func(st *state) error {
		v, ok := st.violations[id]
		if !ok {
			return errNotFound
		}
		out = &v
		return nil
	})
	return out, err
}

func (r *violationRepository) MarkPaid(ctx context.Context, id int32, paidAt time.Time) error {
	return r.h.with(func(st *state) error {
		v, ok := st.violations[id]
		if !ok {
			return errNotFound
		}
		v.IsPaid = true
		v.PaidAt = &paidAt
		st.violations[id] = v
		return nil
	})
}

func (r *violationRepository) ListByUser(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Violation, int32, error) {
	var out []domain.Violation
	err := r.h.with(func(st *state) error {
		for _, v := range st.violations {
			if vehicle, ok := st.vehicles[v.VehicleID]; ok && vehicle.UserID == userID {
				out = append(out, v)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.Violation) int {
		if c := b.CreatedOn.Compare(a.CreatedOn); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return paginate(out, page, pageSize), int32(len(out)), err
}

type notificationRepository struct{ h *handle }

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return r.h.with(func(st *state) error {
		n.ID = st.id("notifications")
		st.notifications = append(st.notifications, *n)
		return nil
	})
}

func (r *notificationRepository) List(ctx context.Context, userID int32, limit, offset int32) ([]domain.Notification, int32, error) {
	var out []domain.Notification
	err := r.h.with(func(st *state) error {
		for i := len(st.notifications) - 1; i >= 0; i-- {
			if st.notifications[i].UserID == userID {
				out = append(out, st.notifications[i])
			}
		}
		return nil
	})
	total := int32(len(out))
	if int(offset) >= len(out) {
		return nil, total, err
	}
	out = out[offset:]
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out, total, err
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id, userID int32) error {
	return r.h.with(func(st *state) error {
		for i := range st.notifications {
			if st.notifications[i].ID == id && st.notifications[i].UserID == userID {
				st.notifications[i].IsRead = true
				return nil
			}
		}
		return errNotFound
	})
}

func (r *notificationRepository) ExistsSince(ctx context.Context, userID int32, attrs map[string]string, since time.Time) (bool, error) {
	var found bool
	err := r.h.with(func(st *state) error {
		for _, n := range st.notifications {
			if n.UserID != userID || n.CreatedOn.Before(since) {
				continue
			}
			match := true
			for k, v := range attrs {
				if n.Attributes[k] != v {
					match = false
					break
				}
			}
			if match {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}
