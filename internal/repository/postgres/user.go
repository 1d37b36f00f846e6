package postgres

import (
	"context"

	"github.com/lib/pq"

	"smartpark-backend/internal/domain"
	"smartpark-backend/internal/repository"
)

type userRepository struct {
	q Querier
}

func NewUserRepository(q Querier) repository.UserRepository {
	return &userRepository{q: q}
}

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	u := &domain.User{}
	query := `SELECT id, email, phone_number, password_hash, name, fcm_token, roles, wallet_balance, created_on, updated_on
	          FROM users WHERE id = $1`
	err := r.q.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.Email, &u.PhoneNumber, &u.PasswordHash, &u.Name,
		&u.FCMToken, pq.Array(&u.Roles), &u.WalletBalance, &u.CreatedOn, &u.UpdatedOn)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

// Create inserts a user with a zero balance; funds only arrive through ledger entries.
func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (email, phone_number, password_hash, name, fcm_token, roles, wallet_balance, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8) RETURNING id`
	return r.q.QueryRowContext(ctx, query, u.Email, u.PhoneNumber, u.PasswordHash, u.Name, u.FCMToken, pq.Array(u.Roles),
		u.CreatedOn, u.UpdatedOn).Scan(&u.ID)
}
