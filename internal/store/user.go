package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/clausedesk/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u         model.User
		tier      string
		customer  sql.NullString
		sub       sql.NullString
		lastLogin sql.NullTime
	)
	err := scanner.Scan(&u.ID, &u.Email, &u.Name, &u.Company, &u.PasswordHash, &tier,
		&customer, &sub, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.SubscriptionType = model.ParseTier(tier)
	if customer.Valid {
		u.StripeCustomerID = &customer.String
	}
	if sub.Valid {
		u.StripeSubscriptionID = &sub.String
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return &u, nil
}

const userCols = `id, email, name, company, password_hash, subscription_type,
	stripe_customer_id, stripe_subscription_id, last_login, created_at, updated_at`

// Create inserts u. The caller assigns the ID.
func (s *UserStore) Create(u *model.User) (*model.User, error) {
	tier := u.SubscriptionType
	if tier == "" {
		tier = model.TierFree
	}
	_, err := s.db.Exec(
		`INSERT INTO users (id, email, name, company, password_hash, subscription_type)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.Company, u.PasswordHash, string(tier),
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByID(u.ID)
}

func (s *UserStore) GetByID(id string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByStripeCustomer(customerID string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE stripe_customer_id = ?`, customerID)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by stripe customer: %w", err)
	}
	return u, nil
}

// Tier returns the stored subscription tier for id.
func (s *UserStore) Tier(id string) (model.Tier, error) {
	var tier string
	err := s.db.QueryRow(`SELECT subscription_type FROM users WHERE id = ?`, id).Scan(&tier)
	if err != nil {
		return model.TierFree, fmt.Errorf("get user tier: %w", err)
	}
	return model.ParseTier(tier), nil
}

func (s *UserStore) SetTier(id string, tier model.Tier) error {
	_, err := s.db.Exec(
		`UPDATE users SET subscription_type = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(tier), id,
	)
	if err != nil {
		return fmt.Errorf("set user tier: %w", err)
	}
	return nil
}

func (s *UserStore) SetStripeCustomer(id, customerID string) error {
	_, err := s.db.Exec(
		`UPDATE users SET stripe_customer_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		customerID, id,
	)
	if err != nil {
		return fmt.Errorf("set stripe customer: %w", err)
	}
	return nil
}

// SetStripeSubscription stores the subscription ID; nil clears it.
func (s *UserStore) SetStripeSubscription(id string, subscriptionID *string) error {
	_, err := s.db.Exec(
		`UPDATE users SET stripe_subscription_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		subscriptionID, id,
	)
	if err != nil {
		return fmt.Errorf("set stripe subscription: %w", err)
	}
	return nil
}

func (s *UserStore) TouchLastLogin(id string, at time.Time) error {
	_, err := s.db.Exec(`UPDATE users SET last_login = ? WHERE id = ?`, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}
