// Package storage implements the user record store and the content catalog
// on PostgreSQL. Every mutation targets exactly one row, so no
// application-level locking is needed: concurrent updates to the same record
// resolve by the store's last-write-wins semantics.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/journeysyoga/journeys/internal/models"
	"github.com/journeysyoga/journeys/internal/subscription"
)

var (
	// ErrUserNotFound is returned when no user record matches the lookup key.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when a record with the email already exists.
	ErrEmailTaken = errors.New("email already registered")
	// ErrBillingAlreadyLinked is returned when a record already carries a
	// different billing customer id. The link is set at most once.
	ErrBillingAlreadyLinked = errors.New("billing customer already linked")
	// ErrPracticeNotFound is returned when no practice matches the slug.
	ErrPracticeNotFound = errors.New("practice not found")
	// ErrJourneyNotFound is returned when no journey matches the slug.
	ErrJourneyNotFound = errors.New("journey not found")
)

type Storage struct {
	db *pgxpool.Pool
}

func New(ctx context.Context, storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	pool, err := pgxpool.New(ctx, storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{db: pool}, nil
}

func (s *Storage) Close() {
	s.db.Close()
}

const userColumns = `id, email, name, password_hash, billing_customer_id,
	subscription_status, cancel_at_period_end, current_period_end,
	onboarding_complete, goals, month_of_birth, year_of_birth, created_at`

func scanUser(row pgx.Row) (*models.UserRecord, error) {
	var u models.UserRecord
	var status string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash,
		&u.BillingCustomerID, &status, &u.CancelAtPeriodEnd,
		&u.CurrentPeriodEnd, &u.OnboardingComplete, &u.Goals,
		&u.MonthOfBirth, &u.YearOfBirth, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.SubscriptionStatus = subscription.Status(status)
	return &u, nil
}

// CreateUser inserts a new user record with the default free status.
// Records are created at first successful sign-in and never hard-deleted.
func (s *Storage) CreateUser(ctx context.Context, email, name, passwordHash string) (*models.UserRecord, error) {
	const op = "storage.CreateUser"

	row := s.db.QueryRow(ctx, `
		INSERT INTO users (id, email, name, password_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
		RETURNING `+userColumns,
		uuid.NewString(), email, name, passwordHash)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// FindUserByEmail looks up a record by its natural key.
func (s *Storage) FindUserByEmail(ctx context.Context, email string) (*models.UserRecord, error) {
	const op = "storage.FindUserByEmail"

	row := s.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1`, email)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// FindUserByBillingCustomerID looks up the record owning a billing customer
// id. Billing-originated operations address records through this key.
func (s *Storage) FindUserByBillingCustomerID(ctx context.Context, customerID string) (*models.UserRecord, error) {
	const op = "storage.FindUserByBillingCustomerID"

	row := s.db.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users WHERE billing_customer_id = $1`, customerID)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// LinkBillingCustomer sets the billing customer id on a record. The link is
// set at most once; re-linking the same id is a no-op, a different id is an
// error.
func (s *Storage) LinkBillingCustomer(ctx context.Context, userID, customerID string) error {
	const op = "storage.LinkBillingCustomer"

	tag, err := s.db.Exec(ctx, `
		UPDATE users SET billing_customer_id = $1
		WHERE id = $2 AND billing_customer_id IS NULL`, customerID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var existing *string
	err = s.db.QueryRow(ctx, `
		SELECT billing_customer_id FROM users WHERE id = $1`, userID).Scan(&existing)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if existing != nil && *existing == customerID {
		return nil
	}
	return fmt.Errorf("%s: %w", op, ErrBillingAlreadyLinked)
}

// ApplySubscriptionState unconditionally sets the three subscription fields
// on a record. The set is idempotent by construction: applying the same
// state twice leaves the record unchanged, which makes webhook redelivery
// safe.
func (s *Storage) ApplySubscriptionState(ctx context.Context, userID string, state models.SubscriptionState) error {
	const op = "storage.ApplySubscriptionState"

	tag, err := s.db.Exec(ctx, `
		UPDATE users
		SET subscription_status = $1,
			cancel_at_period_end = $2,
			current_period_end = COALESCE($3, current_period_end)
		WHERE id = $4`,
		string(state.Status), state.CancelAtPeriodEnd, state.CurrentPeriodEnd, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// CompleteOnboarding stores the onboarding profile and marks the record
// onboarded.
func (s *Storage) CompleteOnboarding(ctx context.Context, userID string, profile models.OnboardingProfile) error {
	const op = "storage.CompleteOnboarding"

	tag, err := s.db.Exec(ctx, `
		UPDATE users
		SET name = $1,
			month_of_birth = $2,
			year_of_birth = $3,
			goals = $4,
			onboarding_complete = TRUE
		WHERE id = $5`,
		profile.Name, profile.MonthOfBirth, profile.YearOfBirth, profile.Goals, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// FindPracticeBySlug returns a single practice from the catalog.
func (s *Storage) FindPracticeBySlug(ctx context.Context, slug string) (*models.Practice, error) {
	const op = "storage.FindPracticeBySlug"

	var p models.Practice
	var journeySlug *string
	err := s.db.QueryRow(ctx, `
		SELECT slug, title, description, playback_id, is_premium, journey_slug, position
		FROM practices WHERE slug = $1`, slug).
		Scan(&p.Slug, &p.Title, &p.Description, &p.PlaybackID, &p.IsPremium, &journeySlug, &p.Position)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrPracticeNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if journeySlug != nil {
		p.JourneySlug = *journeySlug
	}
	return &p, nil
}

// ListPractices returns the catalog, premium flags included, so listings can
// badge locked content without loading playback data.
func (s *Storage) ListPractices(ctx context.Context) ([]*models.Practice, error) {
	const op = "storage.ListPractices"

	rows, err := s.db.Query(ctx, `
		SELECT slug, title, description, playback_id, is_premium, journey_slug, position
		FROM practices ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	practices, err := scanPractices(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return practices, nil
}

// ListPracticesByJourney returns a journey's schedule in editorial order.
func (s *Storage) ListPracticesByJourney(ctx context.Context, journeySlug string) ([]*models.Practice, error) {
	const op = "storage.ListPracticesByJourney"

	rows, err := s.db.Query(ctx, `
		SELECT slug, title, description, playback_id, is_premium, journey_slug, position
		FROM practices WHERE journey_slug = $1 ORDER BY position, slug`, journeySlug)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	practices, err := scanPractices(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return practices, nil
}

func scanPractices(rows pgx.Rows) ([]*models.Practice, error) {
	var result []*models.Practice
	for rows.Next() {
		var p models.Practice
		var journeySlug *string
		if err := rows.Scan(&p.Slug, &p.Title, &p.Description, &p.PlaybackID, &p.IsPremium, &journeySlug, &p.Position); err != nil {
			return nil, err
		}
		if journeySlug != nil {
			p.JourneySlug = *journeySlug
		}
		result = append(result, &p)
	}
	return result, rows.Err()
}

// ListJourneys returns all journeys.
func (s *Storage) ListJourneys(ctx context.Context) ([]*models.Journey, error) {
	const op = "storage.ListJourneys"

	rows, err := s.db.Query(ctx, `
		SELECT slug, title, description, is_premium FROM journeys ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.Journey
	for rows.Next() {
		var j models.Journey
		if err := rows.Scan(&j.Slug, &j.Title, &j.Description, &j.IsPremium); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// FindJourneyBySlug returns a single journey.
func (s *Storage) FindJourneyBySlug(ctx context.Context, slug string) (*models.Journey, error) {
	const op = "storage.FindJourneyBySlug"

	var j models.Journey
	err := s.db.QueryRow(ctx, `
		SELECT slug, title, description, is_premium FROM journeys WHERE slug = $1`, slug).
		Scan(&j.Slug, &j.Title, &j.Description, &j.IsPremium)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrJourneyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &j, nil
}

// ListCompletedPractices returns the slugs of the practices a user has
// completed within a journey.
func (s *Storage) ListCompletedPractices(ctx context.Context, userID, journeySlug string) ([]string, error) {
	const op = "storage.ListCompletedPractices"

	rows, err := s.db.Query(ctx, `
		SELECT practice_slug FROM practice_completions
		WHERE user_id = $1 AND journey_slug = $2
		ORDER BY practice_slug`, userID, journeySlug)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, slug)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// TogglePracticeComplete flips a practice's completion mark for a user and
// reports the resulting state. Each branch is a single conditional statement
// rather than a fetch-then-patch, so concurrent toggles cannot corrupt the
// mark: the insert is append-if-absent on the primary key, the delete is
// remove-if-present.
func (s *Storage) TogglePracticeComplete(ctx context.Context, userID, journeySlug, practiceSlug string) (bool, error) {
	const op = "storage.TogglePracticeComplete"

	tag, err := s.db.Exec(ctx, `
		DELETE FROM practice_completions
		WHERE user_id = $1 AND practice_slug = $2`, userID, practiceSlug)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO practice_completions (user_id, journey_slug, practice_slug)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, practice_slug) DO NOTHING`, userID, journeySlug, practiceSlug)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}
