package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-conf-sync/internal/logger"
	"github.com/MKhiriev/go-conf-sync/models"
)

// userRepository is the SQL-backed implementation of [UserRepository].
// It handles account creation and lookup against the "users" table.
//
// All methods obtain a context-scoped logger via [logger.FromContext] for
// structured, request-level tracing of database interactions.
type userRepository struct {
	logger *logger.Logger
	db     *DB
	now    func() time.Time
}

// NewUserRepository constructs a [UserRepository] backed by the provided
// database connection and logger.
func NewUserRepository(db *DB, logger *logger.Logger) UserRepository {
	logger.Debug().Msg("creating user repository")
	return &userRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// GetOrCreateUser inserts the account if it does not exist yet and reads the
// stored row back, so concurrent first requests for the same user all see
// the same CreatedAt.
func (r *userRepository) GetOrCreateUser(ctx context.Context, userID string) (models.User, error) {
	log := logger.FromContext(ctx)
	b := r.db.builder()

	query, args, err := buildInsertUserQuery(b, models.User{UserID: userID, CreatedAt: r.now().UTC()})
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}
	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		log.Err(err).Str("func", "*userRepository.GetOrCreateUser").Msg("error inserting user")
		return models.User{}, r.db.wrap(ErrExecutingStatement, err)
	}

	query, args, err = buildSelectUserQuery(b, userID)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var user models.User
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&user.UserID, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNoUserWasFound
	}
	if err != nil {
		log.Err(err).Str("func", "*userRepository.GetOrCreateUser").Msg("error: scanning error")
		return models.User{}, r.db.wrap(ErrScanningRow, err)
	}

	return user, nil
}
