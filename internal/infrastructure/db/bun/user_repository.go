package bun

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/homeowner/portal/internal/core/audit"
	"github.com/homeowner/portal/internal/core/domain"
	"github.com/homeowner/portal/internal/infrastructure/db/bun/models"
)

type UserRepository struct {
	db bun.IDB
}

func NewUserRepository(db bun.IDB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	row := models.UserFromDomain(user)
	if _, err := r.db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.CreatedAt, user.CreatedBy = row.CreatedAt, row.CreatedBy
	user.ModifiedAt, user.ModifiedBy = row.ModifiedAt, row.ModifiedBy
	return nil
}

// Update writes every column except the creation audit pair.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	row := models.UserFromDomain(user)
	res, err := r.db.NewUpdate().
		Model(row).
		ExcludeColumn("created_at", "created_by").
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrUserNotFound
	}
	user.ModifiedAt, user.ModifiedBy = row.ModifiedAt, row.ModifiedBy
	return nil
}

// RecordAccessFailure increments the counter in SQL rather than writing back
// a value read earlier, so parallel failed sign-ins are not lost.
func (r *UserRepository) RecordAccessFailure(ctx context.Context, id string) (int, error) {
	res, err := r.db.NewUpdate().
		TableExpr("users").
		Set("access_failed_count = access_failed_count + 1").
		Set("modified_at = ?", audit.Now(ctx)).
		Set("modified_by = ?", audit.Actor(ctx)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("record access failure: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return 0, domain.ErrUserNotFound
	}

	var count int
	if err := r.db.NewSelect().
		TableExpr("users").
		ColumnExpr("access_failed_count").
		Where("id = ?", id).
		Scan(ctx, &count); err != nil {
		return 0, fmt.Errorf("read access failures: %w", err)
	}
	return count, nil
}

func (r *UserRepository) LockOut(ctx context.Context, id string, until time.Time) error {
	res, err := r.db.NewUpdate().
		TableExpr("users").
		Set("lockout_end = ?", until).
		Set("access_failed_count = 0").
		Set("modified_at = ?", audit.Now(ctx)).
		Set("modified_by = ?", audit.Actor(ctx)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("lock out user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.NewDelete().
		Model((*models.User)(nil)).
		Where("id = ?", id).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "u.id = ?", id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "u.email = ?", domain.NormalizeEmail(email))
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg interface{}) (*domain.User, error) {
	row := new(models.User)
	err := r.db.NewSelect().
		Model(row).
		Where(where, arg).
		Where("u.is_active = ?", true).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return row.ToDomain(), nil
}

// EmailExists also matches deactivated users and usernames.
func (r *UserRepository) EmailExists(ctx context.Context, email, excludeID string) (bool, error) {
	email = domain.NormalizeEmail(email)
	q := r.db.NewSelect().
		Model((*models.User)(nil)).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("u.email = ?", email).WhereOr("u.username = ?", email)
		})
	if excludeID != "" {
		q = q.Where("u.id <> ?", excludeID)
	}
	exists, err := q.Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) ListActive(ctx context.Context) ([]domain.User, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery { return q })
}

func (r *UserRepository) ListActiveInRole(ctx context.Context, role string) ([]domain.User, error) {
	return r.list(ctx, func(q *bun.SelectQuery) *bun.SelectQuery { return inRole(q, role) })
}

func (r *UserRepository) CountActive(ctx context.Context) (int, error) {
	n, err := r.active((*models.User)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) CountActiveInRole(ctx context.Context, role string) (int, error) {
	n, err := inRole(r.active((*models.User)(nil)), role).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users in role: %w", err)
	}
	return n, nil
}

func (r *UserRepository) active(model interface{}) *bun.SelectQuery {
	return r.db.NewSelect().Model(model).Where("u.is_active = ?", true)
}

func inRole(q *bun.SelectQuery, role string) *bun.SelectQuery {
	return q.
		Join("JOIN user_roles AS ur ON ur.user_id = u.id").
		Join("JOIN roles AS r ON r.id = ur.role_id").
		Where("r.name = ?", role)
}

func (r *UserRepository) list(ctx context.Context, filter func(*bun.SelectQuery) *bun.SelectQuery) ([]domain.User, error) {
	var rows []models.User
	if err := filter(r.active(&rows)).
		Order("u.last_name ASC", "u.first_name ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]domain.User, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}
