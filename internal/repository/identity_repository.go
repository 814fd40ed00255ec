package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/githubpalak/gas-utility-portal/internal/domain"
)

// IdentityFilter narrows identity listings.
type IdentityFilter struct {
	Roles  []domain.Role
	IDs    []string
	Search string
	Limit  int
	Offset int
}

// IdentityRepository persists customers and staff accounts.
type IdentityRepository interface {
	Create(ctx context.Context, identity *domain.Identity) error
	// UpdateProfile writes profile fields only, leaving role and password untouched.
	UpdateProfile(ctx context.Context, identity *domain.Identity) error
	UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error
	UpdateRole(ctx context.Context, id string, role domain.Role, at time.Time) error
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByUsername(ctx context.Context, username string) (*domain.Identity, error)
	List(ctx context.Context, filter IdentityFilter) ([]domain.Identity, error)
	Count(ctx context.Context, filter IdentityFilter) (int, error)
}

type identityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository returns a Postgres-backed implementation.
func NewIdentityRepository(pool *pgxpool.Pool) IdentityRepository {
	return &identityRepository{pool: pool}
}

const identityColumns = `id, username, email, first_name, last_name, role, phone_number, address,
       customer_number, meter_id, service_address, department, employee_id, password_hash,
       created_at, updated_at`

func (r *identityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	const query = `
        INSERT INTO identities (username, email, first_name, last_name, role, phone_number, address,
            customer_number, meter_id, service_address, department, employee_id, password_hash,
            created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		identity.Username,
		identity.Email,
		identity.FirstName,
		identity.LastName,
		identity.Role,
		identity.PhoneNumber,
		identity.Address,
		identity.CustomerNumber,
		identity.MeterID,
		identity.ServiceAddress,
		identity.Department,
		identity.EmployeeID,
		identity.PasswordHash,
		identity.CreatedAt,
		identity.UpdatedAt,
	).Scan(&identity.ID)
	return normalize(err)
}

func (r *identityRepository) UpdateProfile(ctx context.Context, identity *domain.Identity) error {
	const query = `
        UPDATE identities SET email=$1, first_name=$2, last_name=$3, phone_number=$4,
            address=$5, customer_number=$6, meter_id=$7, service_address=$8, department=$9,
            employee_id=$10, updated_at=$11
        WHERE id=$12`
	return r.exec(ctx, query,
		identity.Email,
		identity.FirstName,
		identity.LastName,
		identity.PhoneNumber,
		identity.Address,
		identity.CustomerNumber,
		identity.MeterID,
		identity.ServiceAddress,
		identity.Department,
		identity.EmployeeID,
		identity.UpdatedAt,
		identity.ID,
	)
}

func (r *identityRepository) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	return r.exec(ctx, `UPDATE identities SET password_hash=$1, updated_at=$2 WHERE id=$3`, passwordHash, at, id)
}

func (r *identityRepository) UpdateRole(ctx context.Context, id string, role domain.Role, at time.Time) error {
	return r.exec(ctx, `UPDATE identities SET role=$1, updated_at=$2 WHERE id=$3`, role, at, id)
}

func (r *identityRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return normalize(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *identityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.fetchSingle(ctx, `SELECT `+identityColumns+` FROM identities WHERE id=$1`, id)
}

func (r *identityRepository) GetByUsername(ctx context.Context, username string) (*domain.Identity, error) {
	return r.fetchSingle(ctx, `SELECT `+identityColumns+` FROM identities WHERE LOWER(username)=LOWER($1)`, username)
}

func (r *identityRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Identity, error) {
	identity, err := scanIdentity(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, normalize(err)
	}
	return identity, nil
}

func (r *identityRepository) List(ctx context.Context, filter IdentityFilter) ([]domain.Identity, error) {
	where, args := identityWhere(filter)
	query := `SELECT ` + identityColumns + ` FROM identities WHERE ` + where +
		` ORDER BY username` + pageClause(filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, normalize(err)
	}
	defer rows.Close()

	var result []domain.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *identity)
	}
	return result, normalize(rows.Err())
}

func (r *identityRepository) Count(ctx context.Context, filter IdentityFilter) (int, error) {
	where, args := identityWhere(filter)
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM identities WHERE `+where, args...).Scan(&count); err != nil {
		return 0, normalize(err)
	}
	return count, nil
}

func identityWhere(filter IdentityFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Roles) > 0 {
		roles := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			roles[i] = string(role)
		}
		args = append(args, roles)
		clauses = append(clauses, fmt.Sprintf("role = ANY($%d)", len(args)))
	}
	if len(filter.IDs) > 0 {
		args = append(args, filter.IDs)
		clauses = append(clauses, fmt.Sprintf("id::text = ANY($%d)", len(args)))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, containsPattern(term))
		clauses = append(clauses, likeAny(fmt.Sprintf("$%d", len(args)),
			"username", "email", "first_name", "last_name", "COALESCE(customer_number,'')"))
	}
	return strings.Join(clauses, " AND "), args
}

func scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var identity domain.Identity
	if err := row.Scan(
		&identity.ID,
		&identity.Username,
		&identity.Email,
		&identity.FirstName,
		&identity.LastName,
		&identity.Role,
		&identity.PhoneNumber,
		&identity.Address,
		&identity.CustomerNumber,
		&identity.MeterID,
		&identity.ServiceAddress,
		&identity.Department,
		&identity.EmployeeID,
		&identity.PasswordHash,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &identity, nil
}
