package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/githubpalak/gas-utility-portal/internal/domain"
)

// ServiceRequestFilter captures listing parameters. Empty fields do not filter.
type ServiceRequestFilter struct {
	CustomerID   string
	AssignedToID string
	Unassigned   bool
	CategoryID   string
	Statuses     []domain.RequestStatus
	Priorities   []domain.RequestPriority
	Search       string
	// OrderBy is one of OrderFields, optionally prefixed with "-" for descending.
	OrderBy string
	Limit   int
	Offset  int
}

// OrderFields lists the sortable request columns.
var OrderFields = []string{"created_at", "updated_at", "status", "priority"}

// DefaultOrder is applied when OrderBy is empty or unknown.
const DefaultOrder = "-created_at"

// MutateFunc edits req in place and optionally returns a history entry to be
// appended in the same transaction. Returning an error aborts the mutation.
type MutateFunc func(req *domain.ServiceRequest) (*domain.StatusHistoryEntry, error)

// ServiceRequestRepository encapsulates service request persistence.
type ServiceRequestRepository interface {
	Create(ctx context.Context, req *domain.ServiceRequest) error
	Update(ctx context.Context, req *domain.ServiceRequest) error
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	List(ctx context.Context, filter ServiceRequestFilter) ([]domain.ServiceRequest, error)
	Count(ctx context.Context, filter ServiceRequestFilter) (int, error)
	// Mutate runs fn against the current row while holding a lock on it, then
	// persists the row and the returned history entry atomically.
	Mutate(ctx context.Context, id string, fn MutateFunc) (*domain.ServiceRequest, error)
}

type serviceRequestRepository struct {
	pool *pgxpool.Pool
}

// NewServiceRequestRepository instantiates repository.
func NewServiceRequestRepository(pool *pgxpool.Pool) ServiceRequestRepository {
	return &serviceRequestRepository{pool: pool}
}

const requestColumns = `id, request_id, customer_id, category_id, title, description, status, priority,
       assigned_to_id, service_address, meter_id, created_at, updated_at, completed_at`

func (r *serviceRequestRepository) Create(ctx context.Context, req *domain.ServiceRequest) error {
	const query = `
        INSERT INTO service_requests (request_id, customer_id, category_id, title, description, status,
            priority, assigned_to_id, service_address, meter_id, created_at, updated_at, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		req.RequestID,
		req.CustomerID,
		req.CategoryID,
		req.Title,
		req.Description,
		req.Status,
		req.Priority,
		req.AssignedToID,
		req.ServiceAddress,
		req.MeterID,
		req.CreatedAt,
		req.UpdatedAt,
		req.CompletedAt,
	).Scan(&req.ID)
	return normalize(err)
}

func (r *serviceRequestRepository) Update(ctx context.Context, req *domain.ServiceRequest) error {
	return writeRequest(ctx, r.pool, req)
}

func writeRequest(ctx context.Context, q querier, req *domain.ServiceRequest) error {
	const query = `
        UPDATE service_requests SET category_id=$1, title=$2, description=$3, status=$4, priority=$5,
            assigned_to_id=$6, service_address=$7, meter_id=$8, updated_at=$9, completed_at=$10
        WHERE id=$11`
	cmd, err := q.Exec(ctx, query,
		req.CategoryID,
		req.Title,
		req.Description,
		req.Status,
		req.Priority,
		req.AssignedToID,
		req.ServiceAddress,
		req.MeterID,
		req.UpdatedAt,
		req.CompletedAt,
		req.ID,
	)
	if err != nil {
		return normalize(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *serviceRequestRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	req, err := scanRequest(r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM service_requests WHERE id=$1`, id))
	if err != nil {
		return nil, normalize(err)
	}
	return req, nil
}

func (r *serviceRequestRepository) Mutate(ctx context.Context, id string, fn MutateFunc) (*domain.ServiceRequest, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	req, err := scanRequest(tx.QueryRow(ctx, `SELECT `+requestColumns+` FROM service_requests WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, normalize(err)
	}

	entry, err := fn(req)
	if err != nil {
		return nil, err
	}
	if err := writeRequest(ctx, tx, req); err != nil {
		return nil, err
	}
	if entry != nil {
		entry.RequestID = req.ID
		if err := insertHistory(ctx, tx, entry); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *serviceRequestRepository) List(ctx context.Context, filter ServiceRequestFilter) ([]domain.ServiceRequest, error) {
	where, args := requestWhere(filter)
	query := fmt.Sprintf(`SELECT %s FROM service_requests WHERE %s ORDER BY %s%s`,
		requestColumns, where, orderClause(filter.OrderBy), pageClause(filter.Limit, filter.Offset))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, normalize(err)
	}
	defer rows.Close()

	var result []domain.ServiceRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, normalize(rows.Err())
}

func (r *serviceRequestRepository) Count(ctx context.Context, filter ServiceRequestFilter) (int, error) {
	where, args := requestWhere(filter)
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM service_requests WHERE `+where, args...).Scan(&count); err != nil {
		if errors.Is(normalize(err), pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

func requestWhere(filter ServiceRequestFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id::text=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "assigned_to_id IS NULL")
	} else if filter.AssignedToID != "" {
		args = append(args, filter.AssignedToID)
		clauses = append(clauses, fmt.Sprintf("assigned_to_id::text=$%d", len(args)))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id::text=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		args = append(args, containsPattern(term))
		clauses = append(clauses, likeAny(fmt.Sprintf("$%d", len(args)),
			"title", "description", "request_id", "COALESCE(service_address,'')"))
	}
	return strings.Join(clauses, " AND "), args
}

// NormalizeOrder returns order if it names a sortable field, else DefaultOrder.
func NormalizeOrder(order string) string {
	field := strings.TrimPrefix(order, "-")
	for _, f := range OrderFields {
		if f == field {
			return order
		}
	}
	return DefaultOrder
}

func orderClause(order string) string {
	order = NormalizeOrder(order)
	dir := "ASC"
	if strings.HasPrefix(order, "-") {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, id %s", strings.TrimPrefix(order, "-"), dir, dir)
}

func scanRequest(row pgx.Row) (*domain.ServiceRequest, error) {
	var req domain.ServiceRequest
	if err := row.Scan(
		&req.ID,
		&req.RequestID,
		&req.CustomerID,
		&req.CategoryID,
		&req.Title,
		&req.Description,
		&req.Status,
		&req.Priority,
		&req.AssignedToID,
		&req.ServiceAddress,
		&req.MeterID,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.CompletedAt,
	); err != nil {
		return nil, err
	}
	return &req, nil
}
