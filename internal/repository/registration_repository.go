package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/SiPilip/gathering-api/internal/models"
	"github.com/SiPilip/gathering-api/pkg/database"
)

const registrationColumns = `id, type, representative_name, phone_number, age_category, total_fee, total_paid, status, registration_source, cancelled_at, created_at, updated_at`

// RegistrationRepository handles persistence of registrations and their family members.
type RegistrationRepository struct {
	db *sqlx.DB
	tx *database.Transactor
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db, tx: database.NewTransactor(db)}
}

// Create inserts a registration together with its family members.
func (r *RegistrationRepository) Create(ctx context.Context, detail *models.RegistrationDetail) error {
	reg := &detail.Registration
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = now
	}
	reg.UpdatedAt = reg.CreatedAt
	if reg.Status == "" {
		reg.Status = models.StatusPending
	}
	for i := range detail.FamilyMembers {
		member := &detail.FamilyMembers[i]
		if member.ID == "" {
			member.ID = uuid.NewString()
		}
		member.RegistrationID = reg.ID
		if member.CreatedAt.IsZero() {
			member.CreatedAt = reg.CreatedAt
		}
	}

	return r.tx.RunInTx(ctx, func(ctx context.Context) error {
		conn := database.Conn(ctx, r.db)
		const insertRegistration = `INSERT INTO registrations (id, type, representative_name, phone_number, age_category, total_fee, total_paid, status, registration_source, cancelled_at, created_at, updated_at)
        VALUES (:id, :type, :representative_name, :phone_number, :age_category, :total_fee, :total_paid, :status, :registration_source, :cancelled_at, :created_at, :updated_at)`
		if _, err := conn.NamedExecContext(ctx, insertRegistration, reg); err != nil {
			return fmt.Errorf("create registration: %w", err)
		}
		const insertMember = `INSERT INTO family_members (id, registration_id, member_name, age_category, created_at)
        VALUES (:id, :registration_id, :member_name, :age_category, :created_at)`
		for i := range detail.FamilyMembers {
			if _, err := conn.NamedExecContext(ctx, insertMember, &detail.FamilyMembers[i]); err != nil {
				return fmt.Errorf("create family member: %w", err)
			}
		}
		return nil
	})
}

// FindByID returns a registration by its ID.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	var reg models.Registration
	if err := database.Conn(ctx, r.db).GetContext(ctx, &reg, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return &reg, nil
}

// FindByIDForUpdate loads a registration and locks its row until the
// surrounding transaction ends.
func (r *RegistrationRepository) FindByIDForUpdate(ctx context.Context, id string) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1 FOR UPDATE`
	var reg models.Registration
	if err := database.Conn(ctx, r.db).GetContext(ctx, &reg, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock registration: %w", err)
	}
	return &reg, nil
}

// FindDetailByID returns a registration with its family members.
func (r *RegistrationRepository) FindDetailByID(ctx context.Context, id string) (*models.RegistrationDetail, error) {
	reg, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	members, err := r.ListFamilyMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.RegistrationDetail{Registration: *reg, FamilyMembers: members}, nil
}

// ListFamilyMembers returns members of a registration in insertion order.
func (r *RegistrationRepository) ListFamilyMembers(ctx context.Context, registrationID string) ([]models.FamilyMember, error) {
	const query = `SELECT id, registration_id, member_name, age_category, created_at FROM family_members WHERE registration_id = $1 ORDER BY created_at, id`
	members := []models.FamilyMember{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &members, query, registrationID); err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	return members, nil
}

// List returns registrations matching the filter along with the total count.
// Search matches the representative name, phone number or any family member name.
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error) {
	var conditions []string
	var args []interface{}

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+strings.ToLower(search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(`(LOWER(r.representative_name) LIKE $%d OR r.phone_number LIKE $%d OR EXISTS (SELECT 1 FROM family_members fm WHERE fm.registration_id = r.id AND LOWER(fm.member_name) LIKE $%d))`, n, n, n))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("r.type = $%d", len(args)))
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at":          "r.created_at",
		"representative_name": "r.representative_name",
		"total_paid":          "r.total_paid",
		"status":              "r.status",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "r.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	conn := database.Conn(ctx, r.db)
	query := fmt.Sprintf(`SELECT r.id, r.type, r.representative_name, r.phone_number, r.age_category, r.total_fee, r.total_paid, r.status, r.registration_source, r.cancelled_at, r.created_at, r.updated_at
        FROM registrations r%s ORDER BY %s %s LIMIT %d OFFSET %d`, clause, orderBy, order, size, offset)
	var regs []models.Registration
	if err := conn.SelectContext(ctx, &regs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM registrations r%s", clause)
	if err := conn.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}

	details := make([]models.RegistrationDetail, len(regs))
	if len(regs) == 0 {
		return details, total, nil
	}
	ids := make([]string, len(regs))
	index := make(map[string]int, len(regs))
	for i, reg := range regs {
		ids[i] = reg.ID
		index[reg.ID] = i
		details[i] = models.RegistrationDetail{Registration: reg, FamilyMembers: []models.FamilyMember{}}
	}

	const membersQuery = `SELECT id, registration_id, member_name, age_category, created_at FROM family_members WHERE registration_id = ANY($1) ORDER BY created_at, id`
	var members []models.FamilyMember
	if err := conn.SelectContext(ctx, &members, membersQuery, pq.Array(ids)); err != nil {
		return nil, 0, fmt.Errorf("list family members: %w", err)
	}
	for _, member := range members {
		if i, ok := index[member.RegistrationID]; ok {
			details[i].FamilyMembers = append(details[i].FamilyMembers, member)
		}
	}
	return details, total, nil
}

// UpdateBalance writes the recalculated paid total and status.
func (r *RegistrationRepository) UpdateBalance(ctx context.Context, id string, totalPaid int64, status models.RegistrationStatus) error {
	const query = `UPDATE registrations SET total_paid = $2, status = $3, updated_at = $4 WHERE id = $1`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, totalPaid, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update registration balance: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Cancel marks a registration as cancelled. It returns false when the
// registration was already cancelled.
func (r *RegistrationRepository) Cancel(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `UPDATE registrations SET status = $2, cancelled_at = $3, updated_at = $3 WHERE id = $1 AND cancelled_at IS NULL`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, id, models.StatusCancelled, at)
	if err != nil {
		return false, fmt.Errorf("cancel registration: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel registration rows: %w", err)
	}
	return affected > 0, nil
}

// Totals aggregates fee and collected amounts for non-cancelled registrations.
func (r *RegistrationRepository) Totals(ctx context.Context) (*models.RegistrationTotals, error) {
	const query = `SELECT COUNT(*) AS total_registrants, COALESCE(SUM(total_fee), 0) AS total_expected, COALESCE(SUM(total_paid), 0) AS total_collected
        FROM registrations WHERE status <> $1`
	var totals models.RegistrationTotals
	if err := database.Conn(ctx, r.db).GetContext(ctx, &totals, query, models.StatusCancelled); err != nil {
		return nil, fmt.Errorf("registration totals: %w", err)
	}
	return &totals, nil
}

// CountByStatus returns the number of registrations per status.
func (r *RegistrationRepository) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	const query = `SELECT status, COUNT(*) AS count FROM registrations GROUP BY status ORDER BY status`
	var counts []models.StatusCount
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("count registrations by status: %w", err)
	}
	return counts, nil
}
