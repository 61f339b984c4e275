package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SiPilip/gathering-api/internal/models"
	"github.com/SiPilip/gathering-api/pkg/database"
)

var registrationRowColumns = []string{"id", "type", "representative_name", "phone_number", "age_category", "total_fee", "total_paid", "status", "registration_source", "cancelled_at", "created_at", "updated_at"}

func TestRegistrationRepositoryCreateWithMembers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO registrations").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO family_members").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO family_members").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	detail := &models.RegistrationDetail{
		Registration: models.Registration{Type: models.RegistrationTypeFamily, RepresentativeName: "Budi", PhoneNumber: "0812", TotalFee: 300000},
		FamilyMembers: []models.FamilyMember{
			{MemberName: "Ani", AgeCategory: models.AgeCategoryAdult},
			{MemberName: "Caca", AgeCategory: models.AgeCategoryChild},
		},
	}
	require.NoError(t, repo.Create(context.Background(), detail))
	assert.NotEmpty(t, detail.ID)
	assert.Equal(t, models.StatusPending, detail.Status)
	for _, member := range detail.FamilyMembers {
		assert.Equal(t, detail.ID, member.RegistrationID)
		assert.NotEmpty(t, member.ID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCreateRollsBackOnMemberFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO registrations").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO family_members").WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	detail := &models.RegistrationDetail{
		Registration:  models.Registration{Type: models.RegistrationTypeFamily, RepresentativeName: "Budi", PhoneNumber: "0812", TotalFee: 200000},
		FamilyMembers: []models.FamilyMember{{MemberName: "Ani", AgeCategory: models.AgeCategoryAdult}},
	}
	err := repo.Create(context.Background(), detail)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create family member")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM registrations WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryFindByIDForUpdateLocksRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM registrations WHERE id = $1 FOR UPDATE")).
		WithArgs("reg-1").
		WillReturnRows(sqlmock.NewRows(registrationRowColumns).
			AddRow("reg-1", "INDIVIDUAL", "Budi", "0812", "ADULT", 100000, 0, "PENDING", "SELF", nil, now, now))
	mock.ExpectCommit()

	err := database.NewTransactor(db).RunInTx(context.Background(), func(ctx context.Context) error {
		reg, err := repo.FindByIDForUpdate(ctx, "reg-1")
		if err != nil {
			return err
		}
		assert.Equal(t, int64(100000), reg.TotalFee)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryFindDetailByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM registrations WHERE id = $1")).
		WithArgs("reg-1").
		WillReturnRows(sqlmock.NewRows(registrationRowColumns).
			AddRow("reg-1", "FAMILY", "Budi", "0812", "ADULT", 200000, 50000, "PARTIAL_PAID", "ADMIN", nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM family_members WHERE registration_id = $1 ORDER BY created_at, id")).
		WithArgs("reg-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "registration_id", "member_name", "age_category", "created_at"}).
			AddRow("fm-1", "reg-1", "Ani", "ADULT", now))

	detail, err := repo.FindDetailByID(context.Background(), "reg-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartialPaid, detail.Status)
	assert.Equal(t, models.RegistrationSourceAdmin, detail.Source)
	require.Len(t, detail.FamilyMembers, 1)
	assert.Equal(t, "Ani", detail.FamilyMembers[0].MemberName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryListWithSearchAndStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM registrations r WHERE (LOWER(r.representative_name) LIKE $1 OR r.phone_number LIKE $1 OR EXISTS (SELECT 1 FROM family_members fm WHERE fm.registration_id = r.id AND LOWER(fm.member_name) LIKE $1)) AND r.status = $2 ORDER BY r.created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("%ani%", models.StatusPending).
		WillReturnRows(sqlmock.NewRows(registrationRowColumns).
			AddRow("reg-1", "FAMILY", "Budi", "0812", "ADULT", 200000, 0, "PENDING", "SELF", nil, now, now).
			AddRow("reg-2", "INDIVIDUAL", "Ani", "0813", "YOUTH", 100000, 0, "PENDING", "SELF", nil, now, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM registrations r WHERE")).
		WithArgs("%ani%", models.StatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM family_members WHERE registration_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "registration_id", "member_name", "age_category", "created_at"}).
			AddRow("fm-1", "reg-1", "Ani", "ADULT", now))

	items, total, err := repo.List(context.Background(), models.RegistrationFilter{Search: " Ani ", Status: models.StatusPending})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.Len(t, items[0].FamilyMembers, 1)
	assert.NotNil(t, items[1].FamilyMembers)
	assert.Empty(t, items[1].FamilyMembers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryListEmptySkipsMembers(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM registrations r ORDER BY r.total_paid ASC LIMIT 10 OFFSET 10")).
		WillReturnRows(sqlmock.NewRows(registrationRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM registrations r")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))

	items, total, err := repo.List(context.Background(), models.RegistrationFilter{Page: 2, PageSize: 10, SortBy: "total_paid", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 10, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryUpdateBalance(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET total_paid = $2, status = $3, updated_at = $4 WHERE id = $1")).
		WithArgs("reg-1", int64(150000), models.StatusFullyPaid, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET total_paid")).
		WithArgs("gone", int64(0), models.StatusPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateBalance(context.Background(), "reg-1", 150000, models.StatusFullyPaid))
	assert.ErrorIs(t, repo.UpdateBalance(context.Background(), "gone", 0, models.StatusPending), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCancelIsIdempotent(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET status = $2, cancelled_at = $3, updated_at = $3 WHERE id = $1 AND cancelled_at IS NULL")).
		WithArgs("reg-1", models.StatusCancelled, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET status = $2")).
		WithArgs("reg-1", models.StatusCancelled, at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.Cancel(context.Background(), "reg-1", at)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Cancel(context.Background(), "reg-1", at)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryTotalsAndCounts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM registrations WHERE status <> $1")).
		WithArgs(models.StatusCancelled).
		WillReturnRows(sqlmock.NewRows([]string{"total_registrants", "total_expected", "total_collected"}).AddRow(3, 500000, 250000))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS count FROM registrations GROUP BY status ORDER BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("CANCELLED", 1).
			AddRow("PENDING", 2))

	totals, err := repo.Totals(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, totals.TotalRegistrants)
	assert.Equal(t, int64(250000), totals.TotalCollected)

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, models.StatusCancelled, counts[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
