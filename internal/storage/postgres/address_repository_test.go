package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

func sampleAddressFields(isDefault bool) domain.AddressFields {
	return domain.AddressFields{
		Address:      "Rua das Flores",
		Number:       "120",
		Complement:   "apto 3",
		Neighborhood: "Centro",
		City:         "Curitiba",
		State:        "PR",
		Zipcode:      "80010-000",
		IsDefault:    isDefault,
	}
}

func expectAddressLock(mock pgxmock.PgxPoolIface, userID int64) {
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(addressLockKey(userID)).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
}

func expectAddressInsert(mock pgxmock.PgxPoolIface, userID int64, f domain.AddressFields, isDefault bool, id int64) {
	mock.ExpectQuery("INSERT INTO addresses").
		WithArgs(userID, f.Address, f.Number, f.Complement, f.Neighborhood, f.City, f.State, f.Zipcode, isDefault).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(id))
}

func TestAddressRepository_Add_FirstAddressBecomesDefault(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAddressRepository(mock)
	fields := sampleAddressFields(false)

	mock.ExpectBegin()
	expectAddressLock(mock, 7)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	expectAddressInsert(mock, 7, fields, true, 1)
	mock.ExpectCommit()

	id, err := repo.Add(context.Background(), 7, fields)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_Add_DefaultClearsOthersBeforeInsert(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAddressRepository(mock)
	fields := sampleAddressFields(true)

	mock.ExpectBegin()
	expectAddressLock(mock, 7)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec("UPDATE addresses SET is_default = FALSE").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	expectAddressInsert(mock, 7, fields, true, 2)
	mock.ExpectCommit()

	id, err := repo.Add(context.Background(), 7, fields)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_Add_NonDefaultKeepsExistingDefault(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAddressRepository(mock)
	fields := sampleAddressFields(false)

	mock.ExpectBegin()
	expectAddressLock(mock, 7)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	expectAddressInsert(mock, 7, fields, false, 3)
	mock.ExpectCommit()

	_, err := repo.Add(context.Background(), 7, fields)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_Add_InsertFailureIsStoreError(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAddressRepository(mock)
	fields := sampleAddressFields(false)

	mock.ExpectBegin()
	expectAddressLock(mock, 7)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("INSERT INTO addresses").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := repo.Add(context.Background(), 7, fields)
	require.Error(t, err)
	assert.True(t, domain.IsStoreError(err))
	assert.Contains(t, err.Error(), "insert address")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_Add_RequiresUser(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAddressRepository(mock)

	_, err := repo.Add(context.Background(), 0, sampleAddressFields(true))
	assert.ErrorIs(t, err, domain.ErrUserRequired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_SetDefault(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAddressRepository(mock)

	mock.ExpectBegin()
	expectAddressLock(mock, 7)
	mock.ExpectQuery("SELECT user_id FROM addresses").
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(int64(7)))
	mock.ExpectExec("UPDATE addresses SET is_default = FALSE").
		WithArgs(int64(7), int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE addresses SET is_default = TRUE").
		WithArgs(int64(3)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SetDefault(context.Background(), 3, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_SetDefault_ForeignAddressRejectedBeforeClearing(t *testing.T) {
	tests := []struct {
		name string
		rows *pgxmock.Rows
	}{
		{name: "foreign", rows: pgxmock.NewRows([]string{"user_id"}).AddRow(int64(99))},
		{name: "missing", rows: pgxmock.NewRows([]string{"user_id"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockPool(t)
			repo := NewAddressRepository(mock)

			mock.ExpectBegin()
			expectAddressLock(mock, 7)
			mock.ExpectQuery("SELECT user_id FROM addresses").
				WithArgs(int64(3)).
				WillReturnRows(tt.rows)
			mock.ExpectRollback()

			err := repo.SetDefault(context.Background(), 3, 7)
			assert.ErrorIs(t, err, domain.ErrAddressNotOwned)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAddressRepository_Update_PromoteClearsOthers(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAddressRepository(mock)

	city := "Londrina"
	promote := true

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id FROM addresses").
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(int64(7)))
	expectAddressLock(mock, 7)
	mock.ExpectExec("UPDATE addresses SET is_default = FALSE").
		WithArgs(int64(7), int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE addresses SET\s+address = COALESCE`).
		WithArgs(int64(4), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := repo.Update(context.Background(), 4, domain.AddressUpdate{City: &city, IsDefault: &promote})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_Update_DemoteDoesNotClearFlag(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAddressRepository(mock)

	demote := false

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id FROM addresses").
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow(int64(7)))
	expectAddressLock(mock, 7)
	mock.ExpectExec(`UPDATE addresses SET\s+address = COALESCE`).
		WithArgs(int64(4), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), 4, domain.AddressUpdate{IsDefault: &demote}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_Update_NotFound(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAddressRepository(mock)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT user_id FROM addresses").
		WithArgs(int64(404)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), 404, domain.AddressUpdate{})
	assert.ErrorIs(t, err, domain.ErrAddressNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_Delete_PromotesOldestRemaining(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAddressRepository(mock)

	mock.ExpectBegin()
	expectAddressLock(mock, 7)
	mock.ExpectQuery("DELETE FROM addresses WHERE id").
		WithArgs(int64(1), int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"is_default"}).AddRow(true))
	mock.ExpectExec("UPDATE addresses SET is_default = TRUE").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 1, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_Delete_NonDefault(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAddressRepository(mock)

	mock.ExpectBegin()
	expectAddressLock(mock, 7)
	mock.ExpectQuery("DELETE FROM addresses WHERE id").
		WithArgs(int64(2), int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"is_default"}).AddRow(false))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), 2, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_DeleteAllForUser(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAddressRepository(mock)

	mock.ExpectBegin()
	expectAddressLock(mock, 7)
	mock.ExpectExec("DELETE FROM addresses WHERE user_id").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteAllForUser(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_ListForUser(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAddressRepository(mock)
	now := fixedNow()

	mock.ExpectQuery("SELECT .+ FROM addresses WHERE user_id = .+ ORDER BY is_default DESC, id ASC").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(addressRowColumns()).
			AddRow(int64(2), int64(7), "Av. Brasil", "10", "", "Centro", "Maringa", "PR", "87010-000", true, now).
			AddRow(int64(1), int64(7), "Rua A", "1", "", "Zona 1", "Maringa", "PR", "87010-001", false, now))

	list, err := repo.ListForUser(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].IsDefault)
	assert.Equal(t, int64(1), list[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_GetDefault_None(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAddressRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM addresses WHERE user_id = .+ AND is_default").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows(addressRowColumns()))

	got, err := repo.GetDefault(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressRepository_Get_StoreError(t *testing.T) {
	mock := newMockPool(t)
	repo := NewAddressRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM addresses WHERE id").
		WithArgs(int64(1)).
		WillReturnError(errors.New("timeout"))

	got, err := repo.Get(context.Background(), 1)
	assert.Nil(t, got)
	assert.True(t, domain.IsStoreError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
