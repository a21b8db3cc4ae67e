package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/vladislavdragonenkov/printshop/internal/domain"
)

// addressLockNamespace отделяет ключи advisory lock адресной книги от прочих блокировок.
const addressLockNamespace int64 = 0x41 << 48

const addressColumns = `id, user_id, address, number, complement, neighborhood, city, state, zipcode, is_default, created_at`

// AddressRepository - PostgreSQL-реализация адресной книги.
// Все изменения одного пользователя сериализуются через pg_advisory_xact_lock,
// уникальный частичный индекс addresses(user_id) WHERE is_default страхует на уровне схемы.
type AddressRepository struct {
	db DBTX
}

// NewAddressRepository создаёт PostgreSQL-реализацию AddressRepository.
func NewAddressRepository(db DBTX) *AddressRepository {
	return &AddressRepository{db: db}
}

func addressLockKey(userID int64) int64 {
	return addressLockNamespace | (userID & (1<<48 - 1))
}

func lockUserAddresses(ctx context.Context, tx pgx.Tx, userID int64) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, addressLockKey(userID)); err != nil {
		return domain.NewStoreError("lock user addresses", err)
	}
	return nil
}

func scanAddress(row pgx.Row) (domain.Address, error) {
	var a domain.Address
	err := row.Scan(
		&a.ID, &a.UserID, &a.Address, &a.Number, &a.Complement, &a.Neighborhood,
		&a.City, &a.State, &a.Zipcode, &a.IsDefault, &a.CreatedAt,
	)
	return a, err
}

func (r *AddressRepository) ListForUser(ctx context.Context, userID int64) ([]domain.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+addressColumns+`
		FROM addresses
		WHERE user_id = $1
		ORDER BY is_default DESC, id ASC
	`, userID)
	if err != nil {
		return nil, domain.NewStoreError("list addresses", err)
	}
	defer rows.Close()

	result := make([]domain.Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, domain.NewStoreError("scan address", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate addresses", err)
	}
	return result, nil
}

func (r *AddressRepository) GetDefault(ctx context.Context, userID int64) (*domain.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.findOne(ctx, "select default address", `
		SELECT `+addressColumns+`
		FROM addresses
		WHERE user_id = $1 AND is_default
		LIMIT 1
	`, userID)
}

func (r *AddressRepository) Get(ctx context.Context, addressID int64) (*domain.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.findOne(ctx, "select address", `
		SELECT `+addressColumns+`
		FROM addresses
		WHERE id = $1
	`, addressID)
}

func (r *AddressRepository) findOne(ctx context.Context, op, query string, args ...any) (*domain.Address, error) {
	a, err := scanAddress(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, domain.NewStoreError(op, err)
	}
	return &a, nil
}

// Add вставляет адрес. Первый адрес пользователя всегда становится адресом по умолчанию;
// при IsDefault=true прочие флаги снимаются до вставки в той же транзакции.
func (r *AddressRepository) Add(ctx context.Context, userID int64, fields domain.AddressFields) (int64, error) {
	if userID <= 0 {
		return 0, domain.ErrUserRequired
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var id int64
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockUserAddresses(ctx, tx, userID); err != nil {
			return err
		}

		var hasAny bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM addresses WHERE user_id = $1)`, userID,
		).Scan(&hasAny); err != nil {
			return domain.NewStoreError("check existing addresses", err)
		}

		makeDefault := fields.IsDefault || !hasAny
		if makeDefault && hasAny {
			if _, err := tx.Exec(ctx,
				`UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`, userID,
			); err != nil {
				return domain.NewStoreError("clear default address", err)
			}
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO addresses (
				user_id, address, number, complement, neighborhood, city, state, zipcode, is_default
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			RETURNING id
		`,
			userID, fields.Address, fields.Number, fields.Complement, fields.Neighborhood,
			fields.City, fields.State, fields.Zipcode, makeDefault,
		).Scan(&id); err != nil {
			return domain.NewStoreError("insert address", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SetDefault атомарно делает адрес адресом по умолчанию.
// Чужой или отсутствующий адрес отклоняется до изменения каких-либо флагов.
func (r *AddressRepository) SetDefault(ctx context.Context, addressID, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockUserAddresses(ctx, tx, userID); err != nil {
			return err
		}

		var ownerID int64
		err := tx.QueryRow(ctx, `SELECT user_id FROM addresses WHERE id = $1`, addressID).Scan(&ownerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrAddressNotOwned
			}
			return domain.NewStoreError("select address owner", err)
		}
		if ownerID != userID {
			return domain.ErrAddressNotOwned
		}

		return switchDefault(ctx, tx, addressID, userID)
	})
}

// switchDefault снимает флаг с остальных адресов и ставит его на addressID.
// Два отдельных UPDATE: уникальный индекс проверяется построчно, снятие должно идти первым.
func switchDefault(ctx context.Context, tx pgx.Tx, addressID, userID int64) error {
	if _, err := tx.Exec(ctx, `
		UPDATE addresses SET is_default = FALSE
		WHERE user_id = $1 AND is_default AND id <> $2
	`, userID, addressID); err != nil {
		return domain.NewStoreError("clear default address", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE addresses SET is_default = TRUE WHERE id = $1`, addressID,
	); err != nil {
		return domain.NewStoreError("set default address", err)
	}
	return nil
}

// Update частично обновляет адрес. IsDefault=true снимает флаг с прочих адресов владельца;
// IsDefault=false для текущего адреса по умолчанию игнорируется.
func (r *AddressRepository) Update(ctx context.Context, addressID int64, update domain.AddressUpdate) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		var userID int64
		err := tx.QueryRow(ctx, `SELECT user_id FROM addresses WHERE id = $1`, addressID).Scan(&userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrAddressNotFound
			}
			return domain.NewStoreError("select address owner", err)
		}
		if err := lockUserAddresses(ctx, tx, userID); err != nil {
			return err
		}

		promote := update.PromoteToDefault()
		if promote {
			if _, err := tx.Exec(ctx, `
				UPDATE addresses SET is_default = FALSE
				WHERE user_id = $1 AND is_default AND id <> $2
			`, userID, addressID); err != nil {
				return domain.NewStoreError("clear default address", err)
			}
		}

		tag, err := tx.Exec(ctx, `
			UPDATE addresses SET
				address = COALESCE($2, address),
				number = COALESCE($3, number),
				complement = COALESCE($4, complement),
				neighborhood = COALESCE($5, neighborhood),
				city = COALESCE($6, city),
				state = COALESCE($7, state),
				zipcode = COALESCE($8, zipcode),
				is_default = is_default OR $9
			WHERE id = $1
		`,
			addressID, update.Address, update.Number, update.Complement, update.Neighborhood,
			update.City, update.State, update.Zipcode, promote,
		)
		if err != nil {
			return domain.NewStoreError("update address", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrAddressNotFound
		}
		return nil
	})
}

// Delete удаляет адрес пользователя. Если удалён адрес по умолчанию,
// флаг переходит к самому старому из оставшихся.
func (r *AddressRepository) Delete(ctx context.Context, addressID, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockUserAddresses(ctx, tx, userID); err != nil {
			return err
		}

		var wasDefault bool
		err := tx.QueryRow(ctx,
			`DELETE FROM addresses WHERE id = $1 AND user_id = $2 RETURNING is_default`,
			addressID, userID,
		).Scan(&wasDefault)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrAddressNotFound
			}
			return domain.NewStoreError("delete address", err)
		}
		if !wasDefault {
			return nil
		}

		if _, err := tx.Exec(ctx, `
			UPDATE addresses SET is_default = TRUE
			WHERE id = (SELECT id FROM addresses WHERE user_id = $1 ORDER BY id ASC LIMIT 1)
		`, userID); err != nil {
			return domain.NewStoreError("promote default address", err)
		}
		return nil
	})
}

func (r *AddressRepository) DeleteAllForUser(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if err := lockUserAddresses(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM addresses WHERE user_id = $1`, userID); err != nil {
			return domain.NewStoreError(fmt.Sprintf("delete addresses of user %d", userID), err)
		}
		return nil
	})
}

var _ domain.AddressRepository = (*AddressRepository)(nil)
