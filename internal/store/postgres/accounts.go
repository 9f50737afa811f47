// Package postgres implements the repositories on a pgx pool.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rath-service/internal/accounts"
	"rath-service/internal/contact"
	"rath-service/pkg/db"
)

const accountColumns = `id::text, name, COALESCE(phone,''), COALESCE(email,''), role, status,
	address, license_number, vehicle_number, vehicle_type, documents, created_at, updated_at`

// AccountRepo stores accounts in the accounts table.
type AccountRepo struct {
	db *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{db: pool}
}

func scanAccount(row pgx.Row) (*accounts.Account, error) {
	var a accounts.Account
	err := row.Scan(&a.ID, &a.Name, &a.Phone, &a.Email, &a.Role, &a.Status,
		&a.Address, &a.LicenseNumber, &a.VehicleNumber, &a.VehicleType, &a.Documents,
		&a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, accounts.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) FindByContact(ctx context.Context, c contact.Contact) (*accounts.Account, error) {
	if c.IsZero() {
		return nil, accounts.ErrAccountNotFound
	}
	column := "phone"
	if c.Channel == contact.ChannelEmail {
		column = "email"
	}
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+column+`=$1`, c.Value))
}

func (r *AccountRepo) FindByID(ctx context.Context, id string) (*accounts.Account, error) {
	key, ok := parseID(id)
	if !ok {
		return nil, accounts.ErrAccountNotFound
	}
	return scanAccount(r.db.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id=$1`, key))
}

func (r *AccountRepo) Create(ctx context.Context, a *accounts.Account) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO accounts (id,name,phone,email,role,status,address,license_number,
		                       vehicle_number,vehicle_type,documents,created_at,updated_at)
		 VALUES ($1,$2,NULLIF($3,''),NULLIF($4,''),$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		a.ID, a.Name, a.Phone, a.Email, a.Role, a.Status, a.Address, a.LicenseNumber,
		a.VehicleNumber, a.VehicleType, documents(a), a.CreatedAt, a.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return accounts.ErrContactAlreadyInUse
	}
	return err
}

func (r *AccountRepo) Update(ctx context.Context, a *accounts.Account) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET name=$2, phone=NULLIF($3,''), email=NULLIF($4,''), role=$5, status=$6,
		        address=$7, license_number=$8, vehicle_number=$9, vehicle_type=$10,
		        documents=$11, updated_at=$12
		 WHERE id=$1`,
		a.ID, a.Name, a.Phone, a.Email, a.Role, a.Status, a.Address, a.LicenseNumber,
		a.VehicleNumber, a.VehicleType, documents(a), a.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return accounts.ErrContactAlreadyInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return accounts.ErrAccountNotFound
	}
	return nil
}

func documents(a *accounts.Account) map[string]string {
	if a.Documents == nil {
		return map[string]string{}
	}
	return a.Documents
}
