package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pkordes/taxi-analytics/backend/internal/domain"
)

// VendorRepo defines the persistence operations for Vendors.
type VendorRepo interface {
	// Create inserts a vendor if no row with the same vendor_code exists.
	// Returns domain.ErrConflict when the code is already taken; the caller
	// is expected to re-fetch with GetByCode.
	Create(ctx context.Context, v domain.Vendor) (domain.Vendor, error)

	// GetByCode retrieves a vendor by its unique business key.
	// Returns domain.ErrNotFound if no vendor has that code.
	GetByCode(ctx context.Context, code string) (domain.Vendor, error)

	// GetByID retrieves a vendor by surrogate key.
	GetByID(ctx context.Context, id int32) (domain.Vendor, error)

	// List returns all vendors ordered by vendor_code.
	List(ctx context.Context) ([]domain.Vendor, error)

	// Delete removes a vendor. Trips that referenced it keep existing with
	// vendor_id set to NULL. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id int32) error
}

// pgVendorRepo is the Postgres implementation of VendorRepo.
type pgVendorRepo struct {
	db db
}

// NewVendorRepo constructs a VendorRepo backed by the provided db connection.
func NewVendorRepo(db db) VendorRepo {
	return &pgVendorRepo{db: db}
}

const vendorColumns = `vendor_id, vendor_code, COALESCE(vendor_name, ''), COALESCE(notes, '')`

// Create inserts with ON CONFLICT DO NOTHING. When the code already exists
// RETURNING yields no row, which surfaces as domain.ErrConflict rather than
// ErrNotFound so the resolver knows to re-fetch.
func (r *pgVendorRepo) Create(ctx context.Context, v domain.Vendor) (domain.Vendor, error) {
	const q = `
		INSERT INTO vendors (vendor_code, vendor_name, notes)
		VALUES (@vendor_code, @vendor_name, @notes)
		ON CONFLICT (vendor_code) DO NOTHING
		RETURNING ` + vendorColumns

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"vendor_code": v.VendorCode,
		"vendor_name": v.VendorName,
		"notes":       v.Notes,
	})
	result, err := scanVendor(row)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Vendor{}, fmt.Errorf("repo.VendorRepo.Create: %w", domain.ErrConflict)
		}
		return domain.Vendor{}, fmt.Errorf("repo.VendorRepo.Create: %w", mapPgError(err))
	}
	return result, nil
}

// GetByCode retrieves a vendor by vendor_code.
func (r *pgVendorRepo) GetByCode(ctx context.Context, code string) (domain.Vendor, error) {
	const q = `SELECT ` + vendorColumns + ` FROM vendors WHERE vendor_code = @code`

	result, err := scanVendor(r.db.QueryRow(ctx, q, pgx.NamedArgs{"code": code}))
	if err != nil {
		return domain.Vendor{}, fmt.Errorf("repo.VendorRepo.GetByCode: %w", err)
	}
	return result, nil
}

// GetByID retrieves a vendor by vendor_id.
func (r *pgVendorRepo) GetByID(ctx context.Context, id int32) (domain.Vendor, error) {
	const q = `SELECT ` + vendorColumns + ` FROM vendors WHERE vendor_id = @id`

	result, err := scanVendor(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Vendor{}, fmt.Errorf("repo.VendorRepo.GetByID: %w", err)
	}
	return result, nil
}

// List returns every vendor ordered by code.
func (r *pgVendorRepo) List(ctx context.Context) ([]domain.Vendor, error) {
	const q = `SELECT ` + vendorColumns + ` FROM vendors ORDER BY vendor_code`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.VendorRepo.List: %w", err)
	}
	defer rows.Close()

	vendors := []domain.Vendor{}
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.VendorRepo.List: scan: %w", err)
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.VendorRepo.List: rows: %w", err)
	}
	return vendors, nil
}

// Delete removes a vendor by primary key. The fk_vendor constraint nulls
// trips.vendor_id on the referencing rows.
func (r *pgVendorRepo) Delete(ctx context.Context, id int32) error {
	const q = `DELETE FROM vendors WHERE vendor_id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.VendorRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.VendorRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanVendor maps a single database row into a domain.Vendor.
func scanVendor(s scanner) (domain.Vendor, error) {
	var v domain.Vendor
	if err := s.Scan(&v.VendorID, &v.VendorCode, &v.VendorName, &v.Notes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Vendor{}, domain.ErrNotFound
		}
		return domain.Vendor{}, err
	}
	return v, nil
}
