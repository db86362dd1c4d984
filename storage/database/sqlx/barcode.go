package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/barcode"
)

type barcodeRow struct {
	ID        string    `db:"id"`
	Code      string    `db:"code"`
	Kind      string    `db:"kind"`
	RefID     string    `db:"ref_id"`
	CreatedAt time.Time `db:"created_at"`
	RevokedAt null.Time `db:"revoked_at"`
}

var barcodeColumns = []string{"id", "code", "kind", "ref_id", "created_at", "revoked_at"}

type scanEventRow struct {
	ID        string    `db:"id"`
	BarcodeID string    `db:"barcode_id"`
	Station   string    `db:"station"`
	ScannedAt time.Time `db:"scanned_at"`
}

var scanEventColumns = []string{"id", "barcode_id", "station", "scanned_at"}

type barcodeRepository struct {
	db core.DBExecutor
}

var _ barcode.Repository = (*barcodeRepository)(nil) // interface compliance check

func NewBarcodeRepository(db core.DBExecutor) *barcodeRepository {
	return &barcodeRepository{db: db}
}

func (repo barcodeRepository) unpack(r barcodeRow) barcode.Barcode {
	return barcode.Barcode{
		ID:        r.ID,
		Code:      r.Code,
		Kind:      r.Kind,
		RefID:     r.RefID,
		CreatedAt: r.CreatedAt,
		RevokedAt: r.RevokedAt.Time,
	}
}

func (repo barcodeRepository) CreateBarcode(ctx context.Context, b barcode.Barcode, exec ...core.DBExecutor) (barcode.Barcode, error) {
	table, err := tenantTable(ctx, "barcode")
	if err != nil {
		return barcode.Barcode{}, err
	}

	b.ID = uuid.New().String()
	query, args, err := psql.Insert(table).
		Columns(barcodeColumns...).
		Values(b.ID, b.Code, b.Kind, b.RefID, b.CreatedAt.UTC(), null.NewTime(b.RevokedAt.UTC(), !b.RevokedAt.IsZero())).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return barcode.Barcode{}, errors.Wrap(err, "building query")
	}

	var saved barcodeRow
	if err = executor(repo.db, exec).GetContext(ctx, &saved, query, args...); err != nil {
		if isPqError(err, pqUniqueViolation, "") {
			return barcode.Barcode{}, barcode.ErrCodeExists
		}
		return barcode.Barcode{}, errors.Wrap(err, "inserting barcode")
	}
	return repo.unpack(saved), nil
}

func (repo barcodeRepository) GetBarcode(ctx context.Context, filter barcode.GetFilter, exec ...core.DBExecutor) (barcode.Barcode, error) {
	table, err := tenantTable(ctx, "barcode")
	if err != nil {
		return barcode.Barcode{}, err
	}

	q := psql.Select(barcodeColumns...).From(table)
	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return barcode.Barcode{}, barcode.ErrNotFound
		}
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.Code != "":
		q = q.Where(sq.Eq{"code": filter.Code})
	default:
		return barcode.Barcode{}, barcode.ErrNotFound
	}

	query, args, err := q.ToSql()
	if err != nil {
		return barcode.Barcode{}, errors.Wrap(err, "building query")
	}
	var r barcodeRow
	if err = executor(repo.db, exec).GetContext(ctx, &r, query, args...); err != nil {
		return barcode.Barcode{}, trapNoRowsErr(err, barcode.ErrNotFound, "finding barcode")
	}
	return repo.unpack(r), nil
}

func (repo barcodeRepository) GetActiveBarcode(ctx context.Context, kind, refID string, exec ...core.DBExecutor) (barcode.Barcode, error) {
	table, err := tenantTable(ctx, "barcode")
	if err != nil {
		return barcode.Barcode{}, err
	}

	query, args, err := psql.Select(barcodeColumns...).From(table).
		Where(sq.Eq{"kind": kind, "ref_id": refID, "revoked_at": nil}).
		ToSql()
	if err != nil {
		return barcode.Barcode{}, errors.Wrap(err, "building query")
	}
	var r barcodeRow
	if err = executor(repo.db, exec).GetContext(ctx, &r, query, args...); err != nil {
		return barcode.Barcode{}, trapNoRowsErr(err, barcode.ErrNotFound, "finding active barcode")
	}
	return repo.unpack(r), nil
}

func (repo barcodeRepository) UpdateBarcode(ctx context.Context, b barcode.Barcode, exec ...core.DBExecutor) (barcode.Barcode, error) {
	table, err := tenantTable(ctx, "barcode")
	if err != nil {
		return barcode.Barcode{}, err
	}

	query, args, err := psql.Update(table).
		Set("revoked_at", null.NewTime(b.RevokedAt.UTC(), !b.RevokedAt.IsZero())).
		Where(sq.Eq{"id": b.ID}).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return barcode.Barcode{}, errors.Wrap(err, "building query")
	}

	var saved barcodeRow
	if err = executor(repo.db, exec).GetContext(ctx, &saved, query, args...); err != nil {
		return barcode.Barcode{}, trapNoRowsErr(err, barcode.ErrNotFound, "updating barcode")
	}
	return repo.unpack(saved), nil
}

func (repo barcodeRepository) CreateScan(ctx context.Context, e barcode.ScanEvent, exec ...core.DBExecutor) (barcode.ScanEvent, error) {
	table, err := tenantTable(ctx, "scan_event")
	if err != nil {
		return barcode.ScanEvent{}, err
	}

	e.ID = uuid.New().String()
	query, args, err := psql.Insert(table).
		Columns(scanEventColumns...).
		Values(e.ID, e.BarcodeID, e.Station, e.ScannedAt.UTC()).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return barcode.ScanEvent{}, errors.Wrap(err, "building query")
	}

	var saved scanEventRow
	if err = executor(repo.db, exec).GetContext(ctx, &saved, query, args...); err != nil {
		return barcode.ScanEvent{}, errors.Wrap(err, "inserting scan event")
	}
	return barcode.ScanEvent{
		ID:        saved.ID,
		BarcodeID: saved.BarcodeID,
		Station:   saved.Station,
		ScannedAt: saved.ScannedAt,
	}, nil
}

func (repo barcodeRepository) QueryScans(ctx context.Context, barcodeID string, exec ...core.DBExecutor) ([]barcode.ScanEvent, error) {
	table, err := tenantTable(ctx, "scan_event")
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Select(scanEventColumns...).From(table).
		Where(sq.Eq{"barcode_id": barcodeID}).
		OrderBy("scanned_at DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []scanEventRow
	if err = executor(repo.db, exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying scan events")
	}

	events := make([]barcode.ScanEvent, 0, len(rows))
	for _, r := range rows {
		events = append(events, barcode.ScanEvent{
			ID:        r.ID,
			BarcodeID: r.BarcodeID,
			Station:   r.Station,
			ScannedAt: r.ScannedAt,
		})
	}
	return events, nil
}
