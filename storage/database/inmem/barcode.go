package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/barcode"
)

type barcodeRepository struct {
	db *barcodeTable
}

var _ barcode.Repository = (*barcodeRepository)(nil) // interface compliance check

func NewBarcodeRepository(db *DB) *barcodeRepository {
	return &barcodeRepository{db: db.barcode}
}

func (repo *barcodeRepository) CreateBarcode(ctx context.Context, b barcode.Barcode, _ ...core.DBExecutor) (barcode.Barcode, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return barcode.Barcode{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.codes[schema] {
		if existing.Code == b.Code {
			return barcode.Barcode{}, barcode.ErrCodeExists
		}
	}
	b.ID = uuid.New().String()
	rows, ok := repo.db.codes[schema]
	if !ok {
		rows = make(map[string]*barcode.Barcode)
		repo.db.codes[schema] = rows
	}
	rows[b.ID] = &b
	return b, nil
}

func (repo *barcodeRepository) GetBarcode(ctx context.Context, filter barcode.GetFilter, _ ...core.DBExecutor) (barcode.Barcode, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return barcode.Barcode{}, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	switch {
	case filter.ID != "":
		if b, ok := repo.db.codes[schema][filter.ID]; ok {
			return *b, nil
		}
	case filter.Code != "":
		for _, b := range repo.db.codes[schema] {
			if b.Code == filter.Code {
				return *b, nil
			}
		}
	}
	return barcode.Barcode{}, barcode.ErrNotFound
}

func (repo *barcodeRepository) GetActiveBarcode(ctx context.Context, kind, refID string, _ ...core.DBExecutor) (barcode.Barcode, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return barcode.Barcode{}, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, b := range repo.db.codes[schema] {
		if b.Kind == kind && b.RefID == refID && b.RevokedAt.IsZero() {
			return *b, nil
		}
	}
	return barcode.Barcode{}, barcode.ErrNotFound
}

func (repo *barcodeRepository) UpdateBarcode(ctx context.Context, b barcode.Barcode, _ ...core.DBExecutor) (barcode.Barcode, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return barcode.Barcode{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.codes[schema][b.ID]
	if !ok {
		return barcode.Barcode{}, barcode.ErrNotFound
	}
	// a barcode only ever gets revoked
	orig.RevokedAt = b.RevokedAt
	return *orig, nil
}

func (repo *barcodeRepository) CreateScan(ctx context.Context, e barcode.ScanEvent, _ ...core.DBExecutor) (barcode.ScanEvent, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return barcode.ScanEvent{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	e.ID = uuid.New().String()
	rows, ok := repo.db.scans[schema]
	if !ok {
		rows = make(map[string]*barcode.ScanEvent)
		repo.db.scans[schema] = rows
	}
	rows[e.ID] = &e
	return e, nil
}

func (repo *barcodeRepository) QueryScans(ctx context.Context, barcodeID string, _ ...core.DBExecutor) ([]barcode.ScanEvent, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	var events []barcode.ScanEvent
	for _, e := range repo.db.scans[schema] {
		if e.BarcodeID == barcodeID {
			events = append(events, *e)
		}
	}
	// newest first
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].ScannedAt.Equal(events[j].ScannedAt) {
			return events[i].ScannedAt.After(events[j].ScannedAt)
		}
		return events[i].ID < events[j].ID
	})
	return events, nil
}
