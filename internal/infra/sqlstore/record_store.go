package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

type recordRow struct {
	bun.BaseModel `bun:"table:game_records,alias:r"`

	Key       string    `bun:"record_key,pk"`
	Data      string    `bun:"data,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// RecordStore keeps session records in the game_records table. It implements app.RecordStore.
type RecordStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewRecordStore(db *bun.DB) *RecordStore {
	return &RecordStore{db: db, now: time.Now}
}

func (s *RecordStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var row recordRow
	err := s.db.NewSelect().Model(&row).Where("record_key = ?", key).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(row.Data), true, nil
}

func (s *RecordStore) Save(ctx context.Context, key string, data []byte) error {
	row := recordRow{Key: key, Data: string(data), UpdatedAt: s.now().UTC()}
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (record_key) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *RecordStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().Model((*recordRow)(nil)).Where("record_key = ?", key).Exec(ctx)
	return err
}
