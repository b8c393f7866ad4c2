package submission

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/SlpAus/battle-effects-backend/internal/platform/database"
)

type mapResolver map[string]uint

func (m mapResolver) ResolveWeapons(_ context.Context, names []string) (map[string]uint, error) {
	out := make(map[string]uint)
	for _, n := range names {
		if id, ok := m[n]; ok {
			out[n] = id
		}
	}
	return out, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestIngestor(t *testing.T) (*Ingestor, *Repository, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	repo := NewRepository(db)
	return NewIngestor(repo, mapResolver{"Ice Sword": 1, "Fire Axe": 2}), repo, db
}

const oneReport = `[{"battle_id":"b-1","attacks":[{"round":1,"side":"p1","weapon":"Ice Sword","text":"slash","damage":[{"type":"attack","label":"Water","amount":5}]}]}]`

func TestIngestIsIdempotent(t *testing.T) {
	ing, repo, db := newTestIngestor(t)
	ctx := context.Background()

	first, err := ing.IngestBatch(ctx, []byte(oneReport))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ing.IngestBatch(ctx, []byte(oneReport))
	if err != nil {
		t.Fatalf("unexpected error on resubmission: %v", err)
	}
	if first.Stored != 1 || second.Stored != 0 || second.Duplicates != 1 {
		t.Fatalf("unexpected results: first=%+v second=%+v", first, second)
	}

	var count int64
	db.Model(&Submission{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly 1 stored report, got %d", count)
	}

	reports, err := repo.FetchUnprocessed(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reports) != 1 || reports[0].BattleID != "b-1" {
		t.Fatalf("expected report b-1, got %+v", reports)
	}
}

func TestIngestDuplicateInsideOneBatch(t *testing.T) {
	ing, _, _ := newTestIngestor(t)
	body := `[` + strings.Trim(oneReport, "[]") + `,` + strings.Trim(oneReport, "[]") + `]`
	res, err := ing.IngestBatch(context.Background(), []byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Stored != 1 || res.Duplicates != 1 {
		t.Fatalf("expected 1 stored and 1 duplicate, got %+v", res)
	}
}

func TestIngestDropsUnknownWeapons(t *testing.T) {
	ing, repo, _ := newTestIngestor(t)
	ctx := context.Background()
	body := `{"battle_id":"b-2","attacks":[
		{"round":1,"side":"p1","weapon":"Fire Axe","damage":[]},
		{"round":1,"side":"p2","weapon":"Mystery Stick","damage":[]}]}`

	if _, err := ing.IngestBatch(ctx, []byte(body)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	has, err := repo.HasUnprocessed(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !has {
		t.Error("expected report to reference Fire Axe")
	}
	has, _ = repo.HasUnprocessed(ctx, 1)
	if has {
		t.Error("expected no report referencing Ice Sword")
	}
}

func TestIngestRejectsMalformedBatchWholesale(t *testing.T) {
	ing, _, db := newTestIngestor(t)
	cases := map[string]string{
		"not json":       `{"battle_id":`,
		"empty array":    `[]`,
		"scalar":         `42`,
		"no attacks":     `[{"battle_id":"x","attacks":[]}]`,
		"missing id":     `[{"attacks":[{"round":1,"weapon":"Ice Sword"}]}]`,
		"one bad of two": `[{"battle_id":"ok","attacks":[{"round":1,"weapon":"Ice Sword"}]},{"battle_id":"bad","attacks":[{"round":1,"weapon":""}]}]`,
		"bad damage":     `[{"battle_id":"d","attacks":[{"round":1,"weapon":"Ice Sword","damage":[{"label":"x","amount":1}]}]}]`,
	}
	for name, body := range cases {
		if _, err := ing.IngestBatch(context.Background(), []byte(body)); !errors.Is(err, ErrInvalidReport) {
			t.Errorf("%s: expected ErrInvalidReport, got %v", name, err)
		}
	}

	var count int64
	db.Model(&Submission{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected nothing stored, got %d", count)
	}
}

func TestStoredPayloadIsVerbatim(t *testing.T) {
	ing, _, db := newTestIngestor(t)
	raw := `{"battle_id":"b-3","extra":{"kept":true},"attacks":[{"round":1,"side":"p1","weapon":"Ice Sword"}]}`
	if _, err := ing.IngestBatch(context.Background(), []byte("["+raw+"]")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sub Submission
	if err := db.Where("battle_id = ?", "b-3").First(&sub).Error; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(sub.Payload) != raw {
		t.Errorf("payload altered:\n got %s\nwant %s", sub.Payload, raw)
	}
}

func TestMarkProcessed(t *testing.T) {
	ing, repo, db := newTestIngestor(t)
	ctx := context.Background()
	ing.IngestBatch(ctx, []byte(oneReport))

	batch, err := LoadUnprocessed(db, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.IDs) != 1 || len(batch.Reports) != 1 {
		t.Fatalf("expected one loaded report, got %+v", batch)
	}

	// 读取之后才入库的战报没有参与统计，不能被标记
	late := `[{"battle_id":"b-late","attacks":[{"round":1,"side":"p1","weapon":"Ice Sword","damage":[{"type":"attack","label":"Water","amount":9}]}]}]`
	if _, err := ing.IngestBatch(ctx, []byte(late)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var n int64
	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		n, err = MarkProcessed(tx, batch.IDs)
		return err
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 row marked, got %d", n)
	}

	reports, _ := repo.FetchUnprocessed(ctx, 1)
	if len(reports) != 1 || reports[0].BattleID != "b-late" {
		t.Fatalf("expected only b-late to remain unprocessed, got %+v", reports)
	}

	if n, err := MarkProcessed(db, nil); err != nil || n != 0 {
		t.Errorf("expected no-op for empty ids, got %d, %v", n, err)
	}
}

func TestSubmitHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ing, _, _ := newTestIngestor(t)
	r := gin.New()
	r.POST("/submissions", NewHandler(ing).Submit)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/submissions", strings.NewReader(oneReport)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"stored":1`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/submissions", strings.NewReader(`[]`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestOpponent(t *testing.T) {
	if o, ok := SideP1.Opponent(); !ok || o != SideP2 {
		t.Errorf("expected p2, got %q", o)
	}
	if _, ok := Side("p3").Opponent(); ok {
		t.Error("unknown side must not have an opponent")
	}
}

func TestStoreSingleReport(t *testing.T) {
	_, repo, _ := newTestIngestor(t)
	ctx := context.Background()
	batch, err := ParseBatch([]byte(oneReport))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := batch[0]
	p.ItemIDs = []uint{1}

	stored, err := repo.Store(ctx, p)
	if err != nil || !stored {
		t.Fatalf("expected first store to succeed, got %v, %v", stored, err)
	}
	stored, err = repo.Store(ctx, p)
	if err != nil {
		t.Fatalf("resubmission must not be an error: %v", err)
	}
	if stored {
		t.Error("resubmission must be a no-op")
	}
}
