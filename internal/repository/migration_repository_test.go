package repository

import (
	"context"
	"testing"
)

func TestMigrationRepository_ApplyInTx(t *testing.T) {
	ctx := context.Background()
	repo := NewMigrationRepository(setupTestDB(t))
	if err := repo.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable failed: %v", err)
	}

	if err := repo.ApplyInTx(ctx, "010", "CREATE TABLE key_labels (id INTEGER)"); err != nil {
		t.Fatalf("ApplyInTx failed: %v", err)
	}
	applied, err := repo.IsMigrationApplied(ctx, "010")
	if err != nil {
		t.Fatalf("IsMigrationApplied failed: %v", err)
	}
	if !applied {
		t.Error("want migration recorded")
	}
}

func TestMigrationRepository_ApplyInTx_AlreadyRecorded(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewMigrationRepository(db)
	if err := repo.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable failed: %v", err)
	}
	// DDLは適用済みで履歴だけ残った状態からの再実行
	if err := db.Create(&SchemaMigrationModel{Version: "010"}).Error; err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}

	if err := repo.ApplyInTx(ctx, "010", "CREATE TABLE IF NOT EXISTS key_labels (id INTEGER)"); err != nil {
		t.Fatalf("re-applying a recorded migration must succeed, got %v", err)
	}
	list, err := repo.FindAllApplied(ctx)
	if err != nil {
		t.Fatalf("FindAllApplied failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("want 1 record, got %d", len(list))
	}
}

func TestMigrationRepository_ApplyInTx_SQLErrorNotRecorded(t *testing.T) {
	ctx := context.Background()
	repo := NewMigrationRepository(setupTestDB(t))
	if err := repo.EnsureTable(ctx); err != nil {
		t.Fatalf("EnsureTable failed: %v", err)
	}

	if err := repo.ApplyInTx(ctx, "011", "NOT VALID SQL"); err == nil {
		t.Fatal("want error for invalid SQL")
	}
	applied, err := repo.IsMigrationApplied(ctx, "011")
	if err != nil {
		t.Fatalf("IsMigrationApplied failed: %v", err)
	}
	if applied {
		t.Error("failed migration must not be recorded")
	}
}
