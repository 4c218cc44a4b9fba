package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vigild/vigild/internal/registry"
	"github.com/vigild/vigild/pkg/vigilib"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(filepath.Join(dir, "vigil.db")); err != nil {
		t.Errorf("database file not created: %v", err)
	}

	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q; want wal", journalMode)
	}
}

func TestChecks_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	due := time.Now().Add(20 * time.Second)
	c := &registry.ScheduledCheck{
		ID:             "01ABCDEF",
		UserAddress:    "0xab00000000000000000000000000000000000001",
		DueAt:          due,
		TimeoutSeconds: 20,
	}
	if err := s.InsertCheck(c); err != nil {
		t.Fatalf("InsertCheck() error = %v", err)
	}

	got, err := s.OutstandingChecks()
	if err != nil {
		t.Fatalf("OutstandingChecks() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d checks; want 1", len(got))
	}
	if got[0].ID != c.ID || got[0].UserAddress != c.UserAddress || got[0].TimeoutSeconds != 20 {
		t.Errorf("round-trip mismatch: %+v", got[0])
	}
	if !got[0].DueAt.Equal(due) {
		t.Errorf("DueAt = %v; want %v", got[0].DueAt, due)
	}

	if err := s.DeleteCheck(c.ID); err != nil {
		t.Fatalf("DeleteCheck() error = %v", err)
	}
	got, _ = s.OutstandingChecks()
	if len(got) != 0 {
		t.Fatalf("got %d checks after delete; want 0", len(got))
	}
}

func TestChecks_UniquePerUser(t *testing.T) {
	s := newTestStore(t)

	user := "0xab00000000000000000000000000000000000002"
	if err := s.InsertCheck(&registry.ScheduledCheck{ID: "a", UserAddress: user, DueAt: time.Now(), TimeoutSeconds: 5}); err != nil {
		t.Fatalf("first InsertCheck() error = %v", err)
	}
	if err := s.InsertCheck(&registry.ScheduledCheck{ID: "b", UserAddress: user, DueAt: time.Now(), TimeoutSeconds: 5}); err == nil {
		t.Fatal("second InsertCheck() for same user succeeded; want unique violation")
	}
}

func TestDelegations_RoundTripAndSetActive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	d := &vigilib.Delegation{
		UserAddress:        "0xAB00000000000000000000000000000000000003",
		BeneficiaryAddress: "0xab00000000000000000000000000000000000004",
		TimeoutSeconds:     3600,
		Active:             true,
		ENSName:            "alice.eth",
	}
	if err := s.PutDelegation(ctx, d); err != nil {
		t.Fatalf("PutDelegation() error = %v", err)
	}

	got, err := s.GetDelegation(ctx, "0xab00000000000000000000000000000000000003")
	if err != nil {
		t.Fatalf("GetDelegation() error = %v", err)
	}
	if !got.Active || got.TimeoutSeconds != 3600 || got.ENSName != "alice.eth" {
		t.Errorf("GetDelegation() = %+v", got)
	}

	if err := s.SetActive(ctx, d.UserAddress, false); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	got, _ = s.GetDelegation(ctx, d.UserAddress)
	if got.Active {
		t.Error("delegation still active after SetActive(false)")
	}

	// Upsert replaces fields.
	d.TimeoutSeconds = 60
	if err := s.PutDelegation(ctx, d); err != nil {
		t.Fatalf("upsert PutDelegation() error = %v", err)
	}
	got, _ = s.GetDelegation(ctx, d.UserAddress)
	if got.TimeoutSeconds != 60 {
		t.Errorf("TimeoutSeconds after upsert = %d; want 60", got.TimeoutSeconds)
	}
}

func TestGetDelegation_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetDelegation(context.Background(), "0xab00000000000000000000000000000000000009")
	if !errors.Is(err, vigilib.ErrNotFound) {
		t.Fatalf("GetDelegation() error = %v; want ErrNotFound", err)
	}
}

func TestSetActive_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.SetActive(context.Background(), "0xab00000000000000000000000000000000000009", true)
	if !errors.Is(err, vigilib.ErrNotFound) {
		t.Fatalf("SetActive() error = %v; want ErrNotFound", err)
	}
}
