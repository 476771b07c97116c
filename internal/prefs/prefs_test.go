package prefs

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPutGet(t *testing.T) {
	s := testDB(t).Namespace("ocr_prefs")
	if _, ok, _ := s.Get("missing"); ok {
		t.Fatal("missing key reported present")
	}
	if err := s.Put("k", "v1"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put("k", "v2"); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	v, ok, err := s.Get("k")
	if err != nil || !ok || v != "v2" {
		t.Errorf("Get = %q, %v, %v", v, ok, err)
	}
}

func TestNamespacesAreIndependent(t *testing.T) {
	db := testDB(t)
	a := db.Namespace("image_tags")
	b := db.Namespace("notes_prefs")
	_ = a.Put("shared", "from-a")
	if _, ok, _ := b.Get("shared"); ok {
		t.Error("namespace b sees a's key")
	}
}

func TestInt64(t *testing.T) {
	s := testDB(t).Namespace("n")
	if got := s.Int64("last_scan_time", 7); got != 7 {
		t.Errorf("default = %d", got)
	}
	_ = s.PutInt64("last_scan_time", 1700000000000)
	if got := s.Int64("last_scan_time", 0); got != 1700000000000 {
		t.Errorf("Int64 = %d", got)
	}
	_ = s.Put("bad", "not-a-number")
	if got := s.Int64("bad", 3); got != 3 {
		t.Errorf("malformed should fall back, got %d", got)
	}
}

func TestJSON(t *testing.T) {
	s := testDB(t).Namespace("n")
	in := []string{"a", "b"}
	if err := s.PutJSON("list", in); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}
	var out []string
	ok, err := s.GetJSON("list", &out)
	if err != nil || !ok || len(out) != 2 {
		t.Errorf("GetJSON = %v, %v, %v", out, ok, err)
	}

	_ = s.Put("corrupt", "{not json")
	if _, err := s.GetJSON("corrupt", &out); err == nil {
		t.Error("expected decode error")
	}
}

func TestRemovePrefixAndAll(t *testing.T) {
	s := testDB(t).Namespace("image_tags")
	_ = s.Put("tags_1", "[]")
	_ = s.Put("tags_2", "[]")
	_ = s.Put("tagsX3", "[]") // "_" must not act as a wildcard
	_ = s.Put("other", "x")

	if err := s.RemovePrefix("tags_"); err != nil {
		t.Fatalf("RemovePrefix: %v", err)
	}
	all, err := s.All()
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("remaining = %v, want tagsX3 and other", all)
	}
	if err := s.Remove("other"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok, _ := s.Get("other"); ok {
		t.Error("removed key still present")
	}
}
