package tags

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/noor/internal/models"
	"github.com/starford/noor/internal/prefs"
)

func newStore(t *testing.T) (*Store, *prefs.Store) {
	t.Helper()
	db, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("prefs.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	kv := db.Namespace(Namespace)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(kv, logger), kv
}

func TestTagsForUntaggedImage(t *testing.T) {
	s, _ := newStore(t)
	got := s.TagsForImage(1)
	if got == nil || len(got) != 0 {
		t.Errorf("TagsForImage = %#v, want empty non-nil", got)
	}
}

func TestAddTagIsIdempotentPerType(t *testing.T) {
	s, _ := newStore(t)
	if err := s.AddTag(7, models.NewImageTag(models.TagWork)); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	custom := "Office"
	if err := s.AddTag(7, models.ImageTag{Type: models.TagWork, Color: models.ColorRed, CustomName: &custom}); err != nil {
		t.Fatalf("AddTag again: %v", err)
	}
	got := s.TagsForImage(7)
	if len(got) != 1 {
		t.Fatalf("tags = %+v, want one", got)
	}
	if got[0].Color != models.ColorBlue || got[0].CustomName != nil {
		t.Errorf("first tag was replaced: %+v", got[0])
	}
}

func TestAddTagFillsDefaultColor(t *testing.T) {
	s, _ := newStore(t)
	_ = s.AddTag(1, models.ImageTag{Type: models.TagTravel})
	if got := s.TagsForImage(1); got[0].Color != models.ColorCyan {
		t.Errorf("color = %q, want CYAN", got[0].Color)
	}
}

func TestRemoveTag(t *testing.T) {
	s, _ := newStore(t)
	_ = s.AddTag(3, models.NewImageTag(models.TagFavorite))
	_ = s.AddTag(3, models.NewImageTag(models.TagMeme))
	if err := s.RemoveTag(3, models.TagFavorite); err != nil {
		t.Fatalf("RemoveTag: %v", err)
	}
	got := s.TagsForImage(3)
	if len(got) != 1 || got[0].Type != models.TagMeme {
		t.Errorf("tags = %+v", got)
	}
	// removing an absent type leaves the list alone
	_ = s.RemoveTag(3, models.TagArchive)
	if len(s.TagsForImage(3)) != 1 {
		t.Error("unexpected change")
	}
}

func TestAvailableTags(t *testing.T) {
	s, _ := newStore(t)
	got := s.AvailableTags()
	if len(got) != len(models.TagTypes) {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Type != models.TagFavorite || got[0].Color != models.ColorRed {
		t.Errorf("first = %+v", got[0])
	}
}

func TestAllTaggedSkipsCorruptAndEmpty(t *testing.T) {
	s, kv := newStore(t)
	_ = s.AddTag(1, models.NewImageTag(models.TagWork))
	_ = s.AddTag(2, models.NewImageTag(models.TagWork))
	_ = s.RemoveTag(2, models.TagWork)
	_ = kv.Put("tags_3", "{broken")
	_ = kv.Put("unrelated", "[]")

	all, err := s.AllTagged()
	if err != nil {
		t.Fatalf("AllTagged: %v", err)
	}
	if len(all) != 1 || len(all[1]) != 1 {
		t.Errorf("AllTagged = %+v", all)
	}
	if got := s.TagsForImage(3); len(got) != 0 {
		t.Errorf("corrupt entry should read as empty, got %+v", got)
	}
}

func TestImagesByTagAndClearAll(t *testing.T) {
	s, _ := newStore(t)
	_ = s.AddTag(9, models.NewImageTag(models.TagScreenshot))
	_ = s.AddTag(4, models.NewImageTag(models.TagScreenshot))
	_ = s.AddTag(5, models.NewImageTag(models.TagFamily))

	ids, err := s.ImagesByTag(models.TagScreenshot)
	if err != nil {
		t.Fatalf("ImagesByTag: %v", err)
	}
	if len(ids) != 2 || ids[0] != 4 || ids[1] != 9 {
		t.Errorf("ids = %v", ids)
	}

	if err := s.ClearAll(); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	all, _ := s.AllTagged()
	if len(all) != 0 {
		t.Errorf("after ClearAll = %+v", all)
	}
}
