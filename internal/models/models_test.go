package models

import "testing"

func TestParseTagType(t *testing.T) {
	tests := []struct {
		in   string
		want TagType
		ok   bool
	}{
		{"WORK", TagWork, true},
		{" work ", TagWork, true},
		{"Screenshot", TagScreenshot, true},
		{"unknown", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseTagType(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseTagType(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTagTitleAndDisplayName(t *testing.T) {
	if got := TagImportant.Title(); got != "Important" {
		t.Errorf("Title = %q", got)
	}
	name := "Receipts"
	tag := ImageTag{Type: TagDocument, Color: ColorBrown, CustomName: &name}
	if tag.DisplayName() != "Receipts" {
		t.Errorf("DisplayName = %q", tag.DisplayName())
	}
	if NewImageTag(TagMeme).DisplayName() != "Meme" {
		t.Errorf("default DisplayName = %q", NewImageTag(TagMeme).DisplayName())
	}
}

func TestColorHex(t *testing.T) {
	if got := ColorBlue.Hex(); got != "#FF64B5F6" {
		t.Errorf("Hex = %q", got)
	}
	if got := TagColor("MAUVE").Hex(); got != "" {
		t.Errorf("unknown color Hex = %q", got)
	}
	for _, tt := range TagTypes {
		if DefaultColor(tt).Hex() == "" {
			t.Errorf("default color for %s has no hex", tt)
		}
	}
}

func TestNewTagStableID(t *testing.T) {
	a := NewTag("note-1", TagWork, ColorBlue)
	b := NewTag("note-1", TagWork, ColorRed)
	c := NewTag("note-2", TagWork, ColorBlue)
	if a.ID != b.ID {
		t.Errorf("same note and type should share id: %s vs %s", a.ID, b.ID)
	}
	if a.ID == c.ID {
		t.Error("different notes should get different ids")
	}
}

func TestWordCount(t *testing.T) {
	n := Note{Title: "Plan", Content: "  one two\nthree\t four "}.UpdateWordCount()
	if n.WordCount != 4 {
		t.Errorf("WordCount = %d", n.WordCount)
	}
	if n.FileName() != "Plan.md" {
		t.Errorf("FileName = %q", n.FileName())
	}
}
