package l10n

import "testing"

func TestMessages(t *testing.T) {
	tests := []struct {
		key  string
		args []any
		want string
	}{
		{ScanFound, []any{1}, "Found 1 new screenshot"},
		{ScanFound, []any{3}, "Found 3 new screenshots"},
		{ScanFoundMany, []any{7}, "Found 7 new screenshots!"},
		{ScanNone, nil, "You're doing well! No new screenshots today."},
		{ScanFailed, []any{"disk on fire"}, "Scan failed: disk on fire"},
		{ProcessDone, []any{2}, "Processed 2 images"},
		{ProcessFailed, []any{2, 1}, "Processed 2 images, 1 failed"},
		{NotifyNewBody, []any{1}, "1 new screenshot found"},
		{NotifyNewBody, []any{4}, "4 new screenshots found"},
		{NotifyManyBody, []any{9}, "9 new screenshots ready for OCR processing"},
	}
	for _, tt := range tests {
		if got := Sprintf(tt.key, tt.args...); got != tt.want {
			t.Errorf("Sprintf(%q, %v) = %q, want %q", tt.key, tt.args, got, tt.want)
		}
	}
}
