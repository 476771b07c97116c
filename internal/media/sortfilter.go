package media

import (
	"cmp"
	"slices"
	"time"

	"github.com/starford/noor/internal/models"
)

const (
	recentWindow   = 7 * 24 * time.Hour
	largeFileBytes = 5 << 20
)

// Sort returns a sorted copy of items. Unknown sort types keep the input
// order.
func Sort(items []models.ImageItem, by models.SortType) []models.ImageItem {
	out := slices.Clone(items)
	var order func(a, b models.ImageItem) int
	switch by {
	case models.SortDateAscending:
		order = func(a, b models.ImageItem) int { return cmp.Compare(a.DateModified, b.DateModified) }
	case models.SortDateDescending:
		order = func(a, b models.ImageItem) int { return cmp.Compare(b.DateModified, a.DateModified) }
	case models.SortSizeAscending:
		order = func(a, b models.ImageItem) int { return cmp.Compare(a.Size, b.Size) }
	case models.SortSizeDescending:
		order = func(a, b models.ImageItem) int { return cmp.Compare(b.Size, a.Size) }
	default:
		return out
	}
	slices.SortStableFunc(out, order)
	return out
}

// Filter returns the items matching f relative to now.
func Filter(items []models.ImageItem, f models.FilterType, now time.Time) []models.ImageItem {
	switch f {
	case models.FilterRecent:
		cutoff := now.Add(-recentWindow).UnixMilli()
		return keep(items, func(it models.ImageItem) bool { return it.DateModified > cutoff })
	case models.FilterLargeFiles:
		return keep(items, func(it models.ImageItem) bool { return it.Size > largeFileBytes })
	default:
		return slices.Clone(items)
	}
}

func keep(items []models.ImageItem, fn func(models.ImageItem) bool) []models.ImageItem {
	out := make([]models.ImageItem, 0, len(items))
	for _, it := range items {
		if fn(it) {
			out = append(out, it)
		}
	}
	return out
}
