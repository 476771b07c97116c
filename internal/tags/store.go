// Package tags attaches ImageTag lists to media index ids. Lists are stored
// as JSON under one prefs key per image; nothing ties them to rows that
// still exist.
package tags

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/starford/noor/internal/models"
	"github.com/starford/noor/internal/prefs"
)

// Namespace is the prefs namespace holding tag lists.
const Namespace = "image_tags"

const keyPrefix = "tags_"

// Store reads and writes per-image tag lists.
type Store struct {
	kv     *prefs.Store
	logger *slog.Logger
	mu     sync.Mutex // serializes read-modify-write of a list
}

// New creates a Store over the given prefs namespace.
func New(kv *prefs.Store, logger *slog.Logger) *Store {
	return &Store{kv: kv, logger: logger}
}

func key(imageID int64) string {
	return keyPrefix + strconv.FormatInt(imageID, 10)
}

// TagsForImage returns the tags of an image. A missing or corrupt entry
// yields an empty list.
func (s *Store) TagsForImage(imageID int64) []models.ImageTag {
	var out []models.ImageTag
	ok, err := s.kv.GetJSON(key(imageID), &out)
	if err != nil {
		s.logger.Warn("tags: read failed", slog.Int64("image_id", imageID), slog.String("error", err.Error()))
		return []models.ImageTag{}
	}
	if !ok || out == nil {
		return []models.ImageTag{}
	}
	return out
}

// AddTag attaches tag to an image. It is a no-op when a tag of the same
// type is already present.
func (s *Store) AddTag(imageID int64, tag models.ImageTag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.TagsForImage(imageID)
	for _, t := range current {
		if t.Type == tag.Type {
			return nil
		}
	}
	if tag.Color == "" {
		tag.Color = models.DefaultColor(tag.Type)
	}
	if err := s.kv.PutJSON(key(imageID), append(current, tag)); err != nil {
		return fmt.Errorf("tags: add: %w", err)
	}
	return nil
}

// RemoveTag detaches every tag of the given type from an image.
func (s *Store) RemoveTag(imageID int64, t models.TagType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.TagsForImage(imageID)
	kept := current[:0]
	for _, tag := range current {
		if tag.Type != t {
			kept = append(kept, tag)
		}
	}
	if err := s.kv.PutJSON(key(imageID), kept); err != nil {
		return fmt.Errorf("tags: remove: %w", err)
	}
	return nil
}

// AvailableTags returns one tag per type with its default color.
func (s *Store) AvailableTags() []models.ImageTag {
	out := make([]models.ImageTag, 0, len(models.TagTypes))
	for _, t := range models.TagTypes {
		out = append(out, models.NewImageTag(t))
	}
	return out
}

// AllTagged returns every image with at least one tag. Corrupt entries are
// skipped.
func (s *Store) AllTagged() (map[int64][]models.ImageTag, error) {
	all, err := s.kv.All()
	if err != nil {
		return nil, fmt.Errorf("tags: all: %w", err)
	}
	out := make(map[int64][]models.ImageTag)
	for k, raw := range all {
		if !strings.HasPrefix(k, keyPrefix) {
			continue
		}
		id, err := strconv.ParseInt(strings.TrimPrefix(k, keyPrefix), 10, 64)
		if err != nil {
			continue
		}
		var list []models.ImageTag
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			s.logger.Debug("tags: skip corrupt entry", slog.String("key", k))
			continue
		}
		if len(list) > 0 {
			out[id] = list
		}
	}
	return out, nil
}

// ImagesByTag returns the ids of images carrying a tag of type t, ascending.
func (s *Store) ImagesByTag(t models.TagType) ([]int64, error) {
	all, err := s.AllTagged()
	if err != nil {
		return nil, err
	}
	var ids []int64
	for id, list := range all {
		for _, tag := range list {
			if tag.Type == t {
				ids = append(ids, id)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ClearAll removes every tag list.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.RemovePrefix(keyPrefix); err != nil {
		return fmt.Errorf("tags: clear: %w", err)
	}
	return nil
}
