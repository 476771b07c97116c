// Package models defines the domain types shared across noor.
package models

import "strings"

// Note is a markdown file under the notes root plus its cached metadata.
type Note struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	FilePath   string  `json:"filePath"`
	FolderID   *string `json:"folderId,omitempty"`
	Tags       []Tag   `json:"tags"`
	CreatedAt  int64   `json:"createdAt"`
	ModifiedAt int64   `json:"modifiedAt"`
	IsFavorite bool    `json:"isFavorite"`
	WordCount  int     `json:"wordCount"`
}

// FileName is the file name a note with this title is created under.
func (n Note) FileName() string {
	return n.Title + ".md"
}

// UpdateWordCount returns a copy with WordCount recomputed from Content.
func (n Note) UpdateWordCount() Note {
	n.WordCount = CountWords(n.Content)
	return n
}

// CountWords counts whitespace-separated words.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// NoteFolder mirrors a directory under the notes root.
type NoteFolder struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Path       string   `json:"path"`
	ParentID   *string  `json:"parentId,omitempty"`
	IconName   string   `json:"iconName"`
	Color      TagColor `json:"color"`
	CreatedAt  int64    `json:"createdAt"`
	ModifiedAt int64    `json:"modifiedAt"`
}

// NoteMetadata is a lightweight representation returned by storage listings.
type NoteMetadata struct {
	Path       string `json:"path"`
	Checksum   string `json:"checksum"`
	ModifiedAt int64  `json:"modifiedAt"`
}
