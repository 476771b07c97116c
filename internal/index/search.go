package index

import (
	"fmt"
	"strings"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchImages matches query against display and folder names with LIKE.
// A blank query returns nothing.
func (db *DB) SearchImages(query string, limit int) ([]ImageRow, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	like := "%" + likeEscaper.Replace(query) + "%"
	rows, err := db.conn.Query(`
		SELECT `+selectCols+`
		FROM images
		WHERE display_name LIKE ? ESCAPE '\' OR folder_name LIKE ? ESCAPE '\'
		ORDER BY date_modified DESC
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search images: %w", err)
	}
	return scanRows(rows)
}
