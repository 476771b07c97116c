package notes

import (
	"context"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"

	"github.com/starford/noor/internal/apperr"
	"github.com/starford/noor/internal/models"
)

// ImportHTML sanitizes html, converts it to markdown and stores the result
// as a new note.
func (r *Repository) ImportHTML(ctx context.Context, title string, folderID *string, html string) (models.Note, error) {
	body, err := HTMLToMarkdown(html)
	if err != nil {
		return models.Note{}, err
	}
	if strings.TrimSpace(body) == "" {
		return models.Note{}, fmt.Errorf("notes: import: no content: %w", apperr.ErrInvalidInput)
	}
	return r.CreateWithContent(ctx, title, folderID, body)
}

// HTMLToMarkdown strips unsafe markup and renders the rest as markdown.
func HTMLToMarkdown(html string) (string, error) {
	clean := bluemonday.UGCPolicy().Sanitize(html)
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(clean)
	if err != nil {
		return "", fmt.Errorf("notes: convert html: %w", err)
	}
	return strings.TrimSpace(out), nil
}
