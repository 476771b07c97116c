package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TagType is the fixed set of categories an image or note can be tagged with.
type TagType string

const (
	TagFavorite   TagType = "FAVORITE"
	TagWork       TagType = "WORK"
	TagPersonal   TagType = "PERSONAL"
	TagTravel     TagType = "TRAVEL"
	TagFamily     TagType = "FAMILY"
	TagScreenshot TagType = "SCREENSHOT"
	TagDocument   TagType = "DOCUMENT"
	TagMeme       TagType = "MEME"
	TagImportant  TagType = "IMPORTANT"
	TagArchive    TagType = "ARCHIVE"
)

// TagTypes lists every tag type in declaration order.
var TagTypes = []TagType{
	TagFavorite, TagWork, TagPersonal, TagTravel, TagFamily,
	TagScreenshot, TagDocument, TagMeme, TagImportant, TagArchive,
}

// ParseTagType matches name case-insensitively against the enumeration.
func ParseTagType(name string) (TagType, bool) {
	name = strings.TrimSpace(name)
	for _, t := range TagTypes {
		if strings.EqualFold(string(t), name) {
			return t, true
		}
	}
	return "", false
}

// Title returns the human form of the type, e.g. "Favorite".
func (t TagType) Title() string {
	// cases.Caser is stateful; never share one between goroutines.
	return cases.Title(language.English).String(strings.ToLower(string(t)))
}

// TagColor is a display color for a tag.
type TagColor string

const (
	ColorRed    TagColor = "RED"
	ColorPink   TagColor = "PINK"
	ColorPurple TagColor = "PURPLE"
	ColorBlue   TagColor = "BLUE"
	ColorCyan   TagColor = "CYAN"
	ColorTeal   TagColor = "TEAL"
	ColorGreen  TagColor = "GREEN"
	ColorYellow TagColor = "YELLOW"
	ColorOrange TagColor = "ORANGE"
	ColorBrown  TagColor = "BROWN"
)

var colorARGB = map[TagColor]uint32{
	ColorRed:    0xFFE57373,
	ColorPink:   0xFFF06292,
	ColorPurple: 0xFFBA68C8,
	ColorBlue:   0xFF64B5F6,
	ColorCyan:   0xFF4DD0E1,
	ColorTeal:   0xFF4DB6AC,
	ColorGreen:  0xFF81C784,
	ColorYellow: 0xFFFFB74D,
	ColorOrange: 0xFFFF8A65,
	ColorBrown:  0xFFA1887F,
}

// Hex returns the color as "#AARRGGBB", or empty for an unknown color.
func (c TagColor) Hex() string {
	v, ok := colorARGB[c]
	if !ok {
		return ""
	}
	return fmt.Sprintf("#%08X", v)
}

// DefaultColor returns the color a tag type gets when none is chosen.
func DefaultColor(t TagType) TagColor {
	switch t {
	case TagFavorite:
		return ColorRed
	case TagWork:
		return ColorBlue
	case TagPersonal:
		return ColorGreen
	case TagTravel:
		return ColorCyan
	case TagFamily:
		return ColorPink
	case TagScreenshot:
		return ColorPurple
	case TagDocument:
		return ColorBrown
	case TagMeme:
		return ColorYellow
	case TagImportant:
		return ColorOrange
	case TagArchive:
		return ColorTeal
	}
	return ColorBlue
}

// ImageTag is a tag attached to a single image.
type ImageTag struct {
	Type       TagType  `json:"type"`
	Color      TagColor `json:"color"`
	CustomName *string  `json:"customName,omitempty"`
}

// NewImageTag returns a tag of type t with its default color.
func NewImageTag(t TagType) ImageTag {
	return ImageTag{Type: t, Color: DefaultColor(t)}
}

// DisplayName is the custom name when set, otherwise the type title.
func (t ImageTag) DisplayName() string {
	if t.CustomName != nil {
		return *t.CustomName
	}
	return t.Type.Title()
}

// Tag is a tag attached to a note.
type Tag struct {
	ID         string   `json:"id"`
	Type       TagType  `json:"type"`
	Color      TagColor `json:"color"`
	CustomName *string  `json:"customName,omitempty"`
}

// DisplayName is the custom name when set, otherwise the type title.
func (t Tag) DisplayName() string {
	if t.CustomName != nil {
		return *t.CustomName
	}
	return t.Type.Title()
}

// NewTag returns a note tag whose id is derived from the note id and type,
// so the same tag parsed twice keeps its id.
func NewTag(noteID string, t TagType, c TagColor) Tag {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(noteID+"/"+string(t))).String()
	return Tag{ID: id, Type: t, Color: c}
}
