package mcpserver

// NoteFormatContract describes the markdown note format that LLM clients
// should follow when creating notes.
const NoteFormatContract = `# Noor Note Format Contract

Notes are plain Markdown files under the notes directory. The file name is
the sanitized title plus ` + "`.md`" + `; sub-directories are folders.

## Structure

` + "```" + `markdown
# Title of the note

Body text in standard Markdown.

<!-- Tags: Work, Screenshot -->
` + "```" + `

## Rules

1. **The first line starting with ` + "`# `" + ` is the title.** Without one, the file
   name (without ` + "`.md`" + `) is used.
2. **Tags** live in a single trailing HTML comment ` + "`<!-- Tags: A, B -->`" + `.
   Names are matched case-insensitively against: Favorite, Work, Personal,
   Travel, Family, Screenshot, Document, Meme, Important, Archive. Unknown
   names are dropped.
3. **No frontmatter.** Anything before the heading is kept as body text.
4. **File names** only keep letters, digits, spaces, ` + "`_`" + ` and ` + "`-`" + `; a taken
   name gets a ` + "`_N`" + ` suffix.
5. **Encoding** is UTF-8.

## Creating notes with create_note

Pass the title and the body separately. The tool writes ` + "`# <title>`" + `, a blank
line and then the body, so the body must not repeat the heading.

## Images

- Import an image with the ` + "`import_image`" + ` tool (data URI or http/https URL).
  It is stored in the library inbox and indexed.
- The result carries a ` + "`markdownImage`" + ` field pointing at
  ` + "`/api/images/<id>/raw`" + `, ready to paste into a note body.
- Supported formats: png, jpg, jpeg, gif, webp, bmp.

## Screenshot notes

Notes produced from screenshots are titled
` + "`OCR <Mon 02, 15:04> - <first line of text>`" + ` and contain the source file,
the date, an ` + "`## Extracted Text`" + ` section and a Screenshot tag.

## Example

` + "```" + `markdown
# Weekly standup

Attendees: Alice, Bob.

![Whiteboard](/api/images/42/raw)

## Action items

- Alice to review the design doc

<!-- Tags: Work -->
` + "```" + `
`
