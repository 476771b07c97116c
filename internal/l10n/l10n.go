// Package l10n holds the user-facing strings that depend on a count.
package l10n

import (
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	ScanFound       = "scan.found"
	ScanFoundMany   = "scan.found.many"
	ScanNone        = "scan.none"
	ScanFailed      = "scan.failed"
	ScanNoAccess    = "scan.no_access"
	ProcessNone     = "process.none"
	ProcessDone     = "process.done"
	ProcessFailed   = "process.failed"
	NotifyManyTitle = "notify.many.title"
	NotifyNewTitle  = "notify.new.title"
	NotifyNoneTitle = "notify.none.title"
	NotifyManyBody  = "notify.many.body"
	NotifyNewBody   = "notify.new.body"
	NotifyNoneBody  = "notify.none.body"
)

var printer = newPrinter()

func newPrinter() *message.Printer {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	en := language.English
	set := func(key string, msg ...catalog.Message) {
		if err := b.Set(en, key, msg...); err != nil {
			panic(err)
		}
	}
	set(ScanFound, plural.Selectf(1, "%d",
		"=1", "Found %d new screenshot",
		"other", "Found %d new screenshots"))
	set(ScanFoundMany, catalog.String("Found %d new screenshots!"))
	set(ScanNone, catalog.String("You're doing well! No new screenshots today."))
	set(ScanFailed, catalog.String("Scan failed: %s"))
	set(ScanNoAccess, catalog.String("Media permission required to scan screenshots"))
	set(ProcessNone, catalog.String("No images to process"))
	set(ProcessDone, catalog.String("Processed %d images"))
	set(ProcessFailed, catalog.String("Processed %d images, %d failed"))
	set(NotifyManyTitle, catalog.String("📸 Many Screenshots Found!"))
	set(NotifyNewTitle, catalog.String("📸 New Screenshots Found"))
	set(NotifyNoneTitle, catalog.String("✨ You're Doing Well!"))
	set(NotifyManyBody, catalog.String("%d new screenshots ready for OCR processing"))
	set(NotifyNewBody, plural.Selectf(1, "%d",
		"=1", "%d new screenshot found",
		"other", "%d new screenshots found"))
	set(NotifyNoneBody, catalog.String("No new screenshots today. Keep up the good work!"))
	return message.NewPrinter(en, message.Catalog(b))
}

// Sprintf renders the message stored under key.
func Sprintf(key string, args ...any) string {
	return printer.Sprintf(key, args...)
}
