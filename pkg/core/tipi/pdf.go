package tipi

import (
	"fmt"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxPages bounds how much of the publication is scanned. TIPI runs
// past 400 pages; callers raise the cap when they need the later chapters.
const DefaultMaxPages = 60

// PageTexts extracts plain text from the first maxPages pages of a PDF
// file. Pages whose text cannot be decoded are returned as empty strings so
// page numbering stays stable for RateRow reporting.
func PageTexts(path string, maxPages int) ([]string, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("tipi: open pdf %s: %w", path, err)
	}
	defer f.Close()

	last := r.NumPage()
	if last > maxPages {
		last = maxPages
	}

	pages := make([]string, 0, last)
	for i := 1; i <= last; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
