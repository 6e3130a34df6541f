package tipi

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PublicationURL is the government page listing the current TIPI edition.
const PublicationURL = "https://www.gov.br/receitafederal/pt-br/acesso-a-informacao/legislacao/documentos-e-arquivos/tipi.pdf/view"

// Fetcher locates and downloads the current TIPI PDF.
type Fetcher struct {
	Client  *http.Client
	PageURL string
}

func NewFetcher() *Fetcher {
	return &Fetcher{Client: http.DefaultClient, PageURL: PublicationURL}
}

// FindPDFLink scrapes the publication page for the TIPI PDF download link
// and resolves it against the page URL.
func (f *Fetcher) FindPDFLink() (string, error) {
	resp, err := f.Client.Get(f.PageURL)
	if err != nil {
		return "", fmt.Errorf("tipi: fetch publication page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tipi: publication page returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("tipi: parse publication page: %w", err)
	}

	base, err := url.Parse(f.PageURL)
	if err != nil {
		return "", fmt.Errorf("tipi: bad page URL: %w", err)
	}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		lower := strings.ToLower(href)
		if !strings.Contains(lower, ".pdf") {
			return true
		}
		text := strings.ToLower(s.Text())
		if strings.Contains(lower, "tipi") || strings.Contains(text, "tipi") {
			found = href
			return false
		}
		return true
	})
	if found == "" {
		return "", fmt.Errorf("tipi: no TIPI PDF link on publication page")
	}

	ref, err := url.Parse(found)
	if err != nil {
		return "", fmt.Errorf("tipi: bad PDF link %q: %w", found, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// Download fetches the PDF at the given URL into memory.
func (f *Fetcher) Download(pdfURL string) ([]byte, error) {
	resp, err := f.Client.Get(pdfURL)
	if err != nil {
		return nil, fmt.Errorf("tipi: download pdf: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tipi: pdf download returned %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tipi: read pdf body: %w", err)
	}
	return data, nil
}
