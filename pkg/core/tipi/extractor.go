// Package tipi extracts NCM → IPI-rate rows from the official TIPI
// publication (Tabela de Incidência do IPI), a large PDF whose table rows
// follow a recognizable line pattern.
package tipi

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Row is one extracted TIPI table row. Aliquota is kept verbatim ("0",
// "10", "NT") since downstream consumers decide how NT is treated.
type Row struct {
	NCM       string `json:"ncm"` // dotted form, dddd.dd.dd
	Descricao string `json:"descricao"`
	Aliquota  string `json:"aliquota"`
}

var (
	// Full row on a single line: "2204.30.00 Outros mostos de uvas 10"
	ncmFullLine = regexp.MustCompile(`^(\d{4}\.\d{2}\.\d{2})\s+(.+?)\s+(NT|\d+)\s*$`)
	// Row start whose description continues on following lines.
	ncmLineStart = regexp.MustCompile(`^(\d{4}\.\d{2}\.\d{2})\b`)
	aliquotaTok  = regexp.MustCompile(`^(NT|\d+)$`)
	spaceRun     = regexp.MustCompile(`\s+`)
)

// Extract walks page texts line by line and collects every row whose NCM is
// in full dddd.dd.dd form, joining descriptions that span multiple lines.
// Rows are deduplicated and sorted by NCM.
func Extract(pages []string) []Row {
	type pending struct {
		ncm      string
		parts    []string
		aliquota string
	}

	var rows []Row
	var cur *pending

	finalize := func(p *pending) {
		rows = append(rows, Row{
			NCM:       p.ncm,
			Descricao: normalizeDescription(p.parts),
			Aliquota:  p.aliquota,
		})
	}

	for _, page := range pages {
		for _, raw := range strings.Split(page, "\n") {
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}

			if m := ncmFullLine.FindStringSubmatch(line); m != nil {
				if cur != nil && cur.aliquota != "" {
					finalize(cur)
				}
				cur = nil
				rows = append(rows, Row{
					NCM:       m[1],
					Descricao: normalizeDescription([]string{m[2]}),
					Aliquota:  m[3],
				})
				continue
			}

			if m := ncmLineStart.FindStringSubmatch(line); m != nil {
				if cur != nil && cur.aliquota != "" {
					finalize(cur)
				}
				rest := strings.TrimSpace(line[len(m[1]):])
				cur = &pending{ncm: m[1]}
				if rest != "" {
					cur.parts = append(cur.parts, rest)
				}
				continue
			}

			if cur == nil {
				continue
			}
			tokens := strings.Fields(line)
			if len(tokens) == 0 {
				continue
			}
			last := tokens[len(tokens)-1]
			if aliquotaTok.MatchString(last) {
				if extra := strings.Join(tokens[:len(tokens)-1], " "); extra != "" {
					cur.parts = append(cur.parts, extra)
				}
				cur.aliquota = last
				finalize(cur)
				cur = nil
			} else {
				cur.parts = append(cur.parts, line)
			}
		}
	}
	if cur != nil && cur.aliquota != "" {
		finalize(cur)
	}

	// Dedupe identical rows, then sort by NCM.
	seen := make(map[Row]bool, len(rows))
	out := rows[:0]
	for _, r := range rows {
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NCM < out[j].NCM })
	return out
}

func normalizeDescription(parts []string) string {
	desc := spaceRun.ReplaceAllString(strings.Join(parts, " "), " ")
	return strings.Trim(desc, " -")
}

// RateRow is one NCM/rate observation from the page-scan extraction.
type RateRow struct {
	Page   int     `json:"page"`
	NCM8   string  `json:"ncm8"`
	NCM    string  `json:"ncm"` // dotted
	Raw    string  `json:"ipi_raw"`
	Rate   float64 `json:"ipi_rate"`
	Parsed bool    `json:"parsed"` // false when no rate could be read off the line
}

var (
	ncmAnywhere = regexp.MustCompile(`\b(\d{4}\.\d{2}\.\d{2})\b`)
	percentTok  = regexp.MustCompile(`(\d{1,2},\d{2})\s*%`)
)

// ExtractRates scans page texts for lines carrying a full NCM code and reads
// the IPI percentage off the same line ("10,00 %" style). Lines with no
// percentage fall back to the NT and 0,00 textual markers. One observation
// is emitted per matching line; use RateMap for the deduplicated view.
func ExtractRates(pages []string) []RateRow {
	var rows []RateRow
	for pageIdx, page := range pages {
		for _, raw := range strings.Split(page, "\n") {
			line := strings.TrimSpace(raw)
			m := ncmAnywhere.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			row := RateRow{
				Page: pageIdx + 1,
				NCM8: strings.ReplaceAll(m[1], ".", ""),
				NCM:  m[1],
			}

			if rates := percentTok.FindAllStringSubmatch(line, -1); len(rates) > 0 {
				// Several percentages can appear on one line; the IPI
				// column is the last.
				row.Raw = rates[len(rates)-1][1]
				if v, err := parseCommaDecimal(row.Raw); err == nil {
					row.Rate = v / 100.0
					row.Parsed = true
				}
			} else if strings.Contains(line, "NT") {
				row.Raw = "NT"
				row.Parsed = true
			} else if strings.Contains(line, "0,00") {
				row.Raw = "0,00"
				row.Parsed = true
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// RateMap collapses observations to one rate per NCM8, keeping the first
// parsed observation in page order.
func RateMap(rows []RateRow) map[string]float64 {
	sorted := make([]RateRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].NCM8 != sorted[j].NCM8 {
			return sorted[i].NCM8 < sorted[j].NCM8
		}
		return sorted[i].Page < sorted[j].Page
	})

	out := make(map[string]float64)
	for _, r := range sorted {
		if !r.Parsed {
			continue
		}
		if _, ok := out[r.NCM8]; !ok {
			out[r.NCM8] = r.Rate
		}
	}
	return out
}

func parseCommaDecimal(raw string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
}
