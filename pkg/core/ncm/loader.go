package ncm

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoaderOptions points the reference-data loader at the published workbooks.
// Sheet and column names track the official files; override them when a new
// edition shuffles the layout.
type LoaderOptions struct {
	TECSheet        string // default "TEC"
	TECRateColumn   string // default "TEC (%)"
	NCMSheet        string // default: first sheet
	UTribAbbrevCol  string
	UTribDescCol    string
	DescriptionCol  string // default "DESCRIÇÃO"
}

func (o LoaderOptions) withDefaults() LoaderOptions {
	if o.TECSheet == "" {
		o.TECSheet = "TEC"
	}
	if o.TECRateColumn == "" {
		o.TECRateColumn = "TEC (%)"
	}
	if o.DescriptionCol == "" {
		o.DescriptionCol = "DESCRIÇÃO"
	}
	if o.UTribAbbrevCol == "" {
		o.UTribAbbrevCol = "uTrib para uso em operações de Exportação (Abreviatura)"
	}
	if o.UTribDescCol == "" {
		o.UTribDescCol = "Descrição da uTrib utilizada em operações de Exportação"
	}
	return o
}

// LoadTEC reads the TEC workbook and returns II rates keyed by NCM8. The
// sheet carries preamble rows before the real header, so the header row is
// discovered by scanning for a row containing both "NCM" and the
// description column.
func LoadTEC(path string, opts LoaderOptions) (map[string]Entry, error) {
	opts = opts.withDefaults()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("ncm: open TEC workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(opts.TECSheet)
	if err != nil {
		return nil, fmt.Errorf("ncm: read sheet %q: %w", opts.TECSheet, err)
	}

	headerIdx := -1
	var header []string
	for i, row := range rows {
		if containsCell(row, "NCM") && containsCell(row, opts.DescriptionCol) {
			headerIdx = i
			header = row
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("ncm: TEC header row (NCM / %s) not found", opts.DescriptionCol)
	}

	ncmCol := cellIndex(header, "NCM")
	descCol := cellIndex(header, opts.DescriptionCol)
	rateCol := cellIndex(header, opts.TECRateColumn)
	if rateCol < 0 {
		return nil, fmt.Errorf("ncm: TEC rate column %q not found", opts.TECRateColumn)
	}

	out := make(map[string]Entry)
	for _, row := range rows[headerIdx+1:] {
		ncm8, err := FromDotted(cell(row, ncmCol))
		if err != nil {
			continue // heading and subposition rows are not full NCM codes
		}
		rate, err := ParseRate(cell(row, rateCol))
		if err != nil {
			continue
		}
		if _, ok := out[ncm8]; ok {
			continue
		}
		out[ncm8] = Entry{
			NCM8:        ncm8,
			Description: strings.TrimSpace(cell(row, descCol)),
			IIRate:      rate,
		}
	}
	return out, nil
}

// LoadNCMUTrib reads the NCM × uTrib workbook, returning the statistical
// unit columns keyed by NCM8.
func LoadNCMUTrib(path string, opts LoaderOptions) (map[string]Entry, error) {
	opts = opts.withDefaults()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("ncm: open NCM workbook: %w", err)
	}
	defer f.Close()

	sheet := opts.NCMSheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("ncm: read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("ncm: sheet %q is empty", sheet)
	}

	header := rows[0]
	ncmCol := cellIndex(header, "NCM")
	abbrevCol := cellIndex(header, opts.UTribAbbrevCol)
	descCol := cellIndex(header, opts.UTribDescCol)
	if ncmCol < 0 {
		return nil, fmt.Errorf("ncm: NCM column not found in sheet %q", sheet)
	}

	out := make(map[string]Entry)
	for _, row := range rows[1:] {
		ncm8, err := Normalize(cell(row, ncmCol))
		if err != nil {
			continue
		}
		out[ncm8] = Entry{
			NCM8:        ncm8,
			UTribAbbrev: strings.TrimSpace(cell(row, abbrevCol)),
			UTribDesc:   strings.TrimSpace(cell(row, descCol)),
		}
	}
	return out, nil
}

// Merge joins TEC rates, uTrib units and TIPI IPI rates into one table.
// TEC drives the key set; uTrib and IPI attach where the code matches.
func Merge(tec, utrib map[string]Entry, ipiRates map[string]float64) *Table {
	entries := make([]Entry, 0, len(tec))
	for ncm8, e := range tec {
		if u, ok := utrib[ncm8]; ok {
			e.UTribAbbrev = u.UTribAbbrev
			e.UTribDesc = u.UTribDesc
		}
		if ipi, ok := ipiRates[ncm8]; ok {
			e.IPIRate = ipi
		}
		entries = append(entries, e)
	}
	return NewTable(entries)
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func cellIndex(row []string, name string) int {
	for i, c := range row {
		if strings.EqualFold(strings.TrimSpace(c), strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

func containsCell(row []string, name string) bool {
	return cellIndex(row, name) >= 0
}
