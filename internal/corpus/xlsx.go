package corpus

import (
	"io"

	"github.com/xuri/excelize/v2"
)

// readXLSX reads the first sheet; row 1 is the header.
func readXLSX(r io.Reader, question, answer string) ([]Entry, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	qi, ai, err := columnIndex(rows[0], question, answer)
	if err != nil {
		return nil, err
	}
	return rowsToEntries(rows[1:], qi, ai), nil
}
