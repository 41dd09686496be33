package corpus

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"

	"gopkg.in/yaml.v3"
)

func readCSV(r io.Reader, question, answer string) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Strip a UTF-8 byte order mark written by spreadsheet exports.
	if len(records[0]) > 0 {
		records[0][0] = trimBOM(records[0][0])
	}
	qi, ai, err := columnIndex(records[0], question, answer)
	if err != nil {
		return nil, err
	}
	return rowsToEntries(records[1:], qi, ai), nil
}

// yamlCorpus accepts either a bare list or {entries: [...]}.
type yamlCorpus struct {
	Entries []Entry `yaml:"entries" json:"entries"`
}

func readYAML(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var list []Entry
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var doc yamlCorpus
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

func readJSON(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var list []Entry
	listErr := json.Unmarshal(data, &list)
	if listErr == nil {
		return list, nil
	}
	var doc yamlCorpus
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Join(listErr, err)
	}
	return doc.Entries, nil
}

func trimBOM(s string) string {
	const bom = "\ufeff"
	if len(s) >= len(bom) && s[:len(bom)] == bom {
		return s[len(bom):]
	}
	return s
}
