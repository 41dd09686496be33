package corpus

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	qaerrors "github.com/eunjujo120/perso-ai-chatbot/internal/errors"
)

// Default header names of the question and answer columns.
const (
	DefaultQuestionColumn = "question"
	DefaultAnswerColumn   = "answer"
)

// Format identifies a corpus file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath derives the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", qaerrors.CorpusError(fmt.Sprintf("unsupported corpus file type %q", filepath.Ext(path)), nil).
			WithSuggestion("use .xlsx, .csv, .yaml or .json")
	}
}

// FileLoader reads the corpus from a file on every Load.
type FileLoader struct {
	path           string
	format         Format
	questionColumn string
	answerColumn   string
}

// FileOption configures a FileLoader.
type FileOption func(*FileLoader)

// WithColumns overrides the tabular header names.
func WithColumns(question, answer string) FileOption {
	return func(l *FileLoader) {
		if question != "" {
			l.questionColumn = question
		}
		if answer != "" {
			l.answerColumn = answer
		}
	}
}

// WithFormat forces a format instead of using the extension.
func WithFormat(f Format) FileOption {
	return func(l *FileLoader) {
		l.format = f
	}
}

// NewFileLoader creates a loader for path.
func NewFileLoader(path string, opts ...FileOption) (*FileLoader, error) {
	l := &FileLoader{
		path:           path,
		questionColumn: DefaultQuestionColumn,
		answerColumn:   DefaultAnswerColumn,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.format == "" {
		f, err := FormatFromPath(path)
		if err != nil {
			return nil, err
		}
		l.format = f
	}
	return l, nil
}

// Path returns the corpus file path.
func (l *FileLoader) Path() string {
	return l.path
}

// Load reads, cleans and returns the entries in file order.
func (l *FileLoader) Load(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, qaerrors.New(qaerrors.ErrCodeCorpusNotFound,
				fmt.Sprintf("corpus file not found: %s", l.path), err).
				WithSuggestion("set corpus.path or PERSOQA_CORPUS_PATH")
		}
		return nil, qaerrors.CorpusError("open corpus", err)
	}
	defer func() { _ = f.Close() }()

	var rows []Entry
	switch l.format {
	case FormatXLSX:
		rows, err = readXLSX(f, l.questionColumn, l.answerColumn)
	case FormatCSV:
		rows, err = readCSV(f, l.questionColumn, l.answerColumn)
	case FormatYAML:
		rows, err = readYAML(f)
	case FormatJSON:
		rows, err = readJSON(f)
	default:
		err = fmt.Errorf("unknown format %q", l.format)
	}
	if err != nil {
		if _, ok := qaerrors.As(err); ok {
			return nil, err
		}
		return nil, qaerrors.CorpusError(fmt.Sprintf("read %s corpus %s", l.format, l.path), err)
	}
	return Clean(rows), nil
}

// columnIndex finds the question and answer columns in a header row.
func columnIndex(header []string, question, answer string) (int, int, error) {
	qi, ai := -1, -1
	for i, h := range header {
		switch {
		case strings.EqualFold(strings.TrimSpace(h), question):
			qi = i
		case strings.EqualFold(strings.TrimSpace(h), answer):
			ai = i
		}
	}
	if qi < 0 || ai < 0 {
		return 0, 0, qaerrors.CorpusError(
			fmt.Sprintf("corpus header must contain %q and %q columns", question, answer), nil).
			WithDetail("columns", strings.Join(header, ","))
	}
	return qi, ai, nil
}

// rowsToEntries maps tabular rows (header excluded) to entries. Short rows
// yield empty cells, which Clean drops.
func rowsToEntries(rows [][]string, qi, ai int) []Entry {
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, Entry{Question: cell(row, qi), Answer: cell(row, ai)})
	}
	return out
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
