package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/xuri/excelize/v2"

	"github.com/acordova/formbox/model"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported export format: %s", e.Format)
}

type Options struct {
	IncludeMetadata bool
	// CompatColumns restores the legacy export where colliding truncated
	// labels overwrite each other.
	CompatColumns bool
}

// utf8BOM makes spreadsheet tools detect CSV output as UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const xlsxSheet = "Sheet1"

// Exporter projects submissions of one form into a tabular or structured
// stream: init writes the header, one call per submission appends a row,
// Finish flushes. Callers must feed submissions in ascending creation
// order so exports read like a chronological log.
type Exporter struct {
	columns []column
	format  Format
	opts    Options

	w     io.Writer
	csvw  *csv.Writer
	xlsx  *excelize.File
	count int
}

func NewExporter(form *model.Form, w io.Writer, format Format, opts Options) (*Exporter, error) {
	questions := make([]model.Question, len(form.Questions))
	copy(questions, form.Questions)
	sorted := model.Form{Questions: questions}
	sorted.SortQuestions()

	e := &Exporter{
		columns: buildColumns(sorted.Questions, opts.CompatColumns),
		format:  format,
		opts:    opts,
		w:       w,
	}

	if err := e.init(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Exporter) init() error {
	switch e.format {
	case FormatCSV:
		if _, err := e.w.Write(utf8BOM); err != nil {
			return err
		}
		e.csvw = csv.NewWriter(e.w)
		return e.csvw.Write(e.header())
	case FormatXLSX:
		e.xlsx = excelize.NewFile()
		for i, cell := range e.header() {
			name, err := excelize.CoordinatesToCellName(i+1, 1)
			if err != nil {
				return err
			}
			if err := e.xlsx.SetCellValue(xlsxSheet, name, cell); err != nil {
				return err
			}
		}
		return nil
	case FormatJSON:
		_, err := e.w.Write([]byte("["))
		return err
	default:
		return &UnsupportedFormatError{Format: string(e.format)}
	}
}

func (e *Exporter) header() []string {
	header := []string{"ID", "Fecha", "Estado"}
	if e.opts.IncludeMetadata {
		header = append(header, "IP", "Latitud", "Longitud")
	}
	for _, col := range e.columns {
		header = append(header, col.key)
	}
	return header
}

func (e *Exporter) WriteSubmission(sub *model.Submission) error {
	byQuestion := groupAnswers(sub.Answers)

	var err error
	switch e.format {
	case FormatCSV:
		err = e.csvw.Write(e.cells(sub, byQuestion))
	case FormatXLSX:
		err = e.writeXLSXRow(sub, byQuestion)
	case FormatJSON:
		err = e.writeJSONRow(sub, byQuestion)
	default:
		return &UnsupportedFormatError{Format: string(e.format)}
	}
	if err != nil {
		return err
	}

	e.count++
	return nil
}

func (e *Exporter) Finish() error {
	switch e.format {
	case FormatCSV:
		e.csvw.Flush()
		return e.csvw.Error()
	case FormatXLSX:
		_, err := e.xlsx.WriteTo(e.w)
		return err
	case FormatJSON:
		_, err := e.w.Write([]byte("]"))
		return err
	default:
		return &UnsupportedFormatError{Format: string(e.format)}
	}
}

// Export materializes the whole submission set in one call.
func Export(form *model.Form, submissions []model.Submission, w io.Writer, format Format, opts Options) error {
	e, err := NewExporter(form, w, format, opts)
	if err != nil {
		return err
	}
	for i := range submissions {
		if err := e.WriteSubmission(&submissions[i]); err != nil {
			return err
		}
	}
	return e.Finish()
}

// groupAnswers collects answer values per question, repeat instances in
// index order.
func groupAnswers(answers []model.Answer) map[int][]model.Value {
	sorted := make([]model.Answer, len(answers))
	copy(sorted, answers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RepeatIndex < sorted[j].RepeatIndex
	})

	byQuestion := make(map[int][]model.Value)
	for _, a := range sorted {
		byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], a.Value)
	}
	return byQuestion
}

func (e *Exporter) cells(sub *model.Submission, byQuestion map[int][]model.Value) []string {
	row := []string{
		strconv.Itoa(sub.ID),
		sub.CreatedAt.UTC().Format(time.RFC3339),
		string(sub.Status),
	}
	if e.opts.IncludeMetadata {
		var lat, lng string
		if geo := sub.Meta.Geolocation; geo != nil {
			lat = formatNumber(geo.Lat)
			lng = formatNumber(geo.Lng)
		}
		row = append(row, sub.Meta.IP, lat, lng)
	}
	for _, col := range e.columns {
		row = append(row, cellString(byQuestion[col.question.ID]))
	}
	return row
}

func (e *Exporter) writeXLSXRow(sub *model.Submission, byQuestion map[int][]model.Value) error {
	// header occupies row 1
	rowNum := e.count + 2
	for i, cell := range e.cells(sub, byQuestion) {
		name, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return err
		}
		if err := e.xlsx.SetCellValue(xlsxSheet, name, cell); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeJSONRow(sub *model.Submission, byQuestion map[int][]model.Value) error {
	row := map[string]any{
		"id":           sub.ID,
		"submitted_at": sub.CreatedAt.UTC().Format(time.RFC3339),
		"status":       sub.Status,
	}
	if e.opts.IncludeMetadata {
		row["ip_address"] = sub.Meta.IP
		row["geolocation"] = sub.Meta.Geolocation
	}
	for _, col := range e.columns {
		values, ok := byQuestion[col.question.ID]
		if !ok {
			continue
		}
		row[col.key] = jsonValue(values)
	}

	encoded, err := json.Marshal(row)
	if err != nil {
		return err
	}
	if e.count > 0 {
		if _, err := e.w.Write([]byte(",")); err != nil {
			return err
		}
	}
	_, err = e.w.Write(encoded)
	return err
}

// cellString renders answer values for one tabular cell. Presence is
// decided by the value kind: numeric 0 and empty strings come through as
// literal cells, never as blanks.
func cellString(values []model.Value) string {
	present := presentValues(values)
	switch len(present) {
	case 0:
		return ""
	case 1:
		return valueToString(present[0])
	default:
		// repeat-group instances fold into one deterministic JSON list
		items := make([]any, len(present))
		for i, v := range present {
			items[i], _ = v.Export()
		}
		return compactJSON(items)
	}
}

func jsonValue(values []model.Value) any {
	present := presentValues(values)
	switch len(present) {
	case 0:
		return nil
	case 1:
		v, _ := present[0].Export()
		return v
	default:
		items := make([]any, len(present))
		for i, v := range present {
			items[i], _ = v.Export()
		}
		return items
	}
}

func presentValues(values []model.Value) []model.Value {
	present := make([]model.Value, 0, len(values))
	for _, v := range values {
		if !v.IsAbsent() {
			present = append(present, v)
		}
	}
	return present
}

func valueToString(v model.Value) string {
	exported, ok := v.Export()
	if !ok {
		return ""
	}
	switch val := exported.(type) {
	case string:
		return val
	case float64:
		return formatNumber(val)
	default:
		return compactJSON(val)
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func compactJSON(v any) string {
	encoded, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(encoded)
}
