// Package dataset reads and writes the flat hackathon CSV shared by the
// fetch and chart jobs.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"hackstats/internal/model"
)

var Header = []string{
	"id",
	"title",
	"url",
	"organization_name",
	"location",
	"open_state",
	"submission_period_dates",
	"time_left_to_submission",
	"prize_amount",
	"cash_prizes_count",
	"other_prizes_count",
	"registrations_count",
	"themes",
	"featured",
	"winners_announced",
	"invite_only",
	"managed_by_devpost",
	"thumbnail_url",
	"submission_gallery_url",
}

var ErrEmptyDataset = errors.New("dataset has no rows")

type HeaderError struct {
	Missing []string
}

func (e *HeaderError) Error() string {
	return "dataset header missing columns: " + strings.Join(e.Missing, ", ")
}

type RowError struct {
	Line   int
	Column string
	Err    error
}

func (e *RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: column %s: %v", e.Line, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Write replaces path with the given records. The file is written next to
// its destination and renamed into place, so readers never see a partial file.
func Write(path string, records []model.Hackathon) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".hackathons-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := encode(tmp, records); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func encode(out io.Writer, records []model.Hackathon) error {
	w := csv.NewWriter(out)
	if err := w.Write(Header); err != nil {
		return err
	}
	for _, h := range records {
		if err := w.Write(toRow(h)); err != nil {
			return fmt.Errorf("write row %d: %w", h.ID, err)
		}
	}
	w.Flush()
	return w.Error()
}

func toRow(h model.Hackathon) []string {
	return []string{
		strconv.FormatInt(h.ID, 10),
		h.Title,
		h.URL,
		h.OrganizationName,
		h.Location,
		h.OpenState,
		h.SubmissionPeriodDates,
		h.TimeLeftToSubmission,
		h.PrizeAmount,
		strconv.Itoa(h.CashPrizesCount),
		strconv.Itoa(h.OtherPrizesCount),
		strconv.Itoa(h.RegistrationsCount),
		h.Themes,
		formatBool(h.Featured),
		formatBool(h.WinnersAnnounced),
		formatBool(h.InviteOnly),
		formatBool(h.ManagedByDevpost),
		h.ThumbnailURL,
		h.SubmissionGalleryURL,
	}
}

// Read loads every record from path. A missing file, a header without the
// expected columns, an unparsable value, a repeated id or a file without
// data rows is an error.
func Read(path string) ([]model.Hackathon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return decode(f)
}

func decode(in io.Reader) ([]model.Hackathon, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	header, width, err := readHeader(r)
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, err
	}

	var (
		records []model.Hackathon
		seen    = make(map[int64]int)
		line    = 1
	)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, err
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		if len(row) != width {
			return nil, &RowError{Line: line, Err: fmt.Errorf("row has %d fields, header has %d", len(row), width)}
		}

		h, err := parseRow(header, row, line)
		if err != nil {
			return nil, err
		}
		if first, dup := seen[h.ID]; dup {
			return nil, &RowError{Line: line, Column: "id", Err: fmt.Errorf("duplicate id %d (first seen on line %d)", h.ID, first)}
		}
		seen[h.ID] = line
		records = append(records, h)
	}

	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}
	return records, nil
}

// readHeader returns the column index by name and the header width.
func readHeader(r *csv.Reader) (map[string]int, int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, 0, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}

	var missing []string
	for _, name := range Header {
		if _, ok := header[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, 0, &HeaderError{Missing: missing}
	}
	return header, len(row), nil
}

func parseRow(header map[string]int, row []string, line int) (model.Hackathon, error) {
	p := rowParser{header: header, row: row, line: line}

	h := model.Hackathon{
		ID:                    p.int64Field("id"),
		Title:                 p.field("title"),
		URL:                   p.field("url"),
		OrganizationName:      p.field("organization_name"),
		Location:              p.field("location"),
		OpenState:             p.field("open_state"),
		SubmissionPeriodDates: p.field("submission_period_dates"),
		TimeLeftToSubmission:  p.field("time_left_to_submission"),
		PrizeAmount:           p.field("prize_amount"),
		CashPrizesCount:       p.intField("cash_prizes_count"),
		OtherPrizesCount:      p.intField("other_prizes_count"),
		RegistrationsCount:    p.intField("registrations_count"),
		Themes:                p.field("themes"),
		Featured:              p.boolField("featured"),
		WinnersAnnounced:      p.boolField("winners_announced"),
		InviteOnly:            p.boolField("invite_only"),
		ManagedByDevpost:      p.boolField("managed_by_devpost"),
		ThumbnailURL:          p.field("thumbnail_url"),
		SubmissionGalleryURL:  p.field("submission_gallery_url"),
	}
	if p.err != nil {
		return model.Hackathon{}, p.err
	}
	if h.ID == 0 {
		return model.Hackathon{}, &RowError{Line: line, Column: "id", Err: errors.New("missing id")}
	}
	return h, nil
}

// rowParser keeps the first conversion error so parseRow reads linearly.
type rowParser struct {
	header map[string]int
	row    []string
	line   int
	err    error
}

func (p *rowParser) field(key string) string {
	idx, ok := p.header[key]
	if !ok || idx >= len(p.row) {
		return ""
	}
	return strings.TrimSpace(p.row[idx])
}

func (p *rowParser) int64Field(key string) int64 {
	raw := p.field(key)
	if raw == "" {
		return 0
	}
	// pandas round-trips integer columns with gaps as floats ("12.0").
	raw = strings.TrimSuffix(raw, ".0")
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.fail(key, err)
		return 0
	}
	return n
}

func (p *rowParser) intField(key string) int {
	return int(p.int64Field(key))
}

func (p *rowParser) boolField(key string) bool {
	switch strings.ToLower(p.field(key)) {
	case "true", "1":
		return true
	case "false", "0", "":
		return false
	default:
		p.fail(key, fmt.Errorf("invalid boolean %q", p.field(key)))
		return false
	}
}

func (p *rowParser) fail(column string, err error) {
	if p.err == nil {
		p.err = &RowError{Line: p.line, Column: column, Err: err}
	}
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}
