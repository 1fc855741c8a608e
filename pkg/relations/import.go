package relations

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/hashicorp/go-multierror"
)

// ErrInvalidRow is returned for report rows that cannot be parsed.
var ErrInvalidRow = errors.New("invalid report row")

// ImportRow is one line of a relationship report. Subject, Action and
// Object are descriptions; an empty one means the part was not coded.
type ImportRow struct {
	StoryID    int64
	EventID    int64
	SequenceID int64
	TripletID  int64
	Subject    string
	Action     string
	Object     string
}

// reportFields is the column order of a relationship report.
var reportFields = []string{
	"story_id", "event_id", "sequence_id", "triplet_id",
	"subject", "action", "object",
}

// ReadImport parses a relationship report. The first line is a header and
// is skipped. Every malformed line is reported.
func ReadImport(r io.Reader) ([]ImportRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(reportFields)
	cr.ReuseRecord = true

	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("read report header: %w", err)
	}

	var (
		rows   []ImportRow
		result *multierror.Error
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) && perr.Err == csv.ErrFieldCount {
				result = multierror.Append(result, fmt.Errorf("line %d: %d fields, want %d: %w", perr.StartLine, len(rec), len(reportFields), ErrInvalidRow))
				continue
			}
			return nil, fmt.Errorf("read report: %w", err)
		}
		line, _ := cr.FieldPos(0)

		var ids [4]int64
		bad := false
		for i := range ids {
			v, err := strconv.ParseInt(rec[i], 10, 64)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("line %d: %s %q: %w", line, reportFields[i], rec[i], ErrInvalidRow))
				bad = true
				continue
			}
			ids[i] = v
		}
		if bad {
			continue
		}
		rows = append(rows, ImportRow{
			StoryID:    ids[0],
			EventID:    ids[1],
			SequenceID: ids[2],
			TripletID:  ids[3],
			Subject:    rec[4],
			Action:     rec[5],
			Object:     rec[6],
		})
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return rows, nil
}
