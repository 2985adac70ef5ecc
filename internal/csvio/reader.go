package csvio

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"bsp/finder/internal/domain"

	log "github.com/sirupsen/logrus"
)

var requiredColumns = []string{"time", "venue", "code", "raceno", "runnerno", "runnername"}

// Input is the parsed task list plus the original header, which the
// writer needs to reproduce column order and casing in the output.
type Input struct {
	Header  []string
	Tasks   []domain.Task
	Dropped int // rows still malformed after repair
}

// ReadTasks loads the input CSV. Header matching is case-insensitive and a
// "date" column is accepted as an alias for "time". Rows with too many
// fields are repaired by folding the extras into the odds column by
// position; short rows are padded; rows with zero non-empty fields are
// skipped silently; anything still malformed is dropped and counted.
func ReadTasks(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(stripBOM(f))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	lower := make([]string, len(header))
	for i, h := range header {
		lower[i] = strings.ToLower(h)
	}

	if missing := missingRequired(lower); len(missing) > 0 {
		return nil, fmt.Errorf("input %s is missing required columns: %s", path, strings.Join(missing, ", "))
	}

	oddsIdx := -1
	for i, h := range lower {
		if h == "odds" {
			oddsIdx = i
			break
		}
	}

	in := &Input{Header: header}
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d of %s: %w", line+1, path, err)
		}
		line++

		if blankRow(row) {
			continue
		}
		row, ok := repairRow(row, len(header), oddsIdx)
		if !ok {
			log.Warnf("CSV: row #%d still malformed after repair, dropping", line)
			in.Dropped++
			continue
		}
		in.Tasks = append(in.Tasks, rowToTask(lower, row))
	}

	log.Infof("CSV: loaded %d tasks from '%s' (%d dropped)", len(in.Tasks), path, in.Dropped)
	return in, nil
}

// stripBOM removes a leading UTF-8 byte order mark, which Excel exports
// tend to carry.
func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		br.Discard(3)
	}
	return br
}

func missingRequired(lower []string) []string {
	have := make(map[string]bool, len(lower))
	for _, h := range lower {
		have[h] = true
	}
	if !have["time"] && have["date"] {
		have["time"] = true // alias
	}
	var missing []string
	for _, c := range requiredColumns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

func blankRow(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// repairRow normalizes a row to the header width. Extra fields usually
// come from unquoted commas inside an odds value, so they are folded into
// the odds column by position.
func repairRow(row []string, width, oddsIdx int) ([]string, bool) {
	switch {
	case len(row) == width:
		return row, true
	case len(row) < width:
		padded := make([]string, width)
		copy(padded, row)
		return padded, true
	case oddsIdx < 0:
		return nil, false
	default:
		extra := len(row) - width
		combined := strings.Join(row[oddsIdx:oddsIdx+1+extra], "")
		repaired := make([]string, 0, width)
		repaired = append(repaired, row[:oddsIdx]...)
		repaired = append(repaired, combined)
		repaired = append(repaired, row[oddsIdx+1+extra:]...)
		if len(repaired) != width {
			return nil, false
		}
		return repaired, true
	}
}

func rowToTask(lower []string, row []string) domain.Task {
	t := domain.Task{Extra: map[string]string{}}
	hasTime := false
	for _, h := range lower {
		if h == "time" {
			hasTime = true
			break
		}
	}
	for i, h := range lower {
		v := strings.TrimSpace(row[i])
		switch {
		case h == "time", h == "date" && !hasTime:
			t.Time = v
		case h == "venue":
			t.Venue = v
		case h == "code":
			t.Code = v
		case h == "raceno":
			t.RaceNo = v
		case h == "runnerno":
			t.RunnerNo = v
		case h == "runnername":
			t.RunnerName = v
		default:
			t.Extra[h] = v
		}
	}
	return t
}
