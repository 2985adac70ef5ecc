package csvio

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"bsp/finder/internal/domain"

	log "github.com/sirupsen/logrus"
)

// Result column names appended after the original input columns.
const (
	ColumnBSPWin   = "BSP Price Win"
	ColumnBSPPlace = "BSP Price Place"
)

// WriteResults writes one row per processed task attempt: all original
// input columns in their original order and casing, then the two BSP
// columns. Any prior file of the same name is replaced. An empty result
// set still produces a file with the full header.
func WriteResults(path string, header []string, results []domain.Task) error {
	if err := os.Remove(path); err == nil {
		log.Infof("Removed existing output file '%s'", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("remove existing output %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output %s: %w", path, err)
	}
	defer f.Close()

	// BOM so spreadsheet tools pick up UTF-8, matching the input encoding.
	if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM to %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	out := make([]string, 0, len(header)+2)
	out = append(out, header...)
	out = append(out, ColumnBSPWin, ColumnBSPPlace)
	if err := w.Write(out); err != nil {
		return fmt.Errorf("write header to %s: %w", path, err)
	}

	for _, t := range results {
		row := make([]string, 0, len(header)+2)
		for _, h := range header {
			row = append(row, t.Field(strings.ToLower(h)))
		}
		row = append(row, t.BSPWin, t.BSPPlace)
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row to %s: %w", path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush output %s: %w", path, err)
	}
	log.Infof("Saved %d result rows to '%s'", len(results), path)
	return nil
}
