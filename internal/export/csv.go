package export

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-intel/internal/model"
)

// WriteDataPointsCSV writes data points as CSV with a header row.
func WriteDataPointsCSV(w io.Writer, points []model.DataPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(dataPointHeader()); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, dp := range points {
		if err := cw.Write(dataPointRow(dp)); err != nil {
			return eris.Wrap(err, "csv: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}

// WriteChangesCSV writes detected changes as CSV with a header row.
func WriteChangesCSV(w io.Writer, changes []model.Change) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(changeHeader()); err != nil {
		return eris.Wrap(err, "csv: write header")
	}
	for _, c := range changes {
		if err := cw.Write(changeRow(c)); err != nil {
			return eris.Wrap(err, "csv: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "csv: flush")
}
