package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-intel/internal/model"
)

// WriteDataPointsJSON writes data points as an indented JSON array.
func WriteDataPointsJSON(w io.Writer, points []model.DataPoint) error {
	if points == nil {
		points = []model.DataPoint{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(points), "json: encode data points")
}

// WriteChangesJSON writes detected changes as an indented JSON array.
func WriteChangesJSON(w io.Writer, changes []model.Change) error {
	if changes == nil {
		changes = []model.Change{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(changes), "json: encode changes")
}
