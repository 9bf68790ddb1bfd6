package report

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	"github.com/skillustad/proctor/core/capture"
)

// imagePlaceholder replaces raw capture data in exports to keep the
// download small.
const imagePlaceholder = "[Base64 Image Data]"

// Export renders the report as indented JSON. Capture image data is
// replaced by a placeholder; the capture metadata stays.
func (r *Report) Export() ([]byte, error) {
	clone := *r
	clone.Captures = make([]capture.Record, len(r.Captures))
	copy(clone.Captures, r.Captures)
	for i := range clone.Captures {
		clone.Captures[i].ImageRef = imagePlaceholder
	}

	data, err := json.MarshalIndent(&clone, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "exporting report")
	}
	return data, nil
}

// Filename is the suggested download name, dated by generation time.
func (r *Report) Filename() string {
	return fmt.Sprintf("interview-report-%s.json", r.GeneratedAt.Format("2006-01-02"))
}
