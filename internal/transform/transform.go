package transform

import (
	"context"
	"fmt"
	"strings"
)

// RootSegment is the fixed structural prefix of every target path. It is a
// display/layout prefix only; Key strips it before building the physical key.
const RootSegment = "rtft"

// Placeholder values substituted when a field cannot be confidently identified.
const (
	PlaceholderStudy   = "unknownstudy"
	PlaceholderVendor  = "unknownvendor"
	PlaceholderDataset = "unknowndataset"
)

// FieldRecord holds the tokens identified in a staged file name. An empty
// string means the field was not identified.
type FieldRecord struct {
	StudyName      string
	Env            string
	Dataset        string
	BlindingStatus string
	Vendor         string
	Date           string // normalized YYYYMMDD
	Extension      string
}

// TargetLocation is the canonical destination of a staged file. PathSegments
// always begins with RootSegment and always ends with a vendor segment, real
// or placeholder.
type TargetLocation struct {
	PathSegments []string
	FileName     string
}

// Path renders the display path with a trailing separator, e.g.
// "rtft/P23-380/UC lab/".
func (t TargetLocation) Path() string {
	return strings.Join(t.PathSegments, "/") + "/"
}

// Key returns the physical object key: the root segment is stripped and the
// file name appended.
func (t TargetLocation) Key() string {
	segs := t.PathSegments
	if len(segs) > 0 && segs[0] == RootSegment {
		segs = segs[1:]
	}
	parts := make([]string, 0, len(segs)+1)
	parts = append(parts, segs...)
	parts = append(parts, t.FileName)
	return strings.Join(parts, "/")
}

// Transformer derives the canonical destination for a staged file from its
// original name and folder path. Implementations must be pure with respect to
// their inputs: same name and path, same location.
type Transformer interface {
	Transform(ctx context.Context, fileName, folderPath string) (TargetLocation, error)
}

// ExtractionError indicates the field extractor produced no usable result:
// missing response, non-JSON output, or output missing required keys. It is
// per-file and retryable, never a guessed result.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("field extraction failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("field extraction failed: %s", e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
