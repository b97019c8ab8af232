package transform

import (
	"context"
	"strings"
)

// Marker is the fixed structural prefix denoting the canonical multi-token
// file name format. Names carrying it are Rule A candidates.
const Marker = "SAM"

// Blinding status vocabulary, matched case-insensitively at any position.
const (
	blindedToken   = "BLINDED"
	unblindedToken = "UNBLINDED"
)

var monthNumbers = map[string]string{
	"JAN": "01", "FEB": "02", "MAR": "03", "APR": "04",
	"MAY": "05", "JUN": "06", "JUL": "07", "AUG": "08",
	"SEP": "09", "OCT": "10", "NOV": "11", "DEC": "12",
}

// Grammar is the deterministic field extractor. It tokenizes marker-prefixed
// file names, classifies the tokens, and canonicalizes the result. Names the
// grammar cannot fully and unambiguously resolve fall through to Rule B; the
// grammar never guesses a partial canonical name.
type Grammar struct{}

// Transform derives the target location for a staged file.
//
// Rule A (marker-prefixed, all required fields resolved): the file is renamed
// to blinding_dataset_date.extension under root/study/vendor/. Rule B
// (everything else): the original name is kept and the path falls back by
// tier depending on which of study and vendor were identified.
func (Grammar) Transform(_ context.Context, fileName, folderPath string) (TargetLocation, error) {
	rec, complete := parseFields(fileName, folderPath)
	if complete {
		vendor := rec.Vendor
		if vendor == "" {
			vendor = PlaceholderVendor
		}
		return TargetLocation{
			PathSegments: []string{RootSegment, rec.StudyName, vendor},
			FileName:     rec.BlindingStatus + "_" + rec.Dataset + "_" + rec.Date + "." + rec.Extension,
		}, nil
	}

	study := rec.StudyName
	vendor := rec.Vendor
	if study == "" {
		study = studyFromFolder(folderPath)
	}
	if study == "" {
		// Without a study there is nowhere to hang a vendor.
		study = PlaceholderStudy
		vendor = ""
	}
	if vendor == "" {
		vendor = PlaceholderVendor
	}
	return TargetLocation{
		PathSegments: []string{RootSegment, study, vendor},
		FileName:     fileName,
	}, nil
}

// parseFields runs the token grammar over a marker-prefixed name. It returns
// whatever fields it could identify plus whether the record is complete
// enough for Rule A: study, blinding status, dataset, date, and extension all
// resolved without ambiguity.
func parseFields(fileName, folderPath string) (FieldRecord, bool) {
	var rec FieldRecord
	if !strings.HasPrefix(fileName, Marker+"_") {
		return rec, false
	}

	dot := strings.LastIndex(fileName, ".")
	if dot <= 0 || dot == len(fileName)-1 {
		return rec, false
	}
	rec.Extension = fileName[dot+1:]

	// tokens[0] is the marker itself.
	body := strings.Split(fileName[:dot], "_")[1:]
	if len(body) == 0 {
		return rec, false
	}
	claimed := make([]bool, len(body))

	// The date always sits immediately before the extension.
	dateIdx := len(body) - 1
	date, dateOK := normalizeDate(body[dateIdx])
	if dateOK {
		rec.Date = date
		claimed[dateIdx] = true
	}

	// Blinding status: vocabulary match regardless of position. Two
	// candidates is an ambiguity, which forces Rule B.
	blindIdx, blindAmbiguous := -1, false
	for i, tok := range body {
		if claimed[i] {
			continue
		}
		up := strings.ToUpper(tok)
		if up == blindedToken || up == unblindedToken {
			if blindIdx >= 0 {
				blindAmbiguous = true
				break
			}
			blindIdx = i
		}
	}
	if blindIdx >= 0 && !blindAmbiguous {
		rec.BlindingStatus = body[blindIdx]
		claimed[blindIdx] = true
	}

	// Env is informational only, but locating it anchors the dataset rule.
	envIdx := -1
	for i, tok := range body {
		if !claimed[i] && (tok == "TEST" || tok == "PROD") {
			envIdx = i
			rec.Env = tok
			claimed[i] = true
			break
		}
	}

	// Study: the nominal position first, then any token matching a folder
	// path segment.
	segs := folderSegments(folderPath)
	studyIdx := -1
	if !claimed[0] && matchesSegment(segs, body[0]) {
		studyIdx = 0
	} else {
		for i, tok := range body {
			if !claimed[i] && matchesSegment(segs, tok) {
				studyIdx = i
				break
			}
		}
	}
	if studyIdx >= 0 {
		rec.StudyName = body[studyIdx]
		claimed[studyIdx] = true
	}

	// Vendor: the token immediately before the date, if still unclassified.
	// Vendors may contain spaces; underscore splitting keeps them whole.
	if dateOK && dateIdx-1 >= 0 && !claimed[dateIdx-1] {
		rec.Vendor = body[dateIdx-1]
		claimed[dateIdx-1] = true
	}

	// Dataset: the token squarely between env and blinding status when both
	// were located, otherwise the first remaining unclassified token.
	if envIdx >= 0 && blindIdx == envIdx+2 && !claimed[envIdx+1] {
		rec.Dataset = body[envIdx+1]
		claimed[envIdx+1] = true
	}
	if rec.Dataset == "" {
		for i, tok := range body {
			if !claimed[i] {
				rec.Dataset = tok
				claimed[i] = true
				break
			}
		}
	}
	if rec.Dataset == "" {
		rec.Dataset = PlaceholderDataset
	}

	complete := dateOK &&
		!blindAmbiguous &&
		rec.BlindingStatus != "" &&
		rec.StudyName != "" &&
		rec.Extension != ""
	return rec, complete
}

// normalizeDate accepts the two date encodings: pure 8-digit YYYYMMDD, or
// YYYYMMMDD with a 3-letter month abbreviation (2023APR18 -> 20230418).
func normalizeDate(tok string) (string, bool) {
	switch len(tok) {
	case 8:
		if !allDigits(tok) {
			return "", false
		}
		return tok, true
	case 9:
		if !allDigits(tok[:4]) || !allDigits(tok[7:]) {
			return "", false
		}
		month, ok := monthNumbers[strings.ToUpper(tok[4:7])]
		if !ok {
			return "", false
		}
		return tok[:4] + month + tok[7:], true
	}
	return "", false
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func folderSegments(folderPath string) []string {
	var segs []string
	for _, s := range strings.Split(folderPath, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func matchesSegment(segs []string, tok string) bool {
	for _, s := range segs {
		if s == tok {
			return true
		}
	}
	return false
}

// studyFromFolder identifies the study for names the grammar could not tie to
// a path segment. Staged keys follow <staging-root>/<study>/..., so the study
// is the last folder segment once the staging root is skipped; a single-level
// folder carries no study.
func studyFromFolder(folderPath string) string {
	segs := folderSegments(folderPath)
	if len(segs) < 2 {
		return ""
	}
	return segs[len(segs)-1]
}
