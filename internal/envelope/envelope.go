package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrNoRecords indicates a message body with no recognizable storage-event record.
var ErrNoRecords = errors.New("no storage-event records in message body")

// Notification is one storage-event record decoded from a queue message body.
// SourceKey is fully decoded and ready for storage calls.
type Notification struct {
	SourceBucket string
	SourceKey    string
}

// storageEvent mirrors the wire shape of a single storage-event record.
type storageEvent struct {
	S3 struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"s3"`
}

type eventDocument struct {
	Records []storageEvent `json:"Records"`
}

// Decode parses a queue message body into notifications. Two shapes are
// accepted: a document with a Records array of storage-event records, or a
// body that is itself a single storage-event record. Object keys arrive
// percent/plus-encoded and are decoded here.
func Decode(body []byte) ([]Notification, error) {
	var doc eventDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode message body: %w", err)
	}

	records := doc.Records
	if len(records) == 0 {
		var single storageEvent
		if err := json.Unmarshal(body, &single); err == nil && single.S3.Bucket.Name != "" {
			records = []storageEvent{single}
		}
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	out := make([]Notification, 0, len(records))
	for _, r := range records {
		if r.S3.Bucket.Name == "" || r.S3.Object.Key == "" {
			return nil, fmt.Errorf("storage-event record missing bucket name or object key: %w", ErrNoRecords)
		}
		key, err := url.QueryUnescape(r.S3.Object.Key)
		if err != nil {
			return nil, fmt.Errorf("decode object key %q: %w", r.S3.Object.Key, err)
		}
		out = append(out, Notification{
			SourceBucket: r.S3.Bucket.Name,
			SourceKey:    key,
		})
	}
	return out, nil
}

// SplitKey splits a decoded object key into its file name and folder path.
// The folder path keeps its trailing separator; a key with no folder yields
// an empty folder path.
func SplitKey(key string) (fileName, folderPath string) {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:], key[:i+1]
	}
	return key, ""
}
