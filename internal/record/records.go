package record

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"
)

// Records is an ordered batch of candidates travelling through the pipeline.
type Records struct {
	Items []Record
}

// ContactedRecords is the persisted list of candidates that were already contacted
// or explicitly excluded by the operator.
type ContactedRecords struct {
	Items []*ContactedRecord
}

type ContactedRecord struct {
	ID          string
	Name        string
	Position    string
	Action      string
	ContactedAt time.Time
}

// Decode parses a JSON array of candidate objects.
func Decode(data []byte) (*Records, error) {
	var items []Record
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	return &Records{Items: items}, nil
}

// FromFile reads a JSON array of candidate objects.
func FromFile(path string) (*Records, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func (r *Records) Len() int {
	return len(r.Items)
}

func (r *Records) FindByID(id string) Record {
	for _, item := range r.Items {
		if item.ID() == id {
			return item
		}
	}
	return nil
}

// Exclude removes every record whose id is listed and returns the removed ids.
// Order of the remaining records is preserved.
func (r *Records) Exclude(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	return r.ExcludeFunc(func(item Record) bool {
		return slices.Contains(ids, item.ID())
	})
}

// ExcludeFunc removes every record drop reports true for and returns their ids.
func (r *Records) ExcludeFunc(drop func(Record) bool) []string {
	var excluded []string
	kept := r.Items[:0]
	for _, item := range r.Items {
		if drop(item) {
			excluded = append(excluded, item.ID())
			continue
		}
		kept = append(kept, item)
	}
	clear(r.Items[len(kept):])
	r.Items = kept
	return excluded
}

// DumpToTmpFile writes the batch to a temporary JSON file and returns its name.
func (r *Records) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "candidates_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.Items); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// DecodeContacted parses a persisted contacted list. Empty input is an empty list.
func DecodeContacted(data []byte) (*ContactedRecords, error) {
	if len(data) == 0 {
		return &ContactedRecords{}, nil
	}

	var contacted ContactedRecords
	if err := json.Unmarshal(data, &contacted); err != nil {
		return nil, err
	}
	return &contacted, nil
}

// ContactedFromFile reads a contacted list from disk. A missing or empty file is an
// empty list.
func ContactedFromFile(path string) (*ContactedRecords, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ContactedRecords{}, nil
		}
		return nil, err
	}
	return DecodeContacted(data)
}

func (c *ContactedRecords) Append(s *ContactedRecords) {
	c.Items = append(c.Items, s.Items...)
}

func (c *ContactedRecords) IDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func (c *ContactedRecords) Encode() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

func (c *ContactedRecords) ToFile(path string) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
