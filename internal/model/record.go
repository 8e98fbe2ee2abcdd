package model

import "time"

// DataRecord is the aggregate root: a document record with typed fields and
// uploaded file sections. Loaded either full (sections and fields populated)
// or as a summary with explicit store queries; there is no lazy loading.
type DataRecord struct {
	ID          int64
	Title       string
	Description string
	Fields      []Field
	Sections    []Section
	CreatedAt   time.Time
	ModifiedAt  time.Time
}

// Field is a typed name/value pair attached to a data record.
type Field struct {
	ID        int64
	Name      string
	Value     string
	CreatedAt time.Time
}

// Section is the metadata row for one uploaded file attached to a data
// record. StorageLocation is the key under which the file store holds the
// blob.
type Section struct {
	ID              int64
	FileName        string
	ContentType     string
	StorageLocation string
	CreatedAt       time.Time
}

// AddSection appends a section to the in-memory aggregate.
func (r *DataRecord) AddSection(s Section) {
	r.Sections = append(r.Sections, s)
}

// RemoveSection removes the section with the given id from the in-memory
// aggregate and returns it. The second return value is false when no section
// matched.
func (r *DataRecord) RemoveSection(sectionID int64) (Section, bool) {
	for i, s := range r.Sections {
		if s.ID == sectionID {
			r.Sections = append(r.Sections[:i], r.Sections[i+1:]...)
			return s, true
		}
	}
	return Section{}, false
}

// SectionsByID returns every section matching the given id. The coordinator
// uses this to detect both unknown ids and data-integrity violations
// (duplicate ids), which are client-input errors.
func (r *DataRecord) SectionsByID(sectionID int64) []Section {
	var matched []Section
	for _, s := range r.Sections {
		if s.ID == sectionID {
			matched = append(matched, s)
		}
	}
	return matched
}

// AddField appends a field to the in-memory aggregate.
func (r *DataRecord) AddField(f Field) {
	r.Fields = append(r.Fields, f)
}
