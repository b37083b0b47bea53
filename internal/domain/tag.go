package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Tag levels. Categories and subcategories form a two-level hierarchy,
// ordinary tags are flat labels.
const (
	LevelCategory    = 1
	LevelSubcategory = 2
	LevelOrdinaryTag = 9
)

// Tag is a classification label attachable to addons.
type Tag struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"` // Unique, derived from Name
	Level    int    `json:"level"`
	ParentID *int64 `json:"parent_id,omitempty"` // Only meaningful for subcategories
	Visible  bool   `json:"visible"`
}

// IsCategory reports whether the tag is a main category.
func (t *Tag) IsCategory() bool {
	return t.Level == LevelCategory
}

// IsSubcategory reports whether the tag is a subcategory.
func (t *Tag) IsSubcategory() bool {
	return t.Level == LevelSubcategory
}

// AddonTag is one row of the addon/tag association.
type AddonTag struct {
	AddonID int64 `json:"addon_id"`
	TagID   int64 `json:"tag_id"`
}

// TagRef is one entry of an addon's desired tag list: either a tag id
// or a free-form tag name that is resolved (and created if needed) on save.
type TagRef struct {
	ID   int64
	Name string
}

// TagRefFromTag references an existing tag.
func TagRefFromTag(t *Tag) TagRef {
	return TagRef{ID: t.ID}
}

// TagRefByID references a tag by id.
func TagRefByID(id int64) TagRef {
	return TagRef{ID: id}
}

// ParseTagRef interprets raw input. All-digit strings are ids,
// anything else is a tag name.
func ParseTagRef(raw string) TagRef {
	if isDigits(raw) {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return TagRef{ID: id}
		}
	}
	return TagRef{Name: raw}
}

// IsName reports whether the reference still needs name resolution.
func (r TagRef) IsName() bool {
	return r.Name != ""
}

// String implements fmt.Stringer.
func (r TagRef) String() string {
	if r.IsName() {
		return r.Name
	}
	return strconv.FormatInt(r.ID, 10)
}

// MarshalJSON encodes ids as numbers and names as strings.
func (r TagRef) MarshalJSON() ([]byte, error) {
	if r.IsName() {
		return json.Marshal(r.Name)
	}
	return json.Marshal(r.ID)
}

// UnmarshalJSON accepts a number, a string, or an object with an "id" field.
func (r *TagRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty tag reference")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ParseTagRef(s)
		return nil
	case '{':
		var obj struct {
			ID *int64 `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		if obj.ID == nil {
			return fmt.Errorf("tag reference object has no id")
		}
		*r = TagRef{ID: *obj.ID}
		return nil
	default:
		var id int64
		if err := json.Unmarshal(data, &id); err != nil {
			return fmt.Errorf("invalid tag reference %s: %w", data, err)
		}
		*r = TagRef{ID: id}
		return nil
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
