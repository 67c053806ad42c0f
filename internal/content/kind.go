// Package content defines the editable site content (kinds, records and the
// finances settings) and the accessor that persists it in a kv.Store.
package content

import (
	"fmt"
	"strings"
)

type Kind string

const (
	Projects Kind = "projects"
	Members  Kind = "members"
	Finances Kind = "finances"
)

// SettingsKey holds the finances settings object.
const SettingsKey = "finances_data"

const storageKeyPrefix = "page:"

var kinds = []Kind{Projects, Members, Finances}

// Kinds returns every supported kind in edit-page order.
func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	copy(out, kinds)
	return out
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown kind: %q (expected projects|members|finances)", s)
}

func (k Kind) String() string { return string(k) }

// StorageKey is the key holding the kind's collection.
func (k Kind) StorageKey() string { return storageKeyPrefix + string(k) }

// IsList reports whether the kind is edited as an indexed list of records.
// Finances is a single settings record.
func (k Kind) IsList() bool { return k == Projects || k == Members }

// Singular names one entry of the kind ("project", "member", "finance").
func (k Kind) Singular() string {
	return strings.TrimSuffix(string(k), "s")
}

// Title is the heading used for the kind's edit section.
func (k Kind) Title() string {
	switch k {
	case Projects:
		return "Edit Projects Page"
	case Members:
		return "Edit Members Page"
	case Finances:
		return "Edit Finances Page"
	}
	return string(k)
}

// Fields lists the record fields a kind's form submits, in form order.
func (k Kind) Fields() []string {
	switch k {
	case Projects:
		return []string{"title", "image", "cost", "description"}
	case Members:
		return []string{"name", "image", "role", "bio", "teams"}
	case Finances:
		return settingsFields()
	}
	return nil
}

// ImageFields lists the fields that carry embedded image data.
func (k Kind) ImageFields() []string {
	switch k {
	case Projects, Members:
		return []string{"image"}
	case Finances:
		return []string{"ftcImageData"}
	}
	return nil
}
