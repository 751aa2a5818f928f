package actsched

import "github.com/rkallberg/actsched/internal/tag"

// Tag is an interned, name-keyed value used to index tasks. Two Tags with
// the same name compare equal; the registry that produced them guarantees
// the same canonical instance is returned for the same name while any
// strong reference to it survives.
type Tag struct {
	t *tag.Tag
}

// Name returns the tag's interned name.
func (t Tag) Name() string {
	if t.t == nil {
		return ""
	}
	return t.t.Name()
}

// Equal reports whether two tags share the same canonical identity.
func (t Tag) Equal(other Tag) bool {
	return t.t == other.t
}
