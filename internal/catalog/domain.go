// internal/catalog/domain.go
package catalog

// Unit statuses. Circulation flips these on checkout/return.
const (
	UnitAvailable    = "Available"
	UnitNotAvailable = "Not Available"
)

// Location sentinels written by the shelf locator when no reader sees the
// unit's tag.
const (
	LocationBorrowed = "Borrowed"
	LocationNotFound = "Not Found"
)

// Metadata describes a title at book_metadata/{meta_id}.
type Metadata struct {
	Title             string   `json:"title"`
	Author            string   `json:"author"`
	PreferredLocation string   `json:"preferred_location"`
	Cover             string   `json:"cover,omitempty"`
	Keywords          []string `json:"keywords,omitempty"`
	SecurityPass      string   `json:"security_pass,omitempty"`
}

// Unit is one physical, tagged copy at book_unit/{book_uid}. location is
// derived by the shelf locator; last_seen remembers the last reader that saw
// the tag.
type Unit struct {
	MetadataID   string `json:"metadata_id"`
	TagUID       string `json:"tag_uid"`
	Status       string `json:"status"`
	Location     string `json:"location"`
	LastSeen     string `json:"last_seen,omitempty"`
	SecurityPass string `json:"security_pass,omitempty"`
}
