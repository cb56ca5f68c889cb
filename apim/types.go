package apim

import (
	"encoding/json"
	"strings"
)

// ContentItem is an item exactly as the API returned it.  The portal owns the schema, so we never
// decode it into a struct; fields and their order go back out untouched.
type ContentItem = json.RawMessage

// ContentType is an entry of the /contentTypes listing.  We only care about the ID.
type ContentType struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Key is the trailing path segment of the ID, e.g. "page" for
// "/contentTypes/page".
func (c ContentType) Key() string {
	return lastSegment(c.ID)
}

// ListResponse is the envelope of every paged management listing.
type ListResponse[T any] struct {
	Value []T `json:"value"`

	// Absolute URL of the next page.  Absent on the last page.
	NextLink string `json:"nextLink,omitempty"`
}

// MediaSecrets is the response of listMediaContentSecrets.
type MediaSecrets struct {
	ContainerSASURL string `json:"containerSasUrl"`
}

func lastSegment(id string) string {
	id = strings.TrimRight(id, "/")
	if i := strings.LastIndexByte(id, '/'); i >= 0 {
		return id[i+1:]
	}
	return id
}
