package catalog

import (
	"fmt"

	"github.com/google/uuid"
)

// Cache key families. The CMS path owns content:{id} and media:{id}; the
// discovery hydrator keeps its own disc:-prefixed copies so discovery
// traffic never competes with CMS entries. There is deliberately no list
// key: list reads always hit the store (see ListContent).
const (
	contentKeyPrefix       = "content:"
	mediaKeyPrefix         = "media:"
	DiscoveryContentPrefix = "disc:content:"
	DiscoveryMediaPrefix   = "disc:media:"
)

// ContentKey returns the cache key holding the hydrated ContentDetail DTO.
func ContentKey(id uuid.UUID) string {
	return fmt.Sprintf("%s%s", contentKeyPrefix, id)
}

// MediaKey returns the cache key holding the media DTO alone.
func MediaKey(id uuid.UUID) string {
	return fmt.Sprintf("%s%s", mediaKeyPrefix, id)
}

// DiscoveryContentKey returns the discovery-layer copy of ContentKey.
func DiscoveryContentKey(id uuid.UUID) string {
	return fmt.Sprintf("%s%s", DiscoveryContentPrefix, id)
}

// DiscoveryMediaKey returns the discovery-layer copy of MediaKey.
func DiscoveryMediaKey(id uuid.UUID) string {
	return fmt.Sprintf("%s%s", DiscoveryMediaPrefix, id)
}
