package catalog

// BuildSearchDocument projects a content aggregate into the denormalized
// shape kept in the search index. Media may be nil.
func BuildSearchDocument(content *Content, media *Media) SearchDocument {
	doc := SearchDocument{
		ID:              content.ID,
		Title:           content.Title,
		Description:     content.Description,
		Categories:      content.Categories,
		Language:        content.Language,
		Status:          string(content.Status),
		PublicationDate: content.PublicationDate,
		CreatedAt:       content.CreatedAt,
		UpdatedAt:       content.UpdatedAt,
	}
	if doc.Categories == nil {
		doc.Categories = []string{}
	}
	if media != nil {
		doc.MediaType = string(media.MediaType)
	}
	return doc
}
