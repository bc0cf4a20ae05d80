package notion

// RichText is one run of text inside a block or title property.
type RichText struct {
	Type string   `json:"type"`
	Text TextSpan `json:"text"`
}

// TextSpan carries the literal content of a rich text run.
type TextSpan struct {
	Content string `json:"content"`
}

func newRichText(s string) []RichText {
	return []RichText{{Type: "text", Text: TextSpan{Content: s}}}
}

// Block is the subset of the service's block object the mirror writes:
// paragraph blocks for text and external file blocks for everything else.
type Block struct {
	Object    string     `json:"object"`
	Type      string     `json:"type"`
	Paragraph *Paragraph `json:"paragraph,omitempty"`
	File      *File      `json:"file,omitempty"`
}

// Paragraph holds the rich text of a paragraph block.
type Paragraph struct {
	RichText []RichText `json:"rich_text"`
}

// File describes an externally hosted file reference.
type File struct {
	Type     string       `json:"type"`
	External ExternalFile `json:"external"`
	Name     string       `json:"name,omitempty"`
}

// ExternalFile points at a file the service does not host itself.
type ExternalFile struct {
	URL string `json:"url"`
}

// ParagraphBlock builds a paragraph block holding one text chunk.
func ParagraphBlock(text string) Block {
	return Block{
		Object:    "block",
		Type:      "paragraph",
		Paragraph: &Paragraph{RichText: newRichText(text)},
	}
}

// FileBlock builds an external file block with a display name.
func FileBlock(name, url string) Block {
	return Block{
		Object: "block",
		Type:   "file",
		File:   &File{Type: "external", External: ExternalFile{URL: url}, Name: name},
	}
}

// Parent identifies the page a new page is created under.
type Parent struct {
	PageID string `json:"page_id"`
}

// Properties carries the only property the mirror sets, the page title.
type Properties struct {
	Title TitleProperty `json:"title"`
}

// TitleProperty is the title property value.
type TitleProperty struct {
	Title []RichText `json:"title"`
}

// CreatePageRequest is the body of POST /v1/pages.
type CreatePageRequest struct {
	Parent     Parent     `json:"parent"`
	Properties Properties `json:"properties"`
}

// Page is the slice of the page object the client reads back.
type Page struct {
	ID string `json:"id"`
}

// AppendChildrenRequest is the body of PATCH /v1/blocks/{id}/children.
type AppendChildrenRequest struct {
	Children []Block `json:"children"`
}
