package scraper

// Content is implemented by anything the formatter can render.
type Content interface {
	ToHTML() (string, error)
	ToText() (string, error)
	ToMarkdown() (string, error)
	ToJSON() ([]byte, error)
}

// Profile describes where a site keeps its article markup.
type Profile struct {
	Name      string
	Container string // primary content container, first match wins
	Blocks    string // text-bearing elements inside the container
	Title     string // chapter heading, searched in the whole document
}

// Merge returns p with every non-empty field of o applied on top.
func (p Profile) Merge(o Profile) Profile {
	if o.Name != "" {
		p.Name = o.Name
	}
	if o.Container != "" {
		p.Container = o.Container
	}
	if o.Blocks != "" {
		p.Blocks = o.Blocks
	}
	if o.Title != "" {
		p.Title = o.Title
	}
	return p
}
