package domain

import "strings"

// Status is the completion state of a message translation.
type Status string

const (
	StatusFinished   Status = "finished"
	StatusUnfinished Status = "unfinished"
	StatusVanished   Status = "vanished"
	StatusObsolete   Status = "obsolete"
)

// ParseStatus maps a TS translation type attribute to a Status. An empty
// attribute means the translation is finished.
func ParseStatus(attr string) (Status, bool) {
	switch attr {
	case "", string(StatusFinished):
		return StatusFinished, true
	case string(StatusUnfinished):
		return StatusUnfinished, true
	case string(StatusVanished):
		return StatusVanished, true
	case string(StatusObsolete):
		return StatusObsolete, true
	}
	return "", false
}

// Attr is the TS type attribute for the status; finished has none.
func (s Status) Attr() string {
	if s == StatusFinished || s == "" {
		return ""
	}
	return string(s)
}

// Stale reports whether the message no longer exists in the extracted sources.
func (s Status) Stale() bool { return s == StatusVanished || s == StatusObsolete }

// Catalog is one translation resource: a target language and its contexts.
type Catalog struct {
	Version        string     `json:"version"`
	Language       string     `json:"language"`
	SourceLanguage string     `json:"source_language"`
	Contexts       []*Context `json:"contexts"`
}

type Context struct {
	Name     string     `json:"name"`
	Comment  string     `json:"comment"`
	Messages []*Message `json:"messages"`
}

type Location struct {
	Filename string `json:"filename"`
	// Line is kept verbatim; lupdate writes relative lines like "+3".
	Line string `json:"line"`
}

type Message struct {
	ID                string     `json:"id"`
	Source            string     `json:"source"`
	OldSource         string     `json:"old_source"`
	Comment           string     `json:"comment"`
	OldComment        string     `json:"old_comment"`
	ExtraComment      string     `json:"extra_comment"`
	TranslatorComment string     `json:"translator_comment"`
	Locations         []Location `json:"locations"`
	Numerus           bool       `json:"numerus"`
	Translation       string     `json:"translation"`
	NumerusForms      []string   `json:"numerus_forms"`
	Status            Status     `json:"status"`
}

// Key identifies a message inside a catalog. Comment is the disambiguation.
type Key struct {
	Context string
	Source  string
	Comment string
}

// Entry is the flat (context, source, translation, status) tuple of a message.
type Entry struct {
	Context     string
	Source      string
	Comment     string
	Translation string
	Status      Status
}

func (e Entry) Key() Key { return Key{Context: e.Context, Source: e.Source, Comment: e.Comment} }

// NewCatalog returns an empty catalog in the current TS format version.
func NewCatalog(language string) *Catalog {
	return &Catalog{Version: "2.1", Language: language}
}

// Context returns the first context with the given name.
func (c *Catalog) Context(name string) *Context {
	for _, ctx := range c.Contexts {
		if ctx.Name == name {
			return ctx
		}
	}
	return nil
}

// EnsureContext returns the named context, appending it when absent.
func (c *Catalog) EnsureContext(name string) *Context {
	if ctx := c.Context(name); ctx != nil {
		return ctx
	}
	ctx := &Context{Name: name}
	c.Contexts = append(c.Contexts, ctx)
	return ctx
}

// Entries flattens the catalog in document order.
func (c *Catalog) Entries() []Entry {
	var out []Entry
	for _, ctx := range c.Contexts {
		for _, m := range ctx.Messages {
			out = append(out, m.Entry(ctx.Name))
		}
	}
	return out
}

// Len is the number of messages across all contexts.
func (c *Catalog) Len() int {
	n := 0
	for _, ctx := range c.Contexts {
		n += len(ctx.Messages)
	}
	return n
}

// Each calls fn for every message in document order.
func (c *Catalog) Each(fn func(ctx *Context, m *Message)) {
	for _, ctx := range c.Contexts {
		for _, m := range ctx.Messages {
			fn(ctx, m)
		}
	}
}

func (m *Message) Key(context string) Key {
	return Key{Context: context, Source: m.Source, Comment: m.Comment}
}

// Entry flattens the message. Numerus forms are joined with a newline so
// that tuples of plural messages still compare.
func (m *Message) Entry(context string) Entry {
	text := m.Translation
	if m.Numerus {
		text = strings.Join(m.NumerusForms, "\n")
	}
	return Entry{Context: context, Source: m.Source, Comment: m.Comment, Translation: text, Status: m.Status}
}

// HasText reports whether the message carries any translated text.
func (m *Message) HasText() bool {
	if m.Numerus {
		for _, f := range m.NumerusForms {
			if f != "" {
				return true
			}
		}
		return false
	}
	return m.Translation != ""
}

// Display returns the text a UI shows for this message: the translation
// when finished and non-empty, the source otherwise.
func (m *Message) Display() string {
	if m.Status == StatusFinished && m.Translation != "" {
		return m.Translation
	}
	return m.Source
}
