package domain

import "time"

// File is a catalog imported into the store.
type File struct {
	ID     int64  `json:"id"`
	Path   string `json:"path"`
	Format string `json:"format"`
	Locale string `json:"locale"`
	// SourceLanguage is the TS sourcelanguage attribute, often empty.
	SourceLanguage string    `json:"source_language"`
	Version        string    `json:"version"`
	Hash           string    `json:"hash"`
	CreatedAt      time.Time `json:"created_at"`
}

// Unit is a message's identity within a stored file. MetadataRaw holds the
// TS fields that do not take part in lookup (locations, extra comments).
type Unit struct {
	ID          int64     `json:"id"`
	FileID      int64     `json:"file_id"`
	Context     string    `json:"context"`
	SourceText  string    `json:"source_text"`
	Comment     string    `json:"comment"`
	Numerus     bool      `json:"numerus"`
	MetadataRaw string    `json:"metadata_json"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *Unit) Key() Key { return Key{Context: u.Context, Source: u.SourceText, Comment: u.Comment} }

// UnitMetadata is the JSON stored in Unit.MetadataRaw.
type UnitMetadata struct {
	ID                string     `json:"id,omitempty"`
	ContextComment    string     `json:"context_comment,omitempty"`
	OldSource         string     `json:"old_source,omitempty"`
	OldComment        string     `json:"old_comment,omitempty"`
	ExtraComment      string     `json:"extra_comment,omitempty"`
	TranslatorComment string     `json:"translator_comment,omitempty"`
	Locations         []Location `json:"locations,omitempty"`
}
