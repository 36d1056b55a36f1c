package metadata

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Document is the off-ledger JSON document in the Metaplex token standard
// shape that the on-ledger URI points at.
type Document struct {
	Name        string      `json:"name"`
	Symbol      string      `json:"symbol"`
	Description string      `json:"description,omitempty"`
	Image       string      `json:"image,omitempty"`
	ExternalURL string      `json:"external_url,omitempty"`
	Attributes  []Attribute `json:"attributes,omitempty"`
	Properties  *Properties `json:"properties,omitempty"`
	Extensions  *Extensions `json:"extensions,omitempty"`
}

type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

type Properties struct {
	Category string `json:"category,omitempty"`
	Files    []File `json:"files,omitempty"`
}

type File struct {
	URI  string `json:"uri"`
	Type string `json:"type"`
}

// Extensions carries the project links wallets and explorers display.
type Extensions struct {
	Website  string `json:"website,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	Telegram string `json:"telegram,omitempty"`
}

func (d *Document) Validate() error {
	if d == nil {
		return errors.New("document is nil")
	}
	if len(d.Name) == 0 {
		return errors.New("name is required")
	}
	if len(d.Symbol) == 0 {
		return errors.New("symbol is required")
	}
	return nil
}

// WithImage returns a copy of the document that references imageURI.
func (d *Document) WithImage(imageURI, contentType string) *Document {
	cloned := d.Clone()
	cloned.Image = imageURI
	if len(imageURI) > 0 {
		cloned.Properties = &Properties{
			Category: "image",
			Files:    []File{{URI: imageURI, Type: contentType}},
		}
	}
	return cloned
}

func (d *Document) Clone() *Document {
	cloned := *d
	if d.Attributes != nil {
		cloned.Attributes = append([]Attribute(nil), d.Attributes...)
	}
	if d.Properties != nil {
		properties := *d.Properties
		properties.Files = append([]File(nil), d.Properties.Files...)
		cloned.Properties = &properties
	}
	if d.Extensions != nil {
		extensions := *d.Extensions
		cloned.Extensions = &extensions
	}
	return &cloned
}

func (d *Document) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// Request is everything needed to publish the metadata of one asset.
type Request struct {
	Document *Document

	// Image is optional. ImageContentType defaults to image/png.
	Image            []byte
	ImageContentType string

	// ImageURI is an already hosted image, used when Image is empty.
	ImageURI string
}

func (r *Request) Validate() error {
	if r == nil {
		return errors.New("request is nil")
	}
	return r.Document.Validate()
}

func (r *Request) imageContentType() string {
	if len(r.ImageContentType) == 0 {
		return "image/png"
	}
	return r.ImageContentType
}

func (r *Request) imageExtension() string {
	switch r.imageContentType() {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/svg+xml":
		return "svg"
	default:
		return "png"
	}
}
