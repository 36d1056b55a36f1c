package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	solana_metadata "github.com/code-payments/code-launchpad/pkg/solana/metadata"
)

// MaxURILength is the ceiling the token metadata program puts on the URI.
const MaxURILength = solana_metadata.MaxURILength

const (
	DefaultProbeTimeout  = 5 * time.Second
	DefaultUploadTimeout = 15 * time.Second

	inlinePrefix = "data:application/json;base64,"
)

var (
	ErrURITooLong             = errors.Errorf("uri exceeds %d characters", MaxURILength)
	ErrInvalidPlaceholderBase = errors.New("placeholder base must be an absolute http(s) url")
)

// Tier names the strategy that produced a reference.
type Tier string

const (
	TierPrimary     Tier = "primary"
	TierAlternate   Tier = "alternate"
	TierInline      Tier = "inline"
	TierPlaceholder Tier = "placeholder"
)

// Strategy is one way of turning a Request into an on-ledger URI.
type Strategy interface {
	Tier() Tier
	Publish(ctx context.Context, req *Request) (string, error)
}

type primaryStoreStrategy struct {
	store         ObjectStore
	probeTimeout  time.Duration
	uploadTimeout time.Duration
}

// PrimaryStoreStrategy probes store and, when reachable, uploads the image
// and document under a fresh path.
func PrimaryStoreStrategy(store ObjectStore, probeTimeout, uploadTimeout time.Duration) Strategy {
	if probeTimeout <= 0 {
		probeTimeout = DefaultProbeTimeout
	}
	if uploadTimeout <= 0 {
		uploadTimeout = DefaultUploadTimeout
	}
	return &primaryStoreStrategy{
		store:         store,
		probeTimeout:  probeTimeout,
		uploadTimeout: uploadTimeout,
	}
}

func (s *primaryStoreStrategy) Tier() Tier {
	return TierPrimary
}

func (s *primaryStoreStrategy) Publish(ctx context.Context, req *Request) (string, error) {
	probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	err := s.store.Probe(probeCtx)
	cancel()
	if err != nil {
		return "", errors.Wrap(ErrStoreUnavailable, err.Error())
	}

	prefix := "metadata/" + uuid.NewString()
	return upload(ctx, s.store, s.uploadTimeout, req, func(kind string, _ []byte) string {
		if kind == "image" {
			return prefix + "/image." + req.imageExtension()
		}
		return prefix + "/metadata.json"
	})
}

type alternateStoreStrategy struct {
	store         ObjectStore
	uploadTimeout time.Duration
}

// AlternateStoreStrategy uploads to a content addressable store, naming
// every object by the sha256 of its contents.
func AlternateStoreStrategy(store ObjectStore, uploadTimeout time.Duration) Strategy {
	if uploadTimeout <= 0 {
		uploadTimeout = DefaultUploadTimeout
	}
	return &alternateStoreStrategy{
		store:         store,
		uploadTimeout: uploadTimeout,
	}
}

func (s *alternateStoreStrategy) Tier() Tier {
	return TierAlternate
}

func (s *alternateStoreStrategy) Publish(ctx context.Context, req *Request) (string, error) {
	return upload(ctx, s.store, s.uploadTimeout, req, func(_ string, data []byte) string {
		return ContentAddress(data)
	})
}

// ContentAddress is the hex encoded sha256 of data.
func ContentAddress(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

func upload(ctx context.Context, store ObjectStore, timeout time.Duration, req *Request, pathFor func(kind string, data []byte) string) (string, error) {
	doc := req.Document
	if len(req.Image) > 0 {
		uploadCtx, cancel := context.WithTimeout(ctx, timeout)
		imageURI, err := store.Put(uploadCtx, pathFor("image", req.Image), req.imageContentType(), req.Image)
		cancel()
		if err != nil {
			return "", errors.Wrap(err, "error uploading image")
		}
		doc = doc.WithImage(imageURI, req.imageContentType())
	} else if len(req.ImageURI) > 0 {
		doc = doc.WithImage(req.ImageURI, req.imageContentType())
	}

	encoded, err := doc.Marshal()
	if err != nil {
		return "", errors.Wrap(err, "error marshalling document")
	}

	uploadCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	uri, err := store.Put(uploadCtx, pathFor("document", encoded), "application/json", encoded)
	if err != nil {
		return "", errors.Wrap(err, "error uploading document")
	}
	return uri, nil
}

type inlineStrategy struct {
	placeholderBase string
}

// InlineStrategy embeds the document as a base64 data URI. When that exceeds
// MaxURILength, a placeholder URL keyed by the symbol is returned instead.
// It never fails.
func InlineStrategy(placeholderBase string) Strategy {
	return &inlineStrategy{placeholderBase: placeholderBase}
}

func (s *inlineStrategy) Tier() Tier {
	return TierInline
}

func (s *inlineStrategy) Publish(_ context.Context, req *Request) (string, error) {
	doc := req.Document
	if len(req.ImageURI) > 0 {
		doc = doc.WithImage(req.ImageURI, req.imageContentType())
	}

	encoded, err := doc.Marshal()
	if err == nil {
		uri := InlineURI(encoded)
		if len(uri) <= MaxURILength {
			return uri, nil
		}
	}

	return PlaceholderURI(s.placeholderBase, req.Document.Symbol), nil
}

// InlineURI is the data URI embedding a JSON document.
func InlineURI(document []byte) string {
	return inlinePrefix + base64.StdEncoding.EncodeToString(document)
}

// ValidatePlaceholderBase checks that base produces absolute placeholder URIs
// with room left for a symbol.
func ValidatePlaceholderBase(base string) error {
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || len(u.Host) == 0 {
		return errors.Wrapf(ErrInvalidPlaceholderBase, "got %q", base)
	}
	if len(strings.TrimRight(base, "/"))+len("/x.json") > MaxURILength {
		return errors.Wrap(ErrInvalidPlaceholderBase, "base leaves no room for a symbol")
	}
	return nil
}

// PlaceholderURI returns "<base>/<symbol>.json" with the symbol lowercased
// and escaped, truncated so the result never exceeds MaxURILength.
func PlaceholderURI(base, symbol string) string {
	base = strings.TrimRight(base, "/")
	const suffix = ".json"

	escaped := url.PathEscape(strings.ToLower(symbol))
	if len(escaped) == 0 {
		escaped = "token"
	}

	budget := MaxURILength - len(base) - 1 - len(suffix)
	if budget <= 0 {
		if len(base) > MaxURILength {
			return base[:MaxURILength]
		}
		return base
	}
	if len(escaped) > budget {
		escaped = escaped[:budget]
		// Don't leave a dangling percent escape
		if i := strings.LastIndexByte(escaped, '%'); i >= 0 && i > len(escaped)-3 {
			escaped = escaped[:i]
		}
	}
	return base + "/" + escaped + suffix
}
