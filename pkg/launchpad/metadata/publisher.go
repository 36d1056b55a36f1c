package metadata

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-launchpad/pkg/metrics"
)

const metricsStructName = "metadata.publisher"

// Reference is the outcome of publishing.
type Reference struct {
	URI  string
	Tier Tier
}

// Publisher walks an ordered list of strategies until one produces a URI
// that fits on ledger.
type Publisher struct {
	log             *logrus.Entry
	strategies      []Strategy
	placeholderBase string
}

// NewPublisher returns a Publisher evaluating strategies in order. The
// placeholder base is used when every strategy fails, so it must be an
// absolute URL.
func NewPublisher(placeholderBase string, strategies ...Strategy) (*Publisher, error) {
	if err := ValidatePlaceholderBase(placeholderBase); err != nil {
		return nil, err
	}

	return &Publisher{
		log:             logrus.StandardLogger().WithField("type", "metadata/publisher"),
		strategies:      strategies,
		placeholderBase: placeholderBase,
	}, nil
}

// DefaultStrategies is primary store, then alternate store, then inline.
// Nil stores are skipped.
func DefaultStrategies(primary, alternate ObjectStore, placeholderBase string) []Strategy {
	var strategies []Strategy
	if primary != nil {
		strategies = append(strategies, PrimaryStoreStrategy(primary, DefaultProbeTimeout, DefaultUploadTimeout))
	}
	if alternate != nil {
		strategies = append(strategies, AlternateStoreStrategy(alternate, DefaultUploadTimeout))
	}
	return append(strategies, InlineStrategy(placeholderBase))
}

// Publish always returns a reference of at most MaxURILength characters.
// Strategy failures are logged and never returned.
func (p *Publisher) Publish(ctx context.Context, req *Request) Reference {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "Publish")
	defer tracer.End()

	log := p.log.WithField("method", "Publish")

	var symbol string
	if req != nil && req.Document != nil {
		symbol = req.Document.Symbol
		log = log.WithField("symbol", symbol)
	}

	if err := req.Validate(); err != nil {
		log.WithError(err).Warn("invalid publish request, using placeholder")
		return p.placeholder(symbol)
	}

	for _, strategy := range p.strategies {
		strategyLog := log.WithField("tier", strategy.Tier())

		start := time.Now()
		uri, err := strategy.Publish(ctx, req)
		if err != nil {
			strategyLog.WithError(err).Warn("metadata strategy failed")
			tracer.OnError(err)
			continue
		}
		if len(uri) == 0 || len(uri) > MaxURILength {
			strategyLog.WithError(ErrURITooLong).WithField("length", len(uri)).Warn("metadata strategy produced an unusable uri")
			continue
		}

		tier := strategy.Tier()
		if tier == TierInline && !strings.HasPrefix(uri, inlinePrefix) {
			tier = TierPlaceholder
		}

		tracer.AddAttribute("tier", string(tier))
		strategyLog.WithFields(logrus.Fields{
			"uri":      uri,
			"duration": time.Since(start),
		}).Debug("metadata published")

		return Reference{URI: uri, Tier: tier}
	}

	log.Warn("all metadata strategies failed, using placeholder")
	return p.placeholder(symbol)
}

func (p *Publisher) placeholder(symbol string) Reference {
	return Reference{
		URI:  PlaceholderURI(p.placeholderBase, symbol),
		Tier: TierPlaceholder,
	}
}
