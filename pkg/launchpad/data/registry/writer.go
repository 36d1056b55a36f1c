package registry

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/code-payments/code-launchpad/pkg/metrics"
)

// Writer records issued assets and their creators.
type Writer struct {
	log   *logrus.Entry
	store Store
}

func NewWriter(store Store) *Writer {
	return &Writer{
		log:   logrus.StandardLogger().WithField("type", "registry/writer"),
		store: store,
	}
}

// Record upserts the asset and appends its creator to the creator set. The
// two writes are independent: a failed upsert does not keep the creator out
// of future distributions. Callers treat a failure as best effort since the
// asset already exists on ledger.
func (w *Writer) Record(ctx context.Context, asset *Asset) error {
	tracer := metrics.TraceMethodCall(ctx, "registry.writer", "Record")
	defer tracer.End()

	log := w.log.WithFields(logrus.Fields{
		"method":  "Record",
		"mint":    asset.Mint,
		"creator": asset.Creator,
	})

	if err := asset.Validate(); err != nil {
		tracer.OnError(err)
		return err
	}

	var upsertErr, appendErr error
	if err := w.store.UpsertAsset(ctx, asset); err != nil {
		upsertErr = errors.Wrap(err, "error upserting asset")
	}
	if err := w.store.AppendCreator(ctx, asset.Creator); err != nil {
		appendErr = errors.Wrap(err, "error appending creator")
	}

	err := multierr.Combine(upsertErr, appendErr)
	if err != nil {
		tracer.OnError(err)
		log.WithError(err).Warn("failure recording asset")
		return err
	}

	log.Debug("recorded asset")
	return nil
}
