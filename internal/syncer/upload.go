package syncer

import (
	"context"

	"github.com/sreejithpm/fieldsync/internal/model"
)

// UploadResult counts the outcome of an upload pass per category. Partial
// failure is not an error: failed items simply stay unsynced for the next
// pass, and the caller renders the counts ("uploaded 3 of 5").
type UploadResult struct {
	CollectionsUploaded int
	CollectionsFailed   int
	OrdersUploaded      int
	OrdersFailed        int
}

// Total returns how many records were uploaded.
func (r UploadResult) Total() int {
	return r.CollectionsUploaded + r.OrdersUploaded
}

// Pending returns how many records remain unsynced after the pass.
func (r UploadResult) Pending() int {
	return r.CollectionsFailed + r.OrdersFailed
}

// UploadPending posts every unsynced offline collection, then every unsynced
// offline order, one item at a time. A row's synced flag flips only after the
// server acknowledges it with a 2xx; a failed item is skipped and counted,
// never aborting the batch.
func (o *Orchestrator) UploadPending(ctx context.Context) (UploadResult, error) {
	var result UploadResult

	collections, err := o.store.GetOfflineCollections(ctx, true)
	if err != nil {
		return result, err
	}
	for _, col := range collections {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := o.uploadCollection(ctx, col); err != nil {
			o.log.WithError(err).WithField("local_id", col.LocalID).Warn("collection upload failed")
			result.CollectionsFailed++
			continue
		}
		result.CollectionsUploaded++
	}

	orders, err := o.store.GetOfflineOrders(ctx, true)
	if err != nil {
		return result, err
	}
	for _, ord := range orders {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := o.uploadOrder(ctx, ord); err != nil {
			o.log.WithError(err).WithField("local_id", ord.LocalID).Warn("order upload failed")
			result.OrdersFailed++
			continue
		}
		result.OrdersUploaded++
	}

	o.log.WithFields(map[string]interface{}{
		"collections_uploaded": result.CollectionsUploaded,
		"collections_failed":   result.CollectionsFailed,
		"orders_uploaded":      result.OrdersUploaded,
		"orders_failed":        result.OrdersFailed,
	}).Info("upload pass complete")

	return result, nil
}

func (o *Orchestrator) uploadCollection(ctx context.Context, col model.OfflineCollection) error {
	if err := o.api.SaveCollection(ctx, col); err != nil {
		return err
	}
	return o.store.MarkCollectionSynced(ctx, col.LocalID)
}

func (o *Orchestrator) uploadOrder(ctx context.Context, ord model.OfflineOrder) error {
	if err := o.api.SaveOrder(ctx, ord); err != nil {
		return err
	}
	return o.store.MarkOrderSynced(ctx, ord.LocalID)
}
