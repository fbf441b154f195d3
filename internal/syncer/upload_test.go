package syncer

import (
	"context"
	"errors"
	"testing"

	"github.com/sreejithpm/fieldsync/internal/model"
)

func seedPending(t *testing.T, o *Orchestrator, collections, orders int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < collections; i++ {
		col := &model.OfflineCollection{CustomerCode: "C1", Amount: 100, PaymentType: model.PaymentCash}
		if err := o.store.SaveOfflineCollection(ctx, col); err != nil {
			t.Fatalf("seed collection: %v", err)
		}
	}
	for i := 0; i < orders; i++ {
		ord := &model.OfflineOrder{
			CustomerCode: "C1",
			Items:        []model.OrderItem{{Code: "P1", Qty: 1, Price: 10, Total: 10}},
		}
		if err := o.store.SaveOfflineOrder(ctx, ord); err != nil {
			t.Fatalf("seed order: %v", err)
		}
	}
}

func TestUploadPendingAll(t *testing.T) {
	api := &fakeAPI{}
	o, st := testOrchestrator(t, api)
	seedPending(t, o, 2, 3)

	result, err := o.UploadPending(context.Background())
	if err != nil {
		t.Fatalf("UploadPending: %v", err)
	}
	if result.CollectionsUploaded != 2 || result.OrdersUploaded != 3 {
		t.Errorf("result = %+v", result)
	}
	if result.Total() != 5 || result.Pending() != 0 {
		t.Errorf("totals = %d/%d", result.Total(), result.Pending())
	}

	// Everything flipped to synced.
	stats, err := st.GetDataStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCollections != 0 || stats.PendingOrders != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestUploadPendingPartialFailure(t *testing.T) {
	api := &fakeAPI{saveCollectionErr: errors.New("server rejected")}
	o, st := testOrchestrator(t, api)
	seedPending(t, o, 2, 1)

	result, err := o.UploadPending(context.Background())
	if err != nil {
		t.Fatalf("UploadPending: %v (per-item failure must not abort)", err)
	}
	if result.CollectionsFailed != 2 || result.CollectionsUploaded != 0 {
		t.Errorf("collections = %+v", result)
	}
	// Orders still went through despite every collection failing.
	if result.OrdersUploaded != 1 {
		t.Errorf("orders = %+v", result)
	}

	// Failed rows stay pending for the next pass.
	pending, err := st.GetOfflineCollections(context.Background(), true)
	if err != nil {
		t.Fatalf("get pending: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending = %d, want 2", len(pending))
	}
}

func TestUploadPendingNothingToDo(t *testing.T) {
	api := &fakeAPI{}
	o, _ := testOrchestrator(t, api)

	result, err := o.UploadPending(context.Background())
	if err != nil {
		t.Fatalf("UploadPending: %v", err)
	}
	if result.Total() != 0 || result.Pending() != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestUploadPendingSkipsAlreadySynced(t *testing.T) {
	api := &fakeAPI{}
	o, st := testOrchestrator(t, api)
	seedPending(t, o, 1, 0)

	if _, err := o.UploadPending(context.Background()); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	result, err := o.UploadPending(context.Background())
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if result.Total() != 0 {
		t.Errorf("second pass re-uploaded %d records", result.Total())
	}
	if len(api.savedCollections) != 1 {
		t.Errorf("server saw %d collection posts, want 1", len(api.savedCollections))
	}

	all, err := st.GetOfflineCollections(context.Background(), false)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 || !all[0].Synced {
		t.Errorf("all = %+v", all)
	}
}

func TestUploadPendingCancellation(t *testing.T) {
	api := &fakeAPI{}
	o, _ := testOrchestrator(t, api)
	seedPending(t, o, 1, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := o.UploadPending(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
