package model

// DataStats summarizes the cache contents. The UI uses it to decide between
// an initial "Download" and a "Refresh" action, and to show pending-upload
// counts before a refresh would matter.
type DataStats struct {
	Customers          int `json:"customers"`
	Products           int `json:"products"`
	Batches            int `json:"batches"`
	Areas              int `json:"areas"`
	OfflineCollections int `json:"offline_collections"`
	OfflineOrders      int `json:"offline_orders"`
	PendingCollections int `json:"pending_collections"`
	PendingOrders      int `json:"pending_orders"`
}

// HasDownloadedData reports whether a first sync has ever completed.
func (s DataStats) HasDownloadedData() bool {
	return s.Customers > 0 || s.Products > 0
}

// HasPendingUploads reports whether unsynced offline records exist.
func (s DataStats) HasPendingUploads() bool {
	return s.PendingCollections > 0 || s.PendingOrders > 0
}
