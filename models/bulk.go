package models

// Bulk batch limits enforced before any downstream call.
const (
	MaxBulkApprove = 100
	MaxBulkReject  = 100
	MaxBulkCurate  = 100
	MaxBulkDelete  = 50
	MaxAsyncBatch  = 100
)

// BulkFailedItem attributes a failure to one product id.
type BulkFailedItem struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkOperationResult aggregates per-item outcomes of a bulk operation.
// Every input id appears exactly once, either in SuccessfulIDs or FailedItems.
type BulkOperationResult struct {
	SuccessfulCount int              `json:"successful_count"`
	FailedCount     int              `json:"failed_count"`
	TotalCount      int              `json:"total_count"`
	SuccessfulIDs   []string         `json:"successful_ids"`
	FailedItems     []BulkFailedItem `json:"failed_items"`
}

// NewBulkOperationResult returns an empty result sized for total items.
func NewBulkOperationResult(total int) *BulkOperationResult {
	return &BulkOperationResult{
		TotalCount:    total,
		SuccessfulIDs: make([]string, 0, total),
		FailedItems:   make([]BulkFailedItem, 0),
	}
}

// AddSuccess records id as successful.
func (r *BulkOperationResult) AddSuccess(id string) {
	r.SuccessfulIDs = append(r.SuccessfulIDs, id)
	r.SuccessfulCount = len(r.SuccessfulIDs)
}

// AddFailure records id as failed with the error message.
func (r *BulkOperationResult) AddFailure(id string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	r.FailedItems = append(r.FailedItems, BulkFailedItem{ID: id, Error: msg})
	r.FailedCount = len(r.FailedItems)
}
