package domain

// ChangeOp classifies a cache mutation.
type ChangeOp string

const (
	// ChangeUpsert is a single-article insert or replace.
	ChangeUpsert ChangeOp = "upsert"
	// ChangeDelete is a single-article delete.
	ChangeDelete ChangeOp = "delete"
	// ChangeClear is a bulk delete. PageID is zero; a zero WikiID
	// means every wiki was affected.
	ChangeClear ChangeOp = "clear"
)

// Change is the post-write notification emitted by the article store.
// Observers (the storage accountant, live views) subscribe to these
// instead of re-polling.
type Change struct {
	Op     ChangeOp
	WikiID int64
	PageID int64
}
