package musicmeta

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// Uploader stores a set of named file fields through the gateway, producing
// one UploadResult per field.
type Uploader struct {
	gateway *Gateway
}

// NewUploader creates an uploader over the given gateway.
func NewUploader(gateway *Gateway) *Uploader {
	return &Uploader{gateway: gateway}
}

// UploadAll stores every file in files, iterating the fixed slot order first
// and any unknown slots after it in lexical order. The order is stable for
// observability only; callers get no per-field ordering guarantee.
//
// The whole operation fails on the first failed field with a
// PartialUploadError carrying the results already written; those objects are
// not rolled back. Absent slots are omitted from the result map, never
// present as zero-value placeholders.
func (u *Uploader) UploadAll(ctx context.Context, ownerID uuid.UUID, files map[AssetSlot]File) (map[AssetSlot]UploadResult, error) {
	results := make(map[AssetSlot]UploadResult, len(files))

	for _, slot := range uploadOrder(files) {
		res, err := u.gateway.Store(ctx, files[slot], ownerID, slot)
		if err != nil {
			return nil, &PartialUploadError{Failed: slot, Uploaded: results, Err: err}
		}
		results[slot] = res
	}

	return results, nil
}

func uploadOrder(files map[AssetSlot]File) []AssetSlot {
	order := make([]AssetSlot, 0, len(files))
	for _, slot := range SlotOrder {
		if _, ok := files[slot]; ok {
			order = append(order, slot)
		}
	}

	var extra []AssetSlot
	for slot := range files {
		if !slot.Known() {
			extra = append(extra, slot)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })

	return append(order, extra...)
}
