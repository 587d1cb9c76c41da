// Package handlers implements the HTTP handlers for the document store API.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/maruel/docdb/internal/docdb"
	apierrors "github.com/maruel/docdb/internal/errors"
	"github.com/maruel/docdb/internal/utils"
)

// CollectionHandler handles collection and record requests.
type CollectionHandler struct {
	store *docdb.Store
}

// NewCollectionHandler creates a new collection handler.
func NewCollectionHandler(store *docdb.Store) *CollectionHandler {
	return &CollectionHandler{store: store}
}

// ListCollectionsResponse is a response containing all collection names.
type ListCollectionsResponse struct {
	Collections []string `json:"collections"`
}

// IDResponse is a response carrying a record identifier.
type IDResponse struct {
	ID string `json:"id"`
}

// ListCollections returns the names of all collections on disk.
func (h *CollectionHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.Collections()
	if err != nil {
		utils.RespondError(w, apierrors.Storage(err))
		return
	}
	if names == nil {
		names = []string{}
	}
	utils.RespondSuccess(w, http.StatusOK, ListCollectionsResponse{Collections: names})
}

// CreateRecord inserts a new record and returns it with its assigned id.
func (h *CollectionHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	col, ok := h.collection(w, r)
	if !ok {
		return
	}
	rec, ok := h.decodeRecord(w, r)
	if !ok {
		return
	}
	created, err := col.Insert(r.Context(), rec)
	if err != nil {
		utils.RespondError(w, apierrors.Storage(err))
		return
	}
	utils.RespondSuccess(w, http.StatusCreated, created)
}

// ListRecords returns records, optionally filtered by query parameters.
// Every query parameter becomes an equality match on the corresponding
// top-level field, compared through its string form.
func (h *CollectionHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	col, ok := h.collection(w, r)
	if !ok {
		return
	}
	filters := r.URL.Query()
	var pred func(docdb.Record) bool
	if len(filters) > 0 {
		pred = func(rec docdb.Record) bool {
			for field, want := range filters {
				v, present := rec[field]
				if !present || fmt.Sprint(v) != want[0] {
					return false
				}
			}
			return true
		}
	}
	recs, err := col.Find(pred)
	if err != nil {
		utils.RespondError(w, apierrors.Storage(err))
		return
	}
	utils.RespondSuccess(w, http.StatusOK, recs)
}

// GetRecord returns the record with the given id, or 404.
func (h *CollectionHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	col, ok := h.collection(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	rec, err := col.FindOne(func(rec docdb.Record) bool { return rec.ID() == id })
	if err != nil {
		utils.RespondError(w, apierrors.Storage(err))
		return
	}
	if rec == nil {
		utils.RespondError(w, apierrors.NotFound("Record"))
		return
	}
	utils.RespondSuccess(w, http.StatusOK, rec)
}

// UpdateRecord replaces the record at the path id with the request body.
// Updating an id that does not exist leaves the collection unchanged and
// still returns 200; the store has no not-found signal for mutations.
func (h *CollectionHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	col, ok := h.collection(w, r)
	if !ok {
		return
	}
	rec, ok := h.decodeRecord(w, r)
	if !ok {
		return
	}
	if rec == nil {
		rec = docdb.Record{}
	}
	// The path id is authoritative; a mismatched body id would otherwise
	// silently retarget the write.
	rec[docdb.IDField] = r.PathValue("id")
	updated, err := col.Update(r.Context(), rec)
	if err != nil {
		if errors.Is(err, docdb.ErrMissingID) {
			utils.RespondError(w, apierrors.MissingField(docdb.IDField))
			return
		}
		utils.RespondError(w, apierrors.Storage(err))
		return
	}
	utils.RespondSuccess(w, http.StatusOK, updated)
}

// PatchRecord merges the request body's fields onto the record at the path
// id. Like UpdateRecord, a missing id is a soft success.
func (h *CollectionHandler) PatchRecord(w http.ResponseWriter, r *http.Request) {
	col, ok := h.collection(w, r)
	if !ok {
		return
	}
	partial, ok := h.decodeRecord(w, r)
	if !ok {
		return
	}
	id, err := col.Patch(r.Context(), r.PathValue("id"), partial)
	if err != nil {
		utils.RespondError(w, apierrors.Storage(err))
		return
	}
	utils.RespondSuccess(w, http.StatusOK, IDResponse{ID: id})
}

// DeleteRecord removes the record at the path id. Deletes are idempotent:
// the response is 200 with the id whether or not a record was removed.
func (h *CollectionHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	col, ok := h.collection(w, r)
	if !ok {
		return
	}
	id, err := col.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		utils.RespondError(w, apierrors.Storage(err))
		return
	}
	utils.RespondSuccess(w, http.StatusOK, IDResponse{ID: id})
}

// collection resolves the {name} path segment to a collection handle,
// writing the error response itself when it cannot.
func (h *CollectionHandler) collection(w http.ResponseWriter, r *http.Request) (*docdb.Collection, bool) {
	col, err := h.store.Collection(r.PathValue("name"))
	if err != nil {
		if errors.Is(err, docdb.ErrInvalidName) {
			utils.RespondError(w, apierrors.BadRequest(err.Error()))
			return nil, false
		}
		utils.RespondError(w, apierrors.Storage(err))
		return nil, false
	}
	return col, true
}

// decodeRecord parses the request body as a JSON object. An empty body is
// accepted as an empty record.
func (h *CollectionHandler) decodeRecord(w http.ResponseWriter, r *http.Request) (docdb.Record, bool) {
	var rec docdb.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return docdb.Record{}, true
		}
		utils.RespondError(w, apierrors.BadRequest("Request body must be a JSON object"))
		return nil, false
	}
	return rec, true
}
