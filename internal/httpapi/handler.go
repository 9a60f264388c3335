// Package httpapi exposes the shopping list over a small JSON API, one
// endpoint per list operation. The handler is a thin translation layer:
// decode, call the service, map the error, encode.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"basket/internal/core"
	"basket/internal/grouping"
	"basket/internal/models"
	"basket/internal/store"
)

// maxRequestBodySize limits POST body sizes to prevent DoS.
const maxRequestBodySize = 1 << 20 // 1 MB

// ListService is the application surface the API exposes.
// *core.Service implements it; tests can inject a stub.
type ListService interface {
	Add(ctx context.Context, name, category, store string) (models.Item, error)
	TogglePurchased(ctx context.Context, id string) (models.Item, error)
	Delete(ctx context.Context, id string) (models.Item, error)
	List(ctx context.Context) ([]models.Item, error)
	Grouped(ctx context.Context, store string) ([]grouping.CategoryGroup, error)
	Status(ctx context.Context) (core.Status, error)
}

// Handler serves the list API.
type Handler struct {
	svc ListService
	log *zap.Logger
}

// NewHandler creates a Handler over the given service.
func NewHandler(svc ListService, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Register registers all list API handlers under the given prefix.
// The prefix should be the path segment without a trailing slash
// (e.g. "api/list"). Handlers are registered as:
//
//	GET  <prefix>/items
//	POST <prefix>/items
//	POST <prefix>/items/toggle
//	POST <prefix>/items/delete
//	GET  <prefix>/grouped
//	GET  <prefix>/status
func (h *Handler) Register(prefix string, mux *http.ServeMux) {
	// Normalise: ensure leading slash and trailing slash.
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}

	mux.HandleFunc(prefix+"items", h.handleItems)
	mux.HandleFunc(prefix+"items/toggle", h.handleToggle)
	mux.HandleFunc(prefix+"items/delete", h.handleDelete)
	mux.HandleFunc(prefix+"grouped", h.handleGrouped)
	mux.HandleFunc(prefix+"status", h.handleStatus)
}

// ----------------------------------------------------------------------------
// Wire types
// ----------------------------------------------------------------------------

// ItemJSON is the wire representation of one list item.
type ItemJSON struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Item      string `json:"item"`
	Purchased bool   `json:"purchased"`
	Category  string `json:"category"`
	Store     string `json:"store"`
}

// AddItemRequest is the request body for POST <prefix>/items.
type AddItemRequest struct {
	// Item is the item name as typed; it is trimmed before validation.
	Item string `json:"item"`

	// Category must be one of the fixed categories.
	Category string `json:"category"`

	// Store must be one of the fixed stores.
	Store string `json:"store"`
}

// IDRequest is the request body for toggle and delete.
type IDRequest struct {
	// ID is a full item ID or a unique prefix of one.
	ID string `json:"id"`
}

// ItemResponse is the response body for the three mutating endpoints.
type ItemResponse struct {
	Item    ItemJSON `json:"item"`
	Message string   `json:"message"`
}

// ItemsResponse is the response body for GET <prefix>/items.
type ItemsResponse struct {
	Items []ItemJSON `json:"items"`
	Count int        `json:"count"`
}

// GroupJSON is one category's slice of a store's list.
type GroupJSON struct {
	Category string     `json:"category"`
	Items    []ItemJSON `json:"items"`
}

// GroupedResponse is the response body for GET <prefix>/grouped.
type GroupedResponse struct {
	Store  string      `json:"store"`
	Groups []GroupJSON `json:"groups"`
}

// StatusResponse is the response body for GET <prefix>/status.
type StatusResponse struct {
	Backend   string `json:"backend"`
	FileName  string `json:"file_name"`
	FileID    string `json:"file_id,omitempty"`
	Revision  string `json:"revision,omitempty"`
	Items     int    `json:"items"`
	Purchased int    `json:"purchased"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is a user-facing message.
	Error string `json:"error"`

	// Reason is a stable machine-readable code, set for validation
	// failures (e.g. "missing_store", "duplicate_item").
	Reason string `json:"reason,omitempty"`
}

// ----------------------------------------------------------------------------
// GET/POST <prefix>/items
// ----------------------------------------------------------------------------

func (h *Handler) handleItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listItems(w, r)
	case http.MethodPost:
		h.addItem(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// listItems returns the full table, optionally filtered to one store
// with ?store=. The table is reloaded on every request — no caching —
// so the response always reflects the shared file.
func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	if storeName := r.URL.Query().Get("store"); storeName != "" {
		filtered := make([]models.Item, 0, len(items))
		for _, item := range items {
			if item.Store == storeName {
				filtered = append(filtered, item)
			}
		}
		items = filtered
	}

	writeJSON(w, http.StatusOK, ItemsResponse{Items: toItemJSONs(items), Count: len(items)})
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body."})
		return
	}

	item, err := h.svc.Add(r.Context(), req.Item, req.Category, req.Store)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ItemResponse{
		Item:    toItemJSON(item),
		Message: fmt.Sprintf("'%s' added to the list for %s under '%s'.", item.Name, item.Store, item.Category),
	})
}

// ----------------------------------------------------------------------------
// POST <prefix>/items/toggle
// ----------------------------------------------------------------------------

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, ok := h.decodeIDRequest(w, r)
	if !ok {
		return
	}

	item, err := h.svc.TogglePurchased(r.Context(), req.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	message := fmt.Sprintf("'%s' marked not purchased.", item.Name)
	if item.Purchased {
		message = fmt.Sprintf("'%s' marked purchased.", item.Name)
	}

	writeJSON(w, http.StatusOK, ItemResponse{Item: toItemJSON(item), Message: message})
}

// ----------------------------------------------------------------------------
// POST <prefix>/items/delete
// ----------------------------------------------------------------------------

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, ok := h.decodeIDRequest(w, r)
	if !ok {
		return
	}

	item, err := h.svc.Delete(r.Context(), req.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ItemResponse{
		Item:    toItemJSON(item),
		Message: fmt.Sprintf("'%s' removed from the list.", item.Name),
	})
}

// ----------------------------------------------------------------------------
// GET <prefix>/grouped
// ----------------------------------------------------------------------------

// handleGrouped returns one store's display view: categories in
// first-encounter order, unpurchased items before purchased within each.
func (h *Handler) handleGrouped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	storeName := r.URL.Query().Get("store")
	if storeName == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Query parameter store is required."})
		return
	}

	groups, err := h.svc.Grouped(r.Context(), storeName)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := GroupedResponse{Store: storeName, Groups: make([]GroupJSON, 0, len(groups))}
	for _, group := range groups {
		resp.Groups = append(resp.Groups, GroupJSON{
			Category: group.Category,
			Items:    toItemJSONs(group.Items),
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// ----------------------------------------------------------------------------
// GET <prefix>/status
// ----------------------------------------------------------------------------

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st, err := h.svc.Status(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Backend:   st.Backend,
		FileName:  st.FileName,
		FileID:    st.FileID,
		Revision:  st.Revision,
		Items:     st.Items,
		Purchased: st.Purchased,
	})
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

func (h *Handler) decodeIDRequest(w http.ResponseWriter, r *http.Request) (IDRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req IDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid request body."})
		return IDRequest{}, false
	}
	if req.ID == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Field id is required."})
		return IDRequest{}, false
	}

	return req, true
}

// writeError maps service errors onto status codes: validation 400,
// unknown id 404, lost save race 409, store access denied 502,
// anything else 500.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *core.ErrValidation

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Message, Reason: verr.Reason})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "No matching item on the list."})
	case errors.Is(err, store.ErrConflict):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: "The list changed while saving. Please retry."})
	case errors.Is(err, store.ErrAuth), errors.Is(err, store.ErrPermission):
		h.log.Error("store access failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "Cannot reach the list storage. Check the service credentials."})
	default:
		h.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "Internal error."})
	}
}

func toItemJSON(item models.Item) ItemJSON {
	return ItemJSON{
		ID:        item.ID,
		CreatedAt: item.CreatedAt,
		Item:      item.Name,
		Purchased: item.Purchased,
		Category:  item.Category,
		Store:     item.Store,
	}
}

func toItemJSONs(items []models.Item) []ItemJSON {
	out := make([]ItemJSON, 0, len(items))
	for _, item := range items {
		out = append(out, toItemJSON(item))
	}

	return out
}

// writeJSON marshals v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Response is already partially written; nothing to do.
		_ = err
	}
}
