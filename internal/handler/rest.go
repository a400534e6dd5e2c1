package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/catalog-service/internal/model"
	"github.com/vyrodovalexey/catalog-service/internal/service"
)

// ItemsPath is the base path of the item API.
const ItemsPath = "/api/v1/items"

// ItemService is the catalog API consumed by RESTHandler.
type ItemService interface {
	CreateItem(candidate model.Item) (model.Item, error)
	GetItemByID(id int64) (model.Item, error)
	GetAllItems() []model.Item
	UpdateItem(id int64, payload model.Item) (model.Item, error)
	DeleteItem(id int64) error
	ItemExists(id int64) bool
	GetTotalItemCount() int
	GetItemsByCategory(category string) []model.Item
	IsInStock(id int64) (bool, error)
	UpdateStock(id int64, quantity int) (model.Item, error)
}

// RESTHandler handles REST API requests for items.
type RESTHandler struct {
	service ItemService
	logger  *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance.
func NewRESTHandler(svc ItemService, logger *zap.Logger) *RESTHandler {
	return &RESTHandler{
		service: svc,
		logger:  logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
// Literal sub-paths are registered before {id} so they are not taken for IDs.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc(ItemsPath, h.ListItems).Methods(http.MethodGet)
	router.HandleFunc(ItemsPath, h.CreateItem).Methods(http.MethodPost)
	router.HandleFunc(ItemsPath+"/count", h.CountItems).Methods(http.MethodGet)
	router.HandleFunc(ItemsPath+"/category/{category}", h.ListItemsByCategory).Methods(http.MethodGet)
	router.HandleFunc(ItemsPath+"/{id}", h.GetItem).Methods(http.MethodGet)
	router.HandleFunc(ItemsPath+"/{id}", h.UpdateItem).Methods(http.MethodPut)
	router.HandleFunc(ItemsPath+"/{id}", h.DeleteItem).Methods(http.MethodDelete)
	router.HandleFunc(ItemsPath+"/{id}/exists", h.ItemExists).Methods(http.MethodGet)
	router.HandleFunc(ItemsPath+"/{id}/in-stock", h.CheckInStock).Methods(http.MethodGet)
	router.HandleFunc(ItemsPath+"/{id}/stock", h.UpdateStock).Methods(http.MethodPatch)
}

// ListItems handles GET /api/v1/items requests.
func (h *RESTHandler) ListItems(w http.ResponseWriter, _ *http.Request) {
	items := h.service.GetAllItems()

	message := fmt.Sprintf("Items retrieved successfully. Total: %d", len(items))
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(message, items))
}

// CountItems handles GET /api/v1/items/count requests.
func (h *RESTHandler) CountItems(w http.ResponseWriter, _ *http.Request) {
	count := h.service.GetTotalItemCount()

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse("Total item count retrieved successfully", count))
}

// ListItemsByCategory handles GET /api/v1/items/category/{category} requests.
func (h *RESTHandler) ListItemsByCategory(w http.ResponseWriter, r *http.Request) {
	category := mux.Vars(r)["category"]
	items := h.service.GetItemsByCategory(category)

	message := fmt.Sprintf("Items in category '%s' retrieved successfully. Total: %d", category, len(items))
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(message, items))
}

// GetItem handles GET /api/v1/items/{id} requests.
func (h *RESTHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	item, err := h.service.GetItemByID(id)
	if err != nil {
		h.handleServiceError(w, err, "get item")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse("Item retrieved successfully", item))
}

// CreateItem handles POST /api/v1/items requests.
func (h *RESTHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	input, ok := h.decodeItem(w, r)
	if !ok {
		return
	}

	item, err := h.service.CreateItem(input)
	if err != nil {
		h.handleServiceError(w, err, "create item")
		return
	}

	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse("Item created successfully", item))
}

// UpdateItem handles PUT /api/v1/items/{id} requests.
func (h *RESTHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	input, ok := h.decodeItem(w, r)
	if !ok {
		return
	}

	item, err := h.service.UpdateItem(id, input)
	if err != nil {
		h.handleServiceError(w, err, "update item")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse("Item updated successfully", item))
}

// DeleteItem handles DELETE /api/v1/items/{id} requests.
func (h *RESTHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteItem(id); err != nil {
		h.handleServiceError(w, err, "delete item")
		return
	}

	message := fmt.Sprintf("Item deleted successfully with id: %d", id)
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse[any](message, nil))
}

// ItemExists handles GET /api/v1/items/{id}/exists requests.
func (h *RESTHandler) ItemExists(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	exists := h.service.ItemExists(id)

	message := "Item does not exist"
	if exists {
		message = "Item exists"
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(message, exists))
}

// CheckInStock handles GET /api/v1/items/{id}/in-stock requests.
func (h *RESTHandler) CheckInStock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	inStock, err := h.service.IsInStock(id)
	if err != nil {
		h.handleServiceError(w, err, "check stock")
		return
	}

	message := "Item is out of stock"
	if inStock {
		message = "Item is in stock"
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(message, inStock))
}

// UpdateStock handles PATCH /api/v1/items/{id}/stock requests.
// The body is a bare JSON integer.
func (h *RESTHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var quantity *int
	if err := json.NewDecoder(r.Body).Decode(&quantity); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if quantity == nil {
		h.handleServiceError(w, model.NewValidationError("stock", "Stock quantity is required"), "update stock")
		return
	}

	item, err := h.service.UpdateStock(id, *quantity)
	if err != nil {
		h.handleServiceError(w, err, "update stock")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse("Stock updated successfully", item))
}

// parseID extracts the {id} path variable, writing a 400 response when it is not an integer.
func (h *RESTHandler) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.logger.Warn("invalid item id", zap.String("id", raw))
		h.writeError(w, http.StatusBadRequest, "invalid item ID")
		return 0, false
	}

	return id, true
}

// decodeItem reads an ItemRequest body and checks it, writing a 400 response on failure.
func (h *RESTHandler) decodeItem(w http.ResponseWriter, r *http.Request) (model.Item, bool) {
	var input model.ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return model.Item{}, false
	}

	if err := input.Validate(); err != nil {
		h.handleServiceError(w, err, "validate item")
		return model.Item{}, false
	}

	return input.ToItem(), true
}

// handleServiceError maps service errors to HTTP responses.
func (h *RESTHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	var validationErr *model.ValidationError

	switch {
	case errors.As(err, &validationErr):
		h.logger.Warn("validation failed", zap.String("operation", operation), zap.Error(err))
		h.writeJSON(w, http.StatusBadRequest, model.NewValidationErrorResponse(validationErr))
	case errors.Is(err, service.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("service operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	writeJSON(w, h.logger, status, data)
}

// writeError writes an error response with the given status code and message.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, model.NewErrorResponse[any](message))
}
