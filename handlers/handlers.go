package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"neoShop/entities"
	"neoShop/models"
	"neoShop/services"

	"github.com/gorilla/mux"
)

type Handler struct {
	us  services.UserService
	ps  services.ProductService
	cas services.CategoryService
	fs  services.FavoriteService
	cs  services.CartService
	ors services.OrderService
	ns  services.NotificationService
	ds  services.DashboardService
}

type HandlerParams struct {
	UsrService   services.UserService
	PrdService   services.ProductService
	CatsService  services.CategoryService
	FavService   services.FavoriteService
	CrtService   services.CartService
	OrdService   services.OrderService
	NotifService services.NotificationService
	DashService  services.DashboardService
}

func NewHandler(params HandlerParams) *Handler {
	return &Handler{
		us:  params.UsrService,
		ps:  params.PrdService,
		cas: params.CatsService,
		fs:  params.FavService,
		cs:  params.CrtService,
		ors: params.OrdService,
		ns:  params.NotifService,
		ds:  params.DashService,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		slog.Error("writeJSON: marshal failed", "err", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(jsonData)
}

// MaxBodyBytes caps a request body; product images may arrive inline as data URLs.
const MaxBodyBytes = 4 << 20

var errBodyTooLarge = errors.New("request body too large")

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			slog.Info("decodeBody: body over limit", "limit", tooLarge.Limit, "path", r.URL.Path)
			return errBodyTooLarge
		}
		slog.Debug("Unmarshal", "err", err)
		return fmt.Errorf("%w: malformed request body", models.ErrValidation)
	}
	return nil
}

func pathId(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad id", models.ErrValidation)
	}
	return id, nil
}

func WriteErrorResponse(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBodyTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrNotAllowed):
		status = http.StatusConflict
	case errors.Is(err, models.ErrNetwork):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
		msg = models.ErrServerError.Error()
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// auth

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	payload := models.RegisterPayload{}
	if err := decodeBody(w, r, &payload); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	resp, err := h.us.Register(r.Context(), ClientId(r.Context()), payload)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	creds := models.Credentials{}
	if err := decodeBody(w, r, &creds); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	resp, err := h.us.Login(r.Context(), ClientId(r.Context()), creds)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.us.Logout(r.Context(), ClientId(r.Context())); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.us.RestoreSession(ctx, ClientId(ctx))
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	msg, err := h.us.SessionError(ctx, ClientId(ctx))
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entities.SessionResponse{User: user, Error: msg})
}

// user

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CurrentUser(r.Context()))
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	patch := models.ProfilePatch{}
	if err = decodeBody(w, r, &patch); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	ctx := r.Context()
	updated, err := h.us.UpdateProfile(ctx, ClientId(ctx), CurrentUser(ctx), id, patch)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// product

func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prods, err := h.ps.Search(r.Context(), models.CatalogQuery{
		Search:   q.Get("q"),
		Category: q.Get("category"),
		SortBy:   q.Get("sort"),
	})
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prods)
}

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.cas.GetAllCategories(r.Context())
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	prod, err := h.ps.GetProductById(r.Context(), id)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prod)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	payload := models.ProductPayload{}
	if err := decodeBody(w, r, &payload); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	ctx := r.Context()
	created, err := h.ps.CreateProduct(ctx, ClientId(ctx), payload)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	patch := models.ProductPatch{}
	if err = decodeBody(w, r, &patch); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	updated, err := h.ps.UpdateProductById(r.Context(), id, patch)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	ctx := r.Context()
	if err = h.ps.DeleteProduct(ctx, ClientId(ctx), id); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// favorites

func (h *Handler) GetFavorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	favs, err := h.fs.GetFavorites(ctx, ClientId(ctx))
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, favs)
}

func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	ctx := r.Context()
	resp, err := h.fs.ToggleFavorite(ctx, ClientId(ctx), id)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// cart

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp, err := h.cs.GetCartItems(ctx, ClientId(ctx))
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	ctx := r.Context()
	line, err := h.cs.AddCartItem(ctx, ClientId(ctx), id)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

func (h *Handler) SetCartQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	req := entities.CartQuantityRequest{}
	if err = decodeBody(w, r, &req); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	ctx := r.Context()
	if err = h.cs.SetCartItemQuantity(ctx, ClientId(ctx), id, req.Quantity); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	h.GetCart(w, r)
}

func (h *Handler) DeleteFromCart(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	ctx := r.Context()
	if err = h.cs.RemoveCartItem(ctx, ClientId(ctx), id); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	h.GetCart(w, r)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.cs.ClearCart(ctx, ClientId(ctx)); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// orders

func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orders, err := h.ors.GetOrders(ctx, CurrentUser(ctx), r.URL.Query().Get("status"))
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	order, err := h.ors.Checkout(ctx, ClientId(ctx), CurrentUser(ctx))
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	req := entities.OrderStatusRequest{}
	if err = decodeBody(w, r, &req); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	ctx := r.Context()
	updated, err := h.ors.SetOrderStatus(ctx, ClientId(ctx), id, req.Status)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	ctx := r.Context()
	updated, err := h.ors.CancelOrder(ctx, ClientId(ctx), CurrentUser(ctx), id)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// notifications

func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp, err := h.ns.List(ctx, ClientId(ctx), r.URL.Query().Get("filter"))
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.ns.MarkAllRead(ctx, ClientId(ctx)); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	ctx := r.Context()
	if err = h.ns.MarkRead(ctx, ClientId(ctx), id); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	id, err := pathId(r)
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	ctx := r.Context()
	if err = h.ns.Delete(ctx, ClientId(ctx), id); err != nil {
		WriteErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// admin

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ds.GetStats(r.Context())
	if err != nil {
		WriteErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
