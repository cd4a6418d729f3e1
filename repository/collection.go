package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"neoShop/models"
	"neoShop/storage"
)

// Shared keys; per-client keys are built with clientKey.
const (
	productsKey      = "products"
	ordersKey        = "orders"
	registeredKey    = "registeredUsers"
	userKey          = "user"
	tokenKey         = "token"
	authErrorKey     = "authError"
	favoritesKey     = "favorites"
	legacyFavorites  = "favourites"
	cartKey          = "cart"
	notificationsKey = "notifications"
)

func clientKey(clientId, name string) string {
	return clientId + ":" + name
}

func checkClient(clientId string) error {
	if clientId == "" {
		return fmt.Errorf("%w: client id is empty", models.ErrValidation)
	}
	return nil
}

// readCollection decodes the array stored under key one element at a time. Elements that do
// not decode are skipped; a value that is not an array at all yields an empty collection.
// intact is false whenever anything stored was skipped.
func readCollection[T any](ctx context.Context, st storage.Storage, key string) (items []T, found, intact bool, err error) {
	items = []T{}
	raw, e := st.Get(ctx, key)
	if e != nil {
		if errors.Is(e, storage.ErrKeyNotFound) {
			intact = true
			return
		}
		slog.Error("loadCollection: storage get failed", "key", key, "err", e)
		err = fmt.Errorf("%w: %v", models.ErrNetwork, e)
		return
	}
	found = true
	var elems []json.RawMessage
	if e = json.Unmarshal(raw, &elems); e != nil {
		slog.Warn("loadCollection: malformed collection treated as empty", "key", key, "err", e)
		return
	}
	intact = true
	for i, elem := range elems {
		var item T
		if e = json.Unmarshal(elem, &item); e != nil {
			slog.Warn("loadCollection: skipping malformed record", "key", key, "index", i, "err", e)
			intact = false
			continue
		}
		items = append(items, item)
	}
	return
}

// loadCollection returns what can be decoded under key; a missing key is an empty
// collection with found false.
func loadCollection[T any](ctx context.Context, st storage.Storage, key string) (items []T, found bool, err error) {
	items, found, _, err = readCollection[T](ctx, st, key)
	return
}

// loadForUpdate is loadCollection for a read-modify-write cycle. It refuses a collection
// that did not decode cleanly, since saving it back would drop the unreadable records.
func loadForUpdate[T any](ctx context.Context, st storage.Storage, key string) (items []T, found bool, err error) {
	items, found, intact, err := readCollection[T](ctx, st, key)
	if err != nil {
		return
	}
	if !intact {
		slog.Error("loadForUpdate: refusing to overwrite unreadable records", "key", key)
		err = fmt.Errorf("%w: stored %s contain unreadable records", models.ErrServerError, key)
	}
	return
}

func saveCollection[T any](ctx context.Context, st storage.Storage, key string, items []T) (err error) {
	if items == nil {
		items = []T{}
	}
	jsonData, e := json.Marshal(items)
	if e != nil {
		slog.Error("saveCollection: marshal failed", "key", key, "err", e)
		err = models.ErrServerError
		return
	}
	if e = st.Set(ctx, key, jsonData); e != nil {
		slog.Error("saveCollection: storage set failed", "key", key, "err", e)
		err = fmt.Errorf("%w: %v", models.ErrNetwork, e)
	}
	return
}

func deleteKey(ctx context.Context, st storage.Storage, key string) error {
	if e := st.Delete(ctx, key); e != nil {
		slog.Error("deleteKey: storage delete failed", "key", key, "err", e)
		return fmt.Errorf("%w: %v", models.ErrNetwork, e)
	}
	return nil
}

// nextId hands out creation-timestamp ids in milliseconds, bumped past the largest id
// already in the collection so two creations in the same millisecond stay distinct.
func nextId(now time.Time, maxExisting int64) int64 {
	id := now.UnixMilli()
	if id <= maxExisting {
		id = maxExisting + 1
	}
	return id
}
