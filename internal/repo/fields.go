package repo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	appErr "github.com/xxxsen/imtahan-notifier/internal/pkg/errors"
	"github.com/xxxsen/imtahan-notifier/internal/store"
)

func stringField(data map[string]interface{}, key string) string {
	v, _ := data[key].(string)
	return v
}

func boolField(data map[string]interface{}, key string) bool {
	v, _ := data[key].(bool)
	return v
}

func timeField(data map[string]interface{}, key string) time.Time {
	v, _ := data[key].(time.Time)
	return v
}

// stringMapField reads a nested map, stringifying non-string values.
func stringMapField(data map[string]interface{}, key string) map[string]string {
	raw, ok := data[key].(map[string]interface{})
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}

func mapNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %v", appErr.ErrNotFound, err)
	}
	return err
}

// checkID rejects ids that would not name a single document directly under
// its collection.
func checkID(kind, id string) error {
	if id == "" || id == "." || id == ".." || strings.Contains(id, "/") {
		return fmt.Errorf("%w: %s id %q", appErr.ErrInvalid, kind, id)
	}
	return nil
}
