package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	PreferenceCatalogKey  = "pref:catalog"
	UserPreferencesPrefix = "user:%s:prefs"
	UserAdminPrefix       = "user:%s:admin"
)

const (
	PreferenceCatalogTTL = 10 * time.Minute
	UserPreferencesTTL   = 5 * time.Minute
	UserAdminTTL         = time.Minute
)

func UserPreferencesKey(userID string) string {
	return fmt.Sprintf(UserPreferencesPrefix, userID)
}

func UserAdminKey(userID string) string {
	return fmt.Sprintf(UserAdminPrefix, userID)
}

// Invalidate deletes key. A missing client is a no-op.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidatePreferenceCatalog(ctx context.Context) {
	Invalidate(ctx, PreferenceCatalogKey)
}

func InvalidateUserPreferences(ctx context.Context, userID string) {
	Invalidate(ctx, UserPreferencesKey(userID))
}
