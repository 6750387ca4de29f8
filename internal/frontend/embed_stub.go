//go:build !embed

package frontend

import "net/http"

// Handler returns nil when the binary was built without -tags embed; main
// then falls back to serving the frontend from the filesystem.
func Handler() http.Handler {
	return nil
}
