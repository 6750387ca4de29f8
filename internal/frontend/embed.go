//go:build embed

package frontend

import (
	"embed"
	"io/fs"
	"net/http"
)

// The dashboard assets are compiled into the binary with -tags embed so the
// recorder ships as a single file. Populate static/ before building.
//
//go:embed static/*
var dashboard embed.FS

func Handler() http.Handler {
	assets, err := fs.Sub(dashboard, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(assets))
}
