// Package contracts holds the small interfaces the application shell wires
// against, so pkg/app does not import any domain package.
package contracts

import "github.com/julienschmidt/httprouter"

// Handler is implemented by every HTTP handler group the server mounts: the
// booking API and the health probes.
type Handler interface {
	RegisterRoutes(router *httprouter.Router)
}
