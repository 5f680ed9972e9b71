package http

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

//go:embed openapi.yaml
var rawSpec []byte

// GetSwagger parses and validates the embedded OpenAPI document.
func GetSwagger() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi spec: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi spec: %w", err)
	}
	return doc, nil
}

// ServerInterface lists the operations of openapi.yaml.
type ServerInterface interface {
	GetHealth(w http.ResponseWriter, r *http.Request)
	ListEngagements(w http.ResponseWriter, r *http.Request)
	CreateEngagement(w http.ResponseWriter, r *http.Request)
	GetEngagement(w http.ResponseWriter, r *http.Request, id string)
	DeleteEngagement(w http.ResponseWriter, r *http.Request, id string)
	Interact(w http.ResponseWriter, r *http.Request, id string)
	SubscribeEvents(w http.ResponseWriter, r *http.Request, id string, params SubscribeEventsParams)
	GetRoleGraph(w http.ResponseWriter, r *http.Request, id string, params GetRoleGraphParams)
}

// SubscribeEventsParams are the query parameters of GET /engagements/{id}/events.
type SubscribeEventsParams struct {
	Watch *string
}

// GetRoleGraphParams are the query parameters of GET /roles/{id}/graph.
type GetRoleGraphParams struct {
	Engagement *string
}

// wrapper binds path and query parameters before calling the handler.
type wrapper struct {
	handler ServerInterface
	onError func(w http.ResponseWriter, r *http.Request, err error)
}

func (w *wrapper) pathParam(r *http.Request, name string, dest *string) error {
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dest, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return nil
}

func (w *wrapper) queryParam(r *http.Request, name string, dest **string) error {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dest); err != nil {
		return fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return nil
}

func (w *wrapper) withID(fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var id string
		if err := w.pathParam(r, "id", &id); err != nil {
			w.onError(rw, r, err)
			return
		}
		fn(rw, r, id)
	}
}

func (w *wrapper) subscribeEvents(rw http.ResponseWriter, r *http.Request) {
	var id string
	if err := w.pathParam(r, "id", &id); err != nil {
		w.onError(rw, r, err)
		return
	}
	var params SubscribeEventsParams
	if err := w.queryParam(r, "watch", &params.Watch); err != nil {
		w.onError(rw, r, err)
		return
	}
	w.handler.SubscribeEvents(rw, r, id, params)
}

func (w *wrapper) getRoleGraph(rw http.ResponseWriter, r *http.Request) {
	var id string
	if err := w.pathParam(r, "id", &id); err != nil {
		w.onError(rw, r, err)
		return
	}
	var params GetRoleGraphParams
	if err := w.queryParam(r, "engagement", &params.Engagement); err != nil {
		w.onError(rw, r, err)
		return
	}
	w.handler.GetRoleGraph(rw, r, id, params)
}

// HandlerFromMux registers the operations on r.
func HandlerFromMux(si ServerInterface, r chi.Router, onError func(http.ResponseWriter, *http.Request, error)) http.Handler {
	w := &wrapper{handler: si, onError: onError}
	r.Get("/health", si.GetHealth)
	r.Get("/engagements", si.ListEngagements)
	r.Post("/engagements", si.CreateEngagement)
	r.Get("/engagements/{id}", w.withID(si.GetEngagement))
	r.Delete("/engagements/{id}", w.withID(si.DeleteEngagement))
	r.Post("/engagements/{id}/interact", w.withID(si.Interact))
	r.Get("/engagements/{id}/events", w.subscribeEvents)
	r.Get("/roles/{id}/graph", w.getRoleGraph)
	return r
}

// requestValidator rejects requests that do not match the OpenAPI document.
// Paths outside the document are passed through.
func requestValidator(router routers.Router, onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			input := &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
			}
			if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func newRouter(doc *openapi3.T) (routers.Router, error) {
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to build openapi router: %w", err)
	}
	return router, nil
}
