package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface is implemented by the API handlers.
type ServerInterface interface {
	// Ask answers a question with a narrated reply and sources.
	// (POST /v1/ask)
	Ask(w http.ResponseWriter, r *http.Request)
	// Search returns ranked stories without narration.
	// (POST /v1/search)
	Search(w http.ResponseWriter, r *http.Request)
	// ListStories lists corpus stories by metadata.
	// (GET /v1/stories)
	ListStories(w http.ResponseWriter, r *http.Request, params ListStoriesParams)
	// GetStory returns one story.
	// (GET /v1/stories/{id})
	GetStory(w http.ResponseWriter, r *http.Request, id string)
	// HealthCheck reports dependency status.
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// Metrics exposes Prometheus metrics.
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// ChiServerOptions configures route registration.
type ChiServerOptions struct {
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamFormatError reports a parameter that could not be bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// serverInterfaceWrapper binds path and query parameters before calling the handler.
type serverInterfaceWrapper struct {
	handler          ServerInterface
	errorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *serverInterfaceWrapper) ListStories(w http.ResponseWriter, r *http.Request) {
	var params ListStoriesParams
	query := r.URL.Query()

	for name, dest := range map[string]**string{
		"industry":     &params.Industry,
		"category":     &params.Category,
		"sub_category": &params.SubCategory,
		"client":       &params.Client,
		"role":         &params.Role,
		"theme":        &params.Theme,
		"tag":          &params.Tag,
	} {
		if err := runtime.BindQueryParameter("form", true, false, name, query, dest); err != nil {
			siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: name, Err: err})
			return
		}
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &params.Limit); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "limit", Err: err})
		return
	}

	siw.handler.ListStories(w, r, params)
}

func (siw *serverInterfaceWrapper) GetStory(w http.ResponseWriter, r *http.Request) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return
	}
	siw.handler.GetStory(w, r, id)
}

// HandlerWithOptions registers every route on options.BaseRouter (a new router when nil).
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		}
	}
	wrapper := &serverInterfaceWrapper{handler: si, errorHandlerFunc: options.ErrorHandlerFunc}

	r.Post("/v1/ask", si.Ask)
	r.Post("/v1/search", si.Search)
	r.Get("/v1/stories", wrapper.ListStories)
	r.Get("/v1/stories/{id}", wrapper.GetStory)
	r.Get("/health", si.HealthCheck)
	r.Get("/metrics", si.Metrics)
	return r
}
