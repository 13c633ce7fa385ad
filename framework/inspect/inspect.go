// Package inspect serves a read-only JSON view of a container.Builder.
//
//	GET /api/definitions           every service id with its class and tag names
//	GET /api/definitions?tag=name  only the services carrying tag name
//	GET /api/definitions/{id}      one definition by id or alias; ids may contain slashes
//	GET /api/tags/{tag}            every occurrence of a tag, in registration order
//	GET /api/parameters            every container parameter
//
// Responses are never cached: the container changes after every re-scan.
package inspect

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/km-arc/service-annotations/framework/container"
	gohttp "github.com/km-arc/service-annotations/http"
	"github.com/km-arc/service-annotations/routing"
)

// Source returns the builder to serve. It is called once per request so the
// builder can be swapped after a re-scan.
type Source func() *container.Builder

// DefinitionSummary is one entry of GET /api/definitions.
type DefinitionSummary struct {
	ID     string   `json:"id"`
	Class  string   `json:"class"`
	Public bool     `json:"public"`
	Tags   []string `json:"tags"`
}

// DefinitionDetail is the body of GET /api/definitions/{id}.
type DefinitionDetail struct {
	ID         string                `json:"id"`
	Definition *container.Definition `json:"definition"`
	Decorators []string              `json:"decorators"`
}

type handler struct {
	src Source
}

// New builds the inspection router.
func New(src Source, logger *slog.Logger) *routing.Router {
	h := &handler{src: src}

	r := routing.New(logger)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		gohttp.NewResponse(w).NotFound()
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		gohttp.NewResponse(w).MethodNotAllowed()
	})

	r.Prefix("/api", func(api *routing.Router) {
		api.Middleware(middleware.NoCache)
		api.Get("/definitions", h.definitions)
		api.Get("/definitions/*", h.definition)
		api.Get("/tags/{tag}", h.tagged)
		api.Get("/parameters", h.parameters)
	})
	return r
}

func (h *handler) definitions(w http.ResponseWriter, r *http.Request) {
	b := h.src()
	tag := r.URL.Query().Get("tag")

	ids := b.Definitions()
	out := make([]DefinitionSummary, 0, len(ids))
	for _, id := range ids {
		def, ok := b.Definition(id)
		if !ok || (tag != "" && !def.HasTag(tag)) {
			continue
		}
		tags := make([]string, 0, len(def.Tags))
		for _, t := range def.Tags {
			tags = append(tags, t.Name)
		}
		out = append(out, DefinitionSummary{ID: id, Class: def.Class, Public: def.Public, Tags: tags})
	}
	gohttp.NewResponse(w).Success(out)
}

func (h *handler) definition(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)

	id, err := url.PathUnescape(routing.Param(r, "*"))
	if err != nil {
		res.Error(http.StatusBadRequest, fmt.Sprintf("invalid service id: %v", err))
		return
	}

	b := h.src()
	def, ok := b.Definition(id)
	if !ok {
		res.NotFound(fmt.Sprintf("service %q is not defined", id))
		return
	}

	decorators := b.Decorators(id)
	if decorators == nil {
		decorators = []string{}
	}
	res.Success(DefinitionDetail{ID: id, Definition: def, Decorators: decorators})
}

func (h *handler) tagged(w http.ResponseWriter, r *http.Request) {
	found := h.src().FindTaggedServiceIDs(routing.Param(r, "tag"))
	if found == nil {
		found = []container.TaggedService{}
	}
	gohttp.NewResponse(w).Success(found)
}

func (h *handler) parameters(w http.ResponseWriter, _ *http.Request) {
	gohttp.NewResponse(w).Success(h.src().Parameters())
}
