package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/d0ngw/timeline-counter/counter"
	xhttp "github.com/d0ngw/timeline-counter/http"
)

// CounterHandler serves the counter management endpoints
type CounterHandler struct {
	manager *counter.Manager
}

// NewCounterHandler creates the handler
func NewCounterHandler(manager *counter.Manager) *CounterHandler {
	return &CounterHandler{manager: manager}
}

type counterReq struct {
	Name string `json:"name"`
	Num  *int64 `json:"num"`
}

func (p *counterReq) parse() error {
	if p.Num == nil {
		return fmt.Errorf("%w: num is required", errBadRequest)
	}
	return nil
}

// Register binds the endpoints under prefix, e.g. /counters
func (p *CounterHandler) Register(conf *xhttp.Config, prefix string) error {
	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"POST " + prefix, p.create},
		{"GET " + prefix + "/{id}", p.get},
		{"PUT " + prefix + "/{id}", p.update},
		{"DELETE " + prefix + "/{id}", p.delete},
		{"POST " + prefix + "/{id}/{op}", p.apply},
	}
	for _, route := range routes {
		if err := conf.RegHandleFunc(route.pattern, route.handler, xhttp.MaxBody(conf.MaxBodyBytes)); err != nil {
			return err
		}
	}
	return nil
}

func (p *CounterHandler) decode(r *http.Request) (*counterReq, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, readErr(err)
	}
	req := &counterReq{}
	if err := xhttp.DecodeJSON(bytes.NewReader(body), req); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return req, req.parse()
}

func (p *CounterHandler) create(w http.ResponseWriter, r *http.Request) {
	req, err := p.decode(r)
	if err != nil {
		renderErr(w, r, nil, err)
		return
	}
	created, err := p.manager.Create(r.Context(), req.Name, *req.Num)
	if err != nil {
		renderErr(w, r, nil, err)
		return
	}
	xhttp.RenderResp(w, http.StatusCreated, created, "")
}

func (p *CounterHandler) get(w http.ResponseWriter, r *http.Request) {
	got, err := p.manager.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		renderErr(w, r, nil, err)
		return
	}
	xhttp.RenderResp(w, http.StatusOK, got, "")
}

func (p *CounterHandler) update(w http.ResponseWriter, r *http.Request) {
	req, err := p.decode(r)
	if err != nil {
		renderErr(w, r, nil, err)
		return
	}
	updated, err := p.manager.Update(r.Context(), r.PathValue("id"), req.Name, *req.Num)
	if err != nil {
		renderErr(w, r, nil, err)
		return
	}
	xhttp.RenderResp(w, http.StatusOK, updated, "")
}

func (p *CounterHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := p.manager.Delete(r.Context(), r.PathValue("id")); err != nil {
		renderErr(w, r, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (p *CounterHandler) apply(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	value, err := p.manager.Apply(r.Context(), id, r.PathValue("op"))
	data := map[string]interface{}{"id": id, "value": value}
	if err != nil {
		renderErr(w, r, data, err)
		return
	}
	xhttp.RenderResp(w, http.StatusOK, data, "")
}
