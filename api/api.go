// Package api binds the notification callback and the counter management
// endpoints to the http service
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	c "github.com/d0ngw/timeline-counter/common"
	"github.com/d0ngw/timeline-counter/counter"
	xhttp "github.com/d0ngw/timeline-counter/http"
	"github.com/d0ngw/timeline-counter/notify"
)

// StatusOf maps an error to the http status. An operation whose durable
// write failed is applied, it is answered with 202 so it is not sent again.
func StatusOf(err error) int {
	var persistErr *counter.PersistError
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &persistErr) && persistErr.Applied:
		return http.StatusAccepted
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, notify.ErrInvalidNotification), errors.Is(err, counter.ErrUnsupportedOperation), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, c.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, counter.ErrContention), errors.Is(err, c.ErrTransient), errors.Is(err, c.ErrConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

// readErr keeps the body limit error, other read failures are bad requests
func readErr(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: read body fail,%v", errBadRequest, err)
}

func renderErr(w http.ResponseWriter, r *http.Request, data interface{}, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		c.Errorf("%s %s fail,id:%s,err:%v", r.Method, r.URL.Path, xhttp.RequestIDFromContext(r), err)
	}
	xhttp.RenderResp(w, status, data, err.Error())
}

// NotifyHandler is the callback endpoint of the notifications
type NotifyHandler struct {
	dispatcher *notify.Dispatcher
}

// NewNotifyHandler creates the handler
func NewNotifyHandler(dispatcher *notify.Dispatcher) *NotifyHandler {
	return &NotifyHandler{dispatcher: dispatcher}
}

// Register binds the handler to POST pattern
func (p *NotifyHandler) Register(conf *xhttp.Config, pattern string) error {
	return conf.RegHandler(pattern, p, xhttp.Methods(http.MethodPost), xhttp.MaxBody(conf.MaxBodyBytes))
}

func (p *NotifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		renderErr(w, r, nil, readErr(err))
		return
	}
	n, err := notify.Decode(body)
	if err != nil {
		c.Warnf("decode notification fail,id:%s,err:%v", xhttp.RequestIDFromContext(r), err)
		renderErr(w, r, nil, err)
		return
	}
	result, err := p.dispatcher.Handle(r.Context(), n)
	if err != nil {
		renderErr(w, r, result, err)
		return
	}
	xhttp.RenderResp(w, http.StatusOK, result, "")
}
