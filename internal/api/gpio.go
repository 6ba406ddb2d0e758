package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/http-gpio/internal/gpio"
)

const ctxKeyPin contextKey = "pin"

// pinMiddleware parses {controller}/{offset} into a gpio.PinID.
func (s *Server) pinMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, err := strconv.ParseUint(chi.URLParam(r, "offset"), 10, 32)
		if err != nil {
			writeBadRequest(w, "offset must be an unsigned 32-bit integer")
			return
		}
		pin := gpio.NewPinID(chi.URLParam(r, "controller"), uint32(offset))
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyPin, pin)))
	})
}

func pinFromContext(ctx context.Context) gpio.PinID {
	pin, _ := ctx.Value(ctxKeyPin).(gpio.PinID) //nolint:errcheck // always set by pinMiddleware
	return pin
}

// handleListControllers returns every controller, ordered by name.
func (s *Server) handleListControllers(w http.ResponseWriter, r *http.Request) {
	controllers, err := s.gateway.ListControllers(r.Context())
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	if controllers == nil {
		controllers = []gpio.ControllerInfo{}
	}
	writeJSON(w, http.StatusOK, controllers)
}

// handleListPins returns every readable line of a controller.
func (s *Server) handleListPins(w http.ResponseWriter, r *http.Request) {
	pins, err := s.gateway.ListPins(r.Context(), chi.URLParam(r, "controller"))
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	if pins == nil {
		pins = []gpio.PinInfo{}
	}
	writeJSON(w, http.StatusOK, pins)
}

func (s *Server) handleDescribePin(w http.ResponseWriter, r *http.Request) {
	info, err := s.gateway.DescribePin(r.Context(), pinFromContext(r.Context()))
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleReadPin returns the value as a bare JSON number.
func (s *Server) handleReadPin(w http.ResponseWriter, r *http.Request) {
	value, err := s.gateway.ReadPin(r.Context(), pinFromContext(r.Context()))
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, value)
}

// handleWritePin takes a bare 0 or 1 and answers with JSON null.
func (s *Server) handleWritePin(w http.ResponseWriter, r *http.Request) {
	var value int
	if err := decodeBody(r, &value); err != nil {
		writeBodyError(w, err)
		return
	}

	if err := s.gateway.WritePin(r.Context(), pinFromContext(r.Context()), value); err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// handleBlinkPin takes a JSON array of millisecond durations and answers
// with the final value once the whole schedule has played.
func (s *Server) handleBlinkPin(w http.ResponseWriter, r *http.Request) {
	var schedule []uint32
	if err := decodeBody(r, &schedule); err != nil {
		writeBodyError(w, err)
		return
	}
	if schedule == nil {
		writeBadRequest(w, "schedule must be a JSON array")
		return
	}

	final, err := s.gateway.BlinkPin(r.Context(), pinFromContext(r.Context()), schedule)
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, final)
}

// decodeBody reads the whole body and decodes one JSON value from it.
// Trailing data is an error.
func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}
