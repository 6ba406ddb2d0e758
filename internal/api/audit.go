package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/http-gpio/internal/audit"
)

// handleListAudit returns the pin operation trail, newest first.
//
// Query parameters:
//   - controller, offset: filter by pin (offset needs controller)
//   - operation: read, write or blink
//   - source: http or mqtt
//   - limit: max results (default 50, max 200)
//   - offset_rows: pagination offset
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "audit trail not enabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Controller: q.Get("controller"),
		Operation:  q.Get("operation"),
		Source:     q.Get("source"),
	}

	if v := q.Get("offset"); v != "" {
		if filter.Controller == "" {
			writeBadRequest(w, "offset filter needs controller")
			return
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			writeBadRequest(w, "offset must be an unsigned 32-bit integer")
			return
		}
		line := uint32(n)
		filter.Line = &line
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset_rows": &filter.Offset} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeBadRequest(w, name+" must be an integer")
				return
			}
			*dst = n
		}
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list pin operations", "error", err)
		writeInternalError(w, "failed to list pin operations")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
