package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rpattn/visadesk/internal/auth"
	"github.com/rpattn/visadesk/internal/domain"
)

const workbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service *Service
	now     func() time.Time
}

// NewHTTPHandler serves the case workbook of the organization in the request scope.
// Query parameters status, country and q narrow the cases.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service, now: time.Now}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	orgID, err := auth.RequireOrganizationID(r.Context())
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	query := r.URL.Query()
	filter := domain.CaseFilter{
		Status:  domain.CaseStatus(query.Get("status")),
		Country: query.Get("country"),
		Search:  query.Get("q"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", filter.Status))
		return
	}

	// Buffer so a failure halfway still produces a clean error response.
	var buf bytes.Buffer
	if _, err := h.service.WriteWorkbook(r.Context(), orgID, filter, &buf); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrValidation) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	filename := fmt.Sprintf("cases-%s.xlsx", h.now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", workbookContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
