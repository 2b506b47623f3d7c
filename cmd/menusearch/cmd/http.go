package cmd

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	merrors "github.com/Aman-CERP/menusearch/internal/errors"
	"github.com/Aman-CERP/menusearch/internal/search"
)

// newSearchHandler answers GET /search?q=&order_type=&n= with the JSON
// shape of `menusearch search --json`.
func newSearchHandler(svc *search.Service) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		orderType := q.Get("order_type")
		if orderType == "" {
			http.Error(w, "order_type is required", http.StatusBadRequest)
			return
		}
		topN := 0
		if v := q.Get("n"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				http.Error(w, "n must be a non-negative integer", http.StatusBadRequest)
				return
			}
			topN = n
		}

		start := time.Now()
		names, err := svc.SimpleSearch(r.Context(), q.Get("q"), orderType, topN)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(searchResultJSON{
			Query:     q.Get("q"),
			OrderType: orderType,
			Results:   names,
			TookMS:    float64(time.Since(start).Microseconds()) / 1000,
		})
	})
}

func statusFor(err error) int {
	switch {
	case merrors.HasCode(err, merrors.ErrCodeUnknownOrderType):
		return http.StatusNotFound
	case errors.Is(err, search.ErrIndexUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
