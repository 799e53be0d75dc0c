package webhooks

import (
	"net/http"
	"strings"

	"github.com/tomatolabs/bookstore-backend/internal/payments"
	"github.com/tomatolabs/bookstore-backend/pkg/logger"
)

// AlipayNotify handles the asynchronous server-to-server payment callback.
// The provider expects a bare "success" body to stop retrying; anything else
// triggers redelivery, so failures answer "failure" and rely on the retry.
func AlipayNotify(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeAck(w, false)
			return
		}

		if err := svc.HandleNotification(r.Context(), r.PostForm); err != nil {
			if logg != nil {
				logg.Error(r.Context(), "payment notification rejected", err)
			}
			writeAck(w, false)
			return
		}
		writeAck(w, true)
	}
}

// AlipayReturn handles the synchronous browser redirect after payment.
func AlipayReturn(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := strings.TrimSpace(r.URL.Query().Get("out_trade_no"))
		http.Redirect(w, r, svc.ReturnRedirect(orderID), http.StatusFound)
	}
}

func writeAck(w http.ResponseWriter, ok bool) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if ok {
		_, _ = w.Write([]byte("success"))
		return
	}
	_, _ = w.Write([]byte("failure"))
}
