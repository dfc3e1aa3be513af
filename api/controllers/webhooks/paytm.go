package webhooks

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/angelmondragon/paytm-adapter/api/responses"
	paytmwebhook "github.com/angelmondragon/paytm-adapter/internal/webhooks/paytm"
	pkgerrors "github.com/angelmondragon/paytm-adapter/pkg/errors"
	"github.com/angelmondragon/paytm-adapter/pkg/logger"
)

const maxNotificationBytes = 64 << 10

type PaytmWebhookService interface {
	Handle(ctx context.Context, n *paytmwebhook.Notification) (string, error)
}

// PaytmWebhook receives Paytm payment notifications. The sender always gets
// 201 Created; failures are logged and left for redelivery.
func PaytmWebhook(svc PaytmWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer responses.WriteSuccessStatus(w, http.StatusCreated, nil)

		if svc == nil {
			logError(ctx, logg, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBytes))
		if err != nil {
			logError(ctx, logg, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		notification, err := decodeNotification(r.Header.Get("Content-Type"), payload)
		if err != nil {
			logError(ctx, logg, err)
			return
		}

		outcome, err := svc.Handle(ctx, notification)
		if err != nil {
			logError(ctx, logg, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithField(ctx, "outcome", outcome), "paytm notification handled")
		}
	}
}

func decodeNotification(contentType string, payload []byte) (*paytmwebhook.Notification, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/x-www-form-urlencoded" {
		values, err := url.ParseQuery(string(payload))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode paytm form notification")
		}
		return paytmwebhook.DecodeForm(values), nil
	}
	return paytmwebhook.DecodeJSON(payload)
}

func logError(ctx context.Context, logg *logger.Logger, err error) {
	if logg == nil {
		return
	}
	dump := pkgerrors.Dump(err)
	ctx = logg.WithFields(ctx, map[string]any{
		"error_code":  dump.Code,
		"error_chain": dump.Chain,
	})
	logg.Error(ctx, "paytm notification failed", err)
}
