package handler

import (
	"errors"
	"io"
	"net/http"

	"plus-api/internal/service"
	"plus-api/internal/tebex"
	"plus-api/pkg/apierror"
	"plus-api/pkg/response"
	"plus-api/pkg/uid"

	"go.uber.org/zap"
)

// maxWebhookBody bounds webhook payloads.
const maxWebhookBody = 1 << 20

// PaymentsHandler handles billing provider webhooks and purchase restores.
type PaymentsHandler struct {
	entitlements  *service.EntitlementService
	webhookSecret string
	logger        *zap.Logger
}

// NewPaymentsHandler creates a new payments handler.
func NewPaymentsHandler(entitlements *service.EntitlementService, webhookSecret string, logger *zap.Logger) *PaymentsHandler {
	return &PaymentsHandler{
		entitlements:  entitlements,
		webhookSecret: webhookSecret,
		logger:        logger.Named("payments"),
	}
}

type webhookResponse struct {
	ID string `json:"id"`
}

type restoreResponse struct {
	RestoredIDs []string `json:"restored_ids"`
}

func signatureError(err error) *apierror.Error {
	if errors.Is(err, tebex.ErrSignatureMismatch) {
		return apierror.Forbidden("Webhook signature does not match").WithCode(apierror.CodeSignatureMismatch)
	}
	return apierror.BadRequest(err.Error()).WithCode(apierror.CodeInvalidSignature)
}

// TebexWebhook handles POST /payments/tebex-webhook
func (h *PaymentsHandler) TebexWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhookSecret == "" {
		response.Error(w, apierror.ServiceUnavailable("Webhooks are not configured"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		response.Error(w, apierror.BadRequest("failed to read request body"))
		return
	}

	hook, err := tebex.ValidateWebhook(body, r.Header.Get(tebex.SignatureHeader), h.webhookSecret)
	if err != nil {
		if tebex.IsSignatureError(err) {
			h.logger.Warn("webhook signature rejected", zap.Error(err), zap.String("remote", r.RemoteAddr))
			response.Error(w, signatureError(err))
			return
		}
		h.logger.Warn("webhook payload rejected", zap.Error(err))
		h.logger.Debug("rejected webhook body", zap.ByteString("body", body))
		response.Error(w, apierror.BadRequest(err.Error()).WithCode(apierror.CodeInvalidPayload))
		return
	}

	log := h.logger.With(zap.String("webhook_id", hook.ID), zap.String("type", hook.Type))

	switch ev := hook.Event.(type) {
	case tebex.ValidationEvent:
		log.Info("webhook endpoint validated")
	case tebex.PaymentCompletedEvent:
		if _, err := h.entitlements.HandlePayment(r.Context(), ev.Payment); err != nil {
			log.Error("failed to apply payment", zap.Error(err))
			response.Error(w, apierror.InternalError("failed to apply payment"))
			return
		}
	case tebex.UnknownEvent:
		log.Warn("unhandled webhook type")
		log.Debug("unhandled webhook subject", zap.Any("subject", ev.Subject))
	}

	response.Raw(w, http.StatusOK, webhookResponse{ID: hook.ID})
}

// Restore handles POST /payments/restore?player=<uuid>
func (h *PaymentsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	player, err := uid.ParsePlayer(r.URL.Query().Get("player"))
	if err != nil {
		response.Error(w, invalidField("player", "%s", err.Error()))
		return
	}

	restored, err := h.entitlements.Restore(r.Context(), player)
	if err != nil {
		h.logger.Error("restore failed", zap.Stringer("player", player), zap.Error(err))
		response.Error(w, toAPIError(err))
		return
	}

	response.Raw(w, http.StatusOK, restoreResponse{RestoredIDs: restored})
}
