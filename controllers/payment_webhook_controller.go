package controllers

import (
	"encoding/json"

	"github.com/astroconnect/backend/utils"
	"github.com/gin-gonic/gin"
)

// razorpayWebhookEvent is the subset of the webhook payload this service
// consumes. payment.* events carry the payment entity; order.paid also
// carries the order entity.
type razorpayWebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// HandleRazorpayWebhook is the gateway-driven confirmation path. Delivery is
// at least once and may race the client verify call for the same payment;
// both funnel into the same idempotent apply, so a duplicate is answered with
// the cached result rather than a second credit.
func HandleRazorpayWebhook(c *gin.Context) {
	utils.LogInfo("HandleRazorpayWebhook called")

	body, err := c.GetRawData()
	if err != nil {
		utils.LogError("Failed to read webhook body: %v", err)
		utils.BadRequest(c, "Failed to read request body", nil)
		return
	}

	signature := c.GetHeader("X-Razorpay-Signature")
	if signature == "" || !verifyWebhookSignature(body, signature) {
		utils.LogError("Webhook signature verification failed")
		utils.BadRequest(c, "Webhook verification failed", nil)
		return
	}

	var event razorpayWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		utils.LogError("Failed to parse webhook payload: %v", err)
		utils.BadRequest(c, "Invalid webhook payload", nil)
		return
	}
	utils.LogDebug("Webhook event: %s, order ID: %s", event.Event, event.Payload.Payment.Entity.OrderID)

	switch event.Event {
	case "payment.captured", "order.paid":
		orderID := event.Payload.Payment.Entity.OrderID
		if orderID == "" {
			orderID = event.Payload.Order.Entity.ID
		}
		paymentID := event.Payload.Payment.Entity.ID
		if orderID == "" {
			utils.LogError("Webhook event %s missing order id", event.Event)
			utils.BadRequest(c, "Missing order id", nil)
			return
		}
		if _, _, err := applyRechargeSuccess(orderID, paymentID, signature); err != nil {
			utils.LogError("Failed to apply webhook recharge for order ID: %s: %v", orderID, err)
			if appErr := utils.GetAppError(err); appErr != nil {
				utils.Error(c, appErr.Code, appErr.Message, nil)
				return
			}
			utils.InternalServerError(c, "Failed to apply recharge", nil)
			return
		}
		utils.LogInfo("Webhook recharge applied for order ID: %s", orderID)

	case "payment.failed":
		orderID := event.Payload.Payment.Entity.OrderID
		if err := markRechargeFailed(orderID, event.Payload.Payment.Entity.ErrorDescription); err != nil {
			utils.LogError("Failed to mark recharge failed for order ID: %s: %v", orderID, err)
			utils.InternalServerError(c, "Failed to record payment failure", nil)
			return
		}
		utils.LogInfo("Recharge marked failed for order ID: %s", orderID)

	default:
		utils.LogDebug("Ignoring webhook event: %s", event.Event)
	}

	utils.Success(c, "Webhook processed", nil)
}
