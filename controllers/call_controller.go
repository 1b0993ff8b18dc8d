package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/astroconnect/backend/config"
	"github.com/astroconnect/backend/models"
	"github.com/astroconnect/backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InitiateCall starts a call request to an astrologer. A user may hold at
// most one non-terminal call at a time.
func InitiateCall(c *gin.Context) {
	utils.LogInfo("InitiateCall called")
	userVal, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	user := userVal.(models.User)

	var req struct {
		AstrologerID uint `json:"astrologer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid request for user ID: %d: %v", user.ID, err)
		utils.BadRequest(c, "Invalid request. astrologer_id is required", err.Error())
		return
	}

	var astrologer models.Astrologer
	if err := config.DB.Where("id = ? AND is_approved = ? AND is_blocked = ?", req.AstrologerID, true, false).
		First(&astrologer).Error; err != nil {
		utils.LogError("Astrologer not found: %d", req.AstrologerID)
		utils.NotFound(c, "Astrologer not found")
		return
	}
	if !astrologer.IsOnline {
		utils.LogError("Astrologer %d is offline", astrologer.ID)
		utils.BadRequest(c, "Astrologer is not available right now", nil)
		return
	}

	var activeCount int64
	if err := config.DB.Model(&models.CallSession{}).
		Where("user_id = ? AND status IN ?", user.ID, models.CallActiveStatuses).
		Count(&activeCount).Error; err != nil {
		utils.LogError("Failed to check active calls for user ID: %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to check active calls", nil)
		return
	}
	if activeCount > 0 {
		utils.LogError("User ID: %d already has an active call", user.ID)
		utils.Conflict(c, "You already have an active call", nil)
		return
	}

	// The first minute must be coverable before the astrologer is rung.
	wallet, err := getOrCreateWallet(user.ID)
	if err != nil {
		utils.LogError("Failed to get wallet for user ID: %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to get wallet", nil)
		return
	}
	if wallet.Balance.LessThan(astrologer.CallRate) {
		ife := &utils.InsufficientFundsError{Required: astrologer.CallRate, Available: wallet.Balance}
		utils.LogError("Insufficient balance to start call for user ID: %d", user.ID)
		utils.PaymentRequired(c, "Insufficient wallet balance to start a call", ife)
		return
	}

	session := models.CallSession{
		UserID:         user.ID,
		AstrologerID:   astrologer.ID,
		Status:         models.CallStatusInitiated,
		ChannelName:    "call_" + uuid.NewString(),
		PricePerMinute: astrologer.CallRate,
	}
	if err := config.DB.Create(&session).Error; err != nil {
		utils.LogError("Failed to create call session for user ID: %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to create call session", nil)
		return
	}

	// Channel allocated; the astrologer's device is now being rung.
	if err := config.DB.Model(&session).
		Where("status = ?", models.CallStatusInitiated).
		Update("status", models.CallStatusRinging).Error; err != nil {
		utils.LogError("Failed to mark call ringing for session ID: %d: %v", session.ID, err)
		utils.InternalServerError(c, "Failed to update call status", nil)
		return
	}
	session.Status = models.CallStatusRinging

	utils.LogInfo("Call session %d initiated by user ID: %d with astrologer ID: %d", session.ID, user.ID, astrologer.ID)
	utils.Created(c, "Call initiated", gin.H{
		"session_id":       session.ID,
		"status":           session.Status,
		"channel_name":     session.ChannelName,
		"price_per_minute": session.PricePerMinute.StringFixed(2),
		"astrologer": gin.H{
			"id":   astrologer.ID,
			"name": astrologer.Name,
		},
	})
}

// AcceptCall transitions a ringing call to accepted and starts the billable
// clock. Only the called astrologer may accept.
func AcceptCall(c *gin.Context) {
	utils.LogInfo("AcceptCall called")
	astrologerVal, exists := c.Get("astrologer")
	if !exists {
		utils.Unauthorized(c, "Astrologer not found")
		return
	}
	astrologer := astrologerVal.(models.Astrologer)

	sessionID := c.Param("id")
	now := time.Now()
	res := config.DB.Model(&models.CallSession{}).
		Where("id = ? AND astrologer_id = ? AND status = ?", sessionID, astrologer.ID, models.CallStatusRinging).
		Updates(map[string]interface{}{
			"status":     models.CallStatusAccepted,
			"start_time": now,
		})
	if res.Error != nil {
		utils.LogError("Failed to accept call session %s: %v", sessionID, res.Error)
		utils.InternalServerError(c, "Failed to accept call", nil)
		return
	}
	if res.RowsAffected == 0 {
		utils.LogError("Call session %s is not ringing for astrologer ID: %d", sessionID, astrologer.ID)
		utils.Conflict(c, "Call is not ringing", nil)
		return
	}

	utils.LogInfo("Call session %s accepted by astrologer ID: %d", sessionID, astrologer.ID)
	utils.Success(c, "Call accepted", gin.H{
		"session_id": sessionID,
		"status":     models.CallStatusAccepted,
		"start_time": now.Format(time.RFC3339),
	})
}

// MarkCallConnected moves an accepted call to ongoing once media connects.
func MarkCallConnected(c *gin.Context) {
	userVal, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	user := userVal.(models.User)

	sessionID := c.Param("id")
	res := config.DB.Model(&models.CallSession{}).
		Where("id = ? AND user_id = ? AND status = ?", sessionID, user.ID, models.CallStatusAccepted).
		Update("status", models.CallStatusOngoing)
	if res.Error != nil {
		utils.LogError("Failed to mark call %s connected: %v", sessionID, res.Error)
		utils.InternalServerError(c, "Failed to update call status", nil)
		return
	}
	if res.RowsAffected == 0 {
		utils.Conflict(c, "Call is not in an accepted state", nil)
		return
	}
	utils.Success(c, "Call connected", gin.H{"session_id": sessionID, "status": models.CallStatusOngoing})
}

// RejectCall lets the astrologer decline a ringing call.
func RejectCall(c *gin.Context) {
	astrologerVal, exists := c.Get("astrologer")
	if !exists {
		utils.Unauthorized(c, "Astrologer not found")
		return
	}
	astrologer := astrologerVal.(models.Astrologer)

	sessionID := c.Param("id")
	res := config.DB.Model(&models.CallSession{}).
		Where("id = ? AND astrologer_id = ? AND status = ?", sessionID, astrologer.ID, models.CallStatusRinging).
		Update("status", models.CallStatusRejected)
	if res.Error != nil {
		utils.LogError("Failed to reject call %s: %v", sessionID, res.Error)
		utils.InternalServerError(c, "Failed to reject call", nil)
		return
	}
	if res.RowsAffected == 0 {
		utils.Conflict(c, "Call is not ringing", nil)
		return
	}
	utils.LogInfo("Call session %s rejected by astrologer ID: %d", sessionID, astrologer.ID)
	utils.Success(c, "Call rejected", gin.H{"session_id": sessionID, "status": models.CallStatusRejected})
}

// CancelCall lets the caller abandon a call that has not been accepted yet.
func CancelCall(c *gin.Context) {
	userVal, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	user := userVal.(models.User)

	sessionID := c.Param("id")
	res := config.DB.Model(&models.CallSession{}).
		Where("id = ? AND user_id = ? AND status IN ?", sessionID, user.ID,
			[]string{models.CallStatusInitiated, models.CallStatusRinging}).
		Update("status", models.CallStatusCancelled)
	if res.Error != nil {
		utils.LogError("Failed to cancel call %s: %v", sessionID, res.Error)
		utils.InternalServerError(c, "Failed to cancel call", nil)
		return
	}
	if res.RowsAffected == 0 {
		utils.Conflict(c, "Call can no longer be cancelled", nil)
		return
	}
	utils.LogInfo("Call session %s cancelled by user ID: %d", sessionID, user.ID)
	utils.Success(c, "Call cancelled", gin.H{"session_id": sessionID, "status": models.CallStatusCancelled})
}

// EndCall completes an accepted or ongoing call and bills the elapsed time.
// Either party may end the call.
func EndCall(c *gin.Context) {
	utils.LogInfo("EndCall called")

	var session models.CallSession
	if err := config.DB.First(&session, c.Param("id")).Error; err != nil {
		utils.LogError("Call session %s not found: %v", c.Param("id"), err)
		utils.NotFound(c, "Call session not found")
		return
	}

	if userVal, ok := c.Get("user"); ok {
		if user := userVal.(models.User); user.ID != session.UserID {
			utils.Forbidden(c, "Not your call session")
			return
		}
	} else if astrologerVal, ok := c.Get("astrologer"); ok {
		if astrologer := astrologerVal.(models.Astrologer); astrologer.ID != session.AstrologerID {
			utils.Forbidden(c, "Not your call session")
			return
		}
	} else {
		utils.Unauthorized(c, "Not authenticated")
		return
	}

	ended, transaction, err := finalizeCall(session.ID, time.Now())
	if err != nil {
		if ife, ok := utils.IsInsufficientFunds(err); ok {
			utils.LogError("Insufficient balance to settle call %d: %v", session.ID, err)
			utils.PaymentRequired(c, "Insufficient wallet balance to settle this call", ife)
			return
		}
		if appErr := utils.GetAppError(err); appErr != nil {
			utils.Error(c, appErr.Code, appErr.Message, nil)
			return
		}
		utils.LogError("Failed to end call %d: %v", session.ID, err)
		utils.InternalServerError(c, "Failed to end call", nil)
		return
	}

	payload := gin.H{
		"session_id":    ended.ID,
		"status":        ended.Status,
		"total_minutes": ended.TotalMinutes,
		"total_cost":    ended.TotalCost.StringFixed(2),
	}
	if transaction != nil {
		payload["transaction_id"] = transaction.ID
		payload["wallet_balance"] = transaction.BalanceAfter.StringFixed(2)
	}
	utils.LogInfo("Call session %d completed - %d minutes, ₹%s", ended.ID, ended.TotalMinutes, ended.TotalCost.StringFixed(2))
	utils.Success(c, "Call ended", payload)
}

// finalizeCall completes a call exactly once: the status transition, the
// billing computation and the wallet debit commit atomically. Two concurrent
// calls race on the status-guarded update; the loser sees the session already
// completed and returns it without a second debit. If the debit fails the
// whole transaction rolls back and the session stays billable for a retry.
func finalizeCall(sessionID uint, endedAt time.Time) (*models.CallSession, *models.WalletTransaction, error) {
	var (
		session     models.CallSession
		transaction *models.WalletTransaction
	)
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&session, sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFoundError("Call session not found", err)
			}
			return err
		}

		if session.Status == models.CallStatusCompleted {
			// Lost the end race; the winner already billed.
			return nil
		}
		if session.StartTime == nil {
			return utils.ConflictError("Call was never connected", nil)
		}

		minutes, cost := utils.CalculateBill(*session.StartTime, endedAt, session.PricePerMinute)

		res := tx.Model(&models.CallSession{}).
			Where("id = ? AND status IN ?", session.ID, models.CallBillableStatuses).
			Updates(map[string]interface{}{
				"status":        models.CallStatusCompleted,
				"end_time":      endedAt,
				"total_minutes": minutes,
				"total_cost":    cost,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return utils.ConflictError("Call is not in a billable state", nil)
		}

		description := fmt.Sprintf("Call with astrologer #%d (%d min)", session.AstrologerID, minutes)
		_, txn, err := debitWalletTx(tx, session.UserID, cost, description, models.PaymentMethodWallet,
			fmt.Sprintf("CALL-%d", session.ID))
		if err != nil {
			return err
		}
		transaction = txn

		if err := tx.Model(&models.Astrologer{}).Where("id = ?", session.AstrologerID).
			UpdateColumn("total_earnings", gorm.Expr("total_earnings + ?", cost)).Error; err != nil {
			return err
		}

		session.Status = models.CallStatusCompleted
		session.EndTime = &endedAt
		session.TotalMinutes = minutes
		session.TotalCost = cost
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &session, transaction, nil
}
