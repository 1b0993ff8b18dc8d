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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ScheduleLive creates a live session in the scheduled state.
func ScheduleLive(c *gin.Context) {
	utils.LogInfo("ScheduleLive called")
	astrologerVal, exists := c.Get("astrologer")
	if !exists {
		utils.Unauthorized(c, "Astrologer not found")
		return
	}
	astrologer := astrologerVal.(models.Astrologer)

	var req struct {
		Title       string     `json:"title" binding:"required"`
		ScheduledAt *time.Time `json:"scheduled_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request. title is required", err.Error())
		return
	}

	session := models.LiveSession{
		AstrologerID:   astrologer.ID,
		Title:          req.Title,
		Status:         models.LiveStatusScheduled,
		ChannelName:    "live_" + uuid.NewString(),
		PricePerMinute: astrologer.LiveRate,
		ScheduledAt:    req.ScheduledAt,
	}
	if err := config.DB.Create(&session).Error; err != nil {
		utils.LogError("Failed to schedule live session for astrologer ID: %d: %v", astrologer.ID, err)
		utils.InternalServerError(c, "Failed to schedule live session", nil)
		return
	}

	utils.LogInfo("Live session %d scheduled by astrologer ID: %d", session.ID, astrologer.ID)
	utils.Created(c, "Live session scheduled", gin.H{
		"session_id":       session.ID,
		"status":           session.Status,
		"channel_name":     session.ChannelName,
		"price_per_minute": session.PricePerMinute.StringFixed(2),
	})
}

// StartLive moves a scheduled session to live and re-snapshots the rate.
func StartLive(c *gin.Context) {
	utils.LogInfo("StartLive called")
	astrologerVal, exists := c.Get("astrologer")
	if !exists {
		utils.Unauthorized(c, "Astrologer not found")
		return
	}
	astrologer := astrologerVal.(models.Astrologer)

	sessionID := c.Param("id")
	now := time.Now()
	res := config.DB.Model(&models.LiveSession{}).
		Where("id = ? AND astrologer_id = ? AND status = ?", sessionID, astrologer.ID, models.LiveStatusScheduled).
		Updates(map[string]interface{}{
			"status":           models.LiveStatusLive,
			"started_at":       now,
			"price_per_minute": astrologer.LiveRate,
		})
	if res.Error != nil {
		utils.LogError("Failed to start live session %s: %v", sessionID, res.Error)
		utils.InternalServerError(c, "Failed to start live session", nil)
		return
	}
	if res.RowsAffected == 0 {
		utils.Conflict(c, "Live session is not in a scheduled state", nil)
		return
	}

	utils.LogInfo("Live session %s started by astrologer ID: %d", sessionID, astrologer.ID)
	utils.Success(c, "Live session started", gin.H{
		"session_id": sessionID,
		"status":     models.LiveStatusLive,
		"started_at": now.Format(time.RFC3339),
	})
}

// CancelLive cancels a session that never went live.
func CancelLive(c *gin.Context) {
	astrologerVal, exists := c.Get("astrologer")
	if !exists {
		utils.Unauthorized(c, "Astrologer not found")
		return
	}
	astrologer := astrologerVal.(models.Astrologer)

	sessionID := c.Param("id")
	res := config.DB.Model(&models.LiveSession{}).
		Where("id = ? AND astrologer_id = ? AND status = ?", sessionID, astrologer.ID, models.LiveStatusScheduled).
		Update("status", models.LiveStatusCancelled)
	if res.Error != nil {
		utils.InternalServerError(c, "Failed to cancel live session", nil)
		return
	}
	if res.RowsAffected == 0 {
		utils.Conflict(c, "Only scheduled sessions can be cancelled", nil)
		return
	}
	utils.Success(c, "Live session cancelled", gin.H{"session_id": sessionID, "status": models.LiveStatusCancelled})
}

// JoinLive adds the user as an active participant of a live broadcast. A
// returning viewer reuses their participant row; minutes and cost keep
// accumulating across join/leave cycles.
func JoinLive(c *gin.Context) {
	utils.LogInfo("JoinLive called")
	userVal, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	user := userVal.(models.User)

	var session models.LiveSession
	if err := config.DB.First(&session, c.Param("id")).Error; err != nil {
		utils.NotFound(c, "Live session not found")
		return
	}
	if session.Status != models.LiveStatusLive {
		utils.Conflict(c, "Live session is not broadcasting", nil)
		return
	}

	wallet, err := getOrCreateWallet(user.ID)
	if err != nil {
		utils.LogError("Failed to get wallet for user ID: %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to get wallet", nil)
		return
	}
	if wallet.Balance.LessThan(session.PricePerMinute) {
		ife := &utils.InsufficientFundsError{Required: session.PricePerMinute, Available: wallet.Balance}
		utils.PaymentRequired(c, "Insufficient wallet balance to join this live session", ife)
		return
	}

	var participant models.LiveParticipant
	now := time.Now()
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		// The session row is locked while counters move so join/leave events
		// on the same broadcast serialize.
		var locked models.LiveSession
		if err := lockForUpdate(tx).First(&locked, session.ID).Error; err != nil {
			return err
		}
		if locked.Status != models.LiveStatusLive {
			return utils.ConflictError("Live session is not broadcasting", nil)
		}

		err := tx.Where("session_id = ? AND user_id = ?", locked.ID, user.ID).First(&participant).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			participant = models.LiveParticipant{
				SessionID:      locked.ID,
				UserID:         user.ID,
				IsActive:       true,
				PricePerMinute: locked.PricePerMinute,
				JoinedAt:       &now,
			}
			if err := tx.Create(&participant).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		} else {
			res := tx.Model(&models.LiveParticipant{}).
				Where("id = ? AND is_active = ?", participant.ID, false).
				Updates(map[string]interface{}{
					"is_active":        true,
					"joined_at":        now,
					"left_at":          nil,
					"price_per_minute": locked.PricePerMinute,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return utils.ConflictError("You have already joined this live session", nil)
			}
			participant.IsActive = true
			participant.JoinedAt = &now
			participant.PricePerMinute = locked.PricePerMinute
		}

		viewers := locked.CurrentViewers + 1
		updates := map[string]interface{}{"current_viewers": viewers}
		if viewers > locked.MaxViewers {
			updates["max_viewers"] = viewers
		}
		return tx.Model(&models.LiveSession{}).Where("id = ?", locked.ID).Updates(updates).Error
	})
	if err != nil {
		if appErr := utils.GetAppError(err); appErr != nil {
			utils.Error(c, appErr.Code, appErr.Message, nil)
			return
		}
		utils.LogError("Failed to join live session %d for user ID: %d: %v", session.ID, user.ID, err)
		utils.InternalServerError(c, "Failed to join live session", nil)
		return
	}

	utils.LogInfo("User ID: %d joined live session %d", user.ID, session.ID)
	utils.Success(c, "Joined live session", gin.H{
		"session_id":       session.ID,
		"participant_id":   participant.ID,
		"channel_name":     session.ChannelName,
		"price_per_minute": participant.PricePerMinute.StringFixed(2),
		"joined_at":        now.Format(time.RFC3339),
	})
}

// LeaveLive ends the viewer's current watch window and bills it.
func LeaveLive(c *gin.Context) {
	utils.LogInfo("LeaveLive called")
	userVal, exists := c.Get("user")
	if !exists {
		utils.Unauthorized(c, "User not found")
		return
	}
	user := userVal.(models.User)

	var session models.LiveSession
	if err := config.DB.First(&session, c.Param("id")).Error; err != nil {
		utils.NotFound(c, "Live session not found")
		return
	}

	participant, transaction, err := finalizeLiveParticipant(session.ID, user.ID, time.Now(), true)
	if err != nil {
		if ife, ok := utils.IsInsufficientFunds(err); ok {
			utils.PaymentRequired(c, "Insufficient wallet balance to settle this live session", ife)
			return
		}
		if appErr := utils.GetAppError(err); appErr != nil {
			utils.Error(c, appErr.Code, appErr.Message, nil)
			return
		}
		utils.LogError("Failed to leave live session %d for user ID: %d: %v", session.ID, user.ID, err)
		utils.InternalServerError(c, "Failed to leave live session", nil)
		return
	}

	payload := gin.H{
		"session_id":    session.ID,
		"total_minutes": participant.TotalMinutes,
		"total_cost":    participant.TotalCost.StringFixed(2),
	}
	if transaction != nil {
		payload["window_cost"] = transaction.Amount.StringFixed(2)
		payload["wallet_balance"] = transaction.BalanceAfter.StringFixed(2)
	}
	utils.LogInfo("User ID: %d left live session %d", user.ID, session.ID)
	utils.Success(c, "Left live session", payload)
}

// EndLive force-ends a broadcast: every still-active participant is billed
// for their open window before the session is finalized, and the viewer
// counter is reconciled by re-count rather than trusted.
func EndLive(c *gin.Context) {
	utils.LogInfo("EndLive called")
	astrologerVal, exists := c.Get("astrologer")
	if !exists {
		utils.Unauthorized(c, "Astrologer not found")
		return
	}
	astrologer := astrologerVal.(models.Astrologer)

	var session models.LiveSession
	if err := config.DB.First(&session, c.Param("id")).Error; err != nil {
		utils.NotFound(c, "Live session not found")
		return
	}
	if session.AstrologerID != astrologer.ID {
		utils.Forbidden(c, "Not your live session")
		return
	}

	now := time.Now()
	res := config.DB.Model(&models.LiveSession{}).
		Where("id = ? AND status = ?", session.ID, models.LiveStatusLive).
		Updates(map[string]interface{}{
			"status":   models.LiveStatusEnded,
			"ended_at": now,
		})
	if res.Error != nil {
		utils.LogError("Failed to end live session %d: %v", session.ID, res.Error)
		utils.InternalServerError(c, "Failed to end live session", nil)
		return
	}
	if res.RowsAffected == 0 {
		utils.Conflict(c, "Live session is not broadcasting", nil)
		return
	}

	// Bill every participant whose own leave call has not landed yet. Each
	// one settles in its own transaction behind the is_active guard, so a
	// concurrent leave for the same viewer results in exactly one charge.
	var activeIDs []uint
	if err := config.DB.Model(&models.LiveParticipant{}).
		Where("session_id = ? AND is_active = ?", session.ID, true).
		Pluck("user_id", &activeIDs).Error; err != nil {
		utils.LogError("Failed to list active participants for session %d: %v", session.ID, err)
		utils.InternalServerError(c, "Failed to settle participants", nil)
		return
	}

	billed := 0
	defaulted := 0
	for _, userID := range activeIDs {
		if _, _, err := finalizeLiveParticipant(session.ID, userID, now, false); err != nil {
			utils.LogError("Failed to settle participant user ID: %d in session %d: %v", userID, session.ID, err)
			continue
		}
		billed++
	}
	// Participants whose debit could not cover the window are still closed
	// out by finalizeLiveParticipant with a failed ledger record; count them
	// from the log for the response.
	var failedCount int64
	config.DB.Model(&models.WalletTransaction{}).
		Where("reference LIKE ? AND status = ?", fmt.Sprintf("LIVE-%d-%%", session.ID), models.TransactionStatusFailed).
		Count(&failedCount)
	defaulted = int(failedCount)

	// Self-heal the counter from any lost join/leave updates.
	var remaining int64
	config.DB.Model(&models.LiveParticipant{}).
		Where("session_id = ? AND is_active = ?", session.ID, true).
		Count(&remaining)
	if err := config.DB.Model(&models.LiveSession{}).Where("id = ?", session.ID).
		Update("current_viewers", remaining).Error; err != nil {
		utils.LogError("Failed to reconcile viewer count for session %d: %v", session.ID, err)
	}

	var earnings decimal.Decimal
	var ended models.LiveSession
	if err := config.DB.First(&ended, session.ID).Error; err == nil {
		earnings = ended.TotalEarnings
	}

	utils.LogInfo("Live session %d ended - %d participants settled, %d defaulted", session.ID, billed, defaulted)
	utils.Success(c, "Live session ended", gin.H{
		"session_id":          session.ID,
		"status":              models.LiveStatusEnded,
		"participants_billed": billed,
		"participants_owing":  defaulted,
		"total_earnings":      earnings.StringFixed(2),
		"current_viewers":     remaining,
	})
}

// finalizeLiveParticipant closes a viewer's open window exactly once, keyed
// on the is_active conditional update, and debits their wallet. When
// strictFunds is false (forced session end) an uncoverable debit is recorded
// as a failed ledger entry and the participant is closed out anyway; a
// broadcast cannot stay open for one viewer's empty wallet. When true
// (voluntary leave) the shortfall rolls everything back so the viewer stays
// active and retries after a recharge.
func finalizeLiveParticipant(sessionID, userID uint, endedAt time.Time, strictFunds bool) (*models.LiveParticipant, *models.WalletTransaction, error) {
	var (
		participant models.LiveParticipant
		transaction *models.WalletTransaction
	)
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		err := lockForUpdate(tx).
			Where("session_id = ? AND user_id = ?", sessionID, userID).
			First(&participant).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFoundError("You are not a participant of this live session", err)
		}
		if err != nil {
			return err
		}

		if !participant.IsActive {
			// Concurrent leave already settled this window.
			return nil
		}
		if participant.JoinedAt == nil {
			return utils.ConflictError("Participant was never connected", nil)
		}

		minutes, cost := utils.CalculateBill(*participant.JoinedAt, endedAt, participant.PricePerMinute)
		newMinutes := participant.TotalMinutes + minutes
		newCost := participant.TotalCost.Add(cost)

		res := tx.Model(&models.LiveParticipant{}).
			Where("id = ? AND is_active = ?", participant.ID, true).
			Updates(map[string]interface{}{
				"is_active":     false,
				"left_at":       endedAt,
				"total_minutes": newMinutes,
				"total_cost":    newCost,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		description := fmt.Sprintf("Live session #%d (%d min)", sessionID, minutes)
		reference := fmt.Sprintf("LIVE-%d-%d-%d", sessionID, userID, endedAt.Unix())
		_, txn, err := debitWalletTx(tx, userID, cost, description, models.PaymentMethodWallet, reference)
		if err != nil {
			ife, isShortfall := utils.IsInsufficientFunds(err)
			if !isShortfall || strictFunds {
				return err
			}
			// Forced end: close the window and record the uncollected amount.
			failed := models.WalletTransaction{
				UserID:        userID,
				Amount:        cost,
				Type:          models.TransactionTypeDebit,
				Status:        models.TransactionStatusFailed,
				PaymentMethod: models.PaymentMethodWallet,
				Description:   description,
				Reference:     reference,
				Metadata:      fmt.Sprintf("shortfall %s at forced session end", ife.Shortfall().StringFixed(2)),
			}
			if w, werr := getWalletForUpdate(tx, userID, true); werr == nil {
				failed.WalletID = w.ID
				failed.BalanceBefore = w.Balance
				failed.BalanceAfter = w.Balance
			}
			if cerr := tx.Create(&failed).Error; cerr != nil {
				return cerr
			}
		} else {
			transaction = txn
			if err := tx.Model(&models.LiveSession{}).Where("id = ?", sessionID).
				UpdateColumn("total_earnings", gorm.Expr("total_earnings + ?", cost)).Error; err != nil {
				return err
			}
			var host models.LiveSession
			if err := tx.Select("astrologer_id").First(&host, sessionID).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Astrologer{}).Where("id = ?", host.AstrologerID).
				UpdateColumn("total_earnings", gorm.Expr("total_earnings + ?", cost)).Error; err != nil {
				return err
			}
		}

		// Keep the live counter in step with this departure.
		if err := tx.Model(&models.LiveSession{}).
			Where("id = ? AND current_viewers > 0", sessionID).
			UpdateColumn("current_viewers", gorm.Expr("current_viewers - 1")).Error; err != nil {
			return err
		}

		participant.IsActive = false
		participant.LeftAt = &endedAt
		participant.TotalMinutes = newMinutes
		participant.TotalCost = newCost
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &participant, transaction, nil
}
