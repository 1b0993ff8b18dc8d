package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/astroconnect/backend/config"
	"github.com/astroconnect/backend/models"
	"github.com/astroconnect/backend/utils"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StartChat requests a chat with an astrologer. The session row is reused
// across conversations with the same astrologer: a fresh request reactivates
// the existing session instead of creating a duplicate.
func StartChat(c *gin.Context) {
	utils.LogInfo("StartChat called")
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
		utils.NotFound(c, "Astrologer not found")
		return
	}

	wallet, err := getOrCreateWallet(user.ID)
	if err != nil {
		utils.LogError("Failed to get wallet for user ID: %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to get wallet", nil)
		return
	}
	if wallet.Balance.LessThan(astrologer.ChatRate) {
		ife := &utils.InsufficientFundsError{Required: astrologer.ChatRate, Available: wallet.Balance}
		utils.PaymentRequired(c, "Insufficient wallet balance to start a chat", ife)
		return
	}

	var session models.ChatSession
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		err := lockForUpdate(tx).
			Where("user_id = ? AND astrologer_id = ?", user.ID, astrologer.ID).
			First(&session).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			session = models.ChatSession{
				UserID:        user.ID,
				AstrologerID:  astrologer.ID,
				Status:        models.ChatStatusEnded,
				RequestStatus: models.ChatRequestPending,
			}
			return tx.Create(&session).Error
		}
		if err != nil {
			return err
		}
		if session.Status == models.ChatStatusActive {
			return utils.ConflictError("Chat is already active", nil)
		}
		if session.RequestStatus == models.ChatRequestPending {
			return utils.ConflictError("Chat request is already pending", nil)
		}
		session.RequestStatus = models.ChatRequestPending
		return tx.Model(&session).Update("request_status", models.ChatRequestPending).Error
	})
	if err != nil {
		if appErr := utils.GetAppError(err); appErr != nil {
			utils.Error(c, appErr.Code, appErr.Message, nil)
			return
		}
		utils.LogError("Failed to start chat for user ID: %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to start chat", nil)
		return
	}

	utils.LogInfo("Chat request created - session ID: %d, user ID: %d, astrologer ID: %d", session.ID, user.ID, astrologer.ID)
	utils.Created(c, "Chat requested. Waiting for the astrologer to approve.", gin.H{
		"session_id":     session.ID,
		"request_status": session.RequestStatus,
		"chat_rate":      astrologer.ChatRate.StringFixed(2),
		"total_minutes":  session.TotalMinutes,
		"total_cost":     session.TotalCost.StringFixed(2),
	})
}

// RespondChatRequest lets the astrologer approve or reject a pending chat
// request. Approval opens a new billable window with the current chat rate.
func RespondChatRequest(c *gin.Context) {
	utils.LogInfo("RespondChatRequest called")
	astrologerVal, exists := c.Get("astrologer")
	if !exists {
		utils.Unauthorized(c, "Astrologer not found")
		return
	}
	astrologer := astrologerVal.(models.Astrologer)

	var req struct {
		Action string `json:"action" binding:"required,oneof=approve reject"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request. action must be approve or reject", err.Error())
		return
	}

	sessionID := c.Param("id")
	now := time.Now()

	updates := map[string]interface{}{}
	if req.Action == "approve" {
		updates["request_status"] = models.ChatRequestApproved
		updates["status"] = models.ChatStatusActive
		updates["start_time"] = now
		updates["end_time"] = nil
		// Rate is re-snapshotted at each window start so a rate change never
		// shifts billing mid-window.
		updates["price_per_minute"] = astrologer.ChatRate
	} else {
		updates["request_status"] = models.ChatRequestRejected
	}

	res := config.DB.Model(&models.ChatSession{}).
		Where("id = ? AND astrologer_id = ? AND request_status = ?", sessionID, astrologer.ID, models.ChatRequestPending).
		Updates(updates)
	if res.Error != nil {
		utils.LogError("Failed to respond to chat request %s: %v", sessionID, res.Error)
		utils.InternalServerError(c, "Failed to respond to chat request", nil)
		return
	}
	if res.RowsAffected == 0 {
		utils.Conflict(c, "Chat request already handled", nil)
		return
	}

	utils.LogInfo("Chat request %s %sd by astrologer ID: %d", sessionID, req.Action, astrologer.ID)
	utils.Success(c, "Chat request "+req.Action+"d", gin.H{
		"session_id":     sessionID,
		"request_status": updates["request_status"],
	})
}

// SendMessage appends a message to a chat session. Users may write while the
// request is pending or approved; the astrologer side is gated on approval.
func SendMessage(c *gin.Context) {
	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request. body is required", err.Error())
		return
	}

	var session models.ChatSession
	if err := config.DB.First(&session, c.Param("id")).Error; err != nil {
		utils.NotFound(c, "Chat session not found")
		return
	}

	var senderType string
	var senderID uint
	if userVal, ok := c.Get("user"); ok {
		user := userVal.(models.User)
		if user.ID != session.UserID {
			utils.Forbidden(c, "Not your chat session")
			return
		}
		if session.RequestStatus == models.ChatRequestRejected {
			utils.Conflict(c, "Chat request was rejected", nil)
			return
		}
		senderType, senderID = models.ChatSenderUser, user.ID
	} else if astrologerVal, ok := c.Get("astrologer"); ok {
		astrologer := astrologerVal.(models.Astrologer)
		if astrologer.ID != session.AstrologerID {
			utils.Forbidden(c, "Not your chat session")
			return
		}
		if session.RequestStatus != models.ChatRequestApproved {
			utils.Conflict(c, "Chat request has not been approved", nil)
			return
		}
		senderType, senderID = models.ChatSenderAstrologer, astrologer.ID
	} else {
		utils.Unauthorized(c, "Not authenticated")
		return
	}

	message := models.ChatMessage{
		SessionID:  session.ID,
		SenderType: senderType,
		SenderID:   senderID,
		Body:       req.Body,
	}
	if err := config.DB.Create(&message).Error; err != nil {
		utils.LogError("Failed to save message for session ID: %d: %v", session.ID, err)
		utils.InternalServerError(c, "Failed to send message", nil)
		return
	}

	utils.Created(c, "Message sent", gin.H{
		"message_id": message.ID,
		"session_id": session.ID,
		"sent_at":    message.CreatedAt.Format(time.RFC3339),
	})
}

// GetChatMessages lists a session's messages, newest first.
func GetChatMessages(c *gin.Context) {
	var session models.ChatSession
	if err := config.DB.First(&session, c.Param("id")).Error; err != nil {
		utils.NotFound(c, "Chat session not found")
		return
	}

	authorized := false
	if userVal, ok := c.Get("user"); ok {
		authorized = userVal.(models.User).ID == session.UserID
	} else if astrologerVal, ok := c.Get("astrologer"); ok {
		authorized = astrologerVal.(models.Astrologer).ID == session.AstrologerID
	}
	if !authorized {
		utils.Forbidden(c, "Not your chat session")
		return
	}

	pagination := utils.NewPagination(c)
	var total int64
	config.DB.Model(&models.ChatMessage{}).Where("session_id = ?", session.ID).Count(&total)
	pagination.SetTotal(total)

	var messages []models.ChatMessage
	if err := config.DB.Where("session_id = ?", session.ID).
		Order("created_at DESC").
		Limit(pagination.Limit).Offset(pagination.Offset).
		Find(&messages).Error; err != nil {
		utils.LogError("Failed to fetch messages for session ID: %d: %v", session.ID, err)
		utils.InternalServerError(c, "Failed to fetch messages", nil)
		return
	}

	utils.SendPaginatedResponse(c, messages, pagination)
}

// EndChat closes the current billing window. The cost of this window is added
// to the session's running totals; the session itself survives for the next
// conversation.
func EndChat(c *gin.Context) {
	utils.LogInfo("EndChat called")

	var session models.ChatSession
	if err := config.DB.First(&session, c.Param("id")).Error; err != nil {
		utils.NotFound(c, "Chat session not found")
		return
	}

	authorized := false
	if userVal, ok := c.Get("user"); ok {
		authorized = userVal.(models.User).ID == session.UserID
	} else if astrologerVal, ok := c.Get("astrologer"); ok {
		authorized = astrologerVal.(models.Astrologer).ID == session.AstrologerID
	}
	if !authorized {
		utils.Forbidden(c, "Not your chat session")
		return
	}

	ended, transaction, err := finalizeChatWindow(session.ID, time.Now())
	if err != nil {
		if ife, ok := utils.IsInsufficientFunds(err); ok {
			utils.PaymentRequired(c, "Insufficient wallet balance to settle this chat", ife)
			return
		}
		if appErr := utils.GetAppError(err); appErr != nil {
			utils.Error(c, appErr.Code, appErr.Message, nil)
			return
		}
		utils.LogError("Failed to end chat %d: %v", session.ID, err)
		utils.InternalServerError(c, "Failed to end chat", nil)
		return
	}

	payload := gin.H{
		"session_id":    ended.ID,
		"status":        ended.Status,
		"total_minutes": ended.TotalMinutes,
		"total_cost":    ended.TotalCost.StringFixed(2),
	}
	if transaction != nil {
		payload["window_cost"] = transaction.Amount.StringFixed(2)
		payload["wallet_balance"] = transaction.BalanceAfter.StringFixed(2)
	}
	utils.LogInfo("Chat session %d window closed - cumulative %d minutes, ₹%s", ended.ID, ended.TotalMinutes, ended.TotalCost.StringFixed(2))
	utils.Success(c, "Chat ended", payload)
}

// finalizeChatWindow bills the currently active window exactly once and
// accumulates the result onto the session totals. Concurrent enders race on
// the active-status guard; the loser returns the already-ended session.
func finalizeChatWindow(sessionID uint, endedAt time.Time) (*models.ChatSession, *models.WalletTransaction, error) {
	var (
		session     models.ChatSession
		transaction *models.WalletTransaction
	)
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&session, sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFoundError("Chat session not found", err)
			}
			return err
		}

		if session.Status != models.ChatStatusActive {
			// Already ended; nothing left to bill.
			return nil
		}
		if session.StartTime == nil {
			return utils.ConflictError("Chat window was never opened", nil)
		}

		minutes, cost := utils.CalculateBill(*session.StartTime, endedAt, session.PricePerMinute)
		newMinutes := session.TotalMinutes + minutes
		newCost := session.TotalCost.Add(cost)

		res := tx.Model(&models.ChatSession{}).
			Where("id = ? AND status = ?", session.ID, models.ChatStatusActive).
			Updates(map[string]interface{}{
				"status":        models.ChatStatusEnded,
				"end_time":      endedAt,
				"total_minutes": newMinutes,
				"total_cost":    newCost,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		description := fmt.Sprintf("Chat with astrologer #%d (%d min)", session.AstrologerID, minutes)
		_, txn, err := debitWalletTx(tx, session.UserID, cost, description, models.PaymentMethodWallet,
			fmt.Sprintf("CHAT-%d-%d", session.ID, endedAt.Unix()))
		if err != nil {
			return err
		}
		transaction = txn

		if err := tx.Model(&models.Astrologer{}).Where("id = ?", session.AstrologerID).
			UpdateColumn("total_earnings", gorm.Expr("total_earnings + ?", cost)).Error; err != nil {
			return err
		}

		session.Status = models.ChatStatusEnded
		session.EndTime = &endedAt
		session.TotalMinutes = newMinutes
		session.TotalCost = newCost
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &session, transaction, nil
}
