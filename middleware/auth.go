package middleware

import (
	"net/http"
	"strings"

	"github.com/astroconnect/backend/config"
	"github.com/astroconnect/backend/models"
	"github.com/astroconnect/backend/utils"
	"github.com/gin-gonic/gin"
)

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}
	tokenString := strings.Replace(authHeader, "Bearer ", "", 1)
	if tokenString == authHeader {
		return "", false
	}
	return tokenString, true
}

// AuthMiddleware authenticates a regular user token and loads the user
// into the request context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.LogInfo("AuthMiddleware called")

		tokenString, ok := bearerToken(c)
		if !ok {
			utils.LogError("Missing or malformed Authorization header")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Please login for access"})
			c.Abort()
			return
		}

		accountID, role, err := utils.ValidateToken(tokenString)
		if err != nil {
			utils.LogError("Invalid token: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Please login for access"})
			c.Abort()
			return
		}
		if role != "user" {
			utils.LogError("Token role %s attempted user access", role)
			c.JSON(http.StatusForbidden, gin.H{"error": "User access required"})
			c.Abort()
			return
		}

		utils.LogDebug("Authenticating user ID: %d", accountID)
		var user models.User
		if err := config.DB.First(&user, accountID).Error; err != nil {
			utils.LogError("User not found: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			c.Abort()
			return
		}

		if user.IsBlocked {
			utils.LogError("Blocked user attempted access: %d", user.ID)
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is blocked"})
			c.Abort()
			return
		}

		c.Set("user", user)
		utils.LogInfo("User %d authenticated successfully", user.ID)
		c.Next()
	}
}

// AstrologerMiddleware authenticates an astrologer token and loads the
// astrologer into the request context.
func AstrologerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.LogInfo("AstrologerMiddleware called")

		tokenString, ok := bearerToken(c)
		if !ok {
			utils.LogError("Missing or malformed Authorization header")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Please login for access"})
			c.Abort()
			return
		}

		accountID, role, err := utils.ValidateToken(tokenString)
		if err != nil {
			utils.LogError("Invalid astrologer token: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Please login for access"})
			c.Abort()
			return
		}
		if role != "astrologer" {
			utils.LogError("Token role %s attempted astrologer access", role)
			c.JSON(http.StatusForbidden, gin.H{"error": "Astrologer access required"})
			c.Abort()
			return
		}

		utils.LogDebug("Authenticating astrologer ID: %d", accountID)
		var astrologer models.Astrologer
		if err := config.DB.First(&astrologer, accountID).Error; err != nil {
			utils.LogError("Astrologer not found: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Astrologer not found"})
			c.Abort()
			return
		}

		if astrologer.IsBlocked {
			utils.LogError("Blocked astrologer attempted access: %d", astrologer.ID)
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is blocked"})
			c.Abort()
			return
		}
		if !astrologer.IsApproved {
			utils.LogError("Unapproved astrologer attempted access: %d", astrologer.ID)
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is pending approval"})
			c.Abort()
			return
		}

		c.Set("astrologer", astrologer)
		utils.LogInfo("Astrologer %d authenticated successfully", astrologer.ID)
		c.Next()
	}
}

// PartyMiddleware authenticates either side of a consultation session,
// loading a user or an astrologer depending on the token role. Used for
// endpoints both parties may call, such as ending a call.
func PartyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.LogInfo("PartyMiddleware called")

		tokenString, ok := bearerToken(c)
		if !ok {
			utils.LogError("Missing or malformed Authorization header")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Please login for access"})
			c.Abort()
			return
		}

		accountID, role, err := utils.ValidateToken(tokenString)
		if err != nil {
			utils.LogError("Invalid token: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Please login for access"})
			c.Abort()
			return
		}

		switch role {
		case "user":
			var user models.User
			if err := config.DB.First(&user, accountID).Error; err != nil {
				utils.LogError("User not found: %v", err)
				c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
				c.Abort()
				return
			}
			if user.IsBlocked {
				utils.LogError("Blocked user attempted access: %d", user.ID)
				c.JSON(http.StatusForbidden, gin.H{"error": "Account is blocked"})
				c.Abort()
				return
			}
			c.Set("user", user)
		case "astrologer":
			var astrologer models.Astrologer
			if err := config.DB.First(&astrologer, accountID).Error; err != nil {
				utils.LogError("Astrologer not found: %v", err)
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Astrologer not found"})
				c.Abort()
				return
			}
			if astrologer.IsBlocked {
				utils.LogError("Blocked astrologer attempted access: %d", astrologer.ID)
				c.JSON(http.StatusForbidden, gin.H{"error": "Account is blocked"})
				c.Abort()
				return
			}
			c.Set("astrologer", astrologer)
		default:
			utils.LogError("Token role %s attempted party access", role)
			c.JSON(http.StatusForbidden, gin.H{"error": "User or astrologer access required"})
			c.Abort()
			return
		}

		utils.LogInfo("Account %d (%s) authenticated successfully", accountID, role)
		c.Next()
	}
}

// AdminMiddleware authenticates an admin token and loads the admin into
// the request context.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.LogInfo("AdminMiddleware called")

		tokenString, ok := bearerToken(c)
		if !ok {
			utils.LogError("Missing or malformed Authorization header")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		accountID, role, err := utils.ValidateToken(tokenString)
		if err != nil {
			utils.LogError("Invalid admin token: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Please login for access"})
			c.Abort()
			return
		}
		if role != "admin" {
			utils.LogError("Token role %s attempted admin access", role)
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		utils.LogDebug("Authenticating admin ID: %d", accountID)
		var admin models.Admin
		if err := config.DB.First(&admin, accountID).Error; err != nil {
			utils.LogError("Admin not found: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Admin not found"})
			c.Abort()
			return
		}

		if !admin.IsActive {
			utils.LogError("Inactive admin attempted access: %d", admin.ID)
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin account is inactive"})
			c.Abort()
			return
		}

		c.Set("admin", admin)
		utils.LogInfo("Admin %d authenticated successfully", admin.ID)
		c.Next()
	}
}
