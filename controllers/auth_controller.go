package controllers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"storefront/database"
	"storefront/models"
	"storefront/session"
	"storefront/utils"
)

// UserRepo is the user persistence surface the controller needs.
// database.UserStore satisfies it.
type UserRepo interface {
	CreateUser(u *models.User) error
	GetUserByEmail(email string) (*models.User, bool)
}

type AuthController struct {
	Users        UserRepo
	Sessions     *session.Manager
	JWTSecret    string
	LoginLimiter *utils.RateLimiter
}

type registerRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func hashPassword(pw string) string {
	sum := sha256.Sum256([]byte(pw))
	return hex.EncodeToString(sum[:])
}

func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if !utils.IsValidEmail(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email address"})
		return
	}
	if !utils.IsValidPassword(req.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters with upper, lower and digit"})
		return
	}
	if !utils.IsValidTextInput(req.FullName) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Full name is required"})
		return
	}
	phone := ""
	if req.Phone != "" {
		phone = utils.FormatSAPhoneNumber(req.Phone)
		if phone == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid South African mobile number"})
			return
		}
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           utils.RandomID(),
		Email:        req.Email,
		PasswordHash: hashPassword(req.Password),
		FullName:     utils.SanitizeText(req.FullName),
		Phone:        phone,
		Role:         models.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := ac.Users.CreateUser(user); err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}

	ac.issueSession(c, user, http.StatusCreated)
}

func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	limitKey := "login:" + email
	if !ac.LoginLimiter.Allow(limitKey) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many login attempts, please try again later"})
		return
	}

	user, ok := ac.Users.GetUserByEmail(email)
	if !ok || user.PasswordHash != hashPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	ac.LoginLimiter.Reset(limitKey)
	ac.issueSession(c, user, http.StatusOK)
}

func (ac *AuthController) issueSession(c *gin.Context, user *models.User, status int) {
	token, err := utils.GenerateToken(ac.JWTSecret, user.ID, user.Email, user.FullName, string(user.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not issue session"})
		return
	}

	// Session change: re-derive admin status and load the profile. The
	// event's own result is returned to this caller; stored per-user
	// state follows last-event-wins.
	result, _ := ac.Sessions.HandleSessionChange(utils.TokenClaims{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Role:     string(user.Role),
	})

	c.JSON(status, gin.H{
		"token":    token,
		"profile":  result.Profile,
		"degraded": result.Degraded,
	})
}

// Me re-runs session reconciliation for the calling token: admin
// status is always re-checked server-side and a failed profile fetch
// degrades to claim-derived data instead of erroring.
func (ac *AuthController) Me(c *gin.Context) {
	claimsVal, exists := c.Get("claims")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	claims := claimsVal.(utils.TokenClaims)

	result, isAdmin := ac.Sessions.HandleSessionChange(claims)
	c.JSON(http.StatusOK, gin.H{
		"profile":  result.Profile,
		"degraded": result.Degraded,
		"reason":   result.Reason,
		"is_admin": isAdmin,
	})
}

// Logout clears local session state unconditionally; a backend
// failure is logged inside the manager but the client still ends up
// signed out.
func (ac *AuthController) Logout(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	_ = ac.Sessions.SignOut(c.GetString("userID"), token)
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}
