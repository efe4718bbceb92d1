// middleware/auth.go
package middleware

import (
	"errors"
	"strings"
	"time"

	"acmportal/apperrors"
	"acmportal/models"
	"acmportal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const userLocal = "user"

// Auth validates HS256 bearer tokens and loads the caller's user row.
type Auth struct {
	db     *gorm.DB
	secret []byte
}

func NewAuth(db *gorm.DB, secret string) *Auth {
	return &Auth{db: db, secret: []byte(secret)}
}

// IssueToken signs a token for user valid for ttl.
func (a *Auth) IssueToken(user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"email":    user.Email,
		"is_staff": user.IsStaff,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Required rejects requests without a valid token for an active user.
func (a *Auth) Required(c *fiber.Ctx) error {
	user, err := a.authenticate(c)
	if err != nil {
		return utils.JSONError(c, err)
	}
	c.Locals(userLocal, user)
	c.Locals("userId", user.ID)
	return c.Next()
}

// Optional loads the user when a valid token is present and continues
// either way.
func (a *Auth) Optional(c *fiber.Ctx) error {
	if c.Get(fiber.HeaderAuthorization) == "" {
		return c.Next()
	}
	if user, err := a.authenticate(c); err == nil {
		c.Locals(userLocal, user)
		c.Locals("userId", user.ID)
	}
	return c.Next()
}

// StaffRequired must run after Required.
func StaffRequired(c *fiber.Ctx) error {
	user, err := CurrentUser(c)
	if err != nil {
		return utils.JSONError(c, err)
	}
	if !user.IsStaff {
		return utils.JSONError(c, apperrors.New(apperrors.CodeForbidden, "Access denied. Staff privileges required."))
	}
	return c.Next()
}

// CurrentUser returns the user loaded by Required or Optional.
func CurrentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals(userLocal).(*models.User)
	if !ok || user == nil {
		return nil, apperrors.New(apperrors.CodeAuthRequired, "User not authenticated")
	}
	return user, nil
}

func (a *Auth) authenticate(c *fiber.Ctx) (*models.User, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return nil, apperrors.New(apperrors.CodeAuthRequired, "Missing authorization header")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, apperrors.New(apperrors.CodeAuthRequired, "Invalid authorization header format")
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, apperrors.New(apperrors.CodeAuthRequired, "Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperrors.New(apperrors.CodeAuthRequired, "Invalid token claims")
	}
	id, ok := claims["user_id"].(float64)
	if !ok || id <= 0 {
		return nil, apperrors.New(apperrors.CodeAuthRequired, "Invalid user ID format")
	}

	var user models.User
	err = a.db.WithContext(c.UserContext()).First(&user, uint(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !user.IsActive) {
		return nil, apperrors.New(apperrors.CodeAuthRequired, "User not found or inactive")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
