package main

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"dacalc/models"
)

// jwtSecret signs bearer tokens. Empty disables authentication.
var jwtSecret []byte

const tokenTTL = 24 * time.Hour

var errInvalidCredentials = errors.New("invalid credentials")

// AuthenticateClient checks a client id and secret against the stored bcrypt hash.
func AuthenticateClient(clientID, secret string) (models.APIClient, error) {
	if db == nil {
		return models.APIClient{}, errNoDB
	}
	clientID = strings.TrimSpace(clientID)
	var client models.APIClient
	if err := db.Where("client_id = ?", clientID).First(&client).Error; err != nil {
		return models.APIClient{}, errInvalidCredentials
	}
	if client.Disabled {
		return models.APIClient{}, errInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(client.SecretHash, []byte(secret)); err != nil {
		return models.APIClient{}, errInvalidCredentials
	}
	return client, nil
}

// issueToken signs an HS256 token for clientID.
func issueToken(clientID string, now time.Time) (string, time.Time, error) {
	if len(jwtSecret) == 0 {
		return "", time.Time{}, fmt.Errorf("JWT_SECRET is not set")
	}
	exp := now.Add(tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"client_id": clientID,
		"iat":       now.Unix(),
		"exp":       exp.Unix(),
	})
	s, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

func jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		clientID, _ := claims["client_id"].(string)
		c.Set("client_id", clientID)
		c.Next()
	}
}

func tokenHandler(c *gin.Context) {
	if len(jwtSecret) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "token auth disabled (JWT_SECRET not set)"})
		return
	}
	if db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": errNoDB.Error()})
		return
	}
	var req struct {
		ClientID     string `json:"client_id" binding:"required"`
		ClientSecret string `json:"client_secret" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	client, err := AuthenticateClient(req.ClientID, req.ClientSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	tokenString, exp, err := issueToken(client.ClientID, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tokenString, "expires_at": exp.UTC().Format(time.RFC3339)})
}
