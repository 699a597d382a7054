// Package identitytest is an in-memory identity backend implementing the
// contract the flow's HTTP client speaks. It exists for e2e tests and local
// development; nothing here persists.
package identitytest

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type account struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         string
	IsVerified   bool
	KYCStatus    string
}

// Server is the fake backend. Accounts created through registration start
// unverified and demand OTP on login until the verify-user PATCH lands.
type Server struct {
	engine *gin.Engine
	secret []byte

	mu   sync.Mutex
	byID map[string]*account
	seq  int
}

func NewServer() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		engine: gin.New(),
		secret: []byte("identitytest-secret"),
		byID:   make(map[string]*account),
	}
	s.routes()
	return s
}

// Handler exposes the backend as an http.Handler for httptest.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves the backend on addr, for the local dev binary.
func (s *Server) Run(addr string) error { return s.engine.Run(addr) }

func (s *Server) routes() {
	s.engine.POST("/auth/register", s.register)
	s.engine.POST("/auth/login", s.login)
	s.engine.POST("/auth/otp-login", s.otpLogin)
	s.engine.POST("/auth/check-phone", s.checkPhone)
	s.engine.PATCH("/users/:id/verify", s.verifyUser)
}

// Seed inserts a ready-made account and returns its id.
func (s *Server) Seed(name, email, phone, password, role string, verified bool) string {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	id := fmt.Sprintf("u%d", s.seq)
	s.byID[id] = &account{
		ID:           id,
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hash),
		Role:         role,
		IsVerified:   verified,
		KYCStatus:    "pending",
	}
	return id
}

func (s *Server) register(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Phone    string `json:"phone" binding:"required"`
		Password string `json:"password" binding:"required,min=8"`
		Role     string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.byID {
		if a.Email == req.Email {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		if a.Phone == req.Phone {
			c.JSON(http.StatusConflict, gin.H{"error": "Phone already registered"})
			return
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register user"})
		return
	}
	s.seq++
	a := &account{
		ID:           fmt.Sprintf("u%d", s.seq),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         req.Role,
		KYCStatus:    "pending",
	}
	s.byID[a.ID] = a

	c.JSON(http.StatusCreated, gin.H{
		"user_id":               a.ID,
		"access_token":          s.token(a.ID, a.Role),
		"requires_verification": true,
	})
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Identifier string `json:"identifier" binding:"required"`
		Password   string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.findLocked(req.Identifier)
	if a == nil || bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !a.IsVerified {
		c.JSON(http.StatusOK, gin.H{
			"requires_otp": true,
			"user_id":      a.ID,
			"phone":        a.Phone,
			"access_token": s.token(a.ID, a.Role),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": s.token(a.ID, a.Role),
		"user":         userJSON(a),
	})
}

func (s *Server) otpLogin(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.findByPhoneLocked(req.Phone)
	if a == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Phone number not registered"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": s.token(a.ID, a.Role),
		"user":         userJSON(a),
	})
}

func (s *Server) checkPhone(c *gin.Context) {
	var req struct {
		Phone string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"exists": s.findByPhoneLocked(req.Phone) != nil})
}

func (s *Server) verifyUser(c *gin.Context) {
	bearer := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if bearer == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
		return
	}
	if _, err := jwt.Parse(bearer, func(t *jwt.Token) (any, error) { return s.secret, nil }); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid bearer token"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	a.IsVerified = true
	c.JSON(http.StatusOK, gin.H{"user": userJSON(a)})
}

func (s *Server) findLocked(identifier string) *account {
	for _, a := range s.byID {
		if a.Email == identifier || a.Phone == identifier {
			return a
		}
	}
	return nil
}

func (s *Server) findByPhoneLocked(phone string) *account {
	phone = strings.TrimPrefix(phone, "+91")
	for _, a := range s.byID {
		if strings.TrimPrefix(a.Phone, "+91") == phone {
			return a
		}
	}
	return nil
}

func (s *Server) token(userID, role string) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(24 * time.Hour).Unix(),
	}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	return tok
}

func userJSON(a *account) gin.H {
	return gin.H{
		"id":          a.ID,
		"name":        a.Name,
		"email":       a.Email,
		"phone":       a.Phone,
		"role":        a.Role,
		"is_verified": a.IsVerified,
		"kyc_status":  a.KYCStatus,
	}
}
