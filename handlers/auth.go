package handlers

import (
	"errors"
	"net/http"

	"workhours/config"
	"workhours/middleware"
	"workhours/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct {
	config *config.Config
	db     *gorm.DB
	auth   *middleware.Auth
	log    *logrus.Logger
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB, auth *middleware.Auth, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		config: cfg,
		db:     db,
		auth:   auth,
		log:    log,
	}
}

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	var user models.User
	if err := h.db.Where("login = ?", req.Login).First(&user).Error; err != nil {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	if !user.Enabled {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "account disabled"})
		return
	}

	if !user.IsRegistered() {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "account not registered yet"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	token, err := h.auth.GenerateToken(&user, h.config.JWTExpiration)
	if err != nil {
		respondError(w, err)
		return
	}

	middleware.SetTokenCookie(w, token, h.config.JWTExpiration)
	h.log.WithField("login", user.Login).Info("user logged in")
	respondJSON(w, http.StatusOK, user)
}

type registerRequest struct {
	Login           string `json:"login" validate:"required"`
	Password        string `json:"password" validate:"required,min=5"`
	PasswordConfirm string `json:"password_confirm" validate:"required"`
}

// Register completes a pre-provisioned account: the login must already exist,
// be enabled, and have no password set. There is no open self-signup.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if req.Password != req.PasswordConfirm {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "passwords do not match"})
		return
	}

	var user models.User
	err := h.db.Where("login = ?", req.Login).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondJSON(w, http.StatusForbidden, map[string]string{"error": "registration denied: account is not provisioned"})
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}

	if !user.Enabled {
		respondJSON(w, http.StatusForbidden, map[string]string{"error": "account disabled"})
		return
	}

	if user.IsRegistered() {
		respondJSON(w, http.StatusConflict, map[string]string{"error": "account already registered"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.db.Model(&user).Update("password_hash", string(hashedPassword)).Error; err != nil {
		respondError(w, err)
		return
	}

	h.log.WithField("login", user.Login).Info("user registered")
	respondMessage(w, http.StatusCreated, "registration complete")
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearTokenCookie(w)
	respondMessage(w, http.StatusOK, "logged out")
}

// Me returns the acting user resolved by the auth middleware.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	respondJSON(w, http.StatusOK, user)
}
