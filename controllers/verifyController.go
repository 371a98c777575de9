package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"meriawaaz-be/models"
	"meriawaaz-be/verification"
)

// SendVerificationCode texts a one-time code to the given number.
func (h *Handler) SendVerificationCode(c *gin.Context) {
	var input struct {
		PhoneNumber string `json:"phoneNumber" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	phone, err := verification.NormalizePhone(input.PhoneNumber)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid phone number format")
		return
	}

	if err := h.verifier.Send(c.Request.Context(), phone); err != nil {
		if errors.Is(err, verification.ErrDeliveryFailed) {
			fail(c, http.StatusBadGateway, "Failed to send verification code")
			return
		}
		h.internalError(c, "Failed to send verification code", err)
		return
	}
	respond(c, http.StatusOK, gin.H{"phoneNumber": phone}, "Verification code sent to "+phone)
}

// CheckVerificationCode checks a code and, for signed-in callers, marks the
// profile's phone as verified.
func (h *Handler) CheckVerificationCode(c *gin.Context) {
	var input struct {
		PhoneNumber string `json:"phoneNumber" binding:"required"`
		Code        string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	phone, err := verification.NormalizePhone(input.PhoneNumber)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid phone number format")
		return
	}

	ctx := c.Request.Context()
	switch err := h.verifier.Check(ctx, phone, input.Code); {
	case errors.Is(err, verification.ErrNoCode):
		fail(c, http.StatusBadRequest, "No verification code sent to this number")
		return
	case errors.Is(err, verification.ErrInvalidCode):
		fail(c, http.StatusBadRequest, "Invalid verification code")
		return
	case errors.Is(err, verification.ErrTooManyAttempts):
		fail(c, http.StatusTooManyRequests, "Too many attempts, request a new code")
		return
	case err != nil:
		h.internalError(c, "Failed to verify code", err)
		return
	}

	if identity := currentIdentity(c); identity != nil {
		if _, err := h.ensureProfile(ctx, identity); err != nil {
			h.internalError(c, "Failed to update profile", err)
			return
		}
		verified := true
		if _, err := h.users.Update(ctx, identity.UID, models.UserPatch{Phone: &phone, PhoneVerified: &verified}); err != nil {
			h.internalError(c, "Failed to update profile", err)
			return
		}
	}
	respond(c, http.StatusOK, gin.H{"phoneNumber": phone, "verified": true}, "Phone number verified successfully")
}
