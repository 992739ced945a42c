package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Rikhil-Nell/call-agent/internal/calls"
	"github.com/Rikhil-Nell/call-agent/internal/telephony"
	"github.com/Rikhil-Nell/call-agent/pkg/logger"

	"github.com/gin-gonic/gin"
)

const serviceName = "outbound-call-api"

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call the lifecycle controller,
// return JSON. The controller never leaks raw transport errors here.

type Handlers struct {
	Calls *calls.Controller
}

type makeCallRequest struct {
	PhoneNumber        string `json:"phone_number" binding:"required"`
	CustomInstructions string `json:"custom_instructions"`
}

type callResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
	RoomName string `json:"room_name,omitempty"`
	CallID   string `json:"call_id,omitempty"`
}

// MakeCall places an outbound call. The request blocks until the far end
// picks up or the trunk reports failure.
func (h Handlers) MakeCall(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call controller not configured"})
		return
	}

	var req makeCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, callResponse{
			Success: false,
			Message: "phone_number is required",
			Code:    "invalid_request",
		})
		return
	}

	call, err := h.Calls.StartOutboundCall(c.Request.Context(), calls.CallRequest{
		PhoneNumber:  req.PhoneNumber,
		Instructions: req.CustomInstructions,
	})
	if err != nil {
		status, code, msg := mapStartError(err)
		if status >= http.StatusInternalServerError {
			log.Error("outbound call failed", "phone", req.PhoneNumber, "err", err)
		} else {
			log.Warn("outbound call rejected", "phone", req.PhoneNumber, "code", code)
		}
		c.AbortWithStatusJSON(status, callResponse{Success: false, Message: msg, Code: code})
		return
	}

	c.JSON(http.StatusOK, callResponse{
		Success:  true,
		Message:  fmt.Sprintf("Call initiated to %s", req.PhoneNumber),
		RoomName: call.RoomName,
		CallID:   call.ID,
	})
}

// CallStatus reports call liveness. Unknown rooms are not an error; they
// report not_found.
func (h Handlers) CallStatus(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call controller not configured"})
		return
	}

	roomName := c.Param("room_name")
	view, err := h.Calls.GetStatus(c.Request.Context(), roomName)
	if err != nil {
		log.Error("call status lookup failed", "room", roomName, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to get call status"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// EndCall terminates a call. Idempotent: ending a call that is already gone
// still succeeds.
func (h Handlers) EndCall(c *gin.Context) {
	log := logger.FromGin(c)

	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call controller not configured"})
		return
	}

	roomName := c.Param("room_name")
	if err := h.Calls.Terminate(c.Request.Context(), roomName, calls.EndReasonUserRequested); err != nil {
		log.Error("end call failed", "room", roomName, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, callResponse{
			Success: false,
			Message: "failed to end call",
		})
		return
	}
	c.JSON(http.StatusOK, callResponse{
		Success: true,
		Message: fmt.Sprintf("Call in room %s ended", roomName),
	})
}

// Health is the liveness probe.
func (h Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
}

// Index lists the control surface.
func (h Handlers) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Outbound Call API",
		"endpoints": gin.H{
			"POST /make-call":              "Make an outbound call",
			"GET /call-status/{room_name}": "Get call status",
			"DELETE /end-call/{room_name}": "End a call",
			"GET /health":                  "Health check",
		},
	})
}

// mapStartError translates the controller's error taxonomy into an HTTP
// status, a distinguishing code and a human-readable message. Internal
// detail stays in the logs.
func mapStartError(err error) (int, string, string) {
	var dispatchErr *calls.DispatchError
	var trunkErr *telephony.TrunkError

	switch {
	case errors.Is(err, calls.ErrInvalidPhoneNumber):
		return http.StatusBadRequest, "invalid_phone_number",
			"Phone number must start with + (e.g., +15551234567)"
	case errors.Is(err, calls.ErrCallInProgress):
		return http.StatusConflict, "call_in_progress",
			"A call for this number is already in progress"
	case errors.Is(err, calls.ErrDialCapReached):
		return http.StatusTooManyRequests, "too_many_calls",
			"Concurrent call limit reached, try again later"
	case errors.Is(err, calls.ErrTerminated):
		return http.StatusConflict, "terminated",
			"Call was ended before setup completed"
	case errors.As(err, &dispatchErr):
		return http.StatusInternalServerError, "dispatch_failed",
			"Failed to initiate call: could not dispatch agent"
	case errors.As(err, &trunkErr):
		msg := "Failed to initiate call: trunk rejected the call"
		if trunkErr.StatusCode != "" {
			msg = fmt.Sprintf("Failed to initiate call: SIP %s %s", trunkErr.StatusCode, trunkErr.StatusText)
		}
		return http.StatusInternalServerError, "trunk_rejected", msg
	default:
		return http.StatusInternalServerError, "internal",
			"Failed to initiate call"
	}
}
