package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"medinsight/internal/app"
	"medinsight/internal/transport/http/response"
)

// AskHandler answers one question without touching any session.
type AskHandler struct {
	answerer app.Answerer
	recorder app.TurnRecorder
}

type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

func NewAskHandler(answerer app.Answerer, recorder app.TurnRecorder) *AskHandler {
	return &AskHandler{answerer: answerer, recorder: recorder}
}

func (h *AskHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if h.recorder != nil {
		h.recorder.RecordQuestion("api")
	}
	start := time.Now()
	answer, err := h.answerer.Answer(c.Request.Context(), req.Question)
	if h.recorder != nil {
		h.recorder.ObserveAnswer(time.Since(start))
	}
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeMessageEmpty, err.Error())
		case errors.Is(err, app.ErrRetrieval), errors.Is(err, app.ErrGeneration):
			if h.recorder != nil {
				h.recorder.RecordFailure(app.FailureKind(err))
			}
			response.Error(c, http.StatusBadGateway, response.CodeUpstream, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "answer failed")
		}
		return
	}

	response.OK(c, answer)
}
