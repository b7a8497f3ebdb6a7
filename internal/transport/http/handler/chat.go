package handler

import (
	"embed"
	"errors"
	"html/template"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"medinsight/internal/app"
	"medinsight/internal/model"
	"medinsight/internal/transport/http/response"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the pages rendered by ChatHandler.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

type ChatHandler struct {
	chatService *app.ChatService
	cookieName  string
	title       string
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type pageData struct {
	Title    string
	Messages []model.Message
	Error    string
}

func NewChatHandler(chatService *app.ChatService, cookieName, title string) *ChatHandler {
	return &ChatHandler{chatService: chatService, cookieName: cookieName, title: title}
}

func (h *ChatHandler) Page(c *gin.Context) {
	id := sessionID(c, h.cookieName)
	messages, err := h.chatService.History(c.Request.Context(), id)
	if err != nil {
		log.Printf("load history failed: session=%s err=%v", id, err)
		h.render(c, http.StatusInternalServerError, nil, "Could not load the conversation.")
		return
	}
	h.render(c, http.StatusOK, messages, "")
}

// Submit runs one turn from the page form and redirects back to the page.
func (h *ChatHandler) Submit(c *gin.Context) {
	id := sessionID(c, h.cookieName)
	_, err := h.chatService.SendMessage(c.Request.Context(), id, c.PostForm("question"))
	if err != nil && !errors.Is(err, app.ErrMessageEmpty) {
		log.Printf("chat turn failed: session=%s err=%v", id, err)
		h.render(c, http.StatusInternalServerError, nil, "Could not save the conversation.")
		return
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *ChatHandler) ResetPage(c *gin.Context) {
	id := sessionID(c, h.cookieName)
	if err := h.chatService.Reset(c.Request.Context(), id); err != nil {
		log.Printf("reset session failed: session=%s err=%v", id, err)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	id := sessionID(c, h.cookieName)
	result, err := h.chatService.SendMessage(c.Request.Context(), id, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrMessageEmpty):
			response.Error(c, http.StatusBadRequest, response.CodeMessageEmpty, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "send message failed")
		}
		return
	}

	response.OK(c, gin.H{
		"session_id": id,
		"messages":   []model.Message{result.User, result.Assistant},
		"sources":    result.Sources,
		"failed":     result.Failed,
	})
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	id := sessionID(c, h.cookieName)
	messages, err := h.chatService.History(c.Request.Context(), id)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "load history failed")
		return
	}
	response.OK(c, gin.H{"session_id": id, "messages": messages})
}

func (h *ChatHandler) ResetSession(c *gin.Context) {
	id := sessionID(c, h.cookieName)
	if err := h.chatService.Reset(c.Request.Context(), id); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "reset session failed")
		return
	}
	response.OK(c, gin.H{"reset_session_id": id})
}

func (h *ChatHandler) render(c *gin.Context, status int, messages []model.Message, errMsg string) {
	c.HTML(status, "chat.html", pageData{Title: h.title, Messages: messages, Error: errMsg})
}
