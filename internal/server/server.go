// Package server is the HTTP surface: a banner, a health probe, the
// Pub/Sub push endpoint for Gmail change signals, and the maintenance
// trigger that dispatches due reminders.
package server

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"mail-reminder-bot/internal/cards"
	"mail-reminder-bot/internal/gateway"
	"mail-reminder-bot/internal/models"
)

// Syncer is the mail-sync boundary (implemented by mailsync.Engine).
type Syncer interface {
	Sync(newCheckpoint uint64) ([]models.MailMessage, error)
}

// DispatchRunner is the due-reminder boundary (dispatch.Dispatcher).
type DispatchRunner interface {
	Run() (int, error)
}

type Server struct {
	syncer     Syncer
	dispatcher DispatchRunner
	gw         gateway.NotificationGateway
	chatID     int64 // the single configured user
	timezone   string
	log        *slog.Logger
}

func New(syncer Syncer, dispatcher DispatchRunner, gw gateway.NotificationGateway, chatID int64, timezone string, log *slog.Logger) *Server {
	return &Server{
		syncer:     syncer,
		dispatcher: dispatcher,
		gw:         gw,
		chatID:     chatID,
		timezone:   timezone,
		log:        log,
	}
}

func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/", s.index)
	r.GET("/health", s.health)
	r.POST("/gmail/push", s.gmailPush)
	r.POST("/check-reminders", s.checkReminders)
	return r
}

func (s *Server) index(c *gin.Context) {
	c.String(http.StatusOK, "Email → Telegram reminder bot is running")
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"timezone": s.timezone,
	})
}

// pushEnvelope is the Pub/Sub push wrapper; Data holds base64-encoded
// JSON of {emailAddress, historyId}.
type pushEnvelope struct {
	Message struct {
		Data string `json:"data"`
	} `json:"message"`
}

type changeSignal struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// gmailPush handles one mailbox change signal. It always answers 200:
// Pub/Sub must never re-deliver just because internal processing had a
// non-fatal problem.
func (s *Server) gmailPush(c *gin.Context) {
	defer c.JSON(http.StatusOK, gin.H{"status": "accepted"})

	var env pushEnvelope
	if err := c.ShouldBindJSON(&env); err != nil || env.Message.Data == "" {
		return // no decodable body: ignore, no-op
	}
	payload, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		s.log.Warn("undecodable push data", "err", err)
		return
	}
	var sig changeSignal
	if err := json.Unmarshal(payload, &sig); err != nil || sig.HistoryID == 0 {
		s.log.Warn("malformed change signal", "err", err)
		return
	}

	matched, err := s.syncer.Sync(sig.HistoryID)
	if err != nil {
		s.log.Error("mail sync failed", "err", err, "history_id", sig.HistoryID)
		return
	}
	for _, m := range matched {
		controls := cards.EmailActionControls(m.ID)
		if _, err := s.gw.Send(s.chatID, cards.EmailCard(m), controls); err != nil {
			s.log.Error("email card send failed", "err", err, "message_id", m.ID)
		}
	}
}

// checkReminders is the dispatch trigger. Unlike the webhook it is
// invoked directly, so a missing dependency is a hard failure here.
func (s *Server) checkReminders(c *gin.Context) {
	if s.dispatcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dispatcher not configured"})
		return
	}
	n, err := s.dispatcher.Run()
	if err != nil {
		s.log.Error("dispatch run failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dispatched": n})
}
