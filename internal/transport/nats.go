// Package transport exposes the assistant over NATS request/reply. The
// conversation frontend publishes one message per user utterance and waits
// for the formatted reply on the same subject exchange.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"aletabank-assistant/internal/common/config"
	"aletabank-assistant/internal/common/logger"
	"aletabank-assistant/internal/models"
)

// Request is the wire format of one utterance. Identity fields arrive
// already verified by the frontend's authentication layer.
type Request struct {
	RequestID string `json:"request_id,omitempty"`
	SessionID string `json:"session_id"`
	Text      string `json:"text"`

	UserID   string `json:"user_id"`
	FullName string `json:"full_name,omitempty"`
	Role     string `json:"role"`
	FamilyID string `json:"family_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Resolver is what the transport needs from the pipeline.
type Resolver interface {
	HandleMessage(ctx context.Context, uctx models.UtteranceContext) (*models.Reply, error)
}

// Connect dials the NATS server with the reconnect settings used across the
// platform.
func Connect(cfg config.NATSConfig, log logger.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name("aletabank-assistant"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("NATS disconnected", nil)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected", map[string]interface{}{"url": c.ConnectedUrl()})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", cfg.URL, err)
	}
	return conn, nil
}

type NATSServer struct {
	conn     *nats.Conn
	sub      *nats.Subscription
	resolver Resolver
	subject  string
	timeout  time.Duration
	log      logger.Logger
}

func NewNATSServer(conn *nats.Conn, subject string, timeout time.Duration, resolver Resolver, log logger.Logger) *NATSServer {
	return &NATSServer{
		conn:     conn,
		resolver: resolver,
		subject:  subject,
		timeout:  timeout,
		log:      log,
	}
}

// Start subscribes to the resolve subject. Each message is handled on the
// NATS delivery goroutine; the pipeline itself is synchronous per message.
func (s *NATSServer) Start() error {
	sub, err := s.conn.Subscribe(s.subject, func(msg *nats.Msg) {
		response := s.handleRequest(msg.Data)
		if err := msg.Respond(response); err != nil {
			s.log.WithError(err).Error("Failed to respond on NATS", map[string]interface{}{"subject": s.subject})
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.subject, err)
	}
	s.sub = sub
	s.log.Info("Listening for utterances", map[string]interface{}{"subject": s.subject})
	return nil
}

func (s *NATSServer) handleRequest(data []byte) []byte {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return marshalError("malformed request payload")
	}
	if err := validate(req); err != nil {
		return marshalError(err.Error())
	}
	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	reply, err := s.resolver.HandleMessage(ctx, toUtteranceContext(req))
	if err != nil {
		s.log.WithError(err).Error("Resolution failed", map[string]interface{}{"requestId": req.RequestID})
		return marshalError("internal error")
	}

	out, err := json.Marshal(reply)
	if err != nil {
		return marshalError("internal error")
	}
	return out
}

func validate(req Request) error {
	switch {
	case strings.TrimSpace(req.Text) == "":
		return fmt.Errorf("text is required")
	case req.SessionID == "":
		return fmt.Errorf("session_id is required")
	case req.UserID == "":
		return fmt.Errorf("user_id is required")
	case req.Role != string(models.RoleParent) && req.Role != string(models.RoleChild):
		return fmt.Errorf("role must be parent or child")
	case req.FamilyID == "":
		return fmt.Errorf("family_id is required")
	}
	return nil
}

func toUtteranceContext(req Request) models.UtteranceContext {
	return models.UtteranceContext{
		RequestID: req.RequestID,
		SessionID: req.SessionID,
		Text:      req.Text,
		Identity: models.Identity{
			UserID:   req.UserID,
			FullName: req.FullName,
			Role:     models.Role(req.Role),
			FamilyID: req.FamilyID,
		},
	}
}

func marshalError(msg string) []byte {
	out, _ := json.Marshal(errorResponse{Error: msg})
	return out
}

// Close drains the subscription and closes the connection.
func (s *NATSServer) Close() {
	if s.sub != nil {
		if err := s.sub.Drain(); err != nil {
			s.log.WithError(err).Warn("Failed to drain subscription", nil)
		}
	}
	if s.conn != nil {
		s.conn.Close()
	}
}
