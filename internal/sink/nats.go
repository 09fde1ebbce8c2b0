package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/telhawk-systems/authsim/internal/models"
)

// Default NATS subjects.
const (
	SubjectLogs    = "authsim.logs"
	SubjectAttacks = "authsim.attacks"

	// HeaderRunID carries the run identifier on every published message.
	HeaderRunID = "Authsim-Run-Id"
)

// NATSConfig configures the NATS sink.
type NATSConfig struct {
	URL            string
	Name           string
	Token          string
	Username       string
	Password       string
	SubjectLogs    string
	SubjectAttacks string
	Timeout        time.Duration
}

// publisher is the subset of *nats.Conn the sink uses.
type publisher interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATS publishes one JSON message per log record and per attack record.
type NATS struct {
	conn           publisher
	subjectLogs    string
	subjectAttacks string
}

// NewNATS connects to the configured server.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Name == "" {
		cfg.Name = "authsim"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(3),
	}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w: %v", models.ErrIO, err)
	}
	return newNATS(conn, cfg), nil
}

func newNATS(conn publisher, cfg NATSConfig) *NATS {
	n := &NATS{
		conn:           conn,
		subjectLogs:    cfg.SubjectLogs,
		subjectAttacks: cfg.SubjectAttacks,
	}
	if n.subjectLogs == "" {
		n.subjectLogs = SubjectLogs
	}
	if n.subjectAttacks == "" {
		n.subjectAttacks = SubjectAttacks
	}
	return n
}

func (n *NATS) Name() string { return "nats" }

func (n *NATS) Write(ctx context.Context, run *models.Run) error {
	for _, rec := range run.Result.Logs {
		if err := n.publish(ctx, n.subjectLogs, run.ID, rec); err != nil {
			return err
		}
	}
	for _, a := range run.Result.Attacks {
		if err := n.publish(ctx, n.subjectAttacks, run.ID, a); err != nil {
			return err
		}
	}

	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush: %w: %v", models.ErrIO, err)
	}
	return nil
}

func (n *NATS) publish(ctx context.Context, subject, runID string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = payload
	msg.Header.Set(HeaderRunID, runID)

	if err := n.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w: %v", subject, models.ErrIO, err)
	}
	return nil
}

func (n *NATS) Close() error {
	n.conn.Close()
	return nil
}
