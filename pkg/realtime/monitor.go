// Package realtime monitors the realtime websocket connection of the notebook service.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
)

// DefaultEndpoint is the realtime endpoint of a locally running service.
const DefaultEndpoint = "ws://localhost:3030/api/ws"

var ErrConnect = errors.New("unable to connect to web socket server")

// Message types sent by the monitor.
const (
	TypeAuthenticate = "authenticate"
	TypeSubscribe    = "subscribe"
	TypeDebugRequest = "debug_request"
)

// ClientMessage is a message sent by the monitor to the server.
type ClientMessage struct {
	Type       string `json:"type"`
	OpID       string `json:"opId,omitempty"`
	Token      string `json:"token,omitempty"`
	NotebookID string `json:"notebookId,omitempty"`
}

// Monitor prints everything the server sends on a realtime connection.
type Monitor struct {
	endpoint  string
	token     string
	notebooks []string
	dialer    ws.Dialer
	logger    *slog.Logger
}

func NewMonitor(endpoint, token string, notebooks []string, logger *slog.Logger) *Monitor {
	return &Monitor{
		endpoint:  endpoint,
		token:     token,
		notebooks: notebooks,
		logger:    logger.With("module", "realtime_monitor"),
	}
}

// Run authenticates, subscribes to the notebooks and requests debug
// information, then copies every text frame to w, one per line. It returns
// when the server closes the connection or ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, w io.Writer) error {
	m.logger.InfoContext(ctx, "connecting", "endpoint", m.endpoint)

	conn, br, _, err := m.dialer.Dial(ctx, m.endpoint)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnect, err)
	}

	defer func() { _ = conn.Close() }()

	var reader io.Reader = conn
	if br != nil {
		reader = br

		defer ws.PutReader(br)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	messages := []ClientMessage{{Type: TypeAuthenticate, OpID: uuid.NewString(), Token: m.token}}

	for _, notebook := range m.notebooks {
		messages = append(messages, ClientMessage{Type: TypeSubscribe, OpID: uuid.NewString(), NotebookID: notebook})
	}

	if len(m.notebooks) > 0 {
		m.logger.InfoContext(ctx, "subscribing to notebooks", "notebooks", m.notebooks)
	}

	messages = append(messages, ClientMessage{Type: TypeDebugRequest, OpID: uuid.NewString()})

	for _, message := range messages {
		data, err := json.Marshal(message)
		if err != nil {
			return err
		}

		if err := wsutil.WriteClientText(conn, data); err != nil {
			return fmt.Errorf("failed to send %s message: %w", message.Type, err)
		}
	}

	rw := struct {
		io.Reader
		io.Writer
	}{reader, conn}

	for {
		data, op, err := wsutil.ReadServerData(rw)
		if err != nil {
			if ctx.Err() != nil || isClosed(err) {
				m.logger.InfoContext(ctx, "connection closed")

				return nil
			}

			return fmt.Errorf("failed to read message: %w", err)
		}

		if op != ws.OpText {
			m.logger.WarnContext(ctx, "received unexpected non-text frame", "opcode", op, "bytes", len(data))

			continue
		}

		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return err
		}
	}
}

func isClosed(err error) bool {
	var closed wsutil.ClosedError

	return errors.As(err, &closed) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
