package host

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/leapstack-labs/rulehost/internal/registry"
	"github.com/leapstack-labs/rulehost/pkg/lint"
)

// DefaultMaxMessageBytes bounds a single protocol line.
const DefaultMaxMessageBytes = 16 << 20

type state int

const (
	stateAwaitingInit state = iota
	stateServing
	stateShutdown
)

func (s state) String() string {
	switch s {
	case stateAwaitingInit:
		return "awaiting-init"
	case stateServing:
		return "serving"
	case stateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Options configure a Server.
type Options struct {
	// Policy applied to rule failures. Empty means PolicyAbort.
	Policy Policy

	// MaxMessageBytes bounds one input line. Zero means DefaultMaxMessageBytes.
	MaxMessageBytes int

	// MetricsFile, when set, receives the session metrics at the end of Run.
	MetricsFile string

	Logger *slog.Logger
}

// Server is one host session over a reader/writer pair.
type Server struct {
	loader *registry.Loader
	opts   Options

	reader  *bufio.Reader
	encoder *json.Encoder

	logger     *slog.Logger
	metrics    *Metrics
	dispatcher *Dispatcher
	state      state
}

// NewServer creates a session that loads rule sources with loader.
func NewServer(r io.Reader, w io.Writer, loader *registry.Loader, opts Options) *Server {
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = DefaultMaxMessageBytes
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if loader == nil {
		loader = &registry.Loader{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	return &Server{
		loader:  loader,
		opts:    opts,
		reader:  bufio.NewReader(r),
		encoder: enc,
		logger:  logger.With("session", uuid.NewString()),
		metrics: NewMetrics(),
	}
}

// Metrics returns the session metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Run serves the session until shutdown, end of input, cancellation between
// requests, or a terminal error. End of input and shutdown return nil. A
// terminal error is written to the client before it is returned.
func (s *Server) Run(ctx context.Context) (err error) {
	s.logger.Info("rule host session starting")
	defer func() {
		s.state = stateShutdown
		if s.opts.MetricsFile != "" {
			if werr := s.metrics.WriteFile(s.opts.MetricsFile); werr != nil {
				s.logger.Error("failed to write metrics", "file", s.opts.MetricsFile, "error", werr)
			}
		}
		s.logger.Info("rule host session ended", "error", err)
	}()

	if err := s.init(ctx); err != nil {
		if errors.Is(err, io.EOF) {
			s.logger.Info("input closed before init")
			return nil
		}
		return err
	}

	for s.state == stateServing {
		if ctx.Err() != nil {
			s.logger.Info("session canceled")
			return nil
		}

		line, err := s.readMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("client disconnected")
				return nil
			}
			return s.fail(err)
		}

		if err := s.handle(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) init(ctx context.Context) error {
	line, err := s.readMessage()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return err
		}
		return s.fail(err)
	}

	msg, err := decodeInit(line)
	if err != nil {
		return s.fail(err)
	}

	reg, err := s.loader.Load(ctx, msg.Scripts)
	if err != nil {
		return s.fail(err)
	}

	s.dispatcher = NewDispatcher(reg, s.opts.Policy, s.logger, s.metrics)
	s.state = stateServing
	s.logger.Info("rule sources loaded", "count", reg.Len(), "policy", s.dispatcher.policy)
	return s.send(ReadyResponse{Type: TypeReady})
}

func (s *Server) handle(ctx context.Context, line []byte) error {
	msg, stage, err := decodeRequest(line)
	if err != nil {
		return s.fail(err)
	}
	if msg.Kind == KindShutdown {
		s.logger.Info("shutdown requested")
		s.state = stateShutdown
		return nil
	}

	req := lint.NewRequest(stage, msg.Path, msg.Payload, msg.Rules.Selection())
	res, err := s.dispatcher.Dispatch(ctx, req)
	if err != nil {
		return s.fail(err)
	}

	resp := ViolationsResponse{
		Type:       TypeViolations,
		Stage:      res.Stage,
		Violations: res.Violations,
	}
	for _, rerr := range res.RuleErrors {
		resp.RuleErrors = append(resp.RuleErrors, RuleErrorRecord{Script: rerr.Source, Detail: rerr.Err.Error()})
	}
	return s.send(resp)
}

// fail writes the terminal error record for err and returns err.
func (s *Server) fail(err error) error {
	resp := ErrorResponse{Type: TypeError, Detail: err.Error()}

	var (
		rerr *RuleError
		lerr *registry.LoadError
		perr *ProtocolError
	)
	switch {
	case errors.As(err, &rerr):
		resp.Script = rerr.Source
		resp.Detail = rerr.Err.Error()
	case errors.As(err, &lerr):
		resp.Script = lerr.Source
		resp.Detail = lerr.Err.Error()
	case errors.As(err, &perr):
		resp.Detail = perr.Detail
	}

	s.logger.Error("session failed", "state", s.state, "script", resp.Script, "error", err)
	s.state = stateShutdown
	if werr := s.send(resp); werr != nil {
		return errors.Join(err, werr)
	}
	return err
}

func (s *Server) send(v any) error {
	if err := s.encoder.Encode(v); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

// readMessage returns the next non-blank line without its terminator.
func (s *Server) readMessage() ([]byte, error) {
	for {
		line, err := s.readLine()
		if err != nil {
			return nil, err
		}
		if line = bytes.TrimSpace(line); len(line) > 0 {
			return line, nil
		}
	}
}

func (s *Server) readLine() ([]byte, error) {
	var buf []byte
	for {
		chunk, err := s.reader.ReadSlice('\n')
		if len(buf)+len(bytes.TrimRight(chunk, "\r\n")) > s.opts.MaxMessageBytes {
			return nil, protocolErrorf("message exceeds %d bytes", s.opts.MaxMessageBytes)
		}
		buf = append(buf, chunk...)

		switch {
		case err == nil:
			return buf, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(buf) > 0:
			return buf, nil
		default:
			return nil, err
		}
	}
}
