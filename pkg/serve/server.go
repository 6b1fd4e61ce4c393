package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"go.uber.org/zap"

	"github.com/praetorian-inc/yaraexec/pkg/scanner"
)

// Version is the server protocol version
const Version = "1.0.0"

// Server answers match requests read as NDJSON from in, writing one
// response line per request to out.
type Server struct {
	core    *scanner.Core
	encoder *json.Encoder
	decoder *json.Decoder
	logger  *zap.Logger
}

// NewServer creates a new streaming server
func NewServer(core *scanner.Core, in io.Reader, out io.Writer) *Server {
	return &Server{
		core:    core,
		encoder: json.NewEncoder(out),
		decoder: json.NewDecoder(bufio.NewReader(in)),
		logger:  zap.NewNop(),
	}
}

// SetLogger sets the logger used for request diagnostics.
func (s *Server) SetLogger(l *zap.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Run sends the ready message, then serves requests until in is exhausted,
// a close request arrives, or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	// Cancelled on return so the reader goroutine never outlives Run.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.sendReady()

	reqChan := make(chan Request, 1)
	errChan := make(chan error, 1)

	go func() {
		for {
			var req Request
			if err := s.decoder.Decode(&req); err != nil {
				errChan <- err
				return
			}
			select {
			case reqChan <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errChan:
			// Drain a request the reader handed over before hitting EOF.
			for {
				select {
				case req := <-reqChan:
					if s.processRequest(ctx, req) {
						return nil
					}
				default:
					if err == io.EOF {
						return nil
					}
					s.logger.Warn("decoding request", zap.Error(err))
					s.sendError(TypeDecode, err.Error())
					return nil
				}
			}
		case req := <-reqChan:
			if s.processRequest(ctx, req) {
				return nil
			}
		}
	}
}

// processRequest handles a single request and returns true if the server should exit
func (s *Server) processRequest(ctx context.Context, req Request) bool {
	s.logger.Debug("request", zap.String("type", req.Type))

	switch req.Type {
	case TypeMatch:
		s.handleMatch(ctx, req.Payload)
	case TypeMatchBatch:
		s.handleMatchBatch(ctx, req.Payload)
	case TypeClose:
		return true
	default:
		s.sendError(req.Type, "unknown request type: "+req.Type)
	}
	return false
}

func (s *Server) sendReady() {
	s.send(TypeReady, ReadyData{
		Version: Version,
		ScanID:  s.core.ScanID(),
		Rules:   s.core.RuleCount(),
	})
}

func (s *Server) handleMatch(ctx context.Context, payload json.RawMessage) {
	var p MatchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError(TypeMatch, err.Error())
		return
	}

	content, err := p.Bytes()
	if err != nil {
		s.sendError(TypeMatch, err.Error())
		return
	}

	result, err := s.core.Scan(ctx, content, p.Source, p.Rules)
	if err != nil {
		s.logger.Warn("match failed", zap.String("source", p.Source), zap.Error(err))
		s.sendError(TypeMatch, err.Error())
		return
	}
	result.Metadata = p.Metadata

	s.send(TypeMatch, result)
}

func (s *Server) handleMatchBatch(ctx context.Context, payload json.RawMessage) {
	var p MatchBatchPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		s.sendError(TypeMatchBatch, err.Error())
		return
	}

	result, err := s.core.ScanBatch(ctx, p.Items, p.Rules)
	if err != nil {
		s.sendError(TypeMatchBatch, err.Error())
		return
	}

	s.send(TypeMatchBatch, result)
}

func (s *Server) send(respType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.sendError(respType, err.Error())
		return
	}
	if err := s.encoder.Encode(Response{Success: true, Type: respType, Data: data}); err != nil {
		s.logger.Warn("writing response", zap.Error(err))
	}
}

func (s *Server) sendError(reqType, msg string) {
	if err := s.encoder.Encode(Response{Success: false, Type: reqType, Error: msg}); err != nil {
		s.logger.Warn("writing response", zap.Error(err))
	}
}
