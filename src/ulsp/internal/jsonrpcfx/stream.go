package jsonrpcfx

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// lineStream is a jsonrpc2.Stream carrying one JSON message per line, without headers.
type lineStream struct {
	in     *bufio.Reader
	out    io.Writer
	logger *zap.SugaredLogger

	closers []io.Closer
	mu      sync.Mutex
}

func newLineStream(in io.Reader, out io.Writer, logger *zap.SugaredLogger) jsonrpc2.Stream {
	s := &lineStream{
		in:     bufio.NewReader(in),
		out:    out,
		logger: logger,
	}
	for _, v := range []interface{}{in, out} {
		if c, ok := v.(io.Closer); ok {
			s.closers = append(s.closers, c)
		}
	}
	return s
}

// Read returns the next message. Blank lines and lines that are not JSON-RPC messages are skipped.
func (s *lineStream) Read(ctx context.Context) (jsonrpc2.Message, int64, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		default:
		}

		line, err := s.in.ReadBytes('\n')
		data := bytes.TrimSpace(line)
		if len(data) > 0 {
			msg, decodeErr := jsonrpc2.DecodeMessage(data)
			if decodeErr == nil {
				return msg, int64(len(line)), nil
			}
			s.logger.Warnw("ignoring malformed JSON-RPC message", zap.Error(decodeErr))
		}
		if err != nil {
			return nil, int64(len(line)), err
		}
	}
}

// Write sends msg followed by a newline. Concurrent writes do not interleave.
func (s *lineStream) Write(ctx context.Context, msg jsonrpc2.Message) (int64, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0, err
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.out.Write(data)
	return int64(n), err
}

func (s *lineStream) Close() error {
	var errs error
	for _, c := range s.closers {
		errs = multierr.Append(errs, c.Close())
	}
	return errs
}
