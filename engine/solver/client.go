package solver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"c4bridge/engine"
	"c4bridge/types"
)

// Client speaks the engine line protocol over a pair of streams.
// It is not safe for concurrent use: one request is in flight at a time.
type Client struct {
	w        io.Writer
	lines    chan string
	eof      chan struct{}
	quit     chan struct{}
	maxLines int
	timeout  time.Duration
	broken   error
	log      zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithMaxLines caps the number of lines read for one request.
func WithMaxLines(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxLines = n
		}
	}
}

// WithTimeout bounds the time spent waiting for one reply.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for engine output.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.log = logger
	}
}

// NewClient starts reading engine output from r and writes requests to w.
func NewClient(w io.Writer, r io.Reader, opts ...Option) *Client {
	defaults := engine.DefaultConfig()
	c := &Client{
		w:        w,
		lines:    make(chan string, 64),
		eof:      make(chan struct{}),
		quit:     make(chan struct{}),
		maxLines: defaults.MaxLines,
		timeout:  defaults.Timeout,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readLoop(bufio.NewReader(r))
	return c
}

func (c *Client) readLoop(r *bufio.Reader) {
	defer close(c.eof)
	defer close(c.lines)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			select {
			case c.lines <- strings.TrimRight(line, "\r\n"):
			case <-c.quit:
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.log.Debug().Err(err).Msg("engine read failed")
			}
			return
		}
	}
}

// Done is closed once the engine output stream has ended.
func (c *Client) Done() <-chan struct{} {
	return c.eof
}

// Broken reports why the client can no longer be used, or nil.
func (c *Client) Broken() error {
	return c.broken
}

// Solve sends seq and reads lines until the best move marker, a blank line, the end of the
// stream, the line cap or the timeout. Blank lines before the first marker of the reply are
// skipped. Everything but a best move yields an error wrapping engine.ErrNoMove; a dead stream
// additionally wraps engine.ErrUnavailable. Any exit that may leave part of the reply unread
// marks the client broken.
func (c *Client) Solve(ctx context.Context, seq types.Sequence) (engine.Reply, error) {
	var reply engine.Reply
	if c.broken != nil {
		return reply, fmt.Errorf("%w: %w", engine.ErrUnavailable, c.broken)
	}

	c.drainStale()

	request := encodeRequest(seq)
	c.log.Debug().Str("sequence", seq.String()).Msg("sending sequence")
	if _, err := io.WriteString(c.w, request); err != nil {
		c.broken = err
		return reply, fmt.Errorf("%w: write request: %w", engine.ErrUnavailable, err)
	}
	if f, ok := c.w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			c.broken = err
			return reply, fmt.Errorf("%w: flush request: %w", engine.ErrUnavailable, err)
		}
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	started := false
	for read := 0; read < c.maxLines; read++ {
		select {
		case <-ctx.Done():
			// The reply may still arrive later and would be read as the answer to the next request.
			c.broken = ctx.Err()
			return reply, fmt.Errorf("%w: %w", engine.ErrNoMove, ctx.Err())
		case <-timer.C:
			c.broken = errors.New("engine stalled")
			return reply, fmt.Errorf("%w: no reply within %s", engine.ErrNoMove, c.timeout)
		case line, ok := <-c.lines:
			if !ok {
				c.broken = io.EOF
				return reply, fmt.Errorf("%w: %w: output closed", engine.ErrNoMove, engine.ErrUnavailable)
			}
			if strings.TrimSpace(line) == "" {
				if !started {
					// The engine ends every reply with an empty line that can trail behind the best move.
					continue
				}
				c.broken = errors.New("reply cut short by a blank line")
				c.log.Debug().Msg("engine sent a blank line")
				return reply, fmt.Errorf("%w: blank line", engine.ErrNoMove)
			}

			done, recognized, err := parseLine(line, &reply)
			if !recognized {
				c.log.Debug().Str("line", line).Msg("ignoring engine output")
				continue
			}
			started = true
			c.log.Debug().Str("line", line).Msg("engine output")
			if done {
				return reply, err
			}
		}
	}
	c.broken = fmt.Errorf("no best move within %d lines", c.maxLines)
	return reply, fmt.Errorf("%w: %w", engine.ErrNoMove, c.broken)
}

// drainStale discards output left over from an earlier request.
func (c *Client) drainStale() {
	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				return
			}
			c.log.Debug().Str("line", line).Msg("discarding stale engine output")
		default:
			return
		}
	}
}

// Close stops the reader. It does not close the underlying streams.
func (c *Client) Close() {
	select {
	case <-c.quit:
	default:
		close(c.quit)
	}
}
