// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package stream receives the live output of a collection or a single device over a websocket.

An OutputStream is opened with Dial. It owns one websocket connection and one reader
goroutine. The reader classifies every frame: keep-alive frames and frames of unknown
shape are dropped, data frames are decoded into model.DataMessage and handed to exactly
one call of Recv. The handoff is unbuffered, so the reader holds at most one decoded
message while the consumer is busy.

Messages can be pulled with Recv or pushed to a handler with Run. A cancelled context
ends the wait but leaves the stream open, and no message is lost. After Close, or after
the remote end closed the connection, every call of Recv fails with ErrStreamClosed.
*/
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/relabs-tech/nbiot/core/client"
	"github.com/relabs-tech/nbiot/core/logger"
	"github.com/relabs-tech/nbiot/core/model"
)

// ErrStreamClosed is returned by Recv and Run once the stream is closed, either locally
// with Close or by the remote end. For a remote close the cause is wrapped as well.
var ErrStreamClosed = errors.New("output stream closed")

// State is the connection state of an OutputStream
type State int32

// the states of an OutputStream
const (
	Connecting State = iota
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// DecodeError is returned by Recv for a data frame that cannot be decoded. The stream
// stays open.
type DecodeError struct {
	Frame []byte
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode frame %q: %v", e.Frame, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// URL returns the websocket URL of the stream for scopePath below the REST address.
// https becomes wss, http becomes ws, and /from is appended to the path.
func URL(address, scopePath string) (string, error) {
	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("invalid address %s: %w", address, err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme '%s' in address %s", u.Scheme, address)
	}
	if u.Host == "" {
		return "", fmt.Errorf("address %s has no host", address)
	}
	path := strings.TrimSuffix(u.Path, "/")
	if scope := strings.Trim(scopePath, "/"); scope != "" {
		path += "/" + scope
	}
	u.Path = path + "/from"
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// origin returns the origin header for address, which is the scheme and host of the
// REST address
func origin(address string) string {
	u, err := url.Parse(address)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// OutputStream is a live feed of data messages
type OutputStream struct {
	conn  *websocket.Conn
	scope string
	log   *logrus.Entry
	state atomic.Int32

	messages   chan result
	done       chan struct{}
	readerDone chan struct{}
	closeOnce  sync.Once

	mu    sync.Mutex
	cause error
}

type result struct {
	message model.DataMessage
	err     error
}

// Dial opens the output stream for scopePath, e.g. /collections/{id}. address is the
// REST address of the API, token is sent in the X-API-Token header. If dialer is nil,
// websocket.DefaultDialer is used.
//
// A rejected handshake is returned as *client.APIError.
func Dial(ctx context.Context, dialer *websocket.Dialer, address, token, scopePath string) (*OutputStream, error) {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	wsURL, err := URL(address, scopePath)
	if err != nil {
		return nil, err
	}

	ctx, rlog := logger.ContextWithLoggerScope(ctx, scopePath)
	s := &OutputStream{
		scope:      scopePath,
		log:        rlog,
		messages:   make(chan result),
		done:       make(chan struct{}),
		readerDone: make(chan struct{}),
	}
	s.state.Store(int32(Connecting))

	header := http.Header{}
	header.Set(client.TokenHeader, token)
	header.Set("Origin", origin(address))
	if id := logger.RequestIDFromContext(ctx); id != "" {
		header.Set(logger.RequestIDHeader, id)
	}

	rlog.Debugf("dialing %s", wsURL)
	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		s.state.Store(int32(Closed))
		if resp != nil && errors.Is(err, websocket.ErrBadHandshake) {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, &client.APIError{StatusCode: resp.StatusCode, Message: string(body)}
		}
		return nil, fmt.Errorf("cannot dial %s: %w", wsURL, err)
	}

	s.conn = conn
	s.state.Store(int32(Open))
	rlog.Debug("output stream open")
	go s.readLoop()
	return s, nil
}

// Scope returns the resource path the stream is subscribed to
func (s *OutputStream) Scope() string {
	return s.scope
}

// State returns the current state of the stream
func (s *OutputStream) State() State {
	return State(s.state.Load())
}

func (s *OutputStream) readLoop() {
	defer close(s.readerDone)
	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			s.cause = err
			s.mu.Unlock()
			s.state.Store(int32(Closed))
			select {
			case <-s.done:
			default:
				s.log.WithError(err).Debug("output stream closed by remote")
			}
			return
		}

		message, ok, err := decodeFrame(frame)
		if err == nil && !ok {
			continue
		}
		select {
		case s.messages <- result{message: message, err: err}:
		case <-s.done:
			return
		}
	}
}

// decodeFrame classifies a frame. It returns false for frames that carry no data
// message, and a *DecodeError for frames that are not valid JSON or have a malformed
// data message.
func decodeFrame(frame []byte) (model.DataMessage, bool, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(frame, &fields); err != nil {
		if json.Valid(frame) {
			return model.DataMessage{}, false, nil
		}
		return model.DataMessage{}, false, &DecodeError{Frame: frame, Err: err}
	}
	if _, ok := fields["keepAlive"]; ok {
		return model.DataMessage{}, false, nil
	}
	var frameType string
	if t, ok := fields["type"]; ok {
		if err := json.Unmarshal(t, &frameType); err != nil {
			return model.DataMessage{}, false, nil
		}
	}
	if frameType != model.MessageTypeData {
		return model.DataMessage{}, false, nil
	}

	var message model.DataMessage
	if err := json.Unmarshal(frame, &message); err != nil {
		return model.DataMessage{}, false, &DecodeError{Frame: frame, Err: err}
	}
	return message, true, nil
}

func (s *OutputStream) closedError() error {
	s.mu.Lock()
	cause := s.cause
	s.mu.Unlock()
	select {
	case <-s.done:
		return ErrStreamClosed
	default:
	}
	if cause == nil {
		return ErrStreamClosed
	}
	return fmt.Errorf("%w: %w", ErrStreamClosed, cause)
}

// Recv blocks until the next data message arrives. It returns ErrStreamClosed once the
// stream is closed, a *DecodeError for a malformed data frame, and ctx.Err() if ctx is
// done first. In the latter two cases the stream stays open.
//
// Recv must not be called concurrently.
func (s *OutputStream) Recv(ctx context.Context) (model.DataMessage, error) {
	select {
	case <-s.done:
		return model.DataMessage{}, ErrStreamClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return model.DataMessage{}, err
	}

	select {
	case r := <-s.messages:
		select {
		case <-s.done:
			return model.DataMessage{}, ErrStreamClosed
		default:
		}
		return r.message, r.err
	case <-s.done:
		return model.DataMessage{}, ErrStreamClosed
	case <-s.readerDone:
		return model.DataMessage{}, s.closedError()
	case <-ctx.Done():
		return model.DataMessage{}, ctx.Err()
	}
}

// Run calls handler for every data message until ctx is done or the stream is closed.
//
// If ctx is done, Run stops calling handler and returns ctx.Err(). A message that arrives
// at the same time is dropped. The stream stays open and can be used again. If the stream
// is closed, Run returns ErrStreamClosed. A malformed data frame ends Run with a *DecodeError.
func (s *OutputStream) Run(ctx context.Context, handler func(model.DataMessage)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		message, err := s.Recv(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return err
		}
		handler(message)
	}
}

// Close closes the stream. A pending Recv returns ErrStreamClosed. Close can be called
// from any goroutine and more than once.
func (s *OutputStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.state.Store(int32(Closed))
		close(s.done)
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
		<-s.readerDone
		s.log.Debug("output stream closed")
	})
	return err
}
