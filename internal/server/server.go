package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"llm-client/internal/client"
	"llm-client/internal/models"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	writeTimeout        = 45 * time.Second
	idleTimeout         = 120 * time.Second
)

// Sender is the part of *client.Client the relay needs.
type Sender interface {
	Send(ctx context.Context, prompt string, params models.Params) client.Result
}

// Server relays single-prompt chat requests to the configured endpoint.
type Server struct {
	sender  Sender
	app     *echo.Echo
	address string
}

// New constructs an HTTP server wired with routing and middleware.
func New(port int, sender Sender) (*Server, error) {
	if sender == nil {
		return nil, errors.New("sender must not be nil")
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("port %d must be a valid TCP port", port)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))

	srv := &Server{
		sender:  sender,
		app:     e,
		address: fmt.Sprintf(":%d", port),
	}

	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("starting relay", "addr", s.address)

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("relay shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.POST("/v1/chat", s.handleChat)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	Prompt string `json:"prompt"`
	models.Params
}

type chatResponse struct {
	Text     string          `json:"text"`
	Response json.RawMessage `json:"response"`
}

type upstreamError struct {
	Error      string `json:"error"`
	Kind       string `json:"kind"`
	StatusCode *int   `json:"status_code"`
	Details    string `json:"details,omitempty"`
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "prompt must not be empty",
			Type:    "invalid_request_error",
		}
	}

	res := s.sender.Send(c.Request().Context(), req.Prompt, req.Params)

	text, err := client.Content(res)
	if err == nil {
		return c.JSON(http.StatusOK, chatResponse{
			Text:     text,
			Response: json.RawMessage(res.Raw),
		})
	}

	var (
		failure *client.Failure
		apiErr  *client.APIError
	)
	switch {
	case errors.As(err, &failure):
		return c.JSON(failureStatus(failure), failure)
	case errors.As(err, &apiErr):
		return c.JSON(http.StatusBadGateway, upstreamError{
			Error:      apiErr.Message,
			Kind:       "api_error",
			StatusCode: statusPtr(res.StatusCode),
			Details:    string(res.Raw),
		})
	default:
		return c.JSON(http.StatusBadGateway, upstreamError{
			Error:      fmt.Sprintf("unexpected response shape: %v", err),
			Kind:       "unexpected_shape",
			StatusCode: statusPtr(res.StatusCode),
			Details:    string(res.Raw),
		})
	}
}

// failureStatus passes upstream HTTP errors through and maps everything
// else to a gateway error.
func failureStatus(f *client.Failure) int {
	switch f.Kind {
	case client.FailureStatus:
		if f.StatusCode >= 400 && f.StatusCode <= 599 {
			return f.StatusCode
		}
		return http.StatusBadGateway
	case client.FailureTransport:
		return http.StatusBadGateway
	case client.FailureRequest:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func statusPtr(code int) *int {
	if code == 0 {
		return nil
	}
	return &code
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
				Type:    "invalid_request_error",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
			Type:    "invalid_request_error",
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
			Type:    "invalid_request_error",
		}
	}
	return nil
}

type requestError struct {
	Status  int
	Message string
	Type    string
	Code    string
}

func (e requestError) Error() string {
	return e.Message
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code,omitempty"`
	} `json:"error"`
}

func writeError(c echo.Context, status int, message, errType, code string) error {
	var payload errorBody
	payload.Error.Message = message
	payload.Error.Type = errType
	payload.Error.Code = code
	return c.JSON(status, payload)
}

func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr.Status, reqErr.Message, reqErr.Type, reqErr.Code)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = writeError(c, he.Code, fmt.Sprint(he.Message), "invalid_request_error", "")
		return
	}

	slog.Error("unhandled relay error", "err", err)
	_ = writeError(c, http.StatusInternalServerError, "internal server error", "server_error", "")
}
