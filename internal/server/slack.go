package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/safakhou/helpbot/internal/kb"
	"github.com/safakhou/helpbot/internal/slack"
	"github.com/safakhou/helpbot/internal/telemetry"
)

type searcher interface {
	Search(ctx context.Context, query string) ([]kb.SearchResult, error)
}

type poster interface {
	PostMessage(ctx context.Context, channel, text string, blocks []slack.Block) error
	PostEphemeral(ctx context.Context, channel, user, text string) error
}

// SlackHandler owns the two inbound webhooks. Both verify the signature
// over the raw body bytes before anything is parsed; the command webhook
// acknowledges within Slack's reply window and hands the actual search to
// the background runner.
type SlackHandler struct {
	verifier *slack.Verifier
	searcher searcher
	poster   poster
	runner   *Runner
	command  string
	// taskTimeout bounds one background search plus its reply posts.
	taskTimeout time.Duration
	metrics     *telemetry.Metrics
	log         *log.Logger
	now         func() time.Time
}

func NewSlackHandler(verifier *slack.Verifier, s searcher, p poster, runner *Runner, command string, taskTimeout time.Duration, metrics *telemetry.Metrics, logger *log.Logger) *SlackHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "[BOT] ", log.LstdFlags)
	}
	return &SlackHandler{
		verifier:    verifier,
		searcher:    s,
		poster:      p,
		runner:      runner,
		command:     command,
		taskTimeout: taskTimeout,
		metrics:     metrics,
		log:         logger,
		now:         time.Now,
	}
}

func (h *SlackHandler) Register(e *echo.Echo) {
	e.POST("/slack/commands", h.handleCommand)
	e.POST("/slack/events", h.handleEvent)
}

// ack is the immediate JSON reply to a slash command.
type ack struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

func (h *SlackHandler) handleCommand(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "reading request body")
	}
	if err := h.verifier.VerifyRequest(c.Request(), body, h.now()); err != nil {
		h.log.Printf("rejected command delivery: %v", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid request signature")
	}

	// Only now is the body parsed; the signature covers the raw bytes.
	fields, err := url.ParseQuery(string(body))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed form payload")
	}
	command := fields.Get("command")
	query := strings.TrimSpace(fields.Get("text"))
	user := fields.Get("user_id")
	channel := fields.Get("channel_id")

	if command != h.command {
		return c.JSON(http.StatusOK, ack{
			ResponseType: "ephemeral",
			Text:         fmt.Sprintf("Unknown command %q. Try %s <search terms>.", command, h.command),
		})
	}
	if query == "" {
		return c.JSON(http.StatusOK, ack{
			ResponseType: "ephemeral",
			Text:         fmt.Sprintf("Usage: %s <search terms>", h.command),
		})
	}

	reqID := uuid.NewString()
	h.log.Printf("[%s] %s %q from %s in %s", reqID, command, query, user, channel)
	h.runner.Go("search-"+reqID,
		func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, h.taskTimeout)
			defer cancel()
			return h.searchAndReply(ctx, reqID, query, channel, user)
		},
		func(err error) {
			h.reportFailure(reqID, channel, user)
		},
	)

	return c.JSON(http.StatusOK, ack{
		ResponseType: "ephemeral",
		Text:         fmt.Sprintf("Searching the knowledge base for %q, results follow shortly.", query),
	})
}

func (h *SlackHandler) searchAndReply(ctx context.Context, reqID, query, channel, user string) error {
	results, err := h.searcher.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("searching for %q: %w", query, err)
	}

	if len(results) == 0 {
		err := h.poster.PostEphemeral(ctx, channel, user, fmt.Sprintf("No knowledge-base articles matched %q.", query))
		h.metrics.SlackDelivery("chat.postEphemeral", err)
		return err
	}

	fallback, blocks := formatResults(query, results)
	err = h.poster.PostMessage(ctx, channel, fallback, blocks)
	h.metrics.SlackDelivery("chat.postMessage", err)
	if err != nil {
		return err
	}
	h.log.Printf("[%s] delivered %d results", reqID, len(results))
	return nil
}

// reportFailure is the catch-all for background task errors: the invoking
// user always hears back, even when the search itself blew up.
func (h *SlackHandler) reportFailure(reqID, channel, user string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := h.poster.PostEphemeral(ctx, channel, user, "Sorry, that search failed. Please try again in a minute.")
	h.metrics.SlackDelivery("chat.postEphemeral", err)
	if err != nil {
		h.log.Printf("[%s] could not deliver failure notice: %v", reqID, err)
	}
}

func formatResults(query string, results []kb.SearchResult) (string, []slack.Block) {
	var fallback strings.Builder
	fmt.Fprintf(&fallback, "Knowledge-base results for %q:", query)

	blocks := []slack.Block{slack.HeaderBlock(fmt.Sprintf("Results for %q", query))}
	for _, r := range results {
		fmt.Fprintf(&fallback, "\n- %s <%s>", r.Title, r.URL)
		section := fmt.Sprintf("*<%s|%s>*", r.URL, r.Title)
		if r.Snippet != "" {
			section += "\n" + r.Snippet
		}
		blocks = append(blocks, slack.DividerBlock(), slack.SectionBlock(section))
	}
	return fallback.String(), blocks
}

type eventPayload struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
}

func (h *SlackHandler) handleEvent(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "reading request body")
	}
	if err := h.verifier.VerifyRequest(c.Request(), body, h.now()); err != nil {
		h.log.Printf("rejected event delivery: %v", err)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid request signature")
	}

	var payload eventPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.log.Printf("unparseable event payload: %v", err)
		return c.NoContent(http.StatusOK)
	}
	if payload.Type == "url_verification" {
		return c.JSON(http.StatusOK, map[string]string{"challenge": payload.Challenge})
	}
	return c.NoContent(http.StatusOK)
}
