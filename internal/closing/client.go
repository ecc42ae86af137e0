package closing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const defaultClientTimeout = 15 * time.Second

// Client talks to the closing API on behalf of a closing terminal.
type Client struct {
	baseURL string
	token   string
	timeout time.Duration
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: defaultClientTimeout,
	}
}

func (c *Client) WithTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

type apiError struct {
	Error string `json:"error"`
}

func errorMessage(code int, body []byte) string {
	var e apiError
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return fmt.Sprintf("HTTP %d", code)
}

func (c *Client) send(ctx context.Context, a *fiber.Agent) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(a)
		return 0, nil, err
	}
	if c.token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	a.Timeout(c.timeout)
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return 0, nil, errors.Join(errs...)
	}
	return code, body, nil
}

// readError classifies a non-2xx answer to a read call.
func readError(op string, code int, body []byte) error {
	msg := errorMessage(code, body)
	switch code {
	case fiber.StatusUnauthorized:
		return &AuthError{Message: msg}
	case fiber.StatusBadRequest:
		return &ValidationError{Message: msg}
	case fiber.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return &FetchError{Op: op, Err: fmt.Errorf("HTTP %d: %s", code, msg)}
}

func (c *Client) History(ctx context.Context, start, end string, limit int) ([]Reconciliation, error) {
	q := url.Values{}
	q.Set("start_date", start)
	q.Set("end_date", end)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	a := fiber.Get(c.baseURL + "/closing/history")
	a.QueryString(q.Encode())
	code, body, err := c.send(ctx, a)
	if err != nil {
		return nil, &FetchError{Op: "history", Err: err}
	}
	if code != fiber.StatusOK {
		return nil, readError("history", code, body)
	}

	var resp HistoryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &FetchError{Op: "history", Err: err}
	}
	return resp.Reconciliations, nil
}

// Existing returns the reconciliation for date, or nil when the date is
// still open.
func (c *Client) Existing(ctx context.Context, date string) (*Reconciliation, error) {
	recs, err := c.History(ctx, date, date, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

func (c *Client) Summary(ctx context.Context, date string) (*ClosingSummary, error) {
	a := fiber.Get(c.baseURL + "/closing/summary")
	a.QueryString(url.Values{"date": {date}}.Encode())
	code, body, err := c.send(ctx, a)
	if err != nil {
		return nil, &FetchError{Op: "summary", Err: err}
	}
	if code != fiber.StatusOK {
		return nil, readError("summary", code, body)
	}

	var summary ClosingSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, &FetchError{Op: "summary", Err: err}
	}
	return &summary, nil
}

func (c *Client) Submit(ctx context.Context, req SubmitRequest) (*Reconciliation, error) {
	a := fiber.Post(c.baseURL + "/closing/submit")
	a.JSON(req)
	code, body, err := c.send(ctx, a)
	if err != nil {
		return nil, &SubmitError{Message: "could not reach server", Err: err}
	}

	switch code {
	case fiber.StatusOK, fiber.StatusCreated:
	case fiber.StatusUnauthorized:
		return nil, &AuthError{Message: errorMessage(code, body)}
	case fiber.StatusBadRequest:
		return nil, &ValidationError{Message: errorMessage(code, body)}
	case fiber.StatusConflict:
		return nil, &SubmitError{Conflict: true, Message: errorMessage(code, body)}
	default:
		return nil, &SubmitError{Message: errorMessage(code, body)}
	}

	var resp SubmitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &SubmitError{Message: "malformed response", Err: err}
	}
	if resp.Reconciliation == nil {
		msg := resp.Error
		if msg == "" {
			msg = "server returned no reconciliation"
		}
		return nil, &SubmitError{Message: msg}
	}
	return resp.Reconciliation, nil
}

func (c *Client) PrintData(ctx context.Context, id uint) (*PrintData, error) {
	a := fiber.Post(c.baseURL + "/closing/print-thermal")
	a.JSON(PrintThermalRequest{ReconciliationID: id})
	code, body, err := c.send(ctx, a)
	if err != nil {
		return nil, &FetchError{Op: "print data", Err: err}
	}
	if code != fiber.StatusOK {
		return nil, readError("print data", code, body)
	}

	var resp PrintThermalResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &FetchError{Op: "print data", Err: err}
	}
	if !resp.Success || resp.ClosingData == nil {
		return nil, &FetchError{Op: "print data", Err: errors.New(errorMessage(code, body))}
	}
	return resp.ClosingData, nil
}
