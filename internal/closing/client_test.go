package closing

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"lengolf-closing/internal/auth"
	"lengolf-closing/internal/config"
	"lengolf-closing/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const clientSecret = "closing-client-test-secret-0123456"

// startServer runs the closing routes behind the JWT middleware on a
// loopback port and returns the api base URL.
func startServer(t *testing.T, f *fixture) string {
	t.Helper()

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})
	api := app.Group("/api")
	api.Use(auth.JWTMiddleware(&config.Config{JWTSecret: clientSecret}))
	Register(api, f.svc)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })

	return "http://" + ln.Addr().String() + "/api"
}

func terminalToken(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateToken(clientSecret, &models.User{ID: 1, Email: "front@lengolf.test", Role: models.RoleStaff})
	require.NoError(t, err)
	return token
}

func TestClientCloseDayEndToEnd(t *testing.T) {
	f := newFixture(nil)
	seedDay(f.store)
	c := NewClient(startServer(t, f), terminalToken(t)).WithTimeout(5 * time.Second)
	ctx := context.Background()

	existing, err := c.Existing(ctx, day)
	require.NoError(t, err)
	assert.Nil(t, existing)

	sum, err := c.Summary(ctx, day)
	require.NoError(t, err)
	assert.True(t, sum.ExpectedCash.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 5, sum.TransactionCount)

	rec, err := c.Submit(ctx, SubmitRequest{
		Date:             day,
		ActualCash:       dec("950"),
		ActualCreditCard: dec("500"),
		VarianceNotes:    "short 50",
		StaffPIN:         "1234",
	})
	require.NoError(t, err)
	assert.True(t, rec.CashVariance.Equal(decimal.NewFromInt(-50)))
	assert.Equal(t, "Dolly", rec.ClosedByStaffName)

	existing, err = c.Existing(ctx, day)
	require.NoError(t, err)
	require.NotNil(t, existing)
	assert.Equal(t, rec.ID, existing.ID)

	data, err := c.PrintData(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "LENGOLF", data.Store.Name)
	assert.Equal(t, day, data.Reconciliation.ClosingDate)
}

func TestClientErrorMapping(t *testing.T) {
	f := newFixture(nil)
	seedDay(f.store)
	base := startServer(t, f)
	c := NewClient(base, terminalToken(t))
	ctx := context.Background()

	t.Run("wrong pin", func(t *testing.T) {
		_, err := c.Submit(ctx, SubmitRequest{Date: day, ActualCash: dec("1000"), ActualCreditCard: dec("500"), StaffPIN: "9999"})
		var aerr *AuthError
		require.ErrorAs(t, err, &aerr)
		assert.Contains(t, aerr.Message, "PIN")
	})

	t.Run("missing notes", func(t *testing.T) {
		_, err := c.Submit(ctx, SubmitRequest{Date: day, ActualCash: dec("1"), ActualCreditCard: dec("500"), StaffPIN: "1234"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Message, "variance_notes")
	})

	t.Run("already closed", func(t *testing.T) {
		req := SubmitRequest{Date: day, ActualCash: dec("1000"), ActualCreditCard: dec("500"), StaffPIN: "1234"}
		_, err := c.Submit(ctx, req)
		require.NoError(t, err)

		_, err = c.Submit(ctx, req)
		var serr *SubmitError
		require.ErrorAs(t, err, &serr)
		assert.True(t, serr.Conflict)
	})

	t.Run("unknown reconciliation", func(t *testing.T) {
		_, err := c.PrintData(ctx, 404)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("bad summary date", func(t *testing.T) {
		_, err := c.Summary(ctx, "yesterday")
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("no token", func(t *testing.T) {
		_, err := NewClient(base, "").Summary(ctx, day)
		var aerr *AuthError
		assert.ErrorAs(t, err, &aerr)
	})
}

func TestClientUnreachableServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := NewClient("http://"+addr+"/api", "token").WithTimeout(time.Second)

	_, err = c.Summary(context.Background(), day)
	var ferr *FetchError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, "summary", ferr.Op)

	_, err = c.Submit(context.Background(), SubmitRequest{Date: day})
	var serr *SubmitError
	require.ErrorAs(t, err, &serr)
	assert.False(t, serr.Conflict)
}

func TestClientHonoursCancelledContext(t *testing.T) {
	c := NewClient("http://127.0.0.1:1/api", "token")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.History(ctx, day, day, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
