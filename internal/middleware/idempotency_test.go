package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nile-pay/nile_pay/internal/logging"
)

func setupTestApp(t *testing.T) (*fiber.App, *atomic.Int64) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	var hits atomic.Int64
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/transfers", func(c *fiber.Ctx) error {
		hits.Add(1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"reference": "ref-1"})
	})

	return app, &hits
}

func TestIdempotencyPassesThroughWithoutHeader(t *testing.T) {
	app, hits := setupTestApp(t)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/transfers", strings.NewReader("{}"))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != fiber.StatusCreated {
			t.Fatalf("expected %d got %d", fiber.StatusCreated, resp.StatusCode)
		}
		resp.Body.Close()
	}

	if got := hits.Load(); got != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", got)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	app, hits := setupTestApp(t)

	req := httptest.NewRequest(fiber.MethodPost, "/transfers", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(idempotencyKeyHeader, "abc123")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, resp.StatusCode)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()

	req2 := httptest.NewRequest(fiber.MethodPost, "/transfers", strings.NewReader("{}"))
	req2.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req2.Header.Set(idempotencyKeyHeader, "abc123")

	resp2, err := app.Test(req2)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}
	if resp2.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected replayed status %d got %d", fiber.StatusCreated, resp2.StatusCode)
	}
	replayed, err := io.ReadAll(resp2.Body)
	if err != nil {
		t.Fatalf("read replayed body: %v", err)
	}
	resp2.Body.Close()

	if string(replayed) != string(payload) {
		t.Fatalf("expected replayed payload %s got %s", string(payload), string(replayed))
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected handler to run once, ran %d times", got)
	}

	var decoded map[string]any
	if err := json.Unmarshal(replayed, &decoded); err != nil {
		t.Fatalf("replayed payload invalid json: %v", err)
	}
}

func TestAuthContextRequiresUserHeader(t *testing.T) {
	app := fiber.New()
	app.Use(AuthContext())
	app.Get("/balance", func(c *fiber.Ctx) error {
		return c.SendString(UserID(c))
	})

	req := httptest.NewRequest(fiber.MethodGet, "/balance", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected %d got %d", fiber.StatusUnauthorized, resp.StatusCode)
	}
	resp.Body.Close()

	req = httptest.NewRequest(fiber.MethodGet, "/balance", nil)
	req.Header.Set(userIDHeader, "user-1")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "user-1" {
		t.Fatalf("expected user-1 got %s", string(body))
	}
}
