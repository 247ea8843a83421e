package controllers

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"lms/live"
	"lms/utils"
)

var watchedCollections = map[string]bool{
	"courses":   true,
	"materials": true,
	"progress":  true,
	"quizzes":   true,
}

type EventsController struct {
	Hub *live.Hub
}

func NewEventsController(hub *live.Hub) *EventsController {
	return &EventsController{Hub: hub}
}

// Watch streams change signals for a collection as server-sent events.
// The client re-fetches the data it renders whenever a signal arrives.
// The subscription is released when the client disconnects.
func (ec *EventsController) Watch(c *fiber.Ctx) error {
	if ec.Hub == nil {
		return utils.Error(c, fiber.StatusServiceUnavailable,
			fiber.NewError(fiber.StatusServiceUnavailable, "Live updates are not configured"))
	}

	collection := c.Params("collection")
	if !watchedCollections[collection] {
		return utils.BadRequest(c, "Unknown collection")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		signals, release := ec.Hub.Subscribe(ctx, collection)
		defer release()

		// Heartbeats keep the connection alive and detect a gone client.
		heartbeat := time.NewTicker(30 * time.Second)
		defer heartbeat.Stop()

		for {
			select {
			case _, ok := <-signals:
				if !ok {
					return
				}
				fmt.Fprintf(w, "event: changed\ndata: %s\n\n", collection)
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))

	return nil
}
