package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"crewboard/internal/activity"
	"crewboard/internal/engine"
	"crewboard/internal/feed"
)

type heartbeat struct {
	TS string `json:"ts"`
}

// registerFeed exposes the board change feed as an SSE stream. Each
// connection owns one feed.Subscription; state is released when the client
// disconnects.
func registerFeed(api huma.API, e engine.Engine, alog *activity.Log) {
	sse.Register(api, huma.Operation{
		OperationID: "feed",
		Method:      "GET",
		Path:        "/projects/{project_id}/feed",
		Summary:     "Stream board changes",
	}, map[string]any{
		"board-updated":        feed.BoardUpdated{},
		"activity-entry-added": feed.ActivityEntryAdded{},
		"board-reset":          feed.BoardReset{},
		"heartbeat":            heartbeat{},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
	}, send sse.Sender) {
		if _, err := e.Repo.GetProject(ctx, input.ProjectID); err != nil {
			log.Warn("feed: project lookup failed", "project", input.ProjectID, "err", err)
			return
		}
		cfg := e.Config
		if dbCfg, err := e.Repo.GetProjectConfig(ctx, input.ProjectID); err == nil {
			cfg = dbCfg
		}

		// The subscription loop and the heartbeat ticker share one
		// connection; writes are serialized.
		var mu sync.Mutex
		safeSend := func(v any) error {
			mu.Lock()
			defer mu.Unlock()
			return send.Data(v)
		}

		hbCtx, stopHeartbeat := context.WithCancel(ctx)
		defer stopHeartbeat()
		go func() {
			ticker := time.NewTicker(cfg.HeartbeatInterval())
			defer ticker.Stop()
			for {
				select {
				case <-hbCtx.Done():
					return
				case <-ticker.C:
					if err := safeSend(heartbeat{TS: time.Now().UTC().Format(time.RFC3339)}); err != nil {
						return
					}
				}
			}
		}()

		sub := feed.NewSubscription(e.Repo, input.ProjectID, alog.Path, cfg.PollInterval())
		if err := sub.Run(ctx, safeSend); err != nil && ctx.Err() == nil {
			log.Debug("feed: subscription ended", "project", input.ProjectID, "err", err)
		}
	})
}
