package app

import (
	"context"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/gocolly/colly/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/JakeFAU/disposer/pkg/dispose"
	"github.com/JakeFAU/disposer/pkg/sources/cdplisten"
	"github.com/JakeFAU/disposer/pkg/sources/collyhook"
	"github.com/JakeFAU/disposer/pkg/sources/gcsnotify"
	"github.com/JakeFAU/disposer/pkg/sources/pgnotify"
	"github.com/JakeFAU/disposer/pkg/sources/pubsubrx"
)

// startPubSub receives every configured subscription on one client. The
// client is closed after all receivers have stopped.
func (a *App) startPubSub(ctx context.Context) {
	if len(a.cfg.PubSub.Subscriptions) == 0 {
		return
	}
	c := a.children[EventPubSub]
	logger := a.logger.Named("pubsub")

	client, err := a.sources.PubSub(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		logger.Error("pubsub client unavailable", zap.Error(err))
		return
	}
	for _, id := range a.cfg.PubSub.Subscriptions {
		c.Subscribe(func() (dispose.Action, error) {
			return pubsubrx.Receive(ctx, client.Subscription(id), func(_ context.Context, msg *pubsub.Message) {
				a.emit(EventPubSub, id, string(msg.Data))
				msg.Ack()
			}, logger)
		})
	}
	c.Push(dispose.Logged(client.Close))
}

// startPostgres opens one connection per channel; LISTEN owns it until the
// action runs UNLISTEN and closes it. Each channel tears down through its own
// collector so a failed UNLISTEN is reported and the close still happens.
func (a *App) startPostgres(ctx context.Context) {
	c := a.children[EventPostgres]
	logger := a.logger.Named("postgres")
	for _, channel := range a.cfg.Postgres.Channels {
		c.Subscribe(func() (dispose.Action, error) {
			conn, err := a.sources.Postgres(ctx, a.cfg.Postgres.DSN)
			if err != nil {
				return nil, fmt.Errorf("connect for channel %s: %w", channel, err)
			}
			off, err := pgnotify.Listen(ctx, conn, channel, func(n *pgconn.Notification) {
				a.emit(EventPostgres, n.Channel, n.Payload)
			}, pgnotify.Config{UnlistenTimeout: a.cfg.UnlistenTimeout(), Logger: logger})
			if err != nil {
				_ = conn.Close(context.Background())
				return nil, err
			}
			sub := a.newCollector(EventPostgres + "/" + channel)
			sub.Push(off)
			sub.Push(a.closeConn(conn))
			return sub.Cleanup(), nil
		})
	}
}

func (a *App) closeConn(conn PGConn) dispose.Action {
	return dispose.Logged(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.UnlistenTimeout())
		defer cancel()
		if err := conn.Close(ctx); err != nil {
			return fmt.Errorf("close listen connection: %w", err)
		}
		return nil
	})
}

// startGCS holds a bucket notification config for the life of the process.
func (a *App) startGCS(ctx context.Context) {
	if a.cfg.GCS.Bucket == "" {
		return
	}
	c := a.children["gcs"]
	client, err := a.sources.Storage(ctx)
	if err != nil {
		a.logger.Error("storage client unavailable", zap.Error(err))
		return
	}
	c.Subscribe(func() (dispose.Action, error) {
		return gcsnotify.Add(ctx, client.Bucket(a.cfg.GCS.Bucket), &storage.Notification{
			TopicProjectID: a.cfg.GCS.TopicProjectID,
			TopicID:        a.cfg.GCS.TopicID,
			PayloadFormat:  storage.JSONPayload,
		}, a.cfg.NotificationTimeout())
	})
	c.Push(dispose.Logged(client.Close))
}

// startCrawl revisits the configured page and emits the text of every element
// matching the selector. The first visit happens right away.
func (a *App) startCrawl() {
	if a.cfg.Crawl.URL == "" {
		return
	}
	c := a.children[EventCrawl]
	logger := a.logger.Named("crawl")
	cc := colly.NewCollector(
		colly.UserAgent(a.cfg.Crawl.UserAgent),
		colly.AllowURLRevisit(),
	)
	selector := a.cfg.Crawl.Selector
	c.Subscribe(func() (dispose.Action, error) {
		return collyhook.OnHTML(cc, selector, func(e *colly.HTMLElement) {
			a.emit(EventCrawl, selector, e.Text)
		})
	})
	c.Subscribe(func() (dispose.Action, error) {
		return collyhook.OnError(cc, func(r *colly.Response, err error) {
			logger.Warn("crawl visit failed", zap.String("url", r.Request.URL.String()), zap.Error(err))
		})
	})

	visit := func() {
		if err := cc.Visit(a.cfg.Crawl.URL); err != nil {
			logger.Debug("crawl visit returned error", zap.Error(err))
		}
	}
	c.Timeout(visit, 0)
	c.Interval(visit, a.cfg.CrawlInterval())
}

// startHeadless opens a browser tab, taps its network responses, and
// navigates to the configured page. Tab and browser are released after the
// listener.
func (a *App) startHeadless(ctx context.Context) {
	if !a.cfg.Headless.Enabled {
		return
	}
	c := a.children[EventHeadless]

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
	)...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(tabCtx, network.Enable()); err != nil {
		a.logger.Error("headless browser unavailable", zap.Error(err))
		tabCancel()
		allocCancel()
		return
	}
	c.Subscribe(func() (dispose.Action, error) {
		return cdplisten.Target(tabCtx, func(ev any) {
			if resp, ok := ev.(*network.EventResponseReceived); ok {
				a.emit(EventHeadless, resp.Response.URL, strconv.FormatInt(resp.Response.Status, 10))
			}
		})
	})
	c.Push(dispose.Action(tabCancel))
	c.Push(dispose.Action(allocCancel))

	go func() {
		if err := chromedp.Run(tabCtx, chromedp.Navigate(a.cfg.Headless.URL)); err != nil && tabCtx.Err() == nil {
			a.logger.Warn("headless navigation failed", zap.String("url", a.cfg.Headless.URL), zap.Error(err))
		}
	}()
}
