package main

import (
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/tdex-network/gdk-electrum/internal/core/domain"
	httpinterface "github.com/tdex-network/gdk-electrum/internal/interfaces/http"
	"github.com/urfave/cli/v2"
)

var listen = cli.Command{
	Name:  "listen",
	Usage: "print notifications of the wallet session until interrupted",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "event",
			Usage: "the only event to be notified about, all if omitted",
		},
	},
	Action: listenAction,
}

func listenAction(ctx *cli.Context) error {
	client, err := getClient(ctx)
	if err != nil {
		return err
	}

	wsURL := "ws" + strings.TrimPrefix(client.baseURL, "http") +
		httpinterface.NotificationsPath
	if event := ctx.String("event"); event != "" {
		wsURL += "?event=" + url.QueryEscape(event)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	interrupted := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		close(interrupted)
		conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		conn.Close()
	}()

	for {
		var n domain.Notification
		if err := conn.ReadJSON(&n); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			select {
			case <-interrupted:
				return nil
			default:
			}
			return err
		}
		if err := printJSON(ctx, n); err != nil {
			return err
		}
	}
}
