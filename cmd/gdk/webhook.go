package main

import (
	"fmt"
	"net/http"
	"net/url"

	httpinterface "github.com/tdex-network/gdk-electrum/internal/interfaces/http"
	"github.com/urfave/cli/v2"
)

var addwebhook = cli.Command{
	Name:  "addwebhook",
	Usage: "add a webhook registered for some event",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "endpoint",
			Usage:    "the endpoint where to notify the webhook",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "secret",
			Usage: "the eventual secret to authenticate requests",
		},
		&cli.StringFlag{
			Name:  "event",
			Usage: "the event for which the webhook gets notified, all if omitted",
		},
	},
	Action: addWebhookAction,
}

var listwebhooks = cli.Command{
	Name:   "listwebhooks",
	Usage:  "list all registered webhooks",
	Action: listWebhooksAction,
}

var removewebhook = cli.Command{
	Name:  "removewebhook",
	Usage: "remove a webhook",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "id",
			Usage:    "the id of the webhook to remove",
			Required: true,
		},
	},
	Action: removeWebhookAction,
}

func addWebhookAction(ctx *cli.Context) error {
	client, err := getClient(ctx)
	if err != nil {
		return err
	}

	req := map[string]string{
		"event":    ctx.String("event"),
		"endpoint": ctx.String("endpoint"),
		"secret":   ctx.String("secret"),
	}
	reply := struct {
		ID string `json:"id"`
	}{}
	if err := client.do(
		http.MethodPost, httpinterface.WebhooksPath, req, &reply,
	); err != nil {
		return err
	}

	fmt.Fprintln(ctx.App.Writer, "hook id:", reply.ID)
	return nil
}

func listWebhooksAction(ctx *cli.Context) error {
	client, err := getClient(ctx)
	if err != nil {
		return err
	}

	var reply interface{}
	if err := client.do(
		http.MethodGet, httpinterface.WebhooksPath, nil, &reply,
	); err != nil {
		return err
	}
	return printJSON(ctx, reply)
}

func removeWebhookAction(ctx *cli.Context) error {
	client, err := getClient(ctx)
	if err != nil {
		return err
	}

	path := fmt.Sprintf(
		"%s?id=%s", httpinterface.WebhooksPath, url.QueryEscape(ctx.String("id")),
	)
	if err := client.do(http.MethodDelete, path, nil, nil); err != nil {
		return err
	}

	fmt.Fprintln(ctx.App.Writer, "hook removed")
	return nil
}
