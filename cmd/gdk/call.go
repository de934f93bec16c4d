package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tdex-network/gdk-electrum/internal/core/domain"
	httpinterface "github.com/tdex-network/gdk-electrum/internal/interfaces/http"
	"github.com/urfave/cli/v2"
)

var call = cli.Command{
	Name:      "call",
	Usage:     "call a method of the wallet session",
	ArgsUsage: "<method> [params as json]",
	Action:    callAction,
}

func callAction(ctx *cli.Context) error {
	if ctx.NArg() < 1 || ctx.NArg() > 2 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}

	var params json.RawMessage
	if raw := ctx.Args().Get(1); raw != "" {
		if !json.Valid([]byte(raw)) {
			return fmt.Errorf("params must be valid json")
		}
		params = json.RawMessage(raw)
	}

	client, err := getClient(ctx)
	if err != nil {
		return err
	}

	reply := struct {
		Result json.RawMessage   `json:"result"`
		Error  *domain.WireError `json:"error"`
	}{}
	if err := client.do(
		http.MethodPost, httpinterface.CallPath,
		httpinterface.CallRequest{Method: ctx.Args().First(), Params: params},
		&reply,
	); err != nil {
		return err
	}
	if reply.Error != nil {
		return reply.Error
	}

	return printJSON(ctx, reply.Result)
}
