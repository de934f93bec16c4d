package main

import (
	"fmt"
	"net/http"

	httpinterface "github.com/tdex-network/gdk-electrum/internal/interfaces/http"
	"github.com/urfave/cli/v2"
)

var methods = cli.Command{
	Name:   "methods",
	Usage:  "list the methods of the wallet session",
	Action: methodsAction,
}

func methodsAction(ctx *cli.Context) error {
	client, err := getClient(ctx)
	if err != nil {
		return err
	}

	reply := struct {
		Methods []string `json:"methods"`
	}{}
	if err := client.do(
		http.MethodGet, httpinterface.MethodsPath, nil, &reply,
	); err != nil {
		return err
	}

	for _, m := range reply.Methods {
		fmt.Fprintln(ctx.App.Writer, m)
	}
	return nil
}
