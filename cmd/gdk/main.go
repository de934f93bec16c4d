package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/urfave/cli/v2"
)

var (
	gdkDataDir = btcutil.AppDataDir("gdk-cli", false)
	statePath  = filepath.Join(gdkDataDir, "state.json")

	rpcFlag = cli.StringFlag{
		Name:  "rpcserver",
		Usage: "gdkd daemon address host:port, overrides the one in local state",
	}
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	app := cli.NewApp()

	app.Version = "0.0.1"
	app.Name = "gdk CLI"
	app.Usage = "Command line interface for gdkd daemon users"
	app.Writer = out
	app.Flags = []cli.Flag{&rpcFlag}
	app.Commands = append(
		app.Commands,
		&config,
		&call,
		&methods,
		&listen,
		&addwebhook,
		&listwebhooks,
		&removewebhook,
	)
	return app
}

func getState() (map[string]string, error) {
	data := map[string]string{}

	file, err := os.ReadFile(statePath)
	if err != nil {
		return nil, errors.New("get config state error: try 'config init'")
	}
	if err := json.Unmarshal(file, &data); err != nil {
		return nil, fmt.Errorf("invalid config state: %w", err)
	}

	return data, nil
}

func setState(data map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(statePath), os.ModeDir|0755); err != nil {
		return err
	}

	currentData, err := getState()
	if err != nil {
		currentData = map[string]string{}
	}

	jsonString, err := json.Marshal(merge(currentData, data))
	if err != nil {
		return err
	}
	if err := os.WriteFile(statePath, jsonString, 0644); err != nil {
		return fmt.Errorf("writing to file: %w", err)
	}

	return nil
}

func merge(maps ...map[string]string) map[string]string {
	merge := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			merge[k] = v
		}
	}
	return merge
}

func getRPCServer(ctx *cli.Context) (string, error) {
	if addr := ctx.String(rpcFlag.Name); addr != "" {
		return addr, nil
	}

	state, err := getState()
	if err != nil {
		return "", err
	}
	addr, ok := state["rpcserver"]
	if !ok || addr == "" {
		return "", errors.New("set rpcserver with `config set rpcserver`")
	}
	return addr, nil
}

func printJSON(ctx *cli.Context, v interface{}) error {
	buf, err := json.MarshalIndent(v, "", "\t")
	if err != nil {
		return fmt.Errorf("unable to encode response: %w", err)
	}
	fmt.Fprintln(ctx.App.Writer, string(buf))
	return nil
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[gdk] %v\n", err)
	}
	os.Exit(1)
}
