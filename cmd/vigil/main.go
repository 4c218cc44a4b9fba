package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/vigild/vigild/pkg/vigilcli"
)

// Populated at build time via -ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	BuildType = "local"
)

const secretEnv = "VIGIL_SECRET"

func Execute(args []string) error {
	app := cli.App{
		Name:      "vigil",
		HelpName:  "vigil",
		Usage:     "control a vigild dead-man's switch daemon",
		Version:   fmt.Sprintf("%s-%s", version, BuildType),
		UsageText: "vigil <command> [arguments...]",
		Flags:     globalFlags,
		Commands: []cli.Command{
			{
				Name:      "arm",
				Aliases:   []string{"a"},
				Usage:     "arm a switch for a user",
				UsageText: "vigil arm --user <addr> --beneficiary <addr> --timeout <duration>",
				Flags: append(globalFlags,
					cli.StringFlag{Name: "user, u", Usage: "user address"},
					cli.StringFlag{Name: "beneficiary, b", Usage: "beneficiary address"},
					cli.DurationFlag{Name: "timeout, t", Usage: "inactivity timeout (e.g. 720h)"},
				),
				Action: arm,
			},
			{
				Name:      "cancel",
				Aliases:   []string{"c"},
				Usage:     "disarm a user's switch",
				UsageText: "vigil cancel --user <addr>",
				Flags: append(globalFlags,
					cli.StringFlag{Name: "user, u", Usage: "user address"},
				),
				Action: cancel,
			},
			{
				Name:      "status",
				Aliases:   []string{"s"},
				Usage:     "show a user's switch state",
				UsageText: "vigil status --user <addr>",
				Flags: append(globalFlags,
					cli.StringFlag{Name: "user, u", Usage: "user address"},
				),
				Action: status,
			},
			{
				Name:      "watch",
				Aliases:   []string{"w"},
				Usage:     "live countdown until the next check, with event stream",
				UsageText: "vigil watch --user <addr>",
				Flags: append(globalFlags,
					cli.StringFlag{Name: "user, u", Usage: "user address"},
				),
				Action: watch,
			},
			{
				Name:    "version",
				Aliases: []string{"v"},
				Usage:   "prints client and daemon versions",
				Action:  getVersion,
			},
		},
		HideVersion: true,
	}
	return app.Run(args)
}

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "url",
		Usage: "daemon base URL",
		Value: "http://127.0.0.1:3939",
	},
	cli.StringFlag{
		Name:   "secret",
		Usage:  "RPC bearer token",
		EnvVar: secretEnv,
	},
}

func newClient(ctx *cli.Context) *vigilcli.Client {
	return vigilcli.NewClient(ctx.String("url"), ctx.String("secret"))
}

func requireUser(ctx *cli.Context) (string, error) {
	user := ctx.String("user")
	if user == "" {
		user = ctx.Args().First()
	}
	if user == "" {
		return "", fmt.Errorf("user address is required")
	}
	return user, nil
}

func arm(ctx *cli.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	beneficiary := ctx.String("beneficiary")
	timeout := ctx.Duration("timeout")
	if beneficiary == "" || timeout <= 0 {
		return fmt.Errorf("beneficiary and a positive timeout are required")
	}

	c := newClient(ctx)
	defer c.Close()
	res, err := c.Arm(context.Background(), user, int64(timeout/time.Second), beneficiary)
	if err != nil {
		return err
	}
	fmt.Printf("armed: job %s, next check due %s\n", res.JobID, res.DueAt.Local().Format(time.RFC1123))
	return nil
}

func cancel(ctx *cli.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	c := newClient(ctx)
	defer c.Close()
	if err := c.Cancel(context.Background(), user); err != nil {
		return err
	}
	fmt.Println("canceled")
	return nil
}

func status(ctx *cli.Context) error {
	user, err := requireUser(ctx)
	if err != nil {
		return err
	}
	c := newClient(ctx)
	defer c.Close()
	st, err := c.Status(context.Background(), user)
	if err != nil {
		return err
	}
	fmt.Printf("user:        %s\nstate:       %s\n", st.UserAddress, st.State)
	if st.Beneficiary != "" {
		fmt.Printf("beneficiary: %s\n", st.Beneficiary)
	}
	if st.TimeoutSeconds > 0 {
		fmt.Printf("timeout:     %s\n", time.Duration(st.TimeoutSeconds)*time.Second)
	}
	if st.DueAt != nil {
		fmt.Printf("next check:  %s (in %s)\n",
			st.DueAt.Local().Format(time.RFC1123),
			time.Until(*st.DueAt).Round(time.Second))
	}
	return nil
}

func getVersion(ctx *cli.Context) error {
	fmt.Printf("vigil %s-%s (%s)\n", version, BuildType, commit)
	c := newClient(ctx)
	defer c.Close()
	v, err := c.Version(context.Background())
	if err != nil {
		fmt.Println("daemon unreachable:", err)
		return nil
	}
	fmt.Printf("vigild %s (%s)\n", v.Version, v.Commit)
	return nil
}

func main() {
	if err := Execute(os.Args); err != nil {
		fmt.Printf("vigil: %s\n", err.Error())
		os.Exit(1)
	}
}
