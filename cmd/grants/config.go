package main

import (
	"fmt"
	"os"

	"github.com/axiomesh/grants/repo"
	"github.com/urfave/cli/v2"
)

var configCMD = &cli.Command{
	Name:  "config",
	Usage: "The config manage commands",
	Subcommands: []*cli.Command{
		{
			Name:  "generate",
			Usage: "Generate default config",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "dial-url",
					Usage: "Websocket endpoint of the chain node",
				},
				&cli.StringFlag{
					Name:  "token",
					Usage: "Address of the governance token",
				},
				&cli.Uint64Flag{
					Name:  "chain-id",
					Usage: "Chain id transactions are signed for",
				},
			},
			Action: generate,
		},
		{
			Name:   "show",
			Usage:  "Show the complete config processed by the environment variable",
			Action: show,
		},
		{
			Name:   "check",
			Usage:  "Check if the config file is valid",
			Action: check,
		},
		{
			Name:   "rewrite-with-env",
			Usage:  "Rewrite config with env",
			Action: rewriteWithEnv,
		},
	},
}

func generate(ctx *cli.Context) error {
	p, err := getRootPath(ctx)
	if err != nil {
		return err
	}
	if repo.Exist(p) {
		fmt.Println("grants repo already exists")
		return nil
	}

	err = os.MkdirAll(p, 0755)
	if err != nil {
		return err
	}

	defaultConfig := repo.DefaultConfig(p)
	if ctx.IsSet("dial-url") {
		defaultConfig.DialUrl = ctx.String("dial-url")
	}
	if ctx.IsSet("token") {
		defaultConfig.Token.Address = ctx.String("token")
	}
	if ctx.IsSet("chain-id") {
		defaultConfig.Token.ChainID = ctx.Uint64("chain-id")
	}
	if err := defaultConfig.Validate(); err != nil {
		return err
	}

	r := &repo.Repo{
		Config: defaultConfig,
	}
	if err := r.Flush(); err != nil {
		return err
	}

	fmt.Printf("initializing grants at %s\n", p)
	return nil
}

func show(ctx *cli.Context) error {
	r, err := loadRepo(ctx)
	if err != nil || r == nil {
		return err
	}
	str, err := repo.MarshalConfig(r.Config)
	if err != nil {
		return err
	}
	fmt.Println(str)
	return nil
}

func check(ctx *cli.Context) error {
	p, err := getRootPath(ctx)
	if err != nil {
		return err
	}
	if !repo.Exist(p) {
		fmt.Println("grants repo not exist")
		return nil
	}

	_, err = repo.Load(p)
	if err != nil {
		fmt.Println("config file format error, please check:", err)
		os.Exit(1)
		return nil
	}

	fmt.Println("config is valid")
	return nil
}

func rewriteWithEnv(ctx *cli.Context) error {
	r, err := loadRepo(ctx)
	if err != nil || r == nil {
		return err
	}
	return r.Flush()
}

// loadRepo loads an existing repo, returning nil if it was never generated.
func loadRepo(ctx *cli.Context) (*repo.Repo, error) {
	p, err := getRootPath(ctx)
	if err != nil {
		return nil, err
	}
	if !repo.Exist(p) {
		fmt.Println("grants repo not exist")
		return nil, nil
	}
	return repo.Load(p)
}

func getRootPath(ctx *cli.Context) (string, error) {
	p := ctx.String("repo")

	var err error
	if p == "" {
		p, err = repo.LoadRepoRootFromEnv(p)
		if err != nil {
			return "", err
		}
	}
	return p, nil
}
