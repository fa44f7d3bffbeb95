package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/juruen/rmdigit/api"
	"github.com/juruen/rmdigit/classifier"
	"github.com/juruen/rmdigit/config"
	"github.com/juruen/rmdigit/log"
	"github.com/juruen/rmdigit/session"
	"github.com/juruen/rmdigit/shell"
	"github.com/juruen/rmdigit/version"
)

func main() {
	configFile := flag.String("config", "", "config file (default $RMDIGIT_CONFIG or ~/.rmdigit.yaml)")
	server := flag.Bool("server", false, "run the HTTP display server")
	addr := flag.String("addr", "", "listen address in server mode")
	modelURL := flag.String("model", "", "model location, overrides the config file")
	jsonOutput := flag.Bool("json", false, "JSON output for shell commands")
	printVersion := flag.Bool("version", false, "print the version and exit")
	dumpConfig := flag.Bool("dump-config", false, "print the effective configuration and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: rmdigit [options] [command [args]]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *printVersion {
		fmt.Println(version.Version)
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *modelURL != "" {
		cfg.Classifier.Location = *modelURL
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	log.InitLog(cfg.Log.Level, cfg.Log.Trace)

	if *dumpConfig {
		out, err := cfg.Marshal()
		if err != nil {
			log.Error.Fatalf("%v", err)
		}
		os.Stdout.Write(out)
		return
	}

	opts, err := session.OptionsFromConfig(cfg)
	if err != nil {
		log.Error.Fatalf("invalid configuration: %v", err)
	}

	loader, err := classifier.NewLoader(cfg.Classifier, nil)
	if err != nil {
		log.Error.Fatalf("%v", err)
	}
	handle := classifier.Load(context.Background(), loader)

	if *server {
		secret := cfg.Server.Secret
		if secret == "" {
			secret = uuid.New().String()
			log.Warning.Println("server.secret is not set, tokens will not survive a restart")
		}
		registry := api.NewRegistry(handle, opts, api.NewTokens(secret, cfg.Server.TokenTTL))
		runServerMode(cfg.Server.Addr, registry)
		return
	}

	sess := session.New(handle, opts)
	defer sess.Close()

	ctx := &shell.ShellCtxt{
		Session:    sess,
		Full:       opts.Sampler.Full(),
		JSONOutput: *jsonOutput,
	}
	if err := shell.RunShell(ctx, flag.Args()); err != nil {
		log.Error.Println("Error: ", err)
		os.Exit(1)
	}
}
