package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/juruen/rmdigit/classifier"
	"github.com/juruen/rmdigit/config"
	"github.com/juruen/rmdigit/encoding/trace"
	"github.com/juruen/rmdigit/log"
	"github.com/juruen/rmdigit/session"
)

func main() {
	inputName := flag.String("i", "", "trace file to replay")
	configFile := flag.String("config", "", "config file")
	noFrame := flag.Bool("q", false, "print the label only")
	timeout := flag.Duration("timeout", time.Minute, "how long to wait for the model")
	flag.Parse()

	if err := replay(*inputName, *configFile, *noFrame, *timeout, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func replay(inputName, configFile string, noFrame bool, timeout time.Duration, out io.Writer) error {
	if inputName == "" {
		return errors.New("missing trace file, use -i")
	}
	t, err := trace.ReadFile(inputName)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	log.InitLog(cfg.Log.Level, cfg.Log.Trace)

	opts, err := session.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	loader, err := classifier.NewLoader(cfg.Classifier, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	handle := classifier.Load(ctx, loader)
	if err := handle.Wait(ctx); err != nil {
		return err
	}

	return run(handle, opts, t, noFrame, out)
}

// run replays t through a fresh session and prints the outcome.
func run(handle *classifier.Handle, opts session.Options, t *trace.Trace, noFrame bool, out io.Writer) error {
	sess := session.New(handle, opts)
	defer sess.Close()

	for ev := range t.All() {
		sess.Dispatch(ev)
	}
	sess.Wait()

	label := sess.Label()
	if label == "" {
		label = "-"
	}
	fmt.Fprintf(out, "label: %s\n", label)
	if !noFrame {
		fmt.Fprint(out, sess.Frame().Preview(opts.Sampler.Full()))
	}
	return nil
}
