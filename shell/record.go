package shell

import (
	"errors"
	"path/filepath"

	"github.com/abiosoft/ishell"

	"github.com/juruen/rmdigit/encoding/trace"
)

func (ctx *ShellCtxt) setRecording(arg string) error {
	switch arg {
	case "on":
		ctx.recording = &trace.Trace{}
	case "off":
		ctx.recording = nil
	default:
		return errors.New("usage: record on|off")
	}
	return nil
}

func (ctx *ShellCtxt) save(path string) (int, error) {
	if ctx.recording == nil {
		return 0, errors.New("not recording")
	}
	if err := ctx.recording.WriteFile(path); err != nil {
		return 0, err
	}
	return len(ctx.recording.Events), nil
}

// replay feeds a saved trace to the session. Replayed events are recorded
// too when recording is on.
func (ctx *ShellCtxt) replay(path string) (int, error) {
	t, err := trace.ReadFile(path)
	if err != nil {
		return 0, err
	}
	for ev := range t.All() {
		ctx.dispatch(ev)
	}
	return len(t.Events), nil
}

func fileCompleter(args []string) []string {
	pattern := "*"
	if len(args) > 0 {
		pattern = args[len(args)-1] + "*"
	}
	matches, _ := filepath.Glob(pattern)
	return matches
}

func recordCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "record",
		Help: "start or stop recording pointer events",
		Completer: func([]string) []string {
			return []string{"on", "off"}
		},
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(errors.New("usage: record on|off"))
				return
			}
			if err := ctx.setRecording(c.Args[0]); err != nil {
				c.Err(err)
				return
			}
			c.Println("recording", c.Args[0])
		},
	}
}

func saveCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:      "save",
		Help:      "save the recorded events to a trace file",
		Completer: fileCompleter,
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(errors.New("missing trace file"))
				return
			}
			n, err := ctx.save(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("saved %d events to %s\n", n, c.Args[0])
		},
	}
}

func replayCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name:      "replay",
		Help:      "replay a trace file into the session",
		Completer: fileCompleter,
		Func: func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(errors.New("missing trace file"))
				return
			}
			n, err := ctx.replay(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("replayed %d events\n", n)
			c.SetPrompt(ctx.prompt())
		},
	}
}
