// Package shell is an interactive console that drives a drawing session
// with typed pointer events.
package shell

import (
	"fmt"

	"github.com/abiosoft/ishell"

	"github.com/juruen/rmdigit/encoding/trace"
	"github.com/juruen/rmdigit/session"
	"github.com/juruen/rmdigit/stroke"
)

type ShellCtxt struct {
	Session *session.Session
	// Full is the frame value of a fully inked pixel, used by previews.
	Full       float32
	JSONOutput bool

	recording *trace.Trace
}

func (ctx *ShellCtxt) prompt() string {
	return fmt.Sprintf("[%s]>", ctx.Session.State())
}

// dispatch feeds ev to the session and records it when recording.
func (ctx *ShellCtxt) dispatch(ev stroke.Event) {
	if ctx.recording != nil {
		ctx.recording.Append(ev)
	}
	ctx.Session.Dispatch(ev)
}

func RunShell(ctx *ShellCtxt, args []string) error {
	shell := ishell.New()

	shell.SetPrompt(ctx.prompt())
	shell.AddCmd(downCmd(ctx))
	shell.AddCmd(moveCmd(ctx))
	shell.AddCmd(upCmd(ctx))
	shell.AddCmd(leaveCmd(ctx))
	shell.AddCmd(originCmd(ctx))
	shell.AddCmd(clearCmd(ctx))
	shell.AddCmd(statusCmd(ctx))
	shell.AddCmd(labelCmd(ctx))
	shell.AddCmd(frameCmd(ctx))
	shell.AddCmd(waitCmd(ctx))
	shell.AddCmd(recordCmd(ctx))
	shell.AddCmd(saveCmd(ctx))
	shell.AddCmd(replayCmd(ctx))

	if len(args) > 0 {
		err := shell.Process(args...)
		ctx.Session.Wait()
		return err
	}

	n := &notifier{last: ctx.Session.Snapshot()}
	ctx.Session.Subscribe(func(snap session.Snapshot) {
		for _, line := range n.changes(snap) {
			shell.Println(line)
		}
	})

	shell.Println(n.status())
	shell.Run()
	return nil
}
