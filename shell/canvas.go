package shell

import (
	"fmt"

	"github.com/abiosoft/ishell"
)

func clearCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "clear",
		Help: "blank the surface and the label",
		Func: func(c *ishell.Context) {
			ctx.Session.Clear()
			c.SetPrompt(ctx.prompt())
		},
	}
}

func statusCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "status",
		Help: "show the model status and the session state",
		Func: func(c *ishell.Context) {
			snap := ctx.Session.Snapshot()
			if ctx.JSONOutput {
				if err := displayJSON(c, snap); err != nil {
					c.Err(err)
				}
				return
			}
			c.Println(snap.Status)
			c.Printf("state: %s\ngeneration: %d\n", snap.State, snap.Generation)
		},
	}
}

func labelCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "label",
		Help: "show the current label",
		Func: func(c *ishell.Context) {
			c.Println(formatLabel(ctx.Session.Label()))
		},
	}
}

func frameCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "frame",
		Help: "preview the sampled frame",
		Func: func(c *ishell.Context) {
			f := ctx.Session.Frame()
			if ctx.JSONOutput {
				if err := displayJSON(c, f); err != nil {
					c.Err(err)
				}
				return
			}
			c.Print(f.Preview(ctx.Full))
		},
	}
}

func waitCmd(ctx *ShellCtxt) *ishell.Cmd {
	return &ishell.Cmd{
		Name: "wait",
		Help: "wait for pending classifications",
		Func: func(c *ishell.Context) {
			ctx.Session.Wait()
			c.Println(fmt.Sprintf("label: %s", formatLabel(ctx.Session.Label())))
		},
	}
}
